package usecase

import (
	"slices"
	"strings"
	"unicode"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

const (
	rerankVectorWeight   = 0.6
	rerankOverlapWeight  = 0.3
	rerankCategoryWeight = 0.1
)

var queryStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "for": {}, "in": {}, "is": {}, "of": {},
	"on": {}, "the": {}, "to": {}, "what": {}, "which": {}, "who": {}, "with": {},
}

// rankChunks merges duplicate hits, then orders them by a blend of vector
// score, query term overlap and whether the question names the chunk's
// document type.
func rankChunks(question string, candidates []domain.RetrievedChunk) []domain.RetrievedChunk {
	chunks := dedupeChunks(candidates)
	if len(chunks) == 0 {
		return chunks
	}

	terms := queryTerms(question)
	named := namedCategories(terms)
	lo, hi := chunks[0].Score, chunks[0].Score
	for _, c := range chunks[1:] {
		lo, hi = min(lo, c.Score), max(hi, c.Score)
	}

	for i := range chunks {
		vector := 1.0
		if hi > lo {
			vector = (chunks[i].Score - lo) / (hi - lo)
		}
		category := 0.0
		if _, ok := named[domain.Category(chunks[i].Category)]; ok {
			category = 1
		}
		chunks[i].Score = rerankVectorWeight*vector +
			rerankOverlapWeight*termOverlap(terms, chunks[i].Text+" "+chunks[i].Filename) +
			rerankCategoryWeight*category
	}

	slices.SortStableFunc(chunks, func(a, b domain.RetrievedChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.StorageKey != b.StorageKey:
			return strings.Compare(a.StorageKey, b.StorageKey)
		default:
			return a.ChunkIndex - b.ChunkIndex
		}
	})
	return chunks
}

// dedupeChunks keeps one hit per stored object chunk with its best score.
func dedupeChunks(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	type key struct {
		storageKey string
		index      int
	}
	seen := make(map[key]int, len(chunks))
	out := make([]domain.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		k := key{c.StorageKey, c.ChunkIndex}
		if i, ok := seen[k]; ok {
			if c.Score > out[i].Score {
				out[i].Score = c.Score
			}
			if out[i].Text == "" {
				out[i].Text = c.Text
			}
			if out[i].Location == "" {
				out[i].Location = c.Location
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, c)
	}
	return out
}

func queryTerms(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, term := range tokenize(s) {
		if _, stop := queryStopwords[term]; stop || len(term) < 2 {
			continue
		}
		out[term] = struct{}{}
	}
	return out
}

// namedCategories returns the document types whose leading word appears in
// the question, e.g. "settlement" or "income".
func namedCategories(terms map[string]struct{}) map[domain.Category]struct{} {
	out := make(map[domain.Category]struct{})
	for _, c := range domain.Categories() {
		lead, _, _ := strings.Cut(strings.ToLower(string(c)), " ")
		if _, ok := terms[lead]; ok {
			out[c] = struct{}{}
		}
	}
	return out
}

func termOverlap(terms map[string]struct{}, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	found := make(map[string]struct{}, len(terms))
	for _, tok := range tokenize(text) {
		if _, ok := terms[tok]; ok {
			found[tok] = struct{}{}
		}
	}
	return float64(len(found)) / float64(len(terms))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
