package chunking

import (
	"strings"
	"unicode"
)

// Splitter cuts extracted document text into overlapping windows measured
// in runes. Windows end at the nearest paragraph, line or word break found
// in their last quarter.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(normalizeNewlines(text))
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	for start := 0; start < len(runes); {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.snap(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func (s *Splitter) snap(runes []rune, start, end int) int {
	floor := end - s.ChunkSize/4
	if floor <= start {
		return end
	}
	for _, isBreak := range []func(int) bool{
		func(i int) bool { return runes[i] == '\n' && i > 0 && runes[i-1] == '\n' },
		func(i int) bool { return runes[i] == '\n' },
		func(i int) bool { return unicode.IsSpace(runes[i]) },
	} {
		for i := end - 1; i >= floor; i-- {
			if isBreak(i) {
				return i + 1
			}
		}
	}
	return end
}

func normalizeNewlines(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
}
