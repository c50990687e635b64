package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

const (
	defaultQueryLimit    = 5
	maxQueryLimit        = 50
	candidateMultiplier  = 3
	citationContentLimit = 500
)

type QueryUseCase struct {
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	generator ports.AnswerGenerator
}

func NewQueryUseCase(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	generator ports.AnswerGenerator,
) *QueryUseCase {
	return &QueryUseCase{
		embedder:  embedder,
		vectorDB:  vectorDB,
		generator: generator,
	}
}

// Answer searches the knowledge base and returns a generated answer with a
// citation per retrieved chunk.
func (uc *QueryUseCase) Answer(
	ctx context.Context,
	question string,
	limit int,
	filter domain.SearchFilter,
) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer question", errors.New("question is required"))
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrOracle, "embed query", err)
	}

	candidates, err := uc.vectorDB.Search(ctx, queryVector, limit*candidateMultiplier, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "search vector db", err)
	}
	chunks := rankChunks(question, candidates)
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}

	answerText, err := uc.generator.GenerateAnswer(ctx, question, chunks)
	if err != nil {
		return nil, domain.WrapError(domain.ErrOracle, "generate answer", err)
	}

	return &domain.Answer{
		Text:      answerText,
		Citations: citationsFor(chunks),
	}, nil
}

func citationsFor(chunks []domain.RetrievedChunk) []domain.Citation {
	out := make([]domain.Citation, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, domain.Citation{
			Content:  truncateRunes(chunk.Text, citationContentLimit),
			Location: chunk.Location,
			Score:    chunk.Score,
		})
	}
	return out
}
