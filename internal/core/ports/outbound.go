package ports

import (
	"context"
	"io"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

// TextExtractor converts raw file bytes into text. It never fails: problems
// come back as a bracketed diagnostic string.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) string
}

// Oracle is the external generative text service.
type Oracle interface {
	Invoke(ctx context.Context, prompt string) (domain.OracleResponse, error)
}

// ObjectStorage stores source documents and returns the stored path.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Locate returns the stored path of key without touching the backend.
	Locate(key string) (string, error)
}

// TableStore appends rows to the five logical tables.
type TableStore interface {
	Put(ctx context.Context, table domain.Table, row domain.Row) error
	Describe(ctx context.Context, table domain.Table) (domain.TableStatus, error)
	ListRecent(ctx context.Context, table domain.Table, limit int) ([]domain.Row, error)
}

// KnowledgeBaseSync signals that a new document landed in object storage.
type KnowledgeBaseSync interface {
	NotifyDocumentLanded(ctx context.Context, event domain.LandedEvent) error
}

// LandedEventSource delivers landed events to the knowledge base indexer.
type LandedEventSource interface {
	SubscribeDocumentLanded(ctx context.Context, handler func(context.Context, domain.LandedEvent) error) error
}

// CategoryObserver receives every classification decision.
type CategoryObserver interface {
	ObserveCategory(category domain.Category, strictness domain.Strictness)
}

// OutcomeObserver receives every terminal pipeline outcome.
type OutcomeObserver interface {
	ObserveOutcome(outcome domain.Outcome)
}

// IDGenerator produces primary identifiers in the type a table expects.
type IDGenerator interface {
	NewString() string
	NewNumber() int64
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}

// VectorStore indexes chunks and performs semantic search.
type VectorStore interface {
	IndexChunks(ctx context.Context, event domain.LandedEvent, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
}

// AnswerGenerator writes the final answer from retrieved context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error)
}

// WorkbookRenderer serializes sheets into a spreadsheet file.
type WorkbookRenderer interface {
	Render(sheets []domain.Sheet) ([]byte, error)
}
