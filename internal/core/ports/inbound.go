package ports

import (
	"context"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

// DocumentProcessor runs one upload through the intake pipeline.
type DocumentProcessor interface {
	Process(ctx context.Context, upload domain.Upload) domain.Outcome
}

// BatchRunner processes several uploads and aggregates run metrics.
type BatchRunner interface {
	Run(ctx context.Context, uploads []domain.Upload) domain.BatchResult
}

// DocumentClassifier classifies free text into a validated category.
type DocumentClassifier interface {
	ClassifyText(ctx context.Context, text string) (domain.Category, error)
}

// KnowledgeBaseQuery answers questions with citations.
type KnowledgeBaseQuery interface {
	Answer(ctx context.Context, question string, limit int, filter domain.SearchFilter) (*domain.Answer, error)
}

// KnowledgeBaseIndexer ingests a landed document into the knowledge base.
type KnowledgeBaseIndexer interface {
	IndexLanded(ctx context.Context, event domain.LandedEvent) error
}

// TableReader exposes table status and recent rows.
type TableReader interface {
	Status(ctx context.Context) []domain.TableStatus
	Recent(ctx context.Context, table domain.Table, limit int) ([]domain.Row, error)
}

// RecordExporter renders recent rows of every table as a workbook.
type RecordExporter interface {
	ExportWorkbook(ctx context.Context, limit int) ([]byte, error)
}

// KnowledgeBaseResync re-emits the landed event of a stored object.
type KnowledgeBaseResync interface {
	Resync(ctx context.Context, key, category, filename string) (domain.LandedEvent, error)
}
