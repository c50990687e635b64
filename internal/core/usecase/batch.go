package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

type BatchMode string

const (
	BatchSequential BatchMode = "sequential"
	BatchOverlapped BatchMode = "overlapped"
)

func ParseBatchMode(raw string) (BatchMode, error) {
	switch BatchMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", BatchSequential:
		return BatchSequential, nil
	case BatchOverlapped:
		return BatchOverlapped, nil
	default:
		return "", fmt.Errorf("unknown batch mode %q", raw)
	}
}

// BatchProcessor runs uploads through the pipeline in submission order.
// In overlapped mode the decision stages of document N+1 run while document
// N is uploaded and persisted; commits stay ordered one at a time.
type BatchProcessor struct {
	pipeline *Pipeline
	mode     BatchMode
	logger   *slog.Logger
}

func NewBatchProcessor(pipeline *Pipeline, mode BatchMode, logger *slog.Logger) *BatchProcessor {
	if mode == "" {
		mode = BatchSequential
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{pipeline: pipeline, mode: mode, logger: logger}
}

// Run returns one outcome per upload in input order. A failing document
// never aborts the batch.
func (b *BatchProcessor) Run(ctx context.Context, uploads []domain.Upload) domain.BatchResult {
	metrics := domain.NewRunMetrics()
	outcomes := make([]domain.Outcome, len(uploads))

	if b.mode == BatchOverlapped {
		var g errgroup.Group
		g.SetLimit(1)
		for i, upload := range uploads {
			prep := b.pipeline.Prepare(ctx, upload)
			g.Go(func() error {
				outcomes[i] = b.pipeline.Commit(ctx, prep)
				metrics.Add(outcomes[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, upload := range uploads {
			outcomes[i] = b.pipeline.Process(ctx, upload)
			metrics.Add(outcomes[i])
		}
	}

	snap := metrics.Snapshot()
	b.logger.Info("batch.completed",
		"mode", b.mode,
		"documents", snap.DocumentsProcessed,
		"uploads", snap.SuccessfulUploads,
		"records", snap.RecordsWritten,
		"rejected", snap.Rejected,
		"failed", snap.Failed,
		"total_cost", snap.TotalCost,
	)
	return domain.BatchResult{Outcomes: outcomes, Metrics: metrics}
}
