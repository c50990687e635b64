package cloudevent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

const maxObjectBytes = 64 << 20

// GCSEvent is the storage.object.v1.finalized payload subset we use.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

type ObjectReader interface {
	OpenObject(ctx context.Context, bucket, name string) (io.ReadCloser, error)
}

// Handler runs the intake pipeline for every object finalized in the inbox.
type Handler struct {
	reader         ObjectReader
	pipeline       ports.DocumentProcessor
	documentBucket string
	logger         *slog.Logger
}

// NewHandler builds the handler. documentBucket is the bucket the pipeline
// files documents into; events for already filed objects there are skipped.
func NewHandler(reader ObjectReader, pipeline ports.DocumentProcessor, documentBucket string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{reader: reader, pipeline: pipeline, documentBucket: documentBucket, logger: logger}
}

// Handle returns an error only for failures a redelivery could fix.
func (h *Handler) Handle(ctx context.Context, e cloudevents.Event) error {
	var event GCSEvent
	if err := json.Unmarshal(e.Data(), &event); err != nil {
		h.logger.Error("intake_function.decode.failed", "event_id", e.ID(), "error", err)
		return nil
	}
	if event.Bucket == "" || event.Name == "" || strings.HasSuffix(event.Name, "/") {
		h.logger.Warn("intake_function.event.ignored", "event_id", e.ID(), "bucket", event.Bucket, "name", event.Name)
		return nil
	}
	log := h.logger.With("bucket", event.Bucket, "name", event.Name, "event_id", e.ID())

	if event.Bucket == h.documentBucket && isFiled(event.Name) {
		log.Debug("intake_function.filed_object.skipped")
		return nil
	}

	data, err := h.read(ctx, event)
	if err != nil {
		log.Error("intake_function.read.failed", "error", err)
		if domain.IsKind(err, domain.ErrNotFound) || domain.IsKind(err, domain.ErrInvalidInput) {
			return nil
		}
		return err
	}

	outcome := h.pipeline.Process(ctx, domain.Upload{
		Filename: path.Base(event.Name),
		Data:     data,
	})
	log.Info("intake_function.processed",
		"state", outcome.State,
		"category", outcome.Category,
		"storage_key", outcome.StorageKey,
		"duration_ms", outcome.Duration.Milliseconds(),
		"estimated_cost", outcome.Cost,
	)
	// A failed outcome is final: the pipeline does not retry, and
	// redelivering the event would only repeat the same run.
	if outcome.State == domain.StateFailed {
		log.Error("intake_function.pipeline.failed", "error", outcome.Error)
	}
	return nil
}

func (h *Handler) read(ctx context.Context, event GCSEvent) ([]byte, error) {
	r, err := h.reader.OpenObject(ctx, event.Bucket, event.Name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	if len(data) > maxObjectBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read object", fmt.Errorf("object exceeds %d bytes", maxObjectBytes))
	}
	return data, nil
}

func isFiled(name string) bool {
	folder, _, ok := strings.Cut(name, "/")
	if !ok {
		return false
	}
	if folder == domain.CategoryInvalid.Folder() {
		return true
	}
	_, known := domain.ParseCategory(folder)
	return known
}
