package kbsync

import (
	"context"
	"log/slog"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

// Noop only records that a sync would have been requested.
type Noop struct {
	logger *slog.Logger
}

func NewNoop(logger *slog.Logger) *Noop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Noop{logger: logger}
}

func (n *Noop) NotifyDocumentLanded(_ context.Context, event domain.LandedEvent) error {
	n.logger.Debug("kb_sync.disabled", "storage_key", event.StorageKey)
	return nil
}
