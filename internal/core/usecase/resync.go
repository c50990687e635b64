package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

// ResyncUseCase re-emits a landed event for an object already in storage.
type ResyncUseCase struct {
	storage ports.ObjectStorage
	sync    ports.KnowledgeBaseSync
	logger  *slog.Logger
	now     func() time.Time
}

func NewResyncUseCase(storage ports.ObjectStorage, sync ports.KnowledgeBaseSync, logger *slog.Logger) *ResyncUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResyncUseCase{
		storage: storage,
		sync:    sync,
		logger:  logger,
		now:     time.Now,
	}
}

func (uc *ResyncUseCase) Resync(ctx context.Context, key, category, filename string) (domain.LandedEvent, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.LandedEvent{}, domain.WrapError(domain.ErrInvalidInput, "resync", fmt.Errorf("storage_key is required"))
	}
	if uc.sync == nil {
		return domain.LandedEvent{}, domain.WrapError(domain.ErrInvalidInput, "resync", fmt.Errorf("knowledge base sync is disabled"))
	}

	cat, err := resyncCategory(key, category)
	if err != nil {
		return domain.LandedEvent{}, err
	}

	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) || domain.IsKind(err, domain.ErrInvalidInput) {
			return domain.LandedEvent{}, err
		}
		return domain.LandedEvent{}, domain.WrapError(domain.ErrStorage, "resync", err)
	}
	_ = rc.Close()

	location, err := uc.storage.Locate(key)
	if err != nil {
		return domain.LandedEvent{}, err
	}
	if strings.TrimSpace(filename) == "" {
		filename = path.Base(key)
	}

	event := domain.LandedEvent{
		StorageKey:  key,
		StoragePath: location,
		Category:    cat,
		Filename:    filename,
		LandedAt:    uc.now().UTC(),
	}
	if err := uc.sync.NotifyDocumentLanded(ctx, event); err != nil {
		if domain.IsKind(err, domain.ErrTemporary) {
			return domain.LandedEvent{}, err
		}
		return domain.LandedEvent{}, domain.WrapError(domain.ErrTemporary, "resync", err)
	}

	uc.logger.Info("kb_sync.resync.sent", "storage_key", key, "category", cat)
	return event, nil
}

// resyncCategory takes an explicit category or infers it from the key's
// folder prefix.
func resyncCategory(key, raw string) (domain.Category, error) {
	if strings.TrimSpace(raw) != "" {
		cat, ok := domain.ParseCategory(raw)
		if !ok {
			return "", domain.WrapError(domain.ErrInvalidInput, "resync", fmt.Errorf("unknown category %q", raw))
		}
		return cat, nil
	}
	folder, _, _ := strings.Cut(key, "/")
	if cat, ok := domain.ParseCategory(folder); ok {
		return cat, nil
	}
	return domain.CategoryInvalid, nil
}
