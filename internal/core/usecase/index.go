package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

// IndexLandedUseCase ingests a landed document into the knowledge base.
type IndexLandedUseCase struct {
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	logger    *slog.Logger
}

func NewIndexLandedUseCase(
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	logger *slog.Logger,
) *IndexLandedUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexLandedUseCase{
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
		logger:    logger,
	}
}

func (uc *IndexLandedUseCase) IndexLanded(ctx context.Context, event domain.LandedEvent) error {
	if strings.TrimSpace(event.StorageKey) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "index landed document", errors.New("storage key is required"))
	}
	if event.Filename == "" {
		event.Filename = event.StorageKey[strings.LastIndex(event.StorageKey, "/")+1:]
	}

	text, err := uc.loadText(ctx, event)
	if err != nil {
		return err
	}

	chunks, err := uc.chunk(text)
	if err != nil {
		return err
	}

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return err
	}

	if err := uc.vectorDB.IndexChunks(ctx, event, chunks, vectors); err != nil {
		return domain.WrapError(domain.ErrTemporary, "index chunks in vector db", err)
	}

	uc.logger.Info("kb.document.indexed", "storage_key", event.StorageKey, "category", event.Category, "chunks", len(chunks))
	return nil
}

func (uc *IndexLandedUseCase) loadText(ctx context.Context, event domain.LandedEvent) (string, error) {
	rc, err := uc.storage.Open(ctx, event.StorageKey)
	if err != nil {
		return "", domain.WrapError(domain.ErrStorage, "open landed document", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", domain.WrapError(domain.ErrStorage, "read landed document", err)
	}

	text := uc.extractor.Extract(ctx, data, event.Filename)
	if !readable(text) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("no readable text"))
	}
	return text, nil
}

func (uc *IndexLandedUseCase) chunk(text string) ([]string, error) {
	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return chunks, nil
}

func (uc *IndexLandedUseCase) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, domain.WrapError(domain.ErrOracle, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}
