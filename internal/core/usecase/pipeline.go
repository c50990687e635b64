package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

const (
	minReadableChars = 10

	unreadableTextError = "Unable to extract readable text from document"
	unclassifiedReason  = "document could not be classified"
)

type PipelineDeps struct {
	Extractor ports.TextExtractor
	Oracle    ports.Oracle
	Validator *Validator
	Storage   ports.ObjectStorage
	Tables    ports.TableStore
	IDs       ports.IDGenerator
	// Sync and Observer are optional.
	Sync     ports.KnowledgeBaseSync
	Observer ports.OutcomeObserver
	Logger   *slog.Logger
}

type PipelineConfig struct {
	Gate domain.GateConfig
	Cost domain.CostModel
}

// Pipeline takes one upload from raw bytes to persisted table rows.
type Pipeline struct {
	extractor  ports.TextExtractor
	classifier *ClassifyPrompter
	fields     *ExtractPrompter
	validator  *Validator
	gate       *Gate
	storage    ports.ObjectStorage
	router     *Router
	sync       ports.KnowledgeBaseSync
	observer   ports.OutcomeObserver
	cost       domain.CostModel
	logger     *slog.Logger
	now        func() time.Time
}

func NewPipeline(deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	validator := deps.Validator
	if validator == nil {
		validator = NewValidator(domain.DefaultClassificationPolicy(), nil)
	}
	return &Pipeline{
		extractor:  deps.Extractor,
		classifier: NewClassifyPrompter(deps.Oracle),
		fields:     NewExtractPrompter(deps.Oracle),
		validator:  validator,
		gate:       NewGate(cfg.Gate),
		storage:    deps.Storage,
		router:     NewRouter(deps.Tables, deps.IDs, logger),
		sync:       deps.Sync,
		observer:   deps.Observer,
		cost:       cfg.Cost,
		logger:     logger,
		now:        time.Now,
	}
}

// Prepared is a document that went through the decision stages and waits
// for upload and persistence.
type Prepared struct {
	upload  domain.Upload
	outcome domain.Outcome
	started time.Time
}

// Outcome reports the state reached so far.
func (p *Prepared) Outcome() domain.Outcome {
	return p.outcome
}

// Process runs every stage for one upload. Each call uploads and writes
// anew; reprocessing a file produces new rows.
func (p *Pipeline) Process(ctx context.Context, upload domain.Upload) domain.Outcome {
	return p.Commit(ctx, p.Prepare(ctx, upload))
}

// Prepare runs extraction, classification, field extraction and the gate.
// It stops early when the document is rejected or fails.
func (p *Pipeline) Prepare(ctx context.Context, upload domain.Upload) *Prepared {
	prep := &Prepared{upload: upload, started: p.now()}
	out := &prep.outcome
	out.Filename = upload.Filename
	out.Enter(domain.StateReceived)

	text := p.extractor.Extract(ctx, upload.Data, upload.Filename)
	out.Enter(domain.StateTextExtracted)

	var record domain.Record
	if !readable(text) {
		out.Category = p.unreadableCategory(upload)
		out.Enter(domain.StateClassified)
		record = unreadableRecord(text)
		p.logger.Warn("pipeline.text.unreadable", "filename", upload.Filename, "category", out.Category)
	} else {
		out.Category = p.classify(ctx, upload, text)
		out.Enter(domain.StateClassified)

		raw, err := p.fields.Extract(ctx, out.Category, text)
		if err != nil {
			p.fail(prep, "field extraction failed", err)
			return prep
		}
		var tier ParseTier
		record, tier = ParseExtraction(raw, text)
		p.logger.Debug("pipeline.extraction.parsed", "filename", upload.Filename, "tier", tier.String(), "fields", len(record))
	}
	out.Enter(domain.StateExtracted)

	record[domain.FieldClassification] = string(out.Category)
	record[domain.FieldFilename] = upload.Filename
	record[domain.FieldStoragePath] = ""
	out.Record = record

	out.Enter(domain.StateGateChecked)
	if !p.gate.Enabled() {
		return prep
	}
	if !out.Category.Valid() {
		p.reject(prep, unclassifiedReason)
		return prep
	}

	result := p.gate.Check(out.Category, record)
	out.Gate = &result
	record[domain.FieldConfidence] = result.Score
	record[domain.FieldMissing] = result.Missing
	if !result.Passed {
		reason := fmt.Sprintf("confidence %.2f below threshold", result.Score)
		if len(result.Missing) > 0 {
			reason = "missing required fields: " + strings.Join(result.Missing, ", ")
		}
		p.reject(prep, reason)
	}
	return prep
}

// Commit uploads the source document and persists its record. Prepared
// documents that already reached a terminal state are only finalized.
func (p *Pipeline) Commit(ctx context.Context, prep *Prepared) domain.Outcome {
	out := &prep.outcome
	if out.State.Terminal() {
		return p.finish(prep)
	}

	key := StorageKey(out.Category, prep.upload.Filename)
	path, err := p.storage.Save(ctx, key, bytes.NewReader(prep.upload.Data))
	if err != nil {
		p.fail(prep, "upload failed", domain.WrapError(domain.ErrStorage, "upload document", err))
		return p.finish(prep)
	}
	out.StorageKey = key
	out.StoragePath = path
	out.Record[domain.FieldStoragePath] = path
	out.Enter(domain.StateUploaded)

	p.notifyLanded(ctx, domain.LandedEvent{
		StorageKey:  key,
		StoragePath: path,
		Category:    out.Category,
		Filename:    prep.upload.Filename,
		LandedAt:    p.now().UTC(),
	})

	persisted, err := p.router.Route(ctx, out.Category, out.Record)
	if err != nil {
		p.fail(prep, "persistence failed", err)
		return p.finish(prep)
	}
	out.Persisted = &persisted
	out.Enter(domain.StatePersisted)
	return p.finish(prep)
}

func (p *Pipeline) classify(ctx context.Context, upload domain.Upload, text string) domain.Category {
	if upload.CategoryHint.Valid() {
		return upload.CategoryHint
	}
	raw, err := p.classifier.Classify(ctx, text)
	if err != nil {
		p.logger.Warn("pipeline.classify.failed", "filename", upload.Filename, "error", err)
		return p.validator.ValidateFailure()
	}
	return p.validator.Validate(raw)
}

func (p *Pipeline) unreadableCategory(upload domain.Upload) domain.Category {
	if upload.CategoryHint.Valid() {
		return upload.CategoryHint
	}
	return p.validator.ValidateFailure()
}

func (p *Pipeline) notifyLanded(ctx context.Context, event domain.LandedEvent) {
	if p.sync == nil {
		return
	}
	if err := p.sync.NotifyDocumentLanded(ctx, event); err != nil {
		p.logger.Warn("pipeline.kb_sync.failed", "storage_key", event.StorageKey, "error", err)
		return
	}
	p.logger.Debug("pipeline.kb_sync.sent", "storage_key", event.StorageKey)
}

func (p *Pipeline) reject(prep *Prepared, reason string) {
	prep.outcome.Reason = reason
	prep.outcome.Enter(domain.StateRejected)
}

func (p *Pipeline) fail(prep *Prepared, reason string, err error) {
	prep.outcome.Reason = reason
	prep.outcome.Error = err.Error()
	prep.outcome.Enter(domain.StateFailed)
}

func (p *Pipeline) finish(prep *Prepared) domain.Outcome {
	out := prep.outcome
	out.Duration = p.now().Sub(prep.started)
	out.Cost = p.cost.Estimate(out.Duration)

	attrs := []any{
		"filename", out.Filename,
		"state", out.State,
		"category", out.Category,
		"duration_ms", out.Duration.Milliseconds(),
	}
	switch out.State {
	case domain.StateFailed:
		p.logger.Error("pipeline.document.failed", append(attrs, "reason", out.Reason, "error", out.Error)...)
	case domain.StateRejected:
		p.logger.Info("pipeline.document.rejected", append(attrs, "reason", out.Reason)...)
	default:
		p.logger.Info("pipeline.document.persisted", append(attrs, "storage_path", out.StoragePath)...)
	}

	if p.observer != nil {
		p.observer.ObserveOutcome(out)
	}
	return out
}

func readable(text string) bool {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
			if n >= minReadableChars {
				return true
			}
		}
	}
	return false
}

func unreadableRecord(text string) domain.Record {
	preview := truncateRunes(text, shortTextPreviewLimit)
	if strings.TrimSpace(preview) == "" {
		preview = "No content"
	}
	return domain.Record{
		domain.FieldError:          unreadableTextError,
		domain.FieldContentPreview: preview,
	}
}
