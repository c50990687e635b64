package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/estate-intake/internal/config"
	"github.com/kirillkom/estate-intake/internal/core/ports"
	"github.com/kirillkom/estate-intake/internal/core/usecase"
	"github.com/kirillkom/estate-intake/internal/infrastructure/chunking"
	"github.com/kirillkom/estate-intake/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/estate-intake/internal/infrastructure/extractor/filetext"
	"github.com/kirillkom/estate-intake/internal/infrastructure/kbsync"
	"github.com/kirillkom/estate-intake/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/estate-intake/internal/infrastructure/llm/vertex"
	"github.com/kirillkom/estate-intake/internal/infrastructure/queue/nats"
	"github.com/kirillkom/estate-intake/internal/infrastructure/repository/firestore"
	"github.com/kirillkom/estate-intake/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/estate-intake/internal/infrastructure/resilience"
	"github.com/kirillkom/estate-intake/internal/infrastructure/storage/gcs"
	"github.com/kirillkom/estate-intake/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/estate-intake/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/estate-intake/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Storage ports.ObjectStorage
	Tables  ports.TableStore
	Sync    ports.KnowledgeBaseSync
	// Landed is set only when KB_SYNC_BACKEND=nats.
	Landed ports.LandedEventSource

	Pipeline   *usecase.Pipeline
	Batch      *usecase.BatchProcessor
	Classifier *usecase.ClassifyTextUseCase
	IndexUC    *usecase.IndexLandedUseCase
	QueryUC    *usecase.QueryUseCase
	TablesUC   *usecase.TablesUseCase
	ExportUC   *usecase.ExportUseCase
	ResyncUC   *usecase.ResyncUseCase

	closers []func()
}

// New wires every backend selected by cfg. Pipeline metrics register on
// registerer; nil uses a private registry.
func New(ctx context.Context, cfg config.Config, registerer prometheus.Registerer, logger *slog.Logger) (*App, error) {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	policy, err := cfg.ClassificationPolicy()
	if err != nil {
		return nil, fmt.Errorf("load classification policy: %w", err)
	}
	batchMode, err := usecase.ParseBatchMode(cfg.BatchMode)
	if err != nil {
		return nil, fmt.Errorf("parse batch mode: %w", err)
	}

	pipelineMetrics := metrics.NewPipelineMetrics(registerer, "intake")
	executor := NewExecutor(cfg, logger, pipelineMetrics)

	oracle, closeOracle, err := NewOracle(ctx, cfg, executor)
	if err != nil {
		return nil, err
	}
	app.onClose(closeOracle)

	if app.Storage, err = app.openStorage(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if app.Tables, err = app.openTables(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.openSync(ctx, cfg, executor); err != nil {
		app.Close()
		return nil, err
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Timeout:            120 * time.Second,
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extractor := filetext.NewExtractor(logger)

	validator := usecase.NewValidator(policy, pipelineMetrics)
	app.Pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Extractor: extractor,
		Oracle:    oracle,
		Validator: validator,
		Storage:   app.Storage,
		Tables:    app.Tables,
		IDs:       usecase.RandomIDs{},
		Sync:      app.Sync,
		Observer:  pipelineMetrics,
		Logger:    logger,
	}, usecase.PipelineConfig{
		Gate: cfg.GateConfig(),
		Cost: cfg.CostModel(),
	})
	app.Batch = usecase.NewBatchProcessor(app.Pipeline, batchMode, logger)
	app.Classifier = usecase.NewClassifyTextUseCase(usecase.NewClassifyPrompter(oracle), validator)
	app.IndexUC = usecase.NewIndexLandedUseCase(app.Storage, extractor, chunker, embedder, vectorDB, logger)
	app.QueryUC = usecase.NewQueryUseCase(embedder, vectorDB, generator)
	app.TablesUC = usecase.NewTablesUseCase(app.Tables)
	app.ExportUC = usecase.NewExportUseCase(app.Tables, xlsx.NewRenderer())
	app.ResyncUC = usecase.NewResyncUseCase(app.Storage, app.Sync, logger)

	logger.Info("bootstrap.ready",
		"oracle", cfg.OracleBackend,
		"storage", cfg.StorageBackend,
		"tables", cfg.TableBackend,
		"kb_sync", cfg.KBSyncBackend,
		"strictness", policy.Strictness,
		"batch_mode", batchMode,
	)
	return app, nil
}

// ExecutorObserver receives retry and breaker events; the pipeline metrics
// implement it.
type ExecutorObserver interface {
	ObserveRetry(operation string, attempt int, err error)
	ObserveBreakerState(operation, from, to string)
}

// NewExecutor builds the shared retry and circuit breaker executor.
// observer may be nil.
func NewExecutor(cfg config.Config, logger *slog.Logger, observer ExecutorObserver) *resilience.Executor {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.OracleRetryMaxAttempts
	rc.Logger = logger
	if observer != nil {
		rc.OnRetry = observer.ObserveRetry
		rc.OnStateChange = observer.ObserveBreakerState
	}
	return resilience.NewExecutor(rc)
}

// NewOracle returns the generative backend selected by ORACLE_BACKEND and a
// function releasing it.
func NewOracle(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.Oracle, func(), error) {
	switch cfg.OracleBackend {
	case "", "ollama":
		client := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
			Timeout:            120 * time.Second,
			ResilienceExecutor: executor,
		})
		return ollama.NewOracle(client), func() {}, nil
	case "vertex":
		oracle, err := vertex.NewOracle(ctx, cfg.GCPProjectID, cfg.GCPRegion, cfg.VertexModel, executor)
		if err != nil {
			return nil, nil, fmt.Errorf("init vertex oracle: %w", err)
		}
		return oracle, func() { _ = oracle.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown ORACLE_BACKEND %q", cfg.OracleBackend)
	}
}

func (a *App) openStorage(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.StorageBackend {
	case "", "localfs":
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		return storage, nil
	case "gcs":
		storage, err := gcs.New(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		a.onClose(func() { _ = storage.Close() })
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

func (a *App) openTables(ctx context.Context, cfg config.Config) (ports.TableStore, error) {
	switch cfg.TableBackend {
	case "", "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.onClose(func() { _ = db.Close() })
		repo, err := postgres.NewTableRepository(db, cfg.TablePrefix)
		if err != nil {
			return nil, fmt.Errorf("init table store: %w", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, nil
	case "firestore":
		repo, err := firestore.New(ctx, cfg.GCPProjectID, cfg.TablePrefix)
		if err != nil {
			return nil, fmt.Errorf("init table store: %w", err)
		}
		a.onClose(func() { _ = repo.Close() })
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown TABLE_BACKEND %q", cfg.TableBackend)
	}
}

func (a *App) openSync(ctx context.Context, cfg config.Config, executor *resilience.Executor) error {
	switch cfg.KBSyncBackend {
	case "nats":
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             a.Logger,
		})
		if err != nil {
			return fmt.Errorf("init message queue: %w", err)
		}
		a.onClose(queue.Close)
		a.Sync = queue
		a.Landed = queue
	case "workflows":
		trigger, err := kbsync.NewWorkflowTrigger(ctx, cfg.GCPProjectID, cfg.WorkflowLocation, cfg.WorkflowID, executor, a.Logger)
		if err != nil {
			return fmt.Errorf("init workflow trigger: %w", err)
		}
		a.onClose(func() { _ = trigger.Close() })
		a.Sync = trigger
	case "", "none":
		a.Sync = kbsync.NewNoop(a.Logger)
	default:
		return fmt.Errorf("unknown KB_SYNC_BACKEND %q", cfg.KBSyncBackend)
	}
	return nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
