package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/commerce"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/connectors"
	"github.com/ternarybob/taberna/internal/handlers"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/jobs"
	"github.com/ternarybob/taberna/internal/jobs/worker"
	"github.com/ternarybob/taberna/internal/locks"
	"github.com/ternarybob/taberna/internal/queue"
	"github.com/ternarybob/taberna/internal/services/embeddings"
	"github.com/ternarybob/taberna/internal/services/events"
	"github.com/ternarybob/taberna/internal/services/indexer"
	"github.com/ternarybob/taberna/internal/services/llm"
	"github.com/ternarybob/taberna/internal/services/scheduler"
	"github.com/ternarybob/taberna/internal/services/search"
	"github.com/ternarybob/taberna/internal/services/status"
	badgerstore "github.com/ternarybob/taberna/internal/storage/badger"
	"github.com/ternarybob/taberna/internal/vectorstore"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage layer
	DB               *badgerstore.BadgerDB
	JobStorage       interfaces.JobStorage
	SyncStateStorage interfaces.SyncStateStorage

	// Core services
	LockService      interfaces.LockService
	LLMService       interfaces.LLMService
	EmbeddingService interfaces.EmbeddingService
	VectorStore      interfaces.VectorStore
	IndexerService   interfaces.IndexerService
	SearchService    interfaces.SearchService
	StatusService    *status.Service
	EventService     interfaces.EventService
	AccountStore     interfaces.AccountStore

	// Job execution
	QueueManager interfaces.QueueManager
	JobService   interfaces.JobService
	JobProcessor *worker.Processor
	Scheduler    *scheduler.Service

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	SearchHandler *handlers.SearchHandler
	JobHandler    *handlers.JobHandler
	StatusHandler *handlers.StatusHandler
	WSHandler     *handlers.WebSocketHandler

	cancelCtx context.CancelFunc
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Str("llm_provider", cfg.LLM.Provider).
		Str("vector_store", cfg.VectorStore.Provider).
		Int("accounts", len(cfg.Accounts)).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens Badger and builds the persistence services on top of it.
func (a *App) initStorage() error {
	db, err := badgerstore.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.JobStorage = badgerstore.NewJobStorage(db, a.Logger)
	a.SyncStateStorage = badgerstore.NewSyncStateStorage(db, a.Logger)

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices initializes all business services in dependency order.
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)
	a.LockService = locks.NewManager(a.Logger)
	a.AccountStore = commerce.NewStaticAccountStore(a.Config.Accounts, a.Logger)

	// Embedding provider: Gemini in production, deterministic offline
	// provider for development and tests.
	switch a.Config.LLM.Provider {
	case "offline":
		a.LLMService = llm.NewOfflineService(a.Config.LLM.EmbedDimension)
	default:
		service, err := llm.NewGeminiService(&a.Config.LLM, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize embedding provider: %w", err)
		}
		a.LLMService = service
	}
	a.EmbeddingService = embeddings.NewService(a.LLMService, a.Config, a.Logger)

	switch a.Config.VectorStore.Provider {
	case "memory":
		a.VectorStore = vectorstore.NewMemoryStore()
	default:
		a.VectorStore = vectorstore.NewHTTPClient(&a.Config.VectorStore, a.Logger)
	}

	commerceClient := commerce.NewClient(&a.Config.Commerce, a.Logger)
	connectorRegistry := connectors.NewRegistry(commerceClient, &a.Config.Commerce, a.Logger)

	a.IndexerService = indexer.NewService(
		connectorRegistry,
		a.EmbeddingService,
		a.VectorStore,
		a.LockService,
		a.SyncStateStorage,
		a.Logger,
	)

	a.SearchService = search.NewHybridService(
		a.EmbeddingService,
		a.VectorStore,
		a.LockService,
		&a.Config.Search,
		a.Logger,
	)

	a.StatusService = status.NewService(
		a.SyncStateStorage,
		a.JobStorage,
		&a.Config.Indexing,
		a.Logger,
	)

	queueManager, err := queue.NewManager(
		a.DB.Store().Badger(),
		a.Config.Queue.Name,
		common.Duration(a.Config.Queue.VisibilityTimeout, 0),
		a.Config.Queue.MaxReceive,
		a.Logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}
	a.QueueManager = queueManager

	a.JobService = jobs.NewManager(a.QueueManager, a.JobStorage, a.EventService, &a.Config.Jobs, a.Logger)

	jobWorkers := []interfaces.JobWorker{
		worker.NewIndexWorker(a.AccountStore, a.IndexerService, &a.Config.Jobs),
		worker.NewCleanupWorker(a.AccountStore, a.IndexerService, &a.Config.Jobs),
		worker.NewDeleteWorker(a.IndexerService, a.JobStorage, &a.Config.Jobs),
	}
	a.JobProcessor = worker.NewProcessor(
		a.QueueManager,
		a.JobStorage,
		a.EventService,
		a.LockService,
		jobWorkers,
		a.Config,
		a.Logger,
	)

	a.Scheduler = scheduler.NewService(a.JobService, a.SyncStateStorage, a.Config, a.Logger)

	return nil
}

// initHandlers wires the HTTP surface.
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.LLMService, a.Logger)
	a.SearchHandler = handlers.NewSearchHandler(a.SearchService, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.JobService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StatusService, a.LockService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
}

// Start launches the background components.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelCtx = cancel

	a.JobProcessor.Start(ctx)

	if a.Config.Scheduler.Enabled {
		if err := a.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	return nil
}

// Shutdown stops background components and closes storage.
func (a *App) Shutdown() {
	if a.Config.Scheduler.Enabled {
		a.Scheduler.Stop()
	}

	if a.cancelCtx != nil {
		a.cancelCtx()
	}
	a.JobProcessor.Stop()
	a.WSHandler.Close()

	if err := a.QueueManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close queue")
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close database")
	}

	a.Logger.Info().Msg("Application shutdown complete")
}
