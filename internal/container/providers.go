package container

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/ai"
	"github.com/garyjia/ai-claims/internal/application/dispatcher"
	"github.com/garyjia/ai-claims/internal/application/pipeline"
	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/application/service"
	"github.com/garyjia/ai-claims/internal/application/workflow"
	"github.com/garyjia/ai-claims/internal/config"
	"github.com/garyjia/ai-claims/internal/infrastructure/external/erp"
	infraLark "github.com/garyjia/ai-claims/internal/infrastructure/external/lark"
	"github.com/garyjia/ai-claims/internal/infrastructure/external/openai"
	"github.com/garyjia/ai-claims/internal/infrastructure/fulfillment"
	"github.com/garyjia/ai-claims/internal/infrastructure/metrics"
	"github.com/garyjia/ai-claims/internal/infrastructure/notification"
	"github.com/garyjia/ai-claims/internal/infrastructure/persistence/memory"
	"github.com/garyjia/ai-claims/internal/infrastructure/persistence/repository"
	"github.com/garyjia/ai-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/ai-claims/internal/infrastructure/worker"
	"github.com/garyjia/ai-claims/pkg/database"
	"github.com/garyjia/ai-claims/pkg/utils"
)

// StoreBundle holds the claim store and its transaction manager.
// SQL is nil for the memory driver.
type StoreBundle struct {
	SQL       *database.DB
	Claims    port.ClaimRepository
	TxManager port.TransactionManager
}

// ProvideStore opens the configured claim store.
// The sqlite driver runs any pending migrations before returning.
func ProvideStore(cfg *config.DatabaseConfig, logger *zap.Logger) (*StoreBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.Driver == config.DriverMemory {
		logger.Info("Using in-memory claim store")
		return &StoreBundle{
			Claims:    memory.NewClaimStore(),
			TxManager: memory.TxManager{},
		}, nil
	}

	if cfg.Path != database.MemoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(sqlite.Migrations, sqlite.MigrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	txDB := sqlite.NewDB(db.DB, logger)
	return &StoreBundle{
		SQL:       db,
		Claims:    repository.NewClaimRepository(txDB, logger),
		TxManager: txDB,
	}, nil
}

// ProvideReferenceData loads the ERP fixture behind a TTL cache.
// It returns nil when no fixture is configured.
func ProvideReferenceData(cfg *config.ReferenceConfig, logger *zap.Logger) (port.ReferenceDataProvider, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, nil
	}

	fixtures, err := erp.LoadFixtureProvider(cfg.Path, logger)
	if err != nil {
		return nil, err
	}
	if cfg.CacheTTL <= 0 {
		return fixtures, nil
	}
	return erp.NewCachedProvider(fixtures, cfg.CacheTTL, logger), nil
}

// ProvideNotifier returns the Lark notifier when enabled and a log notifier otherwise
func ProvideNotifier(cfg *config.LarkConfig, logger *zap.Logger) port.Notifier {
	if cfg == nil || !cfg.Enabled {
		return notification.NewLogNotifier(logger)
	}

	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:      cfg.AppID,
		AppSecret:  cfg.AppSecret,
		APITimeout: cfg.APITimeout,
	}, logger)

	return infraLark.NewNotifier(infraLark.NewMessageAPI(client, logger), infraLark.NotifierConfig{
		ReviewerChatID:    cfg.ReviewerChatID,
		CustomerChatID:    cfg.CustomerChatID,
		EscalationChatIDs: cfg.EscalationChatIDs,
	}, logger)
}

// ProvideRootCauseAnalyzer returns the rule-based analyzer, or the LLM
// analyzer falling back to it when OpenAI is enabled
func ProvideRootCauseAnalyzer(cfg *config.OpenAIConfig, logger *zap.Logger) (port.RootCauseAnalyzer, error) {
	rules := ai.NewRootCauseAnalyzer(logger)
	if cfg == nil || !cfg.Enabled {
		return rules, nil
	}

	prompts := openai.DefaultPrompts()
	if cfg.PromptsPath != "" {
		loaded, err := openai.LoadPrompts(cfg.PromptsPath)
		if err != nil {
			return nil, err
		}
		prompts = loaded
	}

	llmCfg := openai.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Temperature:       cfg.Temperature,
		MaxTokens:         cfg.MaxTokens,
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}
	return openai.NewRootCauseAnalyzer(openai.NewClient(llmCfg), llmCfg, logger,
		openai.WithFallback(rules),
		openai.WithPrompts(prompts),
	), nil
}

// ProvideDispatcher creates the event dispatcher
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(kvLogger(logger, "dispatcher")))
}

// ProvideEngine creates the workflow engine that owns every claim write
func ProvideEngine(store *StoreBundle, d dispatcher.Dispatcher, cfg *config.PipelineConfig) workflow.Engine {
	return workflow.NewEngine(store.Claims, store.TxManager,
		workflow.WithDispatcher(d),
		workflow.WithStrictTransitions(cfg.StrictTransitions),
	)
}

// PipelineDeps holds the dependencies of the stage orchestrator
type PipelineDeps struct {
	Claims    port.ClaimRepository
	RootCause port.RootCauseAnalyzer
	Reference port.ReferenceDataProvider
	Metrics   *metrics.ClaimMetrics
	Logger    *zap.Logger
}

// ProvidePipeline wires the four stage analyzers into an orchestrator
func ProvidePipeline(deps *PipelineDeps) *pipeline.Orchestrator {
	opts := []pipeline.Option{
		pipeline.WithLogger(kvLogger(deps.Logger, "pipeline")),
		pipeline.WithObserver(deps.Metrics),
	}
	if deps.Reference != nil {
		opts = append(opts, pipeline.WithReferenceData(deps.Reference))
	}

	return pipeline.NewOrchestrator(
		ai.NewTriageAnalyzer(deps.Claims, deps.Logger),
		deps.RootCause,
		ai.NewResolutionAnalyzer(),
		ai.NewEscalationAnalyzer(),
		opts...,
	)
}

// ServiceDeps holds the dependencies of the claim service
type ServiceDeps struct {
	Engine     workflow.Engine
	Claims     port.ClaimRepository
	Pipeline   service.PipelineRunner
	Journal    *fulfillment.Journal
	Notifier   port.Notifier
	Dispatcher dispatcher.Dispatcher
	Config     *config.PipelineConfig
	Logger     *zap.Logger
}

// ProvideClaimService creates the claim service with routing thresholds
// and processing limits taken from the pipeline config
func ProvideClaimService(deps *ServiceDeps) (service.ClaimService, error) {
	thresholds := ai.RoutingThresholds{
		AutoApproveConfidence: deps.Config.AutoApproveConfidence,
		AutoApproveMaxValue:   deps.Config.AutoApproveMaxValue,
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid routing thresholds: %w", err)
	}

	return service.NewClaimService(
		deps.Engine,
		deps.Claims,
		deps.Pipeline,
		ai.NewRoutingPolicy(thresholds),
		service.NewResolutionExecutor(deps.Journal.Handlers()),
		deps.Notifier,
		kvLogger(deps.Logger, "claims"),
		service.WithDispatcher(deps.Dispatcher),
		service.WithMaxConcurrent(deps.Config.MaxConcurrent),
		service.WithPipelineTimeout(deps.Config.Timeout),
	), nil
}

// ProvideWorkers registers the background workers enabled by cfg
func ProvideWorkers(cfg *config.SLAMonitorConfig, claims port.ClaimRepository, d dispatcher.Dispatcher, logger *zap.Logger) *worker.WorkerManager {
	manager := worker.NewWorkerManager(logger)
	if cfg != nil && cfg.Enabled {
		manager.Register(worker.NewSLAMonitor(cfg.Interval, claims, d, logger))
	}
	return manager
}

func kvLogger(logger *zap.Logger, name string) *utils.KVLogger {
	return utils.NewKVLogger(logger.Named(name))
}
