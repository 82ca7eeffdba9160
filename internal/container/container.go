// Package container provides dependency injection and lifecycle management
// for the claims service.
package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/dispatcher"
	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/application/service"
	"github.com/garyjia/ai-claims/internal/application/workflow"
	"github.com/garyjia/ai-claims/internal/config"
	"github.com/garyjia/ai-claims/internal/infrastructure/export"
	"github.com/garyjia/ai-claims/internal/infrastructure/fulfillment"
	"github.com/garyjia/ai-claims/internal/infrastructure/metrics"
	"github.com/garyjia/ai-claims/internal/infrastructure/worker"
	"github.com/garyjia/ai-claims/pkg/database"
)

// shutdownTimeout bounds how long Close waits for running pipelines
const shutdownTimeout = 30 * time.Second

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB     *database.DB
	claimRepo port.ClaimRepository
	txManager port.TransactionManager

	// Infrastructure - External
	reference port.ReferenceDataProvider
	rootCause port.RootCauseAnalyzer
	notifier  port.Notifier
	journal   *fulfillment.Journal
	registry  *prometheus.Registry
	metrics   *metrics.ClaimMetrics
	exporter  *export.WorkbookWriter

	// Application
	dispatcher    dispatcher.Dispatcher
	engine        workflow.Engine
	claims        service.ClaimService
	notifications *service.NotificationService

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Claim store
// 2. External adapters (reference data, LLM, notifier, metrics)
// 3. Event dispatcher and workflow engine
// 4. Application services
// 5. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initStore(); err != nil {
		return fmt.Errorf("failed to initialize claim store: %w", err)
	}
	c.logger.Info("Claim store initialized", zap.String("driver", c.config.Database.Driver))

	if err := c.initExternal(); err != nil {
		c.closeStore()
		return fmt.Errorf("failed to initialize external adapters: %w", err)
	}
	c.logger.Info("External adapters initialized")

	c.initDispatcherAndWorkflow()
	c.logger.Info("Dispatcher and workflow engine initialized")

	if err := c.initServices(); err != nil {
		c.dispatcher.Close()
		c.closeStore()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initWorkers(); err != nil {
		c.dispatcher.Close()
		c.closeStore()
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started", zap.Strings("workers", c.workers.WorkerNames()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Step 1: Stop workers
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 2: Drain running pipelines
	if c.claims != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := c.claims.Shutdown(ctx); err != nil {
			c.logger.Error("Failed to drain claim pipelines", zap.Error(err))
			errs = append(errs, fmt.Errorf("shutdown claim service: %w", err))
		} else {
			c.logger.Info("Claim pipelines drained")
		}
		cancel()
	}

	// Step 3: Close dispatcher once no more events can be emitted
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.cancel != nil {
		c.cancel()
	}

	// Step 4: Close the store
	if err := c.closeStore(); err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) closeStore() error {
	if c.sqlDB == nil {
		return nil
	}
	err := c.sqlDB.Close()
	c.sqlDB = nil
	if err == nil {
		c.logger.Info("Database closed")
	}
	return err
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, healthy bool, message string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: message}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.claimRepo == nil:
		set("store", false, "not initialized")
	case c.sqlDB != nil:
		if err := c.sqlDB.Ping(); err != nil {
			set("store", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("store", true, config.DriverSQLite)
		}
	default:
		set("store", true, config.DriverMemory)
	}

	if c.workers != nil {
		set("workers", c.workers.IsRunning(), fmt.Sprintf("worker count: %d", len(c.workers.WorkerNames())))
	} else {
		set("workers", false, "not initialized")
	}

	if c.dispatcher != nil {
		set("dispatcher", true, "")
	} else {
		set("dispatcher", false, "not initialized")
	}

	if c.claims != nil {
		set("claim_service", true, "")
	} else {
		set("claim_service", false, "not initialized")
	}

	return status
}

func (c *Container) initStore() error {
	store, err := ProvideStore(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = store.SQL
	c.claimRepo = store.Claims
	c.txManager = store.TxManager
	return nil
}

func (c *Container) initExternal() error {
	reference, err := ProvideReferenceData(&c.config.Reference, c.logger)
	if err != nil {
		return err
	}
	c.reference = reference

	rootCause, err := ProvideRootCauseAnalyzer(&c.config.OpenAI, c.logger)
	if err != nil {
		return err
	}
	c.rootCause = rootCause

	c.notifier = ProvideNotifier(&c.config.Lark, c.logger)
	c.journal = fulfillment.NewJournal(c.logger)
	c.exporter = export.NewWorkbookWriter(c.logger)

	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.metrics = metrics.NewClaimMetrics(c.registry)
	return nil
}

func (c *Container) initDispatcherAndWorkflow() {
	c.dispatcher = ProvideDispatcher(c.logger)
	c.engine = ProvideEngine(&StoreBundle{Claims: c.claimRepo, TxManager: c.txManager}, c.dispatcher, &c.config.Pipeline)
}

func (c *Container) initServices() error {
	orchestrator := ProvidePipeline(&PipelineDeps{
		Claims:    c.claimRepo,
		RootCause: c.rootCause,
		Reference: c.reference,
		Metrics:   c.metrics,
		Logger:    c.logger,
	})

	claims, err := ProvideClaimService(&ServiceDeps{
		Engine:     c.engine,
		Claims:     c.claimRepo,
		Pipeline:   orchestrator,
		Journal:    c.journal,
		Notifier:   c.notifier,
		Dispatcher: c.dispatcher,
		Config:     &c.config.Pipeline,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.claims = claims

	c.notifications = service.NewNotificationService(c.claimRepo, c.notifier, kvLogger(c.logger, "notifications"))
	c.notifications.Register(c.dispatcher)
	c.metrics.Register(c.dispatcher)

	return nil
}

func (c *Container) initWorkers() error {
	c.workers = ProvideWorkers(&c.config.SLAMonitor, c.claimRepo, c.dispatcher, c.logger)

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// ClaimService returns the claim service.
func (c *Container) ClaimService() service.ClaimService {
	return c.claims
}

// ClaimRepository returns the claim store.
func (c *Container) ClaimRepository() port.ClaimRepository {
	return c.claimRepo
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Engine returns the workflow engine.
func (c *Container) Engine() workflow.Engine {
	return c.engine
}

// Exporter returns the XLSX workbook writer.
func (c *Container) Exporter() *export.WorkbookWriter {
	return c.exporter
}

// Journal returns the fulfillment journal.
func (c *Container) Journal() *fulfillment.Journal {
	return c.journal
}

// Registry returns the prometheus registry holding the claim metrics.
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
