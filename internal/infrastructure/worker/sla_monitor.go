package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
	"github.com/garyjia/ai-claims/internal/domain/event"
	domainwf "github.com/garyjia/ai-claims/internal/domain/workflow"
)

// ClaimLister lists stored claims
type ClaimLister interface {
	List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error)
}

// EventPublisher delivers lifecycle events
type EventPublisher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}

// SLAMonitor periodically reports open claims past their SLA deadline.
// Each claim is reported at most once per process.
type SLAMonitor struct {
	interval  time.Duration
	claims    ClaimLister
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	reported  map[string]bool
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// SLAMonitorOption configures the monitor
type SLAMonitorOption func(*SLAMonitor)

// WithMonitorClock overrides the time source
func WithMonitorClock(now func() time.Time) SLAMonitorOption {
	return func(m *SLAMonitor) {
		m.now = now
	}
}

// NewSLAMonitor creates a monitor that scans every interval
func NewSLAMonitor(interval time.Duration, claims ClaimLister, publisher EventPublisher, logger *zap.Logger, opts ...SLAMonitorOption) *SLAMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SLAMonitor{
		interval:  interval,
		claims:    claims,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		reported:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the scan loop
func (m *SLAMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		return fmt.Errorf("sla monitor already running")
	}
	if m.interval <= 0 {
		return fmt.Errorf("sla monitor interval must be positive")
	}

	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.isRunning = true

	m.logger.Info("SLAMonitor started", zap.Duration("interval", m.interval))
	go m.loop(loopCtx, m.done)
	return nil
}

// Stop ends the scan loop and waits for an in-flight scan
func (m *SLAMonitor) Stop() error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done

	m.logger.Info("SLAMonitor stopped")
	return nil
}

// Name returns the worker name for identification
func (m *SLAMonitor) Name() string {
	return "SLAMonitor"
}

func (m *SLAMonitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Scan(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("SLA scan failed", zap.Error(err))
			}
		}
	}
}

// Scan reports every non-terminal claim whose deadline has passed and that
// was not reported before. It returns the number of new breaches.
func (m *SLAMonitor) Scan(ctx context.Context) (int, error) {
	claims, err := m.claims.List(ctx, port.ClaimFilter{})
	if err != nil {
		return 0, fmt.Errorf("list claims: %w", err)
	}

	now := m.now()
	breaches := 0
	for _, claim := range claims {
		if domainwf.State(claim.Status).IsTerminal() || claim.SLADeadline.IsZero() || !now.After(claim.SLADeadline) {
			continue
		}
		if !m.markReported(claim.ID) {
			continue
		}

		evt := event.NewEvent(event.TypeSLABreached, claim.ID, map[string]interface{}{
			"priority":      string(claim.Priority),
			"status":        string(claim.Status),
			"sla_deadline":  claim.SLADeadline.UTC().Format(time.RFC3339),
			"overdue_hours": now.Sub(claim.SLADeadline).Hours(),
		})
		if err := m.publisher.Dispatch(ctx, evt); err != nil {
			m.logger.Error("Failed to publish SLA breach",
				zap.String("claim_id", claim.ID),
				zap.Error(err))
		}

		m.logger.Info("SLA breached",
			zap.String("claim_id", claim.ID),
			zap.String("priority", string(claim.Priority)),
			zap.Time("sla_deadline", claim.SLADeadline))
		breaches++
	}
	return breaches, nil
}

func (m *SLAMonitor) markReported(claimID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reported[claimID] {
		return false
	}
	m.reported[claimID] = true
	return true
}
