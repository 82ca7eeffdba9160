package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/garyjia/ai-claims/internal/application/dispatcher"
	"github.com/garyjia/ai-claims/internal/domain/event"
)

// ClaimMetrics exposes counters and histograms for the claim pipeline.
// A nil *ClaimMetrics is safe to use and records nothing.
type ClaimMetrics struct {
	stageDuration   *prometheus.HistogramVec
	pipelineLatency prometheus.Histogram
	routesTotal     *prometheus.CounterVec
	eventsTotal     *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	resolvedValue   *prometheus.CounterVec
}

// NewClaimMetrics creates and registers the claim metrics on reg;
// nil registers on the default registry
func NewClaimMetrics(reg prometheus.Registerer) *ClaimMetrics {
	m := &ClaimMetrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "claims",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each analyzer stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "outcome"}),
		pipelineLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "claims",
			Subsystem: "pipeline",
			Name:      "processing_seconds",
			Help:      "End-to-end pipeline processing time",
			Buckets:   prometheus.DefBuckets,
		}),
		routesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "pipeline",
			Name:      "routes_total",
			Help:      "Routing outcomes of processed claims",
		}, []string{"route"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "lifecycle",
			Name:      "events_total",
			Help:      "Lifecycle events by type",
		}, []string{"type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Status transitions by source and target status",
		}, []string{"from", "to"}),
		resolvedValue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "lifecycle",
			Name:      "resolved_value_total",
			Help:      "Financial impact of resolved claims",
		}, []string{"resolution_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.stageDuration, m.pipelineLatency, m.routesTotal, m.eventsTotal, m.transitions, m.resolvedValue)
	return m
}

// ObserveStage implements pipeline.StageObserver
func (m *ClaimMetrics) ObserveStage(stage string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.stageDuration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}

// Register subscribes the metrics to every lifecycle event type
func (m *ClaimMetrics) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{
		event.TypeClaimSubmitted,
		event.TypeStatusChanged,
		event.TypeClaimEscalated,
		event.TypeReviewRequested,
		event.TypeClaimResolved,
		event.TypeResolutionFailed,
		event.TypeSLABreached,
		event.TypeProcessingComplete,
	} {
		d.SubscribeNamed(t, "metrics", m.HandleEvent)
	}
}

// HandleEvent records one lifecycle event
func (m *ClaimMetrics) HandleEvent(ctx context.Context, evt *event.Event) error {
	if m == nil {
		return nil
	}

	m.eventsTotal.WithLabelValues(string(evt.Type)).Inc()

	switch evt.Type {
	case event.TypeStatusChanged:
		m.transitions.WithLabelValues(
			evt.GetPayloadString(event.KeyFromStatus),
			evt.GetPayloadString(event.KeyToStatus),
		).Inc()
	case event.TypeProcessingComplete:
		route := evt.GetPayloadString("route")
		if route == "" {
			route = "failed"
		}
		m.routesTotal.WithLabelValues(route).Inc()
		if ms := evt.GetPayloadFloat("processing_time_ms"); ms > 0 {
			m.pipelineLatency.Observe(ms / 1000)
		}
	case event.TypeClaimResolved:
		m.resolvedValue.WithLabelValues(evt.GetPayloadString("resolution_type")).
			Add(evt.GetPayloadFloat("financial_impact"))
	}
	return nil
}
