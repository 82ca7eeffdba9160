package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-claims/internal/application/dispatcher"
	"github.com/garyjia/ai-claims/internal/domain/event"
)

func TestClaimMetrics_ObserveStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClaimMetrics(reg)

	m.ObserveStage("triage", 20*time.Millisecond, nil)
	m.ObserveStage("root_cause", 5*time.Millisecond, errors.New("timeout"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
}

func TestClaimMetrics_HandleEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClaimMetrics(reg)
	ctx := context.Background()

	require.NoError(t, m.HandleEvent(ctx, event.NewEvent(event.TypeProcessingComplete, "CLM-1", map[string]interface{}{
		"success":            true,
		"route":              "escalate",
		"processing_time_ms": int64(120),
	})))
	require.NoError(t, m.HandleEvent(ctx, event.NewEvent(event.TypeProcessingComplete, "CLM-2", map[string]interface{}{
		"success":      false,
		event.KeyError: "boom",
	})))
	require.NoError(t, m.HandleEvent(ctx, event.NewEvent(event.TypeStatusChanged, "CLM-1", map[string]interface{}{
		event.KeyFromStatus: "submitted",
		event.KeyToStatus:   "triaged",
	})))
	require.NoError(t, m.HandleEvent(ctx, event.NewEvent(event.TypeClaimResolved, "CLM-3", map[string]interface{}{
		"resolution_type":  "refund",
		"financial_impact": 1500.0,
	})))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.routesTotal.WithLabelValues("escalate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.routesTotal.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues(string(event.TypeProcessingComplete))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("submitted", "triaged")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(m.resolvedValue.WithLabelValues("refund")))
}

func TestClaimMetrics_RegisterWithDispatcher(t *testing.T) {
	m := NewClaimMetrics(prometheus.NewRegistry())
	d := dispatcher.NewDispatcher()
	defer d.Close()

	m.Register(d)
	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeSLABreached, "CLM-1", nil)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues(string(event.TypeSLABreached))))
	assert.Len(t, d.ListHandlers(event.TypeClaimSubmitted), 1)
}

func TestClaimMetrics_NilSafe(t *testing.T) {
	var m *ClaimMetrics
	m.ObserveStage("triage", time.Millisecond, nil)
	assert.NoError(t, m.HandleEvent(context.Background(), event.NewEvent(event.TypeClaimSubmitted, "CLM-1", nil)))
}
