package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/application/service"
	"github.com/garyjia/ai-claims/internal/domain/entity"
	domainwf "github.com/garyjia/ai-claims/internal/domain/workflow"
)

type mockClaimService struct {
	submitFn       func(ctx context.Context, req service.SubmitRequest) (*entity.Claim, *service.Task, error)
	getFn          func(ctx context.Context, id string) (*entity.Claim, error)
	listFn         func(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error)
	updateStatusFn func(ctx context.Context, id string, status entity.ClaimStatus, actor string) (*entity.Claim, error)
	approveFn      func(ctx context.Context, id, actor string, input service.ResolutionInput) (*entity.Claim, error)
	rejectFn       func(ctx context.Context, id, actor, reason string) (*entity.Claim, error)
	assignFn       func(ctx context.Context, id, assignee, actor string) (*entity.Claim, error)
	executeFn      func(ctx context.Context, id string) (*entity.Claim, error)
	statisticsFn   func(ctx context.Context) (*service.Statistics, error)
}

func (m *mockClaimService) Submit(ctx context.Context, req service.SubmitRequest) (*entity.Claim, *service.Task, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return nil, nil, errors.New("not implemented")
}

func (m *mockClaimService) Get(ctx context.Context, id string) (*entity.Claim, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, service.ErrClaimNotFound
}

func (m *mockClaimService) List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockClaimService) UpdateStatus(ctx context.Context, id string, status entity.ClaimStatus, actor string) (*entity.Claim, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status, actor)
	}
	return nil, service.ErrClaimNotFound
}

func (m *mockClaimService) Approve(ctx context.Context, id, actor string, input service.ResolutionInput) (*entity.Claim, error) {
	if m.approveFn != nil {
		return m.approveFn(ctx, id, actor, input)
	}
	return nil, service.ErrClaimNotFound
}

func (m *mockClaimService) Reject(ctx context.Context, id, actor, reason string) (*entity.Claim, error) {
	if m.rejectFn != nil {
		return m.rejectFn(ctx, id, actor, reason)
	}
	return nil, service.ErrClaimNotFound
}

func (m *mockClaimService) Assign(ctx context.Context, id, assignee, actor string) (*entity.Claim, error) {
	if m.assignFn != nil {
		return m.assignFn(ctx, id, assignee, actor)
	}
	return nil, service.ErrClaimNotFound
}

func (m *mockClaimService) ExecuteResolution(ctx context.Context, id string) (*entity.Claim, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, id)
	}
	return nil, service.ErrClaimNotFound
}

func (m *mockClaimService) Statistics(ctx context.Context) (*service.Statistics, error) {
	if m.statisticsFn != nil {
		return m.statisticsFn(ctx)
	}
	return service.ComputeStatistics(nil), nil
}

func (m *mockClaimService) Shutdown(ctx context.Context) error {
	return nil
}

type mockExporter struct {
	claims []*entity.Claim
	stats  *service.Statistics
	err    error
}

func (m *mockExporter) Write(w io.Writer, claims []*entity.Claim, stats *service.Statistics) error {
	m.claims = claims
	m.stats = stats
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, "workbook")
	return err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(svc *mockClaimService, exporter Exporter) *Server {
	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode
	cfg.Version = "test"
	return NewServer(cfg, svc, exporter, prometheus.NewRegistry(), nil)
}

func doRequest(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decodeClaim(t *testing.T, env envelope) *entity.Claim {
	t.Helper()
	var claim entity.Claim
	require.NoError(t, json.Unmarshal(env.Data, &claim))
	return &claim
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(&mockClaimService{}, nil)

	w, env := doRequest(t, s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "claims_test_total", Help: "test counter"})
	reg.MustRegister(counter)
	counter.Inc()

	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode
	s := NewServer(cfg, &mockClaimService{}, nil, reg, nil)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "claims_test_total 1")
}

func TestSubmitClaim(t *testing.T) {
	var got service.SubmitRequest
	svc := &mockClaimService{
		submitFn: func(ctx context.Context, req service.SubmitRequest) (*entity.Claim, *service.Task, error) {
			got = req
			return &entity.Claim{ID: "CLM-1", CustomerID: req.CustomerID, Status: entity.StatusSubmitted}, nil, nil
		},
	}
	s := newTestServer(svc, nil)

	body := `{"customer_id":"ACME-AUTO-001","order_number":"ORD-1","category":"defective","estimated_value":75000,"images":["a.jpg"]}`
	w, env := doRequest(t, s, http.MethodPost, "/api/claims", body)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "CLM-1", decodeClaim(t, env).ID)
	assert.Equal(t, entity.CategoryDefective, got.Category)
	assert.Equal(t, 75000.0, got.EstimatedValue)
	assert.Equal(t, []string{"a.jpg"}, got.Images)
}

func TestSubmitClaim_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{
			name:     "missing customer",
			body:     `{"category":"defective"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "negative value",
			body:     `{"customer_id":"C1","category":"defective","estimated_value":-1}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown category",
			body:     `{"customer_id":"C1","category":"lost"}`,
			err:      fmt.Errorf("%w: unknown category %q", service.ErrInvalidClaim, "lost"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "service closed",
			body:     `{"customer_id":"C1","category":"defective"}`,
			err:      service.ErrServiceClosed,
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockClaimService{
				submitFn: func(ctx context.Context, req service.SubmitRequest) (*entity.Claim, *service.Task, error) {
					return nil, nil, tt.err
				},
			}
			s := newTestServer(svc, nil)

			w, env := doRequest(t, s, http.MethodPost, "/api/claims", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestListClaims_FilterAndPaging(t *testing.T) {
	var gotFilter port.ClaimFilter
	claims := make([]*entity.Claim, 5)
	for i := range claims {
		claims[i] = &entity.Claim{ID: fmt.Sprintf("CLM-%d", i)}
	}
	svc := &mockClaimService{
		listFn: func(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error) {
			gotFilter = filter
			return claims, nil
		},
	}
	s := newTestServer(svc, nil)

	w, env := doRequest(t, s, http.MethodGet, "/api/claims?status=pending_approval&customer_id=C1&limit=2&offset=3", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.StatusPendingApproval, gotFilter.Status)
	assert.Equal(t, "C1", gotFilter.CustomerID)

	var page ClaimListResponse
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Claims, 2)
	assert.Equal(t, "CLM-3", page.Claims[0].ID)
	assert.Equal(t, "CLM-4", page.Claims[1].ID)

	_, env = doRequest(t, s, http.MethodGet, "/api/claims?offset=10", "")
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Empty(t, page.Claims)
	assert.Equal(t, defaultLimit, page.Limit)
}

func TestListClaims_InvalidFilter(t *testing.T) {
	s := newTestServer(&mockClaimService{}, nil)

	for _, path := range []string{"/api/claims?status=closed", "/api/claims?category=lost", "/api/claims?limit=abc"} {
		w, env := doRequest(t, s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.False(t, env.Success, path)
	}
}

func TestGetClaim(t *testing.T) {
	svc := &mockClaimService{
		getFn: func(ctx context.Context, id string) (*entity.Claim, error) {
			if id == "CLM-1" {
				return &entity.Claim{ID: id}, nil
			}
			return nil, fmt.Errorf("get claim %s: %w", id, service.ErrClaimNotFound)
		},
	}
	s := newTestServer(svc, nil)

	w, env := doRequest(t, s, http.MethodGet, "/api/claims/CLM-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CLM-1", decodeClaim(t, env).ID)

	w, env = doRequest(t, s, http.MethodGet, "/api/claims/CLM-404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, env.Error, "claim not found")
}

func TestUpdateStatus(t *testing.T) {
	var gotActor string
	svc := &mockClaimService{
		updateStatusFn: func(ctx context.Context, id string, status entity.ClaimStatus, actor string) (*entity.Claim, error) {
			gotActor = actor
			if status == entity.StatusResolved {
				return nil, fmt.Errorf("set status: %w", domainwf.ErrInvalidTransition)
			}
			return &entity.Claim{ID: id, Status: status}, nil
		},
	}
	s := newTestServer(svc, nil)

	w, env := doRequest(t, s, http.MethodPut, "/api/claims/CLM-1/status", `{"status":"escalated"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.StatusEscalated, decodeClaim(t, env).Status)
	assert.Equal(t, defaultActor, gotActor)

	w, _ = doRequest(t, s, http.MethodPut, "/api/claims/CLM-1/status", `{"status":"resolved","actor":"ops-1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ops-1", gotActor)

	w, _ = doRequest(t, s, http.MethodPut, "/api/claims/CLM-1/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApproveClaim(t *testing.T) {
	var gotInput service.ResolutionInput
	svc := &mockClaimService{
		approveFn: func(ctx context.Context, id, actor string, input service.ResolutionInput) (*entity.Claim, error) {
			gotInput = input
			claim := &entity.Claim{ID: id, Status: entity.StatusApproved, Resolution: &entity.Resolution{Type: input.Type, ApprovedBy: actor}}
			switch input.Type {
			case entity.ResolutionPartialCredit:
				return claim, fmt.Errorf("%w: amount required", service.ErrResolutionFailed)
			case entity.ResolutionType("voucher"):
				return nil, fmt.Errorf("%w: unknown type", service.ErrInvalidResolution)
			}
			claim.Status = entity.StatusResolved
			return claim, nil
		},
	}
	s := newTestServer(svc, nil)

	w, env := doRequest(t, s, http.MethodPost, "/api/claims/CLM-1/approve", `{"type":"refund","amount":120.5,"actor":"reviewer-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	claim := decodeClaim(t, env)
	assert.Equal(t, entity.StatusResolved, claim.Status)
	assert.Equal(t, "reviewer-1", claim.Resolution.ApprovedBy)
	require.NotNil(t, gotInput.Amount)
	assert.Equal(t, 120.5, *gotInput.Amount)

	w, env = doRequest(t, s, http.MethodPost, "/api/claims/CLM-1/approve", `{"type":"partial_credit"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "resolution execution failed")
	assert.Equal(t, entity.StatusApproved, decodeClaim(t, env).Status)

	w, _ = doRequest(t, s, http.MethodPost, "/api/claims/CLM-1/approve", `{"type":"voucher"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRejectClaim_WithoutBody(t *testing.T) {
	var gotActor, gotReason string
	svc := &mockClaimService{
		rejectFn: func(ctx context.Context, id, actor, reason string) (*entity.Claim, error) {
			gotActor, gotReason = actor, reason
			return &entity.Claim{ID: id, Status: entity.StatusRejected}, nil
		},
	}
	s := newTestServer(svc, nil)

	w, _ := doRequest(t, s, http.MethodPost, "/api/claims/CLM-1/reject", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultActor, gotActor)
	assert.Empty(t, gotReason)

	w, _ = doRequest(t, s, http.MethodPost, "/api/claims/CLM-1/reject", `{"reason":"out of warranty"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "out of warranty", gotReason)
}

func TestAssignClaim(t *testing.T) {
	svc := &mockClaimService{
		assignFn: func(ctx context.Context, id, assignee, actor string) (*entity.Claim, error) {
			if assignee == "" {
				return nil, fmt.Errorf("%w: assignee is required", service.ErrInvalidClaim)
			}
			return &entity.Claim{ID: id, AssignedTo: assignee}, nil
		},
	}
	s := newTestServer(svc, nil)

	w, env := doRequest(t, s, http.MethodPost, "/api/claims/CLM-1/assign", `{"assignee":"reviewer-7"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reviewer-7", decodeClaim(t, env).AssignedTo)

	w, _ = doRequest(t, s, http.MethodPost, "/api/claims/CLM-1/assign", `{"assignee":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecuteResolution(t *testing.T) {
	svc := &mockClaimService{
		executeFn: func(ctx context.Context, id string) (*entity.Claim, error) {
			if id == "CLM-GUARD" {
				return nil, fmt.Errorf("execute: %w", domainwf.ErrGuardFailed)
			}
			return &entity.Claim{ID: id, Status: entity.StatusResolved}, nil
		},
	}
	s := newTestServer(svc, nil)

	w, env := doRequest(t, s, http.MethodPost, "/api/claims/CLM-1/execute", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.StatusResolved, decodeClaim(t, env).Status)

	w, _ = doRequest(t, s, http.MethodPost, "/api/claims/CLM-GUARD/execute", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStatistics(t *testing.T) {
	svc := &mockClaimService{
		statisticsFn: func(ctx context.Context) (*service.Statistics, error) {
			return service.ComputeStatistics([]*entity.Claim{
				{ID: "CLM-1", Status: entity.StatusSubmitted, Category: entity.CategoryDefective, EstimatedValue: 100},
			}), nil
		},
	}
	s := newTestServer(svc, nil)

	w, env := doRequest(t, s, http.MethodGet, "/api/claims/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats service.Statistics
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 100.0, stats.TotalFinancialImpact)
	assert.Equal(t, 1, stats.ByStatus[entity.StatusSubmitted])
}

func TestExportClaims(t *testing.T) {
	claims := []*entity.Claim{
		{ID: "CLM-1", Category: entity.CategoryDefective, Status: entity.StatusResolved},
	}
	var gotFilter port.ClaimFilter
	svc := &mockClaimService{
		listFn: func(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error) {
			gotFilter = filter
			return claims, nil
		},
	}
	exporter := &mockExporter{}
	s := newTestServer(svc, exporter)

	w, _ := doRequest(t, s, http.MethodGet, "/api/claims/export?category=defective", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=")
	assert.Equal(t, "workbook", w.Body.String())
	assert.Equal(t, entity.CategoryDefective, gotFilter.Category)
	assert.Len(t, exporter.claims, 1)
	require.NotNil(t, exporter.stats)
	assert.Equal(t, 1, exporter.stats.Total)
}

func TestExportClaims_WriterError(t *testing.T) {
	s := newTestServer(&mockClaimService{}, &mockExporter{err: errors.New("disk full")})

	w, env := doRequest(t, s, http.MethodGet, "/api/claims/export", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", env.Error)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrClaimNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", domainwf.ErrInvalidTransition), http.StatusConflict},
		{domainwf.ErrGuardFailed, http.StatusConflict},
		{service.ErrInvalidClaim, http.StatusBadRequest},
		{service.ErrInvalidResolution, http.StatusBadRequest},
		{domainwf.ErrInvalidState, http.StatusBadRequest},
		{service.ErrResolutionFailed, http.StatusAccepted},
		{service.ErrServiceClosed, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&mockClaimService{}, nil)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/claims", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
