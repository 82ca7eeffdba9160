package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/application/service"
	"github.com/garyjia/ai-claims/internal/domain/entity"
	domainwf "github.com/garyjia/ai-claims/internal/domain/workflow"
)

const (
	defaultActor = "operator"
	defaultLimit = 20
	maxLimit     = 100

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Exporter renders claims and their statistics as a workbook
type Exporter interface {
	Write(w io.Writer, claims []*entity.Claim, stats *service.Statistics) error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	claimService service.ClaimService
	exporter     Exporter
	logger       Logger
	version      string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(claimService service.ClaimService, exporter Exporter, logger Logger, version string) *Handlers {
	return &Handlers{
		claimService: claimService,
		exporter:     exporter,
		logger:       logger,
		version:      version,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitClaimRequest is the body of POST /api/claims
type SubmitClaimRequest struct {
	CustomerID     string   `json:"customer_id" binding:"required"`
	OrderNumber    string   `json:"order_number"`
	ProductID      string   `json:"product_id"`
	Description    string   `json:"description"`
	Category       string   `json:"category" binding:"required"`
	Images         []string `json:"images"`
	Attachments    []string `json:"attachments"`
	EstimatedValue float64  `json:"estimated_value" binding:"gte=0"`
	Tags           []string `json:"tags"`
	Source         string   `json:"source"`
}

// ListClaimsRequest represents query parameters for listing claims
type ListClaimsRequest struct {
	Status      string `form:"status"`
	Category    string `form:"category"`
	CustomerID  string `form:"customer_id"`
	OrderNumber string `form:"order_number"`
	ProductID   string `form:"product_id"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// ClaimListResponse is one page of claims
type ClaimListResponse struct {
	Claims []*entity.Claim `json:"claims"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// UpdateStatusRequest is the body of PUT /api/claims/:id/status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Actor  string `json:"actor"`
}

// ApproveRequest is the body of POST /api/claims/:id/approve
type ApproveRequest struct {
	Type        string   `json:"type" binding:"required"`
	Amount      *float64 `json:"amount"`
	Description string   `json:"description"`
	Actor       string   `json:"actor"`
}

// RejectRequest is the body of POST /api/claims/:id/reject
type RejectRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

// AssignRequest is the body of POST /api/claims/:id/assign
type AssignRequest struct {
	Assignee string `json:"assignee"`
	Actor    string `json:"actor"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// SubmitClaim handles POST /api/claims
func (h *Handlers) SubmitClaim(c *gin.Context) {
	var req SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid claim payload", err)
		return
	}

	claim, _, err := h.claimService.Submit(c.Request.Context(), service.SubmitRequest{
		CustomerID:     req.CustomerID,
		OrderNumber:    req.OrderNumber,
		ProductID:      req.ProductID,
		Description:    req.Description,
		Category:       entity.Category(req.Category),
		Images:         req.Images,
		Attachments:    req.Attachments,
		EstimatedValue: req.EstimatedValue,
		Tags:           req.Tags,
		Source:         req.Source,
	})
	if err != nil {
		h.writeError(c, "Failed to submit claim", err)
		return
	}

	h.logger.Info("Claim submitted", "claim_id", claim.ID, "customer_id", claim.CustomerID)
	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data:    claim,
	})
}

// ListClaims handles GET /api/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	req, ok := h.bindListQuery(c)
	if !ok {
		return
	}

	claims, err := h.claimService.List(c.Request.Context(), req.filter())
	if err != nil {
		h.writeError(c, "Failed to list claims", err)
		return
	}

	if req.Limit <= 0 || req.Limit > maxLimit {
		req.Limit = defaultLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	page := []*entity.Claim{}
	if req.Offset < len(claims) {
		end := req.Offset + req.Limit
		if end > len(claims) {
			end = len(claims)
		}
		page = claims[req.Offset:end]
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ClaimListResponse{
			Claims: page,
			Total:  len(claims),
			Limit:  req.Limit,
			Offset: req.Offset,
		},
	})
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	claim, err := h.claimService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "Failed to get claim", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    claim,
	})
}

// UpdateStatus handles PUT /api/claims/:id/status
func (h *Handlers) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid status payload", err)
		return
	}

	claim, err := h.claimService.UpdateStatus(c.Request.Context(), c.Param("id"),
		entity.ClaimStatus(req.Status), actorOrDefault(req.Actor))
	if err != nil {
		h.writeError(c, "Failed to update claim status", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    claim,
	})
}

// ApproveClaim handles POST /api/claims/:id/approve
func (h *Handlers) ApproveClaim(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid approval payload", err)
		return
	}

	claim, err := h.claimService.Approve(c.Request.Context(), c.Param("id"), actorOrDefault(req.Actor),
		service.ResolutionInput{
			Type:        entity.ResolutionType(req.Type),
			Amount:      req.Amount,
			Description: req.Description,
		})
	h.writeResolution(c, "Failed to approve claim", claim, err)
}

// RejectClaim handles POST /api/claims/:id/reject
func (h *Handlers) RejectClaim(c *gin.Context) {
	var req RejectRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, "invalid rejection payload", err)
		return
	}

	claim, err := h.claimService.Reject(c.Request.Context(), c.Param("id"), actorOrDefault(req.Actor), req.Reason)
	if err != nil {
		h.writeError(c, "Failed to reject claim", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    claim,
	})
}

// AssignClaim handles POST /api/claims/:id/assign
func (h *Handlers) AssignClaim(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid assignment payload", err)
		return
	}

	claim, err := h.claimService.Assign(c.Request.Context(), c.Param("id"), req.Assignee, actorOrDefault(req.Actor))
	if err != nil {
		h.writeError(c, "Failed to assign claim", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    claim,
	})
}

// ExecuteResolution handles POST /api/claims/:id/execute
func (h *Handlers) ExecuteResolution(c *gin.Context) {
	claim, err := h.claimService.ExecuteResolution(c.Request.Context(), c.Param("id"))
	h.writeResolution(c, "Failed to execute resolution", claim, err)
}

// Statistics handles GET /api/claims/statistics
func (h *Handlers) Statistics(c *gin.Context) {
	stats, err := h.claimService.Statistics(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to compute statistics", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    stats,
	})
}

// ExportClaims handles GET /api/claims/export.
// It accepts the same filters as ListClaims and ignores paging.
func (h *Handlers) ExportClaims(c *gin.Context) {
	req, ok := h.bindListQuery(c)
	if !ok {
		return
	}

	claims, err := h.claimService.List(c.Request.Context(), req.filter())
	if err != nil {
		h.writeError(c, "Failed to list claims for export", err)
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, claims, service.ComputeStatistics(claims)); err != nil {
		h.writeError(c, "Failed to export claims", err)
		return
	}

	filename := fmt.Sprintf("claims-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handlers) bindListQuery(c *gin.Context) (ListClaimsRequest, bool) {
	var req ListClaimsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return req, false
	}
	if req.Status != "" && !domainwf.State(req.Status).IsValid() {
		h.badRequest(c, "invalid status filter", fmt.Errorf("unknown status %q", req.Status))
		return req, false
	}
	if req.Category != "" && !entity.Category(req.Category).IsValid() {
		h.badRequest(c, "invalid category filter", fmt.Errorf("unknown category %q", req.Category))
		return req, false
	}
	return req, true
}

func (r ListClaimsRequest) filter() port.ClaimFilter {
	return port.ClaimFilter{
		Status:      entity.ClaimStatus(r.Status),
		Category:    entity.Category(r.Category),
		CustomerID:  r.CustomerID,
		OrderNumber: r.OrderNumber,
		ProductID:   r.ProductID,
	}
}

// writeResolution answers approve and execute calls. A failed handler leaves
// the claim approved for a retry, so the claim is returned with 202.
func (h *Handlers) writeResolution(c *gin.Context, msg string, claim *entity.Claim, err error) {
	if errors.Is(err, service.ErrResolutionFailed) && claim != nil {
		h.logger.Error("Resolution awaits manual intervention", "claim_id", claim.ID, "error", err)
		c.JSON(http.StatusAccepted, Response{
			Success: false,
			Data:    claim,
			Error:   err.Error(),
		})
		return
	}
	if err != nil {
		h.writeError(c, msg, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    claim,
	})
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg + ": " + err.Error(),
	})
}

func (h *Handlers) writeError(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	h.logger.Error(msg, "path", c.Request.URL.Path, "status", status, "error", err)

	text := err.Error()
	if status == http.StatusInternalServerError {
		text = "internal error"
	}
	c.JSON(status, Response{
		Success: false,
		Error:   text,
	})
}

// statusFor maps service and workflow errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrClaimNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrInvalidTransition), errors.Is(err, domainwf.ErrGuardFailed):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidClaim),
		errors.Is(err, service.ErrInvalidResolution),
		errors.Is(err, domainwf.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrResolutionFailed):
		return http.StatusAccepted
	case errors.Is(err, service.ErrServiceClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// bindOptionalJSON binds the body when one was sent
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}

func actorOrDefault(actor string) string {
	if actor == "" {
		return defaultActor
	}
	return actor
}
