package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsync "github.com/AudicoSA/audico-sync/internal/application/sync"
	"github.com/AudicoSA/audico-sync/internal/domain/shared"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

// SupplierHandler serves the supplier status and sync trigger endpoints.
type SupplierHandler struct {
	service    *appsync.Service
	sessions   syncdomain.SessionRepository
	jobTimeout func() context.Context
	logger     *zap.Logger
}

// NewSupplierHandler creates the supplier endpoint handler. jobCtx supplies
// the context a triggered background sync runs under; it defaults to
// context.Background so a sync outlives the HTTP request that started it.
func NewSupplierHandler(service *appsync.Service, sessions syncdomain.SessionRepository, logger *zap.Logger) *SupplierHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplierHandler{
		service:    service,
		sessions:   sessions,
		jobTimeout: context.Background,
		logger:     logger,
	}
}

// RegisterRoutes mounts the supplier endpoints on the API group.
func (h *SupplierHandler) RegisterRoutes(rg *gin.RouterGroup) {
	suppliers := rg.Group("/suppliers")
	suppliers.GET("/status", h.StatusAll)
	suppliers.GET("/:code/status", h.Status)
	suppliers.GET("/:code/sessions", h.RecentSessions)
	suppliers.POST("/:code/sync", h.TriggerSync)
	suppliers.POST("/:code/test", h.TestConnection)
}

// StatusAll returns a snapshot per configured supplier.
func (h *SupplierHandler) StatusAll(c *gin.Context) {
	Success(c, h.service.StatusAll(c.Request.Context()))
}

// Status returns one supplier's snapshot.
func (h *SupplierHandler) Status(c *gin.Context) {
	snapshot, err := h.service.Status(c.Request.Context(), c.Param("code"))
	if err != nil {
		DomainError(c, err)
		return
	}
	Success(c, snapshot)
}

// RecentSessions lists a supplier's most recent sync sessions.
func (h *SupplierHandler) RecentSessions(c *gin.Context) {
	code := c.Param("code")
	snapshot, err := h.service.Status(c.Request.Context(), code)
	if err != nil {
		DomainError(c, err)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		Error(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 100")
		return
	}

	sessions, err := h.sessions.FindRecentBySupplier(c.Request.Context(), snapshot.SupplierID, limit)
	if err != nil {
		DomainError(c, err)
		return
	}
	Success(c, sessions)
}

// TriggerSyncRequest is the optional body of a sync trigger.
type TriggerSyncRequest struct {
	Limit  int  `json:"limit" binding:"omitempty,min=0"`
	DryRun bool `json:"dry_run"`
}

// TriggerSync starts a sync for the supplier in the background. It answers
// 202 immediately; a supplier already syncing answers 409.
func (h *SupplierHandler) TriggerSync(c *gin.Context) {
	code := c.Param("code")

	// The body is optional; an absent body runs a plain full sync.
	var req TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		Error(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	snapshot, err := h.service.Status(c.Request.Context(), code)
	if err != nil {
		DomainError(c, err)
		return
	}
	if snapshot.Status == syncdomain.SupplierRunning {
		Error(c, http.StatusConflict, shared.ErrSyncInProgress.Code, shared.ErrSyncInProgress.Message)
		return
	}

	opts := syncdomain.Options{
		Limit:       req.Limit,
		DryRun:      req.DryRun,
		TriggeredBy: "api",
	}
	go func() {
		// The run must outlive the request; BeginSync resolves the race
		// when two triggers land at once.
		if _, err := h.service.Run(h.jobTimeout(), code, opts); err != nil {
			h.logger.Error("triggered sync failed",
				zap.String("supplier", code), zap.Error(err))
		}
	}()

	Accepted(c, gin.H{"supplier": code, "triggered_by": "api"})
}

// TestConnection probes the supplier's upstream synchronously.
func (h *SupplierHandler) TestConnection(c *gin.Context) {
	if err := h.service.TestConnection(c.Request.Context(), c.Param("code")); err != nil {
		if _, ok := err.(*shared.DomainError); ok {
			DomainError(c, err)
			return
		}
		Error(c, http.StatusBadGateway, "PROBE_FAILED", err.Error())
		return
	}
	Success(c, gin.H{"reachable": true})
}
