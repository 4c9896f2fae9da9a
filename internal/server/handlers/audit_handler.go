package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	auditsvc "github.com/Hussein-Osamaa/madas-inventory/internal/service/audit"
)

// AuditHandler exposes the audit session lifecycle over HTTP.
type AuditHandler struct {
	svc    *auditsvc.Service
	logger *zap.Logger
}

// NewAuditHandler constructs the HTTP handler adapter.
func NewAuditHandler(svc *auditsvc.Service, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{svc: svc, logger: logger}
}

type startAuditRequest struct {
	TenantID  string `json:"tenant_id" binding:"required"`
	CreatorID string `json:"creator_id" binding:"required"`
}

// Start opens a new audit session.
func (h *AuditHandler) Start(c *gin.Context) {
	var req startAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "message": "invalid request body"})
		return
	}

	session, err := h.svc.Start(c.Request.Context(), req.TenantID, req.CreatorID)
	if err != nil {
		h.logger.Warn("start audit rejected", zap.String("tenant_id", req.TenantID), zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"join_code":  session.JoinCode,
	})
}

type joinAuditRequest struct {
	JoinCode string `json:"join_code" binding:"required"`
	WorkerID string `json:"worker_id" binding:"required"`
}

// Join adds a worker to an active session by code.
func (h *AuditHandler) Join(c *gin.Context) {
	var req joinAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "message": "invalid request body"})
		return
	}

	session, err := h.svc.Join(c.Request.Context(), req.JoinCode, req.WorkerID)
	if err != nil {
		h.logger.Warn("join audit rejected", zap.String("worker_id", req.WorkerID), zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"tenant_id":  session.TenantID,
		"creator_id": session.CreatorID,
	})
}

type scanRequest struct {
	Barcode  string `json:"barcode" binding:"required"`
	WorkerID string `json:"worker_id" binding:"required"`
}

// Scan records one barcode observation.
func (h *AuditHandler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "message": "invalid request body"})
		return
	}

	product, err := h.svc.Scan(c.Request.Context(), c.Param("id"), req.Barcode, req.WorkerID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": product.ID,
		"sku":        product.SKU,
		"name":       product.Name,
	})
}

type finishAuditRequest struct {
	RequesterID     string `json:"requester_id" binding:"required"`
	IsPlatformAdmin bool   `json:"is_platform_admin"`
}

// Finish closes the session and returns the corrective events reconciliation
// produced.
func (h *AuditHandler) Finish(c *gin.Context) {
	var req finishAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "message": "invalid request body"})
		return
	}

	corrective, err := h.svc.Finish(c.Request.Context(), c.Param("id"), req.RequesterID, req.IsPlatformAdmin)
	if err != nil {
		h.logger.Warn("finish audit rejected", zap.String("session_id", c.Param("id")), zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"corrective_events": corrective})
}

// Cancel discards the session without ledger writes.
func (h *AuditHandler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Summary returns the session dashboard view.
func (h *AuditHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
