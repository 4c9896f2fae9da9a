package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
	"github.com/Hussein-Osamaa/madas-inventory/internal/service/inventory"
)

// InventoryHandler exposes ledger writes and stock queries over HTTP.
type InventoryHandler struct {
	svc    *inventory.Service
	logger *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(svc *inventory.Service, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

type recordEventRequest struct {
	TenantID    string `json:"tenant_id" binding:"required"`
	ProductID   string `json:"product_id" binding:"required"`
	Kind        string `json:"kind" binding:"required"`
	Quantity    int64  `json:"quantity"`
	ReferenceID string `json:"reference_id"`
	ActorID     string `json:"actor_id"`
}

// RecordEvent appends one stock event to the ledger.
func (h *InventoryHandler) RecordEvent(c *gin.Context) {
	var req recordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid record event payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "message": "invalid request body"})
		return
	}

	eventID, err := h.svc.RecordEvent(c.Request.Context(), inventory.RecordEventInput{
		TenantID:    req.TenantID,
		ProductID:   req.ProductID,
		Kind:        models.EventKind(req.Kind),
		Quantity:    req.Quantity,
		ReferenceID: req.ReferenceID,
		ActorID:     req.ActorID,
	})
	if err != nil {
		h.logger.Warn("record event rejected", zap.String("tenant_id", req.TenantID), zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event_id": eventID})
}

// GetAvailableStock answers the ledger-authoritative stock query.
func (h *InventoryHandler) GetAvailableStock(c *gin.Context) {
	tenantID := c.Param("tenantId")
	productID := c.Param("productId")

	quantity, err := h.svc.AvailableStock(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.logger.Error("failed computing available stock",
			zap.String("tenant_id", tenantID),
			zap.String("product_id", productID),
			zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quantity": quantity})
}
