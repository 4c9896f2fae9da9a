package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
)

// writeError maps domain sentinel errors onto HTTP responses. The error code
// in the body is stable so clients can branch on it; UnknownBarcode in
// particular drives the "create new product" flow instead of a generic 404.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidQuantity), errors.Is(err, models.ErrInvalidKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_quantity", "message": err.Error()})
	case errors.Is(err, models.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found", "message": err.Error()})
	case errors.Is(err, models.ErrUnknownBarcode):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_barcode", "message": err.Error()})
	case errors.Is(err, models.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found", "message": err.Error()})
	case errors.Is(err, models.ErrAlreadyInSession):
		c.JSON(http.StatusConflict, gin.H{"error": "already_in_session", "message": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": err.Error()})
	case errors.Is(err, models.ErrUnknownTenant):
		c.JSON(http.StatusForbidden, gin.H{"error": "unknown_tenant", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "internal error"})
	}
}
