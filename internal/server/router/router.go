package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Hussein-Osamaa/madas-inventory/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(inventoryHandler *handlers.InventoryHandler, auditHandler *handlers.AuditHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api")

	api.POST("/inventory/events", inventoryHandler.RecordEvent)
	api.GET("/inventory/stock/:tenantId/:productId", inventoryHandler.GetAvailableStock)

	api.POST("/audits", auditHandler.Start)
	api.POST("/audits/join", auditHandler.Join)
	api.POST("/audits/:id/scans", auditHandler.Scan)
	api.POST("/audits/:id/finish", auditHandler.Finish)
	api.POST("/audits/:id/cancel", auditHandler.Cancel)
	api.GET("/audits/:id/summary", auditHandler.Summary)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
