package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
	"github.com/Hussein-Osamaa/madas-inventory/internal/repository/memory"
	auditsvc "github.com/Hussein-Osamaa/madas-inventory/internal/service/audit"
	inventorysvc "github.com/Hussein-Osamaa/madas-inventory/internal/service/inventory"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/broadcast"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/clients/catalog"
)

type stubCatalog struct{}

func (stubCatalog) ProductExists(_ context.Context, tenantID, productID string) (bool, error) {
	return tenantID == "t1" && productID == "p1", nil
}

func (stubCatalog) ResolveBarcode(_ context.Context, tenantID, code string) (*catalog.Product, error) {
	if tenantID == "t1" && models.NormalizeBarcode(code) == "BC1" {
		return &catalog.Product{ID: "p1", SKU: "SKU-1", Name: "Sneaker"}, nil
	}
	return nil, nil
}

func (stubCatalog) ListProductIDs(_ context.Context, tenantID string) ([]string, error) {
	return []string{"p1"}, nil
}

type stubDirectory struct{}

func (stubDirectory) TenantExists(_ context.Context, tenantID string) (bool, error) {
	return tenantID == "t1", nil
}

func newTestEngine() *gin.Engine {
	store := memory.New()
	invSvc := inventorysvc.NewService(store, stubCatalog{}, stubDirectory{}, nil)
	audSvc := auditsvc.NewService(store, invSvc, stubCatalog{}, stubDirectory{},
		broadcast.NewNoop(), 800*time.Millisecond, nil)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api")

	invHandler := NewInventoryHandler(invSvc, nil)
	audHandler := NewAuditHandler(audSvc, nil)
	api.POST("/inventory/events", invHandler.RecordEvent)
	api.GET("/inventory/stock/:tenantId/:productId", invHandler.GetAvailableStock)
	api.POST("/audits", audHandler.Start)
	api.POST("/audits/join", audHandler.Join)
	api.POST("/audits/:id/scans", audHandler.Scan)
	api.POST("/audits/:id/finish", audHandler.Finish)
	api.POST("/audits/:id/cancel", audHandler.Cancel)
	api.GET("/audits/:id/summary", audHandler.Summary)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestRecordEventEndpoint(t *testing.T) {
	engine := newTestEngine()

	rec, body := doJSON(t, engine, http.MethodPost, "/api/inventory/events",
		`{"tenant_id":"t1","product_id":"p1","kind":"INBOUND","quantity":10}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, body["event_id"])

	rec, body = doJSON(t, engine, http.MethodPost, "/api/inventory/events",
		`{"tenant_id":"t1","product_id":"p1","kind":"SOLD","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_quantity", body["error"])

	rec, body = doJSON(t, engine, http.MethodPost, "/api/inventory/events",
		`{"tenant_id":"t1","product_id":"ghost","kind":"INBOUND","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product_not_found", body["error"])

	rec, _ = doJSON(t, engine, http.MethodGet, "/api/inventory/stock/t1/p1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditFlowEndpoints(t *testing.T) {
	engine := newTestEngine()

	rec, body := doJSON(t, engine, http.MethodPost, "/api/audits",
		`{"tenant_id":"t1","creator_id":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID := body["session_id"].(string)
	joinCode := body["join_code"].(string)

	rec, body = doJSON(t, engine, http.MethodPost, "/api/audits/join",
		`{"join_code":"`+joinCode+`","worker_id":"bob"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessionID, body["session_id"])

	rec, body = doJSON(t, engine, http.MethodPost, "/api/audits/"+sessionID+"/scans",
		`{"barcode":"BC-1","worker_id":"bob"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", body["product_id"])

	// UnknownBarcode is distinguished so the UI can offer product creation.
	rec, body = doJSON(t, engine, http.MethodPost, "/api/audits/"+sessionID+"/scans",
		`{"barcode":"nope","worker_id":"bob"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_barcode", body["error"])

	rec, body = doJSON(t, engine, http.MethodPost, "/api/audits/"+sessionID+"/finish",
		`{"requester_id":"mallory"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", body["error"])

	rec, body = doJSON(t, engine, http.MethodPost, "/api/audits/"+sessionID+"/finish",
		`{"requester_id":"alice"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body["corrective_events"])

	rec, _ = doJSON(t, engine, http.MethodGet, "/api/audits/"+sessionID+"/summary", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = doJSON(t, engine, http.MethodPost, "/api/audits/"+sessionID+"/cancel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", body["error"])
}
