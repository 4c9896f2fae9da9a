package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Hussein-Osamaa/madas-inventory/internal/config"
	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
)

// Product is the subset of a catalog document the inventory core needs.
type Product struct {
	ID   string `json:"product_id"`
	SKU  string `json:"sku,omitempty"`
	Name string `json:"name,omitempty"`
}

// Client exposes the catalog lookups consumed by the inventory core. The
// catalog service owns product documents; this core never stores them.
type Client interface {
	// ProductExists reports whether the product belongs to the tenant's catalog.
	ProductExists(ctx context.Context, tenantID, productID string) (bool, error)
	// ResolveBarcode matches a scanned code against SKU, main barcode and
	// size-variant barcodes. Returns nil when nothing matches.
	ResolveBarcode(ctx context.Context, tenantID, barcode string) (*Product, error)
	// ListProductIDs returns every product id in the tenant's catalog.
	ListProductIDs(ctx context.Context, tenantID string) ([]string, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a catalog API client from configuration.
func NewClient(cfg config.CatalogConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &APIClient{httpClient: restyClient}
}

type apiError struct {
	Error string `json:"error"`
}

// ProductExists checks the tenant's catalog for the product id.
func (c *APIClient) ProductExists(ctx context.Context, tenantID, productID string) (bool, error) {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetError(apiErr).
		Get(fmt.Sprintf("/internal/tenants/%s/products/%s", tenantID, productID))
	if err != nil {
		return false, fmt.Errorf("catalog product lookup: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("catalog api error: code=%d, message=%s", resp.StatusCode(), apiErr.Error)
	}
}

// ResolveBarcode asks the catalog to match a normalized code. Normalization
// happens on both sides so a hyphenated label still matches a plain SKU.
func (c *APIClient) ResolveBarcode(ctx context.Context, tenantID, barcode string) (*Product, error) {
	product := new(Product)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("code", models.NormalizeBarcode(barcode)).
		SetResult(product).
		SetError(apiErr).
		Get(fmt.Sprintf("/internal/tenants/%s/barcode", tenantID))
	if err != nil {
		return nil, fmt.Errorf("catalog barcode lookup: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return product, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("catalog api error: code=%d, message=%s", resp.StatusCode(), apiErr.Error)
	}
}

// ListProductIDs returns the tenant's full product id list. Catalog sizes do
// not call for paging yet.
func (c *APIClient) ListProductIDs(ctx context.Context, tenantID string) ([]string, error) {
	result := new(struct {
		ProductIDs []string `json:"product_ids"`
	})
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr).
		Get(fmt.Sprintf("/internal/tenants/%s/products", tenantID))
	if err != nil {
		return nil, fmt.Errorf("catalog product listing: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("catalog api error: code=%d, message=%s", resp.StatusCode(), apiErr.Error)
	}
	return result.ProductIDs, nil
}
