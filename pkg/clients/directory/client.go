package directory

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Hussein-Osamaa/madas-inventory/internal/config"
)

// Client validates tenant identifiers against the business directory before
// any ledger write is accepted.
type Client interface {
	TenantExists(ctx context.Context, tenantID string) (bool, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a directory API client from configuration.
func NewClient(cfg config.DirectoryConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &APIClient{httpClient: restyClient}
}

// TenantExists checks the directory for the tenant id.
func (c *APIClient) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	apiErr := new(struct {
		Error string `json:"error"`
	})

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetError(apiErr).
		Get(fmt.Sprintf("/internal/tenants/%s", tenantID))
	if err != nil {
		return false, fmt.Errorf("directory tenant lookup: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("directory api error: code=%d, message=%s", resp.StatusCode(), apiErr.Error)
	}
}
