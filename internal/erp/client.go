package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coverly/erp-bridge/internal/models"
	"github.com/sirupsen/logrus"
)

// PriceBreakdown is one plan's pricing as returned by a tenant ERP.
type PriceBreakdown struct {
	PlanID      string  `json:"plan_id"`
	Currency    string  `json:"currency"`
	BasePremium float64 `json:"base_premium"`
	Taxes       float64 `json:"taxes"`
	Fees        float64 `json:"fees"`
	Total       float64 `json:"total"`
}

type FetchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type FetchResult struct {
	Success bool             `json:"success"`
	Data    []PriceBreakdown `json:"data,omitempty"`
	Error   *FetchError      `json:"error,omitempty"`
}

// ProbeResult carries the raw outcome of a reachability probe. Classification
// into health states happens in the health package.
type ProbeResult struct {
	Latency    time.Duration
	StatusCode int
}

type Client struct {
	httpClient *http.Client
	log        *logrus.Entry
}

type loggingTransport struct {
	log *logrus.Entry
}

func NewClient(logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &loggingTransport{log: logger.WithField("component", "erp_transport")},
		},
		log: logger.WithField("component", "erp_client"),
	}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := t.log.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		log.WithError(err).Debug("ERP request failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration":    time.Since(start),
	}).Debug("ERP request completed")
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body []byte, cfg models.TenantERPConfig, credential string) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building ERP request: %w", err)
	}

	req.Header.Set("User-Agent", "ERPBridge/1.0")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	headers, err := cfg.CustomHeaders()
	if err != nil {
		return nil, fmt.Errorf("invalid custom headers for tenant %s: %w", cfg.TenantID, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// FetchPrices requests live pricing for the given plan ids from the tenant's
// ERP endpoint, bounded by the tenant's configured timeout.
func (c *Client) FetchPrices(ctx context.Context, cfg models.TenantERPConfig, credential string, planIDs []string) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	payload, err := json.Marshal(map[string][]string{"plan_ids": planIDs})
	if err != nil {
		return nil, fmt.Errorf("encoding price request: %w", err)
	}

	url := strings.TrimSuffix(cfg.EndpointURL, "/") + "/prices"
	req, err := c.newRequest(ctx, http.MethodPost, url, payload, cfg, credential)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	log := c.log.WithFields(logrus.Fields{
		"operation": "fetch_prices",
		"tenant_id": cfg.TenantID,
		"plan_ids":  len(planIDs),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("Price fetch failed")
		return nil, fmt.Errorf("price fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status_code", resp.StatusCode).Warn("ERP returned non-OK status")
		return &FetchResult{
			Success: false,
			Error: &FetchError{
				Code:    "ERP_HTTP_ERROR",
				Message: fmt.Sprintf("ERP responded with status %d", resp.StatusCode),
			},
		}, nil
	}

	var result FetchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.WithError(err).Warn("Failed to decode ERP price response")
		return nil, fmt.Errorf("decoding ERP price response: %w", err)
	}

	return &result, nil
}

// Probe performs a lightweight reachability check against the tenant's ERP
// endpoint. It never fetches pricing data. The returned latency is the full
// round-trip time; the caller classifies it.
func (c *Client) Probe(ctx context.Context, cfg models.TenantERPConfig, credential string) (ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, cfg.EndpointURL, nil, cfg, credential)
	if err != nil {
		return ProbeResult{}, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return ProbeResult{Latency: latency}, err
	}
	defer resp.Body.Close()

	return ProbeResult{Latency: latency, StatusCode: resp.StatusCode}, nil
}
