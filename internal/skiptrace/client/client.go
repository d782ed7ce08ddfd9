// Package client provides the HTTP client for the skip trace provider.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
)

const (
	defaultHTTPTimeout = 20 * time.Second
	maxResponseBytes   = 1 << 20
)

// Lookup identifies the person and property to trace.
type Lookup struct {
	OwnerName string `json:"name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

// Phone is one discovered phone number.
type Phone struct {
	Number     string  `json:"number"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Result holds the contact info the provider found for a lookup.
type Result struct {
	Phones    []Phone
	Emails    []string
	CostCents int64
}

type providerResponse struct {
	Phones []Phone  `json:"phones"`
	Emails []string `json:"emails"`
	Cost   float64  `json:"cost"`
}

// Client calls the skip trace provider. Requests are paced with a rate
// limiter sized from config.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

// New creates a new skip trace client, or nil when the provider is not
// configured.
func New(cfg config.SkipTraceConfig, log *logger.Logger) *Client {
	if !cfg.IsSkipTraceEnabled() {
		log.Warn("skip trace provider not configured, lookups disabled")
		return nil
	}

	rps := cfg.GetSkipTraceRequestsPerSecond()
	if rps <= 0 {
		rps = 1
	}

	return &Client{
		baseURL:    cfg.GetSkipTraceURL(),
		apiKey:     cfg.GetSkipTraceAPIKey(),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		log:        log,
	}
}

// Trace looks up contact info for an owner at a property address.
func (c *Client) Trace(ctx context.Context, lookup Lookup) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	payload, err := json.Marshal(lookup)
	if err != nil {
		return Result{}, fmt.Errorf("marshal skip trace lookup: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("skip trace request failed", "error", err)
		return Result{}, apperr.Unavailable("skip trace provider unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Error("skip trace request error", "status", resp.StatusCode, "body", string(body))
		return Result{}, apperr.Unavailable(fmt.Sprintf("skip trace provider status %d", resp.StatusCode))
	}

	var parsed providerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode skip trace response: %w", err)
	}

	return Result{
		Phones:    parsed.Phones,
		Emails:    parsed.Emails,
		CostCents: int64(math.Round(parsed.Cost * 100)),
	}, nil
}
