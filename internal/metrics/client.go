// Package metrics fetches doctor dashboard metrics from the DocDor backend.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is used when no backend URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// ErrFetchFailed wraps every way a metrics fetch can fail: transport
// errors, non-2xx responses and bodies that do not decode to Metrics.
var ErrFetchFailed = errors.New("metrics fetch failed")

var errEmptyBody = errors.New("response body is null")

// Fetcher loads metrics for a doctor.
type Fetcher interface {
	DoctorMetrics(ctx context.Context, doctorID string) (*Metrics, error)
}

// ClientConfig holds configuration for the metrics client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the backend metrics endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No timeout: the transport defaults apply.
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Endpoint returns the metrics URL for a doctor.
func (c *Client) Endpoint(doctorID string) string {
	return c.baseURL + "/metrics/doctor/" + url.PathEscape(doctorID)
}

// DoctorMetrics issues a single GET for the doctor's metrics. It never retries.
// Any failure is returned wrapped in ErrFetchFailed.
func (c *Client) DoctorMetrics(ctx context.Context, doctorID string) (*Metrics, error) {
	endpoint := c.Endpoint(doctorID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fail(endpoint, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(endpoint, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(endpoint, fmt.Errorf("read body: %w", err))
	}

	// The whole body must be one JSON value; trailing data is a failure.
	var m *Metrics
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, c.fail(endpoint, fmt.Errorf("decode body: %w", err))
	}
	if m == nil {
		return nil, c.fail(endpoint, errEmptyBody)
	}

	c.logger.Debug("metrics fetched", "url", endpoint, "upcoming", len(m.Upcoming))
	return m, nil
}

func (c *Client) fail(endpoint string, err error) error {
	c.logger.Debug("metrics fetch failed", "url", endpoint, "error", err)
	return fmt.Errorf("%w: %w", ErrFetchFailed, err)
}
