package anm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/anm-alert-map/internal/domain"
	"github.com/couchcryptid/anm-alert-map/internal/observability"
)

// warningsEndpoint lists the general (county level) warnings in force.
const warningsEndpoint = "avertizari-generale"

// maxPayloadBytes bounds a feed response.
const maxPayloadBytes = 4 << 20

// Client fetches warnings from the ANM weather API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an ANM API client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchWarnings returns one map entry per warning currently in force. An
// empty result means no warnings.
func (c *Client) FetchWarnings(ctx context.Context) ([]domain.MapEntry, error) {
	u := strings.TrimSuffix(c.baseURL, "/") + "/" + warningsEndpoint

	start := time.Now()
	body, err := c.doRequest(ctx, u)
	c.metrics.FeedAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	entries, err := domain.ParseANMWarnings(body)
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	if len(entries) == 0 {
		c.metrics.FeedRequests.WithLabelValues("empty").Inc()
	} else {
		c.metrics.FeedRequests.WithLabelValues("success").Inc()
	}
	c.logger.Debug("anm warnings fetched", "url", u, "warnings", len(entries))
	return entries, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("anm API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
