package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tenant-scraper/internal/model"
)

type HTTPClientOptions struct {
	HTTPClient        *http.Client
	Timeout           time.Duration
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	Logger            *zap.Logger
}

// HTTPClient issues authenticated JSON GETs against external systems,
// retrying throttled and 5xx responses.
type HTTPClient struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	limit      rate.Limit
	burst      int
	userAgent  string
	logger     *zap.Logger
}

func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "tenant-scraper/1.0"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		httpClient: httpClient,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		limit:      limit,
		burst:      burst,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// StatusError reports a non-2xx response that was not retried away.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// session scopes a rate limiter to one fetch, so one tenant's integration
// never exceeds the configured request rate.
type session struct {
	client  *HTTPClient
	limiter *rate.Limiter
	cfg     model.IntegrationConfig
}

func (c *HTTPClient) newSession(cfg model.IntegrationConfig) *session {
	return &session{
		client:  c,
		limiter: rate.NewLimiter(c.limit, c.burst),
		cfg:     cfg,
	}
}

func (s *session) getJSON(ctx context.Context, url string, out any) error {
	c := s.client
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		if err := applyAuth(req, s.cfg); err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				c.logger.Debug("Request failed, retrying",
					zap.String("url", url), zap.Int("attempt", attempt+1), zap.Error(err))
				if err := sleepContext(ctx, c.retryDelay(attempt, "")); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("GET %s: %w", url, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("GET %s: read body: %w", url, readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("GET %s: decode: %w", url, err)
			}
			return nil
		}

		if retryable(resp.StatusCode) && attempt < c.maxRetries {
			c.logger.Debug("Retryable status, retrying",
				zap.String("url", url), zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt+1))
			if err := sleepContext(ctx, c.retryDelay(attempt, resp.Header.Get("Retry-After"))); err != nil {
				return err
			}
			continue
		}
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func (c *HTTPClient) retryDelay(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
		d := time.Duration(secs) * time.Second
		if d > c.maxDelay {
			return c.maxDelay
		}
		return d
	}
	d := c.baseDelay << attempt
	if d <= 0 || d > c.maxDelay {
		return c.maxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
