package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/searchmux/searchmux/internal/types"
)

const maxResponseBytes = 4 << 20

// httpDoer is the HTTP session shared by the stock adapters. It applies one
// rate limiter across all outbound calls, a common User-Agent, and a small
// retry loop for throttled or transient upstream failures.
type httpDoer struct {
	client     *http.Client
	limiter    *rate.Limiter
	userAgent  string
	maxRetries int
	retryDelay time.Duration
}

func newHTTPDoer(cfg *types.Config) *httpDoer {
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rateLimit := cfg.ProviderRateLimit
	if rateLimit <= 0 {
		rateLimit = 5.0
	}
	burst := cfg.ProviderRateBurst
	if burst <= 0 {
		burst = 10
	}
	userAgent := cfg.ProviderUserAgent
	if userAgent == "" {
		userAgent = "searchmux/1.0"
	}
	return &httpDoer{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:    rate.NewLimiter(rate.Limit(rateLimit), burst),
		userAgent:  userAgent,
		maxRetries: 2,
		retryDelay: 500 * time.Millisecond,
	}
}

// do performs one rate-limited request, retrying 429 and 5xx responses with
// exponential backoff. The caller owns the returned body.
func (h *httpDoer) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", h.userAgent)

	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * h.retryDelay
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := h.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
			_ = resp.Body.Close()
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", h.maxRetries+1, lastErr)
}

// getJSON fetches url and decodes the JSON body into out.
func (h *httpDoer) getJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// getDocument fetches url and parses the body as an HTML document.
func (h *httpDoer) getDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := h.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
