package shopify

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/url"
	"strconv"
	"time"

	"github.com/smallbiznis/shopmirror/internal/clock"
	"github.com/smallbiznis/shopmirror/internal/observability/metrics"
	"github.com/smallbiznis/shopmirror/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	defaultRetryAfter = 2 * time.Second
	bodySnippetLimit  = 200

	retryCauseThrottle  = "throttle"
	retryCauseServer    = "server_error"
	retryCauseTransport = "transport"
)

// Options configures the fetcher for one store.
type Options struct {
	Host        string
	AccessToken string
	APIVersion  string
	PageSize    int
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Page is one decoded listing page together with the cursor of the page after
// it. NextCursor is "" on the last page.
type Page struct {
	Rows       []json.RawMessage
	NextCursor string
}

// Fetcher performs rate-limited, retrying reads against the Admin API. All
// waiting goes through the shared limiter and clock.
type Fetcher struct {
	transport Transport
	limiter   *ratelimit.TokenBucket
	clock     clock.Clock
	log       *zap.Logger
	metrics   *metrics.SyncMetrics
	opts      Options
}

func NewFetcher(t Transport, limiter *ratelimit.TokenBucket, c clock.Clock, log *zap.Logger, m *metrics.SyncMetrics, opts Options) *Fetcher {
	return &Fetcher{
		transport: t,
		limiter:   limiter,
		clock:     c,
		log:       log.Named("fetcher"),
		metrics:   m,
		opts:      opts,
	}
}

// ListPage fetches one page of a listing resource. cursor is "" for the first
// page; extra query filters are only legal on the first page. envelope is the
// JSON key wrapping the row array, e.g. "products".
func (f *Fetcher) ListPage(ctx context.Context, resource, envelope, cursor string, extra url.Values) (*Page, error) {
	u := PageURL(f.opts.Host, f.opts.APIVersion, resource, f.opts.PageSize, cursor, extra)
	resp, err := f.do(ctx, resource, u)
	if err != nil {
		return nil, err
	}

	rows, err := decodeList(resp.Body, envelope)
	if err != nil {
		return nil, err
	}
	next, err := NextPageInfo(resp.Header.Get("Link"))
	if err != nil {
		return nil, err
	}

	f.metrics.IncPage(resource)
	return &Page{Rows: rows, NextCursor: next}, nil
}

// GetObject fetches a single-object endpoint and returns the raw JSON under
// the envelope key, e.g. resource "shop", envelope "shop".
func (f *Fetcher) GetObject(ctx context.Context, resource, envelope string) (json.RawMessage, error) {
	u := ResourceURL(f.opts.Host, f.opts.APIVersion, resource)
	resp, err := f.do(ctx, resource, u)
	if err != nil {
		return nil, err
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, &ProtocolError{Detail: "response body is not a JSON object", Input: snippet(resp.Body)}
	}
	raw, ok := wrapper[envelope]
	if !ok {
		return nil, &ProtocolError{Detail: "response missing envelope key " + envelope, Input: snippet(resp.Body)}
	}
	return raw, nil
}

// do runs the acquire → request → classify loop until success, a permanent
// failure, or budget exhaustion.
func (f *Fetcher) do(ctx context.Context, resource, u string) (*Response, error) {
	headers := map[string]string{
		"X-Shopify-Access-Token": f.opts.AccessToken,
		"Content-Type":           "application/json",
	}

	var lastErr error
	backoffAttempt := 0
	for attempt := 0; attempt < f.opts.MaxAttempts; attempt++ {
		if err := f.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		start := f.clock.Now()
		resp, err := f.transport.Get(ctx, u, headers)
		f.metrics.ObserveRequestDuration(resource, f.clock.Now().Sub(start))

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.metrics.IncRequest(resource, metrics.StatusClassNet)
			f.metrics.IncRetry(resource, retryCauseTransport)
			f.log.Warn("request failed, backing off",
				zap.String("resource", resource),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			lastErr = err
			if err := f.backoff(ctx, backoffAttempt); err != nil {
				return nil, err
			}
			backoffAttempt++
			continue
		}

		f.metrics.IncRequest(resource, metrics.StatusClassFor(resp.StatusCode))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == 429:
			wait := retryAfter(resp.Header.Get("Retry-After"))
			f.metrics.IncRetry(resource, retryCauseThrottle)
			f.log.Warn("throttled by upstream",
				zap.String("resource", resource),
				zap.Duration("retry_after", wait),
				zap.Int("attempt", attempt+1),
			)
			lastErr = &TransientHTTPError{StatusCode: 429, URL: u, BodySnippet: snippet(resp.Body)}
			if err := f.clock.Sleep(ctx, wait); err != nil {
				return nil, err
			}

		case resp.StatusCode >= 500:
			f.metrics.IncRetry(resource, retryCauseServer)
			f.log.Warn("upstream server error, backing off",
				zap.String("resource", resource),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			lastErr = &TransientHTTPError{StatusCode: resp.StatusCode, URL: u, BodySnippet: snippet(resp.Body)}
			if err := f.backoff(ctx, backoffAttempt); err != nil {
				return nil, err
			}
			backoffAttempt++

		default:
			return nil, &PermanentHTTPError{
				StatusCode:  resp.StatusCode,
				URL:         u,
				BodySnippet: snippet(resp.Body),
			}
		}
	}

	return nil, &RetryBudgetExhausted{URL: u, Attempts: f.opts.MaxAttempts, LastErr: lastErr}
}

// backoff sleeps base·2^attempt capped at max, plus jitter in [0, base).
func (f *Fetcher) backoff(ctx context.Context, attempt int) error {
	d := f.opts.BackoffBase << uint(attempt)
	if d > f.opts.BackoffMax || d <= 0 {
		d = f.opts.BackoffMax
	}
	d += time.Duration(rand.Int63n(int64(f.opts.BackoffBase)))
	return f.clock.Sleep(ctx, d)
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.ParseFloat(header, 64)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs * float64(time.Second))
}

func decodeList(body []byte, envelope string) ([]json.RawMessage, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, &ProtocolError{Detail: "response body is not a JSON object", Input: snippet(body)}
	}
	raw, ok := wrapper[envelope]
	if !ok {
		return nil, &ProtocolError{Detail: "response missing envelope key " + envelope, Input: snippet(body)}
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &ProtocolError{Detail: "envelope value is not a JSON array", Input: snippet(raw)}
	}
	return rows, nil
}

func snippet(body []byte) string {
	if len(body) > bodySnippetLimit {
		body = body[:bodySnippetLimit]
	}
	return string(body)
}
