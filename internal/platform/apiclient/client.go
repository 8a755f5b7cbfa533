// Package apiclient is the JSON-over-HTTP transport to the hospital backend.
// It does not retry; a failed call is classified and returned once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const HeaderRequestID = "X-Request-ID"

// Options configures the client.
type Options struct {
	Timeout        time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
	UserAgent      string
	// Transport overrides the default HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

const (
	defaultTimeout        = 10 * time.Second
	defaultRateLimit      = 20
	defaultRateLimitBurst = 40
	defaultUserAgent      = "auxcare"
)

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	return opts
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    zerolog.Logger

	mu    sync.RWMutex
	token string
}

func New(baseURL string, logger zerolog.Logger, opts Options) *Client {
	nopts := normalizeOptions(opts)
	transport := nopts.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		}
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:      &http.Client{Timeout: nopts.Timeout, Transport: transport},
		limiter:   rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst),
		userAgent: nopts.UserAgent,
		logger:    logger.With().Str("component", "apiclient").Logger(),
	}
}

// SetToken installs the bearer token obtained at login. An empty token
// removes it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Ack is the backend's answer to creation and update calls.
type Ack struct {
	Created bool `json:"created"`
}

func (c *Client) Get(ctx context.Context, op, path string, query url.Values, out any) error {
	return c.do(ctx, op, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, op, path string, body, out any) error {
	return c.do(ctx, op, http.MethodPost, path, nil, body, out)
}

// Acknowledge sends body with method and decodes an Ack.
func (c *Client) Acknowledge(ctx context.Context, op, method, path string, body any) (bool, error) {
	var ack Ack
	if err := c.do(ctx, op, method, path, nil, body, &ack); err != nil {
		return false, err
	}
	return ack.Created, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	ctx, span := otel.Tracer("auxcare.apiclient").Start(ctx, "auxcare.backend."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)

	fail := func(e *Error) error {
		span.RecordError(e)
		span.SetStatus(codes.Error, e.Sentinel.Error())
		return e
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(wrapError(op, err, 0, nil))
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fail(wrapError(op, fmt.Errorf("build url: %w", err), 0, nil))
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fail(wrapError(op, fmt.Errorf("encode request: %w", err), 0, nil))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fail(wrapError(op, err, 0, nil))
	}
	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("request_id", requestID).Str("op", op).Msg("transport failure")
		return fail(wrapError(op, err, 0, nil))
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug().
		Str("request_id", requestID).
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(wrapError(op, nil, resp.StatusCode, raw))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		e := wrapError(op, fmt.Errorf("decode response: %w", err), 0, nil)
		e.Sentinel = ErrBadResponse
		e.Status = resp.StatusCode
		return fail(e)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
