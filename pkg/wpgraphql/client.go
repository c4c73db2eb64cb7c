package wpgraphql

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout bounds a single attempt when Options.Timeout is unset.
	DefaultTimeout = 10 * time.Second

	// DefaultRetryBackoff is the linear backoff step when Options.RetryBackoff is unset.
	DefaultRetryBackoff = 300 * time.Millisecond

	// DefaultUserAgent is sent when Options.UserAgent is unset.
	DefaultUserAgent = "gazette/1.0"

	maxResponseBytes = 8 << 20
	maxErrorBody     = 200
)

// Cache stores raw "data" payloads keyed by CacheKey.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures a Client.
type Options struct {
	Endpoint     string
	AuthToken    string        // Sent as "Authorization: Bearer <token>" when set
	Timeout      time.Duration // Per attempt
	MaxRetries   int           // Extra attempts after the first on 5xx/network failure
	RetryBackoff time.Duration // Linear step: attempt n waits n*RetryBackoff
	UserAgent    string
	HTTPClient   *http.Client
	Cache        Cache
	Logger       *zap.Logger
}

// Request is one GraphQL operation.
type Request struct {
	Query     string
	Variables map[string]any

	// TTL > 0 makes the request cacheable for that long.
	TTL time.Duration
}

// Client posts GraphQL operations to a single endpoint. Safe for concurrent use.
type Client struct {
	endpoint     string
	authToken    string
	userAgent    string
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	httpClient   *http.Client
	cache        Cache
	logger       *zap.Logger
	group        singleflight.Group
}

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type responseBody struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// New validates opts and returns a ready Client.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	u, err := url.Parse(opts.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("endpoint must be an absolute http(s) URL: %q", opts.Endpoint)
	}

	c := &Client{
		endpoint:     opts.Endpoint,
		authToken:    opts.AuthToken,
		userAgent:    opts.UserAgent,
		timeout:      opts.Timeout,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		httpClient:   opts.HTTPClient,
		cache:        opts.Cache,
		logger:       opts.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.retryBackoff <= 0 {
		c.retryBackoff = DefaultRetryBackoff
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("wpgraphql")

	return c, nil
}

// Endpoint returns the configured GraphQL URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Do executes req and decodes the response "data" object into out.
// out may be nil when the caller only cares about success.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}

	data, err := c.fetch(ctx, req)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode graphql data: %w", err)
	}
	return nil
}

// Ping runs a trivial uncached query against the endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.Do(ctx, Request{Query: "{ __typename }"}, nil)
}

func (c *Client) fetch(ctx context.Context, req Request) ([]byte, error) {
	if req.TTL <= 0 || c.cache == nil {
		return c.execute(ctx, req)
	}

	key := CacheKey(req.Query, req.Variables)
	if data, ok := c.lookup(ctx, key); ok {
		return data, nil
	}

	// The shared fetch outlives any one caller; each attempt is still
	// bounded by the client timeout.
	sharedCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		data, err := c.execute(sharedCtx, req)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(sharedCtx, key, data, req.TTL); err != nil {
			c.logger.Warn("Failed to store cached response", zap.String("key", key), zap.Error(err))
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("Collapsed concurrent request", zap.String("key", key))
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return data, ok
}

// execute runs the retry loop around attempt.
func (c *Client) execute(ctx context.Context, req Request) ([]byte, error) {
	body, err := json.Marshal(requestBody{Query: req.Query, Variables: req.Variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode graphql request: %w", err)
	}

	var (
		data    []byte
		attempt int
	)
	op := func() error {
		attempt++
		var err error
		data, err = c.attempt(ctx, body)
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Retrying graphql request",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: c.retryBackoff}, uint64(c.maxRetries)),
		ctx,
	)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return data, nil
}

// attempt performs one POST. Errors that must not be retried are wrapped
// with backoff.Permanent.
func (c *Client) attempt(ctx context.Context, body []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("failed to read graphql response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
		if statusErr.Retryable() {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	var envelope responseBody
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode graphql response: %w", err))
	}
	if len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		return nil, backoff.Permanent(&first)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, backoff.Permanent(fmt.Errorf("graphql response contained no data"))
	}

	return envelope.Data, nil
}

// CacheKey derives a stable key from a query and its variables.
// encoding/json sorts map keys, so variable order does not matter.
func CacheKey(query string, variables map[string]any) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(query)))
	h.Write([]byte{'\n'})
	if len(variables) > 0 {
		vars, _ := json.Marshal(variables)
		h.Write(vars)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// linearBackOff waits step, 2*step, 3*step, ...
type linearBackOff struct {
	step time.Duration
	n    int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.n++
	return l.step * time.Duration(l.n)
}

func (l *linearBackOff) Reset() {
	l.n = 0
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
