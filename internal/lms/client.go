// Package lms is a small client for the Canvas REST API: authenticated
// requests, rate-limit retries and Link-header pagination.
package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/metrics"
)

type Options struct {
	BaseURL   string
	Token     string
	AccountID int64
	Timeout   time.Duration
	Retry     RetryPolicy

	// HTTPClient overrides the default client; Timeout is ignored then.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Client struct {
	base      *url.URL
	token     string
	accountID int64
	http      *http.Client
	retry     RetryPolicy
	log       *zap.Logger
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("lms base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("lms base url %q must be absolute", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		base:      base,
		token:     opts.Token,
		accountID: opts.AccountID,
		http:      hc,
		log:       log.Named("lms"),
	}

	c.retry = opts.Retry
	userHook := opts.Retry.OnRetry
	c.retry.OnRetry = func(attempt int, wait time.Duration) {
		metrics.LMSRetries.Inc()
		c.log.Warn("rate limited by LMS, retrying",
			zap.Int("attempt", attempt), zap.Duration("wait", wait))
		if userHook != nil {
			userHook(attempt, wait)
		}
	}
	return c, nil
}

func (c *Client) AccountID() int64 { return c.accountID }

// Request performs one logical call, retrying rate-limited attempts. Non-2xx
// answers come back as *APIError. path is relative to the base URL, or an
// absolute URL on the same host (pagination links).
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	target, err := c.resolve(path, query)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("lms: encode %s %s: %w", method, path, err)
		}
	}

	var resp *Response
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		r, err := c.roundTrip(ctx, method, target, payload)
		if err != nil {
			return err
		}
		if r.Status < 200 || r.Status > 299 {
			return newAPIError(method, target.Path, r)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Do is Request plus JSON decoding of the response body into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.Request(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("lms: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("lms: parse %q: %w", path, err)
		}
		// the bearer token must never leave the configured host
		if u.Host != c.base.Host {
			return nil, fmt.Errorf("lms: refusing to follow %q outside %s", path, c.base.Host)
		}
		return u, nil
	}
	u, err := url.Parse(c.base.String() + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("lms: parse %q: %w", path, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func (c *Client) roundTrip(ctx context.Context, method string, target *url.URL, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("lms: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	t0 := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveLMS(method, 0, time.Since(t0))
		return nil, fmt.Errorf("lms: %s %s: %w", method, target.Path, err)
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	metrics.ObserveLMS(method, res.StatusCode, time.Since(t0))
	if err != nil {
		return nil, fmt.Errorf("lms: read %s %s: %w", method, target.Path, err)
	}
	c.log.Debug("lms request",
		zap.String("method", method),
		zap.String("path", target.Path),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", time.Since(t0)),
	)
	return &Response{Status: res.StatusCode, Header: res.Header, Body: data}, nil
}
