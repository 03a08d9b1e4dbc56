package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"objektFeed/internal/model"
)

// ErrNotFound is returned when the service has no record for a token.
var ErrNotFound = errors.New("metadata not found")

const tokenPath = "objekt/v1/token"

// Config configures the metadata client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client fetches objekt metadata by token id.
type Client struct {
	baseURL *url.URL
	timeout time.Duration
	http    *fasthttp.Client
	logger  *zap.Logger
}

// NewClient builds a metadata client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("metadata url is required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse metadata url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: parsed,
		timeout: cfg.Timeout,
		http: &fasthttp.Client{
			Name:                "objektFeed",
			MaxIdleConnDuration: time.Minute,
		},
		logger: logger,
	}, nil
}

// Fetch returns the metadata of tokenID. Any transport error, non-2xx status or
// malformed body is a failure; there are no partial results.
func (c *Client) Fetch(ctx context.Context, tokenID string) (model.Metadata, error) {
	if tokenID == "" {
		return model.Metadata{}, fmt.Errorf("token id is required")
	}
	if err := ctx.Err(); err != nil {
		return model.Metadata{}, err
	}

	target := c.baseURL.JoinPath(tokenPath, url.PathEscape(tokenID)).String()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	// fasthttp only honours deadlines, so the request runs aside and ctx
	// cancellation returns immediately; the goroutine ends by the deadline.
	done := make(chan fetchResult, 1)
	go func() {
		done <- c.do(target, deadline)
	}()

	var res fetchResult
	select {
	case <-ctx.Done():
		return model.Metadata{}, fmt.Errorf("fetch metadata %s: %w", tokenID, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return model.Metadata{}, fmt.Errorf("fetch metadata %s: %w", tokenID, res.err)
	}
	c.logger.Debug("metadata fetched",
		zap.String("token_id", tokenID),
		zap.Int("status", res.status),
		zap.Duration("duration", time.Since(start)),
	)

	if res.status == fasthttp.StatusNotFound {
		return model.Metadata{}, fmt.Errorf("token %s: %w", tokenID, ErrNotFound)
	}
	if res.status < 200 || res.status >= 300 {
		return model.Metadata{}, fmt.Errorf("token %s: unexpected status %d", tokenID, res.status)
	}
	if res.bodyErr != nil {
		return model.Metadata{}, fmt.Errorf("token %s: read body: %w", tokenID, res.bodyErr)
	}
	body := res.body

	var meta model.Metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return model.Metadata{}, fmt.Errorf("token %s: decode body: %w", tokenID, err)
	}
	if meta.Objekt.CollectionID == "" {
		return model.Metadata{}, fmt.Errorf("token %s: metadata has no collection", tokenID)
	}

	return meta, nil
}

type fetchResult struct {
	status  int
	body    []byte
	err     error
	bodyErr error
}

func (c *Client) do(target string, deadline time.Time) fetchResult {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(target)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fetchResult{err: err}
	}

	res := fetchResult{status: resp.StatusCode()}
	body, err := resp.BodyUncompressed()
	if err != nil {
		res.bodyErr = err
		return res
	}
	// resp is released on return, so the body must be copied out
	res.body = append([]byte(nil), body...)
	return res
}
