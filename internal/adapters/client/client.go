// Package client talks to the leaderboard REST API over fasthttp.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/internal/domain/types"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/valyala/fasthttp"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "guessconv-cli/1"

	leaderboardPath = "/api/leaderboard"

	// IdempotencyHeader carries Submission.IdempotencyKey.
	IdempotencyHeader = "Idempotency-Key"
)

// Client is a leaderboard API client. Safe for concurrent use.
type Client struct {
	baseURL   string
	http      *fasthttp.Client
	timeout   time.Duration
	userAgent string
	logger    logger.Logger
}

// New creates a client for the server at baseURL, e.g. http://localhost:9080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = &fasthttp.Client{
		MaxConnsPerHost:     16,
		ReadTimeout:         c.timeout,
		WriteTimeout:        c.timeout,
		MaxIdleConnDuration: time.Minute,
	}
	return c, nil
}

// Submit pushes a submission and returns the refreshed leaderboard.
func (c *Client) Submit(ctx context.Context, sub model.Submission) ([]model.LeaderboardEntry, error) {
	body, err := json.Marshal(types.NewSubmissionRequest(sub))
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	var out types.LeaderboardResponse
	headers := map[string]string{}
	if sub.IdempotencyKey != "" {
		headers[IdempotencyHeader] = sub.IdempotencyKey
	}
	if _, err := c.do(ctx, fasthttp.MethodPost, leaderboardPath, body, headers, &out); err != nil {
		return nil, err
	}
	return toModels(out)
}

// Fetch returns the current leaderboard.
func (c *Client) Fetch(ctx context.Context) ([]model.LeaderboardEntry, error) {
	var out types.LeaderboardResponse
	if _, err := c.do(ctx, fasthttp.MethodGet, leaderboardPath, nil, nil, &out); err != nil {
		return nil, err
	}
	return toModels(out)
}

// Rank returns the 1-based position of username.
func (c *Client) Rank(ctx context.Context, username string) (int, model.LeaderboardEntry, error) {
	var out types.RankResponse
	status, err := c.do(ctx, fasthttp.MethodGet, leaderboardPath+"/"+url.PathEscape(username), nil, nil, &out)
	if status == fasthttp.StatusNotFound {
		return 0, model.LeaderboardEntry{}, ErrNotFound
	}
	if err != nil {
		return 0, model.LeaderboardEntry{}, err
	}
	return out.Rank, out.Entry.ToModel(), nil
}

func toModels(resp types.LeaderboardResponse) ([]model.LeaderboardEntry, error) {
	if types.StoreFailure(resp.Error) {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, resp.Error)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	out := make([]model.LeaderboardEntry, 0, len(resp.Leaderboard))
	for _, e := range resp.Leaderboard {
		out = append(out, e.ToModel())
	}
	return out, nil
}

// do sends one request and decodes a 200 body into out. It returns the status
// code when a response was received.
func (c *Client) do(ctx context.Context, method, path string, body []byte, headers map[string]string, out any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetUserAgent(c.userAgent)
	req.Header.Set("Accept", "application/json")
	if rid := logger.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	start := time.Now()
	deadline, ok := ctx.Deadline()
	var err error
	if ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Debug(ctx, "request failed",
			logger.String("method", method),
			logger.String("path", path),
			logger.Error(err))
		return 0, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}

	status := resp.StatusCode()
	c.logger.Debug(ctx, "request done",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", status),
		logger.Duration("took", time.Since(start)))

	if status != fasthttp.StatusOK {
		var e types.ErrorResponse
		if json.Unmarshal(resp.Body(), &e) == nil && e.Error != "" {
			return status, fmt.Errorf("%w: %d %s", ErrUnavailable, status, e.Error)
		}
		return status, fmt.Errorf("%w: status %d", ErrUnavailable, status)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return status, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return status, nil
}
