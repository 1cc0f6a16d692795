// Package showapi is the HTTP client for the external Koi show REST API: the
// show-detail fetch and the batch status update the timeline core consumes.
package showapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/koishow/internal/domain/timeline"
	"github.com/okian/koishow/pkg/logger"
	"github.com/okian/koishow/pkg/metrics"
)

const (
	opFetchShow      = "fetch_show"
	opUpdateStatuses = "update_statuses"

	showIDPlaceholder = "{showID}"
	maxErrorBody      = 64 << 10
)

// Default endpoint templates; {showID} is replaced with the escaped show id.
const (
	DefaultShowDetailPath   = "/api/v1/koi-show/" + showIDPlaceholder
	DefaultStatusUpdatePath = "/api/v1/show-status/" + showIDPlaceholder
)

// Client talks to the show API.
type Client struct {
	baseURL          string
	token            string
	showDetailPath   string
	statusUpdatePath string
	readTimeout      time.Duration
	writeTimeout     time.Duration
	location         *time.Location
	httpClient       *http.Client
	logger           logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithTimeouts sets the read (GET) and write (PUT/POST) timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(c *Client) {
		if read > 0 {
			c.readTimeout = read
		}
		if write > 0 {
			c.writeTimeout = write
		}
	}
}

// WithPaths overrides the endpoint templates.
func WithPaths(showDetail, statusUpdate string) Option {
	return func(c *Client) {
		if showDetail != "" {
			c.showDetailPath = showDetail
		}
		if statusUpdate != "" {
			c.statusUpdatePath = statusUpdate
		}
	}
}

// WithLocation sets the zone used for timestamps sent without an offset.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		showDetailPath:   DefaultShowDetailPath,
		statusUpdatePath: DefaultStatusUpdatePath,
		readTimeout:      2 * time.Second,
		writeTimeout:     5 * time.Second,
		location:         time.UTC,
		// Per-request timeouts come from the context.
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("showapi")
	}
	return c
}

// FetchShow returns the show detail including its stage records.
func (c *Client) FetchShow(ctx context.Context, showID string) (*timeline.Show, error) {
	env, err := c.do(ctx, opFetchShow, http.MethodGet, c.endpoint(c.showDetailPath, showID), nil)
	if err != nil {
		return nil, err
	}
	show, err := decodeShow(env.Data, c.location)
	if err != nil {
		c.logger.Warn(ctx, "show detail rejected", logger.String("show_id", showID), logger.Error(err))
		return nil, err
	}
	if show.ID == "" {
		show.ID = showID
	}
	return show, nil
}

// UpdateStatuses replaces the show's whole stage list with records.
func (c *Client) UpdateStatuses(ctx context.Context, showID string, records []timeline.ServerStage) error {
	if records == nil {
		records = []timeline.ServerStage{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode status update: %w", err)
	}
	_, err = c.do(ctx, opUpdateStatuses, http.MethodPut, c.endpoint(c.statusUpdatePath, showID), body)
	return err
}

func (c *Client) endpoint(template, showID string) string {
	return c.baseURL + strings.ReplaceAll(template, showIDPlaceholder, url.PathEscape(showID))
}

// do executes one request with method-based timeout, request-id forwarding,
// error mapping and metrics, and returns the decoded response envelope. An
// empty 2xx body yields an empty envelope. A failure reported inside the
// envelope's statusCode is mapped like the HTTP status would be.
func (c *Client) do(ctx context.Context, op, method, target string, body []byte) (*envelope, error) {
	timeout := c.readTimeout
	if method != http.MethodGet {
		timeout = c.writeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	reqID := middleware.GetReqID(ctx)
	if reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		mapped := mapTransportError(err)
		c.observe(ctx, op, method, target, reqID, 0, elapsed, mapped)
		return nil, mapped
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		mapped := decodeError(resp)
		c.observe(ctx, op, method, target, reqID, resp.StatusCode, elapsed, mapped)
		return nil, mapped
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		mapped := fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		c.observe(ctx, op, method, target, reqID, resp.StatusCode, elapsed, mapped)
		return nil, mapped
	}
	if env.StatusCode != 0 && (env.StatusCode < 200 || env.StatusCode > 299) {
		mapped := statusError(env.StatusCode, env.Message)
		c.observe(ctx, op, method, target, reqID, env.StatusCode, elapsed, mapped)
		return nil, mapped
	}
	c.observe(ctx, op, method, target, reqID, resp.StatusCode, elapsed, nil)
	return &env, nil
}

func (c *Client) observe(ctx context.Context, op, method, target, reqID string, status int, elapsed time.Duration, err error) {
	outcome := metrics.UpstreamOK
	if err != nil {
		outcome = metrics.UpstreamError
	}
	metrics.RecordUpstreamRequest(op, outcome, float64(elapsed.Milliseconds()))

	fields := []logger.Field{
		logger.String("op", op),
		logger.String("method", method),
		logger.String("url", target),
		logger.String("request_id", reqID),
		logger.Int("status", status),
		logger.Duration("duration", elapsed),
	}
	if err != nil {
		metrics.RecordErrorByComponent("showapi", errorKind(err))
		c.logger.Warn(ctx, "show api request failed", append(fields, logger.Error(err))...)
		return
	}
	c.logger.Debug(ctx, "show api request completed", fields...)
}

func mapTransportError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func decodeError(resp *http.Response) error {
	var msg string
	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&env); err == nil {
		msg = env.Message
	}
	return statusError(resp.StatusCode, msg)
}

func statusError(code int, msg string) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	if msg == "" {
		msg = fmt.Sprintf("unexpected status: %d", code)
	}
	return &StatusError{StatusCode: code, Message: msg}
}

// errorKind is the error_type label for a failed call.
func errorKind(err error) string {
	var se *StatusError
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.As(err, &se):
		return "status"
	}
	return "other"
}
