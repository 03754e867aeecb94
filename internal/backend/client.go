// Package backend is a typed client for the gesture recognition HTTP service.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Endpoint paths exposed by the recognition service.
const (
	PathRoot      = "/"
	PathHealth    = "/health"
	PathStart     = "/start_webcam"
	PathStop      = "/stop_webcam"
	PathVideoFeed = "/video_feed"
	PathGetWord   = "/get_word"
	PathAddSpace  = "/add_space"
	PathDelete    = "/delete_char"
	PathClear     = "/clear_word"
)

const maxErrorBody = 4 << 10

var (
	// ErrNotReady is returned by Health when the service answers 503.
	ErrNotReady = errors.New("backend models not loaded")
	// ErrNoFrame is returned by Snapshot when the feed ends before a JPEG part.
	ErrNoFrame = errors.New("no frame in video feed")
)

// StatusError reports a non-2xx answer.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Status, e.Body)
}

// Result is the body of start, stop and clear.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WordResult is the body of add_space and delete_char.
type WordResult struct {
	Success bool
	Word    string
}

// Health is the body of /health.
type Health struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
}

// wordBody accepts both the legacy "word" field and the newer "current_word".
type wordBody struct {
	Success     bool   `json:"success"`
	Word        string `json:"word"`
	CurrentWord string `json:"current_word"`
}

func (b wordBody) word() string {
	if b.Word != "" {
		return b.Word
	}
	return b.CurrentWord
}

// Client talks to one backend base URL.
type Client struct {
	base       string
	http       *http.Client
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	userAgent  string
	logger     logrus.FieldLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request attempt. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets how many extra attempts GET requests get.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = max(0, n)
		c.retryDelay = delay
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New returns a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		base:      strings.TrimRight(u.String(), "/"),
		http:      &http.Client{},
		userAgent: "handword",
		logger:    discard,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.base }

// VideoFeedURL is the MJPEG stream a viewer binds to directly.
func (c *Client) VideoFeedURL() string { return c.base + PathVideoFeed }

// Probe checks reachability by fetching the service root. Any JSON value
// counts as a live service.
func (c *Client) Probe(ctx context.Context) (any, error) {
	var out any
	if err := c.do(ctx, http.MethodGet, PathRoot, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Version returns the "version" field of a Probe answer, or "".
func Version(info any) string {
	m, ok := info.(map[string]any)
	if !ok {
		return ""
	}
	v, _ := m["version"].(string)
	return v
}

// Health queries /health. A 503 means the models are still loading.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, PathHealth, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusServiceUnavailable {
		return Health{}, ErrNotReady
	}
	return out, err
}

// StartWebcam asks the service to open its camera.
func (c *Client) StartWebcam(ctx context.Context) (Result, error) {
	var out Result
	err := c.do(ctx, http.MethodPost, PathStart, &out)
	return out, err
}

// StopWebcam asks the service to release its camera.
func (c *Client) StopWebcam(ctx context.Context) (Result, error) {
	var out Result
	err := c.do(ctx, http.MethodPost, PathStop, &out)
	return out, err
}

// GetWord returns the word currently being composed, possibly empty.
func (c *Client) GetWord(ctx context.Context) (string, error) {
	var out wordBody
	if err := c.do(ctx, http.MethodGet, PathGetWord, &out); err != nil {
		return "", err
	}
	return out.word(), nil
}

// AddSpace appends a space to the server-side word.
func (c *Client) AddSpace(ctx context.Context) (WordResult, error) {
	return c.wordCommand(ctx, PathAddSpace)
}

// DeleteChar removes the last character of the server-side word.
func (c *Client) DeleteChar(ctx context.Context) (WordResult, error) {
	return c.wordCommand(ctx, PathDelete)
}

// ClearWord empties the server-side word.
func (c *Client) ClearWord(ctx context.Context) (Result, error) {
	var out Result
	err := c.do(ctx, http.MethodPost, PathClear, &out)
	return out, err
}

func (c *Client) wordCommand(ctx context.Context, path string) (WordResult, error) {
	var out wordBody
	if err := c.do(ctx, http.MethodPost, path, &out); err != nil {
		return WordResult{}, err
	}
	return WordResult{Success: out.Success, Word: out.word()}, nil
}

// do runs one request. Only GETs are retried; commands must not be replayed.
func (c *Client) do(ctx context.Context, method, path string, out any) error {
	attempts := 1
	if method == http.MethodGet {
		attempts += c.retries
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(c.retryDelay):
			}
		}
		lastErr = c.once(ctx, method, path, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, out any) error {
	resp, cancel, err := c.send(ctx, method, path)
	if err != nil {
		if method != http.MethodGet && out != nil && c.commandReply(err, out) {
			return nil
		}
		return err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &decodeError{path: path, err: err}
	}
	return nil
}

// send issues the request and checks the status. The caller owns the body and
// must call cancel once it is done reading.
func (c *Client) send(ctx context.Context, method, path string) (*http.Response, context.CancelFunc, error) {
	reqCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.base+path, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	log := c.logger.WithFields(logrus.Fields{"method": method, "path": path, "request_id": reqID})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		log.WithError(err).Debug("request failed")
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	log.WithField("status", resp.StatusCode).WithField("elapsed", time.Since(start)).Debug("request done")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		cancel()
		return nil, nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   strings.TrimSpace(string(body)),
		}
	}
	return resp, cancel, nil
}

// commandReply decodes the JSON object carried by a non-2xx command answer
// into out, so an explicit success:false keeps its message. Bodies that are
// not a JSON object leave the StatusError in place.
func (c *Client) commandReply(err error, out any) bool {
	var se *StatusError
	if !errors.As(err, &se) || !strings.HasPrefix(se.Body, "{") {
		return false
	}
	if json.Unmarshal([]byte(se.Body), out) != nil {
		return false
	}
	c.logger.WithFields(logrus.Fields{"path": se.Path, "status": se.Code}).Debug("command answered with non-2xx JSON body")
	return true
}

type decodeError struct {
	path string
	err  error
}

func (e *decodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.path, e.err) }
func (e *decodeError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var de *decodeError
	if errors.As(err, &de) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return true
}
