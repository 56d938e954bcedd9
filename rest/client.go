// Package rest implements the authenticated request pipeline of the SDK.
//
// Every logical operation funnels through Client.Do: URL and query
// construction, credential attachment, per-call timeout, failure
// classification, and the single refresh-and-retry pass on a 401.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/craterhq/crater-go/logging"
	"github.com/google/uuid"
)

// TenantHeader carries the tenant identifier on every authenticated request.
const TenantHeader = "X-Crater-Tenant"

const defaultTimeout = 30 * time.Second

// Credentials supplies the pipeline with tokens and refresh behavior.
// Implemented by the auth package; a nil Credentials disables authentication.
type Credentials interface {
	// AccessToken returns the token to attach as a bearer credential, or ""
	// when no header should be attached (cookie mode, logged out).
	AccessToken(ctx context.Context) (string, error)

	// Tenant returns the currently selected tenant, or "" when none is set.
	Tenant(ctx context.Context) (string, error)

	// EnsureFresh refreshes the stored token if it is about to expire.
	// Its error is advisory: the pipeline proceeds with whatever credential
	// is stored and defers to the 401 path.
	EnsureFresh(ctx context.Context) error

	// Refresh runs one coordinated refresh episode. Concurrent callers share
	// a single network refresh call and its outcome.
	Refresh(ctx context.Context) error
}

type Client struct {
	baseURL     string
	http        *http.Client
	timeout     time.Duration
	creds       Credentials
	autoRefresh bool
	onAuthLost  func()
	logger      logging.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Cookie-mode callers
// use this to install a client with a cookie jar.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithAutoRefresh enables or disables automatic token refresh. Defaults to
// enabled.
func WithAutoRefresh(enabled bool) Option {
	return func(c *Client) { c.autoRefresh = enabled }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:        &http.Client{},
		timeout:     defaultTimeout,
		autoRefresh: true,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetCredentials installs the credential source. Called once during client
// assembly; the auth package needs the pipeline to exist before it can be
// constructed, hence the two-step wiring.
func (c *Client) SetCredentials(creds Credentials) {
	c.creds = creds
}

// OnAuthLost registers the notification fired when a request fails with 401
// after the refresh-and-retry pass is exhausted.
func (c *Client) OnAuthLost(fn func()) {
	c.onAuthLost = fn
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOptions customizes a single call through the pipeline.
type RequestOptions struct {
	// Params is the query parameter bag. Non-scalar values are serialized to
	// their canonical JSON form before encoding.
	Params map[string]any

	// Headers are merged last so callers can override defaults.
	Headers map[string]string

	// Body is JSON-marshaled when non-nil. Ignored when RawBody is set.
	Body any

	// RawBody sends the given bytes with the given content type. An empty
	// content type omits the header so the transport can set its own
	// (multipart boundaries).
	RawBody     []byte
	ContentType string

	// SkipAuth bypasses credential attachment and the refresh paths.
	SkipAuth bool

	// Timeout overrides the client default for this call only.
	Timeout time.Duration
}

// Do executes one request through the pipeline and decodes a JSON response
// body into out (when out is non-nil and the response carries content).
func (c *Client) Do(ctx context.Context, method, path string, opts *RequestOptions, out any) error {
	if opts == nil {
		opts = &RequestOptions{}
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	query, err := encodeParams(opts.Params)
	if err != nil {
		return err
	}
	if query != "" {
		target += "?" + query
	}

	bodyBytes, contentType, err := c.encodeBody(opts)
	if err != nil {
		return err
	}

	authenticated := !opts.SkipAuth && c.creds != nil

	// Proactive pre-expiry refresh. A failure here is swallowed: the call
	// proceeds with the stored credential and defers to the 401 path.
	if authenticated && c.autoRefresh {
		if err := c.creds.EnsureFresh(ctx); err != nil {
			c.logger.Warn(ctx, "proactive token refresh failed, continuing with stored credential", "error", err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, payload, err := c.execute(ctx, method, target, bodyBytes, contentType, opts.Headers, authenticated)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && authenticated && c.autoRefresh {
		if err := c.creds.Refresh(ctx); err != nil {
			c.notifyAuthLost()
			return err
		}
		resp, payload, err = c.execute(ctx, method, target, bodyBytes, contentType, opts.Headers, authenticated)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.notifyAuthLost()
			return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
		}
	} else if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serverErrorFrom(resp.StatusCode, payload)
	}

	if resp.StatusCode == http.StatusNoContent || out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode response for %s %s: %w", method, path, err)
	}
	return nil
}

// execute performs a single network attempt: build the request, attach
// headers, run it, and read the body. Credential headers are resolved per
// attempt so the retry after a refresh sees the new token.
func (c *Client) execute(
	ctx context.Context,
	method, target string,
	body []byte,
	contentType string,
	headers map[string]string,
	authenticated bool,
) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	if authenticated {
		token, err := c.creds.AccessToken(ctx)
		if err != nil {
			return nil, nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		tenant, err := c.creds.Tenant(ctx)
		if err != nil {
			return nil, nil, err
		}
		if tenant != "" {
			req.Header.Set(TenantHeader, tenant)
		}
	}

	// Caller headers win over defaults.
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%s %s: %w", method, target, ErrTimeout)
		}
		if errors.Is(err, context.Canceled) {
			return nil, nil, ctx.Err()
		}
		return nil, nil, &NetworkError{Err: err}
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, nil, &NetworkError{Err: readErr}
	}
	return resp, payload, nil
}

func (c *Client) encodeBody(opts *RequestOptions) ([]byte, string, error) {
	if opts.RawBody != nil {
		return opts.RawBody, opts.ContentType, nil
	}
	if opts.Body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request body: %w", err)
	}
	return data, "application/json", nil
}

func (c *Client) notifyAuthLost() {
	if c.onAuthLost != nil {
		c.onAuthLost()
	}
}

func serverErrorFrom(status int, payload []byte) error {
	serr := &ServerError{Status: status}
	var parsed struct {
		Code    string       `json:"code"`
		Message string       `json:"message"`
		Details []FieldError `json:"details"`
	}
	if err := json.Unmarshal(payload, &parsed); err == nil {
		serr.Code = parsed.Code
		serr.Message = parsed.Message
		serr.Details = parsed.Details
	}
	return serr
}
