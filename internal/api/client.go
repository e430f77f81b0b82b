package api

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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every outbound call
const DefaultTimeout = 10 * time.Second

// TokenStore is the persistent bearer token storage the client reads from
// and purges on 401
type TokenStore interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
}

// Navigator receives the login-redirect intent raised by a 401. The client
// never acts on the UI itself.
type Navigator interface {
	// OnLoginSurface reports whether the caller is already on the login flow,
	// in which case no redirect is signaled.
	OnLoginSurface() bool
	RedirectToLogin()
}

// Options configures a Client
type Options struct {
	// BaseURL is the API root including the version prefix, e.g.
	// http://localhost:8000/api/v1
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenStore
	Navigator  Navigator
	Logger     *zap.Logger
	HTTPClient *http.Client
}

// Client performs authenticated requests against the fleet backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	nav        Navigator
	logger     *zap.Logger
}

// New creates a client
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", opts.BaseURL)
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     opts.Tokens,
		nav:        opts.Navigator,
		logger:     logger.With(zap.String("component", "api")),
	}, nil
}

// Send performs a request and decodes a 2xx JSON response into out (if
// non-nil). A url.Values body is sent form-urlencoded, anything else as JSON.
//
// Failures are classified as *AuthError (401, token purged), *RequestError
// (other non-2xx) or *NetworkError (no response).
func (c *Client) Send(ctx context.Context, method, path string, body any, query url.Values, out any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	token, err := c.tokens.Get()
	if err != nil {
		c.logger.Warn("failed to read token, sending unauthenticated", zap.Error(err))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("request failed without response", zap.Error(err))
		return &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	log.Debug("request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized()
		msg := extractMessage(respBody)
		if msg == defaultErrorMessage {
			msg = ""
		}
		return &AuthError{Message: msg}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(respBody),
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// handleUnauthorized purges the stored token and signals the login redirect
// unless the caller is already logging in
func (c *Client) handleUnauthorized() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("failed to purge token after 401", zap.Error(err))
	}
	if c.nav != nil && !c.nav.OnLoginSurface() {
		c.nav.RedirectToLogin()
	}
}
