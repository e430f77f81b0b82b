// Package session owns the login state of the CLI user.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/thatjpcsguy/fleetctl/internal/api"
)

// Backend is the subset of the API client used for authentication
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (*api.Token, error)
	Register(ctx context.Context, creds api.Credentials) (*api.User, error)
}

// Redirector receives the navigate-to-login intent raised by logout
type Redirector interface {
	RedirectToLogin()
}

// Options configures a Controller
type Options struct {
	Backend   Backend
	Tokens    api.TokenStore
	Navigator Redirector
	// OnLogout purges data cached for the signed-out user
	OnLogout func()
	Logger   *zap.Logger
}

// Controller tracks the bearer token in memory and in the credential store
type Controller struct {
	backend  Backend
	tokens   api.TokenStore
	nav      Redirector
	onLogout func()
	logger   *zap.Logger

	mu    sync.RWMutex
	token string
}

// New creates a controller and loads any token already in the store
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		backend:  opts.Backend,
		tokens:   opts.Tokens,
		nav:      opts.Navigator,
		onLogout: opts.OnLogout,
		logger:   logger.With(zap.String("component", "session")),
	}
	c.Sync()
	return c
}

// Login exchanges credentials for a token and persists it. On failure the
// session is left as the store holds it: unchanged, unless the backend
// answered 401 and the client purged the stored token.
func (c *Controller) Login(ctx context.Context, creds api.Credentials) bool {
	token, err := c.backend.Login(ctx, creds)
	if err != nil {
		c.logger.Warn("login failed", zap.String("username", creds.Username), zap.Error(err))
		c.Sync()
		return false
	}

	if err := c.tokens.Set(token.AccessToken); err != nil {
		c.logger.Error("failed to persist token", zap.Error(err))
		return false
	}

	c.mu.Lock()
	c.token = token.AccessToken
	c.mu.Unlock()

	c.logger.Debug("logged in", zap.String("username", creds.Username))
	return true
}

// Register creates an account. It does not log in.
func (c *Controller) Register(ctx context.Context, creds api.Credentials) bool {
	if _, err := c.backend.Register(ctx, creds); err != nil {
		c.logger.Warn("registration failed", zap.String("username", creds.Username), zap.Error(err))
		return false
	}
	return true
}

// Logout forgets the token, purges cached data and signals the redirect to
// login
func (c *Controller) Logout() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	if err := c.tokens.Clear(); err != nil {
		c.logger.Error("failed to clear stored token", zap.Error(err))
	}
	if c.onLogout != nil {
		c.onLogout()
	}
	if c.nav != nil {
		c.nav.RedirectToLogin()
	}
}

// IsAuthenticated reports whether a token is held in memory
func (c *Controller) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// Token returns the in-memory token
func (c *Controller) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Sync reloads the token from the store, picking up a purge made by the
// API client after a 401
func (c *Controller) Sync() {
	token, err := c.tokens.Get()
	if err != nil {
		c.logger.Warn("failed to read stored token", zap.Error(err))
		token = ""
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Claims is the part of the access token shown to the user
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carried an expiry that has passed
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the token without verifying its signature; the backend is
// the only party that can verify it
func (c *Controller) Claims() (*Claims, error) {
	token := c.Token()
	if token == "" {
		return nil, fmt.Errorf("not logged in")
	}

	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	claims := &Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}
