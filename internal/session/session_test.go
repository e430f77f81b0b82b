package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/thatjpcsguy/fleetctl/internal/api"
	"github.com/thatjpcsguy/fleetctl/internal/credstore"
)

type fakeBackend struct {
	token       string
	loginErr    error
	registerErr error
	registered  []api.Credentials
}

func (f *fakeBackend) Login(ctx context.Context, creds api.Credentials) (*api.Token, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.Token{AccessToken: f.token, TokenType: "bearer"}, nil
}

func (f *fakeBackend) Register(ctx context.Context, creds api.Credentials) (*api.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, creds)
	return &api.User{ID: 1, Username: creds.Username, Role: "user"}, nil
}

type countingNavigator struct {
	redirects int
}

func (n *countingNavigator) RedirectToLogin() {
	n.redirects++
}

type failingStore struct {
	credstore.MemoryStore
}

func (f *failingStore) Set(string) error {
	return errors.New("disk full")
}

func signedToken(t *testing.T, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestNewLoadsStoredToken(t *testing.T) {
	store := credstore.NewMemoryStore("existing")
	c := New(Options{Backend: &fakeBackend{}, Tokens: store})

	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "existing", c.Token())
}

func TestLoginPersistsToken(t *testing.T) {
	store := credstore.NewMemoryStore("")
	c := New(Options{Backend: &fakeBackend{token: "new-token"}, Tokens: store})
	require.False(t, c.IsAuthenticated())

	assert.True(t, c.Login(context.Background(), api.Credentials{Username: "alice", Password: "pw"}))
	assert.True(t, c.IsAuthenticated())

	stored, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "new-token", stored)
}

func TestLoginFailureKeepsPriorState(t *testing.T) {
	store := credstore.NewMemoryStore("old")
	core, logs := observer.New(zapcore.WarnLevel)
	backend := &fakeBackend{loginErr: &api.AuthError{Message: "Incorrect username or password"}}
	c := New(Options{Backend: backend, Tokens: store, Logger: zap.New(core)})

	assert.False(t, c.Login(context.Background(), api.Credentials{Username: "alice", Password: "bad"}))
	assert.Equal(t, "old", c.Token())

	stored, _ := store.Get()
	assert.Equal(t, "old", stored)
	assert.Equal(t, 1, logs.FilterMessage("login failed").Len())
}

type loginSurface struct {
	countingNavigator
}

func (loginSurface) OnLoginSurface() bool { return true }

func TestLoginRejectedWith401FollowsPurgedStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))
	defer server.Close()

	store := credstore.NewMemoryStore("previous")
	nav := &loginSurface{}
	client, err := api.New(api.Options{BaseURL: server.URL, Tokens: store, Navigator: nav})
	require.NoError(t, err)

	c := New(Options{Backend: client, Tokens: store, Navigator: nav})
	require.True(t, c.IsAuthenticated())

	assert.False(t, c.Login(context.Background(), api.Credentials{Username: "alice", Password: "bad"}))

	stored, err := store.Get()
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, c.Token())
	assert.False(t, c.IsAuthenticated())
	assert.Zero(t, nav.redirects, "no redirect while logging in")
}

func TestLoginFailsWhenTokenCannotBePersisted(t *testing.T) {
	c := New(Options{Backend: &fakeBackend{token: "t"}, Tokens: &failingStore{}})

	assert.False(t, c.Login(context.Background(), api.Credentials{Username: "a", Password: "b"}))
	assert.False(t, c.IsAuthenticated())
}

func TestRegister(t *testing.T) {
	backend := &fakeBackend{}
	store := credstore.NewMemoryStore("")
	c := New(Options{Backend: backend, Tokens: store})

	assert.True(t, c.Register(context.Background(), api.Credentials{Username: "bob", Password: "pw"}))
	assert.Len(t, backend.registered, 1)
	// registering does not sign in
	assert.False(t, c.IsAuthenticated())

	backend.registerErr = &api.RequestError{StatusCode: 400, Message: "Username already registered"}
	assert.False(t, c.Register(context.Background(), api.Credentials{Username: "bob", Password: "pw"}))
}

func TestLogout(t *testing.T) {
	store := credstore.NewMemoryStore("tok")
	nav := &countingNavigator{}
	purged := 0
	c := New(Options{
		Backend:   &fakeBackend{},
		Tokens:    store,
		Navigator: nav,
		OnLogout:  func() { purged++ },
	})
	require.True(t, c.IsAuthenticated())

	c.Logout()

	assert.False(t, c.IsAuthenticated())
	stored, _ := store.Get()
	assert.Empty(t, stored)
	assert.Equal(t, 1, purged)
	assert.Equal(t, 1, nav.redirects)
}

func TestSyncObservesExternalPurge(t *testing.T) {
	store := credstore.NewMemoryStore("tok")
	c := New(Options{Backend: &fakeBackend{}, Tokens: store})
	require.True(t, c.IsAuthenticated())

	// the API client clears the store on 401
	require.NoError(t, store.Clear())
	assert.True(t, c.IsAuthenticated())

	c.Sync()
	assert.False(t, c.IsAuthenticated())
}

func TestClaims(t *testing.T) {
	expires := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	store := credstore.NewMemoryStore(signedToken(t, "alice", expires))
	c := New(Options{Backend: &fakeBackend{}, Tokens: store})

	claims, err := c.Claims()
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(expires))
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(expires.Add(time.Minute)))
}

func TestClaimsErrors(t *testing.T) {
	c := New(Options{Backend: &fakeBackend{}, Tokens: credstore.NewMemoryStore("")})
	_, err := c.Claims()
	assert.ErrorContains(t, err, "not logged in")

	c = New(Options{Backend: &fakeBackend{}, Tokens: credstore.NewMemoryStore("not-a-jwt")})
	_, err = c.Claims()
	assert.ErrorContains(t, err, "failed to decode token")
}
