package greetd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("connection refused")

// failingStore reports every operation as failed, standing in for a
// backend outage.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) { return "", errStoreDown }
func (failingStore) Set(context.Context, string, string) error   { return errStoreDown }
func (failingStore) Delete(context.Context, string) error        { return errStoreDown }
func (failingStore) Ping(context.Context) error                  { return errStoreDown }
func (failingStore) Close() error                                { return nil }

func serverTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Auth.Secret = testSecret
	cfg.RateLimit.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *Config, store Store) http.Handler {
	t.Helper()

	srv := NewServer(cfg, store)
	t.Cleanup(srv.Close)

	return srv.Handler()
}

// exec runs one request through the handler and returns the recorder.
func exec(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestServerHelloDefaultGreeting(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, serverTestConfig(), NewMemoryStore())

	rec := exec(handler, http.MethodGet, "/hello/world", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello, world!", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestServerHelloEscapedName(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, serverTestConfig(), NewMemoryStore())

	rec := exec(handler, http.MethodGet, "/hello/Jon%20Davis", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello, Jon Davis!", rec.Body.String())
}

func TestServerHelloUnknownLanguage(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, serverTestConfig(), NewMemoryStore())

	rec := exec(handler, http.MethodGet, "/hello/world?lang=fr", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no greeting stored for language fr", rec.Body.String())
}

func TestServerGreetingLifecycle(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, serverTestConfig(), NewMemoryStore())
	token := signToken(t, testSecret, "greetd", "admin", time.Hour)

	// Store a French greeting.
	rec := exec(handler, http.MethodPut, "/greeting/fr", "Bonjour", bearer(token))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The hello endpoint picks it up.
	rec = exec(handler, http.MethodGet, "/hello/monde?lang=fr", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bonjour, monde!", rec.Body.String())

	// So does the admin read.
	rec = exec(handler, http.MethodGet, "/greeting/fr", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bonjour", rec.Body.String())

	// Delete it again.
	rec = exec(handler, http.MethodDelete, "/greeting/fr", "", bearer(token))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = exec(handler, http.MethodGet, "/greeting/fr", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerStoredDefaultWinsOverConfigured(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "en", "Howdy"))

	handler := newTestServer(t, serverTestConfig(), store)

	rec := exec(handler, http.MethodGet, "/hello/world", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Howdy, world!", rec.Body.String())
}

func TestServerMutationsRequireToken(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, serverTestConfig(), NewMemoryStore())

	rec := exec(handler, http.MethodPut, "/greeting/fr", "Bonjour", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing bearer token", rec.Body.String())

	rec = exec(handler, http.MethodDelete, "/greeting/fr", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	badToken := signToken(t, "wrong-secret", "greetd", "admin", time.Hour)
	rec = exec(handler, http.MethodPut, "/greeting/fr", "Bonjour", bearer(badToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", rec.Body.String())
}

func TestServerPutGreetingRejectsBadBodies(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, serverTestConfig(), NewMemoryStore())
	token := signToken(t, testSecret, "greetd", "admin", time.Hour)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty body", body: "", want: "empty greeting"},
		{name: "whitespace only", body: "   \n", want: "empty greeting"},
		{name: "too long", body: strings.Repeat("x", maxGreetingLen+1), want: "greeting too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := exec(handler, http.MethodPut, "/greeting/fr", tt.body, bearer(token))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestServerHealthz(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, serverTestConfig(), NewMemoryStore())

	rec := exec(handler, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServerStatusFallbacks(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, serverTestConfig(), NewMemoryStore())

	// Known path, wrong method.
	rec := exec(handler, http.MethodPost, "/hello/world", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// Unknown path.
	rec = exec(handler, http.MethodGet, "/nothing/here", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerStoreOutage(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, serverTestConfig(), failingStore{})
	token := signToken(t, testSecret, "greetd", "admin", time.Hour)

	for _, tt := range []struct {
		name   string
		method string
		target string
		body   string
		auth   map[string]string
	}{
		{name: "hello", method: http.MethodGet, target: "/hello/world"},
		{name: "get greeting", method: http.MethodGet, target: "/greeting/en"},
		{name: "put greeting", method: http.MethodPut, target: "/greeting/en", body: "Hi", auth: bearer(token)},
		{name: "delete greeting", method: http.MethodDelete, target: "/greeting/en", auth: bearer(token)},
		{name: "healthz", method: http.MethodGet, target: "/healthz"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := exec(handler, tt.method, tt.target, tt.body, tt.auth)

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, "greeting store unavailable", rec.Body.String())
		})
	}
}

func TestServerRateLimit(t *testing.T) {
	t.Parallel()

	cfg := serverTestConfig()
	cfg.RateLimit = RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}

	handler := newTestServer(t, cfg, NewMemoryStore())

	rec := exec(handler, http.MethodGet, "/hello/world", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = exec(handler, http.MethodGet, "/hello/world", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", rec.Body.String())

	// Reads of stored greetings are not limited.
	rec = exec(handler, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerApplyConfig(t *testing.T) {
	t.Parallel()

	cfg := serverTestConfig()
	cfg.RateLimit = RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}

	srv := NewServer(cfg, NewMemoryStore())
	t.Cleanup(srv.Close)
	handler := srv.Handler()

	rec := exec(handler, http.MethodGet, "/hello/world", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Hello, world!", rec.Body.String())

	rec = exec(handler, http.MethodGet, "/hello/world", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	next := serverTestConfig()
	next.DefaultGreeting = "Greetings"
	next.RateLimit = RateLimitConfig{Enabled: false, RPS: 100, Burst: 10}
	srv.ApplyConfig(next)

	rec = exec(handler, http.MethodGet, "/hello/world", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Greetings, world!", rec.Body.String())
}

func TestServerKeepsCallerRequestID(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, serverTestConfig(), NewMemoryStore())

	rec := exec(handler, http.MethodGet, "/healthz", "", map[string]string{
		RequestIDHeader: "trace-me",
	})

	assert.Equal(t, "trace-me", rec.Header().Get(RequestIDHeader))
}
