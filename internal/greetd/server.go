package greetd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/Jon-Davis/http-tools/dispatch"
	"github.com/Jon-Davis/http-tools/observability"
	"github.com/Jon-Davis/http-tools/request"
	"github.com/Jon-Davis/http-tools/response"
)

// defaultLang is the language served when the client does not ask for one.
const defaultLang = "en"

// maxGreetingLen bounds the stored greeting text.
const maxGreetingLen = 256

// Server wires the greeting endpoints into a dispatch.Mux.
type Server struct {
	store    Store
	verifier *TokenVerifier
	limiter  *RateLimiter
	logger   observability.Logger
	metrics  *dispatch.Metrics
	tracer   trace.Tracer
	mux      *dispatch.Mux

	mu              sync.RWMutex
	defaultGreeting string
	rateLimitOn     bool
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server's logger.
func WithServerLogger(logger observability.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServerMetrics attaches dispatch metrics.
func WithServerMetrics(m *dispatch.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithServerTracer traces handler invocations.
func WithServerTracer(t trace.Tracer) ServerOption {
	return func(s *Server) {
		s.tracer = t
	}
}

// NewServer creates the greeting server with its routes registered.
func NewServer(cfg *Config, store Store, opts ...ServerOption) *Server {
	s := &Server{
		store:           store,
		logger:          observability.NopLogger(),
		defaultGreeting: cfg.DefaultGreeting,
		rateLimitOn:     cfg.RateLimit.Enabled,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.verifier = NewTokenVerifier(cfg.Auth, WithVerifierLogger(s.logger))
	s.limiter = NewRateLimiter(cfg.RateLimit)

	s.mux = dispatch.NewMux(
		dispatch.WithStatusFallback(),
		dispatch.WithLogger(s.logger),
		dispatch.WithMetrics(s.metrics),
		dispatch.WithTracer(s.tracer),
	)

	s.mux.Handle("hello", func(req *http.Request) request.Chain {
		return request.Filter(req).
			Method(http.MethodGet).
			Path("/hello/{}")
	}, s.handleHello)

	s.mux.Handle("get-greeting", func(req *http.Request) request.Chain {
		return request.Filter(req).
			Method(http.MethodGet).
			Path("/greeting/{}")
	}, s.handleGetGreeting)

	s.mux.Handle("put-greeting", func(req *http.Request) request.Chain {
		return request.Filter(req).
			Method(http.MethodPut).
			Path("/greeting/{}")
	}, s.handlePutGreeting)

	s.mux.Handle("delete-greeting", func(req *http.Request) request.Chain {
		return request.Filter(req).
			Method(http.MethodDelete).
			Path("/greeting/{}")
	}, s.handleDeleteGreeting)

	s.mux.Handle("healthz", func(req *http.Request) request.Chain {
		return request.Filter(req).
			Method(http.MethodGet).
			Path("/healthz")
	}, s.handleHealthz)

	return s
}

// Handler returns the full HTTP handler with request ID and access
// logging applied around the dispatcher.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = AccessLog(s.logger)(h)
	h = RequestID()(h)
	return h
}

// Mux returns the underlying dispatcher.
func (s *Server) Mux() *dispatch.Mux {
	return s.mux
}

// ApplyConfig applies the reloadable parts of a new configuration: the
// default greeting and the rate limit. Store backend and auth changes
// require a restart.
func (s *Server) ApplyConfig(cfg *Config) {
	s.mu.Lock()
	s.defaultGreeting = cfg.DefaultGreeting
	s.rateLimitOn = cfg.RateLimit.Enabled
	s.mu.Unlock()

	s.limiter.Update(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	s.logger.Info("configuration applied",
		observability.String("default_greeting", cfg.DefaultGreeting),
		observability.Bool("rate_limit", cfg.RateLimit.Enabled),
		observability.Int("rps", cfg.RateLimit.RPS),
	)
}

// Close releases server resources. The store is owned by the caller and
// closed separately.
func (s *Server) Close() {
	s.limiter.Stop()
}

// handleHello greets the caller by name, in the requested language.
func (s *Server) handleHello(ctx context.Context, req *http.Request) (*http.Response, error) {
	if s.limitEnabled() && !s.limiter.Allow(clientIP(req)) {
		return nil, response.NewStatusError(http.StatusTooManyRequests, "rate limit exceeded")
	}

	name, ok := request.Filter(req).Path("/hello/{}").Var(1)
	if !ok {
		return nil, response.NewStatusError(http.StatusInternalServerError, "path variable missing")
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	lang := queryValue(req, "lang")
	if lang == "" {
		lang = defaultLang
	}

	greeting, err := s.lookupGreeting(ctx, lang)
	if err != nil {
		return nil, err
	}

	return response.New(http.StatusOK, greeting+", "+name+"!"), nil
}

// lookupGreeting resolves the greeting for a language, falling back to
// the configured default for the default language.
func (s *Server) lookupGreeting(ctx context.Context, lang string) (string, error) {
	greeting, err := s.store.Get(ctx, lang)
	switch {
	case err == nil:
		return greeting, nil
	case isNotFound(err):
		if lang == defaultLang {
			return s.currentDefault(), nil
		}
		return "", response.NewStatusError(http.StatusNotFound,
			"no greeting stored for language "+lang)
	default:
		return "", storeUnavailable(err)
	}
}

// handleGetGreeting returns the stored greeting for a language.
func (s *Server) handleGetGreeting(ctx context.Context, req *http.Request) (*http.Response, error) {
	lang, err := langFromPath(req, "/greeting/{}")
	if err != nil {
		return nil, err
	}

	greeting, err := s.store.Get(ctx, lang)
	switch {
	case err == nil:
		return response.New(http.StatusOK, greeting), nil
	case isNotFound(err):
		return nil, response.NewStatusError(http.StatusNotFound,
			"no greeting stored for language "+lang)
	default:
		return nil, storeUnavailable(err)
	}
}

// handlePutGreeting stores the greeting carried in the request body.
func (s *Server) handlePutGreeting(ctx context.Context, req *http.Request) (*http.Response, error) {
	subject, err := s.verifier.Authorize(req)
	if err != nil {
		return nil, err
	}

	lang, err := langFromPath(req, "/greeting/{}")
	if err != nil {
		return nil, err
	}

	greeting, err := readGreeting(req.Body)
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, lang, greeting); err != nil {
		return nil, storeUnavailable(err)
	}

	s.logger.WithContext(ctx).Info("greeting updated",
		observability.String("lang", lang),
		observability.String("subject", subject),
	)

	return response.New(http.StatusNoContent, ""), nil
}

// handleDeleteGreeting removes the stored greeting for a language.
func (s *Server) handleDeleteGreeting(ctx context.Context, req *http.Request) (*http.Response, error) {
	subject, err := s.verifier.Authorize(req)
	if err != nil {
		return nil, err
	}

	lang, err := langFromPath(req, "/greeting/{}")
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, lang); err != nil {
		return nil, storeUnavailable(err)
	}

	s.logger.WithContext(ctx).Info("greeting deleted",
		observability.String("lang", lang),
		observability.String("subject", subject),
	)

	return response.New(http.StatusNoContent, ""), nil
}

// handleHealthz reports liveness, checking the store on the way.
func (s *Server) handleHealthz(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := s.store.Ping(ctx); err != nil {
		return nil, storeUnavailable(err)
	}
	return response.New(http.StatusOK, "ok"), nil
}

// currentDefault returns the configured default greeting.
func (s *Server) currentDefault() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultGreeting
}

// limitEnabled reports whether rate limiting is currently on.
func (s *Server) limitEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rateLimitOn
}

// langFromPath extracts and decodes the language segment of the path.
func langFromPath(req *http.Request, pattern string) (string, error) {
	lang, ok := request.Filter(req).Path(pattern).Var(1)
	if !ok {
		return "", response.NewStatusError(http.StatusInternalServerError, "path variable missing")
	}
	decoded, err := url.PathUnescape(lang)
	if err != nil {
		return "", response.NewStatusError(http.StatusBadRequest, "malformed language tag")
	}
	return decoded, nil
}

// readGreeting reads and validates the greeting text from the body.
func readGreeting(body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxGreetingLen+1))
	if err != nil {
		return "", response.NewStatusError(http.StatusBadRequest, "unreadable request body")
	}
	if len(data) > maxGreetingLen {
		return "", response.NewStatusError(http.StatusBadRequest, "greeting too long")
	}

	greeting := strings.TrimSpace(string(data))
	if greeting == "" {
		return "", response.NewStatusError(http.StatusBadRequest, "empty greeting")
	}
	return greeting, nil
}

// queryValue returns the decoded value of the first query pair with the
// given key, or "".
func queryValue(req *http.Request, key string) string {
	it := request.NewQueryIter(req)
	for {
		k, v, ok := it.Next()
		if !ok {
			return ""
		}
		if k != key {
			continue
		}
		if decoded, err := url.QueryUnescape(v); err == nil {
			return decoded
		}
		return v
	}
}

// isNotFound reports whether the error marks an absent greeting.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// storeUnavailable wraps a store failure as a 503.
func storeUnavailable(err error) error {
	return &response.StatusError{
		Code:    http.StatusServiceUnavailable,
		Message: "greeting store unavailable",
		Err:     err,
	}
}
