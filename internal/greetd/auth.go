package greetd

import (
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/Jon-Davis/http-tools/observability"
	"github.com/Jon-Davis/http-tools/response"
)

// TokenVerifier checks bearer tokens on mutation requests. Tokens are
// HS256 JWTs signed with the shared secret and carrying the configured
// issuer.
type TokenVerifier struct {
	secret []byte
	issuer string
	logger observability.Logger
}

// VerifierOption configures a TokenVerifier.
type VerifierOption func(*TokenVerifier)

// WithVerifierLogger sets the verifier's logger.
func WithVerifierLogger(logger observability.Logger) VerifierOption {
	return func(v *TokenVerifier) {
		v.logger = logger
	}
}

// NewTokenVerifier creates a verifier from the auth configuration.
func NewTokenVerifier(cfg AuthConfig, opts ...VerifierOption) *TokenVerifier {
	v := &TokenVerifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Authorize validates the request's bearer token and returns its subject.
// Failures come back as 401 StatusErrors ready for response.FromError.
func (v *TokenVerifier) Authorize(r *http.Request) (string, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return "", response.NewStatusError(http.StatusUnauthorized, "missing bearer token")
	}

	token, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		v.logger.WithContext(r.Context()).Warn("token rejected",
			observability.Error(err),
		)
		return "", &response.StatusError{
			Code:    http.StatusUnauthorized,
			Message: "invalid token",
			Err:     err,
		}
	}

	return token.Subject(), nil
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
