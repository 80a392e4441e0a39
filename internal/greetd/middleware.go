package greetd

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Jon-Davis/http-tools/observability"
)

// RequestIDHeader is the header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID returns a middleware that tags every request with an ID,
// reusing the caller's when one is present.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := observability.ContextWithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)

			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r)
		})
	}
}

// accessWriter wraps http.ResponseWriter to capture status and size.
type accessWriter struct {
	http.ResponseWriter
	status int
	size   int
}

// WriteHeader captures the status code.
func (w *accessWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Write captures the response size.
func (w *accessWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// Flush implements http.Flusher for streaming responses.
func (w *accessWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// AccessLog returns a middleware that logs every request once it
// completes. Server errors log at error level and client errors at warn,
// so problem traffic stands out at a glance.
func AccessLog(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			aw := &accessWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			next.ServeHTTP(aw, r)

			entry := logger.WithContext(r.Context())
			fields := []observability.Field{
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("query", r.URL.RawQuery),
				observability.Int("status", aw.status),
				observability.Int("size", aw.size),
				observability.Duration("duration", time.Since(start)),
				observability.String("remote_addr", r.RemoteAddr),
			}

			switch {
			case aw.status >= http.StatusInternalServerError:
				entry.Error("http request", fields...)
			case aw.status >= http.StatusBadRequest:
				entry.Warn("http request", fields...)
			default:
				entry.Info("http request", fields...)
			}
		})
	}
}
