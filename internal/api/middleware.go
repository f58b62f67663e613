package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const loggerKey contextKey = "api_logger"

// maxRequestBody bounds JSON request bodies. Requests are small option
// objects; records travel the other way.
const maxRequestBody = 64 * 1024

// securityHeaders are set on every response. The API serves JSON to a
// local operator and is never framed.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "no-referrer",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Cache-Control":           "no-store",
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range securityHeaders {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

// maxJSONBody limits request bodies declared as JSON.
func maxJSONBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// traceID tags each request with a short random id, echoed in X-Trace-ID
// and carried by the request logger.
func traceID(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := make([]byte, 4)
			rand.Read(id)
			tid := hex.EncodeToString(id)
			w.Header().Set("X-Trace-ID", tid)

			logger := base.With("trace_id", tid, "method", r.Method, "path", r.URL.Path)
			logger.Debug("request", "remote_addr", r.RemoteAddr)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey, logger)))
		})
	}
}

// requestLogger returns the per-request logger, or fallback outside traceID.
func requestLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return fallback
}
