// Package middleware holds the HTTP middleware chain: request
// logging, internal API key auth, and per-client rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/behindy-dev/storyserver/internal/ratelimit"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// InternalAPIKeyHeader carries the shared secret from the game
// backend.
const InternalAPIKeyHeader = "X-Internal-API-Key"

// RequestID returns the request ID set by the Logger middleware, or
// empty.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logger tags every request with a UUID and logs method, path, status
// and duration.
func Logger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(recorder, r.WithContext(ctx))

		logger.Info("request handled",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr)
	})
}

// InternalAuth rejects requests that do not carry the shared internal
// API key. An empty configured key disables the check for local
// development.
func InternalAuth(apiKey string, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey != "" && r.Header.Get(InternalAPIKeyHeader) != apiKey {
			logger.Warn("internal API key rejected",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr)
			writeJSONError(w, http.StatusForbidden, "Invalid or missing internal API key.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit rejects clients that exceed the rolling-window request
// limit with 429. Requests carrying the configured internal API key
// bypass the limit; an empty key means no bypass.
func RateLimit(limiter *ratelimit.Limiter, internalKey string, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if internalKey != "" && r.Header.Get(InternalAPIKeyHeader) == internalKey {
			next.ServeHTTP(w, r)
			return
		}
		clientID := ClientAddr(r)
		if !limiter.Allow(clientID) {
			logger.Warn("rate limit exceeded",
				"client", clientID,
				"path", r.URL.Path)
			writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientAddr identifies the caller: the first X-Forwarded-For hop when
// present, the remote host otherwise.
func ClientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
