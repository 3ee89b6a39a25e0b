// Package middleware provides HTTP middleware for the FoodieMap routing API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation ID in both directions.
const RequestIDHeader = "X-Request-Id"

const (
	requestIDPrefix    = "req_"
	maxRequestIDLength = 64
)

type requestIDKey struct{}

// RequestID adopts the caller's X-Request-Id or mints one, stores it in the
// context and echoes it back. Client IDs end up in logs and problem bodies,
// so anything over 64 bytes or outside [A-Za-z0-9._:-] is replaced.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = newRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// newRequestID returns "req_" followed by 24 hex characters of a random UUID.
func newRequestID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return requestIDPrefix + hex[:24]
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	return strings.IndexFunc(id, func(c rune) bool {
		return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '-' || c == '_' || c == '.' || c == ':')
	}) < 0
}

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the request ID in ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
