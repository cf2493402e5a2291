package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey locates the request id in a request context.
const RequestIDKey contextKey = "request_id"

// RequestIDMiddleware assigns every request a fresh id, stores it in the
// context for log enrichment, and echoes it in the X-Request-ID response
// header. Distinct from the correlation id, which exists only for
// defects.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the id set by RequestIDMiddleware, or "" when the
// middleware is not in the chain.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
