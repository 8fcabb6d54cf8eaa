package testutil

import (
	"context"
	"net/http"

	"hookbridge/internal/platform/middleware"
)

// WithOperator adds an authenticated operator to the request context,
// simulating what the auth middleware does for valid tokens.
func WithOperator(req *http.Request, operator string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyOperator, operator)
	return req.WithContext(ctx)
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, id string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRequestID, id)
	return req.WithContext(ctx)
}
