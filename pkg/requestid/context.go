package requestid

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authclient/pkg/logger"
)

type contextKey struct{}

func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, ok := ctx.Value(contextKey{}).(string)
	if !ok {
		return ""
	}
	return requestID
}

// Ensure returns ctx carrying a valid request ID, generating a new one when
// ctx has none or carries a malformed value. An original call and its replay
// share the ID when they share the returned context.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); isValidRequestID(id) {
		return ctx, id
	}
	id := uuid.New().String()
	return WithContext(ctx, id), id
}

// LogAttr reports the request ID of ctx as a request_id attribute
func LogAttr(ctx context.Context) (slog.Attr, bool) {
	id := FromContext(ctx)
	return logger.RequestID(id), id != ""
}
