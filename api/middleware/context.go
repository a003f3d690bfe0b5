package middleware

import (
	"context"

	"github.com/angelmondragon/miniapp-storefront/internal/storefront"
)

type contextKey string

const (
	ctxSessionID       contextKey = "session_id"
	ctxEngine          contextKey = "engine"
	ctxAdminCredential contextKey = "admin_credential"
)

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// EngineFromContext returns the session engine attached by Session.
func EngineFromContext(ctx context.Context) *storefront.Engine {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxEngine).(*storefront.Engine); ok {
		return v
	}
	return nil
}

func AdminCredentialFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminCredential).(string); ok {
		return v
	}
	return ""
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionID, sessionID)
}

// WithEngine injects the session engine for downstream handlers.
func WithEngine(ctx context.Context, engine *storefront.Engine) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxEngine, engine)
}

func WithAdminCredential(ctx context.Context, credential string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAdminCredential, credential)
}
