package contextutil

import (
	"context"

	"go.uber.org/zap"
)

// Metadata ikut di context sepanjang request dan masuk ke log dan outbox.
type Metadata struct {
	RequestID      string
	UserID         string
	IdempotencyKey string
}

type (
	metadataKey struct{}
	loggerKey   struct{}
)

func withMetadata(ctx context.Context, set func(*Metadata)) context.Context {
	md := ExtractMetadata(ctx)
	set(&md)
	return context.WithValue(ctx, metadataKey{}, md)
}

func ExtractMetadata(ctx context.Context) Metadata {
	if ctx == nil {
		return Metadata{}
	}
	md, _ := ctx.Value(metadataKey{}).(Metadata)
	return md
}

func WithRequestID(ctx context.Context, rid string) context.Context {
	return withMetadata(ctx, func(m *Metadata) { m.RequestID = rid })
}

func GetRequestID(ctx context.Context) string {
	return ExtractMetadata(ctx).RequestID
}

func WithUserID(ctx context.Context, uid string) context.Context {
	return withMetadata(ctx, func(m *Metadata) { m.UserID = uid })
}

func GetUserID(ctx context.Context) string {
	return ExtractMetadata(ctx).UserID
}

func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return withMetadata(ctx, func(m *Metadata) { m.IdempotencyKey = key })
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger mengembalikan logger request; fallback ke defaultLogger, lalu Nop.
func GetLogger(ctx context.Context, defaultLogger *zap.Logger) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	if defaultLogger != nil {
		return defaultLogger
	}
	return zap.NewNop()
}

// Fields: hanya metadata yang terisi.
func Fields(ctx context.Context) []zap.Field {
	md := ExtractMetadata(ctx)
	fields := make([]zap.Field, 0, 3)
	if md.RequestID != "" {
		fields = append(fields, zap.String("request_id", md.RequestID))
	}
	if md.UserID != "" {
		fields = append(fields, zap.String("actor_id", md.UserID))
	}
	if md.IdempotencyKey != "" {
		fields = append(fields, zap.String("idempotency_key", md.IdempotencyKey))
	}
	return fields
}
