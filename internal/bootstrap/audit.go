package bootstrap

import "context"

// AuditLog adalah event operasional server (start, shutdown), bukan audit data organisasi.
type AuditLog struct {
	Action  string
	Message string
	Meta    map[string]any
}

type AuditLogger interface {
	Log(ctx context.Context, entry AuditLog)
}
