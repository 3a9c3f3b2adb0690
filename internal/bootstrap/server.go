package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-orgstructure/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// StartHTTPServer menjalankan Gin server sampai ctx selesai, lalu graceful shutdown.
func StartHTTPServer(
	ctx context.Context,
	router *gin.Engine,
	cfg config.HTTP,
	auditLogger AuditLogger,
	logger *zap.Logger,
) error {
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.Named("http")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server running", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			logger.Error("ListenAndServe error", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received", zap.NamedError("cause", context.Cause(ctx)))

	// audit sebelum shutdown
	auditLogger.Log(context.Background(), AuditLog{
		Action:  "SERVER_SHUTDOWN",
		Message: "Server is shutting down",
		Meta: map[string]any{
			"port": cfg.Port,
		},
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
		return err
	}
	logger.Info("Server exited gracefully")
	return nil
}
