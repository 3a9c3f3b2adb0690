package main

import (
	"context"
	"os/signal"
	"syscall"

	"go-orgstructure/internal/app"
	"go-orgstructure/internal/bootstrap"
	"go-orgstructure/internal/config"
	"go-orgstructure/internal/shared/apperror"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	apperror.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunWorker(ctx, cfg, logger); err != nil {
		logger.Fatal("run worker failed", zap.Error(err))
	}
}
