package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"go-orgstructure/internal/bootstrap"
	"go-orgstructure/internal/config"
	"go-orgstructure/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|status|version|reset]")
	}
	flag.Parse()
	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, command); err != nil {
		logger.Fatal("migrate failed", zap.String("command", command), zap.Error(err))
	}
	logger.Info("migrate done", zap.String("command", command))
}

func run(ctx context.Context, cfg *config.Config, command string) error {
	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, db, ".")
}
