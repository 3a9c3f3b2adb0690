package bootstrap

import (
	"go-orgstructure/internal/config"

	"go.uber.org/zap"
)

// NewLogger: production memakai encoder JSON, selain itu development.
// Logger hasil juga dipasang sebagai global.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
