package commands

import (
	"context"
	"fmt"

	"neuralbudget/internal/config"
	"neuralbudget/internal/log"
)

// loadConfig reads and validates the configuration shared by every
// long-running command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger builds the process logger from configuration and installs it
// as the slog default.
func setupLogger(cfg *config.Config, component string) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Component = component

	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// startup loads configuration and logging for a command, logging the
// configuration problem before returning it.
func startup(component string) (*config.Config, *log.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		fallback := log.New(log.DefaultConfig())
		fallback.LogError(context.Background(), "Configuration validation failed", err, log.OpStartup, log.NewFields())
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, setupLogger(cfg, component), nil
}
