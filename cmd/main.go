package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/inboxsync/internal/services"
	"github.com/desertthunder/inboxsync/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	if p := os.Getenv("INBOXSYNC_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	var executor services.Executor
	if svc, err := services.NewExecutorService(config.Executor, services.WithLogger(logger)); err == nil {
		executor = svc
	} else {
		logger.Debug("executor client unavailable", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Executor:   executor,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "inboxsync",
		Usage:    "Trigger and track mailbox sync jobs on a remote executor",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrJobReported) {
			logger.Error("sync failed", "error", err)
			os.Exit(2)
		}
		logger.Fatalf("application error: %v", err)
	}
}
