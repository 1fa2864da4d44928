// Package main implements the entry point for the tasklane API server, which
// serves project task queries backed by a shared query cache and per-user
// open-task counters.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/tasklane-api/internal/config"
	"github.com/phrazzld/tasklane-api/internal/platform/logger"
	"github.com/phrazzld/tasklane-api/internal/platform/postgres"
	"github.com/phrazzld/tasklane-api/internal/service/auth"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: ./config.yaml if present)")
	migrateCmd := flag.String("migrate", "", fmt.Sprintf("run a migration command %v and exit", postgres.MigrationCommands))
	issueToken := flag.String("issue-token", "", "print a bearer token for the given user ID and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *migrateCmd, *issueToken); err != nil {
		slog.Error("tasklane-api exited with error", "error", err)
		stop()
		os.Exit(1)
	}
}

// run loads configuration and performs exactly one of: a migration command,
// issuing a token, or serving HTTP until ctx is canceled.
func run(ctx context.Context, configPath, migrateCmd, issueToken string) error {
	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	if issueToken != "" {
		return printToken(ctx, cfg, issueToken)
	}

	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer func() { _ = db.Close() }()
		return runMigrations(ctx, db, migrateCmd, log)
	}

	backend, closeBackend, err := setupCacheBackend(ctx, cfg, log)
	if err != nil {
		_ = db.Close()
		return err
	}

	app, err := newApplication(cfg, log, db, backend, closeBackend)
	if err != nil {
		_ = closeBackend()
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

func loadAppConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// printToken writes a signed access token for userID to stdout. It exists
// for operators and local testing; user accounts live outside this service.
func printToken(ctx context.Context, cfg *config.Config, userID string) error {
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	token, err := jwtService.GenerateToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}
