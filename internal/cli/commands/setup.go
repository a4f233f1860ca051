// Package commands implements the tidemark subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidemark-db/tidemark/internal/config"
	"github.com/tidemark-db/tidemark/internal/engine"
)

// configKey is used to store config in context.
type configKey struct{}

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// WithConfig stores the loaded configuration in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{
		CatalogPath: config.DefaultCatalogPath,
		Target:      &config.TargetConfig{Type: config.DefaultTargetType},
	}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.New(slog.DiscardHandler)
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Engine *engine.Engine
}

// NewCommandContext creates a CommandContext with an engine wired to the
// configured catalog and target. Returns the context and a cleanup
// function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := GetConfig(cmd.Context())
	logger := GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{Cfg: cfg, Logger: logger, Engine: eng}, cleanup, nil
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	catalogDir := filepath.Dir(cfg.CatalogPath)
	if catalogDir != "." && catalogDir != "" {
		if err := os.MkdirAll(catalogDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	adapterCfg := cfg.Target.AdapterConfig()
	return engine.New(engine.Config{
		CatalogPath:   cfg.CatalogPath,
		AdapterConfig: &adapterCfg,
		OwnerRole:     cfg.Target.Owner,
		Logger:        logger,
	})
}

// defaultSchema picks the schema an unqualified view name lands in.
func defaultSchema(cfg *config.Config) string {
	if cfg.Target != nil && cfg.Target.Schema != "" {
		return cfg.Target.Schema
	}
	if cfg.Target != nil && strings.ToLower(cfg.Target.Type) == "postgres" {
		return "public"
	}
	return "main"
}

// splitViewName splits a possibly schema-qualified view name, falling
// back to the target's default schema.
func splitViewName(arg string, cfg *config.Config) (schema, name string) {
	if s, n, ok := strings.Cut(arg, "."); ok {
		return s, n
	}
	return defaultSchema(cfg), arg
}
