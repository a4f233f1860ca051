// Package config loads tidemark configuration from tidemark.yaml,
// environment variables, and CLI flags.
package config

import (
	"fmt"
	"strings"

	"github.com/tidemark-db/tidemark/pkg/adapter"
)

// TargetConfig describes the database the engine manages aggregates in.
type TargetConfig struct {
	Type string `koanf:"type"` // postgres, duckdb

	// File-based databases (DuckDB)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Owner is the role assumed around catalog-mutating DDL.
	Owner string `koanf:"owner"`

	// Additional driver-specific options (sslmode, duckdb settings, ...)
	Options map[string]string `koanf:"options"`
}

// DefaultsConfig carries the creation defaults applied when a command
// does not set the matching flag.
type DefaultsConfig struct {
	Finalized          bool `koanf:"finalized"`
	MaterializedOnly   bool `koanf:"materialized_only"`
	CreateGroupIndexes bool `koanf:"create_group_indexes"`
}

// Config is the full tidemark configuration.
type Config struct {
	CatalogPath string         `koanf:"catalog_path"`
	Verbose     bool           `koanf:"verbose"`
	Target      *TargetConfig  `koanf:"target"`
	Defaults    DefaultsConfig `koanf:"defaults"`
}

// Validate checks the target against the adapter registry.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// AdapterConfig converts the target into connection settings.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     strings.ToLower(t.Type),
		Path:     t.Path,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
	}
}
