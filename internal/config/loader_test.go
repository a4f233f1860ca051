package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tidemark.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultCatalogPath, cfg.CatalogPath)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.True(t, cfg.Defaults.Finalized)
	assert.False(t, cfg.Defaults.MaterializedOnly)
	assert.True(t, cfg.Defaults.CreateGroupIndexes)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
catalog_path: /var/lib/tidemark/catalog.db
target:
  type: postgres
  host: db.internal
  database: metrics
  user: tidemark
  owner: tidemark_owner
defaults:
  finalized: false
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/tidemark/catalog.db", cfg.CatalogPath)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "db.internal", cfg.Target.Host)
	assert.Equal(t, 5432, cfg.Target.Port, "postgres port default applies")
	assert.Equal(t, "tidemark_owner", cfg.Target.Owner)
	assert.False(t, cfg.Defaults.Finalized)
	assert.True(t, cfg.Defaults.CreateGroupIndexes, "unset default keeps its value")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
target:
  type: postgres
  host: from-file
`)
	t.Setenv("TIDEMARK_TARGET_HOST", "from-env")
	t.Setenv("TIDEMARK_CATALOG_PATH", "/env/catalog.db")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Target.Host)
	assert.Equal(t, "/env/catalog.db", cfg.CatalogPath)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	t.Setenv("TIDEMARK_CATALOG_PATH", "/env/catalog.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("catalog-path", "", "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{"--catalog-path", "/flag/catalog.db", "--verbose"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "/flag/catalog.db", cfg.CatalogPath)
	assert.True(t, cfg.Verbose)
}

func TestLoad_UnchangedFlagsIgnored(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("catalog-path", "/flag/default.db", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalogPath, cfg.CatalogPath, "unset flags must not override defaults")
}

func TestTargetConfig_Validate(t *testing.T) {
	assert.Error(t, (&TargetConfig{}).Validate())

	err := (&TargetConfig{Type: "snowflake"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown adapter")
}

func TestTargetConfig_AdapterConfig(t *testing.T) {
	tc := &TargetConfig{
		Type: "Postgres", Host: "db", Port: 5433,
		Database: "metrics", User: "u", Password: "p",
		Schema:  "public",
		Options: map[string]string{"sslmode": "require"},
	}
	ac := tc.AdapterConfig()
	assert.Equal(t, "postgres", ac.Type)
	assert.Equal(t, "db", ac.Host)
	assert.Equal(t, 5433, ac.Port)
	assert.Equal(t, "u", ac.Username)
	assert.Equal(t, "require", ac.Options["sslmode"])
}
