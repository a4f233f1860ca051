package cli

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeRoot runs a fresh root command with args and returns its output.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd := NewRootCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := executeRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tidemark v"+Version)
}

func TestUnknownCommand(t *testing.T) {
	_, err := executeRoot(t, "frobnicate")
	assert.Error(t, err)
}

func TestListEmptyCatalog(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "catalog.db")

	out, err := executeRoot(t, "list", "--catalog-path", catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "No continuous aggregates")
}

func TestDescribeUnknownAggregate(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "catalog.db")

	_, err := executeRoot(t, "describe", "sensors_hourly", "--catalog-path", catalog)
	assert.ErrorContains(t, err, "sensors_hourly")
}

func TestRepairRejectsAmbiguousArgs(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "catalog.db")

	_, err := executeRoot(t, "repair", "--catalog-path", catalog)
	assert.ErrorContains(t, err, "pass a view name or --all")

	_, err = executeRoot(t, "repair", "sensors_hourly", "--all", "--catalog-path", catalog)
	assert.ErrorContains(t, err, "pass a view name or --all")
}

func TestRegisterAndListSources(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.db")
	target := filepath.Join(dir, "target.db")

	// Seed the target database, then close it so the engine can take
	// the file over.
	db, err := sql.Open("duckdb", target)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE events (tick BIGINT NOT NULL, v DOUBLE)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	t.Setenv("TIDEMARK_TARGET_TYPE", "duckdb")
	t.Setenv("TIDEMARK_TARGET_PATH", target)

	out, err := executeRoot(t, "register", "events",
		"--time-column", "tick", "--width", "3600",
		"--catalog-path", catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered hypertable main.events")

	// Re-registering the same table is refused.
	_, err = executeRoot(t, "register", "events",
		"--time-column", "tick", "--width", "3600",
		"--catalog-path", catalog)
	assert.ErrorContains(t, err, "already registered")

	out, err = executeRoot(t, "list", "--sources", "--catalog-path", catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "main.events")
	assert.Contains(t, out, "tick")
}

func TestRegisterRejectsBadWidth(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.db")
	target := filepath.Join(dir, "target.db")

	db, err := sql.Open("duckdb", target)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE readings (ts TIMESTAMPTZ, temp DOUBLE)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	t.Setenv("TIDEMARK_TARGET_TYPE", "duckdb")
	t.Setenv("TIDEMARK_TARGET_PATH", target)

	_, err = executeRoot(t, "register", "readings",
		"--time-column", "ts", "--width", "1 month",
		"--catalog-path", catalog)
	assert.ErrorContains(t, err, "no fixed width")

	_, err = executeRoot(t, "register", "readings",
		"--time-column", "missing", "--width", "1 day",
		"--catalog-path", catalog)
	assert.ErrorContains(t, err, "column missing not found")
}
