// Package adapter defines the contract between the aggregate engine and
// the databases it manages.
//
// Concrete implementations live in pkg/adapters/ subdirectories and
// register themselves with the registry in their init() functions.
package adapter

import (
	"context"
	"database/sql"

	"github.com/tidemark-db/tidemark/pkg/dialect"
)

// Config holds connection settings for a database target.
type Config struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
}

// Column describes one column of a database table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Metadata holds what the engine needs to know about a source table.
type Metadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Rows wraps sql.Rows so callers do not depend on database/sql directly.
type Rows struct {
	*sql.Rows
}

// Adapter is implemented once per supported database.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string) error

	// ExecScript runs a sequence of statements inside one transaction.
	// Either all of them take effect or none do.
	ExecScript(ctx context.Context, stmts []string) error

	// Query runs a statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata describes a table, resolving unqualified names
	// against the dialect's default schema.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// Dialect returns the function classifications and placeholder
	// style for this database.
	Dialect() *dialect.Dialect
}
