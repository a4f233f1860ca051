// Package engine orchestrates the lifecycle of continuous aggregates:
// creation, rename, realtime flips, drops, and catalog repair. It owns
// the connection to the target database and the durable catalog, and
// drives the compiler for everything else.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tidemark-db/tidemark/internal/compile"
	"github.com/tidemark-db/tidemark/internal/hypertable"
	"github.com/tidemark-db/tidemark/internal/state"
	"github.com/tidemark-db/tidemark/pkg/adapter"
	"github.com/tidemark-db/tidemark/pkg/dialect"
	"github.com/tidemark-db/tidemark/pkg/render"
)

// Engine coordinates the catalog, the compiler, and the target database.
type Engine struct {
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	dialect *dialect.Dialect
	logger  *slog.Logger

	store  *state.SQLiteStore
	tables *hypertable.Service

	ownerRole string
}

// Config holds engine configuration.
type Config struct {
	// CatalogPath is the path to the SQLite catalog database.
	CatalogPath string

	// AdapterConfig describes the target database.
	AdapterConfig *adapter.Config

	// DB injects a pre-connected adapter, bypassing the registry.
	// Used by tests; when set, AdapterConfig is ignored.
	DB adapter.Adapter

	// OwnerRole, when set, is assumed around catalog-mutating DDL so
	// generated objects belong to one role regardless of who runs the
	// command.
	OwnerRole string

	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates an engine with a lazy database connection. The target is
// only connected when an operation needs it.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine", "catalog", cfg.CatalogPath)

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.CatalogPath); err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}

	var dbConfig adapter.Config
	if cfg.AdapterConfig != nil {
		dbConfig = *cfg.AdapterConfig
	}
	if dbConfig.Type == "" {
		dbConfig.Type = "duckdb"
	}

	e := &Engine{
		dbConfig:  dbConfig,
		logger:    logger,
		store:     store,
		ownerRole: cfg.OwnerRole,
	}
	if cfg.DB != nil {
		e.db = cfg.DB
		e.dbConnected = true
		e.dialect = cfg.DB.Dialect()
		e.tables = hypertable.NewService(store, cfg.DB, logger)
	}
	return e, nil
}

// ensureConnected lazily connects to the target database.
func (e *Engine) ensureConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to target", "adapter_type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to target: %w", err)
	}

	e.db = db
	e.dbConnected = true
	e.dialect = db.Dialect()
	e.tables = hypertable.NewService(e.store, db, e.logger)

	e.logger.Debug("target connected", "dialect", e.dialect.Name)
	return nil
}

// Close releases the target connection and the catalog.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// Store exposes the catalog for read-only callers like the CLI.
func (e *Engine) Store() *state.SQLiteStore {
	return e.store
}

// acquireOwner assumes the configured owner role for a stretch of DDL.
// The returned restore function must run on every path out, including
// errors, so the session never stays elevated.
func (e *Engine) acquireOwner(ctx context.Context) (restore func(), err error) {
	if e.ownerRole == "" || e.dialect.Name != "postgres" {
		return func() {}, nil
	}
	if err := e.db.Exec(ctx, "SET ROLE "+render.QuoteIdent(e.ownerRole)); err != nil {
		return nil, fmt.Errorf("failed to assume owner role %s: %w", e.ownerRole, err)
	}
	return func() {
		if err := e.db.Exec(ctx, "RESET ROLE"); err != nil {
			e.logger.Error("failed to reset role", "error", err)
		}
	}, nil
}

func (e *Engine) getAggregate(schema, name string) (*state.Aggregate, error) {
	if schema == "" {
		schema = e.dialect.DefaultSchema
	}
	agg, err := e.store.GetAggregateByName(schema, name)
	if err != nil {
		return nil, fmt.Errorf("continuous aggregate %s.%s: %w", schema, name, err)
	}
	return agg, nil
}

// sourceFor rebuilds the compilation source recorded for an aggregate.
func (e *Engine) sourceFor(ctx context.Context, agg *state.Aggregate) (*compile.Source, error) {
	if agg.ParentID != nil {
		parent, err := e.store.GetAggregate(*agg.ParentID)
		if err != nil {
			return nil, err
		}
		return e.tables.Resolve(ctx, parent.ViewSchema+"."+parent.ViewName)
	}
	ht, err := e.store.GetHypertableByID(agg.SourceID)
	if err != nil {
		return nil, err
	}
	return e.tables.Resolve(ctx, ht.Schema+"."+ht.Name)
}
