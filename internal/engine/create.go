package engine

import (
	"context"
	"fmt"

	"github.com/tidemark-db/tidemark/internal/compile"
	"github.com/tidemark-db/tidemark/internal/hypertable"
	"github.com/tidemark-db/tidemark/internal/state"
	"github.com/tidemark-db/tidemark/pkg/parser"
	"github.com/tidemark-db/tidemark/pkg/render"
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

// Create compiles a declaration and brings the aggregate into existence:
// catalog rows, backing table, the three views, the initial fully-open
// invalidation, and the invalidation trigger on the source. Everything
// but the trigger happens atomically; a failure anywhere leaves neither
// catalog rows nor database objects behind.
func (e *Engine) Create(ctx context.Context, viewSchema, viewName, declaration string, opts compile.Options) (*state.Aggregate, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if viewSchema == "" {
		viewSchema = e.dialect.DefaultSchema
	}

	stmt, err := parser.Parse(declaration)
	if err != nil {
		return nil, fmt.Errorf("failed to parse declaration: %w", err)
	}

	sourceTable, err := declarationSource(stmt)
	if err != nil {
		return nil, err
	}
	src, err := e.tables.Resolve(ctx, sourceTable)
	if err != nil {
		return nil, err
	}

	spec := &compile.ViewSpec{Schema: viewSchema, Name: viewName, Query: stmt}

	var agg *state.Aggregate
	err = e.store.InTx(func(tx *state.Tx) error {
		agg, err = e.createInTx(ctx, tx, spec, src, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Trigger installation is idempotent and sits outside the creation
	// transaction: a second aggregate over the same source finds it
	// already installed.
	if src.ParentBucket == nil {
		ht, err := e.store.GetHypertableByID(agg.SourceID)
		if err != nil {
			return nil, err
		}
		if err := e.tables.InstallInvalidationTrigger(ctx, ht); err != nil {
			return nil, err
		}
	}

	e.logger.Info("created continuous aggregate",
		"view", viewSchema+"."+viewName, "id", agg.ID, "mode", opts.Mode().String())
	return agg, nil
}

// createInTx runs the transactional part of creation. The catalog row is
// inserted first so its id can name the generated objects, then updated
// with the compiled texts. The target-side DDL runs last, inside its own
// database transaction; if it fails, the catalog transaction rolls back.
func (e *Engine) createInTx(ctx context.Context, tx *state.Tx, spec *compile.ViewSpec, src *compile.Source, opts compile.Options) (*state.Aggregate, error) {
	agg := &state.Aggregate{
		ViewSchema:       spec.Schema,
		ViewName:         spec.Name,
		SourceID:         src.ID,
		Finalized:        opts.Finalized,
		MaterializedOnly: opts.MaterializedOnly,
	}
	if src.ParentBucket != nil {
		parentID := src.ID
		agg.ParentID = &parentID
		parent, err := tx.GetAggregateByName(src.Schema, src.Name)
		if err != nil {
			return nil, err
		}
		agg.SourceID = parent.SourceID
	}
	if err := tx.CreateAggregate(agg); err != nil {
		return nil, err
	}

	compiled, err := compile.Compile(spec, src, e.dialect, agg.ID, opts)
	if err != nil {
		return nil, err
	}

	agg.DirectSQL = render.Statement(compiled.DirectQuery)
	agg.PartialSQL = render.Statement(compiled.PopulationQuery)
	agg.UserSQL = render.Statement(compiled.Union.Query)
	agg.BucketFunc = compiled.Bucket.FuncName
	agg.BucketColumn = compiled.Decomposition.BucketColumn
	agg.BucketTimezone = compiled.Bucket.Timezone
	agg.BucketOrigin = compiled.Bucket.Origin
	if compiled.Bucket.ColumnType.IsTimeType() {
		agg.BucketWidth = compiled.Bucket.Width.String()
	} else {
		agg.BucketWidth = fmt.Sprintf("%d", compiled.Bucket.IntegerWidth)
	}
	if err := tx.UpdateCompiled(agg); err != nil {
		return nil, err
	}

	matHT, err := hypertable.RegisterMaterialization(tx, compiled.Schema)
	if err != nil {
		return nil, err
	}

	low, high := compile.InitialInvalidation(src.ColumnType)
	if err := tx.LogInvalidation(matHT.ID, low, high); err != nil {
		return nil, err
	}

	restore, err := e.acquireOwner(ctx)
	if err != nil {
		return nil, err
	}
	defer restore()

	stmts := hypertable.CreateScript(compiled.Schema)
	stmts = append(stmts,
		createView(compile.InternalSchema, compile.PartialViewName(agg.ID), agg.PartialSQL),
		createView(compile.InternalSchema, compile.DirectViewName(agg.ID), agg.DirectSQL),
		createView(spec.Schema, spec.Name, agg.UserSQL),
	)
	if err := e.db.ExecScript(ctx, stmts); err != nil {
		return nil, err
	}
	return agg, nil
}

func createView(schema, name, body string) string {
	return fmt.Sprintf("CREATE VIEW %s.%s AS %s",
		render.QuoteIdent(schema), render.QuoteIdent(name), body)
}

func replaceView(schema, name, body string) string {
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s.%s AS %s",
		render.QuoteIdent(schema), render.QuoteIdent(name), body)
}

// declarationSource pulls the table the declaration aggregates over out
// of its FROM clause. With a join, the first table is the source; the
// compiler validates the join shape.
func declarationSource(stmt *sqlast.SelectStmt) (string, error) {
	core := sqlast.Core(stmt)
	if core == nil || core.From == nil {
		return "", fmt.Errorf("declaration has no FROM clause")
	}
	table, ok := core.From.Source.(*sqlast.TableName)
	if !ok {
		return "", fmt.Errorf("declaration must select from a table by name")
	}
	if table.Schema != "" {
		return table.Schema + "." + table.Name, nil
	}
	return table.Name, nil
}
