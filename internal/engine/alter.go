package engine

import (
	"context"
	"fmt"

	"github.com/tidemark-db/tidemark/internal/compile"
	"github.com/tidemark-db/tidemark/internal/hypertable"
	"github.com/tidemark-db/tidemark/internal/state"
	"github.com/tidemark-db/tidemark/pkg/render"
)

// Rename moves the user view to a new name, in the catalog and in the
// target database. The generated internal objects keep their id-based
// names; only the user-facing view moves.
func (e *Engine) Rename(ctx context.Context, schema, name, newSchema, newName string) error {
	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	agg, err := e.getAggregate(schema, name)
	if err != nil {
		return err
	}
	if newSchema == "" {
		newSchema = agg.ViewSchema
	}

	return e.store.InTx(func(tx *state.Tx) error {
		if err := tx.RenameAggregate(agg.ID, newSchema, newName); err != nil {
			return err
		}

		restore, err := e.acquireOwner(ctx)
		if err != nil {
			return err
		}
		defer restore()

		var stmts []string
		if newName != agg.ViewName {
			stmts = append(stmts, fmt.Sprintf("ALTER VIEW %s.%s RENAME TO %s",
				render.QuoteIdent(agg.ViewSchema), render.QuoteIdent(agg.ViewName),
				render.QuoteIdent(newName)))
		}
		if newSchema != agg.ViewSchema {
			stmts = append(stmts, fmt.Sprintf("ALTER VIEW %s.%s SET SCHEMA %s",
				render.QuoteIdent(agg.ViewSchema), render.QuoteIdent(newName),
				render.QuoteIdent(newSchema)))
		}
		if len(stmts) == 0 {
			return nil
		}
		return e.db.ExecScript(ctx, stmts)
	})
}

// SetRealtime flips real-time aggregation for one aggregate. The user
// view is recompiled from the stored declaration with the new setting,
// preserving any live column renames, and replaced in both the target
// and the catalog.
func (e *Engine) SetRealtime(ctx context.Context, schema, name string, realtime bool) error {
	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	agg, err := e.getAggregate(schema, name)
	if err != nil {
		return err
	}
	if agg.MaterializedOnly == !realtime {
		e.logger.Debug("realtime setting unchanged", "view", agg.ViewSchema+"."+agg.ViewName)
		return nil
	}

	opts := compile.Options{
		Finalized:        agg.Finalized,
		MaterializedOnly: !realtime,
	}
	result, err := e.recompile(ctx, agg, opts)
	if err != nil {
		return err
	}
	if result.Action == compile.RepairWarnAndSkip {
		return fmt.Errorf("cannot flip realtime for %s.%s: %w", agg.ViewSchema, agg.ViewName, result.Warning)
	}

	return e.store.InTx(func(tx *state.Tx) error {
		if err := tx.UpdateDefinitions(agg.ID, result.NewPartial, result.NewUser); err != nil {
			return err
		}
		if err := tx.SetMaterializedOnly(agg.ID, !realtime, result.NewUser); err != nil {
			return err
		}

		restore, err := e.acquireOwner(ctx)
		if err != nil {
			return err
		}
		defer restore()

		return e.db.ExecScript(ctx, []string{
			replaceView(agg.ViewSchema, agg.ViewName, result.NewUser),
		})
	})
}

// Drop removes an aggregate: its catalog rows, the invalidation windows
// of its backing table, and the generated objects. An aggregate that
// still feeds hierarchical children cannot be dropped.
func (e *Engine) Drop(ctx context.Context, schema, name string) error {
	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	agg, err := e.getAggregate(schema, name)
	if err != nil {
		return err
	}

	children, err := e.store.ListChildren(agg.ID)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return fmt.Errorf("%s.%s still feeds %d hierarchical aggregate(s); drop those first",
			agg.ViewSchema, agg.ViewName, len(children))
	}

	matHT, err := e.store.GetHypertable(compile.InternalSchema, compile.MatTableName(agg.ID))
	if err != nil {
		return err
	}

	err = e.store.InTx(func(tx *state.Tx) error {
		if err := tx.DeleteInvalidationsFor(matHT.ID); err != nil {
			return err
		}
		if err := tx.DeleteHypertable(matHT.ID); err != nil {
			return err
		}
		if err := tx.DeleteAggregate(agg.ID); err != nil {
			return err
		}

		restore, err := e.acquireOwner(ctx)
		if err != nil {
			return err
		}
		defer restore()

		return e.db.ExecScript(ctx, hypertable.DropScript(agg.ViewSchema, agg.ViewName, agg.ID))
	})
	if err != nil {
		return err
	}

	e.logger.Info("dropped continuous aggregate", "view", agg.ViewSchema+"."+agg.ViewName)
	return nil
}
