package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tidemark-db/tidemark/internal/compile"
	"github.com/tidemark-db/tidemark/internal/state"
)

// repairConcurrency bounds how many aggregates recompile at once during
// a full repair pass. Compilation is CPU-bound; catalog writes still
// serialize through SQLite.
const repairConcurrency = 4

// RepairReport is the outcome of a repair pass over one aggregate.
type RepairReport struct {
	Aggregate *state.Aggregate
	Action    compile.RepairAction
	Warning   error
}

// Repair recompiles one aggregate from its stored declaration and swaps
// the derived definitions if they are stale.
func (e *Engine) Repair(ctx context.Context, schema, name string) (*RepairReport, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	agg, err := e.getAggregate(schema, name)
	if err != nil {
		return nil, err
	}
	return e.repairOne(ctx, agg)
}

// RepairAll runs a repair pass over every cataloged aggregate,
// recompiling concurrently. A warn-and-skip outcome is reported, not
// fatal; the pass continues.
func (e *Engine) RepairAll(ctx context.Context) ([]*RepairReport, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	aggs, err := e.store.ListAggregates()
	if err != nil {
		return nil, err
	}

	passID := uuid.New().String()
	e.logger.Info("repair pass started", "pass_id", passID, "aggregates", len(aggs))

	var mu sync.Mutex
	reports := make([]*RepairReport, 0, len(aggs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(repairConcurrency)
	for _, agg := range aggs {
		g.Go(func() error {
			report, err := e.repairOne(gctx, agg)
			if err != nil {
				return fmt.Errorf("repair of %s.%s: %w", agg.ViewSchema, agg.ViewName, err)
			}
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Aggregate.ID < reports[j].Aggregate.ID
	})
	e.logger.Info("repair pass finished", "pass_id", passID, "reports", len(reports))
	return reports, nil
}

func (e *Engine) repairOne(ctx context.Context, agg *state.Aggregate) (*RepairReport, error) {
	opts := compile.Options{
		Finalized:        agg.Finalized,
		MaterializedOnly: agg.MaterializedOnly,
	}
	result, err := e.recompile(ctx, agg, opts)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{Aggregate: agg, Action: result.Action, Warning: result.Warning}
	switch result.Action {
	case compile.RepairNoOp:
		e.logger.Debug("definitions up to date", "view", agg.ViewSchema+"."+agg.ViewName)
		return report, nil

	case compile.RepairWarnAndSkip:
		e.logger.Warn("skipping unrepairable aggregate",
			"view", agg.ViewSchema+"."+agg.ViewName, "reason", result.Warning)
		return report, nil
	}

	err = e.store.InTx(func(tx *state.Tx) error {
		if err := tx.UpdateDefinitions(agg.ID, result.NewPartial, result.NewUser); err != nil {
			return err
		}

		restore, err := e.acquireOwner(ctx)
		if err != nil {
			return err
		}
		defer restore()

		return e.db.ExecScript(ctx, []string{
			replaceView(compile.InternalSchema, compile.PartialViewName(agg.ID), result.NewPartial),
			replaceView(agg.ViewSchema, agg.ViewName, result.NewUser),
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("repaired continuous aggregate", "view", agg.ViewSchema+"."+agg.ViewName)
	return report, nil
}

// recompile runs the compiler over an aggregate's stored declaration,
// feeding it the live user view's column names so renames survive.
func (e *Engine) recompile(ctx context.Context, agg *state.Aggregate, opts compile.Options) (*compile.RepairResult, error) {
	src, err := e.sourceFor(ctx, agg)
	if err != nil {
		return nil, err
	}

	meta, err := e.db.GetTableMetadata(ctx, agg.ViewSchema+"."+agg.ViewName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe user view: %w", err)
	}
	live := make([]string, len(meta.Columns))
	for i, col := range meta.Columns {
		live[i] = col.Name
	}

	return compile.Repair(compile.RepairInput{
		MatID:           agg.ID,
		Source:          src,
		Opts:            opts,
		StoredDirect:    agg.DirectSQL,
		StoredPartial:   agg.PartialSQL,
		StoredUser:      agg.UserSQL,
		LiveUserColumns: live,
	}, e.dialect)
}
