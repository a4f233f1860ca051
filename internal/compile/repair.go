package compile

import (
	"fmt"

	"github.com/tidemark-db/tidemark/pkg/dialect"
	"github.com/tidemark-db/tidemark/pkg/parser"
	"github.com/tidemark-db/tidemark/pkg/render"
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

// RepairAction says what a repair pass decided for one aggregate.
type RepairAction string

const (
	// RepairNoOp: the stored definitions already match a fresh compile.
	// Zero catalog writes.
	RepairNoOp RepairAction = "noop"

	// RepairSwap: the recompiled definitions differ and should replace
	// the stored ones atomically.
	RepairSwap RepairAction = "swap"

	// RepairWarnAndSkip: the live objects drifted too far to repair in
	// place. Nothing is mutated; Warning carries the reason.
	RepairWarnAndSkip RepairAction = "warn_and_skip"
)

// RepairInput is everything a repair pass reads for one aggregate. The
// compiler stays pure: the caller fetches the stored texts and the live
// user view's column names, and applies any swap the result asks for.
type RepairInput struct {
	MatID  int64
	Source *Source
	Opts   Options

	// StoredDirect is the declaration exactly as accepted at creation.
	// Repair always recompiles from this, never from derived artifacts.
	StoredDirect string

	// StoredPartial and StoredUser are the population and user view
	// bodies currently in the catalog.
	StoredPartial string
	StoredUser    string

	// LiveUserColumns are the output column names of the live user view,
	// in position order. Renames applied directly to the view survive a
	// repair.
	LiveUserColumns []string
}

// RepairResult is the decision plus, for RepairSwap, the texts to write.
type RepairResult struct {
	Action  RepairAction
	Warning error

	NewPartial string
	NewUser    string

	Compiled *Compiled
}

// Repair recompiles one aggregate from its stored declaration and decides
// whether the derived definitions need replacing. Column-shape drift
// against the live user view is never fixed in place; the result is a
// warning and an untouched catalog.
func Repair(in RepairInput, d *dialect.Dialect) (*RepairResult, error) {
	stmt, err := parser.Parse(in.StoredDirect)
	if err != nil {
		return &RepairResult{
			Action:  RepairWarnAndSkip,
			Warning: fmt.Errorf("stored declaration no longer parses: %w", err),
		}, nil
	}
	spec := &ViewSpec{Query: stmt}

	compiled, err := Compile(spec, in.Source, d, in.MatID, in.Opts)
	if err != nil {
		return &RepairResult{
			Action:  RepairWarnAndSkip,
			Warning: fmt.Errorf("stored declaration no longer compiles: %w", err),
		}, nil
	}

	finalizeCore := sqlast.Core(compiled.FinalizeQuery)
	if len(in.LiveUserColumns) != len(finalizeCore.Columns) {
		return &RepairResult{
			Action: RepairWarnAndSkip,
			Warning: &SchemaDriftError{
				Expected: len(finalizeCore.Columns),
				Found:    len(in.LiveUserColumns),
				Detail:   "live view column list does not match the declaration; drop and recreate the aggregate",
			},
		}, nil
	}

	// Keep whatever names the live view carries today: renames applied to
	// the view itself must survive regeneration. Positions whose name
	// already matches stay untouched so an unchanged aggregate renders
	// byte-identical texts.
	renamed := make([]bool, len(finalizeCore.Columns))
	for i, item := range finalizeCore.Columns {
		if in.LiveUserColumns[i] != item.Alias {
			finalizeCore.Columns[i].Alias = in.LiveUserColumns[i]
			renamed[i] = true
		}
	}

	userBody := compiled.FinalizeQuery
	if !in.Opts.MaterializedOnly {
		display := bucketDisplayAfterRename(compiled, in.LiveUserColumns)
		// The live branch must project the live names too, or the
		// boundary predicate would reference a column the branch no
		// longer exposes.
		raw := sqlast.CloneStmt(compiled.DirectQuery)
		rawCore := sqlast.Core(raw)
		for i := range rawCore.Columns {
			if renamed[i] {
				rawCore.Columns[i].Alias = in.LiveUserColumns[i]
			}
		}
		union, err := ComposeUnion(in.MatID, compiled.FinalizeQuery, raw,
			compiled.Decomposition, display, in.Source.ColumnType, false)
		if err != nil {
			return nil, err
		}
		compiled.Union = union
		userBody = union.Query
	}

	newPartial := render.Statement(compiled.PopulationQuery)
	newUser := render.Statement(userBody)
	if newPartial == in.StoredPartial && newUser == in.StoredUser {
		return &RepairResult{Action: RepairNoOp, Compiled: compiled}, nil
	}
	return &RepairResult{
		Action:     RepairSwap,
		NewPartial: newPartial,
		NewUser:    newUser,
		Compiled:   compiled,
	}, nil
}

// bucketDisplayAfterRename finds the bucket column's position in the
// finalize projection and returns the live name at that position, so the
// boundary predicate filters on the name the view actually exposes.
func bucketDisplayAfterRename(compiled *Compiled, liveNames []string) string {
	for i, item := range sqlast.Core(compiled.FinalizeQuery).Columns {
		if ref, ok := item.Expr.(*sqlast.ColumnRef); ok && ref.Column == compiled.Decomposition.BucketColumn {
			if i < len(liveNames) {
				return liveNames[i]
			}
			break
		}
	}
	return bucketDisplay(compiled.Decomposition)
}
