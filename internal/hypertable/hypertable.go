// Package hypertable resolves the tables an aggregate declaration reads
// from and manages the physical objects backing a materialization: the
// partitioned backing table, its indexes, and the invalidation trigger
// on the source.
package hypertable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tidemark-db/tidemark/internal/compile"
	"github.com/tidemark-db/tidemark/internal/state"
	"github.com/tidemark-db/tidemark/internal/types"
	"github.com/tidemark-db/tidemark/pkg/adapter"
)

// Service answers source lookups by joining the catalog with live table
// metadata from the target database.
type Service struct {
	store  *state.SQLiteStore
	db     adapter.Adapter
	logger *slog.Logger
}

// NewService wires a service. A nil logger discards output.
func NewService(store *state.SQLiteStore, db adapter.Adapter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, db: db, logger: logger}
}

// Resolve turns a FROM-clause table reference into a compilation source.
// The reference may name a registered hypertable or, for hierarchical
// aggregates, an existing finalized aggregate view.
func (s *Service) Resolve(ctx context.Context, table string) (*compile.Source, error) {
	schema, name := adapter.ParseQualifiedName(table, s.db.Dialect())

	ht, err := s.store.GetHypertable(schema, name)
	if err == nil {
		return s.hypertableSource(ctx, ht)
	}
	if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}

	agg, aggErr := s.store.GetAggregateByName(schema, name)
	if errors.Is(aggErr, state.ErrNotFound) {
		return nil, fmt.Errorf("%s.%s is neither a hypertable nor a continuous aggregate: %w", schema, name, err)
	}
	if aggErr != nil {
		return nil, aggErr
	}
	return s.aggregateSource(ctx, agg)
}

func (s *Service) hypertableSource(ctx context.Context, ht *state.Hypertable) (*compile.Source, error) {
	columnType, err := types.ParseColumnType(ht.ColumnType)
	if err != nil {
		return nil, fmt.Errorf("hypertable %s.%s: %w", ht.Schema, ht.Name, err)
	}

	columns, err := s.liveColumns(ctx, ht.Schema+"."+ht.Name)
	if err != nil {
		return nil, err
	}

	src := &compile.Source{
		ID:          ht.ID,
		Schema:      ht.Schema,
		Name:        ht.Name,
		TimeColumn:  ht.TimeColumn,
		ColumnType:  columnType,
		Columns:     columns,
		RowSecurity: ht.RowSecurity,
	}
	if columnType.IsTimeType() {
		src.PartitionWidth = types.Interval{Usecs: ht.PartitionWidth}
	} else {
		src.IntegerWidth = ht.PartitionWidth
	}
	return src, nil
}

// aggregateSource builds the source for a hierarchical declaration: the
// child reads the parent's user view, bucketing the parent's bucket
// column further.
func (s *Service) aggregateSource(ctx context.Context, agg *state.Aggregate) (*compile.Source, error) {
	if !agg.Finalized {
		return nil, fmt.Errorf("aggregate %s.%s stores partial state and cannot be aggregated further", agg.ViewSchema, agg.ViewName)
	}

	baseHT, err := s.store.GetHypertableByID(agg.SourceID)
	if err != nil {
		return nil, fmt.Errorf("source of aggregate %s.%s: %w", agg.ViewSchema, agg.ViewName, err)
	}
	columnType, err := types.ParseColumnType(baseHT.ColumnType)
	if err != nil {
		return nil, err
	}

	columns, err := s.liveColumns(ctx, agg.ViewSchema+"."+agg.ViewName)
	if err != nil {
		return nil, err
	}

	parent, err := parentBucketSpec(agg, columnType)
	if err != nil {
		return nil, err
	}

	src := &compile.Source{
		ID:           agg.ID,
		Schema:       agg.ViewSchema,
		Name:         agg.ViewName,
		TimeColumn:   agg.BucketColumn,
		ColumnType:   columnType,
		Columns:      columns,
		ParentBucket: parent,
	}
	// The child's backing table partitions on the parent's bucket width.
	if columnType.IsTimeType() {
		src.PartitionWidth = types.Interval{Usecs: parent.WidthTicks()}
	} else {
		src.IntegerWidth = parent.IntegerWidth
	}
	return src, nil
}

// parentBucketSpec reconstructs the parent's bucket descriptor from its
// catalog entry.
func parentBucketSpec(agg *state.Aggregate, columnType types.ColumnType) (*compile.TimeBucketSpec, error) {
	spec := &compile.TimeBucketSpec{
		FuncName:    agg.BucketFunc,
		ColumnName:  agg.BucketColumn,
		ColumnType:  columnType,
		ColumnAlias: agg.BucketColumn,
		Timezone:    agg.BucketTimezone,
		Origin:      agg.BucketOrigin,
	}
	if columnType.IsTimeType() {
		width, err := types.ParseInterval(agg.BucketWidth)
		if err != nil {
			return nil, fmt.Errorf("stored bucket width %q: %w", agg.BucketWidth, err)
		}
		spec.Width = width
		spec.VariableWidth = width.HasMonth()
		return spec, nil
	}
	width, err := strconv.ParseInt(agg.BucketWidth, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("stored bucket width %q: %w", agg.BucketWidth, err)
	}
	spec.IntegerWidth = width
	return spec, nil
}

func (s *Service) liveColumns(ctx context.Context, table string) (map[string]string, error) {
	meta, err := s.db.GetTableMetadata(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	columns := make(map[string]string, len(meta.Columns))
	for _, col := range meta.Columns {
		columns[col.Name] = col.Type
	}
	return columns, nil
}
