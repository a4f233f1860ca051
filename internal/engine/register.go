package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidemark-db/tidemark/internal/state"
	"github.com/tidemark-db/tidemark/internal/types"
	"github.com/tidemark-db/tidemark/pkg/adapter"
)

// RegisterSource records a live table in the catalog as a hypertable so
// aggregate declarations can read from it. The time column must exist on
// the table; width is an interval for time columns ("1 day") and a
// positive integer for integer columns.
func (e *Engine) RegisterSource(ctx context.Context, table, timeColumn, width string) (*state.Hypertable, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	schema, name := adapter.ParseQualifiedName(table, e.dialect)

	if _, err := e.store.GetHypertable(schema, name); err == nil {
		return nil, fmt.Errorf("%s.%s is already registered as a hypertable", schema, name)
	} else if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}

	meta, err := e.db.GetTableMetadata(ctx, table)
	if err != nil {
		return nil, err
	}

	var colType types.ColumnType
	found := false
	for _, col := range meta.Columns {
		if col.Name != timeColumn {
			continue
		}
		colType, err = types.ParseColumnType(strings.ToLower(col.Type))
		if err != nil {
			return nil, fmt.Errorf("time column %s: %w", timeColumn, err)
		}
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("column %s not found on %s.%s", timeColumn, schema, name)
	}

	ticks, err := parsePartitionWidth(colType, width)
	if err != nil {
		return nil, err
	}

	ht := &state.Hypertable{
		Schema:         schema,
		Name:           name,
		TimeColumn:     timeColumn,
		ColumnType:     colType.SQLName(),
		PartitionWidth: ticks,
	}
	if err := e.store.RegisterHypertable(ht); err != nil {
		return nil, err
	}

	e.logger.Info("registered hypertable",
		"table", schema+"."+name,
		"time_column", timeColumn,
		"partition_width", ticks)
	return ht, nil
}

func parsePartitionWidth(colType types.ColumnType, width string) (int64, error) {
	if colType.IsTimeType() {
		iv, err := types.ParseInterval(width)
		if err != nil {
			return 0, err
		}
		if iv.HasMonth() {
			return 0, fmt.Errorf("partition width %q: month intervals have no fixed width", width)
		}
		if ticks := iv.Ticks(); ticks > 0 {
			return ticks, nil
		}
		return 0, fmt.Errorf("partition width %q must be positive", width)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(width), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("partition width %q: %s columns take an integer width", width, colType)
	}
	if n <= 0 {
		return 0, fmt.Errorf("partition width %q must be positive", width)
	}
	return n, nil
}
