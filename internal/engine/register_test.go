package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-db/tidemark/pkg/adapter"
)

func TestRegisterSource(t *testing.T) {
	e, fake := setupEngine(t)
	fake.metadata["public.trades"] = &adapter.Metadata{
		Schema: "public", Name: "trades",
		Columns: []adapter.Column{
			{Name: "executed_at", Type: "timestamp with time zone", Position: 1},
			{Name: "price", Type: "numeric", Position: 2},
		},
	}

	ht, err := e.RegisterSource(context.Background(), "public.trades", "executed_at", "1 hour")
	require.NoError(t, err)
	assert.Equal(t, "public", ht.Schema)
	assert.Equal(t, "trades", ht.Name)
	assert.Equal(t, "timestamptz", ht.ColumnType)
	assert.Equal(t, int64(3_600_000_000), ht.PartitionWidth)
	assert.NotZero(t, ht.ID)

	stored, err := e.Store().GetHypertable("public", "trades")
	require.NoError(t, err)
	assert.Equal(t, ht.ID, stored.ID)

	// Registering twice is refused.
	_, err = e.RegisterSource(context.Background(), "public.trades", "executed_at", "1 hour")
	assert.ErrorContains(t, err, "already registered")
}

func TestRegisterSource_IntegerColumn(t *testing.T) {
	e, fake := setupEngine(t)
	fake.metadata["public.blocks"] = &adapter.Metadata{
		Schema: "public", Name: "blocks",
		Columns: []adapter.Column{
			{Name: "height", Type: "bigint", Position: 1},
		},
	}

	ht, err := e.RegisterSource(context.Background(), "public.blocks", "height", "1000")
	require.NoError(t, err)
	assert.Equal(t, "bigint", ht.ColumnType)
	assert.Equal(t, int64(1000), ht.PartitionWidth)

	// Integer columns take an integer width, not an interval.
	fake.metadata["public.epochs"] = &adapter.Metadata{
		Schema: "public", Name: "epochs",
		Columns: []adapter.Column{
			{Name: "epoch", Type: "integer", Position: 1},
		},
	}
	_, err = e.RegisterSource(context.Background(), "public.epochs", "epoch", "1 hour")
	assert.ErrorContains(t, err, "integer width")
}

func TestRegisterSource_Validation(t *testing.T) {
	e, fake := setupEngine(t)
	fake.metadata["public.trades"] = &adapter.Metadata{
		Schema: "public", Name: "trades",
		Columns: []adapter.Column{
			{Name: "executed_at", Type: "timestamp with time zone", Position: 1},
			{Name: "note", Type: "text", Position: 2},
		},
	}

	_, err := e.RegisterSource(context.Background(), "public.trades", "missing", "1 hour")
	assert.ErrorContains(t, err, "column missing not found")

	_, err = e.RegisterSource(context.Background(), "public.trades", "note", "1 hour")
	assert.ErrorContains(t, err, "unsupported partition column type")

	_, err = e.RegisterSource(context.Background(), "public.trades", "executed_at", "1 month")
	assert.ErrorContains(t, err, "no fixed width")

	_, err = e.RegisterSource(context.Background(), "public.trades", "executed_at", "0 hours")
	assert.ErrorContains(t, err, "must be positive")

	_, err = e.RegisterSource(context.Background(), "public.nope", "executed_at", "1 hour")
	assert.Error(t, err)
}
