package engine

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-db/tidemark/internal/compile"
	"github.com/tidemark-db/tidemark/internal/state"
	"github.com/tidemark-db/tidemark/internal/testutil"
	"github.com/tidemark-db/tidemark/pkg/adapter"
	"github.com/tidemark-db/tidemark/pkg/dialect"
)

const sensorsDecl = "SELECT time_bucket('1 hour', ts) AS bucket, device, avg(temp) AS avg FROM sensors GROUP BY bucket, device"

// fakeTarget records every statement the engine sends to the target and
// serves canned table metadata. Queries go through a sqlmock connection.
type fakeTarget struct {
	d        *dialect.Dialect
	metadata map[string]*adapter.Metadata

	execs   []string
	scripts [][]string

	failScript bool

	queryDB   *sql.DB
	queryMock sqlmock.Sqlmock
}

func newFakeTarget(t *testing.T) *fakeTarget {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &fakeTarget{
		d:         dialect.Postgres,
		metadata:  make(map[string]*adapter.Metadata),
		queryDB:   db,
		queryMock: mock,
	}
}

func (f *fakeTarget) Connect(_ context.Context, _ adapter.Config) error { return nil }
func (f *fakeTarget) Close() error                                      { return nil }
func (f *fakeTarget) Dialect() *dialect.Dialect                         { return f.d }

func (f *fakeTarget) Exec(_ context.Context, sqlStr string) error {
	f.execs = append(f.execs, sqlStr)
	return nil
}

func (f *fakeTarget) ExecScript(_ context.Context, stmts []string) error {
	if f.failScript {
		return fmt.Errorf("target rejected DDL")
	}
	f.scripts = append(f.scripts, stmts)
	return nil
}

func (f *fakeTarget) Query(ctx context.Context, sqlStr string) (*adapter.Rows, error) {
	rows, err := f.queryDB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	return &adapter.Rows{Rows: rows}, nil
}

func (f *fakeTarget) GetTableMetadata(_ context.Context, table string) (*adapter.Metadata, error) {
	if meta, ok := f.metadata[table]; ok {
		return meta, nil
	}
	return nil, fmt.Errorf("table %s not found", table)
}

// expectTriggerCheck arms the fake for one trigger-installation check
// reporting whether the trigger is already present.
func (f *fakeTarget) expectTriggerCheck(present bool) {
	count := 0
	if present {
		count = 1
	}
	f.queryMock.ExpectQuery("information_schema.triggers").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func (f *fakeTarget) allStatements() string {
	var b strings.Builder
	for _, script := range f.scripts {
		for _, s := range script {
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func sensorsColumns() []adapter.Column {
	return []adapter.Column{
		{Name: "ts", Type: "timestamptz", Position: 1},
		{Name: "device", Type: "text", Nullable: true, Position: 2},
		{Name: "temp", Type: "double precision", Nullable: true, Position: 3},
	}
}

func userViewColumns(names ...string) []adapter.Column {
	cols := make([]adapter.Column, len(names))
	for i, n := range names {
		cols[i] = adapter.Column{Name: n, Nullable: true, Position: i + 1}
	}
	return cols
}

func setupEngine(t *testing.T) (*Engine, *fakeTarget) {
	t.Helper()
	fake := newFakeTarget(t)
	fake.metadata["public.sensors"] = &adapter.Metadata{
		Schema: "public", Name: "sensors", Columns: sensorsColumns(),
	}

	e, err := New(Config{
		CatalogPath: filepath.Join(t.TempDir(), "catalog.db"),
		DB:          fake,
		Logger:      testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	require.NoError(t, e.Store().RegisterHypertable(&state.Hypertable{
		Schema: "public", Name: "sensors",
		TimeColumn: "ts", ColumnType: "timestamptz",
		PartitionWidth: 86_400_000_000,
	}))
	return e, fake
}

func createSensorsHourly(t *testing.T, e *Engine, fake *fakeTarget, opts compile.Options) *state.Aggregate {
	t.Helper()
	fake.expectTriggerCheck(false)
	fake.metadata["public.sensors_hourly"] = &adapter.Metadata{
		Schema: "public", Name: "sensors_hourly",
		Columns: userViewColumns("bucket", "device", "avg"),
	}
	agg, err := e.Create(context.Background(), "public", "sensors_hourly", sensorsDecl, opts)
	require.NoError(t, err)
	return agg
}

func TestCreate(t *testing.T) {
	e, fake := setupEngine(t)
	agg := createSensorsHourly(t, e, fake, compile.DefaultOptions())

	assert.NotZero(t, agg.ID)
	assert.Equal(t, "time_bucket", agg.BucketFunc)
	assert.Equal(t, "bucket", agg.BucketColumn)
	assert.Equal(t, "1 hour", agg.BucketWidth)
	assert.True(t, agg.Finalized)
	assert.Contains(t, agg.UserSQL, "UNION ALL")
	assert.Contains(t, agg.UserSQL, "watermark")
	assert.Contains(t, agg.PartialSQL, "time_bucket('1 hour', ts)")

	// The backing table is registered as a hypertable with the widened
	// partition policy.
	matHT, err := e.Store().GetHypertable(compile.InternalSchema, compile.MatTableName(agg.ID))
	require.NoError(t, err)
	assert.Equal(t, "bucket", matHT.TimeColumn)
	assert.Equal(t, int64(10*86_400_000_000), matHT.PartitionWidth)

	// Creation registers a fully-open invalidation window.
	invs, err := e.Store().Invalidations(matHT.ID)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, int64(-9223372036854775808), invs[0].Lowest)
	assert.Equal(t, int64(9223372036854775807), invs[0].Greatest)

	// One DDL script created everything, then the trigger was installed.
	all := fake.allStatements()
	assert.Contains(t, all, "CREATE SCHEMA IF NOT EXISTS _tidemark_internal")
	assert.Contains(t, all, fmt.Sprintf("CREATE TABLE _tidemark_internal.%s", compile.MatTableName(agg.ID)))
	assert.Contains(t, all, fmt.Sprintf("CREATE VIEW _tidemark_internal.%s", compile.PartialViewName(agg.ID)))
	assert.Contains(t, all, fmt.Sprintf("CREATE VIEW _tidemark_internal.%s", compile.DirectViewName(agg.ID)))
	assert.Contains(t, all, "CREATE VIEW public.sensors_hourly AS")
	require.Len(t, fake.execs, 1)
	assert.Contains(t, fake.execs[0], "CREATE TRIGGER tidemark_invalidation_trigger")
	assert.Contains(t, fake.execs[0], "ON public.sensors")
}

func TestCreate_SecondAggregateSkipsTrigger(t *testing.T) {
	e, fake := setupEngine(t)
	createSensorsHourly(t, e, fake, compile.DefaultOptions())

	fake.expectTriggerCheck(true)
	fake.metadata["public.sensors_daily"] = &adapter.Metadata{
		Schema: "public", Name: "sensors_daily",
		Columns: userViewColumns("bucket", "device", "avg"),
	}
	decl := "SELECT time_bucket('1 day', ts) AS bucket, device, avg(temp) AS avg FROM sensors GROUP BY bucket, device"
	_, err := e.Create(context.Background(), "public", "sensors_daily", decl, compile.DefaultOptions())
	require.NoError(t, err)

	// Still only the first CREATE TRIGGER.
	require.Len(t, fake.execs, 1)
}

func TestCreate_MaterializedOnly(t *testing.T) {
	e, fake := setupEngine(t)
	opts := compile.DefaultOptions()
	opts.MaterializedOnly = true
	agg := createSensorsHourly(t, e, fake, opts)

	assert.True(t, agg.MaterializedOnly)
	assert.NotContains(t, agg.UserSQL, "UNION ALL")
	assert.NotContains(t, agg.UserSQL, "watermark")
}

func TestCreate_RollsBackOnDDLFailure(t *testing.T) {
	e, fake := setupEngine(t)
	fake.failScript = true

	_, err := e.Create(context.Background(), "public", "sensors_hourly", sensorsDecl, compile.DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target rejected DDL")

	// No catalog rows survive the failed creation.
	_, err = e.Store().GetAggregateByName("public", "sensors_hourly")
	assert.ErrorIs(t, err, state.ErrNotFound)
	_, err = e.Store().GetHypertable(compile.InternalSchema, compile.MatTableName(1))
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestCreate_RejectsInvalidDeclaration(t *testing.T) {
	e, _ := setupEngine(t)

	// No bucket call in GROUP BY.
	_, err := e.Create(context.Background(), "public", "bad",
		"SELECT device, avg(temp) AS avg FROM sensors GROUP BY device", compile.DefaultOptions())
	require.Error(t, err)

	_, err = e.Store().GetAggregateByName("public", "bad")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestSetRealtime(t *testing.T) {
	e, fake := setupEngine(t)
	agg := createSensorsHourly(t, e, fake, compile.DefaultOptions())

	require.NoError(t, e.SetRealtime(context.Background(), "public", "sensors_hourly", false))

	got, err := e.Store().GetAggregate(agg.ID)
	require.NoError(t, err)
	assert.True(t, got.MaterializedOnly)
	assert.NotContains(t, got.UserSQL, "UNION ALL")

	last := fake.scripts[len(fake.scripts)-1]
	require.Len(t, last, 1)
	assert.Contains(t, last[0], "CREATE OR REPLACE VIEW public.sensors_hourly AS")
	assert.NotContains(t, last[0], "UNION ALL")

	// Flip back on: the union and its watermark gate come back.
	require.NoError(t, e.SetRealtime(context.Background(), "public", "sensors_hourly", true))
	got, err = e.Store().GetAggregate(agg.ID)
	require.NoError(t, err)
	assert.False(t, got.MaterializedOnly)
	assert.Contains(t, got.UserSQL, "UNION ALL")
	assert.Contains(t, got.UserSQL, "watermark")
}

func TestSetRealtime_Unchanged(t *testing.T) {
	e, fake := setupEngine(t)
	createSensorsHourly(t, e, fake, compile.DefaultOptions())
	scripts := len(fake.scripts)

	require.NoError(t, e.SetRealtime(context.Background(), "public", "sensors_hourly", true))
	assert.Len(t, fake.scripts, scripts, "no DDL for an unchanged setting")
}

func TestRepair_NoOp(t *testing.T) {
	e, fake := setupEngine(t)
	agg := createSensorsHourly(t, e, fake, compile.DefaultOptions())
	before, err := e.Store().GetAggregate(agg.ID)
	require.NoError(t, err)

	report, err := e.Repair(context.Background(), "public", "sensors_hourly")
	require.NoError(t, err)
	assert.Equal(t, compile.RepairNoOp, report.Action)

	after, err := e.Store().GetAggregate(agg.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt, "no catalog write for a no-op repair")
}

func TestRepair_SwapAfterLiveRename(t *testing.T) {
	e, fake := setupEngine(t)
	agg := createSensorsHourly(t, e, fake, compile.DefaultOptions())

	// Someone renamed columns directly on the live view.
	fake.metadata["public.sensors_hourly"] = &adapter.Metadata{
		Schema: "public", Name: "sensors_hourly",
		Columns: userViewColumns("tbucket", "device", "mean_temp"),
	}

	report, err := e.Repair(context.Background(), "public", "sensors_hourly")
	require.NoError(t, err)
	assert.Equal(t, compile.RepairSwap, report.Action)

	got, err := e.Store().GetAggregate(agg.ID)
	require.NoError(t, err)
	assert.Contains(t, got.UserSQL, "tbucket")
	assert.Contains(t, got.UserSQL, "mean_temp")

	// Repair is idempotent: the next pass finds nothing to do.
	report, err = e.Repair(context.Background(), "public", "sensors_hourly")
	require.NoError(t, err)
	assert.Equal(t, compile.RepairNoOp, report.Action)
}

func TestRepair_WarnsOnColumnDrift(t *testing.T) {
	e, fake := setupEngine(t)
	createSensorsHourly(t, e, fake, compile.DefaultOptions())

	// The live view lost a column; repair refuses to touch it.
	fake.metadata["public.sensors_hourly"] = &adapter.Metadata{
		Schema: "public", Name: "sensors_hourly",
		Columns: userViewColumns("bucket", "device"),
	}

	report, err := e.Repair(context.Background(), "public", "sensors_hourly")
	require.NoError(t, err)
	assert.Equal(t, compile.RepairWarnAndSkip, report.Action)
	require.Error(t, report.Warning)

	var drift *compile.SchemaDriftError
	assert.ErrorAs(t, report.Warning, &drift)
}

func TestRepairAll(t *testing.T) {
	e, fake := setupEngine(t)
	createSensorsHourly(t, e, fake, compile.DefaultOptions())

	fake.expectTriggerCheck(true)
	fake.metadata["public.sensors_daily"] = &adapter.Metadata{
		Schema: "public", Name: "sensors_daily",
		Columns: userViewColumns("bucket", "device", "avg"),
	}
	decl := "SELECT time_bucket('1 day', ts) AS bucket, device, avg(temp) AS avg FROM sensors GROUP BY bucket, device"
	_, err := e.Create(context.Background(), "public", "sensors_daily", decl, compile.DefaultOptions())
	require.NoError(t, err)

	reports, err := e.RepairAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, compile.RepairNoOp, r.Action)
	}
}

func TestRename(t *testing.T) {
	e, fake := setupEngine(t)
	agg := createSensorsHourly(t, e, fake, compile.DefaultOptions())

	require.NoError(t, e.Rename(context.Background(), "public", "sensors_hourly", "", "device_hourly"))

	got, err := e.Store().GetAggregate(agg.ID)
	require.NoError(t, err)
	assert.Equal(t, "device_hourly", got.ViewName)
	assert.Equal(t, "public", got.ViewSchema)

	last := fake.scripts[len(fake.scripts)-1]
	require.Len(t, last, 1)
	assert.Equal(t, "ALTER VIEW public.sensors_hourly RENAME TO device_hourly", last[0])

	_, err = e.Store().GetAggregateByName("public", "sensors_hourly")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestDrop(t *testing.T) {
	e, fake := setupEngine(t)
	agg := createSensorsHourly(t, e, fake, compile.DefaultOptions())
	matHT, err := e.Store().GetHypertable(compile.InternalSchema, compile.MatTableName(agg.ID))
	require.NoError(t, err)

	require.NoError(t, e.Drop(context.Background(), "public", "sensors_hourly"))

	_, err = e.Store().GetAggregateByName("public", "sensors_hourly")
	assert.ErrorIs(t, err, state.ErrNotFound)
	_, err = e.Store().GetHypertable(compile.InternalSchema, compile.MatTableName(agg.ID))
	assert.ErrorIs(t, err, state.ErrNotFound)
	invs, err := e.Store().Invalidations(matHT.ID)
	require.NoError(t, err)
	assert.Empty(t, invs)

	last := fake.scripts[len(fake.scripts)-1]
	assert.Equal(t, "DROP VIEW IF EXISTS public.sensors_hourly", last[0])
	assert.Contains(t, last[3], "DROP TABLE IF EXISTS _tidemark_internal.")
}

func TestDrop_RefusesWithChildren(t *testing.T) {
	e, fake := setupEngine(t)
	parent := createSensorsHourly(t, e, fake, compile.DefaultOptions())

	// A hierarchical child over the hourly aggregate. Resolution reads
	// the parent view's live columns for materialization typing.
	fake.metadata["public.sensors_hourly"] = &adapter.Metadata{
		Schema: "public", Name: "sensors_hourly",
		Columns: []adapter.Column{
			{Name: "bucket", Type: "timestamptz", Position: 1},
			{Name: "device", Type: "text", Nullable: true, Position: 2},
			{Name: "avg", Type: "double precision", Nullable: true, Position: 3},
		},
	}
	fake.metadata["public.sensors_daily"] = &adapter.Metadata{
		Schema: "public", Name: "sensors_daily",
		Columns: userViewColumns("bucket", "device", "avg"),
	}
	decl := "SELECT time_bucket('1 day', bucket) AS bucket, device, avg(avg) AS avg FROM sensors_hourly GROUP BY bucket, device"
	child, err := e.Create(context.Background(), "public", "sensors_daily", decl, compile.DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)
	assert.Equal(t, parent.SourceID, child.SourceID)

	err = e.Drop(context.Background(), "public", "sensors_hourly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hierarchical")

	// Dropping the child first unblocks the parent.
	require.NoError(t, e.Drop(context.Background(), "public", "sensors_daily"))
	require.NoError(t, e.Drop(context.Background(), "public", "sensors_hourly"))
}
