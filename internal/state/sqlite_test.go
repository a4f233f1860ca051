package state

import (
	"errors"
	"testing"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore()
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func registerTestHypertable(t *testing.T, store *SQLiteStore) *Hypertable {
	t.Helper()
	ht := &Hypertable{
		Schema:         "public",
		Name:           "sensors",
		TimeColumn:     "ts",
		ColumnType:     "timestamptz",
		PartitionWidth: 86_400_000_000,
	}
	if err := store.RegisterHypertable(ht); err != nil {
		t.Fatalf("failed to register hypertable: %v", err)
	}
	return ht
}

func createTestAggregate(t *testing.T, store *SQLiteStore, ht *Hypertable) *Aggregate {
	t.Helper()
	agg := &Aggregate{
		ViewSchema:   "public",
		ViewName:     "sensors_hourly",
		SourceID:     ht.ID,
		DirectSQL:    "SELECT time_bucket('1 hour', ts) AS bucket, avg(temp) FROM sensors GROUP BY bucket",
		PartialSQL:   "SELECT ...",
		UserSQL:      "SELECT ...",
		Finalized:    true,
		BucketFunc:   "time_bucket",
		BucketColumn: "bucket",
		BucketWidth:  "1 hour",
	}
	err := store.InTx(func(tx *Tx) error {
		return tx.CreateAggregate(agg)
	})
	if err != nil {
		t.Fatalf("failed to create aggregate: %v", err)
	}
	return agg
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore()
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	tables := []string{"hypertables", "continuous_aggregates", "watermarks", "invalidations"}
	for _, table := range tables {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if err != nil {
			t.Errorf("table %s does not exist: %v", table, err)
		} else {
			rows.Close()
		}
	}

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("failed to read migration version: %v", err)
	}
	if version < 1 {
		t.Errorf("expected migration version >= 1, got %d", version)
	}
}

func TestSQLiteStore_Hypertables(t *testing.T) {
	store := setupTestStore(t)
	ht := registerTestHypertable(t, store)

	if ht.ID == 0 {
		t.Fatal("expected assigned hypertable id")
	}

	got, err := store.GetHypertable("public", "sensors")
	if err != nil {
		t.Fatalf("failed to get hypertable: %v", err)
	}
	if got.TimeColumn != "ts" || got.PartitionWidth != 86_400_000_000 {
		t.Errorf("unexpected hypertable row: %+v", got)
	}

	if _, err := store.GetHypertable("public", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_AggregateLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ht := registerTestHypertable(t, store)
	agg := createTestAggregate(t, store, ht)

	if agg.ID == 0 {
		t.Fatal("expected assigned aggregate id")
	}

	got, err := store.GetAggregateByName("public", "sensors_hourly")
	if err != nil {
		t.Fatalf("failed to get aggregate: %v", err)
	}
	if got.ID != agg.ID || !got.Finalized || got.MaterializedOnly {
		t.Errorf("unexpected aggregate row: %+v", got)
	}

	err = store.InTx(func(tx *Tx) error {
		return tx.UpdateDefinitions(agg.ID, "new partial", "new user")
	})
	if err != nil {
		t.Fatalf("failed to swap definitions: %v", err)
	}
	got, err = store.GetAggregate(agg.ID)
	if err != nil {
		t.Fatalf("failed to get aggregate: %v", err)
	}
	if got.PartialSQL != "new partial" || got.UserSQL != "new user" {
		t.Errorf("definitions not swapped: %+v", got)
	}

	err = store.InTx(func(tx *Tx) error {
		return tx.RenameAggregate(agg.ID, "public", "sensors_by_hour")
	})
	if err != nil {
		t.Fatalf("failed to rename: %v", err)
	}
	if _, err := store.GetAggregateByName("public", "sensors_hourly"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old name still resolves: %v", err)
	}

	err = store.InTx(func(tx *Tx) error {
		return tx.DeleteAggregate(agg.ID)
	})
	if err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := store.GetAggregate(agg.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("aggregate still present after delete: %v", err)
	}
}

func TestSQLiteStore_CreationRollsBackAtomically(t *testing.T) {
	store := setupTestStore(t)
	ht := registerTestHypertable(t, store)

	boom := errors.New("boom")
	err := store.InTx(func(tx *Tx) error {
		agg := &Aggregate{
			ViewSchema: "public", ViewName: "doomed", SourceID: ht.ID,
			DirectSQL: "...", PartialSQL: "...", UserSQL: "...",
			BucketFunc: "time_bucket", BucketColumn: "bucket", BucketWidth: "1 hour",
		}
		if err := tx.CreateAggregate(agg); err != nil {
			return err
		}
		if err := tx.LogInvalidation(ht.ID, -1, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := store.GetAggregateByName("public", "doomed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("aggregate visible after rollback: %v", err)
	}
	invs, err := store.Invalidations(ht.ID)
	if err != nil {
		t.Fatalf("failed to list invalidations: %v", err)
	}
	if len(invs) != 0 {
		t.Errorf("invalidations visible after rollback: %d", len(invs))
	}
}

func TestSQLiteStore_WatermarkMonotonic(t *testing.T) {
	store := setupTestStore(t)
	ht := registerTestHypertable(t, store)
	agg := createTestAggregate(t, store, ht)

	if _, ok, err := store.Watermark(agg.ID); err != nil || ok {
		t.Fatalf("expected absent watermark, got ok=%v err=%v", ok, err)
	}

	if err := store.AdvanceWatermark(agg.ID, 1000); err != nil {
		t.Fatalf("failed to advance: %v", err)
	}
	if err := store.AdvanceWatermark(agg.ID, 500); err != nil {
		t.Fatalf("failed to advance: %v", err)
	}
	value, ok, err := store.Watermark(agg.ID)
	if err != nil || !ok {
		t.Fatalf("expected watermark, got ok=%v err=%v", ok, err)
	}
	if value != 1000 {
		t.Errorf("watermark regressed: got %d, want 1000", value)
	}

	if err := store.AdvanceWatermark(agg.ID, 2000); err != nil {
		t.Fatalf("failed to advance: %v", err)
	}
	value, _, _ = store.Watermark(agg.ID)
	if value != 2000 {
		t.Errorf("watermark did not advance: got %d, want 2000", value)
	}
}

func TestSQLiteStore_Invalidations(t *testing.T) {
	store := setupTestStore(t)
	ht := registerTestHypertable(t, store)

	if err := store.LogInvalidation(ht.ID, 100, 200); err != nil {
		t.Fatalf("failed to log: %v", err)
	}
	if err := store.LogInvalidation(ht.ID, 0, 50); err != nil {
		t.Fatalf("failed to log: %v", err)
	}
	if err := store.LogInvalidation(ht.ID, 300, 100); err == nil {
		t.Fatal("expected error for inverted window")
	}

	invs, err := store.Invalidations(ht.ID)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(invs) != 2 || invs[0].Lowest != 0 || invs[1].Lowest != 100 {
		t.Errorf("unexpected windows: %+v", invs)
	}

	if err := store.DeleteInvalidations(invs[0].ID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	invs, _ = store.Invalidations(ht.ID)
	if len(invs) != 1 {
		t.Errorf("expected 1 window, got %d", len(invs))
	}
}
