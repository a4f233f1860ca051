package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-db/tidemark/pkg/dialect"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		expectErr bool
		errMsg    string
	}{
		{
			name:      "exec without connection",
			setupDB:   false,
			sql:       "SELECT 1",
			expectErr: true,
			errMsg:    "database connection not established",
		},
		{
			name:    "exec success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE readings").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql: "CREATE TABLE readings (ts timestamptz)",
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:       "INVALID SQL",
			expectErr: true,
			errMsg:    "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				if tt.setupMock != nil {
					tt.setupMock(mock)
				}
				base.DB = db
			}

			err := base.Exec(context.Background(), tt.sql)
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseSQLAdapter_ExecScript(t *testing.T) {
	t.Run("all statements commit together", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectExec("CREATE SCHEMA").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE VIEW").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		base := &BaseSQLAdapter{DB: db}
		err = base.ExecScript(context.Background(), []string{
			"CREATE SCHEMA IF NOT EXISTS _tidemark_internal",
			"CREATE TABLE _tidemark_internal._materialized_table_1 (bucket timestamptz)",
			"CREATE VIEW metrics_hourly AS SELECT 1",
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE VIEW").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		base := &BaseSQLAdapter{DB: db}
		err = base.ExecScript(context.Background(), []string{
			"CREATE TABLE t (x int)",
			"CREATE VIEW v AS SELECT broken",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CREATE VIEW")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without connection", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		err := base.ExecScript(context.Background(), []string{"SELECT 1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database connection not established")
	})
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	t.Run("without connection", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		_, err := base.Query(context.Background(), "SELECT 1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database connection not established")
	})

	t.Run("returns rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT name").WillReturnRows(
			sqlmock.NewRows([]string{"name"}).AddRow("metrics_hourly"))

		base := &BaseSQLAdapter{DB: db}
		rows, err := base.Query(context.Background(), "SELECT name FROM views")
		require.NoError(t, err)
		defer func() { _ = rows.Close() }()

		require.True(t, rows.Next())
		var name string
		require.NoError(t, rows.Scan(&name))
		assert.Equal(t, "metrics_hourly", name)
		require.NoError(t, rows.Err())
	})
}

func TestParseQualifiedName(t *testing.T) {
	schema, name := ParseQualifiedName("public.sensors", dialect.Postgres)
	assert.Equal(t, "public", schema)
	assert.Equal(t, "sensors", name)

	schema, name = ParseQualifiedName("sensors", dialect.Postgres)
	assert.Equal(t, "public", schema)
	assert.Equal(t, "sensors", name)

	schema, name = ParseQualifiedName("sensors", dialect.DuckDB)
	assert.Equal(t, "main", schema)
	assert.Equal(t, "sensors", name)
}

func TestBaseSQLAdapter_GetTableMetadataCommon(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cols := sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
		AddRow("ts", "timestamp with time zone", "NO", 1).
		AddRow("device", "text", "YES", 2).
		AddRow("temp", "double precision", "YES", 3)
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public", "sensors").
		WillReturnRows(cols)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	base := &BaseSQLAdapter{DB: db}
	meta, err := base.GetTableMetadataCommon(context.Background(), "sensors", dialect.Postgres)
	require.NoError(t, err)

	assert.Equal(t, "public", meta.Schema)
	assert.Equal(t, "sensors", meta.Name)
	assert.Equal(t, int64(42), meta.RowCount)
	require.Len(t, meta.Columns, 3)
	assert.Equal(t, "ts", meta.Columns[0].Name)
	assert.False(t, meta.Columns[0].Nullable)
	assert.True(t, meta.Columns[1].Nullable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_GetTableMetadataCommon_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.columns").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

	base := &BaseSQLAdapter{DB: db}
	_, err = base.GetTableMetadataCommon(context.Background(), "missing", dialect.Postgres)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
