package hypertable

import (
	"fmt"
	"strings"

	"github.com/tidemark-db/tidemark/internal/compile"
	"github.com/tidemark-db/tidemark/internal/state"
	"github.com/tidemark-db/tidemark/pkg/render"
)

// CreateScript emits the DDL for one backing table: the internal schema,
// the table itself, and the per-group indexes. Statements are ordered so
// the whole script can run inside one transaction.
func CreateScript(schema *compile.MaterializationSchema) []string {
	stmts := []string{
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", render.QuoteIdent(schema.TableSchema)),
		createTableSQL(schema),
	}
	for _, idx := range schema.GroupIndexes {
		stmts = append(stmts, createIndexSQL(schema, idx))
	}
	return stmts
}

func createTableSQL(schema *compile.MaterializationSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s.%s (",
		render.QuoteIdent(schema.TableSchema), render.QuoteIdent(schema.TableName))
	for i, col := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(render.QuoteIdent(col.Name))
		b.WriteString(" ")
		b.WriteString(col.TypeName)
		if col.NotNull {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")
	return b.String()
}

func createIndexSQL(schema *compile.MaterializationSchema, idx compile.IndexSpec) string {
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		// A trailing " DESC" is ordering, not part of the column name.
		if name, ok := strings.CutSuffix(c, " DESC"); ok {
			cols[i] = render.QuoteIdent(name) + " DESC"
		} else {
			cols[i] = render.QuoteIdent(c)
		}
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s.%s (%s)",
		render.QuoteIdent(idx.Name),
		render.QuoteIdent(schema.TableSchema), render.QuoteIdent(schema.TableName),
		strings.Join(cols, ", "))
}

// DropScript emits the DDL removing one aggregate's generated objects:
// the three views and the backing table, dependents first.
func DropScript(viewSchema, viewName string, matID int64) []string {
	return []string{
		fmt.Sprintf("DROP VIEW IF EXISTS %s.%s",
			render.QuoteIdent(viewSchema), render.QuoteIdent(viewName)),
		fmt.Sprintf("DROP VIEW IF EXISTS %s.%s",
			render.QuoteIdent(compile.InternalSchema), render.QuoteIdent(compile.DirectViewName(matID))),
		fmt.Sprintf("DROP VIEW IF EXISTS %s.%s",
			render.QuoteIdent(compile.InternalSchema), render.QuoteIdent(compile.PartialViewName(matID))),
		fmt.Sprintf("DROP TABLE IF EXISTS %s.%s",
			render.QuoteIdent(compile.InternalSchema), render.QuoteIdent(compile.MatTableName(matID))),
	}
}

// RegisterMaterialization records the backing table as a hypertable in
// its own right, carrying the widened partition policy, so hierarchical
// children and the refresh subsystem can treat it like any other
// partitioned table.
func RegisterMaterialization(tx *state.Tx, schema *compile.MaterializationSchema) (*state.Hypertable, error) {
	columnType := ""
	for _, col := range schema.Columns {
		if col.Name == schema.PartitionColumn {
			columnType = col.TypeName
			break
		}
	}
	if columnType == "" {
		return nil, fmt.Errorf("partition column %s not in backing table layout", schema.PartitionColumn)
	}

	ht := &state.Hypertable{
		Schema:         schema.TableSchema,
		Name:           schema.TableName,
		TimeColumn:     schema.PartitionColumn,
		ColumnType:     columnType,
		PartitionWidth: schema.PartitionWidth,
	}
	if err := tx.RegisterHypertable(ht); err != nil {
		return nil, err
	}
	return ht, nil
}
