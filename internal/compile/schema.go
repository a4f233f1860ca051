package compile

import (
	"fmt"

	"github.com/tidemark-db/tidemark/internal/types"
)

// BuildSchema lays out the backing table for one compiled aggregate. The
// table is itself partitioned on the bucket column, with each partition
// covering PartitionWidthFactor source partitions so materialized history
// ages independently of the source. One composite index per auxiliary
// group column, keyed (group column, bucket DESC), serves
// most-recent-bucket-per-group scans.
func BuildSchema(matID int64, dec *Decomposition, bucket *TimeBucketSpec, src *Source, opts Options) *MaterializationSchema {
	schema := &MaterializationSchema{
		TableSchema:     InternalSchema,
		TableName:       MatTableName(matID),
		Columns:         append([]Column(nil), dec.Columns...),
		PartitionColumn: dec.BucketColumn,
		PartitionWidth:  partitionWidth(src),
	}
	if !opts.CreateGroupIndexes {
		return schema
	}
	for _, group := range dec.GroupColumns {
		schema.GroupIndexes = append(schema.GroupIndexes, IndexSpec{
			Name:    fmt.Sprintf("%s_%s_idx", schema.TableName, group),
			Columns: []string{group, dec.BucketColumn + " DESC"},
		})
	}
	return schema
}

func partitionWidth(src *Source) int64 {
	if src.ColumnType.IsTimeType() {
		return PartitionWidthFactor * src.PartitionWidth.NominalTicks()
	}
	return PartitionWidthFactor * src.IntegerWidth
}

// MatTableName returns the backing table name for a catalog id.
func MatTableName(id int64) string {
	return fmt.Sprintf(matTableFmt, id)
}

// PartialViewName returns the internal population view name for a
// catalog id.
func PartialViewName(id int64) string {
	return fmt.Sprintf(partialViewFmt, id)
}

// DirectViewName returns the internal view name holding the declaration
// as written, for a catalog id.
func DirectViewName(id int64) string {
	return fmt.Sprintf(directViewFmt, id)
}

// InitialInvalidation is the fully-open invalidation window registered at
// creation. Nothing is materialized yet, so every bucket is stale until a
// refresh narrows it.
func InitialInvalidation(columnType types.ColumnType) (low, high int64) {
	return minTick(columnType), maxTick(columnType)
}

func minTick(columnType types.ColumnType) int64 {
	switch columnType {
	case types.Int2:
		return -32768
	case types.Int4:
		return -2147483648
	default:
		return -9223372036854775808
	}
}

func maxTick(columnType types.ColumnType) int64 {
	switch columnType {
	case types.Int2:
		return 32767
	case types.Int4:
		return 2147483647
	default:
		return 9223372036854775807
	}
}
