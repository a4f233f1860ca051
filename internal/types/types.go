// Package types models the partition column types the compiler supports
// and the arithmetic the bucket extractor performs on their widths.
//
// Watermarks are stored as a single bigint regardless of column type: time
// types count microseconds since the Postgres epoch, integer types carry
// the raw value. Converter functions map that bigint back to the column
// type inside generated SQL.
package types

import "fmt"

// ColumnType identifies a supported partition column type.
type ColumnType int

const (
	TimestampTZ ColumnType = iota
	Timestamp
	Date
	Int2
	Int4
	Int8
)

// ParseColumnType maps a SQL type name to a ColumnType.
func ParseColumnType(name string) (ColumnType, error) {
	switch name {
	case "timestamptz", "timestamp with time zone":
		return TimestampTZ, nil
	case "timestamp", "timestamp without time zone":
		return Timestamp, nil
	case "date":
		return Date, nil
	case "smallint", "int2":
		return Int2, nil
	case "integer", "int", "int4":
		return Int4, nil
	case "bigint", "int8":
		return Int8, nil
	default:
		return 0, fmt.Errorf("unsupported partition column type %q", name)
	}
}

// SQLName returns the canonical SQL name of the type.
func (t ColumnType) SQLName() string {
	switch t {
	case TimestampTZ:
		return "timestamptz"
	case Timestamp:
		return "timestamp"
	case Date:
		return "date"
	case Int2:
		return "smallint"
	case Int4:
		return "integer"
	case Int8:
		return "bigint"
	}
	return "unknown"
}

func (t ColumnType) String() string {
	return t.SQLName()
}

// IsTimeType reports whether the type is a timestamp or date type.
func (t ColumnType) IsTimeType() bool {
	switch t {
	case TimestampTZ, Timestamp, Date:
		return true
	}
	return false
}

// MinLiteral returns the SQL literal for the smallest representable value
// of the type. It seeds the watermark boundary before the first
// materialization run, when the watermark register is still empty.
func (t ColumnType) MinLiteral() string {
	switch t {
	case TimestampTZ:
		return "'-infinity'::timestamptz"
	case Timestamp:
		return "'-infinity'::timestamp"
	case Date:
		return "'-infinity'::date"
	case Int2:
		return "'-32768'::smallint"
	case Int4:
		return "'-2147483648'::integer"
	case Int8:
		return "'-9223372036854775808'::bigint"
	}
	return "NULL"
}

// ConverterFunc returns the function that converts the internal bigint
// watermark back to this column type, or "" when the raw bigint is used
// directly.
func (t ColumnType) ConverterFunc() string {
	switch t {
	case TimestampTZ:
		return "to_timestamp"
	case Timestamp:
		return "to_timestamp_without_timezone"
	case Date:
		return "to_date"
	}
	return ""
}
