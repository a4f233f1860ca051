package compile

import (
	"fmt"

	"github.com/tidemark-db/tidemark/internal/types"
)

// Reason is a machine-checkable rejection code. Hints are for humans;
// callers branch on reasons.
type Reason string

const (
	ReasonNotSelect          Reason = "not_select"
	ReasonDistinct           Reason = "distinct"
	ReasonWindowFunction     Reason = "window_function"
	ReasonLimitOffset        Reason = "limit_offset"
	ReasonCTE                Reason = "cte"
	ReasonSubquery           Reason = "subquery"
	ReasonSetOperation       Reason = "set_operation"
	ReasonOrderBy            Reason = "order_by"
	ReasonMissingGroupBy     Reason = "missing_group_by"
	ReasonRowSecurity        Reason = "row_security"
	ReasonInvalidFrom        Reason = "invalid_from"
	ReasonInvalidJoin        Reason = "invalid_join"
	ReasonMissingBucket      Reason = "missing_bucket"
	ReasonUnprojectedBucket  Reason = "unprojected_bucket"
	ReasonMultipleBuckets    Reason = "multiple_buckets"
	ReasonInvalidBucketWidth Reason = "invalid_bucket_width"
	ReasonInvalidTimezone    Reason = "invalid_timezone"
	ReasonInvalidOrigin      Reason = "invalid_origin"
	ReasonUnknownAggregate   Reason = "unknown_aggregate"
	ReasonAggregateFilter    Reason = "aggregate_filter"
	ReasonUngroupedColumn    Reason = "ungrouped_column"
	ReasonUnmatchedHaving    Reason = "unmatched_having"
)

// UnsupportedQueryError rejects a query shape the compiler cannot
// materialize. Detail says what was found, Hint says what to do instead.
type UnsupportedQueryError struct {
	Reason Reason
	Detail string
	Hint   string
}

func (e *UnsupportedQueryError) Error() string {
	msg := fmt.Sprintf("unsupported query: %s", e.Detail)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func unsupported(reason Reason, detail, hint string) *UnsupportedQueryError {
	return &UnsupportedQueryError{Reason: reason, Detail: detail, Hint: hint}
}

// InvalidBucketError rejects a malformed bucket expression.
type InvalidBucketError struct {
	Reason Reason
	Detail string
}

func (e *InvalidBucketError) Error() string {
	return fmt.Sprintf("invalid time bucket: %s", e.Detail)
}

// ImpureExpressionError rejects a target expression whose value could
// change between materialization runs.
type ImpureExpressionError struct {
	Function string
	Context  string
}

func (e *ImpureExpressionError) Error() string {
	return fmt.Sprintf("%s calls volatile function %s; materialized expressions must be stable", e.Context, e.Function)
}

// SchemaDriftError reports that a stored definition no longer lines up
// with the live objects. Repair never fails on drift; it surfaces this as
// a warning and leaves the aggregate untouched.
type SchemaDriftError struct {
	Expected int
	Found    int
	Detail   string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("schema drift: %s (expected %d columns, found %d)", e.Detail, e.Expected, e.Found)
}

// HierarchyError rejects a nested aggregate whose bucket width does not
// stack on its parent's.
type HierarchyError struct {
	ParentWidth types.Interval
	ChildWidth  types.Interval
	Detail      string
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("incompatible bucket hierarchy: child width %s vs parent width %s: %s",
		e.ChildWidth, e.ParentWidth, e.Detail)
}
