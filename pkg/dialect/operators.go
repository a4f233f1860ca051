package dialect

import "fmt"

// ComparisonOps is the operator pair used to split rows at the watermark
// boundary: rows strictly below the boundary come from the materialized
// side, the negator selects everything else.
type ComparisonOps struct {
	Less    string
	Negator string
}

// orderedTypes are the partition column types with a usable btree "<".
var orderedTypes = map[string]bool{
	"timestamptz": true,
	"timestamp":   true,
	"date":        true,
	"smallint":    true,
	"integer":     true,
	"bigint":      true,
}

// ComparisonOpsFor returns the boundary operator pair for a partition
// column type, or an error when the type has no known ordering.
func ComparisonOpsFor(columnType string) (ComparisonOps, error) {
	if !orderedTypes[columnType] {
		return ComparisonOps{}, fmt.Errorf("no ordering operator for type %q", columnType)
	}
	return ComparisonOps{Less: "<", Negator: ">="}, nil
}
