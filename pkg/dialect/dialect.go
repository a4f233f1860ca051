// Package dialect classifies SQL functions and operators for the
// Postgres-flavored dialect the compiler targets.
//
// The compiler never executes functions, so classification is by name:
// which calls are aggregates, which are bucket functions, and which are
// volatile and therefore banned from materialized expressions.
package dialect

import "strconv"

// Dialect carries the function classifications and operator lookups for
// one SQL flavor.
type Dialect struct {
	Name string

	// DefaultSchema is where unqualified tables resolve.
	DefaultSchema string

	aggregates map[string]bool
	volatiles  map[string]bool
	buckets    map[string]bool
	srfs       map[string]bool

	numberedPlaceholders bool
}

// Builder assembles a Dialect.
type Builder struct {
	d *Dialect
}

// New starts building a dialect with the given name.
func New(name string) *Builder {
	return &Builder{d: &Dialect{
		Name:       name,
		aggregates: make(map[string]bool),
		volatiles:  make(map[string]bool),
		buckets:    make(map[string]bool),
		srfs:       make(map[string]bool),
	}}
}

// Aggregates registers aggregate function names.
func (b *Builder) Aggregates(funcs ...string) *Builder {
	for _, f := range funcs {
		b.d.aggregates[f] = true
	}
	return b
}

// Volatiles registers functions whose result can change between calls.
func (b *Builder) Volatiles(funcs ...string) *Builder {
	for _, f := range funcs {
		b.d.volatiles[f] = true
	}
	return b
}

// Buckets registers time-bucketing function names.
func (b *Builder) Buckets(funcs ...string) *Builder {
	for _, f := range funcs {
		b.d.buckets[f] = true
	}
	return b
}

// SetReturning registers functions that produce row sets.
func (b *Builder) SetReturning(funcs ...string) *Builder {
	for _, f := range funcs {
		b.d.srfs[f] = true
	}
	return b
}

// Schema sets the default schema for unqualified names.
func (b *Builder) Schema(name string) *Builder {
	b.d.DefaultSchema = name
	return b
}

// NumberedPlaceholders switches bind parameters from ? to $1, $2, ...
func (b *Builder) NumberedPlaceholders() *Builder {
	b.d.numberedPlaceholders = true
	return b
}

// Build returns the assembled dialect.
func (b *Builder) Build() *Dialect {
	return b.d
}

// FormatPlaceholder renders the n-th bind parameter (1-based).
func (d *Dialect) FormatPlaceholder(n int) string {
	if d.numberedPlaceholders {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// IsAggregate reports whether name is a known aggregate function.
func (d *Dialect) IsAggregate(name string) bool {
	return d.aggregates[name]
}

// IsVolatile reports whether name is a known volatile function.
func (d *Dialect) IsVolatile(name string) bool {
	return d.volatiles[name]
}

// IsBucketFunc reports whether name is a known time-bucketing function.
func (d *Dialect) IsBucketFunc(name string) bool {
	return d.buckets[name]
}

// IsSetReturning reports whether name is a known set-returning function.
func (d *Dialect) IsSetReturning(name string) bool {
	return d.srfs[name]
}
