package dialect

// DuckDB speaks a close cousin of the Postgres surface; the aggregate
// and bucket vocabularies carry over, only the volatile set differs.
var duckdbVolatiles = []string{
	"current_date",
	"current_localtime",
	"current_localtimestamp",
	"current_schema",
	"current_setting",
	"current_timestamp",
	"gen_random_uuid",
	"get_current_time",
	"get_current_timestamp",
	"now",
	"nextval",
	"random",
	"today",
	"uuid",
}

var duckdbSetReturning = []string{
	"generate_series",
	"generate_subscripts",
	"range",
	"unnest",
}

// DuckDB is the embedded analytics dialect.
var DuckDB = New("duckdb").
	Schema("main").
	Aggregates(postgresAggregates...).
	Volatiles(duckdbVolatiles...).
	Buckets(postgresBuckets...).
	SetReturning(duckdbSetReturning...).
	Build()
