package dialect

// postgresAggregates lists the aggregate functions the compiler can
// decompose into partial state.
var postgresAggregates = []string{
	"array_agg",
	"avg",
	"bit_and",
	"bit_or",
	"bool_and",
	"bool_or",
	"corr",
	"count",
	"covar_pop",
	"covar_samp",
	"every",
	"first",
	"json_agg",
	"jsonb_agg",
	"last",
	"max",
	"min",
	"regr_avgx",
	"regr_avgy",
	"regr_count",
	"regr_intercept",
	"regr_r2",
	"regr_slope",
	"regr_sxx",
	"regr_sxy",
	"regr_syy",
	"stddev",
	"stddev_pop",
	"stddev_samp",
	"string_agg",
	"sum",
	"var_pop",
	"var_samp",
	"variance",
}

// postgresVolatiles lists functions whose value depends on when or where
// they run. Materializing them would bake one evaluation into stored rows.
var postgresVolatiles = []string{
	"clock_timestamp",
	"current_catalog",
	"current_database",
	"current_date",
	"current_schema",
	"current_setting",
	"current_time",
	"current_timestamp",
	"current_user",
	"gen_random_uuid",
	"inet_client_addr",
	"localtime",
	"localtimestamp",
	"now",
	"nextval",
	"pg_backend_pid",
	"random",
	"session_user",
	"statement_timestamp",
	"timeofday",
	"transaction_timestamp",
	"txid_current",
	"uuid_generate_v4",
}

var postgresBuckets = []string{
	"time_bucket",
}

var postgresSetReturning = []string{
	"generate_series",
	"generate_subscripts",
	"json_array_elements",
	"json_each",
	"jsonb_array_elements",
	"jsonb_each",
	"regexp_matches",
	"regexp_split_to_table",
	"string_to_table",
	"unnest",
}

// Postgres is the dialect the compiler targets.
var Postgres = New("postgres").
	Schema("public").
	NumberedPlaceholders().
	Aggregates(postgresAggregates...).
	Volatiles(postgresVolatiles...).
	Buckets(postgresBuckets...).
	SetReturning(postgresSetReturning...).
	Build()
