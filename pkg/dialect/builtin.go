package dialect

// DefaultName is used when no dialect is configured.
const DefaultName = "ansi"

func init() {
	for _, d := range []*Dialect{
		NewDialect("ansi").Describe("ANSI SQL").Build(),
		NewDialect("athena").Describe("Amazon Athena").Backticks().Build(),
		NewDialect("bigquery").Describe("Google BigQuery").Backticks().BackslashEscapes().Build(),
		NewDialect("databricks").Describe("Databricks SQL").Backticks().BackslashEscapes().Build(),
		NewDialect("duckdb").Describe("DuckDB").Build(),
		NewDialect("hive").Describe("Apache Hive").Backticks().BackslashEscapes().Build(),
		NewDialect("mysql").Describe("MySQL").Backticks().BackslashEscapes().HashComments().Build(),
		NewDialect("postgres").Describe("PostgreSQL").DollarQuoting().Build(),
		NewDialect("redshift").Describe("Amazon Redshift").Build(),
		NewDialect("snowflake").Describe("Snowflake").DollarQuoting().Build(),
		NewDialect("sparksql").Describe("Spark SQL").Backticks().BackslashEscapes().Build(),
		NewDialect("sqlite").Describe("SQLite").Backticks().Brackets().Build(),
		NewDialect("tsql").Describe("Microsoft T-SQL").Brackets().BatchSeparator().Build(),
	} {
		Register(d)
	}
}
