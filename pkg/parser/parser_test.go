package parser_test

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/parser"
	"github.com/leapstack-labs/sqllineage/pkg/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, sql string, d string) *segment.Segment {
	t.Helper()
	stmts, err := parser.Parse(sql, parser.Options{Dialect: d})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	require.Empty(t, stmts[0].Violations, "violations: %v", stmts[0].Violations)
	return stmts[0].Tree
}

func raws(segs []*segment.Segment) []string {
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.Raw())
	}
	return out
}

// ---------- Statement Kinds ----------

func TestParse_StatementKinds(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		sql     string
		want    segment.Kind
	}{
		{name: "select", sql: "SELECT a, b AS x FROM db.t WHERE a > 1", want: segment.SelectStatement},
		{name: "union", sql: "SELECT a FROM t1 UNION ALL SELECT a FROM t2", want: segment.SetExpression},
		{name: "bracketed", sql: "(SELECT a FROM t)", want: segment.BracketedStatement},
		{name: "with insert", sql: "WITH c AS (SELECT id FROM s) INSERT INTO t SELECT * FROM c", want: segment.WithCompoundStatement},
		{name: "insert overwrite partition", dialect: "hive", sql: "INSERT OVERWRITE TABLE tab1 PARTITION (ds='2024') SELECT col FROM tab2", want: segment.InsertStatement},
		{name: "insert values", sql: "INSERT INTO t (a, b) VALUES (1, 2)", want: segment.InsertStatement},
		{name: "insert directory", dialect: "sparksql", sql: "INSERT OVERWRITE DIRECTORY 'hdfs://out' SELECT * FROM t", want: segment.InsertStatement},
		{name: "create table as", sql: "CREATE TABLE t AS SELECT * FROM s", want: segment.CreateTableStatement},
		{name: "create table columns", sql: "CREATE TABLE IF NOT EXISTS t (id INT, name VARCHAR(10) NOT NULL)", want: segment.CreateTableStatement},
		{name: "create table like", sql: "CREATE TABLE t LIKE s", want: segment.CreateTableStatement},
		{name: "create view", sql: "CREATE OR REPLACE VIEW v AS SELECT a FROM t", want: segment.CreateViewStatement},
		{name: "merge", sql: "MERGE INTO tgt t USING src s ON t.id = s.id WHEN MATCHED THEN UPDATE SET t.v = s.v", want: segment.MergeStatement},
		{name: "update", sql: "UPDATE t SET a = 1 WHERE b = 2", want: segment.UpdateStatement},
		{name: "update join", dialect: "mysql", sql: "UPDATE a JOIN b ON a.id = b.id SET a.x = b.y", want: segment.UpdateStatement},
		{name: "copy from stage", dialect: "snowflake", sql: "COPY INTO t FROM @stage/path", want: segment.CopyStatement},
		{name: "unload", dialect: "redshift", sql: "UNLOAD ('select * from t') TO 's3://b/p' IAM_ROLE 'x'", want: segment.UnloadStatement},
		{name: "drop table", sql: "DROP TABLE IF EXISTS a, b", want: segment.DropTableStatement},
		{name: "drop view", sql: "DROP VIEW v", want: segment.DropViewStatement},
		{name: "alter rename", sql: "ALTER TABLE a RENAME TO b", want: segment.AlterTableStatement},
		{name: "rename", sql: "RENAME TABLE a TO b, c TO d", want: segment.RenameStatement},
		{name: "delete", sql: "DELETE FROM t WHERE a = 1", want: segment.DeleteStatement},
		{name: "truncate", sql: "TRUNCATE TABLE t", want: segment.TruncateStatement},
		{name: "use", sql: "USE db", want: segment.UseStatement},
		{name: "set", sql: "SET x = 1", want: segment.SetStatement},
		{name: "add jar", dialect: "hive", sql: "ADD JAR /tmp/x.jar", want: segment.AddJarStatement},
		{name: "create function", sql: "CREATE FUNCTION f AS 'com.x.F'", want: segment.CreateFunctionStatement},
		{name: "create schema", sql: "CREATE SCHEMA s", want: segment.CreateSchemaStatement},
		{name: "create index", sql: "CREATE INDEX i ON t (a)", want: segment.CreateIndexStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parseOne(t, tt.sql, tt.dialect)
			assert.Equal(t, tt.want, tree.Kind(), tree.String())
			assert.Equal(t, tt.sql, tree.Raw())
			assert.Equal(t, tt.sql, tree.Text())
		})
	}
}

func TestParse_TextRoundTripWithTrivia(t *testing.T) {
	sql := "SELECT a, -- first\n  /* second */ b\nFROM t  WHERE a = 1"
	tree := parseOne(t, sql, "")
	assert.Equal(t, sql, tree.Text())
	assert.Equal(t, sql, tree.Raw())
}

// ---------- Tree Shapes ----------

func TestParse_SelectShape(t *testing.T) {
	tree := parseOne(t, "SELECT x FROM (SELECT a AS x FROM t) sq", "")

	from := tree.Child(segment.FromClause)
	require.NotNil(t, from)
	elems := from.Find(segment.FromExpressionElement)
	require.Len(t, elems, 1)

	alias := elems[0].Child(segment.AliasExpression)
	require.NotNil(t, alias)
	assert.Equal(t, "sq", alias.Raw())

	inner := tree.Find(segment.SelectStatement)
	require.Len(t, inner, 1)
	assert.Equal(t, "SELECT a AS x FROM t", inner[0].Raw())
}

func TestParse_Expressions(t *testing.T) {
	sql := "SELECT t.*, x::int, arr[0], a IS NOT NULL, b NOT IN (1, 2), c BETWEEN 1 AND 2, " +
		"CASE WHEN a > 0 THEN 'p' ELSE 'n' END AS s, CAST(b AS INT), " +
		"count(DISTINCT c) OVER (PARTITION BY d ORDER BY e ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW), " +
		"DATEADD(day, 1, d), EXTRACT(YEAR FROM d), INTERVAL '1' DAY, DATE '2024-01-01' FROM t"
	tree := parseOne(t, sql, "postgres")

	sel := tree.Child(segment.SelectClause)
	require.NotNil(t, sel)
	elems := sel.ChildrenOf(segment.SelectClauseElement)
	require.Len(t, elems, 13)

	assert.True(t, elems[0].Child(segment.WildcardExpression) != nil)
	assert.NotNil(t, elems[6].Child(segment.CaseExpression))
	assert.Equal(t, "s", elems[6].Child(segment.AliasExpression).Code()[1].Raw())
	assert.NotNil(t, elems[7].Child(segment.Function))
	assert.NotNil(t, elems[8].Find(segment.OverClause))
	assert.NotNil(t, elems[8].Find(segment.PartitionByClause))

	cols := raws(elems[9].Find(segment.ColumnReference))
	assert.Equal(t, []string{"d"}, cols, "date part words are not columns")
}

func TestParse_InsertShape(t *testing.T) {
	tree := parseOne(t, "INSERT INTO t (a, b) VALUES (1, 2)", "")

	assert.Equal(t, "t", tree.Child(segment.TableReference).Raw())
	cols := tree.Child(segment.Bracketed)
	require.NotNil(t, cols)
	assert.Equal(t, []string{"a", "b"}, raws(cols.Find(segment.ColumnReference)))
	assert.NotNil(t, tree.Child(segment.ValuesClause))
}

func TestParse_MergeShape(t *testing.T) {
	sql := "MERGE INTO tgt t USING src s ON t.id = s.id " +
		"WHEN MATCHED THEN UPDATE SET t.v = s.v " +
		"WHEN NOT MATCHED THEN INSERT (id, v) VALUES (s.id, s.v)"
	tree := parseOne(t, sql, "")

	assert.Equal(t, []string{"tgt", "src"}, raws(tree.ChildrenOf(segment.TableReference)))
	match := tree.Child(segment.MergeMatch)
	require.NotNil(t, match)
	whens := match.ChildrenOf(segment.MergeWhenMatchedClause, segment.MergeWhenNotMatchedClause)
	require.Len(t, whens, 2)
	assert.Equal(t, segment.MergeWhenMatchedClause, whens[0].Kind())
	assert.Equal(t, segment.MergeWhenNotMatchedClause, whens[1].Kind())

	set := whens[0].Child(segment.MergeUpdateClause).Child(segment.SetClauseList).Child(segment.SetClause)
	require.NotNil(t, set)
	assert.Equal(t, []string{"t.v", "s.v"}, raws(set.Find(segment.ColumnReference)))

	insert := whens[1].Child(segment.MergeInsertClause)
	require.NotNil(t, insert)
	assert.Len(t, insert.ChildrenOf(segment.Bracketed), 2)
}

func TestParse_UpdateShape(t *testing.T) {
	t.Run("single table", func(t *testing.T) {
		tree := parseOne(t, "UPDATE t x SET a = 1", "")
		assert.Equal(t, "t", tree.Child(segment.TableReference).Raw())
		assert.Equal(t, "x", tree.Child(segment.AliasExpression).Raw())
		assert.Nil(t, tree.Child(segment.FromExpression))
	})
	t.Run("join", func(t *testing.T) {
		tree := parseOne(t, "UPDATE a JOIN b ON a.id = b.id SET a.x = b.y", "mysql")
		assert.Nil(t, tree.Child(segment.TableReference))
		fe := tree.Child(segment.FromExpression)
		require.NotNil(t, fe)
		assert.Equal(t, []string{"a", "b"}, raws(fe.Find(segment.TableReference)))
	})
}

// ---------- Splitting ----------

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		opts parser.Options
		want []string
	}{
		{
			name: "semicolons",
			sql:  "SELECT 1; ; SELECT 2;",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "comment only",
			sql:  "-- nothing here\n;",
			want: []string{},
		},
		{
			name: "go batches",
			sql:  "SELECT 1\nGO\nSELECT 2",
			opts: parser.Options{Dialect: "tsql"},
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "no semicolon",
			sql:  "SELECT a INTO #tmp FROM t\nSELECT * FROM #tmp",
			opts: parser.Options{Dialect: "tsql", NoSemicolon: true},
			want: []string{"SELECT a INTO #tmp FROM t", "SELECT * FROM #tmp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.Split(tt.sql, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_UnknownDialect(t *testing.T) {
	_, err := parser.Parse("SELECT 1", parser.Options{Dialect: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dialect.ErrUnknownDialect))
}

// ---------- Violations ----------

func TestParse_Violations(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		stage parser.Stage
		kind  segment.Kind
	}{
		{name: "missing select list", sql: "SELECT FROM t", stage: parser.StageParse, kind: segment.SelectStatement},
		{name: "unknown statement", sql: "SELEKT a", stage: parser.StageParse, kind: segment.KindUnknown},
		{name: "dangling where", sql: "SELECT a FROM t WHERE", stage: parser.StageParse, kind: segment.SelectStatement},
		{name: "unterminated string", sql: "SELECT 'abc", stage: parser.StageLex, kind: segment.SelectStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := parser.Parse(tt.sql, parser.Options{})
			require.NoError(t, err)
			require.Len(t, stmts, 1)
			require.Len(t, stmts[0].Violations, 1)
			assert.Equal(t, tt.stage, stmts[0].Violations[0].Stage)
			assert.Equal(t, tt.kind, stmts[0].Tree.Kind())
			assert.Equal(t, tt.sql, stmts[0].Raw)
		})
	}
}
