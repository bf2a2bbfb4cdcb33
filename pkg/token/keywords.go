package token

import "strings"

// keywords are words the parser treats as SQL keywords when they appear
// unquoted. Anything else is an identifier.
var keywords = makeSet(
	"ADD", "ALL", "ALTER", "ANALYZE", "AND", "ANTI", "ANY", "APPLY", "ARRAY", "AS", "ASC",
	"BEGIN", "BETWEEN", "BY", "CACHE", "CALL", "CASE", "CAST", "CLONE", "CLUSTER",
	"COLLATE", "COLUMN", "COLUMNS", "COMMIT", "COPY", "CREATE", "CROSS", "CURRENT",
	"DATABASE", "DECLARE", "DEFAULT", "DELETE", "DESC", "DESCRIBE", "DIRECTORY",
	"DISTINCT", "DISTRIBUTE", "DROP", "ELSE", "END", "ESCAPE", "EXCEPT", "EXCHANGE",
	"EXISTS", "EXPLAIN", "EXTERNAL", "FALSE", "FETCH", "FILTER", "FOLLOWING", "FOR",
	"FROM", "FULL", "FUNCTION", "GLOBAL", "GO", "GRANT", "GROUP", "HAVING", "IF",
	"ILIKE", "IN", "INDEX", "INNER", "INSERT", "INTERSECT", "INTERVAL", "INTO", "IS",
	"JAR", "JOIN", "LATERAL", "LEFT", "LIKE", "LIMIT", "LOCAL", "MATCHED", "MERGE",
	"MINUS", "NATURAL", "NOT", "NULL", "OF", "OFFSET", "ON", "OR", "ORDER", "OUTER",
	"OVER", "OVERWRITE", "PARTITION", "PIVOT", "PRECEDING", "QUALIFY", "RANGE",
	"RECURSIVE", "REFRESH", "RENAME", "REPLACE", "RETURNING", "REVOKE", "RIGHT",
	"RLIKE", "ROLLBACK", "ROW", "ROWS", "SCHEMA", "SELECT", "SEMI", "SET", "SHOW",
	"SIMILAR", "SORT", "START", "SWAP", "TABLE", "TABLESAMPLE", "TEMP", "TEMPORARY",
	"THEN", "TO", "TOP", "TRANSACTION", "TRUE", "TRUNCATE", "UNBOUNDED", "UNCACHE",
	"UNION", "UNLOAD", "UNPIVOT", "UPDATE", "USE", "USING", "VALUES", "VIEW", "WHEN",
	"WHERE", "WINDOW", "WITH", "WITHIN",
)

// reserved words can never be used as an implicit alias or a bare column
// name. The set is smaller than keywords: "SELECT a.date", "FROM t first"
// must keep working.
var reserved = makeSet(
	"ALL", "ALTER", "AND", "ANTI", "APPLY", "AS", "ASC", "BETWEEN", "BY", "CASE",
	"CLUSTER", "COLLATE", "CREATE", "CROSS", "DELETE", "DESC", "DISTINCT",
	"DISTRIBUTE", "DROP", "ELSE", "END", "EXCEPT", "EXISTS", "FETCH", "FOR", "FROM",
	"FULL", "GO", "GROUP", "HAVING", "ILIKE", "IN", "INNER", "INSERT", "INTERSECT",
	"INTO", "IS", "JOIN", "LATERAL", "LEFT", "LIKE", "LIMIT", "MERGE", "MINUS",
	"NATURAL", "NOT", "NULL", "OFFSET", "ON", "OR", "ORDER", "OUTER", "OVER",
	"PIVOT", "QUALIFY", "RETURNING", "RIGHT", "RLIKE", "SELECT", "SEMI", "SET",
	"SORT", "TABLESAMPLE", "THEN", "TO", "TRUNCATE", "UNION", "UNPIVOT", "UPDATE",
	"USING", "VALUES", "WHEN", "WHERE", "WINDOW", "WITH", "WITHIN",
)

func makeSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// IsKeyword reports whether word (any case) is a SQL keyword.
func IsKeyword(word string) bool {
	_, ok := keywords[strings.ToUpper(word)]
	return ok
}

// IsReserved reports whether word (any case) is a reserved word that cannot
// serve as an implicit alias.
func IsReserved(word string) bool {
	_, ok := reserved[strings.ToUpper(word)]
	return ok
}
