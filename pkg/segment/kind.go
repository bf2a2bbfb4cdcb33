package segment

// Kind classifies a segment. The set is closed: the lineage engine matches
// on it exhaustively, so adding a kind is a compile-checked change there.
type Kind uint8

// Statement kinds.
const (
	KindUnknown Kind = iota

	SelectStatement
	SetExpression // UNION / INTERSECT / EXCEPT of selects
	WithCompoundStatement
	BracketedStatement // (SELECT ...) at top level
	InsertStatement
	CreateTableStatement
	CreateViewStatement
	MergeStatement
	UpdateStatement
	CopyStatement
	UnloadStatement
	DropTableStatement
	DropViewStatement
	AlterTableStatement
	RenameStatement

	// statements that carry no lineage
	DeleteStatement
	TruncateStatement
	RefreshStatement
	CacheStatement
	UncacheStatement
	ShowStatement
	DescribeStatement
	UseStatement
	DeclareStatement
	AnalyzeStatement
	AddJarStatement
	CreateFunctionStatement
	DropFunctionStatement
	SetStatement

	// recognised but not handled
	CreateSchemaStatement
	CreateIndexStatement
	OtherDDLStatement // CREATE/ALTER/DROP of sequences, stages, roles, ...
	DropSchemaStatement
	GrantStatement
	TransactionStatement
	ExplainStatement
	CallStatement

	statementEnd
)

// Clause and expression kinds.
const (
	SelectClause Kind = iota + statementEnd
	SelectClauseModifier
	SelectClauseElement
	AliasExpression
	FromClause
	FromExpression
	FromExpressionElement
	TableExpression
	JoinClause
	JoinOnCondition
	WhereClause
	GroupByClause
	HavingClause
	QualifyClause
	OrderByClause
	LimitClause
	WindowClause
	IntoClause
	LateralViewClause
	ValuesClause
	SetOperator
	CommonTableExpression
	Bracketed
	Expression
	ColumnReference
	TableReference
	FileReference
	StorageLocation
	WildcardExpression
	Function
	FunctionName
	CaseExpression
	WhenClause
	ElseClause
	OverClause
	PartitionByClause
	DataType
	ColumnDefinition
	TableOption
	PartitionClause
	MergeMatch
	MergeWhenMatchedClause
	MergeWhenNotMatchedClause
	MergeUpdateClause
	MergeInsertClause
	MergeDeleteClause
	SetClauseList
	SetClause

	clauseEnd
)

// Leaf kinds.
const (
	Keyword Kind = iota + clauseEnd
	Identifier
	QuotedIdentifier
	Literal
	Symbol
	Operator
	Parameter
	Whitespace
	Newline
	Comment
	Unparsable
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	SelectStatement:           "select_statement",
	SetExpression:             "set_expression",
	WithCompoundStatement:     "with_compound_statement",
	BracketedStatement:        "bracketed_statement",
	InsertStatement:           "insert_statement",
	CreateTableStatement:      "create_table_statement",
	CreateViewStatement:       "create_view_statement",
	MergeStatement:            "merge_statement",
	UpdateStatement:           "update_statement",
	CopyStatement:             "copy_statement",
	UnloadStatement:           "unload_statement",
	DropTableStatement:        "drop_table_statement",
	DropViewStatement:         "drop_view_statement",
	AlterTableStatement:       "alter_table_statement",
	RenameStatement:           "rename_statement",
	DeleteStatement:           "delete_statement",
	TruncateStatement:         "truncate_statement",
	RefreshStatement:          "refresh_statement",
	CacheStatement:            "cache_statement",
	UncacheStatement:          "uncache_statement",
	ShowStatement:             "show_statement",
	DescribeStatement:         "describe_statement",
	UseStatement:              "use_statement",
	DeclareStatement:          "declare_statement",
	AnalyzeStatement:          "analyze_statement",
	AddJarStatement:           "add_jar_statement",
	CreateFunctionStatement:   "create_function_statement",
	DropFunctionStatement:     "drop_function_statement",
	SetStatement:              "set_statement",
	CreateSchemaStatement:     "create_schema_statement",
	CreateIndexStatement:      "create_index_statement",
	OtherDDLStatement:         "other_ddl_statement",
	DropSchemaStatement:       "drop_schema_statement",
	GrantStatement:            "grant_statement",
	TransactionStatement:      "transaction_statement",
	ExplainStatement:          "explain_statement",
	CallStatement:             "call_statement",
	SelectClause:              "select_clause",
	SelectClauseModifier:      "select_clause_modifier",
	SelectClauseElement:       "select_clause_element",
	AliasExpression:           "alias_expression",
	FromClause:                "from_clause",
	FromExpression:            "from_expression",
	FromExpressionElement:     "from_expression_element",
	TableExpression:           "table_expression",
	JoinClause:                "join_clause",
	JoinOnCondition:           "join_on_condition",
	WhereClause:               "where_clause",
	GroupByClause:             "groupby_clause",
	HavingClause:              "having_clause",
	QualifyClause:             "qualify_clause",
	OrderByClause:             "orderby_clause",
	LimitClause:               "limit_clause",
	WindowClause:              "window_clause",
	IntoClause:                "into_clause",
	LateralViewClause:         "lateral_view_clause",
	ValuesClause:              "values_clause",
	SetOperator:               "set_operator",
	CommonTableExpression:     "common_table_expression",
	Bracketed:                 "bracketed",
	Expression:                "expression",
	ColumnReference:           "column_reference",
	TableReference:            "table_reference",
	FileReference:             "file_reference",
	StorageLocation:           "storage_location",
	WildcardExpression:        "wildcard_expression",
	Function:                  "function",
	FunctionName:              "function_name",
	CaseExpression:            "case_expression",
	WhenClause:                "when_clause",
	ElseClause:                "else_clause",
	OverClause:                "over_clause",
	PartitionByClause:         "partitionby_clause",
	DataType:                  "data_type",
	ColumnDefinition:          "column_definition",
	TableOption:               "table_option",
	PartitionClause:           "partition_clause",
	MergeMatch:                "merge_match",
	MergeWhenMatchedClause:    "merge_when_matched_clause",
	MergeWhenNotMatchedClause: "merge_when_not_matched_clause",
	MergeUpdateClause:         "merge_update_clause",
	MergeInsertClause:         "merge_insert_clause",
	MergeDeleteClause:         "merge_delete_clause",
	SetClauseList:             "set_clause_list",
	SetClause:                 "set_clause",
	Keyword:                   "keyword",
	Identifier:                "identifier",
	QuotedIdentifier:          "quoted_identifier",
	Literal:                   "literal",
	Symbol:                    "symbol",
	Operator:                  "operator",
	Parameter:                 "parameter",
	Whitespace:                "whitespace",
	Newline:                   "newline",
	Comment:                   "comment",
	Unparsable:                "unparsable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsStatement reports whether k is a top-level statement kind.
func (k Kind) IsStatement() bool {
	return k > KindUnknown && k < statementEnd
}

// IsLeaf reports whether k is a terminal kind.
func (k Kind) IsLeaf() bool {
	return k >= Keyword
}

// IsTrivia reports whether k carries no syntax.
func (k Kind) IsTrivia() bool {
	return k == Whitespace || k == Newline || k == Comment
}
