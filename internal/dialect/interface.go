package dialect

// Dialect abstracts the SQL text the tool issues against one engine.
type Dialect interface {
	// Metadata Queries (Schema Introspection)
	TablesQuery() string
	ColumnsQuery(table string) string

	// Query Generation
	ColumnExpr(column, declType string) string
	SelectQuery(table string, exprs []string) string
	InsertQuery(table string, cols []string) string
	DeleteQuery(table string) string
	CountQuery(table string) string
	Placeholder(index int) string

	// Helpers
	QuoteIdent(name string) string
}
