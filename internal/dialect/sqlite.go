package dialect

import (
	"fmt"
	"strings"
)

type SQLiteDialect struct{}

// TablesQuery lists user tables. Only the literal sqlite_ prefix is reserved,
// so the underscore is escaped to keep it from matching any character.
func (d *SQLiteDialect) TablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' ORDER BY name`
}

func (d *SQLiteDialect) ColumnsQuery(table string) string {
	// PRAGMA does not accept bound parameters; the name is quoted instead.
	return fmt.Sprintf("PRAGMA table_info(%s)", d.QuoteIdent(table))
}

// ColumnExpr returns the select-list expression for one column.
// The driver reparses TEXT stored in DATE, DATETIME and TIMESTAMP columns into
// time.Time, which would be written back in a different layout. A unary plus
// keeps the stored value but drops the declared type, so the text is returned as is.
func (d *SQLiteDialect) ColumnExpr(column, declType string) string {
	switch strings.ToUpper(strings.TrimSpace(declType)) {
	case "DATE", "DATETIME", "TIMESTAMP":
		return "+" + d.QuoteIdent(column)
	default:
		return d.QuoteIdent(column)
	}
}

func (d *SQLiteDialect) SelectQuery(table string, exprs []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), d.QuoteIdent(table))
}

func (d *SQLiteDialect) InsertQuery(table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.QuoteIdent(table), QuoteIdents(cols, d.QuoteIdent), vals)
}

func (d *SQLiteDialect) DeleteQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdent(table))
}

func (d *SQLiteDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

func (d *SQLiteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) QuoteIdent(name string) string {
	return DefaultQuoteIdent(name)
}
