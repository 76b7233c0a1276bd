package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"db-pour/internal/dialect"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListTables returns user table names in catalog order, internal tables excluded.
func ListTables(ctx context.Context, q Queryer, d dialect.Dialect) ([]string, error) {
	rows, err := q.QueryContext(ctx, d.TablesQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// ListColumns returns the columns of table in declaration order.
// table must be a name obtained from ListTables.
func ListColumns(ctx context.Context, q Queryer, d dialect.Dialect, table string) ([]*Column, error) {
	rows, err := q.QueryContext(ctx, d.ColumnsQuery(table))
	if err != nil {
		return nil, fmt.Errorf("failed to query columns (table: %s): %w", table, err)
	}
	defer rows.Close()

	var cols []*Column
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, dType      string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &dType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column (table: %s): %w", table, err)
		}
		cols = append(cols, &Column{
			Name:       name,
			DataType:   dType,
			NotNull:    notNull != 0,
			Default:    dflt.String,
			HasDefault: dflt.Valid,
			IsPK:       pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns (table: %s): %w", table, err)
	}
	return cols, nil
}

// Analyze lists every table with its columns.
func Analyze(ctx context.Context, q Queryer, d dialect.Dialect) ([]*Table, error) {
	names, err := ListTables(ctx, q, d)
	if err != nil {
		return nil, err
	}

	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		cols, err := ListColumns(ctx, q, d, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, &Table{Name: name, Columns: cols})
	}
	return tables, nil
}

// CompareTables splits source and destination table names into sorted sets.
func CompareTables(source, dest []string) TableSets {
	inDest := toSet(dest)
	inSource := toSet(source)

	var sets TableSets
	for name := range inSource {
		if inDest[name] {
			sets.Common = append(sets.Common, name)
		} else {
			sets.SourceOnly = append(sets.SourceOnly, name)
		}
	}
	for name := range inDest {
		if !inSource[name] {
			sets.DestOnly = append(sets.DestOnly, name)
		}
	}

	sort.Strings(sets.Common)
	sort.Strings(sets.SourceOnly)
	sort.Strings(sets.DestOnly)
	return sets
}

// SharedColumns returns the source columns whose name also exists in dest,
// in source order.
func SharedColumns(source, dest []*Column) []*Column {
	inDest := make(map[string]bool, len(dest))
	for _, c := range dest {
		inDest[c.Name] = true
	}

	var shared []*Column
	for _, c := range source {
		if inDest[c.Name] {
			shared = append(shared, c)
		}
	}
	return shared
}

// CompareColumns reports shared and one-sided column names. Shared and
// SourceOnly follow source order, DestOnly follows destination order.
func CompareColumns(source, dest []*Column) ColumnDiff {
	inSource := make(map[string]bool, len(source))
	for _, c := range source {
		inSource[c.Name] = true
	}
	inDest := make(map[string]bool, len(dest))
	for _, c := range dest {
		inDest[c.Name] = true
	}

	var diff ColumnDiff
	for _, c := range source {
		if inDest[c.Name] {
			diff.Shared = append(diff.Shared, c.Name)
		} else {
			diff.SourceOnly = append(diff.SourceOnly, c.Name)
		}
	}
	for _, c := range dest {
		if !inSource[c.Name] {
			diff.DestOnly = append(diff.DestOnly, c.Name)
		}
	}
	return diff
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []*Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
