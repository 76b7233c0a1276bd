package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"db-pour/internal/dialect"
	"db-pour/internal/schema"
)

// TableResult is the outcome of copying one table.
type TableResult struct {
	Table   string
	Source  int // rows read from the source
	Dest    int // rows in the destination afterwards
	Columns int // number of shared columns copied
	Skipped bool
	Planned bool // dry run: nothing was written, Dest is the current count
	Match   bool
}

// MigrateTable replaces every row of table in dst with the rows of table in
// src, projected onto the columns both sides share. Columns that only exist
// in dst are left to their schema default. The delete and inserts commit as
// one transaction; earlier tables are not affected by a failure here.
//
// A table without shared columns is not touched. Its source rows are still
// counted so a non-empty table surfaces as a mismatch.
func MigrateTable(ctx context.Context, src, dst *sql.DB, d dialect.Dialect, table string, srcCols, dstCols []*schema.Column) (TableResult, error) {
	res := TableResult{Table: table}

	shared := schema.SharedColumns(srcCols, dstCols)
	res.Columns = len(shared)
	if len(shared) == 0 {
		n, err := countRows(ctx, src, d, table)
		if err != nil {
			return res, fmt.Errorf("table %s: count source rows: %w", table, err)
		}
		log.Printf("Skipping %s: no shared columns (%d source rows)", table, n)
		res.Source = n
		res.Skipped = true
		res.Match = n == 0
		return res, nil
	}

	names := schema.ColumnNames(shared)
	exprs := make([]string, len(shared))
	for i, c := range shared {
		exprs[i] = d.ColumnExpr(c.Name, c.DataType)
	}

	rows, err := src.QueryContext(ctx, d.SelectQuery(table, exprs))
	if err != nil {
		return res, fmt.Errorf("table %s: read source rows: %w", table, err)
	}
	defer rows.Close()

	tx, err := dst.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("table %s: begin transaction: %w", table, err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, d.DeleteQuery(table)); err != nil {
		return res, fmt.Errorf("table %s: delete destination rows: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, d.InsertQuery(table, names))
	if err != nil {
		return res, fmt.Errorf("table %s: prepare insert: %w", table, err)
	}
	defer stmt.Close()

	values := make([]any, len(shared))
	ptrs := make([]any, len(shared))
	for i := range values {
		ptrs[i] = &values[i]
	}

	read := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return res, fmt.Errorf("table %s: scan source row %d: %w", table, read+1, err)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return res, fmt.Errorf("table %s: insert row %d: %w", table, read+1, err)
		}
		read++
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("table %s: read source rows: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("table %s: commit: %w", table, err)
	}
	tx = nil

	// Verification
	final, err := countRows(ctx, dst, d, table)
	if err != nil {
		return res, fmt.Errorf("table %s: count destination rows: %w", table, err)
	}

	res.Source = read
	res.Dest = final
	res.Match = read == final
	return res, nil
}

// PlanTable reports what MigrateTable would do without writing anything.
func PlanTable(ctx context.Context, src, dst *sql.DB, d dialect.Dialect, table string, srcCols, dstCols []*schema.Column) (TableResult, error) {
	res := TableResult{Table: table, Planned: true}

	shared := schema.SharedColumns(srcCols, dstCols)
	res.Columns = len(shared)
	res.Skipped = len(shared) == 0

	n, err := countRows(ctx, src, d, table)
	if err != nil {
		return res, fmt.Errorf("table %s: count source rows: %w", table, err)
	}
	current, err := countRows(ctx, dst, d, table)
	if err != nil {
		return res, fmt.Errorf("table %s: count destination rows: %w", table, err)
	}

	res.Source = n
	res.Dest = current
	res.Match = !res.Skipped || n == 0
	return res, nil
}

func countRows(ctx context.Context, q *sql.DB, d dialect.Dialect, table string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, d.CountQuery(table)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
