package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"db-pour/internal/dialect"
	"db-pour/internal/schema"
)

// TableDiff compares one common table across the two files.
type TableDiff struct {
	Table      string
	Columns    schema.ColumnDiff
	SourceRows int
	DestRows   int
}

// Identical reports whether both sides have the same columns and row count.
func (t TableDiff) Identical() bool {
	return len(t.Columns.SourceOnly) == 0 && len(t.Columns.DestOnly) == 0 && t.SourceRows == t.DestRows
}

type DiffReport struct {
	Source      string
	Destination string
	Tables      schema.TableSets
	Diffs       []TableDiff
}

// Diff compares the schemas and row counts of two files without writing to either.
func Diff(ctx context.Context, cfg Config) (*DiffReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := dialect.GetDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	src, dst, err := openPair(ctx, cfg, true)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	defer dst.Close()

	srcTables, err := schema.Analyze(ctx, src.DB(), d)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Path(), err)
	}
	dstTables, err := schema.Analyze(ctx, dst.DB(), d)
	if err != nil {
		return nil, fmt.Errorf("destination %s: %w", dst.Path(), err)
	}

	srcByName := make(map[string]*schema.Table, len(srcTables))
	var srcNames []string
	for _, t := range srcTables {
		srcByName[t.Name] = t
		srcNames = append(srcNames, t.Name)
	}
	dstByName := make(map[string]*schema.Table, len(dstTables))
	var dstNames []string
	for _, t := range dstTables {
		dstByName[t.Name] = t
		dstNames = append(dstNames, t.Name)
	}

	report := &DiffReport{
		Source:      cfg.SourcePath,
		Destination: cfg.DestPath,
		Tables:      schema.CompareTables(srcNames, dstNames),
	}

	for _, name := range report.Tables.Common {
		td := TableDiff{
			Table:   name,
			Columns: schema.CompareColumns(srcByName[name].Columns, dstByName[name].Columns),
		}
		if td.SourceRows, err = countRows(ctx, src.DB(), d, name); err != nil {
			return nil, fmt.Errorf("table %s: count source rows: %w", name, err)
		}
		if td.DestRows, err = countRows(ctx, dst.DB(), d, name); err != nil {
			return nil, fmt.Errorf("table %s: count destination rows: %w", name, err)
		}
		report.Diffs = append(report.Diffs, td)
	}

	return report, nil
}

// WriteDiff renders a DiffReport.
func WriteDiff(w io.Writer, r *DiffReport) {
	fmt.Fprintln(w, rule("="))
	fmt.Fprintf(w, "Schema Comparison: %s ↔ %s\n", r.Source, r.Destination)
	fmt.Fprintln(w, rule("="))
	fmt.Fprintln(w)

	WriteTableSets(w, r.Tables, nil)

	fmt.Fprintf(w, "%-*s %*s %*s %*s\n", tableWidth, "Table", countWidth, "Source", countWidth, "Target", countWidth, "Shared")
	fmt.Fprintln(w, rule("-"))
	changed := 0
	for _, td := range r.Diffs {
		fmt.Fprintf(w, "%-*s %*d %*d %*d\n", tableWidth, td.Table, countWidth, td.SourceRows, countWidth, td.DestRows, countWidth, len(td.Columns.Shared))
		if len(td.Columns.SourceOnly) > 0 {
			fmt.Fprintf(w, "    └ only in source: %s\n", strings.Join(td.Columns.SourceOnly, ", "))
		}
		if len(td.Columns.DestOnly) > 0 {
			fmt.Fprintf(w, "    └ only in target (default on copy): %s\n", strings.Join(td.Columns.DestOnly, ", "))
		}
		if len(td.Columns.Shared) == 0 {
			fmt.Fprintln(w, "    └ no shared columns: table would be skipped")
		}
		if !td.Identical() {
			changed++
		}
	}
	fmt.Fprintln(w, rule("-"))
	fmt.Fprintf(w, "%d of %d common tables differ\n", changed, len(r.Diffs))
}
