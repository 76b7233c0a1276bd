package engine

import (
	"fmt"
	"io"
	"strings"

	"db-pour/internal/schema"
)

const (
	ruleWidth  = 60
	tableWidth = 40
	countWidth = 8

	markOK   = "✓"
	markFail = "✗"
)

// Report accumulates the outcome of a run.
type Report struct {
	Source      string
	Destination string
	Backup      string // empty on a dry run
	DryRun      bool
	Tables      schema.TableSets
	Excluded    []string // common tables left out by the table filter
	Results     []TableResult
}

// Totals sums source and destination row counts over all results.
func (r *Report) Totals() (source, dest int) {
	for _, res := range r.Results {
		source += res.Source
		dest += res.Dest
	}
	return source, dest
}

// Mismatches returns the results whose counts differ.
func (r *Report) Mismatches() []TableResult {
	var out []TableResult
	for _, res := range r.Results {
		if !res.Match {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every migrated table matched.
func (r *Report) OK() bool {
	return len(r.Mismatches()) == 0
}

func rule(ch string) string {
	return strings.Repeat(ch, ruleWidth)
}

func mark(ok bool) string {
	if ok {
		return markOK
	}
	return markFail
}

// WriteHeader prints the banner naming both files.
func WriteHeader(w io.Writer, source, dest string) {
	fmt.Fprintln(w, rule("="))
	fmt.Fprintf(w, "Database Migration: %s → %s\n", source, dest)
	fmt.Fprintln(w, rule("="))
	fmt.Fprintln(w)
}

// WriteBackup confirms the backup file.
func WriteBackup(w io.Writer, path string) {
	fmt.Fprintf(w, "%s Backup created: %s\n\n", markOK, path)
}

// WriteTableSets prints the table set cardinalities and the one-sided tables.
func WriteTableSets(w io.Writer, sets schema.TableSets, excluded []string) {
	fmt.Fprintf(w, "Source tables: %d\n", len(sets.Common)+len(sets.SourceOnly))
	fmt.Fprintf(w, "Target tables: %d\n", len(sets.Common)+len(sets.DestOnly))
	fmt.Fprintf(w, "Common tables: %d\n", len(sets.Common))
	fmt.Fprintln(w)

	if len(sets.SourceOnly) > 0 {
		fmt.Fprintf(w, "⚠ Tables only in source (not migrated): [%s]\n\n", strings.Join(sets.SourceOnly, ", "))
	}
	if len(sets.DestOnly) > 0 {
		fmt.Fprintf(w, "ℹ Tables only in target (preserved): [%s]\n\n", strings.Join(sets.DestOnly, ", "))
	}
	if len(excluded) > 0 {
		fmt.Fprintf(w, "ℹ Common tables excluded by filter: [%s]\n\n", strings.Join(excluded, ", "))
	}
}

// WriteMigrationStart opens the per-table section.
func WriteMigrationStart(w io.Writer, dryRun bool) {
	if dryRun {
		fmt.Fprintln(w, "Planning tables (dry run, nothing is written)...")
	} else {
		fmt.Fprintln(w, "Migrating tables...")
	}
	fmt.Fprintln(w, rule("-"))
}

// WriteTableLine prints the outcome of one table as it completes.
func WriteTableLine(w io.Writer, res TableResult) {
	switch {
	case res.Planned:
		fmt.Fprintf(w, "  %s %s: %d → %d (%d shared columns)\n", mark(res.Match), res.Table, res.Source, res.Dest, res.Columns)
	case res.Skipped:
		fmt.Fprintf(w, "  %s %s: %d → %d (no shared columns, skipped)\n", mark(res.Match), res.Table, res.Source, res.Dest)
	default:
		fmt.Fprintf(w, "  %s %s: %d → %d\n", mark(res.Match), res.Table, res.Source, res.Dest)
	}
}

// WriteSummary closes the per-table section and prints the verification
// table and the verdict.
func WriteSummary(w io.Writer, r *Report) {
	fmt.Fprintln(w, rule("-"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, rule("="))
	fmt.Fprintln(w, "VERIFICATION REPORT")
	fmt.Fprintln(w, rule("="))
	fmt.Fprintln(w)

	target := "Target"
	if r.DryRun {
		target = "Current"
	}
	fmt.Fprintf(w, "%-*s %*s %*s %*s\n", tableWidth, "Table", countWidth, "Source", countWidth, target, countWidth, "Status")
	fmt.Fprintln(w, rule("-"))
	for _, res := range r.Results {
		fmt.Fprintf(w, "%-*s %*d %*d %*s\n", tableWidth, res.Table, countWidth, res.Source, countWidth, res.Dest, countWidth, mark(res.Match))
	}
	fmt.Fprintln(w, rule("-"))
	src, dst := r.Totals()
	fmt.Fprintf(w, "%-*s %*d %*d\n", tableWidth, "TOTAL", countWidth, src, countWidth, dst)
	fmt.Fprintln(w)

	switch {
	case r.DryRun:
		fmt.Fprintf(w, "ℹ DRY RUN - %d tables planned, nothing was written.\n", len(r.Results))
		for _, res := range r.Mismatches() {
			fmt.Fprintf(w, "  - %s: %d rows would not be copied (no shared columns)\n", res.Table, res.Source)
		}
	case r.OK():
		fmt.Fprintf(w, "%s MIGRATION SUCCESSFUL - All rows verified!\n", markOK)
	default:
		fmt.Fprintf(w, "%s MIGRATION WARNING - Some rows may not have migrated correctly!\n", markFail)
		for _, res := range r.Mismatches() {
			fmt.Fprintf(w, "  - %s: expected %d, got %d\n", res.Table, res.Source, res.Dest)
		}
	}

	if r.Backup != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Backup saved as: %s\n", r.Backup)
	}
}

// WriteReport renders a finished run in one go.
func WriteReport(w io.Writer, r *Report) {
	WriteHeader(w, r.Source, r.Destination)
	if r.Backup != "" {
		WriteBackup(w, r.Backup)
	}
	WriteTableSets(w, r.Tables, r.Excluded)
	WriteMigrationStart(w, r.DryRun)
	for _, res := range r.Results {
		WriteTableLine(w, res)
	}
	WriteSummary(w, r)
}
