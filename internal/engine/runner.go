package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"db-pour/internal/backup"
	"db-pour/internal/db"
	"db-pour/internal/dialect"
	"db-pour/internal/schema"

	"github.com/spf13/afero"
)

var (
	ErrVerificationFailed = errors.New("row counts do not match after migration")
	ErrUnknownTable       = errors.New("table is not present in both databases")
)

// RunOptions carries the environment of a run and the hooks that report its progress.
type RunOptions struct {
	// FS is the filesystem the backup is read from and written to. It
	// defaults to the OS. The databases themselves are always opened from
	// the OS filesystem, so a non-OS FS only makes sense in tests.
	FS afero.Fs
	// Now is the clock used for the backup name, defaults to time.Now.
	Now func() time.Time

	OnBackup func(path string)
	OnTables func(sets schema.TableSets, excluded []string)
	OnTable  func(res TableResult)
}

// Run backs up the destination, then copies every table present in both
// databases. The source is opened query-only and never modified.
//
// A failed backup stops the run before either database is opened. Any
// later hard error stops the run and is returned with the partial report;
// tables copied before the failure stay committed.
func Run(ctx context.Context, cfg Config, opts RunOptions) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := dialect.GetDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	report := &Report{
		Source:      cfg.SourcePath,
		Destination: cfg.DestPath,
		DryRun:      cfg.DryRun,
	}

	// 1. Backup, once the source is known to exist
	if err := db.Check(cfg.SourcePath); err != nil {
		return report, fmt.Errorf("open source: %w", err)
	}
	if !cfg.DryRun {
		name, err := backup.Create(opts.FS, cfg.DestPath, cfg.Backup, opts.Now())
		if err != nil {
			return report, err
		}
		report.Backup = name
		if opts.OnBackup != nil {
			opts.OnBackup(name)
		}
	}

	// 2. Open
	src, dst, err := openPair(ctx, cfg, cfg.DryRun)
	if err != nil {
		return report, err
	}
	defer src.Close()
	defer dst.Close()

	// 3. Compare table sets
	srcTables, err := schema.ListTables(ctx, src.DB(), d)
	if err != nil {
		return report, fmt.Errorf("source %s: %w", src.Path(), err)
	}
	dstTables, err := schema.ListTables(ctx, dst.DB(), d)
	if err != nil {
		return report, fmt.Errorf("destination %s: %w", dst.Path(), err)
	}
	report.Tables = schema.CompareTables(srcTables, dstTables)

	targets, excluded, err := selectTables(report.Tables.Common, cfg.Tables)
	if err != nil {
		return report, err
	}
	report.Excluded = excluded
	if opts.OnTables != nil {
		opts.OnTables(report.Tables, excluded)
	}

	// 4. Copy
	for _, table := range targets {
		srcCols, err := schema.ListColumns(ctx, src.DB(), d, table)
		if err != nil {
			return report, fmt.Errorf("source %s: %w", src.Path(), err)
		}
		dstCols, err := schema.ListColumns(ctx, dst.DB(), d, table)
		if err != nil {
			return report, fmt.Errorf("destination %s: %w", dst.Path(), err)
		}

		var res TableResult
		if cfg.DryRun {
			res, err = PlanTable(ctx, src.DB(), dst.DB(), d, table, srcCols, dstCols)
		} else {
			res, err = MigrateTable(ctx, src.DB(), dst.DB(), d, table, srcCols, dstCols)
		}
		if err != nil {
			return report, err
		}

		report.Results = append(report.Results, res)
		if opts.OnTable != nil {
			opts.OnTable(res)
		}
	}

	return report, nil
}

func openPair(ctx context.Context, cfg Config, destReadOnly bool) (*db.Handle, *db.Handle, error) {
	src, err := db.Open(ctx, cfg.SourcePath, db.Options{ReadOnly: true, BusyTimeout: cfg.BusyTimeout})
	if err != nil {
		return nil, nil, fmt.Errorf("open source: %w", err)
	}
	dst, err := db.Open(ctx, cfg.DestPath, db.Options{ReadOnly: destReadOnly, BusyTimeout: cfg.BusyTimeout})
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("open destination: %w", err)
	}
	return src, dst, nil
}

// selectTables keeps the common tables named in filter, matched
// case-insensitively, and returns the rest as excluded.
func selectTables(common, filter []string) ([]string, []string, error) {
	if len(filter) == 0 {
		return common, nil, nil
	}

	// Create a map for requested tables for O(1) lookup
	req := make(map[string]bool, len(filter))
	for _, t := range filter {
		req[strings.ToLower(t)] = true
	}

	var targets, excluded []string
	for _, t := range common {
		if req[strings.ToLower(t)] {
			targets = append(targets, t)
			delete(req, strings.ToLower(t))
		} else {
			excluded = append(excluded, t)
		}
	}

	if len(req) > 0 {
		var missing []string
		for _, t := range filter {
			if req[strings.ToLower(t)] {
				missing = append(missing, t)
			}
		}
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownTable, strings.Join(missing, ", "))
	}
	return targets, excluded, nil
}
