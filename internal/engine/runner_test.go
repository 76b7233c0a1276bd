package engine_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"db-pour/internal/backup"
	"db-pour/internal/db"
	"db-pour/internal/engine"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/afero"
)

// fixture builds the scenario used by most run tests:
//
//	users          both sides, destination has an extra defaulted column
//	orders         both sides, no shared columns
//	legacy_logs    source only
//	feature_flags  destination only
func fixture(t *testing.T) (dir, src, dst string) {
	t.Helper()
	dir = t.TempDir()
	faker := gofakeit.New(3)

	src = newDB(t, dir, "source.db",
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT)`,
		`CREATE TABLE orders (order_no TEXT, total REAL)`,
		`INSERT INTO orders VALUES ('A-1', 10.5)`,
		`CREATE TABLE legacy_logs (id INTEGER, line TEXT)`,
		`INSERT INTO legacy_logs VALUES (1, 'boot')`,
	)
	seedUsers(t, src, faker, 3)

	dst = newDB(t, dir, "dest.db",
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT, created_at TEXT DEFAULT '2024-01-01')`,
		`INSERT INTO users (id, name, email) VALUES (42, 'stale', 'stale@example.com')`,
		`CREATE TABLE orders (reference TEXT, amount REAL)`,
		`CREATE TABLE feature_flags (name TEXT, enabled INTEGER)`,
		`INSERT INTO feature_flags VALUES ('beta', 1), ('dark_mode', 0)`,
	)
	return dir, src, dst
}

func config(src, dst string) engine.Config {
	return engine.Config{
		SourcePath: src,
		DestPath:   dst,
		Backup:     backup.Options{Prefix: "cms_backup"},
	}
}

func TestRun_Scenario(t *testing.T) {
	dir, src, dst := fixture(t)
	before, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	flagsBefore := queryStrings(t, dst, `SELECT name || '=' || enabled FROM feature_flags ORDER BY name`)

	var seen []string
	report, err := engine.Run(context.Background(), config(src, dst), engine.RunOptions{
		Now:     fixedClock(runTime),
		OnTable: func(res engine.TableResult) { seen = append(seen, res.Table) },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Backup
	wantBackup := filepath.Join(dir, "cms_backup_20250102_030405.db")
	if report.Backup != wantBackup {
		t.Errorf("expected backup %s, got %s", wantBackup, report.Backup)
	}
	copied, err := os.ReadFile(report.Backup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !bytes.Equal(copied, before) {
		t.Error("backup is not byte-identical to the pre-run destination")
	}

	// Table sets
	if !reflect.DeepEqual(report.Tables.Common, []string{"orders", "users"}) {
		t.Errorf("unexpected common tables %v", report.Tables.Common)
	}
	if !reflect.DeepEqual(report.Tables.SourceOnly, []string{"legacy_logs"}) {
		t.Errorf("unexpected source-only tables %v", report.Tables.SourceOnly)
	}
	if !reflect.DeepEqual(report.Tables.DestOnly, []string{"feature_flags"}) {
		t.Errorf("unexpected destination-only tables %v", report.Tables.DestOnly)
	}
	if !reflect.DeepEqual(seen, []string{"orders", "users"}) {
		t.Errorf("expected tables in sorted order, got %v", seen)
	}

	// users: 3 rows, defaulted column
	if n := countRows(t, dst, "users"); n != 3 {
		t.Errorf("expected 3 users, got %d", n)
	}
	for _, v := range queryStrings(t, dst, `SELECT created_at FROM users`) {
		if v != "2024-01-01" {
			t.Errorf("expected default created_at, got %q", v)
		}
	}

	// One-sided tables untouched
	if got := queryStrings(t, dst, `SELECT name || '=' || enabled FROM feature_flags ORDER BY name`); !reflect.DeepEqual(got, flagsBefore) {
		t.Errorf("feature_flags changed: %v", got)
	}
	if got := queryStrings(t, dst, `SELECT name FROM sqlite_master WHERE name = 'legacy_logs'`); len(got) != 0 {
		t.Error("legacy_logs must not be created in the destination")
	}
	if n := countRows(t, src, "legacy_logs"); n != 1 {
		t.Errorf("source was modified: legacy_logs has %d rows", n)
	}

	// Verdict: orders has no shared columns and a non-empty source
	if report.OK() {
		t.Error("expected a mismatch for orders")
	}
	mm := report.Mismatches()
	if len(mm) != 1 || mm[0].Table != "orders" || mm[0].Source != 1 || mm[0].Dest != 0 {
		t.Errorf("unexpected mismatches %+v", mm)
	}
	if s, d := report.Totals(); s != 4 || d != 3 {
		t.Errorf("expected totals 4/3, got %d/%d", s, d)
	}
}

func TestRun_Idempotent(t *testing.T) {
	_, src, dst := fixture(t)
	cfg := config(src, dst)
	cfg.Tables = []string{"users"}

	first, err := engine.Run(context.Background(), cfg, engine.RunOptions{Now: fixedClock(runTime)})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := engine.Run(context.Background(), cfg, engine.RunOptions{Now: fixedClock(runTime.Add(time.Second))})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Errorf("expected identical results, got %+v and %+v", first.Results, second.Results)
	}
	if !second.OK() {
		t.Error("expected all tables to match")
	}
}

func TestRun_BackupFailureAbortsBeforeMutation(t *testing.T) {
	_, src, dst := fixture(t)

	called := false
	report, err := engine.Run(context.Background(), config(src, dst), engine.RunOptions{
		FS:      afero.NewReadOnlyFs(afero.NewOsFs()),
		Now:     fixedClock(runTime),
		OnTable: func(engine.TableResult) { called = true },
	})
	if err == nil {
		t.Fatal("expected backup failure")
	}
	if called || len(report.Results) != 0 || report.Backup != "" {
		t.Errorf("no table may be processed after a failed backup: %+v", report)
	}
	if got := queryStrings(t, dst, `SELECT name FROM users`); !reflect.DeepEqual(got, []string{"stale"}) {
		t.Errorf("destination was modified: %v", got)
	}
}

func TestRun_MissingDestination(t *testing.T) {
	dir := t.TempDir()
	src := newDB(t, dir, "source.db", `CREATE TABLE t (a INTEGER)`)
	dst := filepath.Join(dir, "missing.db")

	_, err := engine.Run(context.Background(), config(src, dst), engine.RunOptions{Now: fixedClock(runTime)})
	if err == nil || !strings.Contains(err.Error(), "missing.db") {
		t.Fatalf("expected an error naming the destination, got %v", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Error("destination must not be created")
	}
}

func TestRun_MissingSourceLeavesNoBackup(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "missing.db")
	dst := newDB(t, dir, "dest.db", `CREATE TABLE t (a INTEGER)`)

	report, err := engine.Run(context.Background(), config(src, dst), engine.RunOptions{Now: fixedClock(runTime)})
	if !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if report.Backup != "" {
		t.Errorf("expected no backup, got %s", report.Backup)
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "cms_backup_*")); len(matches) != 0 {
		t.Errorf("backup left behind for a missing source: %v", matches)
	}
	if _, statErr := os.Stat(src); !os.IsNotExist(statErr) {
		t.Error("source must not be created")
	}
}

func TestRun_BackupUsesInjectedFS(t *testing.T) {
	_, src, dst := fixture(t)
	fs := afero.NewMemMapFs()

	// The destination exists on disk but not in fs, so the backup cannot read it.
	_, err := engine.Run(context.Background(), config(src, dst), engine.RunOptions{FS: fs, Now: fixedClock(runTime)})
	if err == nil {
		t.Fatal("expected backup to fail on a filesystem without the destination")
	}
	if got := queryStrings(t, dst, `SELECT name FROM users`); !reflect.DeepEqual(got, []string{"stale"}) {
		t.Errorf("destination was modified: %v", got)
	}
}

func TestRun_WriteFailureKeepsEarlierTables(t *testing.T) {
	dir := t.TempDir()
	src := newDB(t, dir, "source.db",
		`CREATE TABLE a_first (id INTEGER)`,
		`INSERT INTO a_first VALUES (1), (2)`,
		`CREATE TABLE b_second (id INTEGER)`,
		`INSERT INTO b_second VALUES (1)`,
		`CREATE TABLE c_third (id INTEGER)`,
		`INSERT INTO c_third VALUES (1)`,
	)
	dst := newDB(t, dir, "dest.db",
		`CREATE TABLE a_first (id INTEGER)`,
		`CREATE TABLE b_second (id INTEGER, owner TEXT NOT NULL)`,
		`INSERT INTO b_second VALUES (9, 'x')`,
		`CREATE TABLE c_third (id INTEGER)`,
	)

	report, err := engine.Run(context.Background(), config(src, dst), engine.RunOptions{Now: fixedClock(runTime)})
	if err == nil || !strings.Contains(err.Error(), "b_second") {
		t.Fatalf("expected failure naming b_second, got %v", err)
	}

	if len(report.Results) != 1 || report.Results[0].Table != "a_first" {
		t.Errorf("expected only a_first in the partial report, got %+v", report.Results)
	}
	if n := countRows(t, dst, "a_first"); n != 2 {
		t.Errorf("a_first should stay committed, has %d rows", n)
	}
	if n := countRows(t, dst, "b_second"); n != 1 {
		t.Errorf("b_second should be rolled back, has %d rows", n)
	}
	if n := countRows(t, dst, "c_third"); n != 0 {
		t.Errorf("c_third should not be reached, has %d rows", n)
	}
	if _, statErr := os.Stat(report.Backup); statErr != nil {
		t.Errorf("backup should be kept for recovery: %v", statErr)
	}
}

func TestRun_TableFilter(t *testing.T) {
	_, src, dst := fixture(t)
	cfg := config(src, dst)
	cfg.Tables = []string{"USERS"}

	report, err := engine.Run(context.Background(), cfg, engine.RunOptions{Now: fixedClock(runTime)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].Table != "users" {
		t.Errorf("expected only users, got %+v", report.Results)
	}
	if !reflect.DeepEqual(report.Excluded, []string{"orders"}) {
		t.Errorf("expected orders to be excluded, got %v", report.Excluded)
	}
}

func TestRun_UnknownTable(t *testing.T) {
	_, src, dst := fixture(t)
	cfg := config(src, dst)
	cfg.Tables = []string{"users", "legacy_logs"}

	_, err := engine.Run(context.Background(), cfg, engine.RunOptions{Now: fixedClock(runTime)})
	if !errors.Is(err, engine.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	if !strings.Contains(err.Error(), "legacy_logs") {
		t.Errorf("error should name the table: %v", err)
	}
	if got := queryStrings(t, dst, `SELECT name FROM users`); !reflect.DeepEqual(got, []string{"stale"}) {
		t.Errorf("destination was modified: %v", got)
	}
}

func TestRun_DryRun(t *testing.T) {
	dir, src, dst := fixture(t)
	cfg := config(src, dst)
	cfg.DryRun = true

	report, err := engine.Run(context.Background(), cfg, engine.RunOptions{Now: fixedClock(runTime)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Backup != "" {
		t.Errorf("dry run must not take a backup, got %s", report.Backup)
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "cms_backup_*")); len(matches) != 0 {
		t.Errorf("unexpected backup files %v", matches)
	}
	for _, res := range report.Results {
		if !res.Planned {
			t.Errorf("expected planned result, got %+v", res)
		}
	}
	if n := countRows(t, dst, "users"); n != 1 {
		t.Errorf("dry run wrote to the destination: %d users", n)
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name string
		cfg  engine.Config
	}{
		{"no source", engine.Config{DestPath: "b.db"}},
		{"no destination", engine.Config{SourcePath: "a.db"}},
		{"same file", engine.Config{SourcePath: "a.db", DestPath: "./a.db"}},
	}
	for _, c := range cases {
		if err := c.cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
	if err := (engine.Config{SourcePath: "a.db", DestPath: "b.db"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
