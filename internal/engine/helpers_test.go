package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"db-pour/internal/db"

	"github.com/brianvoe/gofakeit/v6"
)

var runTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

// newDB creates dir/name and runs stmts against it.
func newDB(t *testing.T, dir, name string, stmts ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	execDB(t, path, stmts...)
	return path
}

func openDB(t *testing.T, path string) *db.Handle {
	t.Helper()
	h, err := db.Open(context.Background(), path, db.Options{})
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return h
}

func execDB(t *testing.T, path string, stmts ...string) {
	t.Helper()
	h := openDB(t, path)
	defer h.Close()
	for _, s := range stmts {
		if _, err := h.DB().Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
}

func countRows(t *testing.T, path, table string) int {
	t.Helper()
	h := openDB(t, path)
	defer h.Close()
	var n int
	if err := h.DB().QueryRow(`SELECT COUNT(*) FROM "` + table + `"`).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func queryStrings(t *testing.T, path, query string) []string {
	t.Helper()
	h := openDB(t, path)
	defer h.Close()
	rows, err := h.DB().Query(query)
	if err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	return out
}

// seedUsers inserts n fake users into path and returns their names in insert order.
func seedUsers(t *testing.T, path string, faker *gofakeit.Faker, n int) []string {
	t.Helper()
	h := openDB(t, path)
	defer h.Close()
	names := make([]string, n)
	for i := range names {
		names[i] = faker.Name()
		if _, err := h.DB().Exec(`INSERT INTO users (id, name, email) VALUES (?, ?, ?)`, i+1, names[i], faker.Email()); err != nil {
			t.Fatalf("seed users: %v", err)
		}
	}
	return names
}
