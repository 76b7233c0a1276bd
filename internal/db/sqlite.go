// Package db opens SQLite database files for the copy run.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "modernc.org/sqlite" // register driver
)

// DriverName is the database/sql driver used for every handle.
const DriverName = "sqlite"

var ErrNotFound = errors.New("database file not found")

type Options struct {
	// ReadOnly rejects every statement that would write to the file.
	ReadOnly bool
	// BusyTimeout is how long SQLite waits on a locked file before failing.
	BusyTimeout time.Duration
}

// Handle is one open database file.
type Handle struct {
	path string
	db   *sql.DB
}

// Check reports whether path is an existing file that Open can use.
func Check(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// Open opens an existing database file. The driver creates missing files on
// open, so existence is checked first.
func Open(ctx context.Context, path string, opts Options) (*Handle, error) {
	if err := Check(path); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(DriverName, dsn(path, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	// One connection keeps pragmas and transactions on the same session.
	sqldb.SetMaxOpenConns(1)

	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}

	return &Handle{path: path, db: sqldb}, nil
}

func dsn(path string, opts Options) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(0)")
	if opts.ReadOnly {
		q.Add("_pragma", "query_only(1)")
	}
	if opts.BusyTimeout > 0 {
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	}
	return path + "?" + q.Encode()
}

func (h *Handle) DB() *sql.DB {
	return h.db
}

func (h *Handle) Path() string {
	return h.path
}

func (h *Handle) Close() error {
	return h.db.Close()
}
