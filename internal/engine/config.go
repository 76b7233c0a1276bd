package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"db-pour/internal/backup"
)

// Config is everything a run needs to know about its inputs.
type Config struct {
	SourcePath  string
	DestPath    string
	Driver      string
	Backup      backup.Options
	Tables      []string // restrict the run to these common tables; empty means all
	BusyTimeout time.Duration
	DryRun      bool
}

func (c Config) Validate() error {
	if c.SourcePath == "" {
		return errors.New("source database path is required")
	}
	if c.DestPath == "" {
		return errors.New("destination database path is required")
	}

	src, err := filepath.Abs(c.SourcePath)
	if err != nil {
		return fmt.Errorf("resolve source path: %w", err)
	}
	dst, err := filepath.Abs(c.DestPath)
	if err != nil {
		return fmt.Errorf("resolve destination path: %w", err)
	}
	if src == dst {
		return fmt.Errorf("source and destination are the same file: %s", src)
	}
	return nil
}
