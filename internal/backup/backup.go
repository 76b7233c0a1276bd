// Package backup takes a timestamped safety copy of the destination file
// before anything is written to it.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// TimestampLayout renders as YYYYMMDD_HHMMSS.
const TimestampLayout = "20060102_150405"

type Options struct {
	Prefix string // defaults to DefaultPrefix(path)
	Dir    string // defaults to the directory of the copied file
}

// DefaultPrefix derives "<name>_backup" from "<dir>/<name>.<ext>".
func DefaultPrefix(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_backup"
}

// Name returns the path of the backup Create would write at now.
func Name(path string, opts Options, now time.Time) string {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix(path)
	}
	dir := opts.Dir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	return filepath.Join(dir, prefix+"_"+now.Format(TimestampLayout)+filepath.Ext(path))
}

// Create copies path byte for byte to Name(path, opts, now), keeping its mode
// and modification time. An existing file at the target name is never overwritten.
func Create(fs afero.Fs, path string, opts Options, now time.Time) (string, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return "", fmt.Errorf("backup: cannot stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("backup: %s is not a regular file", path)
	}

	src, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("backup: cannot open %s: %w", path, err)
	}
	defer src.Close()

	target := Name(path, opts, now)
	dst, err := fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("backup: cannot create %s: %w", target, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = fs.Remove(target)
		return "", fmt.Errorf("backup: copy %s to %s: %w", path, target, err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		_ = fs.Remove(target)
		return "", fmt.Errorf("backup: sync %s: %w", target, err)
	}
	if err := dst.Close(); err != nil {
		_ = fs.Remove(target)
		return "", fmt.Errorf("backup: close %s: %w", target, err)
	}

	if err := fs.Chtimes(target, now, info.ModTime()); err != nil {
		return "", fmt.Errorf("backup: set times on %s: %w", target, err)
	}

	return target, nil
}
