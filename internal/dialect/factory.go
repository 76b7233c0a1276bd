package dialect

import (
	"errors"
	"fmt"
)

var ErrUnsupportedDriver = errors.New("unsupported driver")

// GetDialect returns the Dialect implementation for a driver name.
func GetDialect(driver string) (Dialect, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return &SQLiteDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Ensure interface implementation
var _ Dialect = (*SQLiteDialect)(nil)
