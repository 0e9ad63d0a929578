package warehouse

import (
	"context"
	"errors"
	"fmt"
)

// Dialect names a supported warehouse backend.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

var ErrUnsupportedDriver = errors.New("unsupported warehouse driver")

// Tx is the subset of a transaction the schema manager and loader need.
type Tx interface {
	Exec(ctx context.Context, query string) error
	// Append bulk-inserts rows; every row must have len(columns) values.
	Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Count(ctx context.Context, table string) (int64, error)
}

// Driver is one warehouse connection. It is not safe for concurrent runs;
// callers own exclusive access for the duration of a load.
type Driver interface {
	Connect(ctx context.Context, dsn string) error
	Close() error
	Dialect() Dialect
	// ExecuteTx commits when txFunc returns nil and rolls back otherwise,
	// including on panic.
	ExecuteTx(ctx context.Context, txFunc func(Tx) error) error
}

// New returns an unconnected driver for name.
func New(name string) (Driver, error) {
	drivers := map[Dialect]func() Driver{
		SQLite:   func() Driver { return &SQLiteDriver{} },
		Postgres: func() Driver { return &PostgresDriver{} },
		MySQL:    func() Driver { return &MySQLDriver{} },
	}
	ctor, ok := drivers[Dialect(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, name)
	}
	return ctor(), nil
}

// Open creates and connects a driver.
func Open(ctx context.Context, name, dsn string) (Driver, error) {
	drv, err := New(name)
	if err != nil {
		return nil, err
	}
	if err := drv.Connect(ctx, dsn); err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}
	return drv, nil
}
