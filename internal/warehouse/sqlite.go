package warehouse

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteDriver is the embedded, file-backed warehouse.
type SQLiteDriver struct {
	db *sqlx.DB
}

// Connect opens dsn, creating the file and its directory if absent.
func (sd *SQLiteDriver) Connect(ctx context.Context, dsn string) error {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return err
		}
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return err
	}
	// Single writer; also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)
	sd.db = db
	return nil
}

func (sd *SQLiteDriver) Close() error {
	if sd.db == nil {
		return nil
	}
	return sd.db.Close()
}

func (sd *SQLiteDriver) Dialect() Dialect { return SQLite }

func (sd *SQLiteDriver) ExecuteTx(ctx context.Context, txFunc func(Tx) error) error {
	return executeSqlxTx(ctx, sd.db, txFunc)
}

// DB exposes the underlying handle for read-side queries.
func (sd *SQLiteDriver) DB() *sqlx.DB { return sd.db }
