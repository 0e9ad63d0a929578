package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// maxParams keeps one INSERT under the bind-variable limits of SQLite and MySQL.
const maxParams = 30000

// sqlxTx backs the database/sql drivers.
type sqlxTx struct {
	tx *sqlx.Tx
}

func (t *sqlxTx) Exec(ctx context.Context, query string) error {
	_, err := t.tx.ExecContext(ctx, query)
	return err
}

func (t *sqlxTx) Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("append %s: no columns", table)
	}
	chunk := maxParams / len(columns)
	if chunk < 1 {
		chunk = 1
	}

	var inserted int64
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		query, args, err := insertSQL(table, columns, rows[start:end])
		if err != nil {
			return inserted, err
		}
		res, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
		if err != nil {
			return inserted, fmt.Errorf("insert into %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

func (t *sqlxTx) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := t.tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table)
	return n, err
}

// insertSQL builds a multi-row INSERT with '?' placeholders.
func insertSQL(table string, columns []string, rows [][]any) (string, []any, error) {
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	values := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("insert into %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
		values = append(values, group)
		args = append(args, row...)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(columns, ", "), strings.Join(values, ", "))
	return query, args, nil
}

// executeSqlxTx commits on success and rolls back on error or panic.
func executeSqlxTx(ctx context.Context, db *sqlx.DB, txFunc func(Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // re-panic after rollback
		} else if err != nil {
			tx.Rollback() // err is non-nil; don't change it
		} else {
			err = tx.Commit() // err is nil; if Commit returns error, update err
		}
	}()

	err = txFunc(&sqlxTx{tx: tx})
	return err
}
