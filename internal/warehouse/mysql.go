package warehouse

import (
	"context"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

type MySQLDriver struct {
	db *sqlx.DB
}

func (md *MySQLDriver) Connect(ctx context.Context, dsn string) error {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return err
	}
	md.db = db
	return nil
}

func (md *MySQLDriver) Close() error {
	if md.db == nil {
		return nil
	}
	return md.db.Close()
}

func (md *MySQLDriver) Dialect() Dialect { return MySQL }

func (md *MySQLDriver) ExecuteTx(ctx context.Context, txFunc func(Tx) error) error {
	return executeSqlxTx(ctx, md.db, txFunc)
}
