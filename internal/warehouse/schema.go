package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ColumnType is the logical type of a warehouse column.
type ColumnType int

const (
	Integer ColumnType = iota
	Text
	Real
)

type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableDef declares one warehouse table.
type TableDef struct {
	Name        string
	Columns     []Column
	PrimaryKey  string
	ForeignKeys []ForeignKey
}

const (
	CustomerTable = "customer"
	ProductTable  = "product"
	SaleTable     = "sale"
)

var customerTable = TableDef{
	Name: CustomerTable,
	Columns: []Column{
		{Name: "customer_id", Type: Integer},
		{Name: "name", Type: Text, Nullable: true},
		{Name: "region", Type: Text, Nullable: true},
		{Name: "join_date", Type: Text, Nullable: true},
	},
	PrimaryKey: "customer_id",
}

var productTable = TableDef{
	Name: ProductTable,
	Columns: []Column{
		{Name: "product_id", Type: Integer},
		{Name: "product_name", Type: Text, Nullable: true},
		{Name: "category", Type: Text, Nullable: true},
		{Name: "unit_price", Type: Real, Nullable: true},
		{Name: "unit_cost", Type: Real, Nullable: true},
		{Name: "unit_profit", Type: Real, Nullable: true},
	},
	PrimaryKey: "product_id",
}

var saleTable = TableDef{
	Name: SaleTable,
	Columns: []Column{
		{Name: "sale_id", Type: Integer},
		{Name: "sale_date", Type: Text, Nullable: true},
		{Name: "sale_month", Type: Text, Nullable: true},
		{Name: "customer_id", Type: Integer, Nullable: true},
		{Name: "product_id", Type: Integer, Nullable: true},
		{Name: "store_id", Type: Integer, Nullable: true},
		{Name: "campaign_id", Type: Integer, Nullable: true},
		{Name: "sale_amount_usd", Type: Real, Nullable: true},
	},
	PrimaryKey: "sale_id",
	ForeignKeys: []ForeignKey{
		{Column: "customer_id", RefTable: CustomerTable, RefColumn: "customer_id"},
		{Column: "product_id", RefTable: ProductTable, RefColumn: "product_id"},
	},
}

// Tables returns the warehouse tables, parents before children.
func Tables() []TableDef {
	return []TableDef{customerTable, productTable, saleTable}
}

// Table looks up a definition by name.
func Table(name string) (TableDef, bool) {
	return lo.Find(Tables(), func(t TableDef) bool { return t.Name == name })
}

// Column looks up a column by name.
func (t TableDef) Column(name string) (Column, bool) {
	return lo.Find(t.Columns, func(c Column) bool { return c.Name == name })
}

func (t TableDef) ColumnNames() []string {
	return lo.Map(t.Columns, func(c Column, _ int) string { return c.Name })
}

// CreateStatement renders CREATE TABLE IF NOT EXISTS for d.
func (t TableDef) CreateStatement(d Dialect) string {
	defs := make([]string, 0, len(t.Columns)+len(t.ForeignKeys))
	for _, c := range t.Columns {
		def := fmt.Sprintf("%s %s", c.Name, sqlType(d, c.Type))
		if c.Name == t.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	for _, fk := range t.ForeignKeys {
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)", fk.Column, fk.RefTable, fk.RefColumn))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.Name, strings.Join(defs, ",\n\t"))
}

func sqlType(d Dialect, ct ColumnType) string {
	switch ct {
	case Integer:
		if d == SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case Real:
		switch d {
		case Postgres:
			return "DOUBLE PRECISION"
		case MySQL:
			return "DOUBLE"
		default:
			return "REAL"
		}
	default:
		return "TEXT"
	}
}

// EnsureSchema creates the three tables if absent. Safe to call repeatedly.
func EnsureSchema(ctx context.Context, drv Driver) error {
	return drv.ExecuteTx(ctx, func(tx Tx) error {
		for _, t := range Tables() {
			if err := tx.Exec(ctx, t.CreateStatement(drv.Dialect())); err != nil {
				return fmt.Errorf("create table %s: %w", t.Name, err)
			}
		}
		return nil
	})
}

// Reset deletes every row, children before parents. Call it inside the
// same transaction as the load that follows.
func Reset(ctx context.Context, tx Tx) error {
	for _, t := range lo.Reverse(Tables()) {
		if err := tx.Exec(ctx, "DELETE FROM "+t.Name); err != nil {
			return fmt.Errorf("reset %s: %w", t.Name, err)
		}
	}
	return nil
}
