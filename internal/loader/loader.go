package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"

	"sales-warehouse/internal/table"
	"sales-warehouse/internal/warehouse"
)

const DefaultBatchSize = 500

type Options struct {
	BatchSize int
	// NullValue is read as NULL in nullable numeric columns, alongside
	// empty cells. It is normally the cleaner's fill value.
	NullValue mo.Option[string]
	// NullValues overrides NullValue for individual entities.
	NullValues map[Kind]string
	Logger     *log.Logger
}

// forKind returns opts with the null sentinel of kind applied.
func (o Options) forKind(kind Kind) Options {
	if v, ok := o.NullValues[kind]; ok {
		o.NullValue = mo.Some(v)
	}
	return o
}

// LatencyStats summarizes per-batch append latency.
type LatencyStats struct {
	Batches int
	P50     time.Duration
	P95     time.Duration
	P99     time.Duration
}

// Outcome is the result of loading one entity.
type Outcome struct {
	Kind    Kind
	Result  mo.Result[int64]
	Latency LatencyStats
	Elapsed time.Duration
}

func (o Outcome) Err() error {
	return o.Result.Error()
}

func (o Outcome) Rows() int64 {
	return o.Result.OrElse(0)
}

// Load maps t onto the warehouse table for kind and appends every row
// through tx. It never returns an error directly; failures are carried in
// the Outcome.
func Load(ctx context.Context, tx warehouse.Tx, t *table.Table, kind Kind, opts Options) Outcome {
	start := time.Now()
	out := Outcome{Kind: kind}

	n, err := load(ctx, tx, t, kind, opts, &out.Latency)
	if err != nil {
		out.Result = mo.Err[int64](fmt.Errorf("load %s: %w", kind, err))
	} else {
		out.Result = mo.Ok(n)
	}
	out.Elapsed = time.Since(start)
	return out
}

func load(ctx context.Context, tx warehouse.Tx, t *table.Table, kind Kind, opts Options, stats *LatencyStats) (int64, error) {
	def, ok := warehouse.Table(string(kind))
	if !ok {
		return 0, fmt.Errorf("no warehouse table for %q", kind)
	}
	if t == nil {
		return 0, errors.New("no prepared dataset")
	}

	columns, err := resolveColumns(t, kind, def)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, 0, t.Len())
	for i, row := range t.Rows {
		values := make([]any, len(columns))
		for j, col := range columns {
			v, err := convert(row[j], col, opts.NullValue)
			if err != nil {
				// Row numbers are 1-based and skip the header.
				return 0, fmt.Errorf("row %d column %s: %w", i+2, t.Columns[j], err)
			}
			values[j] = v
		}
		rows = append(rows, values)
	}

	if kind == Product && opts.Logger != nil {
		if n := profitMismatches(t); n > 0 {
			opts.Logger.Printf("INFO: product: %d rows where UnitProfit differs from UnitPrice - UnitCost", n)
		}
	}

	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	names := lo.Map(columns, func(c warehouse.Column, _ int) string { return c.Name })

	histogram := hdrhistogram.New(1, 10000000000, 3)
	var inserted int64
	for _, batch := range lo.Chunk(rows, size) {
		batchStart := time.Now()
		n, err := tx.Append(ctx, def.Name, names, batch)
		if err != nil {
			return inserted, err
		}
		histogram.RecordValue(time.Since(batchStart).Microseconds())
		inserted += n
		stats.Batches++
	}
	stats.P50 = time.Duration(histogram.ValueAtQuantile(50)) * time.Microsecond
	stats.P95 = time.Duration(histogram.ValueAtQuantile(95)) * time.Microsecond
	stats.P99 = time.Duration(histogram.ValueAtQuantile(99)) * time.Microsecond
	return inserted, nil
}

// resolveColumns returns the warehouse column for each prepared column, in
// header order. Every prepared column must map, and the primary key must be
// present. Absent optional columns are left to the database default.
func resolveColumns(t *table.Table, kind Kind, def warehouse.TableDef) ([]warehouse.Column, error) {
	mapping := mappings[kind]
	columns := make([]warehouse.Column, 0, len(t.Columns))
	for _, header := range t.Columns {
		name, ok := mapping[header]
		if !ok {
			return nil, fmt.Errorf("%w: %s column %q has no warehouse mapping", ErrMappingMismatch, kind, header)
		}
		col, ok := def.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no column %q", ErrMappingMismatch, def.Name, name)
		}
		columns = append(columns, col)
	}

	if _, ok := lo.Find(columns, func(c warehouse.Column) bool { return c.Name == def.PrimaryKey }); !ok {
		return nil, fmt.Errorf("%w: %s dataset lacks primary key %s", ErrMappingMismatch, kind, def.PrimaryKey)
	}
	if dups := lo.FindDuplicates(t.Columns); len(dups) > 0 {
		return nil, fmt.Errorf("%w: %s column %q appears twice", ErrMappingMismatch, kind, dups[0])
	}
	return columns, nil
}

func convert(cell string, col warehouse.Column, nullValue mo.Option[string]) (any, error) {
	v := strings.TrimSpace(cell)
	if v == "" {
		if col.Nullable {
			return nil, nil
		}
		return nil, errors.New("value required")
	}

	switch col.Type {
	case warehouse.Integer:
		if col.Nullable && nullValue.IsPresent() && v == nullValue.MustGet() {
			return nil, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsInteger() || !d.BigInt().IsInt64() {
			return nil, fmt.Errorf("invalid integer %q", cell)
		}
		return d.IntPart(), nil
	case warehouse.Real:
		if col.Nullable && nullValue.IsPresent() && v == nullValue.MustGet() {
			return nil, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", cell)
		}
		return d.InexactFloat64(), nil
	default:
		return cell, nil
	}
}

// profitMismatches counts rows whose stored profit disagrees with price
// minus cost. Rows with any unparsable amount are ignored.
func profitMismatches(t *table.Table) int {
	price, cost, profit := t.ColumnIndex("UnitPrice"), t.ColumnIndex("UnitCost"), t.ColumnIndex("UnitProfit")
	if price < 0 || cost < 0 || profit < 0 {
		return 0
	}
	return lo.CountBy(t.Rows, func(row []string) bool {
		p, err1 := decimal.NewFromString(strings.TrimSpace(row[price]))
		c, err2 := decimal.NewFromString(strings.TrimSpace(row[cost]))
		u, err3 := decimal.NewFromString(strings.TrimSpace(row[profit]))
		if err1 != nil || err2 != nil || err3 != nil {
			return false
		}
		return !p.Sub(c).Equal(u)
	})
}

// Run replaces the warehouse contents with datasets in one transaction:
// reset, then customer, product and sale. The transaction commits only if
// every entity loads; otherwise it rolls back and the joined failures are
// returned. Outcomes are returned in both cases.
func Run(ctx context.Context, drv warehouse.Driver, datasets map[Kind]*table.Table, opts Options) ([]Outcome, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	var outcomes []Outcome
	err := drv.ExecuteTx(ctx, func(tx warehouse.Tx) error {
		if err := warehouse.Reset(ctx, tx); err != nil {
			return err
		}

		var failures []error
		for _, kind := range Kinds() {
			out := Load(ctx, tx, datasets[kind], kind, opts.forKind(kind))
			if out.Err() == nil {
				out = verify(ctx, tx, out)
			}
			outcomes = append(outcomes, out)
			if err := out.Err(); err != nil {
				logger.Printf("ERROR: %v", err)
				failures = append(failures, err)
				continue
			}
			logger.Printf("INFO: loaded %d %s rows in %s (%d batches, p95 %s)",
				out.Rows(), kind, out.Elapsed, out.Latency.Batches, out.Latency.P95)
		}
		return errors.Join(failures...)
	})
	if err != nil {
		logger.Printf("ERROR: load rolled back: %v", err)
		return outcomes, err
	}
	return outcomes, nil
}

// verify checks the table holds exactly the rows just inserted.
func verify(ctx context.Context, tx warehouse.Tx, out Outcome) Outcome {
	n, err := tx.Count(ctx, string(out.Kind))
	if err != nil {
		out.Result = mo.Err[int64](fmt.Errorf("verify %s: %w", out.Kind, err))
	} else if n != out.Rows() {
		out.Result = mo.Err[int64](fmt.Errorf("verify %s: table has %d rows, loaded %d", out.Kind, n, out.Rows()))
	}
	return out
}
