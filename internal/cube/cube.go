package cube

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"sales-warehouse/internal/table"
)

// Fixed cube columns.
const (
	ColMonth     = "Month"
	ColMonthName = "MonthName"
	ColSum       = "sale_amount_usd_sum"
	ColMean      = "sale_amount_usd_mean"
	ColMin       = "sale_amount_usd_min"
	ColMax       = "sale_amount_usd_max"
	ColCount     = "sale_id_count"
	ColSaleIDs   = "sale_ids"

	// ColProductID is the optional product dimension.
	ColProductID = "product_id"
)

// ResultColumn names the summed measure in aggregation output.
const ResultColumn = "TotalSales"

var RequiredColumns = []string{ColMonth, ColMonthName, ColSum, ColMean, ColMin, ColMax, ColCount, ColSaleIDs}

var (
	ErrEmpty         = errors.New("no groups to select from")
	ErrUnknownColumn = errors.New("unknown cube column")
	ErrMissingColumn = errors.New("cube is missing a required column")
)

// Cube is a read-only set of precomputed rows.
type Cube struct {
	t *table.Table
}

// New validates that t carries every fixed column. Extra columns are
// kept as dimensions.
func New(t *table.Table) (*Cube, error) {
	if missing := lo.Filter(RequiredColumns, func(c string, _ int) bool { return t.ColumnIndex(c) < 0 }); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return &Cube{t: t.Clone()}, nil
}

func Read(r io.Reader) (*Cube, error) {
	t, err := table.Read(r)
	if err != nil {
		return nil, err
	}
	return New(t)
}

func ReadFile(path string) (*Cube, error) {
	t, err := table.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := New(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Cube) Len() int { return c.t.Len() }

func (c *Cube) Columns() []string { return append([]string(nil), c.t.Columns...) }

// Dimensions returns the non-measure columns, Month and MonthName first.
func (c *Cube) Dimensions() []string {
	measures := []string{ColSum, ColMean, ColMin, ColMax, ColCount, ColSaleIDs}
	return lo.Filter(c.t.Columns, func(col string, _ int) bool { return !lo.Contains(measures, col) })
}

// SaleIDs parses the sale_ids list of row i, written as "[1, 2, 3]".
func (c *Cube) SaleIDs(i int) ([]int64, error) {
	raw := strings.TrimSpace(c.t.Rows[i][c.t.ColumnIndex(ColSaleIDs)])
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d sale_ids: %w", i+2, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Cube) index(name string) (int, error) {
	idx := c.t.ColumnIndex(name)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return idx, nil
}

// measure parses the measure of row i. An empty cell counts as zero.
func (c *Cube) measure(i, col int) (decimal.Decimal, error) {
	v := strings.TrimSpace(c.t.Rows[i][col])
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("row %d column %s: invalid number %q", i+2, c.t.Columns[col], v)
	}
	return d, nil
}

// compareKeys orders group keys: numbers numerically, then month names in
// calendar order, then everything else lexically.
func compareKeys(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return strings.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}

	ma, mb := monthOrder(a), monthOrder(b)
	switch {
	case ma > 0 && mb > 0:
		return ma - mb
	case ma > 0:
		return -1
	case mb > 0:
		return 1
	}
	return strings.Compare(a, b)
}

var months = []string{"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december"}

// monthOrder returns 1..12 for an English month name or its three-letter
// abbreviation, else 0.
func monthOrder(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0
	}
	_, i, ok := lo.FindIndexOf(months, func(m string) bool { return m == s || m[:3] == s })
	if !ok {
		return 0
	}
	return i + 1
}
