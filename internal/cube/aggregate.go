package cube

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"sales-warehouse/internal/table"
)

// Group is one summed group.
type Group struct {
	Key   string
	Total decimal.Decimal
	Rows  int
}

// Aggregation is the output of AggregateByGroup, ascending by Total.
type Aggregation struct {
	GroupKey string
	Measure  string
	Groups   []Group
}

// Table renders the aggregation as two columns: the group key and TotalSales.
func (a Aggregation) Table() *table.Table {
	t := table.New(a.GroupKey, ResultColumn)
	for _, g := range a.Groups {
		t.Append(g.Key, g.Total.String())
	}
	return t
}

// groupSums sums measure per key in first-appearance order. Rows with an
// empty key are skipped. Numeric keys are grouped by value, so 1, 1.0 and 01
// form one group keyed "1".
func groupSums(c *Cube, keyCols []int, measureCol int) ([]Group, [][]string, error) {
	var (
		groups []Group
		keys   [][]string
	)
	position := map[string]int{}
	for i, row := range c.t.Rows {
		parts := lo.Map(keyCols, func(col int, _ int) string { return normalizeKey(row[col]) })
		if lo.Contains(parts, "") {
			continue
		}
		v, err := c.measure(i, measureCol)
		if err != nil {
			return nil, nil, err
		}
		id := table.RowKey(parts)
		pos, ok := position[id]
		if !ok {
			pos = len(groups)
			position[id] = pos
			groups = append(groups, Group{Key: strings.Join(parts, " / ")})
			keys = append(keys, parts)
		}
		groups[pos].Total = groups[pos].Total.Add(v)
		groups[pos].Rows++
	}
	return groups, keys, nil
}

// normalizeKey trims a key cell and rewrites numbers in canonical form.
func normalizeKey(cell string) string {
	v := strings.TrimSpace(cell)
	if d, err := decimal.NewFromString(v); err == nil {
		return d.String()
	}
	return v
}

// AggregateByGroup sums measure per distinct groupKey value and sorts the
// groups ascending by total. Ties keep first-appearance order.
func AggregateByGroup(c *Cube, groupKey, measure string) (Aggregation, error) {
	keyCol, err := c.index(groupKey)
	if err != nil {
		return Aggregation{}, err
	}
	measureCol, err := c.index(measure)
	if err != nil {
		return Aggregation{}, err
	}

	groups, _, err := groupSums(c, []int{keyCol}, measureCol)
	if err != nil {
		return Aggregation{}, err
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Total.LessThan(groups[j].Total)
	})
	return Aggregation{GroupKey: groupKey, Measure: measure, Groups: groups}, nil
}

// TopRow is the winning inner key for one outer key.
type TopRow struct {
	Outer string
	Inner string
	Total decimal.Decimal
}

type TopTable struct {
	OuterKey string
	InnerKey string
	Rows     []TopRow
}

func (tt TopTable) Table() *table.Table {
	t := table.New(tt.OuterKey, tt.InnerKey, ResultColumn)
	for _, r := range tt.Rows {
		t.Append(r.Outer, r.Inner, r.Total.String())
	}
	return t
}

// TopPerGroup sums measure per (outerKey, innerKey) pair and keeps, for each
// outer value, the inner value with the largest sum. Ties go to the pair
// seen first. Rows are ordered by outer key.
func TopPerGroup(c *Cube, outerKey, innerKey, measure string) (TopTable, error) {
	outerCol, err := c.index(outerKey)
	if err != nil {
		return TopTable{}, err
	}
	innerCol, err := c.index(innerKey)
	if err != nil {
		return TopTable{}, err
	}
	measureCol, err := c.index(measure)
	if err != nil {
		return TopTable{}, err
	}

	groups, keys, err := groupSums(c, []int{outerCol, innerCol}, measureCol)
	if err != nil {
		return TopTable{}, err
	}
	pairs := make([]TopRow, len(groups))
	for i, g := range groups {
		pairs[i] = TopRow{Outer: keys[i][0], Inner: keys[i][1], Total: g.Total}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Total.GreaterThan(pairs[j].Total)
	})

	rows := lo.UniqBy(pairs, func(r TopRow) string { return r.Outer })
	sort.SliceStable(rows, func(i, j int) bool {
		return compareKeys(rows[i].Outer, rows[j].Outer) < 0
	})
	return TopTable{OuterKey: outerKey, InnerKey: innerKey, Rows: rows}, nil
}

// Which selects an end of an ascending aggregation.
type Which int

const (
	Min Which = iota
	Max
)

func (w Which) String() string {
	switch w {
	case Min:
		return "min"
	case Max:
		return "max"
	}
	return fmt.Sprintf("Which(%d)", int(w))
}

func ParseWhich(s string) (Which, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	}
	return 0, fmt.Errorf("unknown extremum %q, want min or max", s)
}

// Extremum returns the first (Min) or last (Max) group of a.
func Extremum(a Aggregation, which Which) (Group, error) {
	if len(a.Groups) == 0 {
		return Group{}, ErrEmpty
	}
	switch which {
	case Min:
		return a.Groups[0], nil
	case Max:
		return a.Groups[len(a.Groups)-1], nil
	}
	return Group{}, fmt.Errorf("unknown extremum %v", which)
}

// Average is the mean of the group totals.
func Average(a Aggregation) (decimal.Decimal, error) {
	if len(a.Groups) == 0 {
		return decimal.Zero, ErrEmpty
	}
	totals := lo.Map(a.Groups, func(g Group, _ int) decimal.Decimal { return g.Total })
	return decimal.Avg(totals[0], totals[1:]...), nil
}

// Matrix is a pivot of measure by row and column keys.
type Matrix struct {
	RowKey    string
	ColumnKey string
	Rows      []string
	Columns   []string
	// Cells[i][j] is the sum for Rows[i] and Columns[j].
	Cells [][]decimal.Decimal
}

// Value returns the cell for row and col.
func (m Matrix) Value(row, col string) (decimal.Decimal, bool) {
	i := lo.IndexOf(m.Rows, row)
	j := lo.IndexOf(m.Columns, col)
	if i < 0 || j < 0 {
		return decimal.Zero, false
	}
	return m.Cells[i][j], true
}

// Table renders the matrix with the row key as the first column.
func (m Matrix) Table() *table.Table {
	t := table.New(append([]string{m.RowKey}, m.Columns...)...)
	for i, r := range m.Rows {
		cells := lo.Map(m.Cells[i], func(d decimal.Decimal, _ int) string { return d.String() })
		t.Append(append([]string{r}, cells...)...)
	}
	return t
}

// PivotForChart sums measure into a rowKey x columnKey matrix. Missing
// combinations are zero. Both axes are sorted by key.
func PivotForChart(c *Cube, rowKey, columnKey, measure string) (Matrix, error) {
	rowCol, err := c.index(rowKey)
	if err != nil {
		return Matrix{}, err
	}
	colCol, err := c.index(columnKey)
	if err != nil {
		return Matrix{}, err
	}
	measureCol, err := c.index(measure)
	if err != nil {
		return Matrix{}, err
	}

	groups, keys, err := groupSums(c, []int{rowCol, colCol}, measureCol)
	if err != nil {
		return Matrix{}, err
	}

	rows := lo.Uniq(lo.Map(keys, func(k []string, _ int) string { return k[0] }))
	cols := lo.Uniq(lo.Map(keys, func(k []string, _ int) string { return k[1] }))
	sort.SliceStable(rows, func(i, j int) bool { return compareKeys(rows[i], rows[j]) < 0 })
	sort.SliceStable(cols, func(i, j int) bool { return compareKeys(cols[i], cols[j]) < 0 })

	m := Matrix{RowKey: rowKey, ColumnKey: columnKey, Rows: rows, Columns: cols, Cells: make([][]decimal.Decimal, len(rows))}
	for i := range m.Cells {
		m.Cells[i] = lo.RepeatBy(len(cols), func(int) decimal.Decimal { return decimal.Zero })
	}
	for i, g := range groups {
		r := lo.IndexOf(rows, keys[i][0])
		col := lo.IndexOf(cols, keys[i][1])
		m.Cells[r][col] = g.Total
	}
	return m, nil
}
