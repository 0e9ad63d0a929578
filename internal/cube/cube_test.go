package cube

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const header = "Month,MonthName,sale_amount_usd_sum,sale_amount_usd_mean,sale_amount_usd_min,sale_amount_usd_max,sale_id_count,sale_ids"

func mustRead(t *testing.T, csv string) *Cube {
	t.Helper()
	c, err := Read(strings.NewReader(csv))
	require.NoError(t, err)
	return c
}

func keysAndTotals(a Aggregation) ([]string, []string) {
	var keys, totals []string
	for _, g := range a.Groups {
		keys = append(keys, g.Key)
		totals = append(totals, g.Total.String())
	}
	return keys, totals
}

func TestAggregateByGroupMonths(t *testing.T) {
	c := mustRead(t, header+`
1,January,1000,100,10,200,10,"[1, 2]"
2,February,500,50,5,100,10,"[3]"
3,March,1500,150,15,300,10,"[4, 5, 6]"
`)

	a, err := AggregateByGroup(c, ColMonth, ColSum)
	require.NoError(t, err)
	keys, totals := keysAndTotals(a)
	require.Equal(t, []string{"2", "1", "3"}, keys)
	require.Equal(t, []string{"500", "1000", "1500"}, totals)

	least, err := Extremum(a, Min)
	require.NoError(t, err)
	require.Equal(t, "2", least.Key)
	require.True(t, least.Total.Equal(decimal.NewFromInt(500)))

	most, err := Extremum(a, Max)
	require.NoError(t, err)
	require.Equal(t, "3", most.Key)
	require.True(t, most.Total.Equal(decimal.NewFromInt(1500)))

	avg, err := Average(a)
	require.NoError(t, err)
	require.Equal(t, "1000", avg.String())

	tbl := a.Table()
	require.Equal(t, []string{"Month", "TotalSales"}, tbl.Columns)
	require.Equal(t, []string{"2", "500"}, tbl.Rows[0])
}

func TestAggregateSumsAndSorts(t *testing.T) {
	c := mustRead(t, header+",product_id"+`
1,January,0.1,0,0,0,1,[1],10
2,February,5,0,0,0,1,[2],10
1,January,0.2,0,0,0,1,[3],11
3,March,,0,0,0,0,[],10
2,February,-1,0,0,0,1,[4],11
`)
	a, err := AggregateByGroup(c, ColMonthName, ColSum)
	require.NoError(t, err)
	keys, totals := keysAndTotals(a)
	require.Equal(t, []string{"March", "January", "February"}, keys)
	// Exact decimal sum, not 0.30000000000000004.
	require.Equal(t, []string{"0", "0.3", "4"}, totals)
	require.Equal(t, 2, a.Groups[1].Rows)

	for i := 1; i < len(a.Groups); i++ {
		require.False(t, a.Groups[i].Total.LessThan(a.Groups[i-1].Total))
	}
}

func TestAggregateStableTies(t *testing.T) {
	c := mustRead(t, header+`
5,May,10,0,0,0,1,[1]
3,March,10,0,0,0,1,[2]
4,April,5,0,0,0,1,[3]
1,January,10,0,0,0,1,[4]
`)
	a, err := AggregateByGroup(c, ColMonth, ColSum)
	require.NoError(t, err)
	keys, _ := keysAndTotals(a)
	require.Equal(t, []string{"4", "5", "3", "1"}, keys)
}

func TestAggregateSkipsEmptyKeys(t *testing.T) {
	c := mustRead(t, header+`
1,January,10,0,0,0,1,[1]
,,99,0,0,0,1,[2]
`)
	a, err := AggregateByGroup(c, ColMonth, ColSum)
	require.NoError(t, err)
	require.Len(t, a.Groups, 1)
}

func TestAggregateGroupsNumericKeysByValue(t *testing.T) {
	c := mustRead(t, header+",product_id"+`
1,January,10,0,0,0,1,[1],10
1.0,January,5,0,0,0,1,[2],10.0
01,January,7,0,0,0,1,[3],11
2,February,1,0,0,0,1,[4],010
`)
	a, err := AggregateByGroup(c, ColMonth, ColSum)
	require.NoError(t, err)
	keys, totals := keysAndTotals(a)
	require.Equal(t, []string{"2", "1"}, keys)
	require.Equal(t, []string{"1", "22"}, totals)
	require.Equal(t, 3, a.Groups[1].Rows)

	top, err := TopPerGroup(c, ColMonth, ColProductID, ColSum)
	require.NoError(t, err)
	require.Len(t, top.Rows, 2)
	require.Equal(t, []string{"1", "10", "15"}, []string{top.Rows[0].Outer, top.Rows[0].Inner, top.Rows[0].Total.String()})
	require.Equal(t, []string{"2", "10", "1"}, []string{top.Rows[1].Outer, top.Rows[1].Inner, top.Rows[1].Total.String()})
}

func TestAggregateErrors(t *testing.T) {
	c := mustRead(t, header+`
1,January,abc,0,0,0,1,[1]
`)
	_, err := AggregateByGroup(c, "Region", ColSum)
	require.ErrorIs(t, err, ErrUnknownColumn)
	_, err = AggregateByGroup(c, ColMonth, "profit")
	require.ErrorIs(t, err, ErrUnknownColumn)
	_, err = AggregateByGroup(c, ColMonth, ColSum)
	require.ErrorContains(t, err, `row 2 column sale_amount_usd_sum: invalid number "abc"`)
}

func TestSingleGroupExtremum(t *testing.T) {
	c := mustRead(t, header+`
7,July,42,0,0,0,1,[1]
7,July,8,0,0,0,1,[2]
`)
	a, err := AggregateByGroup(c, ColMonth, ColSum)
	require.NoError(t, err)
	least, err := Extremum(a, Min)
	require.NoError(t, err)
	most, err := Extremum(a, Max)
	require.NoError(t, err)
	require.Equal(t, least, most)
	require.Equal(t, "50", most.Total.String())
}

func TestExtremumEmpty(t *testing.T) {
	_, err := Extremum(Aggregation{}, Max)
	require.ErrorIs(t, err, ErrEmpty)
	_, err = Average(Aggregation{})
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Extremum(Aggregation{Groups: []Group{{Key: "1"}}}, Which(9))
	require.Error(t, err)
}

func TestParseWhich(t *testing.T) {
	w, err := ParseWhich(" MAX ")
	require.NoError(t, err)
	require.Equal(t, Max, w)
	require.Equal(t, "min", Min.String())

	_, err = ParseWhich("median")
	require.Error(t, err)
}

func TestTopPerGroup(t *testing.T) {
	c := mustRead(t, header+",product_id"+`
10,October,5,0,0,0,1,[1],101
2,February,30,0,0,0,1,[2],102
2,February,10,0,0,0,1,[3],101
2,February,25,0,0,0,1,[4],101
10,October,5,0,0,0,1,[5],102
1,January,7,0,0,0,1,[6],103
`)
	top, err := TopPerGroup(c, ColMonth, ColProductID, ColSum)
	require.NoError(t, err)
	require.Len(t, top.Rows, 3)

	require.Equal(t, "1", top.Rows[0].Outer)
	require.Equal(t, "103", top.Rows[0].Inner)
	require.Equal(t, "7", top.Rows[0].Total.String())
	// 101 sums to 35 and beats 102 at 30.
	require.Equal(t, "2", top.Rows[1].Outer)
	require.Equal(t, "101", top.Rows[1].Inner)
	require.Equal(t, "35", top.Rows[1].Total.String())
	// Tie at 5: first encountered wins.
	require.Equal(t, "10", top.Rows[2].Outer)
	require.Equal(t, "101", top.Rows[2].Inner)

	tbl := top.Table()
	require.Equal(t, []string{"Month", "product_id", "TotalSales"}, tbl.Columns)

	_, err = TopPerGroup(c, ColMonth, "store_id", ColSum)
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestPivotForChart(t *testing.T) {
	c := mustRead(t, header+",product_id"+`
2,February,30,0,0,0,1,[1],102
1,January,7,0,0,0,1,[2],101
2,February,3,0,0,0,1,[3],102
10,October,4,0,0,0,1,[4],101
`)
	m, err := PivotForChart(c, ColMonth, ColProductID, ColSum)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "10"}, m.Rows)
	require.Equal(t, []string{"101", "102"}, m.Columns)

	v, ok := m.Value("2", "102")
	require.True(t, ok)
	require.Equal(t, "33", v.String())
	v, ok = m.Value("1", "102")
	require.True(t, ok)
	require.True(t, v.IsZero())
	_, ok = m.Value("3", "102")
	require.False(t, ok)

	tbl := m.Table()
	require.Equal(t, []string{"Month", "101", "102"}, tbl.Columns)
	require.Equal(t, [][]string{{"1", "7", "0"}, {"2", "0", "33"}, {"10", "4", "0"}}, tbl.Rows)
}

func TestPivotMonthNames(t *testing.T) {
	c := mustRead(t, header+",product_id"+`
3,March,1,0,0,0,1,[1],1
1,January,1,0,0,0,1,[2],1
2,February,1,0,0,0,1,[3],1
`)
	m, err := PivotForChart(c, ColMonthName, ColProductID, ColSum)
	require.NoError(t, err)
	require.Equal(t, []string{"January", "February", "March"}, m.Rows)
}

func TestReadMissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("Month,MonthName,sale_amount_usd_sum\n1,January,5\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
	require.ErrorContains(t, err, "sale_amount_usd_mean")
}

func TestReadFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	path := filepath.Join(t.TempDir(), "cube.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+",product_id,store_id\n1,January,5,5,5,5,1,\"[7, 8]\",10,401\n"), 0o644))
	c, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	require.Equal(t, []string{"Month", "MonthName", "product_id", "store_id"}, c.Dimensions())

	ids, err := c.SaleIDs(0)
	require.NoError(t, err)
	require.Equal(t, []int64{7, 8}, ids)
}

func TestCompareKeys(t *testing.T) {
	require.Negative(t, compareKeys("2", "10"))
	require.Negative(t, compareKeys("9", "May"))
	require.Negative(t, compareKeys("Sep", "October"))
	require.Negative(t, compareKeys("December", "East"))
	require.Positive(t, compareKeys("West", "East"))
	require.Zero(t, compareKeys("a", "a"))
}
