package inspect

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"sales-warehouse/internal/table"
)

func sample() *table.Table {
	t := table.New("TransactionID", "SaleDate", "SaleAmount", "Promo", "Note", "Blank")
	t.Append("1", "2024-01-01", "10.5", "true", "ok", "")
	t.Append("2", "2024-01-02", "3", "no", "", "")
	t.Append("2", "2024-01-02", "3", "no", "", "")
	t.Append("3", "", "", "", "late", " ")
	return t
}

func TestInspect(t *testing.T) {
	r := Inspect(sample())
	require.Equal(t, 4, r.RowCount)
	require.Equal(t, 6, r.ColumnCount)
	require.Equal(t, 1, r.DuplicateRows)

	require.Equal(t, []ColumnReport{
		{Name: "TransactionID", NullCount: 0, DType: DTypeInteger},
		{Name: "SaleDate", NullCount: 1, DType: DTypeDate},
		{Name: "SaleAmount", NullCount: 1, DType: DTypeDecimal},
		{Name: "Promo", NullCount: 1, DType: DTypeBoolean},
		{Name: "Note", NullCount: 2, DType: DTypeString},
		{Name: "Blank", NullCount: 4, DType: DTypeEmpty},
	}, r.Columns)
}

func TestInspectDoesNotMutate(t *testing.T) {
	in := sample()
	before := in.Clone()
	_ = Inspect(in)
	require.Equal(t, before, in)
}

func TestInspectEmpty(t *testing.T) {
	require.NotPanics(t, func() {
		r := Inspect(table.New())
		require.Equal(t, 0, r.RowCount)
		require.Empty(t, r.Columns)

		r = Inspect(table.New("a", "b"))
		require.Equal(t, 2, r.ColumnCount)
		require.Equal(t, DTypeEmpty, r.Columns[0].DType)

		r = Inspect(nil)
		require.Equal(t, Report{}, r)
	})
}

func TestInspectDuplicatesAreExact(t *testing.T) {
	tbl := table.New("a", "b")
	tbl.Append("x\x1fy", "z")
	tbl.Append("x", "y\x1fz")
	tbl.Append("x", "y\x1fz")
	require.Equal(t, 1, Inspect(tbl).DuplicateRows)
}

func TestCompare(t *testing.T) {
	before := Inspect(sample())
	after := table.New("TransactionID", "SaleDate", "SaleAmount", "Promo", "Note", "Blank")
	after.Append("1", "2024-01-01", "10.5", "true", "ok", "Unknown")

	d := Compare(before, Inspect(after))
	require.Equal(t, 3, d.RowsRemoved)
	require.Equal(t, map[string]int{"SaleDate": -1, "SaleAmount": -1, "Promo": -1, "Note": -2, "Blank": -4}, d.NullChanges)
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	Inspect(sample()).Log(log.New(&buf, "", 0), "before")
	require.Contains(t, buf.String(), "INFO: [before] rows=4 columns=6 duplicates=1")
	require.Contains(t, buf.String(), "dtype=date")
}
