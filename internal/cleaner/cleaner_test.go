package cleaner

import (
	"strings"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/require"

	"sales-warehouse/internal/table"
)

func customers() *table.Table {
	t := table.New(" CustomerID", "Name ", "Region", "JoinDate")
	t.Append("1", "Alice ", "East", "2020-01-01")
	t.Append("1", "Alice ", "East", "2020-01-01")
	t.Append("2", "", "West", "2020-02-01")
	return t
}

var customerOpts = Options{
	RequiredColumns: []string{"CustomerID", "Name"},
	TrimColumns:     []string{"Name"},
}

func TestCleanCustomerRows(t *testing.T) {
	out := Clean(customers(), customerOpts)

	require.Equal(t, []string{"CustomerID", "Name", "Region", "JoinDate"}, out.Columns)
	require.Equal(t, [][]string{{"1", "Alice", "East", "2020-01-01"}}, out.Rows)
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	in := customers()
	before := in.Clone()
	_ = Clean(in, customerOpts)
	require.Equal(t, before, in)
}

func TestCleanDedupKeepsFirstAndOrder(t *testing.T) {
	in := table.New("k", "v")
	in.Append("b", "1")
	in.Append("a", "2")
	in.Append("b", "1")
	in.Append("c", "3")
	in.Append("a", "2")

	out := Clean(in, Options{})
	require.Equal(t, [][]string{{"b", "1"}, {"a", "2"}, {"c", "3"}}, out.Rows)
}

func TestCleanOutputHasNoIdenticalRows(t *testing.T) {
	in := table.New("ID", "Name")
	in.Append("1", "Bob")
	in.Append("1", " Bob ")
	in.Append("1", "Bob  ")
	in.Append("2", "")
	in.Append("2", " ")

	out := Clean(in, Options{TrimColumns: []string{"Name"}, FillValue: mo.Some("Unknown")})
	require.LessOrEqual(t, out.Len(), in.Len())

	seen := map[string]bool{}
	for _, row := range out.Rows {
		key := strings.Join(row, "|")
		require.False(t, seen[key], "duplicate row %v", row)
		seen[key] = true
	}
	require.Equal(t, [][]string{{"1", "Bob"}, {"2", "Unknown"}}, out.Rows)
}

func TestCleanKeepsRowsThatOnlyShareJoinedText(t *testing.T) {
	in := table.New("a", "b")
	in.Append("x\x1fy", "z")
	in.Append("x", "y\x1fz")
	in.Append("x|", "y")
	in.Append("x", "|y")

	out := Clean(in, Options{})
	require.Equal(t, in.Rows, out.Rows)
}

func TestCleanTrimPreservesInternalWhitespace(t *testing.T) {
	in := table.New("ProductID", "ProductName", "Category")
	in.Append("10", "  Gaming   Laptop \t", "  Electronics ")

	out := Clean(in, Options{TrimColumns: []string{"ProductName", "Missing"}})
	require.Equal(t, "Gaming   Laptop", out.Rows[0][1])
	// Columns outside TrimColumns keep their padding.
	require.Equal(t, "  Electronics ", out.Rows[0][2])
}

func TestCleanRequiredFields(t *testing.T) {
	in := table.New("ProductID", "ProductName")
	in.Append("", "Laptop")
	in.Append("11", "  ")
	in.Append("12", "Desk")

	out := Clean(in, Options{
		RequiredColumns: []string{"ProductID", "ProductName"},
		TrimColumns:     []string{"ProductName"},
	})
	require.Equal(t, [][]string{{"12", "Desk"}}, out.Rows)
}

func TestCleanAbsentRequiredColumnDropsEverything(t *testing.T) {
	in := table.New("ProductID")
	in.Append("1")
	out := Clean(in, Options{RequiredColumns: []string{"ProductName"}})
	require.Equal(t, 0, out.Len())
	require.Equal(t, []string{"ProductID"}, out.Columns)
}

func TestCleanSales(t *testing.T) {
	in := table.New("TransactionID", "SaleDate", "CustomerID", "ProductID", "StoreID", "CampaignID", "SaleAmount")
	in.Append("550", "2024-01-06", "1001", "101", "401", "0", "6344.96")
	in.Append("551", "not a date", "1002", "102", "402", "0", "19.5")
	in.Append("552", "2024-02-30", "1003", "103", "403", "1", "42")
	in.Append("553", "2024-03-15 13:45:00", "1004", "104", "404", "", "7.25")
	in.Append("554", "2024-04-01", "", "105", "405", "2", "1")

	out := Clean(in, Options{
		RequiredColumns:    []string{"TransactionID", "CustomerID", "ProductID", "StoreID", "SaleDate"},
		DateColumn:         "SaleDate",
		DerivedMonthColumn: "SaleMonth",
		FillValue:          mo.Some("Unknown"),
	})

	require.Equal(t, []string{"TransactionID", "SaleDate", "CustomerID", "ProductID", "StoreID", "CampaignID", "SaleAmount", "SaleMonth"}, out.Columns)
	require.Equal(t, [][]string{
		{"550", "2024-01-06", "1001", "101", "401", "0", "6344.96", "January"},
		{"553", "2024-03-15 13:45:00", "1004", "104", "404", "Unknown", "7.25", "March"},
	}, out.Rows)
}

func TestCleanKeepsExistingMonthLabel(t *testing.T) {
	in := table.New("TransactionID", "SaleDate", "SaleMonth")
	in.Append("1", "2024-05-02", "May-2024")
	in.Append("2", "2024-06-02", "")

	out := Clean(in, Options{DateColumn: "SaleDate", DerivedMonthColumn: "SaleMonth"})
	require.Equal(t, "May-2024", out.Rows[0][2])
	require.Equal(t, "June", out.Rows[1][2])
}

func TestParseDateLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-06", "2024-01-06", true},
		{" 2024/01/06 ", "2024-01-06", true},
		{"01/06/2024", "2024-01-06", true},
		{"2024-01-06 08:30", "2024-01-06 08:30:00", true},
		{"", "", false},
		{"06.01.2024", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in, DefaultDateLayouts)
			require.Equal(t, tt.ok, ok)
			if ok {
				require.Equal(t, tt.want, FormatDate(got))
			}
		})
	}
}
