package cleaner

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"sales-warehouse/internal/table"
)

// DefaultDateLayouts are tried in order when parsing the date column.
var DefaultDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
}

// Options controls one Clean pass.
type Options struct {
	// RequiredColumns must be present and non-empty in every kept row.
	RequiredColumns []string
	// TrimColumns have surrounding whitespace removed from their values.
	TrimColumns []string
	// DateColumn, when set, is parsed and normalized; unparsable values
	// become missing.
	DateColumn  string
	DateLayouts []string
	// DerivedMonthColumn is filled with the month name of DateColumn where
	// it is absent or empty.
	DerivedMonthColumn string
	// FillValue replaces remaining missing cells after the required check.
	FillValue mo.Option[string]
}

// Clean returns a normalized copy of raw. The input is never modified and
// rows with defects are dropped without error.
func Clean(raw *table.Table, opts Options) *table.Table {
	t := raw.Clone()

	t.Columns = lo.Map(t.Columns, func(c string, _ int) string {
		return strings.TrimSpace(c)
	})

	t.Rows = dedupe(t.Rows)

	for _, name := range opts.TrimColumns {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		for _, row := range t.Rows {
			row[idx] = strings.TrimSpace(row[idx])
		}
	}

	if opts.DateColumn != "" {
		normalizeDates(t, opts)
	}

	t.Rows = dropMissing(t, opts.RequiredColumns)

	if fill, ok := opts.FillValue.Get(); ok {
		for _, row := range t.Rows {
			for i, cell := range row {
				if isMissing(cell) {
					row[i] = fill
				}
			}
		}
	}

	// Trimming and filling can make distinct raw rows identical.
	t.Rows = dedupe(t.Rows)
	return t
}

func dedupe(rows [][]string) [][]string {
	seen := make(map[string]struct{}, len(rows))
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		key := table.RowKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

func dropMissing(t *table.Table, required []string) [][]string {
	if len(required) == 0 {
		return t.Rows
	}
	indices := make([]int, 0, len(required))
	for _, name := range required {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			// Every row lacks an absent column.
			return [][]string{}
		}
		indices = append(indices, idx)
	}
	return lo.Filter(t.Rows, func(row []string, _ int) bool {
		return !lo.ContainsBy(indices, func(idx int) bool { return isMissing(row[idx]) })
	})
}

func normalizeDates(t *table.Table, opts Options) {
	idx := t.ColumnIndex(opts.DateColumn)
	if idx < 0 {
		return
	}
	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	monthIdx := -1
	if opts.DerivedMonthColumn != "" {
		monthIdx = t.ColumnIndex(opts.DerivedMonthColumn)
		if monthIdx < 0 {
			t.Columns = append(t.Columns, opts.DerivedMonthColumn)
			monthIdx = len(t.Columns) - 1
			for i, row := range t.Rows {
				t.Rows[i] = append(row, "")
			}
		}
	}

	for _, row := range t.Rows {
		parsed, ok := ParseDate(row[idx], layouts)
		if !ok {
			row[idx] = ""
			continue
		}
		row[idx] = FormatDate(parsed)
		if monthIdx >= 0 && isMissing(row[monthIdx]) {
			row[monthIdx] = parsed.Month().String()
		}
	}
}

// ParseDate tries each layout in order.
func ParseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate drops the clock part when it is midnight.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

func isMissing(s string) bool {
	return strings.TrimSpace(s) == ""
}
