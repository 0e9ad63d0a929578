package inspect

import (
	"log"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"sales-warehouse/internal/cleaner"
	"sales-warehouse/internal/table"
)

// DType is the inferred type of a column's non-empty cells.
type DType string

const (
	DTypeEmpty   DType = "empty"
	DTypeInteger DType = "integer"
	DTypeDecimal DType = "decimal"
	DTypeBoolean DType = "boolean"
	DTypeDate    DType = "date"
	DTypeString  DType = "string"
)

type ColumnReport struct {
	Name      string `json:"name" bson:"name"`
	NullCount int    `json:"null_count" bson:"null_count"`
	DType     DType  `json:"dtype" bson:"dtype"`
}

// Report is a structural snapshot of a table. It never drives control flow.
type Report struct {
	RowCount      int            `json:"row_count" bson:"row_count"`
	ColumnCount   int            `json:"column_count" bson:"column_count"`
	DuplicateRows int            `json:"duplicate_rows" bson:"duplicate_rows"`
	Columns       []ColumnReport `json:"columns" bson:"columns"`
}

// Inspect builds a Report. Safe on empty and nil tables.
func Inspect(t *table.Table) Report {
	if t == nil {
		return Report{}
	}
	r := Report{
		RowCount:    t.Len(),
		ColumnCount: len(t.Columns),
		Columns:     make([]ColumnReport, len(t.Columns)),
	}

	keys := lo.Map(t.Rows, func(row []string, _ int) string { return table.RowKey(row) })
	r.DuplicateRows = len(keys) - len(lo.Uniq(keys))

	for i, name := range t.Columns {
		var nulls int
		var values []string
		for _, row := range t.Rows {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				nulls++
				continue
			}
			values = append(values, row[i])
		}
		r.Columns[i] = ColumnReport{Name: name, NullCount: nulls, DType: inferType(values)}
	}
	return r
}

// NullCounts returns null counts keyed by column name.
func (r Report) NullCounts() map[string]int {
	return lo.SliceToMap(r.Columns, func(c ColumnReport) (string, int) { return c.Name, c.NullCount })
}

// Log writes the report at info level.
func (r Report) Log(logger *log.Logger, stage string) {
	logger.Printf("INFO: [%s] rows=%d columns=%d duplicates=%d", stage, r.RowCount, r.ColumnCount, r.DuplicateRows)
	for _, c := range r.Columns {
		logger.Printf("INFO: [%s]   %-20s nulls=%d dtype=%s", stage, c.Name, c.NullCount, c.DType)
	}
}

// Delta summarizes what changed between two reports of the same dataset.
type Delta struct {
	RowsRemoved int            `json:"rows_removed" bson:"rows_removed"`
	NullChanges map[string]int `json:"null_changes,omitempty" bson:"null_changes,omitempty"`
}

func Compare(before, after Report) Delta {
	d := Delta{RowsRemoved: before.RowCount - after.RowCount}
	prev := before.NullCounts()
	for _, c := range after.Columns {
		if change := c.NullCount - prev[c.Name]; change != 0 {
			if d.NullChanges == nil {
				d.NullChanges = map[string]int{}
			}
			d.NullChanges[c.Name] = change
		}
	}
	return d
}

func inferType(values []string) DType {
	if len(values) == 0 {
		return DTypeEmpty
	}
	isInt, isNum, isBool, isDate := true, true, true, true
	for _, v := range values {
		v = strings.TrimSpace(v)
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isNum {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isNum = false
			}
		}
		if isBool {
			switch strings.ToLower(v) {
			case "true", "false", "yes", "no":
			default:
				isBool = false
			}
		}
		if isDate {
			if _, ok := cleaner.ParseDate(v, cleaner.DefaultDateLayouts); !ok {
				isDate = false
			}
		}
	}
	switch {
	case isInt:
		return DTypeInteger
	case isNum:
		return DTypeDecimal
	case isBool:
		return DTypeBoolean
	case isDate:
		return DTypeDate
	default:
		return DTypeString
	}
}
