package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"sales-warehouse/internal/cube"
)

var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Chart describes a chart for an external renderer.
type Chart struct {
	ChartType  string   `json:"chartType"`
	Title      string   `json:"title"`
	XAxis      string   `json:"xAxis,omitempty"`
	YAxis      string   `json:"yAxis,omitempty"`
	Stacked    bool     `json:"stacked,omitempty"`
	Series     []Series `json:"series"`
	Colors     []string `json:"colors,omitempty"`
	ShowLegend bool     `json:"showLegend"`
}

type Series struct {
	Name  string  `json:"name"`
	Data  []Point `json:"data"`
	Color string  `json:"color,omitempty"`
}

type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// BarChart builds a single-series bar chart from an aggregation, in the
// given group order.
func BarChart(title, yAxis string, a cube.Aggregation) Chart {
	points := lo.Map(a.Groups, func(g cube.Group, _ int) Point {
		return Point{Label: g.Key, Value: round2(g.Total)}
	})
	return Chart{
		ChartType: "bar",
		Title:     title,
		XAxis:     a.GroupKey,
		YAxis:     yAxis,
		Series:    []Series{{Name: cube.ResultColumn, Data: points, Color: defaultColors[0]}},
		Colors:    defaultColors[:1],
	}
}

// StackedBarChart builds one series per matrix column, with a point per row.
func StackedBarChart(title, yAxis string, m cube.Matrix) Chart {
	series := lo.Map(m.Columns, func(col string, j int) Series {
		points := lo.Map(m.Rows, func(row string, i int) Point {
			return Point{Label: row, Value: round2(m.Cells[i][j])}
		})
		return Series{Name: col, Data: points, Color: defaultColors[j%len(defaultColors)]}
	})
	return Chart{
		ChartType:  "bar",
		Title:      title,
		XAxis:      m.RowKey,
		YAxis:      yAxis,
		Stacked:    true,
		Series:     series,
		Colors:     lo.Map(series, func(s Series, _ int) string { return s.Color }),
		ShowLegend: true,
	}
}

func WriteAggregation(path string, a cube.Aggregation) error {
	return a.Table().WriteFile(path)
}

func WriteTop(path string, t cube.TopTable) error {
	return t.Table().WriteFile(path)
}

func WriteMatrix(path string, m cube.Matrix) error {
	return m.Table().WriteFile(path)
}

// WriteChart writes c as indented JSON, creating the directory if needed.
func WriteChart(path string, c Chart) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chart: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
