package runner

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"

	"sales-warehouse/internal/config"
	"sales-warehouse/internal/cube"
	"sales-warehouse/internal/report"
)

// Result file names under the results directory.
const (
	SalesByMonthNameFile     = "sales_by_month_name.csv"
	SalesByMonthFile         = "sales_by_month.csv"
	SalesByMonthChart        = "sales_by_month.json"
	TopProductByMonthFile    = "top_product_by_month.csv"
	SalesByMonthProductFile  = "sales_by_month_and_product.csv"
	SalesByMonthProductChart = "sales_by_month_and_product.json"
)

type Analysis struct {
	ByMonthName cube.Aggregation
	ByMonth     cube.Aggregation
	Least       cube.Group
	Most        cube.Group
	Average     decimal.Decimal
	// Present only when the cube carries the product dimension.
	TopProducts mo.Option[cube.TopTable]
	Pivot       mo.Option[cube.Matrix]
}

// Analyze aggregates the cube and writes result tables and chart
// descriptions to the results directory.
func Analyze(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Analysis, error) {
	c, err := cube.ReadFile(cfg.Paths.CubeFile)
	if err != nil {
		logger.Printf("ERROR: load cube: %v", err)
		return nil, err
	}
	logger.Printf("INFO: cube loaded from %s (%d rows)", cfg.Paths.CubeFile, c.Len())

	ac := cfg.Analysis
	a := &Analysis{}

	a.ByMonthName, err = cube.AggregateByGroup(c, ac.GroupKey, ac.Measure)
	if err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", ac.GroupKey, err)
	}
	if a.Least, err = cube.Extremum(a.ByMonthName, cube.Min); err != nil {
		return nil, err
	}
	if a.Most, err = cube.Extremum(a.ByMonthName, cube.Max); err != nil {
		return nil, err
	}
	if a.Average, err = cube.Average(a.ByMonthName); err != nil {
		return nil, err
	}
	logger.Printf("INFO: least profitable %s: %s with total sales of $%s", ac.GroupKey, a.Least.Key, a.Least.Total.StringFixed(2))
	logger.Printf("INFO: most profitable %s: %s with total sales of $%s", ac.GroupKey, a.Most.Key, a.Most.Total.StringFixed(2))
	logger.Printf("INFO: average total sales per %s: $%s", ac.GroupKey, a.Average.StringFixed(2))

	a.ByMonth, err = cube.AggregateByGroup(c, ac.MonthKey, ac.Measure)
	if err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", ac.MonthKey, err)
	}

	if lo.Contains(c.Columns(), ac.ProductKey) {
		top, err := cube.TopPerGroup(c, ac.MonthKey, ac.ProductKey, ac.Measure)
		if err != nil {
			return nil, err
		}
		a.TopProducts = mo.Some(top)

		m, err := cube.PivotForChart(c, ac.MonthKey, ac.ProductKey, ac.Measure)
		if err != nil {
			return nil, err
		}
		a.Pivot = mo.Some(m)
	} else {
		logger.Printf("INFO: cube has no %s column; skipping product breakdown", ac.ProductKey)
	}

	if err := ctx.Err(); err != nil {
		return a, err
	}
	if err := writeResults(cfg, a, logger); err != nil {
		logger.Printf("ERROR: write results: %v", err)
		return a, err
	}
	return a, nil
}

func writeResults(cfg *config.Config, a *Analysis, logger *log.Logger) error {
	dir := cfg.Paths.ResultsDir
	ac := cfg.Analysis
	path := func(name string) string { return filepath.Join(dir, name) }

	if err := report.WriteAggregation(path(SalesByMonthNameFile), a.ByMonthName); err != nil {
		return err
	}
	if err := report.WriteAggregation(path(SalesByMonthFile), a.ByMonth); err != nil {
		return err
	}
	if err := report.WriteChart(path(SalesByMonthChart), report.BarChart(ac.ChartTitle, ac.CurrencyLabel, a.ByMonth)); err != nil {
		return err
	}

	if top, ok := a.TopProducts.Get(); ok {
		if err := report.WriteTop(path(TopProductByMonthFile), top); err != nil {
			return err
		}
	}
	if m, ok := a.Pivot.Get(); ok {
		if err := report.WriteMatrix(path(SalesByMonthProductFile), m); err != nil {
			return err
		}
		chart := report.StackedBarChart(ac.ChartTitle+" and Product", ac.CurrencyLabel, m)
		if err := report.WriteChart(path(SalesByMonthProductChart), chart); err != nil {
			return err
		}
	}
	logger.Printf("INFO: results written to %s", dir)
	return nil
}
