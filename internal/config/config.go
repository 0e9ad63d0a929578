package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"gopkg.in/yaml.v3"

	"sales-warehouse/internal/cleaner"
	"sales-warehouse/internal/warehouse"
)

type Config struct {
	Paths     Paths              `yaml:"paths"`
	Warehouse Warehouse          `yaml:"warehouse"`
	Datasets  map[string]Dataset `yaml:"datasets"`
	Analysis  Analysis           `yaml:"analysis"`
	Audit     Audit              `yaml:"audit"`
}

// Paths are resolved relative to the config file's directory.
type Paths struct {
	RawDir      string `yaml:"raw_dir"`
	PreparedDir string `yaml:"prepared_dir"`
	ResultsDir  string `yaml:"results_dir"`
	CubeFile    string `yaml:"cube_file"`
}

type Warehouse struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	BatchSize int    `yaml:"batch_size"`
}

// Dataset configures cleaning for one entity.
type Dataset struct {
	Raw                string   `yaml:"raw"`
	Prepared           string   `yaml:"prepared"`
	Required           []string `yaml:"required"`
	Trim               []string `yaml:"trim"`
	DateColumn         string   `yaml:"date_column"`
	DateLayouts        []string `yaml:"date_layouts"`
	DerivedMonthColumn string   `yaml:"derived_month_column"`
	// FillValue is applied to remaining empty cells when set.
	FillValue *string `yaml:"fill_value"`
}

type Analysis struct {
	GroupKey      string `yaml:"group_key"`
	MonthKey      string `yaml:"month_key"`
	ProductKey    string `yaml:"product_key"`
	Measure       string `yaml:"measure"`
	ChartTitle    string `yaml:"chart_title"`
	CurrencyLabel string `yaml:"currency_label"`
}

type Audit struct {
	MongoURI string `yaml:"mongo_uri"`
	Database string `yaml:"database"`
}

// Default returns the configuration for the standard data/ layout.
func Default() *Config {
	unknown := "Unknown"
	return &Config{
		Paths: Paths{
			RawDir:      "data/raw",
			PreparedDir: "data/prepared",
			ResultsDir:  "data/results",
			CubeFile:    "data/olap_cubing_outputs/monthlysales_olap_cube.csv",
		},
		Warehouse: Warehouse{
			Driver:    string(warehouse.SQLite),
			DSN:       "data/dw/smart_sales.db",
			BatchSize: 500,
		},
		Datasets: map[string]Dataset{
			"customer": {
				Raw:      "customers_data.csv",
				Prepared: "customers_data_prepared.csv",
				Required: []string{"CustomerID", "Name"},
				Trim:     []string{"Name"},
			},
			"product": {
				Raw:      "products_data.csv",
				Prepared: "products_data_prepared.csv",
				Required: []string{"ProductID", "ProductName"},
				Trim:     []string{"ProductName"},
			},
			"sale": {
				Raw:                "sales_data.csv",
				Prepared:           "sales_data_prepared.csv",
				Required:           []string{"TransactionID", "CustomerID", "ProductID", "StoreID", "SaleDate"},
				DateColumn:         "SaleDate",
				DerivedMonthColumn: "SaleMonth",
				FillValue:          &unknown,
			},
		},
		Analysis: Analysis{
			GroupKey:      "MonthName",
			MonthKey:      "Month",
			ProductKey:    "product_id",
			Measure:       "sale_amount_usd_sum",
			ChartTitle:    "Total Sales by Month",
			CurrencyLabel: "Total Sales (USD)",
		},
		Audit: Audit{Database: "sales_warehouse"},
	}
}

// LoadConfig reads path over the defaults. Datasets named in the file
// replace the default entry for that entity as a whole.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	config.resolve(filepath.Dir(path))
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c *Config) resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Paths.RawDir = abs(c.Paths.RawDir)
	c.Paths.PreparedDir = abs(c.Paths.PreparedDir)
	c.Paths.ResultsDir = abs(c.Paths.ResultsDir)
	c.Paths.CubeFile = abs(c.Paths.CubeFile)
	dsn := c.Warehouse.DSN
	if c.Warehouse.Driver == string(warehouse.SQLite) && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		c.Warehouse.DSN = abs(c.Warehouse.DSN)
	}
}

var entities = []string{"customer", "product", "sale"}

func (c *Config) Validate() error {
	var errs []error
	if _, err := warehouse.New(c.Warehouse.Driver); err != nil {
		errs = append(errs, err)
	}
	if c.Warehouse.DSN == "" {
		errs = append(errs, errors.New("warehouse.dsn is required"))
	}
	if c.Warehouse.BatchSize < 0 {
		errs = append(errs, errors.New("warehouse.batch_size must not be negative"))
	}
	for _, name := range entities {
		ds, ok := c.Datasets[name]
		if !ok {
			errs = append(errs, fmt.Errorf("datasets.%s is missing", name))
			continue
		}
		if ds.Raw == "" || ds.Prepared == "" {
			errs = append(errs, fmt.Errorf("datasets.%s needs raw and prepared file names", name))
		}
	}
	for name := range c.Datasets {
		if !lo.Contains(entities, name) {
			errs = append(errs, fmt.Errorf("datasets.%s is not a warehouse entity", name))
		}
	}
	if c.Analysis.Measure == "" || c.Analysis.GroupKey == "" {
		errs = append(errs, errors.New("analysis.group_key and analysis.measure are required"))
	}
	return errors.Join(errs...)
}

// CleanerOptions converts a dataset entry.
func (d Dataset) CleanerOptions() cleaner.Options {
	opts := cleaner.Options{
		RequiredColumns:    d.Required,
		TrimColumns:        d.Trim,
		DateColumn:         d.DateColumn,
		DateLayouts:        d.DateLayouts,
		DerivedMonthColumn: d.DerivedMonthColumn,
	}
	if d.FillValue != nil {
		opts.FillValue = mo.Some(*d.FillValue)
	}
	return opts
}

func (c *Config) RawPath(entity string) string {
	return filepath.Join(c.Paths.RawDir, c.Datasets[entity].Raw)
}

func (c *Config) PreparedPath(entity string) string {
	return filepath.Join(c.Paths.PreparedDir, c.Datasets[entity].Prepared)
}

// Entities lists the configured entities in load order.
func Entities() []string {
	return append([]string(nil), entities...)
}
