package runner

import (
	"context"
	"fmt"
	"log"

	"sales-warehouse/internal/cleaner"
	"sales-warehouse/internal/config"
	"sales-warehouse/internal/inspect"
	"sales-warehouse/internal/loader"
	"sales-warehouse/internal/table"
	"sales-warehouse/internal/warehouse"
)

// Prepared is one cleaned dataset and its before/after inspection.
type Prepared struct {
	Entity string
	Path   string
	Table  *table.Table
	Before inspect.Report
	After  inspect.Report
}

// Prepare cleans every raw dataset and writes the prepared files. A
// missing or malformed raw file stops the run.
func Prepare(ctx context.Context, cfg *config.Config, logger *log.Logger) ([]Prepared, error) {
	var out []Prepared
	for _, entity := range config.Entities() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		p, err := prepareOne(cfg, entity, logger)
		if err != nil {
			logger.Printf("ERROR: prepare %s: %v", entity, err)
			return out, fmt.Errorf("prepare %s: %w", entity, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func prepareOne(cfg *config.Config, entity string, logger *log.Logger) (Prepared, error) {
	raw, err := table.ReadFile(cfg.RawPath(entity))
	if err != nil {
		return Prepared{}, err
	}
	logger.Printf("INFO: loaded %d %s rows from %s", raw.Len(), entity, cfg.RawPath(entity))

	before := inspect.Inspect(raw)
	before.Log(logger, entity+" raw")

	cleaned := cleaner.Clean(raw, cfg.Datasets[entity].CleanerOptions())

	after := inspect.Inspect(cleaned)
	after.Log(logger, entity+" prepared")
	delta := inspect.Compare(before, after)
	logger.Printf("INFO: [%s] removed %d rows", entity, delta.RowsRemoved)

	path := cfg.PreparedPath(entity)
	if err := cleaned.WriteFile(path); err != nil {
		return Prepared{}, err
	}
	logger.Printf("INFO: wrote %s", path)

	return Prepared{Entity: entity, Path: path, Table: cleaned, Before: before, After: after}, nil
}

// Load reads the prepared files and replaces the warehouse contents
// through drv. The caller owns drv and closes it.
func Load(ctx context.Context, cfg *config.Config, drv warehouse.Driver, logger *log.Logger) ([]loader.Outcome, error) {
	datasets := make(map[loader.Kind]*table.Table, len(config.Entities()))
	for _, entity := range config.Entities() {
		kind, err := loader.ParseKind(entity)
		if err != nil {
			return nil, err
		}
		t, err := table.ReadFile(cfg.PreparedPath(entity))
		if err != nil {
			logger.Printf("ERROR: read prepared %s: %v", entity, err)
			return nil, err
		}
		datasets[kind] = t
	}

	if err := warehouse.EnsureSchema(ctx, drv); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	opts := loader.Options{
		BatchSize:  cfg.Warehouse.BatchSize,
		NullValues: nullValues(cfg),
		Logger:     logger,
	}
	return loader.Run(ctx, drv, datasets, opts)
}

// nullValues maps each entity to its cleaning fill value, read back as NULL
// by the loader.
func nullValues(cfg *config.Config) map[loader.Kind]string {
	out := map[loader.Kind]string{}
	for _, entity := range config.Entities() {
		if v := cfg.Datasets[entity].FillValue; v != nil {
			out[loader.Kind(entity)] = *v
		}
	}
	return out
}

// OpenWarehouse connects to the configured warehouse.
func OpenWarehouse(ctx context.Context, cfg *config.Config) (warehouse.Driver, error) {
	return warehouse.Open(ctx, cfg.Warehouse.Driver, cfg.Warehouse.DSN)
}
