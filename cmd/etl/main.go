package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"sales-warehouse/internal/audit"
	"sales-warehouse/internal/config"
	"sales-warehouse/internal/runner"
	"sales-warehouse/internal/warehouse"
)

var configPath string

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		exitCode = 1
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "etl",
		Short:         "Clean sales extracts, load the warehouse and analyze the sales cube",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration")

	root.AddCommand(
		&cobra.Command{
			Use:   "prepare",
			Short: "Clean the raw customer, product and sale files",
			RunE: withPipeline(func(ctx context.Context, p *runner.Pipeline) error {
				_, err := p.Prepare(ctx)
				return err
			}),
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Create the warehouse tables if they do not exist",
			RunE:  runSchema,
		},
		&cobra.Command{
			Use:   "load",
			Short: "Replace the warehouse contents with the prepared files",
			RunE: withPipeline(func(ctx context.Context, p *runner.Pipeline) error {
				outcomes, err := p.Load(ctx)
				for _, o := range outcomes {
					fmt.Printf("%-8s rows=%d elapsed=%s p95=%s\n", o.Kind, o.Rows(), o.Elapsed, o.Latency.P95)
				}
				return err
			}),
		},
		&cobra.Command{
			Use:   "analyze",
			Short: "Aggregate the sales cube and write results",
			RunE: withPipeline(func(ctx context.Context, p *runner.Pipeline) error {
				a, err := p.Analyze(ctx)
				if err != nil {
					return err
				}
				return printSummary(a)
			}),
		},
		&cobra.Command{
			Use:   "run",
			Short: "Prepare, load and analyze in one run",
			RunE: withPipeline(func(ctx context.Context, p *runner.Pipeline) error {
				return p.Run(ctx)
			}),
		},
	)
	return root
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "", log.LstdFlags)
}

// withPipeline loads the config, opens the audit sink and hands a pipeline
// to fn. Errors are logged before they are returned.
func withPipeline(fn func(context.Context, *runner.Pipeline) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Printf("ERROR: failed to load config: %v", err)
			return err
		}

		sink, err := audit.New(ctx, audit.Config{MongoURI: cfg.Audit.MongoURI, Database: cfg.Audit.Database}, logger)
		if err != nil {
			logger.Printf("ERROR: audit sink unavailable, using log: %v", err)
			sink = audit.NewLogSink(logger)
		}
		defer func() {
			if err := sink.Close(context.Background()); err != nil {
				logger.Printf("ERROR: close audit sink: %v", err)
			}
		}()

		if err := fn(ctx, runner.NewPipeline(cfg, logger, sink)); err != nil {
			logger.Printf("ERROR: %s failed: %v", cmd.Name(), err)
			return err
		}
		return nil
	}
}

func runSchema(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Printf("ERROR: failed to load config: %v", err)
		return err
	}
	drv, err := runner.OpenWarehouse(ctx, cfg)
	if err != nil {
		logger.Printf("ERROR: failed to connect to %s: %v", cfg.Warehouse.Driver, err)
		return err
	}
	defer drv.Close()

	if err := warehouse.EnsureSchema(ctx, drv); err != nil {
		logger.Printf("ERROR: failed to create schema: %v", err)
		return err
	}
	logger.Printf("INFO: schema ready on %s", cfg.Warehouse.Driver)
	return nil
}

type summary struct {
	Least   group   `json:"least"`
	Most    group   `json:"most"`
	Average string  `json:"average"`
	Groups  []group `json:"groups"`
}

type group struct {
	Key   string `json:"key"`
	Total string `json:"total"`
}

func printSummary(a *runner.Analysis) error {
	s := summary{
		Least:   group{Key: a.Least.Key, Total: a.Least.Total.StringFixed(2)},
		Most:    group{Key: a.Most.Key, Total: a.Most.Total.StringFixed(2)},
		Average: a.Average.StringFixed(2),
	}
	for _, g := range a.ByMonthName.Groups {
		s.Groups = append(s.Groups, group{Key: g.Key, Total: g.Total.StringFixed(2)})
	}
	jsonOutput, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	fmt.Println(string(jsonOutput))
	return nil
}
