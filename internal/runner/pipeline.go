package runner

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"sales-warehouse/internal/audit"
	"sales-warehouse/internal/config"
	"sales-warehouse/internal/loader"
)

// Pipeline runs the stages under one run id and records a report for each
// stage in the audit sink.
type Pipeline struct {
	cfg    *config.Config
	logger *log.Logger
	sink   audit.Sink
	runID  uuid.UUID
}

func NewPipeline(cfg *config.Config, logger *log.Logger, sink audit.Sink) *Pipeline {
	if sink == nil {
		sink = audit.NewLogSink(logger)
	}
	return &Pipeline{cfg: cfg, logger: logger, sink: sink, runID: uuid.New()}
}

func (p *Pipeline) RunID() uuid.UUID { return p.runID }

func (p *Pipeline) record(ctx context.Context, r audit.RunReport, err error) {
	r.Finish(err)
	if recErr := p.sink.Record(ctx, r); recErr != nil {
		p.logger.Printf("ERROR: record %s run report: %v", r.Stage, recErr)
	}
}

func (p *Pipeline) Prepare(ctx context.Context) ([]Prepared, error) {
	r := audit.NewRunReport(p.runID, audit.StagePrepare)
	prepared, err := Prepare(ctx, p.cfg, p.logger)
	r.Inspections = lo.Map(prepared, func(pr Prepared, _ int) audit.Inspection {
		return audit.Inspection{Dataset: pr.Entity, Before: pr.Before, After: pr.After}
	})
	p.record(ctx, r, err)
	return prepared, err
}

// Load opens the warehouse, loads the prepared files and closes the
// connection on every path.
func (p *Pipeline) Load(ctx context.Context) (outcomes []loader.Outcome, err error) {
	r := audit.NewRunReport(p.runID, audit.StageLoad)
	defer func() {
		r.Outcomes = audit.NewOutcomeRecords(outcomes)
		p.record(ctx, r, err)
	}()

	drv, err := OpenWarehouse(ctx, p.cfg)
	if err != nil {
		p.logger.Printf("ERROR: open warehouse: %v", err)
		return nil, err
	}
	defer drv.Close()

	return Load(ctx, p.cfg, drv, p.logger)
}

func (p *Pipeline) Analyze(ctx context.Context) (*Analysis, error) {
	r := audit.NewRunReport(p.runID, audit.StageAnalyze)
	a, err := Analyze(ctx, p.cfg, p.logger)
	p.record(ctx, r, err)
	return a, err
}

// Run executes prepare, load and analyze, stopping at the first failure.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Printf("INFO: starting run %s", p.runID)
	if _, err := p.Prepare(ctx); err != nil {
		return err
	}
	if _, err := p.Load(ctx); err != nil {
		return err
	}
	if _, err := p.Analyze(ctx); err != nil {
		return err
	}
	p.logger.Printf("INFO: run %s complete", p.runID)
	return nil
}

// Run executes the whole pipeline once with a fresh run id.
func Run(ctx context.Context, cfg *config.Config, logger *log.Logger, sink audit.Sink) error {
	return NewPipeline(cfg, logger, sink).Run(ctx)
}
