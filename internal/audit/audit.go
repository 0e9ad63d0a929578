package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"sales-warehouse/internal/inspect"
	"sales-warehouse/internal/loader"
)

// Stage names a pipeline step.
type Stage string

const (
	StagePrepare Stage = "prepare"
	StageLoad    Stage = "load"
	StageAnalyze Stage = "analyze"
)

type Inspection struct {
	Dataset string         `json:"dataset" bson:"dataset"`
	Before  inspect.Report `json:"before" bson:"before"`
	After   inspect.Report `json:"after" bson:"after"`
}

// OutcomeRecord is the persisted form of a loader.Outcome.
type OutcomeRecord struct {
	Kind    string        `json:"kind" bson:"kind"`
	Rows    int64         `json:"rows" bson:"rows"`
	Error   string        `json:"error,omitempty" bson:"error,omitempty"`
	Batches int           `json:"batches" bson:"batches"`
	P95     time.Duration `json:"p95_ns" bson:"p95_ns"`
	Elapsed time.Duration `json:"elapsed_ns" bson:"elapsed_ns"`
}

func NewOutcomeRecords(outcomes []loader.Outcome) []OutcomeRecord {
	return lo.Map(outcomes, func(o loader.Outcome, _ int) OutcomeRecord {
		rec := OutcomeRecord{
			Kind:    string(o.Kind),
			Rows:    o.Rows(),
			Batches: o.Latency.Batches,
			P95:     o.Latency.P95,
			Elapsed: o.Elapsed,
		}
		if err := o.Err(); err != nil {
			rec.Error = err.Error()
		}
		return rec
	})
}

// RunReport describes one pipeline stage execution.
type RunReport struct {
	RunID       uuid.UUID       `json:"run_id" bson:"run_id"`
	Stage       Stage           `json:"stage" bson:"stage"`
	StartedAt   time.Time       `json:"started_at" bson:"started_at"`
	FinishedAt  time.Time       `json:"finished_at" bson:"finished_at"`
	Inspections []Inspection    `json:"inspections,omitempty" bson:"inspections,omitempty"`
	Outcomes    []OutcomeRecord `json:"outcomes,omitempty" bson:"outcomes,omitempty"`
	Error       string          `json:"error,omitempty" bson:"error,omitempty"`
}

// NewRunReport starts a report for stage under runID.
func NewRunReport(runID uuid.UUID, stage Stage) RunReport {
	return RunReport{RunID: runID, Stage: stage, StartedAt: time.Now().UTC()}
}

// Finish stamps the end time and records err, if any.
func (r *RunReport) Finish(err error) {
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.Error = err.Error()
	}
}

// Sink stores run reports. Callers log Record failures and carry on.
type Sink interface {
	Record(ctx context.Context, report RunReport) error
	Close(ctx context.Context) error
}

// LogSink writes each report as one JSON line.
type LogSink struct {
	logger *log.Logger
}

func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(_ context.Context, report RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	s.logger.Printf("INFO: run report %s", data)
	return nil
}

func (s *LogSink) Close(context.Context) error { return nil }

// Config selects the sink. An empty MongoURI means the log sink.
type Config struct {
	MongoURI string
	Database string
}

// New returns a MongoSink when cfg.MongoURI is set, else a LogSink.
func New(ctx context.Context, cfg Config, logger *log.Logger) (Sink, error) {
	if cfg.MongoURI == "" {
		return NewLogSink(logger), nil
	}
	return NewMongoSink(ctx, cfg.MongoURI, cfg.Database)
}
