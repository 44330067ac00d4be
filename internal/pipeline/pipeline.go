// Package pipeline orchestrates the medallion run: raw CSVs in bronze,
// cleaned and merged Parquet in silver, analytical outputs in gold.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/citylake/traffic-weather-etl/internal/adapter/blob"
	"github.com/citylake/traffic-weather-etl/internal/clean"
	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/factor"
	"github.com/citylake/traffic-weather-etl/internal/merge"
	"github.com/citylake/traffic-weather-etl/internal/observability"
	"github.com/citylake/traffic-weather-etl/internal/simulate"
)

// Deps carries the external resources a run needs. Replica and Notifier are
// optional; nil disables the replication stage and stage-event publication.
type Deps struct {
	Store      domain.ObjectStore
	Replica    domain.BulkFS
	ReplicaDir string
	Notifier   domain.StageNotifier
	Clock      clockwork.Clock
	Retry      blob.RetryPolicy
	Logger     *slog.Logger
	Metrics    *observability.Metrics

	// Synthetic ingest settings. A zero seed derives one from the clock.
	GenerateRows int
	GenerateSeed uint64
}

// StageStatus summarizes one stage of the last run.
type StageStatus struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	RowsIn   int    `json:"rows_in,omitempty"`
	RowsOut  int    `json:"rows_out,omitempty"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// RunStatus summarizes the last pipeline run for /statusz.
type RunStatus struct {
	RunID      string        `json:"run_id"`
	State      string        `json:"state"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Stages     []StageStatus `json:"stages"`
}

// Pipeline runs the stages in order against the configured store.
type Pipeline struct {
	deps Deps

	cleaner   *clean.Cleaner
	merger    *merge.Merger
	extractor *factor.Extractor
	simulator *simulate.Simulator

	mu     sync.Mutex
	status RunStatus
}

// New creates a Pipeline with the given dependencies.
func New(deps Deps) *Pipeline {
	p := &Pipeline{
		deps:      deps,
		cleaner:   clean.New(deps.Logger),
		merger:    merge.New(deps.Logger),
		extractor: factor.New(deps.Logger),
		simulator: simulate.New(deps.Logger),
	}
	p.status = RunStatus{State: "idle"}
	return p
}

// CheckReadiness probes the object store. The service is ready when the
// store answers a bucket listing.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if _, err := p.deps.Store.ListBuckets(ctx); err != nil {
		return fmt.Errorf("object store unreachable: %w", err)
	}
	return nil
}

// RunStatus returns a copy of the last run summary.
func (p *Pipeline) RunStatus() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.status
	out.Stages = append([]StageStatus(nil), p.status.Stages...)
	return &out
}

// stageResult carries row accounting from a stage back to the orchestrator.
type stageResult struct {
	rowsIn  int
	rowsOut int
	dropped int
}

type stage struct {
	name string

	// optional stages downgrade failure to a warning; the run continues.
	optional bool

	run func(ctx context.Context) (stageResult, error)
}

// Run executes one full pipeline pass. The first mandatory stage failure
// halts the run and is returned; optional stage failures are warnings.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := p.deps.Logger.With("run_id", runID)
	logger.Info("pipeline run starting")

	p.deps.Metrics.PipelineRunning.Set(1)
	defer p.deps.Metrics.PipelineRunning.Set(0)

	started := p.deps.Clock.Now()
	p.setStatus(RunStatus{RunID: runID, State: "running", StartedAt: started})

	stages := []stage{
		{name: "ingest", run: p.runIngest},
		{name: "clean_traffic", run: func(ctx context.Context) (stageResult, error) {
			return p.runClean(ctx, "clean_traffic", domain.ObjectTrafficRaw, domain.ObjectTrafficClean, domain.TrafficSpec())
		}},
		{name: "clean_weather", run: func(ctx context.Context) (stageResult, error) {
			return p.runClean(ctx, "clean_weather", domain.ObjectWeatherRaw, domain.ObjectWeatherClean, domain.WeatherSpec())
		}},
		{name: "merge", run: p.runMerge},
		{name: "factor_analysis", run: p.runFactorAnalysis},
		{name: "monte_carlo", run: p.runMonteCarlo},
		{name: "replicate", optional: true, run: p.runReplicate},
	}

	var runErr error
	for _, st := range stages {
		if err := p.runStage(ctx, runID, st, logger); err != nil {
			runErr = err
			break
		}
	}

	finished := p.deps.Clock.Now()
	p.mu.Lock()
	p.status.FinishedAt = &finished
	if runErr != nil {
		p.status.State = "failed"
	} else {
		p.status.State = "completed"
	}
	p.mu.Unlock()

	if runErr != nil {
		p.deps.Metrics.RunsTotal.WithLabelValues("failed").Inc()
		logger.Error("pipeline run failed", "error", runErr)
		return runErr
	}
	p.deps.Metrics.RunsTotal.WithLabelValues("completed").Inc()
	logger.Info("pipeline run completed", "duration", finished.Sub(started).String())
	return nil
}

func (p *Pipeline) setStatus(s RunStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}

func (p *Pipeline) appendStage(ss StageStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Stages = append(p.status.Stages, ss)
}

// runStage wraps one stage with readiness waiting, metrics, status
// accounting, and stage-event publication.
func (p *Pipeline) runStage(ctx context.Context, runID string, st stage, logger *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run aborted before stage %s: %w", st.name, err)
	}

	// Every stage touches the store; make sure it is answering first.
	if err := blob.WaitReady(ctx, p.deps.Store, p.deps.Retry, p.deps.Clock, logger); err != nil {
		err = domain.NewStageError(st.name, domain.ErrorConnectivity, err)
		return p.finishStage(ctx, runID, st, logger, stageResult{}, time.Duration(0), err)
	}

	start := p.deps.Clock.Now()
	res, err := st.run(ctx)
	elapsed := p.deps.Clock.Now().Sub(start)
	return p.finishStage(ctx, runID, st, logger, res, elapsed, err)
}

func (p *Pipeline) finishStage(ctx context.Context, runID string, st stage, logger *slog.Logger, res stageResult, elapsed time.Duration, err error) error {
	m := p.deps.Metrics
	m.StageDuration.WithLabelValues(st.name).Observe(elapsed.Seconds())
	m.RowsIn.WithLabelValues(st.name).Add(float64(res.rowsIn))
	m.RowsOut.WithLabelValues(st.name).Add(float64(res.rowsOut))
	if res.dropped > 0 {
		m.RowsDropped.WithLabelValues(st.name).Add(float64(res.dropped))
	}

	ss := StageStatus{
		Name:     st.name,
		Status:   "completed",
		RowsIn:   res.rowsIn,
		RowsOut:  res.rowsOut,
		Duration: elapsed.String(),
	}

	if err != nil {
		kind := domain.ErrorKind(err)
		m.StageErrors.WithLabelValues(st.name, string(kind)).Inc()
		ss.Error = err.Error()
		if st.optional {
			ss.Status = "warning"
			logger.Warn("optional stage failed", "stage", st.name, "kind", kind, "error", err)
			err = nil
		} else {
			ss.Status = "failed"
		}
	} else {
		logger.Info("stage completed", "stage", st.name, "rows_in", res.rowsIn, "rows_out", res.rowsOut, "duration", elapsed.String())
	}

	p.appendStage(ss)
	p.notify(ctx, runID, ss)
	return err
}

// notify publishes the stage event when a notifier is configured. Publish
// failures are logged and never affect the run.
func (p *Pipeline) notify(ctx context.Context, runID string, ss StageStatus) {
	if p.deps.Notifier == nil {
		return
	}
	event := domain.StageEvent{
		RunID:    runID,
		Stage:    ss.Name,
		Status:   ss.Status,
		RowsIn:   ss.RowsIn,
		RowsOut:  ss.RowsOut,
		Error:    ss.Error,
		Duration: ss.Duration,
		At:       domain.Now(),
	}
	if err := p.deps.Notifier.NotifyStage(ctx, event); err != nil {
		p.deps.Logger.Warn("stage event publish failed", "stage", ss.Name, "error", err)
	}
}
