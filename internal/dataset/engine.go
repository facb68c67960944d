package dataset

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SyncLog records dataset runs. *synclog.Log satisfies it.
type SyncLog interface {
	Start(ctx context.Context, source, dataset string) (string, error)
	Complete(ctx context.Context, id string, features int, path string) error
	Fail(ctx context.Context, id, class, msg string) error
}

// Engine runs datasets sequentially.
type Engine struct {
	reg     *Registry
	syncLog SyncLog
}

// RunOpts configures which datasets to sync and how.
type RunOpts struct {
	Source Source   // restrict to one source
	Names  []string // restrict to specific dataset names
	Force  bool     // re-download archives that are already extracted
}

// Status is the outcome of one dataset within a run.
type Status string

// Dataset outcomes.
const (
	StatusSynced Status = "synced"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// Outcome describes what happened to one dataset.
type Outcome struct {
	Name     string
	Source   Source
	Status   Status
	Features int
	Path     string
	Class    Class
	Err      error
	Elapsed  time.Duration
}

// Summary totals a run. Features is the cumulative count written by every
// dataset that succeeded.
type Summary struct {
	Synced   int
	Empty    int
	Failed   int
	Features int
	Outcomes []Outcome
}

// NewEngine creates an engine over reg. syncLog may be nil.
func NewEngine(reg *Registry, syncLog SyncLog) *Engine {
	return &Engine{reg: reg, syncLog: syncLog}
}

// Run syncs the selected datasets in registration order. A failing dataset
// is logged, recorded and skipped; the batch continues with the next one.
// Only cancellation of ctx stops the batch early, in which case the partial
// summary is returned with ctx's error.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*Summary, error) {
	log := zap.L().With(zap.String("component", "dataset.engine"))
	summary := &Summary{}

	datasets, err := e.reg.Select(opts.Source, opts.Names)
	if err != nil {
		return summary, err
	}

	if len(datasets) == 0 {
		log.Info("no datasets selected")
		return summary, nil
	}

	log.Info("selected datasets", zap.Int("count", len(datasets)))

	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		out := e.runOne(ctx, ds, opts)
		summary.Outcomes = append(summary.Outcomes, out)
		switch out.Status {
		case StatusSynced:
			summary.Synced++
			summary.Features += out.Features
		case StatusEmpty:
			summary.Empty++
		case StatusFailed:
			summary.Failed++
			if out.Class == ClassCanceled && ctx.Err() != nil {
				return summary, ctx.Err()
			}
		}
	}

	log.Info("engine run complete",
		zap.Int("synced", summary.Synced),
		zap.Int("empty", summary.Empty),
		zap.Int("failed", summary.Failed),
		zap.Int("features", summary.Features),
	)
	return summary, nil
}

func (e *Engine) runOne(ctx context.Context, ds Dataset, opts RunOpts) Outcome {
	dsLog := zap.L().With(
		zap.String("component", "dataset.engine"),
		zap.String("dataset", ds.Name()),
		zap.String("source", string(ds.Source())),
	)
	out := Outcome{Name: ds.Name(), Source: ds.Source()}

	// Recording must survive a canceled batch.
	logCtx := context.WithoutCancel(ctx)

	dsLog.Info("starting sync")
	syncID := e.start(logCtx, ds, dsLog)

	start := time.Now()
	result, err := ds.Sync(ctx, SyncOpts{Force: opts.Force})
	out.Elapsed = time.Since(start)

	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		out.Class = Classify(err)
		dsLog.Error("sync failed",
			zap.String("class", string(out.Class)),
			zap.Error(err),
			zap.Duration("elapsed", out.Elapsed),
		)
		if e.syncLog != nil && syncID != "" {
			if logErr := e.syncLog.Fail(logCtx, syncID, string(out.Class), err.Error()); logErr != nil {
				dsLog.Error("failed to record sync failure", zap.Error(logErr))
			}
		}
		return out
	}

	if result == nil {
		result = &Result{}
	}
	out.Features = result.Features
	out.Path = result.Path
	out.Status = StatusSynced
	if result.Path == "" {
		out.Status = StatusEmpty
	}

	if e.syncLog != nil && syncID != "" {
		if err := e.syncLog.Complete(logCtx, syncID, result.Features, result.Path); err != nil {
			dsLog.Error("failed to record sync completion", zap.Error(err))
		}
	}

	dsLog.Info("sync complete",
		zap.String("status", string(out.Status)),
		zap.Int("features", out.Features),
		zap.String("path", out.Path),
		zap.Duration("elapsed", out.Elapsed),
	)
	return out
}

func (e *Engine) start(ctx context.Context, ds Dataset, dsLog *zap.Logger) string {
	if e.syncLog == nil {
		return ""
	}
	id, err := e.syncLog.Start(ctx, string(ds.Source()), ds.Name())
	if err != nil {
		dsLog.Error("failed to record sync start", zap.Error(eris.Wrapf(err, "engine: start sync log for %s", ds.Name())))
		return ""
	}
	return id
}
