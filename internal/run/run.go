// Package run ties a trigger event to one execution of a pipeline graph and
// exposes the externally observable result surface: an overall status plus a
// per-instance outcome table. A Run exclusively owns its graph; no instance
// is shared across runs.
package run

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/releasegrid/releasegrid/internal/ctxlog"
	"github.com/releasegrid/releasegrid/internal/dag"
	"github.com/releasegrid/releasegrid/internal/executor"
	"github.com/releasegrid/releasegrid/internal/registry"
)

// Run is one execution of a pipeline for one trigger event.
type Run struct {
	// ID uniquely identifies this run.
	ID string
	// Pipeline is the definition this run executes.
	Pipeline *config.Pipeline
	// Trigger is the event context that started the run.
	Trigger *config.Trigger

	reg      *registry.Registry
	graphOps dag.Options
	execOpts executor.Options

	mu     sync.Mutex
	graph  *dag.Graph
	result *Result
	runErr error
	once   sync.Once
}

// Options bundles everything needed to materialize and execute a run.
type Options struct {
	// Graph controls materialization (matrix handling, skip policy).
	Graph dag.Options
	// Executor controls scheduling (workers, clock, fail-fast).
	Executor executor.Options
}

// New creates a run with a fresh identity. Nothing is materialized until
// Execute.
func New(pipeline *config.Pipeline, trigger *config.Trigger, reg *registry.Registry, opts Options) *Run {
	return &Run{
		ID:       uuid.NewString(),
		Pipeline: pipeline,
		Trigger:  trigger,
		reg:      reg,
		graphOps: opts.Graph,
		execOpts: opts.Executor,
	}
}

// Execute materializes the graph and runs it to a terminal aggregate state.
// Validation errors surface before any instance executes. Execute is
// idempotent: a second call is a no-op returning the first call's result,
// guarding against duplicate trigger deliveries.
func (r *Run) Execute(ctx context.Context) (*Result, error) {
	r.once.Do(func() {
		r.execute(ctx)
	})
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.runErr
}

func (r *Run) execute(ctx context.Context) {
	logger := ctxlog.FromContext(ctx).With("run_id", r.ID, "pipeline", r.Pipeline.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	graph, err := dag.Build(ctx, r.Pipeline, r.Trigger, r.reg, r.graphOps)
	if err != nil {
		r.setResult(nil, &Result{RunID: r.ID, Status: StatusFailed}, fmt.Errorf("materializing run: %w", err))
		return
	}
	logger.Debug("Run graph materialized.", "instance_count", len(graph.Nodes))

	logger.Info("🚀 Starting pipeline run", "instances", len(graph.Nodes))
	exec := executor.New(graph, r.reg, r.ID, r.Trigger, r.execOpts)
	execErr := exec.Run(ctx)
	logger.Info("🏁 Pipeline run finished")

	r.setResult(graph, collect(r.ID, graph), execErr)
}

func (r *Run) setResult(graph *dag.Graph, result *Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graph = graph
	r.result = result
	r.runErr = err
}

// Result returns the run's result, or nil while the run has not finished.
func (r *Run) Result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}
