package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/releasegrid/releasegrid/internal/ctxlog"
	"github.com/releasegrid/releasegrid/internal/dag"
	"github.com/releasegrid/releasegrid/internal/registry"
)

// DefaultWorkers is the worker pool size when Options.Workers is zero.
const DefaultWorkers = 10

// Options tunes one executor instance.
type Options struct {
	// Workers bounds how many instances run concurrently.
	Workers int
	// Clock is the time source for barriers and timestamps. Defaults to the
	// system clock.
	Clock Clock
	// FailFast cancels the whole run on the first instance failure instead
	// of letting independent branches finish.
	FailFast bool
}

// Executor runs one graph to completion. It is single-use: construct, Run
// once, then read the graph's terminal states.
type Executor struct {
	graph    *dag.Graph
	reg      *registry.Registry
	runID    string
	trigger  *config.Trigger
	workers  int
	clock    Clock
	failFast bool

	wg        sync.WaitGroup
	readyChan chan *dag.Node
	cancelRun context.CancelFunc
}

// New creates an executor for the given graph.
func New(graph *dag.Graph, reg *registry.Registry, runID string, trigger *config.Trigger, opts Options) *Executor {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Executor{
		graph:    graph,
		reg:      reg,
		runID:    runID,
		trigger:  trigger,
		workers:  workers,
		clock:    clock,
		failFast: opts.FailFast,
	}
}

// Run executes the entire graph concurrently and blocks until every instance
// is terminal. The returned error summarizes the run: nil when nothing
// failed, a cancellation error when the context was cancelled, otherwise the
// first root-cause failure with the failing instance IDs.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.cancelRun = cancel

	e.readyChan = make(chan *dag.Node, len(e.graph.Nodes))
	e.wg.Add(len(e.graph.Nodes))

	// Instances gated off at materialization are already terminal; consume
	// their accounting slot so the run can complete without them.
	skipped := 0
	for _, node := range e.graph.Nodes {
		if node.State() == dag.Skipped {
			node.FinishOnce(func() { e.wg.Done() })
			skipped++
		}
	}

	roots := 0
	for _, node := range e.graph.Nodes {
		if node.State() == dag.Pending && node.DepCount() == 0 {
			logger.Debug("Found root instance.", "instance", node.ID)
			e.enqueue(runCtx, node)
			roots++
		}
	}
	logger.Debug("Executor initialized.", "roots", roots, "skipped", skipped, "workers", e.workers)

	for i := 0; i < e.workers; i++ {
		go e.worker(runCtx, i)
	}

	logger.Info("Waiting for all instances to complete...")
	e.wg.Wait()
	close(e.readyChan)
	logger.Info("All instances completed.")

	return e.summarize(ctx)
}

// enqueue moves a pending instance toward dispatch, arming its soft barrier
// first when one is declared.
func (e *Executor) enqueue(ctx context.Context, node *dag.Node) {
	if node.Job.WaitFor > 0 {
		go e.waitBarrier(ctx, node)
		return
	}
	e.dispatch(node)
}

// dispatch queues an instance for a worker. Only the Pending->Ready CAS
// winner enqueues, so duplicate dispatches of the same instance (or of an
// already-terminal one) are no-ops.
func (e *Executor) dispatch(node *dag.Node) {
	if node.CasState(dag.Pending, dag.Ready) {
		e.readyChan <- node
	}
}

// summarize walks the terminal graph and derives the run-level error.
func (e *Executor) summarize(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var cancelled bool
	var failedIDs []string
	var rootCause error

	ids := make([]string, 0, len(e.graph.Nodes))
	for id := range e.graph.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := e.graph.Nodes[id]
		switch node.State() {
		case dag.Cancelled:
			cancelled = true
		case dag.Failed:
			logger.Error("Instance failed.", "instance", node.ID, "reason", string(node.Reason), "error", node.Err)
			// Upstream failures are symptoms; only direct failures are
			// candidate root causes.
			if node.Reason != dag.ReasonUpstreamFailure {
				failedIDs = append(failedIDs, node.ID)
				if rootCause == nil {
					rootCause = node.Err
				}
			}
		}
	}

	// A direct failure outranks cancellation: under fail-fast the run cancels
	// itself, and the failing instance is the answer worth surfacing.
	if rootCause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedIDs, ", "), rootCause)
	}
	if cancelled {
		return fmt.Errorf("run cancelled: %w", context.Canceled)
	}
	return nil
}
