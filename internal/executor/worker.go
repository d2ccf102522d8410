package executor

import (
	"context"
	"fmt"

	"github.com/releasegrid/releasegrid/internal/ctxlog"
	"github.com/releasegrid/releasegrid/internal/dag"
)

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "worker", workerID)

	for node := range e.readyChan {
		workerLogger := logger.With("worker", workerID, "instance", node.ID)

		if ctx.Err() != nil {
			e.cancelNode(ctx, node, ctx.Err())
			continue
		}

		// Only the CAS winner may execute; a duplicate dispatch or a node
		// already driven terminal by propagation falls through untouched.
		if !node.CasState(dag.Ready, dag.Running) {
			continue
		}

		workerLogger.Debug("Worker picked up instance.")
		node.StartedAt = e.clock.Now()
		err := e.runInstance(ctx, node)

		if err != nil {
			reason := e.classify(ctx, node, err)
			if reason == dag.ReasonCancelled {
				e.cancelNode(ctx, node, err)
				continue
			}

			workerLogger.Error("Instance execution failed.", "reason", string(reason), "error", err)
			node.FinishOnce(func() {
				node.CompletedAt = e.clock.Now()
				node.Err = err
				node.Reason = reason
				node.SetState(dag.Failed)
				e.failDependents(ctx, node)
				e.wg.Done()
			})
			if e.failFast {
				e.cancelRun()
			}
			continue
		}

		workerLogger.Debug("Instance execution succeeded.")
		node.FinishOnce(func() {
			node.CompletedAt = e.clock.Now()
			node.SetState(dag.Succeeded)
			e.wg.Done()
		})

		for _, dependent := range node.Dependents {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent instance.", "dependent", dependent.ID)
				e.enqueue(ctx, dependent)
			}
		}
	}
	logger.Debug("Worker finished.", "worker", workerID)
}

// failDependents marks all downstream instances as failed without running
// them. Instances that already reached a terminal state (skipped by their
// condition, or failed via another path) are left untouched, and the cascade
// does not continue past them.
func (e *Executor) failDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dependent.FinishOnce(func() {
			logger.Warn("Failing dependent instance due to upstream failure.", "instance", dependent.ID, "dependency", node.ID)
			dependent.CompletedAt = e.clock.Now()
			dependent.Err = fmt.Errorf("upstream instance %q failed", node.ID)
			dependent.Reason = dag.ReasonUpstreamFailure
			dependent.SetState(dag.Failed)
			e.failDependents(ctx, dependent)
			e.wg.Done()
		})
	}
}

// cancelNode records run cancellation for an instance and cascades to its
// dependents, which will never become ready once the run is aborted.
func (e *Executor) cancelNode(ctx context.Context, node *dag.Node, cause error) {
	logger := ctxlog.FromContext(ctx)
	node.FinishOnce(func() {
		logger.Warn("Instance cancelled.", "instance", node.ID)
		node.CompletedAt = e.clock.Now()
		node.Err = cause
		node.Reason = dag.ReasonCancelled
		node.SetState(dag.Cancelled)
		e.cancelDependents(ctx, node, cause)
		e.wg.Done()
	})
}

func (e *Executor) cancelDependents(ctx context.Context, node *dag.Node, cause error) {
	for _, dependent := range node.Dependents {
		e.cancelNode(ctx, dependent, cause)
	}
}
