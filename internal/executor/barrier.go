package executor

import (
	"context"
	"time"

	"github.com/releasegrid/releasegrid/internal/ctxlog"
	"github.com/releasegrid/releasegrid/internal/dag"
)

// waitBarrier holds an instance whose predecessors have completed until its
// soft-barrier delay has also elapsed, then dispatches it.
//
// The barrier is a deliberately weak synchronization primitive: it models an
// eventually-consistent external system (a package index propagating a new
// version) that offers no readiness query. The delay is measured from the
// latest predecessor completion timestamp on the executor's clock. It only
// approximates readiness - the external system may still be stale when the
// delay expires - and nothing here pretends otherwise.
func (e *Executor) waitBarrier(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx).With("instance", node.ID)

	base := e.barrierBase(node)
	remaining := node.Job.WaitFor - e.clock.Now().Sub(base)
	if remaining <= 0 {
		e.dispatch(node)
		return
	}

	logger.Info("⏸️ Holding at soft barrier", "delay", node.Job.WaitFor.String(), "remaining", remaining.String())
	select {
	case <-e.clock.After(remaining):
		logger.Debug("Soft barrier elapsed, dispatching instance.")
		e.dispatch(node)
	case <-ctx.Done():
		e.cancelNode(ctx, node, ctx.Err())
	}
}

// barrierBase returns the timestamp the barrier delay is measured from: the
// latest predecessor completion, or the current time for an instance with no
// completed predecessors (a barrier at the root delays from run start).
func (e *Executor) barrierBase(node *dag.Node) time.Time {
	var base time.Time
	for _, dep := range node.Deps {
		if dep.State() == dag.Succeeded && dep.CompletedAt.After(base) {
			base = dep.CompletedAt
		}
	}
	if base.IsZero() {
		return e.clock.Now()
	}
	return base
}
