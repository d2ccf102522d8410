package executor

import (
	"context"
	"errors"

	"github.com/releasegrid/releasegrid/internal/ctxlog"
	"github.com/releasegrid/releasegrid/internal/dag"
	"github.com/releasegrid/releasegrid/internal/registry"
)

// runInstance dispatches one instance to its ActionRunner, applying the
// instance's timeout when one is declared.
func (e *Executor) runInstance(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("instance", node.ID, "action", node.Job.Action)
	logger.Info("▶️ Starting instance")

	runner, ok := e.reg.Lookup(node.Job.Action)
	if !ok {
		// Unreachable after registry validation at build, kept as a guard
		// for executors constructed around it.
		return errors.New("action not registered: " + node.Job.Action)
	}

	actionCtx := ctx
	if node.Job.Timeout > 0 {
		var cancel context.CancelFunc
		actionCtx, cancel = context.WithTimeout(ctx, node.Job.Timeout)
		defer cancel()
	}

	err := runner.Run(actionCtx, registry.Request{
		RunID:      e.runID,
		InstanceID: node.ID,
		Job:        node.Job.Name,
		Action:     node.Job.Action,
		Env:        node.Job.Env,
		Matrix:     node.Point,
		Trigger:    e.trigger,
	})
	if err != nil {
		return err
	}

	logger.Info("✅ Finished instance")
	return nil
}

// classify maps a runner error to a failure reason. Run-level cancellation
// takes precedence over anything the action reported in flight, but only the
// run context being done counts as cancellation: an action error that merely
// wraps context.Canceled (an aborted internal sub-operation) is the action's
// own failure. An exceeded instance deadline is a Timeout, distinct from an
// ordinary ActionError.
func (e *Executor) classify(ctx context.Context, node *dag.Node, err error) dag.Reason {
	if ctx.Err() != nil {
		return dag.ReasonCancelled
	}
	if node.Job.Timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		return dag.ReasonTimeout
	}
	return dag.ReasonActionError
}
