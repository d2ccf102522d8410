package dag

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/releasegrid/releasegrid/internal/matrix"
)

// State is the execution state of a job instance. Transitions are
// Pending -> Ready -> Running -> Succeeded|Failed, with Skipped and
// Cancelled as additional terminal states. A terminal state never changes.
type State int32

const (
	// Pending means the instance is waiting for predecessors.
	Pending State = iota
	// Ready means all wait conditions are met and the instance is queued.
	Ready
	// Running means a worker dispatched the instance.
	Running
	// Succeeded is terminal: the action completed successfully.
	Succeeded
	// Failed is terminal: the action failed, timed out, or an upstream
	// instance failed.
	Failed
	// Skipped is terminal: the instance's condition evaluated to skip, or a
	// skipped predecessor cascaded under the cascade policy.
	Skipped
	// Cancelled is terminal: the run was aborted before or during execution
	// of this instance.
	Cancelled
)

// String returns the state's display name.
func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	case Skipped:
		return "SKIPPED"
	case Cancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("STATE(%d)", int32(s))
	}
}

// Terminal reports whether no further transition can occur from s.
func (s State) Terminal() bool {
	switch s {
	case Succeeded, Failed, Skipped, Cancelled:
		return true
	}
	return false
}

// Reason classifies why an instance reached a non-successful terminal state.
type Reason string

const (
	// ReasonActionError marks a failure returned by the ActionRunner.
	ReasonActionError Reason = "ActionError"
	// ReasonTimeout marks an instance that exceeded its maximum duration.
	ReasonTimeout Reason = "Timeout"
	// ReasonUpstreamFailure marks an instance failed without running because
	// a direct or transitive predecessor failed.
	ReasonUpstreamFailure Reason = "UpstreamFailure"
	// ReasonCancelled marks an instance stopped by run cancellation.
	ReasonCancelled Reason = "Cancelled"
	// ReasonCondition marks an instance skipped by its gating condition.
	ReasonCondition Reason = "Condition"
)

// Node is one concrete job instance in the materialized graph. Identity is
// (job name, matrix point); the canonical ID is "job.<name>" or
// "job.<name>[axis=value,...]" with axes in declaration order.
type Node struct {
	// ID is the canonical instance identity.
	ID string
	// Job is the template this instance was expanded from.
	Job *config.Job
	// Point is the instance's matrix assignment, nil for non-matrix jobs.
	Point matrix.Point

	// Deps holds predecessor nodes keyed by ID.
	Deps map[string]*Node
	// Dependents holds successor nodes keyed by ID.
	Dependents map[string]*Node

	// Err is the instance's failure detail. Written exactly once, by the
	// same goroutine that moves the node to its terminal state.
	Err error
	// Reason classifies the terminal state. Empty for Succeeded.
	Reason Reason
	// StartedAt is set when a worker dispatches the instance.
	StartedAt time.Time
	// CompletedAt is set just before the terminal state is published. The
	// soft barrier measures its delay from this timestamp.
	CompletedAt time.Time

	// state is the node's current execution state, managed atomically.
	state atomic.Int32
	// depCount counts unmet, non-skipped predecessors.
	depCount atomic.Int32
	// terminalOnce guarantees exactly-once terminal accounting even when
	// failure propagation, cancellation, and a worker race for the node.
	terminalOnce sync.Once
}

// NodeID builds the canonical instance identity for a job name and point.
func NodeID(job string, point matrix.Point) string {
	if len(point) == 0 {
		return "job." + job
	}
	return fmt.Sprintf("job.%s[%s]", job, point)
}

// State atomically reads the node's current state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// SetState atomically publishes a new state.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// CasState transitions from one state to another atomically, reporting
// whether the transition happened. Dispatch uses this to stay idempotent:
// only the CAS winner may run the instance.
func (n *Node) CasState(from, to State) bool {
	return n.state.CompareAndSwap(int32(from), int32(to))
}

// DepCount atomically returns the number of unmet dependencies.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// DecrementDepCount atomically decrements the dependency counter and returns
// the new value. The caller observing zero owns the readiness transition.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// FinishOnce runs f if and only if no terminal transition has been recorded
// for this node yet. All terminal writes (state, Err, Reason, CompletedAt)
// must happen inside f, preserving the single-writer invariant.
func (n *Node) FinishOnce(f func()) {
	n.terminalOnce.Do(f)
}

// setInitialCounters seeds depCount with the number of predecessors that
// will actually complete through the scheduler. Skipped predecessors are
// excluded: their vacuous success is accounted for here, at build time.
func (n *Node) setInitialCounters() {
	var count int32
	for _, dep := range n.Deps {
		if dep.State() != Skipped {
			count++
		}
	}
	n.depCount.Store(count)
}
