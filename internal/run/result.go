package run

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/releasegrid/releasegrid/internal/dag"
)

// Status is the terminal aggregate state of a run.
type Status string

const (
	// StatusSucceeded means every instance succeeded or was skipped.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusFailed means at least one instance failed.
	StatusFailed Status = "FAILED"
	// StatusCancelled means the run was aborted; it takes precedence over
	// any partial success or in-flight failure.
	StatusCancelled Status = "CANCELLED"
	// StatusSkipped means every instance was gated off - nothing ran.
	StatusSkipped Status = "SKIPPED"
)

// InstanceResult is the terminal record of one job instance.
type InstanceResult struct {
	ID          string
	Job         string
	State       dag.State
	Reason      dag.Reason
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration returns how long the instance ran, zero if it never started.
func (ir InstanceResult) Duration() time.Duration {
	if ir.StartedAt.IsZero() || ir.CompletedAt.IsZero() {
		return 0
	}
	return ir.CompletedAt.Sub(ir.StartedAt)
}

// Result is the observable surface of a finished run.
type Result struct {
	RunID     string
	Status    Status
	Instances []InstanceResult
}

// collect derives the aggregate result from a terminal graph. Precedence:
// cancelled beats failed beats skipped beats succeeded; skipped instances
// never prevent success.
func collect(runID string, graph *dag.Graph) *Result {
	result := &Result{RunID: runID}

	ids := make([]string, 0, len(graph.Nodes))
	for id := range graph.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var cancelled, failed, ran bool
	for _, id := range ids {
		node := graph.Nodes[id]
		state := node.State()
		switch state {
		case dag.Cancelled:
			cancelled = true
		case dag.Failed:
			failed = true
			ran = true
		case dag.Succeeded:
			ran = true
		}
		result.Instances = append(result.Instances, InstanceResult{
			ID:          node.ID,
			Job:         node.Job.Name,
			State:       state,
			Reason:      node.Reason,
			Err:         node.Err,
			StartedAt:   node.StartedAt,
			CompletedAt: node.CompletedAt,
		})
	}

	switch {
	case cancelled:
		result.Status = StatusCancelled
	case failed:
		result.Status = StatusFailed
	case !ran:
		result.Status = StatusSkipped
	default:
		result.Status = StatusSucceeded
	}
	return result
}

// Lookup returns the instance result with the given ID.
func (r *Result) Lookup(id string) (InstanceResult, bool) {
	for _, ir := range r.Instances {
		if ir.ID == id {
			return ir, true
		}
	}
	return InstanceResult{}, false
}

// Table renders the per-instance status table, the run's externally
// observable state surface for CLIs and notification layers.
func (r *Result) Table() string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "INSTANCE\tSTATE\tREASON\tDURATION\tDETAIL\n")
	for _, ir := range r.Instances {
		detail := ""
		if ir.Err != nil {
			detail = ir.Err.Error()
		}
		duration := ""
		if d := ir.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ir.ID, ir.State, string(ir.Reason), duration, detail)
	}
	w.Flush()
	fmt.Fprintf(&sb, "\nrun %s: %s\n", r.RunID, r.Status)
	return sb.String()
}
