// Package condition decides, per job instance, whether the instance runs or
// is skipped. Evaluation happens exactly once, at graph materialization,
// against the trigger context and the instance's matrix point; the scheduler
// never re-evaluates a condition.
package condition

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/releasegrid/releasegrid/internal/matrix"
	"github.com/zclconf/go-cty/cty"
)

// Decision is the outcome of evaluating a job instance's condition.
type Decision int

const (
	// Run means the instance is eligible for scheduling.
	Run Decision = iota
	// Skip means the instance is terminal-skipped before scheduling.
	Skip
)

// Evaluate resolves a job's condition expression for one matrix point. A job
// without a condition always runs. The expression sees two objects:
// `trigger` (repository, event, ref, tag, actor, extra) and `matrix` (the
// instance's axis values). The result must be a boolean.
func Evaluate(job *config.Job, trigger *config.Trigger, point matrix.Point) (Decision, error) {
	if job.Condition == nil {
		return Run, nil
	}

	val, diags := job.Condition.Value(EvalContext(trigger, point))
	if diags.HasErrors() {
		return Skip, fmt.Errorf("evaluating condition for job %q: %w", job.Name, diags)
	}
	if val.IsNull() || val.Type() != cty.Bool {
		return Skip, fmt.Errorf("condition for job %q must be a boolean, got %s",
			job.Name, val.Type().FriendlyName())
	}

	if val.True() {
		return Run, nil
	}
	return Skip, nil
}

// EvalContext builds the HCL evaluation context a condition is resolved in.
func EvalContext(trigger *config.Trigger, point matrix.Point) *hcl.EvalContext {
	if trigger == nil {
		trigger = &config.Trigger{}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"trigger": cty.ObjectVal(map[string]cty.Value{
				"repository": cty.StringVal(trigger.Repository),
				"event":      cty.StringVal(trigger.Event),
				"ref":        cty.StringVal(trigger.Ref),
				"tag":        cty.StringVal(trigger.Tag),
				"actor":      cty.StringVal(trigger.Actor),
				"extra":      stringMapVal(trigger.Extra),
			}),
			"matrix": stringMapVal(point.Values()),
		},
	}
}

func stringMapVal(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	return cty.MapVal(vals)
}
