package hcl

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// translateJob converts a decoded job block into the agnostic model,
// parsing duration strings and recovering matrix axis order.
func translateJob(jb *jobBlock) (*config.Job, error) {
	job := &config.Job{
		Name:      jb.Name,
		Action:    jb.Action,
		Env:       jb.Env,
		DependsOn: jb.DependsOn,
		Condition: normalizeExpression(jb.Condition),
	}

	var err error
	if job.Timeout, err = parseDuration(jb.Timeout); err != nil {
		return nil, fmt.Errorf("job %q: invalid timeout: %w", jb.Name, err)
	}
	if job.WaitFor, err = parseDuration(jb.WaitFor); err != nil {
		return nil, fmt.Errorf("job %q: invalid wait_for: %w", jb.Name, err)
	}

	if jb.Matrix != nil {
		if job.Matrix, err = translateMatrix(jb.Matrix.Body); err != nil {
			return nil, fmt.Errorf("job %q: %w", jb.Name, err)
		}
	}
	return job, nil
}

// translateMatrix reads each attribute of a matrix block as one axis. The map
// returned by JustAttributes is unordered, so axes are sorted back into
// declaration order by their source position.
func translateMatrix(body hcl.Body) ([]config.Axis, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("decoding matrix block: %w", diags)
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	axes := make([]config.Axis, 0, len(ordered))
	for _, attr := range ordered {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating matrix axis %q: %w", attr.Name, diags)
		}
		if !val.CanIterateElements() {
			return nil, fmt.Errorf("matrix axis %q must be a list of strings", attr.Name)
		}

		axis := config.Axis{Name: attr.Name}
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if elem.Type() != cty.String || elem.IsNull() {
				return nil, fmt.Errorf("matrix axis %q must contain only strings", attr.Name)
			}
			axis.Values = append(axis.Values, elem.AsString())
		}
		axes = append(axes, axis)
	}
	return axes, nil
}

// normalizeExpression maps gohcl's placeholder for an absent optional
// expression to nil so downstream code can test for presence directly.
func normalizeExpression(expr hcl.Expression) hcl.Expression {
	if expr == nil {
		return nil
	}
	if v, diags := expr.Value(nil); !diags.HasErrors() && v.IsNull() {
		return nil
	}
	return expr
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative, got %s", d)
	}
	return d, nil
}
