// Package matrix expands a job template across its parameter axes. Expansion
// is a pure function over the config model: no side effects, deterministic
// output order, so the same pipeline always materializes the same instances.
package matrix

import (
	"fmt"

	"github.com/releasegrid/releasegrid/internal/config"
)

// ErrEmptyAxis reports a matrix axis with no values.
type ErrEmptyAxis struct {
	Job  string
	Axis string
}

func (e *ErrEmptyAxis) Error() string {
	return fmt.Sprintf("job %q: matrix axis %q has no values", e.Job, e.Axis)
}

// Options controls expansion behavior.
type Options struct {
	// AllowEmptyAxes makes an empty axis expand the job to zero instances
	// instead of being rejected. Off by default: an empty release matrix
	// almost always means a configuration mistake, and silently producing
	// nothing would let a broken pipeline "succeed".
	AllowEmptyAxes bool
}

// Point is one concrete assignment of values to a job's matrix axes, in axis
// declaration order.
type Point []Pair

// Pair is a single axis=value binding.
type Pair struct {
	Axis  string
	Value string
}

// Values returns the point as a plain map for consumers that do not care
// about order (eval contexts, runner requests).
func (p Point) Values() map[string]string {
	if len(p) == 0 {
		return nil
	}
	m := make(map[string]string, len(p))
	for _, pair := range p {
		m[pair.Axis] = pair.Value
	}
	return m
}

// String renders the point in its canonical identity form, e.g.
// "db=mysql,version=3.11". An empty point renders as "".
func (p Point) String() string {
	out := ""
	for i, pair := range p {
		if i > 0 {
			out += ","
		}
		out += pair.Axis + "=" + pair.Value
	}
	return out
}

// Expand returns one Point per element of the Cartesian product of the job's
// axes, preserving axis declaration order within each point and iterating the
// last axis fastest. A job with no axes yields exactly one empty point.
func Expand(job *config.Job, opts Options) ([]Point, error) {
	for _, axis := range job.Matrix {
		if len(axis.Values) == 0 {
			if opts.AllowEmptyAxes {
				return nil, nil
			}
			return nil, &ErrEmptyAxis{Job: job.Name, Axis: axis.Name}
		}
	}

	points := []Point{nil}
	for _, axis := range job.Matrix {
		next := make([]Point, 0, len(points)*len(axis.Values))
		for _, base := range points {
			for _, value := range axis.Values {
				point := make(Point, len(base), len(base)+1)
				copy(point, base)
				point = append(point, Pair{Axis: axis.Name, Value: value})
				next = append(next, point)
			}
		}
		points = next
	}
	return points, nil
}
