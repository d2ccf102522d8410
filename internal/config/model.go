package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
)

// Pipeline is the unified representation of one release pipeline: a set of
// job templates plus descriptive metadata.
type Pipeline struct {
	Name        string
	Description string
	Jobs        []*Job
}

// Job is a job template as declared by the user. A template expands into one
// or more concrete instances at graph materialization (see internal/matrix).
type Job struct {
	// Name is the unique job identifier within the pipeline.
	Name string
	// Action is the opaque external reference dispatched to an ActionRunner.
	Action string
	// Env is the environment the action runs under.
	Env map[string]string
	// DependsOn lists job names that must complete before any instance of
	// this job becomes ready.
	DependsOn []string
	// Matrix holds the parameter axes this job fans out across, in
	// declaration order. Empty means a single instance.
	Matrix []Axis
	// Condition is an optional gating expression over trigger and matrix
	// values. It stays unevaluated until materialization.
	Condition hcl.Expression
	// Timeout bounds a single instance's execution. Zero means unbounded.
	Timeout time.Duration
	// WaitFor is the soft-barrier delay between predecessor completion and
	// this job's readiness. Zero means no barrier.
	WaitFor time.Duration
}

// Axis is one named matrix dimension with its ordered values.
type Axis struct {
	Name   string
	Values []string
}

// Lookup returns the job template with the given name, or nil.
func (p *Pipeline) Lookup(name string) *Job {
	for _, j := range p.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}
