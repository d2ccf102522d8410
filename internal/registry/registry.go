// Package registry maps opaque action references to the ActionRunner
// implementations that execute them. The orchestrator core never inspects
// what a runner does; it only observes the terminal result of Run.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/releasegrid/releasegrid/internal/matrix"
)

// Request carries everything an ActionRunner may need to execute one job
// instance. Runners must treat it as read-only.
type Request struct {
	// RunID identifies the pipeline run this dispatch belongs to.
	RunID string
	// InstanceID is the canonical job instance identity.
	InstanceID string
	// Job is the job template name.
	Job string
	// Action is the opaque reference from the job definition.
	Action string
	// Env is the job's declared environment.
	Env map[string]string
	// Matrix is the instance's axis assignment, nil for non-matrix jobs.
	Matrix matrix.Point
	// Trigger is the context of the event that started the run.
	Trigger *config.Trigger
}

// ActionRunner executes one action to a terminal result. A nil return means
// SUCCESS; any error means FAILURE with the error as detail. Runners must
// honor ctx cancellation and deadlines.
type ActionRunner interface {
	Run(ctx context.Context, req Request) error
}

// RunnerFunc adapts a plain function to the ActionRunner interface.
type RunnerFunc func(ctx context.Context, req Request) error

// Run implements ActionRunner.
func (f RunnerFunc) Run(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Module is the interface runner packages implement to self-register.
type Module interface {
	Register(r *Registry)
}

// Registry holds the named ActionRunners for one application instance. It is
// populated before graph build and read-only afterwards, so lookups during
// execution need no locking.
type Registry struct {
	runners map[string]ActionRunner
}

// New creates an empty Registry and registers the given modules.
func New(modules ...Module) *Registry {
	r := &Registry{runners: make(map[string]ActionRunner)}
	for _, mod := range modules {
		mod.Register(r)
	}
	return r
}

// RegisterRunner binds an action reference to a runner. Re-registering an
// action replaces the previous binding; last writer wins.
func (r *Registry) RegisterRunner(action string, runner ActionRunner) {
	r.runners[action] = runner
}

// Lookup returns the runner bound to the given action reference.
func (r *Registry) Lookup(action string) (ActionRunner, bool) {
	runner, ok := r.runners[action]
	return runner, ok
}

// Actions returns the sorted list of registered action references.
func (r *Registry) Actions() []string {
	actions := make([]string, 0, len(r.runners))
	for action := range r.runners {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}

// Validate checks that every action referenced by the pipeline is registered.
// Running this before scheduling keeps unknown-action failures out of the
// executor entirely.
func (r *Registry) Validate(pipeline *config.Pipeline) error {
	for _, job := range pipeline.Jobs {
		if _, ok := r.runners[job.Action]; !ok {
			return fmt.Errorf("job %q references unregistered action %q (registered: %v)",
				job.Name, job.Action, r.Actions())
		}
	}
	return nil
}
