package dag

import (
	"context"
	"fmt"

	"github.com/releasegrid/releasegrid/internal/condition"
	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/releasegrid/releasegrid/internal/ctxlog"
	"github.com/releasegrid/releasegrid/internal/matrix"
	"github.com/releasegrid/releasegrid/internal/registry"
)

// SkipPolicy selects how a skipped instance affects its dependents.
type SkipPolicy int

const (
	// SkipUnblock treats a skipped predecessor as vacuously satisfied:
	// dependents whose remaining predecessors succeed are eligible to run.
	SkipUnblock SkipPolicy = iota
	// SkipCascade propagates skip transitively: any instance with a skipped
	// predecessor is itself skipped at materialization.
	SkipCascade
)

// Options controls graph materialization.
type Options struct {
	// Matrix configures template expansion.
	Matrix matrix.Options
	// SkipPolicy resolves what skipped instances mean for their dependents.
	SkipPolicy SkipPolicy
}

// Graph is the materialized dependency graph of one pipeline run. Nodes and
// edges are immutable after Build; only per-node execution state mutates.
type Graph struct {
	// Nodes holds every job instance keyed by canonical ID.
	Nodes map[string]*Node
	// ByJob indexes instances by their template name, preserving matrix
	// expansion order.
	ByJob map[string][]*Node
}

// Build constructs a complete, validated instance graph from a pipeline,
// resolving matrix expansion and condition gating against the trigger. Any
// returned error is a *ValidationError and precedes all execution.
func Build(ctx context.Context, pipeline *config.Pipeline, trigger *config.Trigger, reg *registry.Registry, opts Options) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph materialization.", "pipeline", pipeline.Name)

	if err := reg.Validate(pipeline); err != nil {
		return nil, &ValidationError{Err: err}
	}

	graph := &Graph{
		Nodes: make(map[string]*Node),
		ByJob: make(map[string][]*Node),
	}

	// First pass: expand templates and resolve conditions into nodes.
	if err := createNodes(ctx, pipeline, trigger, graph, opts); err != nil {
		return nil, err
	}
	logger.Debug("Build: node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: link explicit depends_on edges.
	if err := linkNodes(ctx, pipeline, graph); err != nil {
		return nil, err
	}
	logger.Debug("Build: node linking complete.")

	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: cycle detection passed.")

	if opts.SkipPolicy == SkipCascade {
		cascadeSkips(ctx, graph)
	}

	// Final pass: seed readiness counters now that all skips are known.
	for _, node := range graph.Nodes {
		node.setInitialCounters()
	}

	logger.Debug("Build: graph materialization successful.")
	return graph, nil
}

// createNodes performs the first pass: one node per matrix point per job,
// with the gating condition already resolved.
func createNodes(ctx context.Context, pipeline *config.Pipeline, trigger *config.Trigger, graph *Graph, opts Options) error {
	logger := ctxlog.FromContext(ctx)

	for _, job := range pipeline.Jobs {
		points, err := matrix.Expand(job, opts.Matrix)
		if err != nil {
			return &ValidationError{Err: err}
		}

		for _, point := range points {
			decision, err := condition.Evaluate(job, trigger, point)
			if err != nil {
				return &ValidationError{Err: err}
			}

			node := &Node{
				ID:         NodeID(job.Name, point),
				Job:        job,
				Point:      point,
				Deps:       make(map[string]*Node),
				Dependents: make(map[string]*Node),
			}
			if decision == condition.Skip {
				logger.Debug("Instance gated off by condition.", "instance", node.ID)
				node.SetState(Skipped)
				node.Reason = ReasonCondition
			}

			if _, exists := graph.Nodes[node.ID]; exists {
				return validationErrorf("duplicate instance identity %q", node.ID)
			}
			graph.Nodes[node.ID] = node
			graph.ByJob[job.Name] = append(graph.ByJob[job.Name], node)
		}
	}
	return nil
}

// linkNodes performs the second pass: every instance of a dependent job
// waits on every instance of each named predecessor (fan-in).
func linkNodes(ctx context.Context, pipeline *config.Pipeline, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)

	for _, job := range pipeline.Jobs {
		for _, depName := range job.DependsOn {
			if depName == job.Name {
				return validationErrorf("job %q depends on itself", job.Name)
			}
			depNodes, ok := graph.ByJob[depName]
			if !ok {
				if pipeline.Lookup(depName) != nil {
					// The template exists but expanded to zero instances
					// (empty axis under AllowEmptyAxes): nothing to wait on.
					continue
				}
				return validationErrorf("job %q depends on non-existent job %q", job.Name, depName)
			}

			for _, node := range graph.ByJob[job.Name] {
				for _, depNode := range depNodes {
					if _, exists := node.Deps[depNode.ID]; exists {
						continue
					}
					logger.Debug("Linking dependency.", "from", node.ID, "to", depNode.ID)
					node.Deps[depNode.ID] = depNode
					depNode.Dependents[node.ID] = node
				}
			}
		}
	}
	return nil
}

// detectCycles checks for circular dependencies in the graph using DFS.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return validationErrorf("cycle detected involving %q", dep.ID)
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, node := range g.Nodes {
		if !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}

// cascadeSkips propagates skip transitively: any instance with a skipped
// predecessor becomes skipped. Iterates to a fixpoint; the graph is acyclic
// so this terminates.
func cascadeSkips(ctx context.Context, graph *Graph) {
	logger := ctxlog.FromContext(ctx)
	for changed := true; changed; {
		changed = false
		for _, node := range graph.Nodes {
			if node.State() == Skipped {
				continue
			}
			for _, dep := range node.Deps {
				if dep.State() == Skipped {
					logger.Debug("Cascading skip to dependent.", "instance", node.ID, "skipped_dependency", dep.ID)
					node.SetState(Skipped)
					node.Reason = ReasonCondition
					node.Err = fmt.Errorf("skipped because dependency %q was skipped", dep.ID)
					changed = true
					break
				}
			}
		}
	}
}
