// Package dag materializes a pipeline into its concrete dependency graph:
// job templates are expanded across their matrix axes, conditions are
// resolved against the trigger context, explicit depends_on edges are linked
// with fan-in across every instance of the named job, and the result is
// validated (no cycles, no dangling references, every action registered)
// before a single instance runs.
//
// The graph owns the mutable execution state of each instance. The executor
// in internal/executor walks it; this package never runs anything.
package dag
