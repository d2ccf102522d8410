// Package executor walks a materialized dependency graph concurrently.
//
// A fixed pool of workers drains a buffered ready channel seeded with the
// graph's root instances. Completing an instance decrements its dependents'
// wait counters; the decrement that reaches zero owns the readiness
// transition, either enqueueing the dependent directly or arming its soft
// barrier first. Failure marks every transitive dependent failed without
// dispatching it; cancelling the run context stops running instances and
// moves everything not yet terminal to cancelled. Each instance's terminal
// state is written exactly once, guarded by the node's terminal once.
package executor
