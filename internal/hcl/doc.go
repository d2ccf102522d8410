// Package hcl implements the HCL loading layer: it discovers .hcl pipeline
// files, decodes pipeline and job blocks, and translates them into the
// format-agnostic model in internal/config. Condition expressions are kept
// unevaluated; they are resolved against the trigger context at graph
// materialization, not at load time.
package hcl
