// Package config holds the format-agnostic pipeline model. Loaders (see
// internal/hcl) translate on-disk definitions into this model; everything
// downstream of loading - expansion, gating, graph building, execution -
// operates on these types only and never touches the source syntax.
package config
