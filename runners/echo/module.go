// Package echo provides the built-in 'echo' action: it logs the dispatch it
// received and always succeeds. Useful for wiring checks and pipeline dry
// runs before real publishers are registered.
package echo

import (
	"context"
	"fmt"
	"sort"

	"github.com/releasegrid/releasegrid/internal/ctxlog"
	"github.com/releasegrid/releasegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the runner with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("echo", registry.RunnerFunc(onRunEcho))
}

// onRunEcho is the handler for the 'echo' action.
func onRunEcho(ctx context.Context, req registry.Request) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("echo", "instance", req.InstanceID, "action", req.Action)

	if len(req.Env) > 0 {
		// Sort keys for consistent output.
		keys := make([]string, 0, len(req.Env))
		for k := range req.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("      %s = %q\n", k, req.Env[k])
		}
	}
	for _, pair := range req.Matrix {
		fmt.Printf("      matrix.%s = %q\n", pair.Axis, pair.Value)
	}
	return nil
}
