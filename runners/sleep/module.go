// Package sleep provides the built-in 'sleep' action: it holds for the
// duration in the job's SLEEP_DURATION env entry (default 1s), honoring
// cancellation. Useful for exercising barriers and timeouts in demos.
package sleep

import (
	"context"
	"fmt"
	"time"

	"github.com/releasegrid/releasegrid/internal/ctxlog"
	"github.com/releasegrid/releasegrid/internal/registry"
)

// DefaultDuration is used when the job declares no SLEEP_DURATION.
const DefaultDuration = time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the runner with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("sleep", registry.RunnerFunc(onRunSleep))
}

// onRunSleep is the handler for the 'sleep' action.
func onRunSleep(ctx context.Context, req registry.Request) error {
	duration := DefaultDuration
	if raw, ok := req.Env["SLEEP_DURATION"]; ok {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid SLEEP_DURATION %q: %w", raw, err)
		}
		duration = parsed
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("sleep", "instance", req.InstanceID, "duration", duration.String())

	select {
	case <-time.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
