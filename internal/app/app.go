package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/releasegrid/releasegrid/internal/ctxlog"
	"github.com/releasegrid/releasegrid/internal/registry"
	"github.com/releasegrid/releasegrid/internal/run"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	pipeline *config.Pipeline

	// lastResult exposes the most recent run outcome to the healthcheck
	// endpoint.
	lastResult atomic.Pointer[run.Result]
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry.
// A failure to load the pipeline definition is a fatal startup error and
// panics; entrypoints recover it into an exit message.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	pipeline, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline definition: %w", err))
	}
	logger.Debug("Pipeline definition loaded.", "pipeline", pipeline.Name, "jobs", len(pipeline.Jobs))

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.New(modules...)
	logger.Debug("Action runners registered.", "actions", reg.Actions())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		pipeline: pipeline,
	}
}

// Registry returns the application's runner registry. Primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Pipeline returns the loaded pipeline model. Primarily for testing.
func (a *App) Pipeline() *config.Pipeline {
	return a.pipeline
}

// LastResult returns the most recent run result, or nil before the first run
// completes.
func (a *App) LastResult() *run.Result {
	return a.lastResult.Load()
}
