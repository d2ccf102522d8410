package app

import (
	"context"
	"fmt"

	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/releasegrid/releasegrid/internal/ctxlog"
	"github.com/releasegrid/releasegrid/internal/dag"
	"github.com/releasegrid/releasegrid/internal/executor"
	"github.com/releasegrid/releasegrid/internal/matrix"
	"github.com/releasegrid/releasegrid/internal/run"
)

// Run executes one pipeline run for the configured trigger and prints the
// per-instance status table. The returned error reflects the run outcome:
// nil only when the run succeeded (skips included).
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	trigger, err := a.buildTrigger()
	if err != nil {
		return err
	}
	a.logger.Debug("Trigger context assembled.", "repository", trigger.Repository, "event", trigger.Event, "ref", trigger.Ref)

	skipPolicy := dag.SkipUnblock
	if a.config.SkipPolicy == "cascade" {
		skipPolicy = dag.SkipCascade
	}

	pipelineRun := run.New(a.pipeline, trigger, a.registry, run.Options{
		Graph: dag.Options{
			Matrix:     matrix.Options{AllowEmptyAxes: a.config.AllowEmptyAxes},
			SkipPolicy: skipPolicy,
		},
		Executor: executor.Options{
			Workers:  a.config.Workers,
			FailFast: a.config.FailFast,
		},
	})

	result, runErr := pipelineRun.Execute(ctx)
	if result != nil {
		a.lastResult.Store(result)
		fmt.Fprintln(a.outW, result.Table())
	}
	if runErr != nil {
		return fmt.Errorf("pipeline run failed: %w", runErr)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// buildTrigger assembles the trigger context from the optional event file,
// with explicitly configured fields taking precedence.
func (a *App) buildTrigger() (*config.Trigger, error) {
	trigger := &config.Trigger{}
	if a.config.EventPath != "" {
		loaded, err := config.LoadTrigger(a.config.EventPath)
		if err != nil {
			return nil, err
		}
		trigger = loaded
	}
	if a.config.Repository != "" {
		trigger.Repository = a.config.Repository
	}
	if a.config.Event != "" {
		trigger.Event = a.config.Event
	}
	if a.config.Ref != "" {
		trigger.Ref = a.config.Ref
	}
	if a.config.Tag != "" {
		trigger.Tag = a.config.Tag
	}
	if a.config.Actor != "" {
		trigger.Actor = a.config.Actor
	}
	return trigger, nil
}
