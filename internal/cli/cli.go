package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/releasegrid/releasegrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("releasegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
releasegrid - a declarative release-pipeline orchestrator.

Usage:
  releasegrid [options] [PIPELINE_PATH]

Arguments:
  PIPELINE_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	pipelineFlag := flagSet.String("pipeline", "", "Path to the pipeline file or directory.")
	pFlag := flagSet.String("p", "", "Path to the pipeline file or directory (shorthand).")
	configFlag := flagSet.String("config", "", "Path to an optional YAML configuration file.")
	eventFlag := flagSet.String("event", "", "Path to a YAML trigger-event file.")
	repositoryFlag := flagSet.String("repository", "", "Trigger repository in 'owner/name' form.")
	eventNameFlag := flagSet.String("event-name", "", "Trigger event name (e.g. 'release').")
	refFlag := flagSet.String("ref", "", "Trigger git ref.")
	tagFlag := flagSet.String("tag", "", "Trigger release tag.")
	actorFlag := flagSet.String("actor", "", "Trigger actor identity.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent workers for the executor.")
	failFastFlag := flagSet.Bool("fail-fast", false, "Cancel the whole run on the first instance failure.")
	skipPolicyFlag := flagSet.String("skip-policy", "", "How skipped instances affect dependents. Options: 'unblock' or 'cascade'.")
	allowEmptyFlag := flagSet.Bool("allow-empty-axes", false, "Expand empty matrix axes to zero instances instead of rejecting them.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg, err := app.LoadConfig(*configFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	// Flags are the highest precedence layer; only explicitly set flags
	// override the file/env configuration.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pipeline":
			cfg.PipelinePath = *pipelineFlag
		case "p":
			cfg.PipelinePath = *pFlag
		case "event":
			cfg.EventPath = *eventFlag
		case "repository":
			cfg.Repository = *repositoryFlag
		case "event-name":
			cfg.Event = *eventNameFlag
		case "ref":
			cfg.Ref = *refFlag
		case "tag":
			cfg.Tag = *tagFlag
		case "actor":
			cfg.Actor = *actorFlag
		case "healthcheck-port":
			cfg.HealthcheckPort = *healthPortFlag
		case "log-format":
			cfg.LogFormat = strings.ToLower(*logFormatFlag)
		case "log-level":
			cfg.LogLevel = strings.ToLower(*logLevelFlag)
		case "workers":
			cfg.Workers = *workersFlag
		case "fail-fast":
			cfg.FailFast = *failFastFlag
		case "skip-policy":
			cfg.SkipPolicy = strings.ToLower(*skipPolicyFlag)
		case "allow-empty-axes":
			cfg.AllowEmptyAxes = *allowEmptyFlag
		}
	})

	if cfg.PipelinePath == "" && flagSet.NArg() > 0 {
		cfg.PipelinePath = flagSet.Arg(0)
	}

	if cfg.PipelinePath == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	appConfig, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return appConfig, false, nil
}
