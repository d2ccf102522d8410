package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variables before mapping them onto
// config keys, e.g. RELEASEGRID_LOG_LEVEL -> log_level.
const envPrefix = "RELEASEGRID_"

// Config holds everything an App instance needs to run one pipeline.
type Config struct {
	// PipelinePath is a .hcl file or a directory of .hcl files.
	PipelinePath string `koanf:"pipeline_path"`
	// EventPath is an optional YAML trigger-event file.
	EventPath string `koanf:"event_path"`

	// Trigger context fields; they override the event file when set.
	Repository string `koanf:"repository"`
	Event      string `koanf:"event"`
	Ref        string `koanf:"ref"`
	Tag        string `koanf:"tag"`
	Actor      string `koanf:"actor"`

	LogFormat       string `koanf:"log_format"`
	LogLevel        string `koanf:"log_level"`
	HealthcheckPort int    `koanf:"healthcheck_port"`
	Workers         int    `koanf:"workers"`
	FailFast        bool   `koanf:"fail_fast"`
	// SkipPolicy is "unblock" or "cascade", see internal/dag.
	SkipPolicy string `koanf:"skip_policy"`
	// AllowEmptyAxes expands empty matrix axes to zero instances instead of
	// rejecting them.
	AllowEmptyAxes bool `koanf:"allow_empty_axes"`
}

// DefaultConfig returns the built-in defaults, the lowest precedence layer.
func DefaultConfig() Config {
	return Config{
		LogFormat:  "json",
		LogLevel:   "info",
		Workers:    10,
		SkipPolicy: "unblock",
	}
}

// LoadConfig layers configuration: defaults, then an optional YAML file,
// then RELEASEGRID_* environment variables. Flags are applied on top by the
// CLI layer.
func LoadConfig(configPath string) (Config, error) {
	cfg := DefaultConfig()
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	// RELEASEGRID_LOG_LEVEL -> log_level, RELEASEGRID_WORKERS -> workers.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return cfg, fmt.Errorf("loading environment overrides: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshalling configuration: %w", err)
	}
	return cfg, nil
}

// NewConfig validates a fully layered configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log_format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log_level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	switch cfg.SkipPolicy {
	case "unblock", "cascade":
	default:
		return nil, fmt.Errorf("invalid skip_policy %q: must be 'unblock' or 'cascade'", cfg.SkipPolicy)
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return &cfg, nil
}
