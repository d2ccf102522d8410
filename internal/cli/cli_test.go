package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PositionalPipelinePath(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{"pipelines/release"}, &out)

	require.NoError(t, err)
	assert.False(t, shouldExit)
	require.NotNil(t, cfg)
	assert.Equal(t, "pipelines/release", cfg.PipelinePath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10, cfg.Workers)
}

func TestParse_FlagsOverrideDefaults(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{
		"-p", "release.hcl",
		"-repository", "zenml-io/zenml",
		"-event-name", "release",
		"-tag", "v0.58.0",
		"-log-level", "DEBUG",
		"-log-format", "text",
		"-workers", "3",
		"-fail-fast",
		"-skip-policy", "cascade",
	}, &out)

	require.NoError(t, err)
	assert.False(t, shouldExit)
	assert.Equal(t, "release.hcl", cfg.PipelinePath)
	assert.Equal(t, "zenml-io/zenml", cfg.Repository)
	assert.Equal(t, "release", cfg.Event)
	assert.Equal(t, "v0.58.0", cfg.Tag)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, "cascade", cfg.SkipPolicy)
}

func TestParse_FlagsOverrideConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
pipeline_path: from-file.hcl
workers: 2
`), 0644))

	var out bytes.Buffer
	cfg, _, err := Parse([]string{"-config", configPath, "-workers", "8"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "from-file.hcl", cfg.PipelinePath)
	assert.Equal(t, 8, cfg.Workers, "explicit flag must beat the file layer")
}

func TestParse_HelpExitsCleanly(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{"-h"}, &out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "release-pipeline orchestrator")
}

func TestParse_NoPipelinePathShowsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse(nil, &out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Errors(t *testing.T) {
	t.Run("unknown flag", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-no-such-flag"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log level", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-log-level", "loud", "release.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
		assert.Contains(t, exitErr.Message, "invalid log_level")
	})

	t.Run("missing config file", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml"), "x.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Message, "reading config file")
	})
}
