package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/releasegrid/releasegrid/internal/app"
	"github.com/releasegrid/releasegrid/internal/hcl"
	"github.com/releasegrid/releasegrid/internal/registry"
	"github.com/releasegrid/releasegrid/internal/run"
	"github.com/stretchr/testify/require"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	Result    *run.Result
	App       *app.App
}

// RunPipelineTest provides a standardized harness for integration tests: it
// writes the given files into a temp directory, loads them as the pipeline,
// registers the provided runner modules, and executes one run with the given
// configuration overrides.
func RunPipelineTest(t *testing.T, files map[string]string, configure func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunPipelineTestWithContext(context.Background(), t, files, configure, modules...)
}

// RunPipelineTestWithContext is RunPipelineTest with a caller-provided
// context, for cancellation tests.
func RunPipelineTestWithContext(ctx context.Context, t *testing.T, files map[string]string, configure func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	cfg := app.DefaultConfig()
	cfg.PipelinePath = tmpDir
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	cfg.Workers = 4
	if configure != nil {
		configure(&cfg)
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig, hcl.NewLoader(), modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx)

	if os.Getenv("RELEASEGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		Result:    testApp.LastResult(),
		App:       testApp,
	}
}
