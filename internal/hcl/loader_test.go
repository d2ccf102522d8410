package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHCL(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullPipeline(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "release.hcl", `
pipeline "release" {
  description = "Cut a release."
}

job "build" {
  action = "echo"
}

job "unit_test" {
  action     = "echo"
  depends_on = ["build"]
  timeout    = "30m"

  matrix {
    db      = ["mysql", "sqlite", "mariadb"]
    version = ["3.10", "3.11"]
  }
}

job "publish_package" {
  action     = "echo"
  depends_on = ["unit_test"]
  condition  = trigger.repository == "zenml-io/zenml"
  env = {
    PYPI_REPO = "pypi"
  }
}

job "publish_image" {
  action     = "echo"
  depends_on = ["publish_package"]
  wait_for   = "7m20s"
}
`)

	pipeline, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "release", pipeline.Name)
	assert.Equal(t, "Cut a release.", pipeline.Description)
	require.Len(t, pipeline.Jobs, 4)

	build := pipeline.Lookup("build")
	require.NotNil(t, build)
	assert.Empty(t, build.DependsOn)
	assert.Nil(t, build.Condition)
	assert.Zero(t, build.Timeout)

	unitTest := pipeline.Lookup("unit_test")
	require.NotNil(t, unitTest)
	assert.Equal(t, []string{"build"}, unitTest.DependsOn)
	assert.Equal(t, 30*time.Minute, unitTest.Timeout)
	require.Len(t, unitTest.Matrix, 2)
	// Axes come back in declaration order, not map order.
	assert.Equal(t, "db", unitTest.Matrix[0].Name)
	assert.Equal(t, []string{"mysql", "sqlite", "mariadb"}, unitTest.Matrix[0].Values)
	assert.Equal(t, "version", unitTest.Matrix[1].Name)

	publish := pipeline.Lookup("publish_package")
	require.NotNil(t, publish)
	assert.NotNil(t, publish.Condition)
	assert.Equal(t, map[string]string{"PYPI_REPO": "pypi"}, publish.Env)

	image := pipeline.Lookup("publish_image")
	require.NotNil(t, image)
	assert.Equal(t, 7*time.Minute+20*time.Second, image.WaitFor)
}

func TestLoad_MergesMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "pipeline.hcl", `pipeline "release" {}`)
	writeHCL(t, dir, "jobs.hcl", `
job "build" {
  action = "echo"
}
`)

	pipeline, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "release", pipeline.Name)
	assert.Len(t, pipeline.Jobs, 1)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("no pipeline block", func(t *testing.T) {
		dir := t.TempDir()
		writeHCL(t, dir, "jobs.hcl", `
job "build" {
  action = "echo"
}
`)
		_, err := NewLoader().Load(context.Background(), dir)
		assert.ErrorContains(t, err, "no pipeline block found")
	})

	t.Run("multiple pipeline blocks", func(t *testing.T) {
		dir := t.TempDir()
		writeHCL(t, dir, "a.hcl", `pipeline "one" {}`)
		writeHCL(t, dir, "b.hcl", `pipeline "two" {}`)
		_, err := NewLoader().Load(context.Background(), dir)
		assert.ErrorContains(t, err, "multiple pipeline blocks")
	})

	t.Run("duplicate job", func(t *testing.T) {
		dir := t.TempDir()
		writeHCL(t, dir, "p.hcl", `
pipeline "release" {}

job "build" {
  action = "echo"
}

job "build" {
  action = "echo"
}
`)
		_, err := NewLoader().Load(context.Background(), dir)
		assert.ErrorContains(t, err, `duplicate job "build"`)
	})

	t.Run("invalid timeout", func(t *testing.T) {
		dir := t.TempDir()
		writeHCL(t, dir, "p.hcl", `
pipeline "release" {}

job "build" {
  action  = "echo"
  timeout = "soon"
}
`)
		_, err := NewLoader().Load(context.Background(), dir)
		assert.ErrorContains(t, err, "invalid timeout")
	})

	t.Run("negative wait_for", func(t *testing.T) {
		dir := t.TempDir()
		writeHCL(t, dir, "p.hcl", `
pipeline "release" {}

job "build" {
  action   = "echo"
  wait_for = "-5m"
}
`)
		_, err := NewLoader().Load(context.Background(), dir)
		assert.ErrorContains(t, err, "must not be negative")
	})

	t.Run("matrix axis with non-string values", func(t *testing.T) {
		dir := t.TempDir()
		writeHCL(t, dir, "p.hcl", `
pipeline "release" {}

job "build" {
  action = "echo"

  matrix {
    db = [1, 2]
  }
}
`)
		_, err := NewLoader().Load(context.Background(), dir)
		assert.ErrorContains(t, err, "must contain only strings")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
		assert.ErrorContains(t, err, "error accessing path")
	})

	t.Run("unparsable syntax", func(t *testing.T) {
		dir := t.TempDir()
		writeHCL(t, dir, "p.hcl", `pipeline "release" {`)
		_, err := NewLoader().Load(context.Background(), dir)
		assert.ErrorContains(t, err, "failed to parse HCL file")
	})
}
