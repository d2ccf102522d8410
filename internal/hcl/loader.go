package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/releasegrid/releasegrid/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes all recognized top-level blocks from any file.
type fileRoot struct {
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Jobs      []*jobBlock      `hcl:"job,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type pipelineBlock struct {
	Name        string `hcl:"name,label"`
	Description string `hcl:"description,optional"`
}

type jobBlock struct {
	Name      string            `hcl:"name,label"`
	Action    string            `hcl:"action"`
	Env       map[string]string `hcl:"env,optional"`
	DependsOn []string          `hcl:"depends_on,optional"`
	Timeout   string            `hcl:"timeout,optional"`
	WaitFor   string            `hcl:"wait_for,optional"`
	Condition hcl.Expression    `hcl:"condition,optional"`
	Matrix    *matrixBlock      `hcl:"matrix,block"`
}

// matrixBlock keeps the raw body so axis declaration order can be recovered
// from attribute source ranges during translation.
type matrixBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Load orchestrates the HCL loading process. It is agnostic to the origin of
// the paths and merges blocks from every discovered file into one pipeline.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var pipelines []*pipelineBlock
	var jobs []*jobBlock

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		pipelines = append(pipelines, root.Pipelines...)
		jobs = append(jobs, root.Jobs...)
	}

	if len(pipelines) == 0 {
		return nil, fmt.Errorf("no pipeline block found in %d file(s)", len(files))
	}
	if len(pipelines) > 1 {
		return nil, fmt.Errorf("multiple pipeline blocks found (%q and %q), only one is allowed",
			pipelines[0].Name, pipelines[1].Name)
	}

	pipeline := &config.Pipeline{
		Name:        pipelines[0].Name,
		Description: pipelines[0].Description,
	}

	seen := make(map[string]struct{}, len(jobs))
	for _, jb := range jobs {
		if _, dup := seen[jb.Name]; dup {
			return nil, fmt.Errorf("duplicate job %q", jb.Name)
		}
		seen[jb.Name] = struct{}{}

		job, err := translateJob(jb)
		if err != nil {
			return nil, err
		}
		pipeline.Jobs = append(pipeline.Jobs, job)
	}

	logger.Debug("HCL loading complete.", "pipeline", pipeline.Name, "jobs", len(pipeline.Jobs))
	return pipeline, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of .hcl files.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
			continue
		}

		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				if _, wasSeen := seen[p]; !wasSeen {
					allFiles = append(allFiles, p)
					seen[p] = struct{}{}
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(allFiles) == 0 {
		return nil, fmt.Errorf("no .hcl files found in: %v", paths)
	}
	return allFiles, nil
}
