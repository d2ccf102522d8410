package dag

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/releasegrid/releasegrid/internal/config"
	"github.com/releasegrid/releasegrid/internal/matrix"
	"github.com/releasegrid/releasegrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *registry.Registry {
	r := registry.New()
	r.RegisterRunner("noop", registry.RunnerFunc(func(ctx context.Context, req registry.Request) error {
		return nil
	}))
	return r
}

func parseExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "parse %q: %s", src, diags.Error())
	return expr
}

func TestNodeID(t *testing.T) {
	assert.Equal(t, "job.build", NodeID("build", nil))
	assert.Equal(t, "job.unit_test[db=mysql,version=3.11]",
		NodeID("unit_test", matrix.Point{{Axis: "db", Value: "mysql"}, {Axis: "version", Value: "3.11"}}))
}

func TestBuild_MatrixFanOutAndLinking(t *testing.T) {
	pipeline := &config.Pipeline{
		Name: "release",
		Jobs: []*config.Job{
			{Name: "build", Action: "noop"},
			{
				Name: "unit_test", Action: "noop", DependsOn: []string{"build"},
				Matrix: []config.Axis{{Name: "db", Values: []string{"mysql", "sqlite", "mariadb"}}},
			},
			{Name: "publish", Action: "noop", DependsOn: []string{"unit_test"}},
		},
	}

	graph, err := Build(context.Background(), pipeline, nil, testRegistry(), Options{})
	require.NoError(t, err)

	require.Len(t, graph.Nodes, 5)
	require.Len(t, graph.ByJob["unit_test"], 3)
	assert.Equal(t, "job.unit_test[db=mysql]", graph.ByJob["unit_test"][0].ID)

	// Each matrix instance depends on the single build instance.
	for _, node := range graph.ByJob["unit_test"] {
		require.Len(t, node.Deps, 1)
		assert.Contains(t, node.Deps, "job.build")
		assert.Equal(t, int32(1), node.DepCount())
	}

	// Fan-in: publish waits on every unit_test instance.
	publish := graph.Nodes["job.publish"]
	require.NotNil(t, publish)
	assert.Len(t, publish.Deps, 3)
	assert.Equal(t, int32(3), publish.DepCount())

	build := graph.Nodes["job.build"]
	assert.Equal(t, int32(0), build.DepCount())
	assert.Len(t, build.Dependents, 3)
	assert.Equal(t, Pending, build.State())
}

func TestBuild_ConditionGating(t *testing.T) {
	pipeline := &config.Pipeline{
		Name: "release",
		Jobs: []*config.Job{
			{Name: "build", Action: "noop"},
			{
				Name: "publish", Action: "noop", DependsOn: []string{"build"},
				Condition: parseExpr(t, `trigger.repository == "zenml-io/zenml"`),
			},
			{Name: "announce", Action: "noop", DependsOn: []string{"publish"}},
		},
	}
	trigger := &config.Trigger{Repository: "someone/fork"}

	t.Run("unblock policy leaves dependents runnable", func(t *testing.T) {
		graph, err := Build(context.Background(), pipeline, trigger, testRegistry(), Options{})
		require.NoError(t, err)

		assert.Equal(t, Skipped, graph.Nodes["job.publish"].State())
		assert.Equal(t, ReasonCondition, graph.Nodes["job.publish"].Reason)

		// The skipped predecessor is excluded from the counter, so announce
		// is a root of the executable graph.
		announce := graph.Nodes["job.announce"]
		assert.Equal(t, Pending, announce.State())
		assert.Equal(t, int32(0), announce.DepCount())
	})

	t.Run("cascade policy skips dependents transitively", func(t *testing.T) {
		graph, err := Build(context.Background(), pipeline, trigger, testRegistry(), Options{SkipPolicy: SkipCascade})
		require.NoError(t, err)

		announce := graph.Nodes["job.announce"]
		assert.Equal(t, Skipped, announce.State())
		assert.Equal(t, ReasonCondition, announce.Reason)
		assert.ErrorContains(t, announce.Err, `dependency "job.publish" was skipped`)
	})
}

func TestBuild_ConditionPerMatrixInstance(t *testing.T) {
	pipeline := &config.Pipeline{
		Name: "release",
		Jobs: []*config.Job{
			{
				Name: "unit_test", Action: "noop",
				Matrix:    []config.Axis{{Name: "db", Values: []string{"mysql", "sqlite"}}},
				Condition: parseExpr(t, `matrix["db"] == "mysql"`),
			},
		},
	}

	graph, err := Build(context.Background(), pipeline, nil, testRegistry(), Options{})
	require.NoError(t, err)

	assert.Equal(t, Pending, graph.Nodes["job.unit_test[db=mysql]"].State())
	assert.Equal(t, Skipped, graph.Nodes["job.unit_test[db=sqlite]"].State())
}

func TestBuild_ValidationErrors(t *testing.T) {
	cases := []struct {
		name     string
		pipeline *config.Pipeline
		want     string
	}{
		{
			name: "cycle",
			pipeline: &config.Pipeline{Name: "p", Jobs: []*config.Job{
				{Name: "a", Action: "noop", DependsOn: []string{"c"}},
				{Name: "b", Action: "noop", DependsOn: []string{"a"}},
				{Name: "c", Action: "noop", DependsOn: []string{"b"}},
			}},
			want: "cycle detected",
		},
		{
			name: "self dependency",
			pipeline: &config.Pipeline{Name: "p", Jobs: []*config.Job{
				{Name: "a", Action: "noop", DependsOn: []string{"a"}},
			}},
			want: `depends on itself`,
		},
		{
			name: "dangling dependency",
			pipeline: &config.Pipeline{Name: "p", Jobs: []*config.Job{
				{Name: "a", Action: "noop", DependsOn: []string{"ghost"}},
			}},
			want: `non-existent job "ghost"`,
		},
		{
			name: "unknown action",
			pipeline: &config.Pipeline{Name: "p", Jobs: []*config.Job{
				{Name: "a", Action: "launch_rocket"},
			}},
			want: "unregistered action",
		},
		{
			name: "empty matrix axis",
			pipeline: &config.Pipeline{Name: "p", Jobs: []*config.Job{
				{Name: "a", Action: "noop", Matrix: []config.Axis{{Name: "db"}}},
			}},
			want: "has no values",
		},
		{
			name: "non-boolean condition",
			pipeline: &config.Pipeline{Name: "p", Jobs: []*config.Job{
				{Name: "a", Action: "noop", Condition: parseExpr(t, `trigger.repository`)},
			}},
			want: "must be a boolean",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(context.Background(), tc.pipeline, nil, testRegistry(), Options{})
			require.Error(t, err)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.ErrorContains(t, err, "invalid pipeline")
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestBuild_EmptyAxisAllowed(t *testing.T) {
	pipeline := &config.Pipeline{
		Name: "release",
		Jobs: []*config.Job{
			{Name: "optional", Action: "noop", Matrix: []config.Axis{{Name: "db"}}},
			{Name: "after", Action: "noop", DependsOn: []string{"optional"}},
		},
	}

	graph, err := Build(context.Background(), pipeline, nil, testRegistry(),
		Options{Matrix: matrix.Options{AllowEmptyAxes: true}})
	require.NoError(t, err)

	// The zero-instance template contributes no nodes and no edges.
	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, int32(0), graph.Nodes["job.after"].DepCount())
}

func TestNode_TerminalTransitions(t *testing.T) {
	node := &Node{ID: "job.a"}

	assert.True(t, node.CasState(Pending, Ready))
	assert.False(t, node.CasState(Pending, Ready), "second dispatch must lose the CAS")
	assert.True(t, node.CasState(Ready, Running))

	calls := 0
	node.FinishOnce(func() {
		node.SetState(Succeeded)
		calls++
	})
	node.FinishOnce(func() { calls++ })

	assert.Equal(t, 1, calls)
	assert.True(t, node.State().Terminal())
	assert.False(t, node.CasState(Succeeded, Running))
}

func TestState_Strings(t *testing.T) {
	assert.Equal(t, "PENDING", Pending.String())
	assert.Equal(t, "SUCCEEDED", Succeeded.String())
	assert.Equal(t, "CANCELLED", Cancelled.String())
	assert.False(t, Running.Terminal())
	assert.True(t, Skipped.Terminal())
}
