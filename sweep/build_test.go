package sweep

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hairizuan-noorazman/firesweep/command"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/testutil"
	"github.com/hairizuan-noorazman/firesweep/yamldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T) *command.Builder {
	t.Helper()
	b, err := command.NewBuilder("firesim", "/staging/sample_config_hwdb.yaml", "/staging/sample_config_build_recipes.yaml")
	require.NoError(t, err)
	return b
}

func currentField(t *testing.T, path, field string) string {
	t.Helper()
	doc, err := yamldoc.Load(path)
	require.NoError(t, err)
	v, err := doc.Get(field)
	require.NoError(t, err)
	return v
}

func TestBuildSweeper_InvokesOncePerNameAfterRewrite(t *testing.T) {
	ctx := context.Background()
	configPath := testutil.WriteFile(t, t.TempDir(), "config_build.yaml", testutil.BuildConfig)

	var seen []string
	rec := &command.Recorder{Before: func(cmd command.Command) {
		seen = append(seen, currentField(t, configPath, DefaultBuildField))
	}}

	var started, done []string
	hooks := BuildHooks{
		OnStart: func(name string) { started = append(started, name) },
		OnDone:  func(o BuildOutcome) { done = append(done, o.Name) },
	}
	s := NewBuildSweeper(configPath, "", newBuilder(t), rec, logger.NewTestLogger(), hooks)

	names := []string{"hw_gcd_tl_50", "hw_gcd_tl_bridge_50"}
	outcomes, err := s.Sweep(ctx, names)
	require.NoError(t, err)

	require.Len(t, rec.Calls, 2)
	for _, call := range rec.Calls {
		assert.Equal(t, "firesim", call.Name)
		assert.Equal(t, []string{
			"buildbitstream",
			"-a", "/staging/sample_config_hwdb.yaml",
			"-r", "/staging/sample_config_build_recipes.yaml",
		}, call.Args)
	}
	assert.Equal(t, names, seen)
	assert.Equal(t, names, started)
	assert.Equal(t, names, done)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Succeeded())
	assert.True(t, outcomes[1].Succeeded())

	data := testutil.ReadFile(t, configPath)
	assert.Contains(t, data, "default_build_dir: /home/user/firesim-builds")
}

func TestBuildSweeper_FailedBuildContinues(t *testing.T) {
	ctx := context.Background()
	configPath := testutil.WriteFile(t, t.TempDir(), "config_build.yaml", testutil.BuildConfig)
	rec := &command.Recorder{Script: []command.Result{{ExitCode: 1}, {}}}
	log := logger.NewTestLogger()

	outcomes, err := NewBuildSweeper(configPath, "", newBuilder(t), rec, log, BuildHooks{}).
		Sweep(ctx, []string{"a", "b"})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Succeeded())
	assert.Equal(t, 1, outcomes[0].Result.ExitCode)
	assert.True(t, outcomes[1].Succeeded())
	assert.True(t, log.Contains("warn", "build failed"))
	assert.Equal(t, "b", currentField(t, configPath, DefaultBuildField))
}

func TestBuildSweeper_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("build cannot start", func(t *testing.T) {
		configPath := testutil.WriteFile(t, t.TempDir(), "config_build.yaml", testutil.BuildConfig)
		rec := &command.Recorder{Script: []command.Result{{ExitCode: -1, Err: errors.New("executable file not found")}}}

		outcomes, err := NewBuildSweeper(configPath, "", newBuilder(t), rec, logger.NewTestLogger(), BuildHooks{}).
			Sweep(ctx, []string{"a", "b"})
		assert.Error(t, err)
		assert.Empty(t, outcomes)
		assert.Len(t, rec.Calls, 1)
	})

	t.Run("missing build field", func(t *testing.T) {
		configPath := testutil.WriteFile(t, t.TempDir(), "config_build.yaml", "build_farm: {}\n")
		rec := &command.Recorder{}

		_, err := NewBuildSweeper(configPath, "", newBuilder(t), rec, logger.NewTestLogger(), BuildHooks{}).
			Sweep(ctx, []string{"a"})
		assert.ErrorIs(t, err, yamldoc.ErrFieldNotFound)
		assert.Empty(t, rec.Calls)
	})

	t.Run("missing config file", func(t *testing.T) {
		rec := &command.Recorder{}
		_, err := NewBuildSweeper(filepath.Join(t.TempDir(), "nope.yaml"), "", newBuilder(t), rec, logger.NewTestLogger(), BuildHooks{}).
			Sweep(ctx, []string{"a"})
		assert.Error(t, err)
		assert.Empty(t, rec.Calls)
	})
}
