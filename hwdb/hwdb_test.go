package hwdb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const fragmentA = `hw_a:
    bitstream_tar: file:///builds/hw_a/firesim.tar.gz
    deploy_quintuplet_override: null
    custom_runtime_config: null
`

const fragmentB = `hw_b:
    bitstream_tar: file:///builds/hw_b/firesim.tar.gz
    deploy_quintuplet_override: null
    custom_runtime_config: null
`

const master = `# master hardware database
existing_hw:
    bitstream_tar: file:///builds/existing/firesim.tar.gz
hw_a:
    bitstream_tar: file:///builds/stale/firesim.tar.gz
`

type fixture struct {
	entries string
	master  string
	log     *logger.TestLogger
}

func newFixture(t *testing.T, masterContent string) fixture {
	dir := t.TempDir()
	entries := filepath.Join(dir, "built-hwdb-entries")
	testutil.WriteFile(t, entries, "hw_a", fragmentA)
	testutil.WriteFile(t, entries, "hw_b", fragmentB)

	masterPath := filepath.Join(dir, "sample_config_hwdb.yaml")
	if masterContent != "" {
		testutil.WriteFile(t, dir, "sample_config_hwdb.yaml", masterContent)
	}
	return fixture{entries: entries, master: masterPath, log: logger.NewTestLogger()}
}

func decode(t *testing.T, path string) map[string]map[string]interface{} {
	t.Helper()
	var out map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(testutil.ReadFile(t, path)), &out))
	return out
}

func TestNewMerger(t *testing.T) {
	log := logger.NewTestLogger()

	m, err := NewMerger("entries", "master.yaml", "", log)
	require.NoError(t, err)
	assert.Equal(t, ModeUpsert, m.Mode)
	assert.Equal(t, filepath.Join("entries", "hw_a"), m.FragmentPath("hw_a"))

	_, err = NewMerger("entries", "master.yaml", Mode("replace"), log)
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestMerger_AppendIsNotIdempotent(t *testing.T) {
	fx := newFixture(t, "")
	ctx := context.Background()
	m, err := NewMerger(fx.entries, fx.master, ModeAppend, fx.log)
	require.NoError(t, err)

	first := m.Merge(ctx, []string{"hw_a"})
	assert.True(t, first.OK())
	second := m.Merge(ctx, []string{"hw_a"})
	assert.True(t, second.OK())

	assert.Equal(t, fragmentA+fragmentA, testutil.ReadFile(t, fx.master))
}

func TestMerger_AppendKeepsExistingBytes(t *testing.T) {
	fx := newFixture(t, master)
	m, err := NewMerger(fx.entries, fx.master, ModeAppend, fx.log)
	require.NoError(t, err)

	report := m.Merge(context.Background(), []string{"hw_b"})
	assert.Equal(t, []string{"hw_b"}, report.Merged)
	assert.Equal(t, master+fragmentB, testutil.ReadFile(t, fx.master))
}

func TestMerger_UpsertIsIdempotent(t *testing.T) {
	fx := newFixture(t, master)
	ctx := context.Background()
	m, err := NewMerger(fx.entries, fx.master, ModeUpsert, fx.log)
	require.NoError(t, err)

	report := m.Merge(ctx, []string{"hw_a", "hw_b"})
	require.True(t, report.OK())
	once := testutil.ReadFile(t, fx.master)

	m.Merge(ctx, []string{"hw_a", "hw_b"})
	assert.Equal(t, once, testutil.ReadFile(t, fx.master))

	got := decode(t, fx.master)
	assert.Len(t, got, 3)
	assert.Equal(t, "file:///builds/existing/firesim.tar.gz", got["existing_hw"]["bitstream_tar"])
	assert.Equal(t, "file:///builds/hw_a/firesim.tar.gz", got["hw_a"]["bitstream_tar"])
	assert.Equal(t, "file:///builds/hw_b/firesim.tar.gz", got["hw_b"]["bitstream_tar"])
	assert.Contains(t, once, "# master hardware database")
	assert.Equal(t, 1, strings.Count(once, "hw_a:"))
}

func TestMerger_UpsertRemovesDuplicatesLeftByAppend(t *testing.T) {
	fx := newFixture(t, master+fragmentB)
	ctx := context.Background()

	appender, err := NewMerger(fx.entries, fx.master, ModeAppend, fx.log)
	require.NoError(t, err)
	require.True(t, appender.Merge(ctx, []string{"hw_a", "hw_b"}).OK())
	require.Equal(t, 2, strings.Count(testutil.ReadFile(t, fx.master), "hw_a:"))

	upserter, err := NewMerger(fx.entries, fx.master, ModeUpsert, fx.log)
	require.NoError(t, err)
	require.True(t, upserter.Merge(ctx, []string{"hw_a", "hw_b"}).OK())

	merged := testutil.ReadFile(t, fx.master)
	assert.Equal(t, 1, strings.Count(merged, "hw_a:"))
	assert.Equal(t, 1, strings.Count(merged, "hw_b:"))
	assert.NotContains(t, merged, "file:///builds/stale/firesim.tar.gz")

	got := decode(t, fx.master)
	assert.Len(t, got, 3)
	assert.Equal(t, "file:///builds/hw_a/firesim.tar.gz", got["hw_a"]["bitstream_tar"])
	assert.True(t, fx.log.Contains("warn", "removed duplicate entries from master hwdb"))
}

func TestMerger_UpsertCreatesMaster(t *testing.T) {
	fx := newFixture(t, "")
	m, err := NewMerger(fx.entries, fx.master, ModeUpsert, fx.log)
	require.NoError(t, err)

	report := m.Merge(context.Background(), []string{"hw_b"})
	require.True(t, report.OK())
	got := decode(t, fx.master)
	assert.Equal(t, []string{"hw_b"}, keys(got))
}

func TestMerger_MissingAndInvalidFragments(t *testing.T) {
	fx := newFixture(t, master)
	testutil.WriteFile(t, fx.entries, "hw_list", "- not\n- a mapping\n")
	m, err := NewMerger(fx.entries, fx.master, ModeUpsert, fx.log)
	require.NoError(t, err)

	report := m.Merge(context.Background(), []string{"hw_missing", "hw_list", "hw_b"})

	assert.False(t, report.OK())
	assert.Equal(t, []string{"hw_missing"}, report.Missing)
	require.Contains(t, report.Failed, "hw_list")
	assert.ErrorIs(t, report.Failed["hw_list"], ErrNotMapping)
	assert.Equal(t, []string{"hw_b"}, report.Merged)

	assert.True(t, fx.log.Contains("error", "not found"))
	assert.True(t, fx.log.Contains("error", "failed to merge hwdb fragment"))
	assert.Contains(t, decode(t, fx.master), "hw_b")
}

func TestMerger_UnreadableMasterIsReported(t *testing.T) {
	fx := newFixture(t, "")
	require.NoError(t, os.MkdirAll(fx.master, 0755))
	m, err := NewMerger(fx.entries, fx.master, ModeUpsert, fx.log)
	require.NoError(t, err)

	report := m.Merge(context.Background(), []string{"hw_a"})
	assert.Contains(t, report.Failed, "hw_a")
	assert.Empty(t, report.Merged)
}

func keys(m map[string]map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
