package yamldoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const runtimeConfig = `# runtime configuration
run_farm:
  base_recipe: run-farm-recipes/externally_provisioned.yaml
  recipe_arg_overrides:
    default_simulation_dir: /home/user/FIRESIM_RUNS_DIR
target_config:
  topology: no_net_config
  no_net_num_nodes: 1
  default_hw_config: old_hw_config # replaced per run
  plusarg_passthrough: ""
workload:
  workload_name: linux-uniform.json
  terminate_on_completion: no
`

const buildConfig = `build_farm:
  base_recipe: build-farm-recipes/externally_provisioned.yaml
builds_to_run:
  - first_build
  - second_build
agis_to_share: []
`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0640))
	return path
}

func decodeMap(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &m))
	return m
}

func TestUpdate_ChangesOnlyTargetedFields(t *testing.T) {
	path := writeDoc(t, runtimeConfig)
	before := decodeMap(t, path)

	err := Update(path,
		SetField("target_config.default_hw_config", "xilinx_vcu118_firesim_smallboom_singlecore_4GB_no_nic_10"),
		SetField("workload.workload_name", "coremark.json"),
	)
	require.NoError(t, err)

	after := decodeMap(t, path)
	assert.Equal(t, "xilinx_vcu118_firesim_smallboom_singlecore_4GB_no_nic_10",
		after["target_config"].(map[string]interface{})["default_hw_config"])
	assert.Equal(t, "coremark.json", after["workload"].(map[string]interface{})["workload_name"])

	before["target_config"].(map[string]interface{})["default_hw_config"] = "xilinx_vcu118_firesim_smallboom_singlecore_4GB_no_nic_10"
	before["workload"].(map[string]interface{})["workload_name"] = "coremark.json"
	assert.Equal(t, before, after)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# runtime configuration")
	assert.Contains(t, string(data), "# replaced per run")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestUpdate_SequenceIndex(t *testing.T) {
	path := writeDoc(t, buildConfig)

	require.NoError(t, Update(path, SetField("builds_to_run[0]", "xilinx_vcu118_firesim_smallboom_gcd_tl_singlecore_4GB_no_nic_50")))

	doc, err := Load(path)
	require.NoError(t, err)
	first, err := doc.Get("builds_to_run[0]")
	require.NoError(t, err)
	assert.Equal(t, "xilinx_vcu118_firesim_smallboom_gcd_tl_singlecore_4GB_no_nic_50", first)
	second, err := doc.Get("builds_to_run[1]")
	require.NoError(t, err)
	assert.Equal(t, "second_build", second)
}

func TestUpdate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
		wantErr error
	}{
		{
			name:    "missing mapping key",
			content: runtimeConfig,
			field:   "target_config.missing",
			wantErr: ErrFieldNotFound,
		},
		{
			name:    "index out of range",
			content: buildConfig,
			field:   "builds_to_run[5]",
			wantErr: ErrFieldNotFound,
		},
		{
			name:    "index into mapping",
			content: runtimeConfig,
			field:   "workload[0]",
			wantErr: ErrFieldNotFound,
		},
		{
			name:    "malformed path",
			content: runtimeConfig,
			field:   "workload..workload_name",
			wantErr: ErrInvalidPath,
		},
		{
			name:    "unterminated index",
			content: buildConfig,
			field:   "builds_to_run[0",
			wantErr: ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDoc(t, tt.content)
			err := Update(path, SetField(tt.field, "x"))
			assert.ErrorIs(t, err, tt.wantErr)

			data, readErr := os.ReadFile(path)
			require.NoError(t, readErr)
			assert.Equal(t, tt.content, string(data), "document must not be rewritten on failure")
		})
	}
}

func TestLoad_MalformedAndMissing(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		path := writeDoc(t, "a: [unclosed\n")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeDoc(t, "")
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDocument_GetNonScalar(t *testing.T) {
	doc, err := Parse([]byte(runtimeConfig))
	require.NoError(t, err)

	_, err = doc.Get("target_config")
	assert.ErrorIs(t, err, ErrNotScalar)
}

func TestDocument_SetKeepsValueAsString(t *testing.T) {
	doc, err := Parse([]byte(runtimeConfig))
	require.NoError(t, err)

	require.NoError(t, doc.Set("workload.workload_name", "123"))
	data, err := doc.Bytes()
	require.NoError(t, err)

	var m map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, "123", m["workload"]["workload_name"])
}
