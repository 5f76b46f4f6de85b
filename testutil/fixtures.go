package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"
)

// CreateFixture creates a fixture in the database.
func CreateFixture(t *testing.T, db *gorm.DB, model interface{}) {
	t.Helper()
	if err := db.Create(model).Error; err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
}

// WriteFile writes content to dir/name, creating parent directories, and
// returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// BuildConfig is a minimal build configuration document.
const BuildConfig = `build_farm:
  base_recipe: build-farm-recipes/externally_provisioned.yaml
  recipe_arg_overrides:
    default_build_dir: /home/user/firesim-builds
builds_to_run:
  - placeholder_build
agis_to_share: []
`

// RuntimeConfig is a minimal runtime configuration document.
const RuntimeConfig = `run_farm:
  base_recipe: run-farm-recipes/externally_provisioned.yaml
target_config:
  topology: no_net_config
  no_net_num_nodes: 1
  default_hw_config: placeholder_hw
workload:
  workload_name: placeholder.json
  terminate_on_completion: false
`

// UARTLog renders a log that ends with a performance summary. Lines are
// written in the given order as "label: value".
func UARTLog(pairs ...string) string {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "[    %d.%06d] linux: booting\n", i, i)
	}
	b.WriteString("Emulation Performance Summary\n")
	b.WriteString("------------------------------\n")
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, "%s: %s\n", pairs[i], pairs[i+1])
	}
	return b.String()
}
