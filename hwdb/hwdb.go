// Package hwdb merges per-configuration hardware database fragments, as
// written by bitstream builds, into the master hardware database file.
package hwdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/yamldoc"
	"gopkg.in/yaml.v3"
)

var (
	// ErrFragmentNotFound is returned when a configuration has no fragment file.
	ErrFragmentNotFound = errors.New("hwdb fragment not found")

	// ErrNotMapping is returned when a fragment or the master file is not a
	// YAML mapping in upsert mode.
	ErrNotMapping = errors.New("hwdb document is not a mapping")

	// ErrInvalidMode is returned for an unknown merge mode.
	ErrInvalidMode = errors.New("invalid hwdb merge mode")
)

// Mode selects how a fragment is folded into the master file.
type Mode string

const (
	// ModeUpsert replaces or appends master entries by name. Merging the same
	// fragment twice leaves the master unchanged the second time.
	ModeUpsert Mode = "upsert"

	// ModeAppend appends the fragment's bytes verbatim. Merging the same
	// fragment twice leaves two copies in the master.
	ModeAppend Mode = "append"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeUpsert, ModeAppend:
		return true
	}
	return false
}

// Report lists what happened to each requested configuration.
type Report struct {
	Merged  []string
	Missing []string
	Failed  map[string]error
}

// OK reports whether every configuration was merged.
func (r *Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Failed) == 0
}

// Merger folds fragments from EntriesDir into MasterPath.
type Merger struct {
	EntriesDir string
	MasterPath string
	Mode       Mode
	logger     logger.Logger
}

// NewMerger creates a Merger. An empty mode means ModeUpsert.
func NewMerger(entriesDir, masterPath string, mode Mode, log logger.Logger) (*Merger, error) {
	if mode == "" {
		mode = ModeUpsert
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	return &Merger{
		EntriesDir: entriesDir,
		MasterPath: masterPath,
		Mode:       mode,
		logger:     log,
	}, nil
}

// FragmentPath returns where the fragment for hwConfig is expected.
func (m *Merger) FragmentPath(hwConfig string) string {
	return filepath.Join(m.EntriesDir, hwConfig)
}

// Merge folds the fragment of every configuration into the master file. A
// configuration whose fragment is missing or cannot be merged is logged and
// recorded in the report; the remaining configurations are still merged.
func (m *Merger) Merge(ctx context.Context, hwConfigs []string) *Report {
	report := &Report{Failed: make(map[string]error)}

	for _, hw := range hwConfigs {
		src := m.FragmentPath(hw)
		fields := map[string]interface{}{
			"hw_config":   hw,
			"source":      src,
			"destination": m.MasterPath,
			"mode":        string(m.Mode),
		}

		content, err := os.ReadFile(src)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				report.Missing = append(report.Missing, hw)
				m.logger.Error(ctx, fmt.Sprintf("Source file '%s' not found.", src), fields)
				continue
			}
			report.Failed[hw] = err
			fields["error"] = err.Error()
			m.logger.Error(ctx, "failed to read hwdb fragment", fields)
			continue
		}

		switch m.Mode {
		case ModeAppend:
			err = appendFile(m.MasterPath, content)
		default:
			var dropped []string
			dropped, err = upsertFile(m.MasterPath, content)
			if len(dropped) > 0 {
				m.logger.Warn(ctx, "removed duplicate entries from master hwdb", map[string]interface{}{
					"hw_config":   hw,
					"destination": m.MasterPath,
					"entries":     dropped,
				})
			}
		}
		if err != nil {
			report.Failed[hw] = err
			fields["error"] = err.Error()
			m.logger.Error(ctx, "failed to merge hwdb fragment", fields)
			continue
		}

		report.Merged = append(report.Merged, hw)
		m.logger.Info(ctx, fmt.Sprintf("Contents of '%s' successfully merged into '%s'.", src, m.MasterPath), fields)
	}

	return report
}

func appendFile(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open master hwdb: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to master hwdb: %w", err)
	}
	return f.Close()
}

// upsertFile merges fragment into the master file and returns the names of
// duplicate master entries it removed.
func upsertFile(path string, fragment []byte) ([]string, error) {
	frag, err := parseMapping(fragment)
	if err != nil {
		return nil, fmt.Errorf("fragment: %w", err)
	}

	master, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read master hwdb: %w", err)
	}
	doc, err := parseMapping(master)
	if err != nil {
		return nil, fmt.Errorf("master: %w", err)
	}

	root := doc.Content[0]
	var dropped []string
	for i := 0; i+1 < len(frag.Content[0].Content); i += 2 {
		key := frag.Content[0].Content[i]
		if upsert(root, key, frag.Content[0].Content[i+1]) > 0 {
			dropped = append(dropped, key.Value)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode master hwdb: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode master hwdb: %w", err)
	}
	return dropped, yamldoc.WriteFileAtomic(path, buf.Bytes())
}

// parseMapping parses data as a document whose root is a mapping. Empty input
// yields an empty mapping.
func parseMapping(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}, nil
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}
	return &doc, nil
}

// upsert replaces the first entry named key with value, or appends it. Later
// entries with the same name, as left behind by append mode, are removed and
// counted.
func upsert(mapping, key, value *yaml.Node) int {
	found := false
	removed := 0
	content := mapping.Content[:0]
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		k, v := mapping.Content[i], mapping.Content[i+1]
		if k.Value == key.Value {
			if found {
				removed++
				continue
			}
			found = true
			v = value
		}
		content = append(content, k, v)
	}
	if !found {
		content = append(content, key, value)
	}
	mapping.Content = content
	return removed
}
