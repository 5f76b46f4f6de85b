// Package yamldoc edits individual fields of a YAML document in place while
// leaving every other field, the key order and comments untouched.
package yamldoc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// ErrFieldNotFound is returned when a field path does not resolve to an
	// existing node. Fields are never created.
	ErrFieldNotFound = errors.New("field not found")

	// ErrInvalidPath is returned for a malformed field path.
	ErrInvalidPath = errors.New("invalid field path")

	// ErrNotScalar is returned by Get when the field holds a mapping or sequence.
	ErrNotScalar = errors.New("field is not a scalar")

	// ErrEmptyDocument is returned when the file holds no YAML document.
	ErrEmptyDocument = errors.New("empty document")
)

// Document is a parsed YAML document that can be mutated field by field.
type Document struct {
	root *yaml.Node
}

// Parse parses a document from raw YAML.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, ErrEmptyDocument
	}
	return &Document{root: &root}, nil
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Parse(data)
}

// Get returns the scalar value stored at fieldPath.
func (d *Document) Get(fieldPath string) (string, error) {
	node, err := d.lookup(fieldPath)
	if err != nil {
		return "", err
	}
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%w: %s", ErrNotScalar, fieldPath)
	}
	return node.Value, nil
}

// Set overwrites the node at fieldPath with value. The field must already exist.
func (d *Document) Set(fieldPath string, value interface{}) error {
	node, err := d.lookup(fieldPath)
	if err != nil {
		return err
	}

	var encoded yaml.Node
	if err := encoded.Encode(value); err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", fieldPath, err)
	}

	node.Kind = encoded.Kind
	node.Tag = encoded.Tag
	node.Value = encoded.Value
	node.Content = encoded.Content
	node.Alias = nil
	node.Anchor = ""
	node.Style = encoded.Style
	return nil
}

// Bytes serialises the document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the document to path with WriteFileAtomic.
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

func (d *Document) lookup(fieldPath string) (*yaml.Node, error) {
	segments, err := parsePath(fieldPath)
	if err != nil {
		return nil, err
	}

	node := d.root.Content[0]
	for _, seg := range segments {
		node = resolveAlias(node)
		next := seg.descend(node)
		if next == nil {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, fieldPath)
		}
		node = next
	}
	return resolveAlias(node), nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// WriteFileAtomic replaces path with data through a temporary file in the
// same directory, keeping the mode of an existing file.
func WriteFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set document mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}
