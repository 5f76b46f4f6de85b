package yamldoc

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// segment is one step of a field path: a mapping key or a sequence index.
type segment struct {
	key   string
	index int
	isIdx bool
}

func (s segment) descend(node *yaml.Node) *yaml.Node {
	if s.isIdx {
		if node.Kind != yaml.SequenceNode || s.index >= len(node.Content) {
			return nil
		}
		return node.Content[s.index]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == s.key {
			return node.Content[i+1]
		}
	}
	return nil
}

// parsePath splits paths such as "target_config.default_hw_config" or
// "builds_to_run[0]" into segments.
func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	var segments []segment
	for _, part := range strings.Split(path, ".") {
		key := part
		var indexes []int
		if open := strings.IndexByte(part, '['); open >= 0 {
			key = part[:open]
			rest := part[open:]
			for rest != "" {
				if rest[0] != '[' {
					return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return nil, fmt.Errorf("%w: unterminated index in %q", ErrInvalidPath, path)
				}
				n, err := strconv.Atoi(rest[1:end])
				if err != nil || n < 0 {
					return nil, fmt.Errorf("%w: bad index in %q", ErrInvalidPath, path)
				}
				indexes = append(indexes, n)
				rest = rest[end+1:]
			}
		}
		if key == "" && len(indexes) == 0 {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
		if key != "" {
			segments = append(segments, segment{key: key})
		}
		for _, n := range indexes {
			segments = append(segments, segment{index: n, isIdx: true})
		}
	}
	return segments, nil
}
