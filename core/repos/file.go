package repos

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the optional YAML descriptor file:
//
//	repositories:
//	  - core|https://github.com/tmoxon/uni-core-skills|main
//	  - name: team
//	    url: git@example.com:team/skills.git
//	    branch: stable
type File struct {
	Repositories []Entry `yaml:"repositories"`
}

// Entry accepts either a triple scalar or a mapping.
type Entry struct {
	Descriptor
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		d, err := ParseDescriptor(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		e.Descriptor = d
		return nil
	case yaml.MappingNode:
		var d Descriptor
		if err := node.Decode(&d); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		e.Descriptor = d
		return nil
	default:
		return fmt.Errorf("line %d: %w: expected a triple or a mapping", node.Line, ErrMalformedDescriptor)
	}
}

// LoadFile reads descriptors from a YAML file in order. A missing file is
// not an error and yields no descriptors.
func LoadFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}

	out := make([]Descriptor, 0, len(f.Repositories))
	for _, entry := range f.Repositories {
		out = append(out, entry.Descriptor)
	}
	return out, nil
}
