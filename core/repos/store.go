package repos

import (
	"fmt"
)

// DefaultTriples is the built-in repository list used when the caller
// supplies none. The core branch comes from the settings file.
var DefaultTriples = []string{
	"core|https://github.com/tmoxon/uni-core-skills|",
}

// Store is the immutable, ordered descriptor list for one session.
type Store struct {
	descriptors []Descriptor
}

// NewStore parses triples in order and applies branch defaults. The
// settings branch override applies to core only, and wins over a branch
// written in the core triple. Any validation failure is a *ConfigError.
func NewStore(source string, triples []string, settings Settings) (*Store, error) {
	descriptors := make([]Descriptor, 0, len(triples))
	for _, triple := range triples {
		d, err := ParseDescriptor(triple)
		if err != nil {
			return nil, &ConfigError{Source: source, Err: err}
		}
		descriptors = append(descriptors, d)
	}
	return newStore(source, descriptors, settings)
}

// NewStoreFromDescriptors validates already-parsed descriptors, e.g. from a
// descriptor file.
func NewStoreFromDescriptors(source string, descriptors []Descriptor, settings Settings) (*Store, error) {
	for _, d := range descriptors {
		if err := validateName(d.Name); err != nil {
			return nil, &ConfigError{Source: source, Err: fmt.Errorf("%w: %q: %v", ErrMalformedDescriptor, d.Name, err)}
		}
		if d.URL == "" {
			return nil, &ConfigError{Source: source, Err: fmt.Errorf("%w: %q: url is empty", ErrMalformedDescriptor, d.Name)}
		}
	}
	return newStore(source, descriptors, settings)
}

func newStore(source string, in []Descriptor, settings Settings) (*Store, error) {
	seen := make(map[string]bool, len(in))
	cores := 0
	out := make([]Descriptor, 0, len(in))

	for _, d := range in {
		if seen[d.Name] {
			if d.IsCore() {
				return nil, &ConfigError{Source: source, Err: ErrDuplicateCore}
			}
			return nil, &ConfigError{Source: source, Err: fmt.Errorf("%w: %q", ErrDuplicateName, d.Name)}
		}
		seen[d.Name] = true

		if d.IsCore() {
			cores++
			if settings.SkillsBranch != "" {
				d.Branch = settings.SkillsBranch
			}
		}
		if d.Branch == "" {
			d.Branch = DefaultBranch
		}
		out = append(out, d)
	}

	if cores == 0 {
		return nil, &ConfigError{Source: source, Err: ErrMissingCore}
	}
	return &Store{descriptors: out}, nil
}

// Descriptors returns a copy of the ordered list.
func (s *Store) Descriptors() []Descriptor {
	out := make([]Descriptor, len(s.descriptors))
	copy(out, s.descriptors)
	return out
}

// Core returns the core descriptor.
func (s *Store) Core() Descriptor {
	for _, d := range s.descriptors {
		if d.IsCore() {
			return d
		}
	}
	// newStore guarantees a core entry.
	panic("repos: store without core descriptor")
}

// Len returns the number of descriptors.
func (s *Store) Len() int {
	return len(s.descriptors)
}
