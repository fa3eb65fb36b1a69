// Package repos parses and validates the ordered list of skill repositories
// a session keeps mirrored.
package repos

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adalundhe/uni/core/storage"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrMissingCore indicates no descriptor named "core" was configured.
	ErrMissingCore = errors.New(`configuration requires a repository named "core"`)

	// ErrDuplicateCore indicates more than one descriptor is named "core".
	ErrDuplicateCore = errors.New(`configuration has more than one repository named "core"`)

	// ErrDuplicateName indicates two descriptors share a directory key.
	ErrDuplicateName = errors.New("duplicate repository name")

	// ErrMalformedDescriptor indicates a triple that could not be parsed.
	ErrMalformedDescriptor = errors.New("malformed repository descriptor")
)

// ConfigError is a fatal configuration failure. It is never retried; the
// process reports it and exits non-zero before touching any mirror.
type ConfigError struct {
	Source string // flag, file or built-in list the bad input came from
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Descriptor
// =============================================================================

// CoreName is the descriptor name that must always be present.
const CoreName = storage.CoreName

// DefaultBranch is used when neither the triple nor the settings name one.
const DefaultBranch = "main"

// Descriptor identifies one repository mirror. Name is the directory key
// under the root.
type Descriptor struct {
	Name   string `json:"name" yaml:"name"`
	URL    string `json:"url" yaml:"url"`
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`
}

// IsCore reports whether d is the required core repository.
func (d Descriptor) IsCore() bool {
	return d.Name == CoreName
}

// String renders d back in triple form.
func (d Descriptor) String() string {
	return d.Name + "|" + d.URL + "|" + d.Branch
}

// ParseDescriptor parses a "name|url|branch" triple. The branch segment is
// optional and may be empty; defaults are applied by the Store.
func ParseDescriptor(triple string) (Descriptor, error) {
	parts := strings.Split(strings.TrimSpace(triple), "|")
	if len(parts) < 2 || len(parts) > 3 {
		return Descriptor{}, fmt.Errorf("%w: %q: want name|url|branch", ErrMalformedDescriptor, triple)
	}

	d := Descriptor{
		Name: strings.TrimSpace(parts[0]),
		URL:  strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 {
		d.Branch = strings.TrimSpace(parts[2])
	}

	if err := validateName(d.Name); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %q: %v", ErrMalformedDescriptor, triple, err)
	}
	if d.URL == "" {
		return Descriptor{}, fmt.Errorf("%w: %q: url is empty", ErrMalformedDescriptor, triple)
	}
	return d, nil
}

// validateName rejects names that cannot be used as a single directory.
func validateName(name string) error {
	switch {
	case name == "":
		return errors.New("name is empty")
	case name == "." || name == "..":
		return errors.New("name is a relative path element")
	case strings.ContainsAny(name, `/\`):
		return errors.New("name contains a path separator")
	}
	return nil
}
