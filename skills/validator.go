package skills

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	MaxNameLength = 64
	MaxDescLength = 1024
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate reports every convention s breaks, joined. Skills without a
// frontmatter name are checked by directory name only.
func Validate(s Skill) error {
	var problems []error

	if err := validateName(s.Dir); err != nil {
		problems = append(problems, fmt.Errorf("directory %q: %w", s.Dir, err))
	}
	if s.Name != "" && s.Name != s.Dir {
		problems = append(problems, fmt.Errorf("%w: %q != %q", ErrNameMismatch, s.Name, s.Dir))
	}
	if len(s.Description) > MaxDescLength {
		problems = append(problems, ErrDescTooLong)
	}

	return errors.Join(problems...)
}

func validateName(name string) error {
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}
