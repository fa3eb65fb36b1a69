package skills

import "errors"

var (
	ErrSkillNotFound = errors.New("SKILL.md not found")
	ErrNoFrontmatter = errors.New("SKILL.md has no frontmatter")
	ErrParseFailed   = errors.New("failed to parse SKILL.md frontmatter")
	ErrInvalidName   = errors.New("invalid skill name")
	ErrNameTooLong   = errors.New("name exceeds 64 characters")
	ErrDescTooLong   = errors.New("description exceeds 1024 characters")
	ErrNameMismatch  = errors.New("skill name must match directory name")
)
