// Package skills reads SKILL.md documents out of a mirror's skills tree.
package skills

// FileName is the document that marks a directory as a skill.
const FileName = "SKILL.md"

// Skill represents one SKILL.md and the properties parsed from its
// frontmatter. Frontmatter is optional; a skill without it has only the
// location fields set.
type Skill struct {
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	License      string            `yaml:"license,omitempty"`
	AllowedTools string            `yaml:"allowed-tools,omitempty"`
	Metadata     map[string]string `yaml:"metadata,omitempty"`

	Dir      string `yaml:"-"` // directory name, the skill's identity
	Category string `yaml:"-"` // enclosing directory for nested skills
	Path     string `yaml:"-"` // absolute path of SKILL.md
}

// DisplayName is the frontmatter name when present, else the directory.
func (s Skill) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Dir
}
