package skills

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Find returns the skills under root in lexicographic order. A skill is
// either root/<skill>/SKILL.md or root/<category>/<skill>/SKILL.md; a
// directory holding its own SKILL.md is not searched further. Unreadable
// or malformed frontmatter leaves the description empty rather than
// dropping the skill.
func Find(root string) ([]Skill, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var found []Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())

		if skill, err := Read(dir); err == nil || !errors.Is(err, ErrSkillNotFound) {
			found = append(found, skill)
			continue
		}

		children, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, child := range children {
			if !child.IsDir() {
				continue
			}
			skill, err := Read(filepath.Join(dir, child.Name()))
			if errors.Is(err, ErrSkillNotFound) {
				continue
			}
			skill.Category = entry.Name()
			found = append(found, skill)
		}
	}
	return found, nil
}

// Read loads the skill in skillDir. When SKILL.md exists but its
// frontmatter cannot be used, the returned Skill still carries Dir and
// Path alongside the error.
func Read(skillDir string) (Skill, error) {
	skill := Skill{Dir: filepath.Base(skillDir)}

	path := filepath.Join(skillDir, FileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return skill, ErrSkillNotFound
	}
	skill.Path = path

	content, err := os.ReadFile(path)
	if err != nil {
		return skill, fmt.Errorf("read SKILL.md: %w", err)
	}

	metadata, _, err := ParseFrontmatter(string(content))
	if err != nil {
		if errors.Is(err, ErrNoFrontmatter) {
			return skill, nil
		}
		return skill, err
	}
	applyMetadata(&skill, metadata)
	return skill, nil
}

// ParseFrontmatter splits a document into its YAML frontmatter and the
// markdown body. The frontmatter is delimited by "---" lines at the very
// top of the document.
func ParseFrontmatter(content string) (map[string]any, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return nil, content, ErrNoFrontmatter
	}

	var header strings.Builder
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		header.WriteString(line)
		header.WriteByte('\n')
	}
	if !closed {
		return nil, "", ErrParseFailed
	}

	var body strings.Builder
	for scanner.Scan() {
		body.WriteString(scanner.Text())
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	metadata := map[string]any{}
	if err := yaml.Unmarshal([]byte(header.String()), &metadata); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return metadata, strings.TrimSpace(body.String()), nil
}

func applyMetadata(skill *Skill, m map[string]any) {
	if v, ok := m["name"].(string); ok {
		skill.Name = strings.TrimSpace(v)
	}
	if v, ok := m["description"].(string); ok {
		skill.Description = strings.TrimSpace(v)
	}
	if v, ok := m["license"].(string); ok {
		skill.License = v
	}
	if v, ok := m["allowed-tools"].(string); ok {
		skill.AllowedTools = v
	}
	if v, ok := m["metadata"].(map[string]any); ok {
		skill.Metadata = toStringMap(v)
	}
}

func toStringMap(m map[string]any) map[string]string {
	result := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}
