package discovery

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/adalundhe/uni/core/storage"
)

const (
	// RootVariable names the root directory.
	RootVariable = "UNI_ROOT"

	// SkillsVariable names the core mirror directory.
	SkillsVariable = "UNI_SKILLS"

	skillPrefix = "UNI_SKILL_"
)

// Variable is one name/value pair of the environment surface.
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Environment is the immutable set of variables derived from one
// inventory.
type Environment struct {
	vars map[string]string
}

// VariableName derives the variable for a skill: UNI_SKILL_, then the
// repository, an underscore and the skill, uppercased with every
// character outside [A-Za-z0-9] replaced by an underscore.
func VariableName(repository, skill string) string {
	return skillPrefix + sanitize(repository) + "_" + sanitize(skill)
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// BuildEnvironment derives the environment surface for root and inv.
// Paths use forward slashes. When two entries map to the same variable
// the first one wins.
func BuildEnvironment(root string, inv Inventory) Environment {
	vars := map[string]string{
		RootVariable:   storage.ToSlash(root),
		SkillsVariable: storage.ToSlash(filepath.Join(root, storage.CoreName)),
	}
	for _, e := range inv.Entries() {
		name := VariableName(e.Repository, e.Name)
		if _, taken := vars[name]; taken {
			continue
		}
		vars[name] = storage.ToSlash(e.Path)
	}
	return Environment{vars: vars}
}

// Get returns the value of name.
func (e Environment) Get(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Len returns the number of variables.
func (e Environment) Len() int {
	return len(e.vars)
}

// Variables returns every variable sorted by name.
func (e Environment) Variables() []Variable {
	out := make([]Variable, 0, len(e.vars))
	for name, value := range e.vars {
		out = append(out, Variable{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Map returns a copy of the variables.
func (e Environment) Map() map[string]string {
	out := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}
