package repos

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Settings is the small per-workspace settings file. Only skillsBranch is
// read; unknown keys are ignored.
type Settings struct {
	SkillsBranch string
}

type settingsFile struct {
	SkillsBranch json.RawMessage `json:"skillsBranch"`
}

// LoadSettings reads the settings at path. A missing file yields zero
// Settings and no warning. An unreadable, unparsable or malformed file also
// yields zero Settings, with a warning describing why; it is never fatal.
func LoadSettings(path string) (Settings, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, ""
		}
		return Settings{}, fmt.Sprintf("could not read config file %s: %v", path, err)
	}

	var raw settingsFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return Settings{}, fmt.Sprintf("could not parse config file %s: %v", path, err)
	}
	if len(raw.SkillsBranch) == 0 || string(raw.SkillsBranch) == "null" {
		return Settings{}, ""
	}

	var branch string
	if err := json.Unmarshal(raw.SkillsBranch, &branch); err != nil {
		return Settings{}, fmt.Sprintf("ignoring skillsBranch in %s: not a string", path)
	}

	branch = strings.TrimSpace(branch)
	if !validBranchName(branch) {
		return Settings{}, fmt.Sprintf("ignoring skillsBranch %q in %s: not a valid branch name", branch, path)
	}
	return Settings{SkillsBranch: branch}, ""
}

// validBranchName applies the subset of git-check-ref-format rules that
// matter for a name passed to checkout.
func validBranchName(name string) bool {
	if name == "" || strings.HasPrefix(name, "-") || strings.HasPrefix(name, "/") ||
		strings.HasSuffix(name, "/") || strings.HasSuffix(name, ".lock") || strings.HasSuffix(name, ".") {
		return false
	}
	if strings.Contains(name, "..") || strings.Contains(name, "@{") || strings.Contains(name, "//") {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r == 0x7f || strings.ContainsRune(`~^:?*[\`, r) {
			return false
		}
	}
	return true
}
