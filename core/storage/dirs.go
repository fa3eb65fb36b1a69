// Package storage resolves the uni root directory and the fixed paths inside
// it, with XDG and Git-Bash HOME support.
package storage

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// RootEnv overrides every other root resolution rule.
	RootEnv = "UNI_ROOT"

	appName = "uni"

	// CoreName is the descriptor name that must always be configured.
	CoreName = "core"

	// DefaultWorkspace is the container workspace checked for settings
	// before the working directory.
	DefaultWorkspace = "/workspace"
)

// Layout describes the fixed paths under a root directory.
type Layout struct {
	Root string // live mirrors are Root/<name>
}

// ResolveRoot returns the root directory for mirrors.
func ResolveRoot() string {
	if dir := os.Getenv(RootEnv); dir != "" {
		return filepath.Clean(dir)
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return platformRootDefault()
}

// NewLayout returns the layout for root, resolving it when empty.
func NewLayout(root string) Layout {
	if root == "" {
		root = ResolveRoot()
	}
	return Layout{Root: root}
}

// MirrorPath returns the working copy directory for a repository name.
func (l Layout) MirrorPath(name string) string {
	return filepath.Join(l.Root, name)
}

// CoreDir returns the mirror directory of the core repository.
func (l Layout) CoreDir() string {
	return l.MirrorPath(CoreName)
}

// SkillsRoot returns the skills directory of a mirror.
func SkillsRoot(mirrorPath string) string {
	return filepath.Join(mirrorPath, "skills")
}

// ListingFacility returns the path of a mirror's own listing executable.
func ListingFacility(mirrorPath string) string {
	return filepath.Join(SkillsRoot(mirrorPath), "using-skills", "find-skills")
}

// PrimaryDocument returns the path of the lead document shipped by core.
func (l Layout) PrimaryDocument() string {
	return filepath.Join(SkillsRoot(l.CoreDir()), "using-skills", "SKILL.md")
}

// SettingsPath returns the settings file to read. The workspace location
// wins when it exists, then the cwd-relative one; when neither exists the
// workspace path is returned and the caller treats it as absent.
func SettingsPath(workspace, cwd string) string {
	workspaceConfig := filepath.Join(workspace, ".uni", "config.json")
	if fileExists(workspaceConfig) {
		return workspaceConfig
	}

	cwdConfig := filepath.Join(cwd, ".uni", "config.json")
	if fileExists(cwdConfig) {
		return cwdConfig
	}

	return workspaceConfig
}

// NormalizeHome converts a Git-Bash style home ("/c/Users/x") to a drive
// path ("C:/Users/x"). Other values are returned unchanged.
func NormalizeHome(home string) string {
	if len(home) > 2 && home[0] == '/' && home[2] == '/' && isDriveLetter(home[1]) {
		return strings.ToUpper(home[1:2]) + ":/" + home[3:]
	}
	return home
}

// ToSlash renders a path with forward slashes for the environment surface.
func ToSlash(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// EnsureDir creates a directory with the specified permissions if it doesn't exist.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0755
	}
	return os.MkdirAll(path, perm)
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
