// Package session assembles the session-start payload: the initialization
// log of every mirror, the skill inventory, the environment surface and the
// primary document, rendered into a single JSON document for the host.
package session

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/adalundhe/uni/core/discovery"
	"github.com/adalundhe/uni/core/mirror"
	"github.com/adalundhe/uni/core/storage"
)

// BehindWarning is appended when any mirror could not be fast-forwarded.
const BehindWarning = "New skills available from upstream. Ask me to use the pulling-updates-from-skills-repository skill."

// Input is everything Build needs from the earlier stages of a run.
type Input struct {
	Layout      storage.Layout
	Log         []string // rendered pool log, status markers included
	Inventory   discovery.Inventory
	Environment discovery.Environment
}

// Context is the session payload. It is built once and serialized once.
type Context struct {
	Root               string                 `json:"root"`
	SkillsDirectory    string                 `json:"skillsDirectory"`
	InitializationLog  []string               `json:"initializationLog"`
	SkillInventory     []discovery.Repository `json:"skillInventory"`
	ActiveRepositories []discovery.Mirror     `json:"activeRepositories"`
	Environment        []discovery.Variable   `json:"environment"`
	PrimaryDocument    string                 `json:"primaryDocument"`
	Summary            mirror.Summary         `json:"summary"`
	Warning            string                 `json:"warning,omitempty"`
}

// Build assembles the Context for in.
func Build(in Input) Context {
	log, summary := ExtractMarkers(in.Log)

	c := Context{
		Root:               in.Layout.Root,
		SkillsDirectory:    in.Layout.CoreDir(),
		InitializationLog:  log,
		SkillInventory:     in.Inventory.Repositories,
		ActiveRepositories: in.Inventory.Active,
		Environment:        in.Environment.Variables(),
		PrimaryDocument:    ReadPrimaryDocument(in.Layout),
		Summary:            summary,
	}
	if c.InitializationLog == nil {
		c.InitializationLog = []string{}
	}
	if c.SkillInventory == nil {
		c.SkillInventory = []discovery.Repository{}
	}
	if c.ActiveRepositories == nil {
		c.ActiveRepositories = []discovery.Mirror{}
	}
	if summary.AnyBehind {
		c.Warning = BehindWarning
	}
	return c
}

// ExtractMarkers removes the UPDATED:/BEHIND: status lines from log and
// returns the remaining lines with the flags they carried. Unparsable
// marker values read as false.
func ExtractMarkers(log []string) ([]string, mirror.Summary) {
	var (
		out     []string
		summary mirror.Summary
	)
	for _, line := range log {
		switch {
		case strings.HasPrefix(line, mirror.MarkerUpdated):
			summary.AnyUpdated = parseFlag(line[len(mirror.MarkerUpdated):])
		case strings.HasPrefix(line, mirror.MarkerBehind):
			summary.AnyBehind = parseFlag(line[len(mirror.MarkerBehind):])
		default:
			out = append(out, line)
		}
	}
	return out, summary
}

func parseFlag(s string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && v
}

// ReadPrimaryDocument returns the lead document shipped by core, or a
// notice naming the path that was expected.
func ReadPrimaryDocument(layout storage.Layout) string {
	path := layout.PrimaryDocument()
	content, err := os.ReadFile(path)
	if err == nil {
		return string(content)
	}

	notice := fmt.Sprintf("uni is ready. Skills are organized in repositories under %s/", layout.Root)
	if errors.Is(err, os.ErrNotExist) {
		return notice + fmt.Sprintf("\n\nNote: Expected to find skills/using-skills/SKILL.md in core repository at %s but it was not found.", path)
	}
	return notice + fmt.Sprintf("\n\nNote: Could not read %s: %v", path, err)
}
