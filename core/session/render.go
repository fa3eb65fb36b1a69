package session

import (
	"strings"
)

const listingHeader = "### Skills from repository: "

// Render produces the additional context text handed to the host.
func Render(c Context) string {
	var b strings.Builder

	b.WriteString("<EXTREMELY_IMPORTANT>\nYou have access to the uni.\n\n")

	if len(c.InitializationLog) > 0 {
		b.WriteString(strings.Join(c.InitializationLog, "\n"))
		b.WriteString("\n\n")
	}

	b.WriteString("**The content below is from skills/using-skills/SKILL.md - your introduction to using skills:**\n\n")
	b.WriteString(c.PrimaryDocument)
	b.WriteString("\n\n")

	b.WriteString("**uni Configuration:**\n")
	b.WriteString("- Root directory: " + c.Root + "\n")
	b.WriteString("- Skills directory: " + c.SkillsDirectory + "\n")
	b.WriteString("- Active repositories:\n")
	for _, m := range c.ActiveRepositories {
		b.WriteString("- " + m.Name + ": " + m.Path + "\n")
	}
	b.WriteString("\n")

	b.WriteString("**Environment Variables for Skills:**\n")
	for _, v := range c.Environment {
		b.WriteString("- " + v.Name + "=" + v.Value + "\n")
	}
	b.WriteString("\n")

	b.WriteString("**Available skills across all repositories:**\n")
	b.WriteString(RenderListings(c))

	if c.Warning != "" {
		b.WriteString("\n\n⚠️ " + c.Warning)
	}
	b.WriteString("\n</EXTREMELY_IMPORTANT>")

	return b.String()
}

// RenderListings joins each repository's non-empty listing under its
// header, separated by blank lines.
func RenderListings(c Context) string {
	parts := make([]string, 0, len(c.SkillInventory))
	for _, r := range c.SkillInventory {
		if r.Listing == "" {
			continue
		}
		parts = append(parts, listingHeader+r.Name+"\n"+r.Listing)
	}
	return strings.Join(parts, "\n\n")
}
