package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adalundhe/uni/core/discovery"
	"github.com/adalundhe/uni/core/session"
	"github.com/adalundhe/uni/skills"
)

// ErrInvalidSkills indicates list --check found skills breaking naming rules.
var ErrInvalidSkills = errors.New("skills failed validation")

var (
	listJSON  bool
	listCheck bool
)

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List the skills available in every mirror",
	Long: `List the skills of every mirror without synchronizing anything.

The optional pattern is a glob matched against skill names. Mirrors that
ship their own listing executable receive the pattern as its argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output the inventory as JSON")
	listCmd.Flags().BoolVar(&listCheck, "check", false, "Validate skill names and descriptions")
}

func runList(cmd *cobra.Command, args []string) error {
	var pattern string
	if len(args) == 1 {
		pattern = args[0]
	}
	if _, err := discovery.CompileFilter(pattern); err != nil {
		return err
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	d := discovery.NewDiscoverer(discovery.Config{Filter: pattern, Logger: logger})
	inv := d.Discover(cmd.Context(), cfg.mirrors())

	out := cmd.OutOrStdout()
	if listCheck {
		return checkSkills(out, inv)
	}
	if listJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(inv)
	}

	listings := session.RenderListings(session.Context{SkillInventory: inv.Repositories})
	if listings == "" {
		fmt.Fprintln(out, "No skills found.")
		return nil
	}
	fmt.Fprintln(out, listings)
	return nil
}

// checkSkills prints one line per rule a discovered skill breaks.
func checkSkills(out io.Writer, inv discovery.Inventory) error {
	failed := 0
	for _, e := range inv.Entries() {
		s, err := skills.Read(filepath.Dir(e.Path))
		if err == nil {
			err = skills.Validate(s)
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s/%s: %v\n", e.Repository, e.Name, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalidSkills, failed, len(inv.Entries()))
	}
	fmt.Fprintf(out, "%d skills OK\n", len(inv.Entries()))
	return nil
}
