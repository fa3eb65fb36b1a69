package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adalundhe/uni/core/mirror"
)

// =============================================================================
// Output Format Type
// =============================================================================

// StatusOutputFormat represents the output format of the status command.
type StatusOutputFormat string

const (
	// StatusOutputAuto picks table on a terminal and plain otherwise.
	StatusOutputAuto StatusOutputFormat = ""
	// StatusOutputTable outputs an aligned, styled table.
	StatusOutputTable StatusOutputFormat = "table"
	// StatusOutputPlain outputs tab-separated values.
	StatusOutputPlain StatusOutputFormat = "plain"
	// StatusOutputJSON outputs as JSON.
	StatusOutputJSON StatusOutputFormat = "json"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of every mirror without fetching",
	Long: `Inspect every configured mirror and show its branch, the ref it tracks and
how the local branch relates to it. Nothing is fetched or modified, so the
result reflects the last fetch.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "", "Output format (table, plain, json; default table on a terminal)")
}

// statusRow is the inspected state of one mirror.
type statusRow struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Cloned   bool   `json:"cloned"`
	Branch   string `json:"branch"`
	Want     string `json:"configuredBranch"`
	Tracking string `json:"trackingRef,omitempty"`
	State    string `json:"state"`
	Local    string `json:"localCommit,omitempty"`
	Remote   string `json:"remoteCommit,omitempty"`
	Error    string `json:"error,omitempty"`

	relation mirror.Relation
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format, err := parseStatusFormat(statusFormat)
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	rows := collectStatus(cfg)

	out := cmd.OutOrStdout()
	if format == StatusOutputAuto {
		format = StatusOutputPlain
		if isTerminal(out) {
			format = StatusOutputTable
		}
	}

	switch format {
	case StatusOutputJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case StatusOutputTable:
		return writeStatusTable(out, rows)
	default:
		return writeStatusPlain(out, rows)
	}
}

func parseStatusFormat(s string) (StatusOutputFormat, error) {
	switch f := StatusOutputFormat(strings.ToLower(s)); f {
	case StatusOutputAuto, StatusOutputTable, StatusOutputPlain, StatusOutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown status format %q (want table, plain or json)", s)
}

func collectStatus(cfg *runConfig) []statusRow {
	descriptors := cfg.store.Descriptors()
	rows := make([]statusRow, 0, len(descriptors))

	for _, d := range descriptors {
		row := statusRow{
			Name: d.Name,
			Path: cfg.layout.MirrorPath(d.Name),
			Want: d.Branch,
		}
		if !mirror.IsClone(row.Path) {
			row.State = "not cloned"
			rows = append(rows, row)
			continue
		}
		row.Cloned = true

		state, err := mirror.Inspect(row.Path)
		if err != nil {
			row.Error = err.Error()
		}
		row.relation = mirror.Classify(state)
		row.Branch = state.CurrentBranch
		row.Tracking = shortRef(state.TrackingRef)
		row.State = row.relation.String()
		row.Local = state.LocalCommit
		row.Remote = state.RemoteCommit
		rows = append(rows, row)
	}
	return rows
}

func shortRef(ref string) string {
	return strings.TrimPrefix(ref, "refs/remotes/")
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

func (r statusRow) cells() []string {
	branch := r.Branch
	if r.Cloned && branch != r.Want {
		branch = fmt.Sprintf("%s (want %s)", orDash(branch), r.Want)
	}
	return []string{r.Name, orDash(branch), orDash(r.Tracking), r.State, orDash(shortHash(r.Local)), orDash(shortHash(r.Remote))}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var statusHeaders = []string{"REPOSITORY", "BRANCH", "TRACKING", "STATE", "LOCAL", "REMOTE"}

const stateColumn = 3

func writeStatusPlain(w io.Writer, rows []statusRow) error {
	if _, err := fmt.Fprintln(w, strings.Join(statusHeaders, "\t")); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(r.cells(), "\t")); err != nil {
			return err
		}
	}
	return nil
}

func writeStatusTable(w io.Writer, rows []statusRow) error {
	cells := make([][]string, len(rows))
	widths := make([]int, len(statusHeaders))
	for i, h := range statusHeaders {
		widths[i] = lipgloss.Width(h)
	}
	for r, row := range rows {
		cells[r] = row.cells()
		for i, c := range cells[r] {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	var b strings.Builder
	for i, h := range statusHeaders {
		b.WriteString(header.Width(widths[i] + 2).Render(h))
	}
	b.WriteString("\n")

	for r, row := range cells {
		for i, c := range row {
			style := lipgloss.NewStyle().Width(widths[i] + 2)
			if i == stateColumn {
				style = style.Foreground(stateColor(rows[r]))
			}
			b.WriteString(style.Render(c))
		}
		if rows[r].Error != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(rows[r].Error))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func stateColor(r statusRow) lipgloss.Color {
	if !r.Cloned {
		return lipgloss.Color("241")
	}
	switch r.relation {
	case mirror.RelationEqual:
		return lipgloss.Color("34")
	case mirror.RelationBehind:
		return lipgloss.Color("3")
	case mirror.RelationAhead, mirror.RelationDiverged:
		return lipgloss.Color("1")
	}
	return lipgloss.Color("241")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
