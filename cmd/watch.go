package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/adalundhe/uni/core/mirror"
	"github.com/adalundhe/uni/core/watch"
)

var (
	watchDebounce time.Duration
	watchParallel int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-sync mirrors whenever the configuration changes",
	Long: `Synchronize every mirror once, then watch the settings file and the
repositories file and synchronize again each time one of them changes.

A configuration that fails validation is reported and the previous one
stays in effect. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before a change triggers a sync")
	watchCmd.Flags().IntVar(&watchParallel, "parallel", 1, "Number of repositories synchronized at once")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	files := []string{cfg.settingsPath}
	if reposFile != "" {
		files = append(files, reposFile)
	}
	w, err := watch.New(watch.Config{Files: files, Debounce: watchDebounce})
	if err != nil {
		return err
	}
	changes, err := w.Start(ctx)
	if err != nil {
		return fmt.Errorf("watching %v: %w", files, err)
	}

	writePass(out, runPool(ctx, cfg, watchParallel, false))

	for change := range changes {
		logger.Info("configuration changed", slog.Any("paths", change.Paths))

		next, err := loadRunConfig()
		if err != nil {
			fmt.Fprintf(out, "%s configuration rejected, keeping previous: %v\n", change.Time.Format(time.TimeOnly), err)
			continue
		}
		cfg = next
		writePass(out, runPool(ctx, cfg, watchParallel, false))
	}
	return nil
}

// writePass prints one line per repository of a sync pass.
func writePass(w io.Writer, report mirror.Report) {
	stamp := time.Now().Format(time.TimeOnly)
	for _, r := range report.Results {
		line := fmt.Sprintf("%s %s: %s", stamp, r.Descriptor.Name, r.Outcome)
		if r.Err != nil {
			line += " (" + r.Err.Error() + ")"
		}
		fmt.Fprintln(w, line)
	}
}
