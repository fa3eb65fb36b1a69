package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/adalundhe/uni/core/discovery"
	"github.com/adalundhe/uni/core/repos"
	"github.com/adalundhe/uni/core/session"
)

// =============================================================================
// Session Start Flags
// =============================================================================

var (
	sessionParallel int
	sessionFork     bool
	sessionFormat   string
)

var sessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Sync every mirror and print the session payload",
	Long: `Synchronize every configured repository, discover the skills they provide,
and print a single JSON document on standard output.

Mirrors are cloned when missing, moved to their configured branch, and
fast-forwarded when that is safe. A mirror that has diverged from its
remote is left untouched and reported as behind.`,
	Args: cobra.NoArgs,
	RunE: runSessionStart,
}

func init() {
	rootCmd.AddCommand(sessionStartCmd)
	addSessionFlags(sessionStartCmd)
}

// addSessionFlags registers the session-start flags on c. The root command
// carries them too because it runs session-start by default.
func addSessionFlags(c *cobra.Command) {
	c.Flags().IntVar(&sessionParallel, "parallel", 1, "Number of repositories synchronized at once")
	c.Flags().BoolVar(&sessionFork, "fork", false, "Fork core with the gh CLI after cloning it")
	c.Flags().StringVar(&sessionFormat, "format", "hook", "Output format (hook, json)")
}

// =============================================================================
// Session Start Command
// =============================================================================

func runSessionStart(cmd *cobra.Command, _ []string) error {
	format, err := session.ParseFormat(sessionFormat)
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return reportFatal(cmd, err)
	}

	ctx := cmd.Context()
	report := runPool(ctx, cfg, sessionParallel, sessionFork)

	inv := discovery.NewDiscoverer(discovery.Config{Logger: logger}).Discover(ctx, cfg.mirrors())
	c := session.Build(session.Input{
		Layout:      cfg.layout,
		Log:         report.Log(),
		Inventory:   inv,
		Environment: discovery.BuildEnvironment(cfg.layout.Root, inv),
	})

	logger.Info("session payload ready",
		slog.Int("repositories", len(report.Results)),
		slog.Bool("any_updated", report.Summary.AnyUpdated),
		slog.Bool("any_behind", report.Summary.AnyBehind))

	return session.Encode(cmd.OutOrStdout(), c, format)
}

// reportFatal writes configuration failures as the host's structured error
// on stderr. Other errors are returned unchanged.
func reportFatal(cmd *cobra.Command, err error) error {
	var cfgErr *repos.ConfigError
	if !errors.As(err, &cfgErr) {
		return err
	}

	logger.Debug("configuration rejected", slog.String("source", cfgErr.Source))
	if encErr := session.EncodeFatal(cmd.ErrOrStderr(), err); encErr != nil {
		return errors.Join(err, encErr)
	}
	return fmt.Errorf("%w: %w", ErrReported, err)
}
