// Package cmd provides the uni command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// ErrReported marks a failure whose structured message was already written
// to stderr. Callers should exit non-zero without printing it again.
var ErrReported = errors.New("failure already reported")

// =============================================================================
// Global Flags
// =============================================================================

var (
	rootDir     string
	configPath  string
	reposFile   string
	repoTriples []string
	logLevel    string
	envFile     string
)

// logger is replaced in setupRun once flags are parsed.
var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

var rootCmd = &cobra.Command{
	Use:   "uni",
	Short: "uni - skill repository mirrors for coding sessions",
	Long: `uni keeps local clones of skill repositories in sync with their remote
branches and reports the skills available in them.

Without a subcommand uni runs the session-start hook: every mirror is
synchronized, skills are discovered, and one JSON document is printed on
standard output.`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRun,
	RunE:              runSessionStart,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootDir, "root", "", "Root directory for mirrors (default $UNI_ROOT, then $XDG_CONFIG_HOME/uni)")
	flags.StringVar(&configPath, "config", "", "Settings file (default /workspace/.uni/config.json, then ./.uni/config.json)")
	flags.StringVar(&reposFile, "repos-file", "", "YAML file listing repositories")
	flags.StringArrayVar(&repoTriples, "repo", nil, "Repository as name|url|branch (repeatable)")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&envFile, "env-file", ".env", "Environment file loaded before anything else")

	addSessionFlags(rootCmd)
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which cancels in-flight
// git subprocesses when done.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// setupRun loads the env file and configures logging. Every command runs
// it before doing any work.
func setupRun(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFile(cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	logger = slog.New(handler).With(
		slog.String("run_id", uuid.NewString()),
		slog.String("command", cmd.Name()),
	)
	return nil
}

// loadEnvFile applies envFile without overriding variables already set. A
// missing default file is ignored; a missing explicit one is an error.
func loadEnvFile(explicit bool) error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("loading env file %s: %w", envFile, err)
	}
	return nil
}
