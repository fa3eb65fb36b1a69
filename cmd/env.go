package cmd

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/adalundhe/uni/core/discovery"
)

var envDotenv bool

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the skill environment variables",
	Long: `Print UNI_ROOT, UNI_SKILLS and one UNI_SKILL_<REPOSITORY>_<SKILL> variable
per discovered skill as shell export statements, e.g.

  eval "$(uni env)"`,
	Args: cobra.NoArgs,
	RunE: runEnv,
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolVar(&envDotenv, "dotenv", false, "Output KEY=\"value\" lines for a .env file")
}

func runEnv(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	inv := discovery.NewDiscoverer(discovery.Config{Logger: logger}).Discover(cmd.Context(), cfg.mirrors())
	env := discovery.BuildEnvironment(cfg.layout.Root, inv)

	out := cmd.OutOrStdout()
	if envDotenv {
		text, err := godotenv.Marshal(env.Map())
		if err != nil {
			return fmt.Errorf("formatting environment: %w", err)
		}
		fmt.Fprintln(out, text)
		return nil
	}

	for _, v := range env.Variables() {
		fmt.Fprintf(out, "export %s=%s\n", v.Name, shellQuote(v.Value))
	}
	return nil
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
