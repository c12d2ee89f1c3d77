package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "llm-compare",
	Short: "Compare language models side by side with an LLM judge",
	Long: `llm-compare runs a use case (an ordered list of test prompts) against one to
three language models, scores every answer on qualitative dimensions with a
separate judge model and produces an aggregated comparison with a recommendation.

Runs can be driven from the command line, through the HTTP API with server-sent
event progress, or through MCP tools.

When run without subcommands, it starts the server (equivalent to 'llm-compare serve').`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

// serveCmd is stored so the root command can delegate to it by default.
var serveCmd *cobra.Command

var (
	buildCommit = "unknown"
	buildDate   = "unknown"
)

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// SetBuildInfo sets the commit and build date for the version command.
func SetBuildInfo(commit, date string) {
	buildCommit = commit
	buildDate = date
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "llm-compare version %s\n" .Version}}`)

	// The root command cannot parse serve-specific flags, so it runs serve
	// with its defaults.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(os.Stderr, "No subcommand specified. Defaulting to 'serve'.")
		fmt.Fprintln(os.Stderr)
		return serveCmd.RunE(serveCmd, args)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// catalogDirFlag reads --catalog-dir from the root command, where it is
// parsed even when a subcommand is invoked directly by the root's RunE.
func catalogDirFlag(cmd *cobra.Command) string {
	dir, _ := cmd.Root().PersistentFlags().GetString("catalog-dir")
	return dir
}

func init() {
	serveCmd = newServeCmd()
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newListCmd())

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("catalog-dir", "", "External catalog directory (use-cases/, models.yaml, dimensions.yaml)")
}
