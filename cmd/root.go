package cmd

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	rootCmd = &cobra.Command{
		Use:   "cypherqa",
		Short: "Ask questions about a Neo4j graph in plain language",
		Long: `cypherqa answers natural-language questions about a Neo4j graph database.
Each question is turned into a read-only Cypher query, checked, run, and
repaired when the database rejects it, up to three attempts per question.

When run without commands on a terminal, it launches an interactive prompt.
With piped input it reads one question per line.
Use subcommands for CLI mode.

Requires ANTHROPIC_API_KEY, NEO4J_URI, NEO4J_USERNAME and NEO4J_PASSWORD.`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, cleanup, err := InitApp(ctx, dataDir, InitOptions{})
			if err != nil {
				HandleError(err, "Failed to initialize")
			}
			defer cleanup()

			if isatty.IsTerminal(os.Stdin.Fd()) && LaunchTUI != nil {
				if err := LaunchTUI(app); err != nil {
					HandleError(err, "Interactive session failed")
				}
				return
			}
			if err := RunLineLoop(ctx, app.Session, os.Stdin, os.Stdout, false); err != nil {
				HandleError(err, "Reading questions failed")
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", ".cypherqa/", "Directory for the local store, config file and logs")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
