package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"cypherqa/internal/store"
)

var (
	historyLimit int
	historyStats bool
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List recently asked questions",
	Long: `List the questions answered on this machine, newest first, as JSON.
With an id, show that question together with every failed attempt.
With --stats, summarize outcomes and failure kinds instead.

Only the local store is read; no connection to Neo4j is made.

Examples:
  cypherqa history --limit 5
  cypherqa history 1f0c2a3e-...
  cypherqa history --stats`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var logger *slog.Logger
		if SetupLogger != nil {
			l, err := SetupLogger(dataDir)
			if err != nil {
				HandleError(err, "Failed to setup logger")
			}
			logger = l
		}

		db, err := store.Open(dataDir, logger)
		if err != nil {
			HandleError(err, "Failed to open store")
		}
		defer db.Close()

		ctx := context.Background()
		var result any
		switch {
		case historyStats:
			result, err = db.HistoryStats(ctx)
		case len(args) == 1:
			result, err = db.Question(ctx, args[0])
		default:
			result, err = db.RecentQuestions(ctx, historyLimit)
		}
		if err != nil {
			HandleError(err, "Failed to read history")
		}

		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			HandleError(err, "Failed to encode JSON")
		}
		fmt.Println(string(output))
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum number of questions to list")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "Summarize outcomes instead of listing questions")
	rootCmd.AddCommand(historyCmd)
}
