package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"cypherqa/internal/agent"
)

var (
	askCopy      bool
	askJSON      bool
	askShowQuery bool
)

// AnswerOutput is the JSON form of an answer.
type AnswerOutput struct {
	ID       string           `json:"id"`
	Question string           `json:"question"`
	Status   string           `json:"status"`
	Answer   string           `json:"answer"`
	Query    string           `json:"query,omitempty"`
	Columns  []string         `json:"columns,omitempty"`
	Rows     []map[string]any `json:"rows,omitempty"`
	Attempts int              `json:"attempts"`
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a natural-language question from the graph",
	Long: `Ask a natural-language question. The question is translated into a
read-only Cypher query, run against Neo4j, repaired if the database rejects
it, and the results are summarized in plain language.

Example:
  cypherqa ask "Which five actors appeared in the most movies?"
  cypherqa ask --json "How many books were published each year?"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		question := strings.Join(args, " ")

		ctx := context.Background()
		app, cleanup, err := InitApp(ctx, dataDir, InitOptions{})
		if err != nil {
			HandleError(err, "Failed to initialize")
		}
		defer cleanup()

		answer, err := app.Session.Ask(ctx, question)
		if err != nil {
			HandleError(err, "Failed to answer question")
		}

		if query, ok := copyableQuery(answer); askCopy && ok {
			if err := clipboard.WriteAll(query); err != nil {
				app.Logger.Warn("Failed to copy query to clipboard", "error", err)
			}
		}

		if askJSON {
			output, err := json.MarshalIndent(NewAnswerOutput(answer), "", "  ")
			if err != nil {
				HandleError(err, "Failed to encode JSON")
			}
			fmt.Println(string(output))
		} else {
			writeAnswer(os.Stdout, answer, askShowQuery)
		}

		if answer.Status != agent.StatusSuccess {
			cleanup()
			os.Exit(2)
		}
	},
}

// copyableQuery returns the executed query of a successful answer. Failed
// answers carry the last rejected candidate, which is never copied.
func copyableQuery(a *agent.Answer) (string, bool) {
	if a.Status != agent.StatusSuccess || a.Query == "" {
		return "", false
	}
	return a.Query, true
}

// NewAnswerOutput converts an answer to its JSON form.
func NewAnswerOutput(a *agent.Answer) AnswerOutput {
	out := AnswerOutput{
		ID:       a.ID,
		Question: a.Question,
		Status:   a.Status,
		Answer:   a.Text,
		Query:    a.Query,
	}
	if a.Outcome != nil {
		out.Attempts = a.Outcome.AttemptsUsed
	}
	if a.Result != nil {
		out.Columns = a.Result.Columns
		out.Rows = a.Result.Rows
	}
	return out
}

func init() {
	askCmd.Flags().BoolVar(&askCopy, "copy", false, "Copy the executed Cypher query to the clipboard")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the answer, query and rows as JSON")
	askCmd.Flags().BoolVar(&askShowQuery, "show-query", false, "Print the executed Cypher query before the answer")
	rootCmd.AddCommand(askCmd)
}
