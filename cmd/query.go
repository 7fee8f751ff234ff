package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var queryString string

// QueryOutput is the JSON form of a hand-written statement's result.
type QueryOutput struct {
	Query    string           `json:"query"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

var queryCmd = &cobra.Command{
	Use:   "query [cypher]",
	Short: "Run a read-only Cypher statement",
	Long: `Execute a hand-written Cypher statement against Neo4j and print the rows
as JSON. The statement goes through the same safety check as generated
queries: CREATE, MERGE, SET, DELETE, DETACH DELETE and REMOVE are refused.

Examples:
  cypherqa query "MATCH (n) RETURN labels(n) AS labels, count(*) AS n"
  cypherqa query --cypher "MATCH (m:Movie) RETURN m.title LIMIT 5"`,
	Run: func(cmd *cobra.Command, args []string) {
		statement := queryString
		if statement == "" {
			statement = strings.Join(args, " ")
		}
		if strings.TrimSpace(statement) == "" {
			HandleError(fmt.Errorf("query is required"), "Missing query parameter")
		}

		ctx := context.Background()
		app, cleanup, err := InitApp(ctx, dataDir, InitOptions{SkipGenerator: true})
		if err != nil {
			HandleError(err, "Failed to initialize")
		}
		defer cleanup()

		query, result, err := app.Session.Execute(ctx, statement)
		if err != nil {
			HandleError(err, "Failed to execute query")
		}

		output, err := json.MarshalIndent(QueryOutput{
			Query:    query.String(),
			Columns:  result.Columns,
			Rows:     result.Rows,
			RowCount: result.Len(),
		}, "", "  ")
		if err != nil {
			HandleError(err, "Failed to encode JSON")
		}

		fmt.Println(string(output))
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryString, "cypher", "c", "", "Cypher statement to execute")
	rootCmd.AddCommand(queryCmd)
}
