package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	schemaRefresh bool
	schemaJSON    bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the graph schema used to write queries",
	Long: `Print the description of the Neo4j graph that is given to the model:
node labels with their properties, relationship types with their
properties, and the observed (a)-[r]->(b) patterns.

The description is cached in the local store; --refresh introspects the
database again.

Examples:
  cypherqa schema
  cypherqa schema --refresh
  cypherqa schema --json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app, cleanup, err := InitApp(ctx, dataDir, InitOptions{RefreshSchema: schemaRefresh, SkipGenerator: true})
		if err != nil {
			HandleError(err, "Failed to initialize")
		}
		defer cleanup()

		if schemaJSON {
			schema, err := app.Graph.Describe(ctx)
			if err != nil {
				HandleError(err, "Failed to introspect schema")
			}
			output, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				HandleError(err, "Failed to encode JSON")
			}
			fmt.Println(string(output))
			return
		}

		description, err := app.Session.Schema(ctx)
		if err != nil {
			HandleError(err, "Failed to load schema")
		}
		fmt.Println(description)
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaRefresh, "refresh", false, "Ignore the cached schema and introspect the database")
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "Print the structured schema as JSON (always introspects)")
	rootCmd.AddCommand(schemaCmd)
}
