package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cypherqa/internal/cypher"
)

var validateCmd = &cobra.Command{
	Use:   "validate [cypher]",
	Short: "Check that a Cypher statement is read-only",
	Long: `Run the safety check on a Cypher statement without connecting to
anything. Prints the normalized statement, or the mutating keyword that was
found.

Example:
  cypherqa validate "MATCH (n:Person) RETURN n.name"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query, err := cypher.Validate(strings.Join(args, " "))
		if err != nil {
			var unsafe *cypher.UnsafeQueryError
			if errors.As(err, &unsafe) {
				fmt.Fprintf(os.Stderr, "Refused: contains %s\n", unsafe.Keyword)
				os.Exit(1)
			}
			HandleError(err, "Invalid statement")
		}
		fmt.Println(query.String())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
