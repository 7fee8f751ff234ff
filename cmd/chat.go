package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"charm.land/fantasy"
	"github.com/spf13/cobra"

	"cypherqa/internal/agent"
	"cypherqa/internal/llm"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Explore the graph with a tool-using assistant",
	Long: `Talk to an assistant that can call this program's own commands as tools:
it reads the schema, asks questions through the query pipeline, validates
and runs Cypher. With a message argument it answers once; without one it
reads messages from stdin until exit, quit or q.

Example:
  cypherqa chat "What kinds of things are in this graph, and how are they connected?"`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app, cleanup, err := InitApp(ctx, dataDir, InitOptions{})
		if err != nil {
			HandleError(err, "Failed to initialize")
		}
		defer cleanup()

		model, err := llm.NewFantasyModel(ctx, app.Config.LLM.APIKey, app.Config.LLM.Model, app.Config.LLM.BaseURL)
		if err != nil {
			HandleError(err, "Failed to create model")
		}
		chatAgent := agent.NewChatAgent(model, rootCmd, app.Session)

		if len(args) > 0 {
			reply, err := chatTurn(ctx, chatAgent, strings.Join(args, " "))
			if err != nil {
				HandleError(err, "Failed to generate response")
			}
			fmt.Println(reply)
			return
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("you> ")
			if !scanner.Scan() {
				fmt.Println()
				return
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if IsExitCommand(line) {
				return
			}
			reply, err := chatTurn(ctx, chatAgent, line)
			if err != nil {
				app.Logger.Error("Chat turn failed", "error", err)
				fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
				continue
			}
			fmt.Printf("%s\n\n", reply)
		}
	},
}

func chatTurn(ctx context.Context, a fantasy.Agent, message string) (string, error) {
	result, err := a.Generate(ctx, fantasy.AgentCall{Prompt: message})
	if err != nil {
		return "", err
	}
	return result.Response.Content.Text(), nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
