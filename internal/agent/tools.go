package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"charm.land/fantasy"
	"github.com/spf13/cobra"

	"cypherqa/internal/cypher"
	"cypherqa/internal/graph"
)

const chatSystemPrompt = "You are a helpful assistant for exploring a Neo4j graph database. " +
	"Use the schema tool to learn what the graph contains and the ask tool to answer questions from its data. " +
	"Never invent data: every fact about the graph must come from a tool result."

// ToolBackend is what the chat tools call into. *Session implements it.
type ToolBackend interface {
	Ask(ctx context.Context, question string) (*Answer, error)
	Schema(ctx context.Context) (string, error)
	Execute(ctx context.Context, statement string) (cypher.ValidatedQuery, *graph.Result, error)
}

type askInput struct {
	Question string `json:"question" description:"The natural-language question to answer from the graph"`
}

type queryInput struct {
	Query string `json:"query" description:"A read-only Cypher statement"`
}

type schemaInput struct{}

// toolBuilders maps command names to the tool that exposes them.
var toolBuilders = map[string]func(description string, backend ToolBackend) fantasy.AgentTool{
	"ask":      newAskTool,
	"schema":   newSchemaTool,
	"query":    newQueryTool,
	"validate": newValidateTool,
}

// CreateToolsFromCommands creates Fantasy tools for the registered Cobra
// commands that have a tool form, except for the specified exclusions
// (e.g., "serve", "chat").
func CreateToolsFromCommands(rootCmd *cobra.Command, backend ToolBackend, exclusions []string) []fantasy.AgentTool {
	var tools []fantasy.AgentTool

	for _, cobraCmd := range rootCmd.Commands() {
		skip := false
		for _, excl := range exclusions {
			if cobraCmd.Use == excl || strings.HasPrefix(cobraCmd.Use, excl) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		cmdName := strings.Split(cobraCmd.Use, " ")[0]
		build, ok := toolBuilders[cmdName]
		if !ok {
			continue
		}

		description := cobraCmd.Short
		if description == "" {
			description = fmt.Sprintf("Execute the %s command", cmdName)
		}
		tools = append(tools, build(description, backend))
	}

	return tools
}

// NewChatAgent creates a Fantasy agent whose tools are built from rootCmd.
func NewChatAgent(model fantasy.LanguageModel, rootCmd *cobra.Command, backend ToolBackend) fantasy.Agent {
	tools := CreateToolsFromCommands(rootCmd, backend, []string{"serve", "chat", "history"})
	return fantasy.NewAgent(
		model,
		fantasy.WithSystemPrompt(chatSystemPrompt),
		fantasy.WithTools(tools...),
	)
}

func newAskTool(description string, backend ToolBackend) fantasy.AgentTool {
	return fantasy.NewAgentTool("ask", description,
		func(ctx context.Context, input askInput, _ fantasy.ToolCall) (fantasy.ToolResponse, error) {
			if strings.TrimSpace(input.Question) == "" {
				return fantasy.NewTextErrorResponse("question parameter is required"), nil
			}
			answer, err := backend.Ask(ctx, input.Question)
			if err != nil {
				return fantasy.NewTextErrorResponse(err.Error()), nil
			}
			return jsonResponse(map[string]any{
				"status": answer.Status,
				"answer": answer.Text,
				"query":  answer.Query,
				"rows":   answer.Result.Len(),
			})
		})
}

func newSchemaTool(description string, backend ToolBackend) fantasy.AgentTool {
	return fantasy.NewAgentTool("schema", description,
		func(ctx context.Context, _ schemaInput, _ fantasy.ToolCall) (fantasy.ToolResponse, error) {
			schema, err := backend.Schema(ctx)
			if err != nil {
				return fantasy.NewTextErrorResponse(err.Error()), nil
			}
			return fantasy.NewTextResponse(schema), nil
		})
}

func newQueryTool(description string, backend ToolBackend) fantasy.AgentTool {
	return fantasy.NewAgentTool("query", description,
		func(ctx context.Context, input queryInput, _ fantasy.ToolCall) (fantasy.ToolResponse, error) {
			query, result, err := backend.Execute(ctx, input.Query)
			if err != nil {
				return fantasy.NewTextErrorResponse(err.Error()), nil
			}
			rows := result.Rows
			if len(rows) > previewRows {
				rows = rows[:previewRows]
			}
			return jsonResponse(map[string]any{
				"query":     query.String(),
				"columns":   result.Columns,
				"rows":      rows,
				"row_count": result.Len(),
			})
		})
}

func newValidateTool(description string, _ ToolBackend) fantasy.AgentTool {
	return fantasy.NewAgentTool("validate", description,
		func(ctx context.Context, input queryInput, _ fantasy.ToolCall) (fantasy.ToolResponse, error) {
			query, err := cypher.Validate(input.Query)
			if err != nil {
				return fantasy.NewTextErrorResponse(err.Error()), nil
			}
			return fantasy.NewTextResponse(query.String()), nil
		})
}

func jsonResponse(v any) (fantasy.ToolResponse, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fantasy.ToolResponse{}, fmt.Errorf("failed to encode result as JSON: %w", err)
	}
	return fantasy.NewTextResponse(string(jsonBytes)), nil
}
