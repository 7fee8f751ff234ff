package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"cypherqa/internal/agent"
)

// exitCommands end an interactive session.
var exitCommands = map[string]bool{"exit": true, "quit": true, "q": true}

// IsExitCommand reports whether line asks to leave the prompt loop.
func IsExitCommand(line string) bool {
	return exitCommands[strings.ToLower(strings.TrimSpace(line))]
}

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string) (*agent.Answer, error)
}

// RunLineLoop reads questions from in, one per line, and writes each answer
// to out. Blank lines are skipped; exit, quit or q stops the loop.
func RunLineLoop(ctx context.Context, asker Asker, in io.Reader, out io.Writer, showQuery bool) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if IsExitCommand(line) {
			return nil
		}

		answer, err := asker.Ask(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n\n", err)
			continue
		}
		writeAnswer(out, answer, showQuery)
	}
}

func writeAnswer(out io.Writer, answer *agent.Answer, showQuery bool) {
	if showQuery && answer.Query != "" && answer.Status == agent.StatusSuccess {
		fmt.Fprintf(out, "Cypher: %s\n\n", answer.Query)
	}
	fmt.Fprintln(out, strings.TrimRight(answer.Text, "\n"))
	fmt.Fprintln(out)
}
