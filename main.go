package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"cypherqa/cmd"
	"cypherqa/internal/agent"
)

var logger *slog.Logger

// setupLogger creates and configures the application logger
func setupLogger(dataDir string) (*slog.Logger, error) {
	if logger != nil {
		return logger, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	logPath := filepath.Join(dataDir, "err.log")

	// Create log file
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create JSON handler for structured logging
	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true, // Include file:line information
	})

	logger = slog.New(handler)
	logger.Info("Application started", "version", "1.0", "data_dir", dataDir)

	return logger, nil
}

// renderMarkdown renders markdown content with glamour for terminal display
func renderMarkdown(content string, width int) (string, error) {
	// Account for borders, padding, and glamour's internal gutter
	const glamourGutter = 2
	const borderWidth = 4

	renderWidth := width - borderWidth - glamourGutter
	if renderWidth < 40 {
		renderWidth = 40 // Minimum width for readable content
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return "", err
	}

	return renderer.Render(content)
}

// exchange is one question and its answer in the transcript.
type exchange struct {
	question string
	answer   *agent.Answer
	err      error
}

type model struct {
	asker         cmd.Asker
	input         textinput.Model
	spinner       spinner.Model
	viewport      viewport.Model
	transcript    []exchange
	lastQuery     string
	width         int
	height        int
	asking        bool
	status        string
	viewportReady bool
}

type answerMsg struct {
	question string
	answer   *agent.Answer
	err      error
}

func askQuestion(asker cmd.Asker, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := asker.Ask(context.Background(), question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

func initialModel(asker cmd.Asker) model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question about the graph (exit to quit)..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))

	return model{
		asker:    asker,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 20),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6

		// Reserve lines for the header, the input box, status and help text
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 8
		m.viewportReady = true
		m.updateTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.asking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case answerMsg:
		m.asking = false
		m.transcript = append(m.transcript, exchange{question: msg.question, answer: msg.answer, err: msg.err})
		if msg.err != nil {
			if logger != nil {
				logger.Error("Question failed", "error", msg.err, "question", msg.question)
			}
		} else if msg.answer.Status == agent.StatusSuccess {
			m.lastQuery = msg.answer.Query
		}
		m.updateTranscript()
		m.viewport.GotoBottom()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		if m.asking {
			return m, nil
		}
		question := strings.TrimSpace(m.input.Value())
		if question == "" {
			return m, nil
		}
		if cmd.IsExitCommand(question) {
			return m, tea.Quit
		}
		m.input.SetValue("")
		m.asking = true
		m.status = ""
		return m, tea.Batch(askQuestion(m.asker, question), m.spinner.Tick)

	case tea.KeyCtrlY:
		if m.lastQuery != "" {
			if err := clipboard.WriteAll(m.lastQuery); err != nil {
				m.status = fmt.Sprintf("Copy failed: %v", err)
			} else {
				m.status = "Copied last query to clipboard"
			}
		}
		return m, nil

	// Scrolling keys
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// transcriptMarkdown renders every exchange so far as one markdown document.
func (m model) transcriptMarkdown() string {
	var b strings.Builder
	for _, ex := range m.transcript {
		fmt.Fprintf(&b, "### %s\n\n", ex.question)
		if ex.err != nil {
			fmt.Fprintf(&b, "**Error:** %v\n\n", ex.err)
			continue
		}
		b.WriteString(ex.answer.Text)
		b.WriteString("\n\n")
		if ex.answer.Status == agent.StatusSuccess {
			fmt.Fprintf(&b, "```cypher\n%s\n```\n\n", ex.answer.Query)
			b.WriteString(agent.FormatTable(ex.answer.Result))
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

func (m *model) updateTranscript() {
	if !m.viewportReady {
		return
	}
	content := m.transcriptMarkdown()
	if content == "" {
		m.viewport.SetContent("")
		return
	}
	rendered, err := renderMarkdown(content, m.width)
	if err != nil {
		if logger != nil {
			logger.Warn("Markdown rendering failed", "error", err)
		}
		rendered = content
	}
	m.viewport.SetContent(rendered)
}

func (m model) View() string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62"))
	b.WriteString(headerStyle.Render("Graph Q&A"))
	b.WriteString("\n")

	if m.viewportReady {
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	}

	inputStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n")

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("226")).
		Bold(true)
	if m.asking {
		b.WriteString(m.spinner.View())
		b.WriteString(statusStyle.Render(" Writing and running a query..."))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render("Enter: Ask | ↑/↓/PgUp/PgDn: Scroll | Ctrl+Y: Copy query | exit/quit/q or Esc: Quit"))

	return b.String()
}

// launchTUI starts the interactive prompt
func launchTUI(app *cmd.App) error {
	p := tea.NewProgram(
		initialModel(app.Session),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	return err
}

func main() {
	// Set up cmd package callbacks
	cmd.LaunchTUI = launchTUI
	cmd.StartServer = serveApp
	cmd.SetupLogger = setupLogger

	// Execute the CLI
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
