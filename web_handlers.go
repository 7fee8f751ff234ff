package main

import (
	"embed"
	"html/template"
	"log"
	"net/http"
	"strings"

	"cypherqa/internal/agent"
)

//go:embed templates
var templateFS embed.FS

// WebHandler handles HTMX HTML requests
type WebHandler struct {
	Backend   agent.ToolBackend
	templates *template.Template
}

// answerView is the data behind the answer partial
type answerView struct {
	Question  string
	Text      string
	Query     string
	Table     string
	Succeeded bool
}

// NewWebHandler creates a new WebHandler with parsed templates
func NewWebHandler(backend agent.ToolBackend) *WebHandler {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/*.html", "templates/partials/*.html"))
	return &WebHandler{
		Backend:   backend,
		templates: tmpl,
	}
}

// AskPage renders the main question page
func (h *WebHandler) AskPage(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":    "Graph Q&A",
		"Question": r.URL.Query().Get("q"),
	}

	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// AskResult answers the submitted question and returns the answer partial
func (h *WebHandler) AskResult(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		// Nothing to answer; leave the page unchanged
		w.WriteHeader(http.StatusNoContent)
		return
	}

	answer, err := h.Backend.Ask(r.Context(), question)
	if err != nil {
		log.Printf("Ask error: %v", err)
		http.Error(w, "Failed to answer question: "+err.Error(), http.StatusInternalServerError)
		return
	}

	view := answerView{
		Question:  answer.Question,
		Text:      answer.Text,
		Succeeded: answer.Status == agent.StatusSuccess,
	}
	if view.Succeeded {
		view.Query = answer.Query
		view.Table = agent.FormatTable(answer.Result)
	}

	if err := h.templates.ExecuteTemplate(w, "answer.html", view); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
