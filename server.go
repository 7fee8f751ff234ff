package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cypherqa/cmd"
	"cypherqa/internal/agent"
)

// ServerConfig holds configuration for the web server
type ServerConfig struct {
	Port    int
	Backend agent.ToolBackend
	History HistoryStore
}

// NewRouter builds the routes shared by the browser page and the JSON API
func NewRouter(config ServerConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Web handlers (HTMX HTML responses)
	webHandler := NewWebHandler(config.Backend)
	r.Get("/", webHandler.AskPage)
	r.Post("/ask", webHandler.AskResult)

	// API handlers (JSON responses)
	apiHandler := &APIHandler{Backend: config.Backend, HistoryStore: config.History}
	r.Route("/api", func(r chi.Router) {
		r.Post("/ask", apiHandler.Ask)
		r.Post("/query", apiHandler.Query)
		r.Post("/validate", apiHandler.Validate)
		r.Get("/schema", apiHandler.Schema)
		r.Get("/history", apiHandler.History)
		r.Get("/history/{id}", apiHandler.HistoryEntry)
	})

	return r
}

// StartServer initializes and starts the HTTP server
func StartServer(config ServerConfig) error {
	addr := fmt.Sprintf(":%d", config.Port)
	log.Printf("Starting server on http://localhost%s", addr)
	return http.ListenAndServe(addr, NewRouter(config))
}

// serveApp starts the server for an initialized application
func serveApp(app *cmd.App, port int) error {
	return StartServer(ServerConfig{
		Port:    port,
		Backend: app.Session,
		History: app.Store,
	})
}
