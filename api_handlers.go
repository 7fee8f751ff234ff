package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"cypherqa/cmd"
	"cypherqa/internal/agent"
	"cypherqa/internal/cypher"
	"cypherqa/internal/graph"
	"cypherqa/internal/store"
)

// HistoryStore is the read side of the question history. *store.DB
// implements it.
type HistoryStore interface {
	RecentQuestions(ctx context.Context, limit int) ([]store.HistoryEntry, error)
	Question(ctx context.Context, id string) (*store.HistoryEntry, error)
}

// APIHandler handles JSON API requests
type APIHandler struct {
	Backend      agent.ToolBackend
	HistoryStore HistoryStore
}

type askRequest struct {
	Question string `json:"question"`
}

type queryRequest struct {
	Query string `json:"query"`
}

// Ask handles API requests for natural-language questions
func (h *APIHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid JSON body",
		})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "question is required",
		})
		return
	}

	answer, err := h.Backend.Ask(r.Context(), question)
	if err != nil {
		log.Printf("Ask error: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to answer question: " + err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, cmd.NewAnswerOutput(answer))
}

// Query handles API requests for hand-written Cypher statements
func (h *APIHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid JSON body",
		})
		return
	}

	query, result, err := h.Backend.Execute(r.Context(), req.Query)
	if err != nil {
		var unsafe *cypher.UnsafeQueryError
		var execErr *graph.ExecutionError
		switch {
		case errors.As(err, &unsafe):
			respondJSON(w, http.StatusBadRequest, map[string]string{
				"error":   err.Error(),
				"keyword": unsafe.Keyword,
			})
		case errors.Is(err, cypher.ErrEmptyQuery):
			respondJSON(w, http.StatusBadRequest, map[string]string{
				"error": "query is required",
			})
		case errors.As(err, &execErr):
			respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": err.Error(),
			})
		default:
			log.Printf("Query error: %v", err)
			respondJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Query failed: " + err.Error(),
			})
		}
		return
	}

	respondJSON(w, http.StatusOK, cmd.QueryOutput{
		Query:    query.String(),
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: result.Len(),
	})
}

// Validate checks a statement without running it
func (h *APIHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid JSON body",
		})
		return
	}

	query, err := cypher.Validate(req.Query)
	if err != nil {
		resp := map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		}
		var unsafe *cypher.UnsafeQueryError
		if errors.As(err, &unsafe) {
			resp["keyword"] = unsafe.Keyword
		}
		respondJSON(w, http.StatusOK, resp)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"query": query.String(),
	})
}

// Schema returns the schema description given to the model
func (h *APIHandler) Schema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.Backend.Schema(r.Context())
	if err != nil {
		log.Printf("Schema error: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "Schema unavailable: " + err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"schema": schema,
	})
}

// History lists recently answered questions
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	entries, err := h.HistoryStore.RecentQuestions(r.Context(), limit)
	if err != nil {
		log.Printf("History error: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"questions": entries,
		"count":     len(entries),
	})
}

// HistoryEntry returns one stored question with its failed attempts
func (h *APIHandler) HistoryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.HistoryStore.Question(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrQuestionNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{
				"error": "Question not found",
			})
			return
		}
		log.Printf("Database error: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// respondJSON is a helper function to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("JSON encoding error: %v", err)
	}
}
