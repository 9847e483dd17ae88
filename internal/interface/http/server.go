// Package http is the thin REST boundary over the query pipeline. It does
// request decoding, validation and JSON encoding; all semantics live in the
// usecase layer.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/zhang-liz/Enterprise-rag-system/internal/usecase/query"
)

// QueryProcessor answers validated queries. Satisfied by *query.Pipeline.
type QueryProcessor interface {
	Process(ctx context.Context, req *query.QueryRequest) *query.Answer
}

// StatsProvider reports store-level statistics. Satisfied by the graph,
// vector and query-log stores.
type StatsProvider interface {
	Statistics(ctx context.Context) (map[string]any, error)
}

// Server holds the dependencies for the HTTP API server.
type Server struct {
	pipeline QueryProcessor
	stats    map[string]StatsProvider
}

// NewServer initializes the API server. Entries in stats map a section name
// ("graph", "vector", "queries") to its provider; nil providers are skipped.
func NewServer(pipeline QueryProcessor, stats map[string]StatsProvider) *Server {
	return &Server{
		pipeline: pipeline,
		stats:    stats,
	}
}

// RegisterRoutes registers all API endpoints with a new ServeMux.
func (s *Server) RegisterRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Go 1.22+ supports HTTP method routing directly in ServeMux
	mux.HandleFunc("POST /api/v1/query", s.handleQuery)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	return mux
}

type queryPayload struct {
	Query   string         `json:"query"`
	UserID  string         `json:"user_id,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var payload queryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request payload"})
		return
	}

	req, err := query.NewQueryRequest(payload.Query, payload.UserID, payload.Context)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	answer := s.pipeline.Process(r.Context(), req)
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]any, len(s.stats))
	for section, provider := range s.stats {
		if provider == nil {
			continue
		}
		stats, err := provider.Statistics(r.Context())
		if err != nil {
			log.Printf("[Server] Stats for %s failed: %v", section, err)
			out[section] = map[string]any{"error": err.Error()}
			continue
		}
		out[section] = stats
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[Server] Failed to encode response: %v", err)
	}
}
