// Package server exposes the queue, search and terms operations over HTTP.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aman-CERP/fulltextd/internal/domain"
	errs "github.com/Aman-CERP/fulltextd/internal/errors"
	"github.com/Aman-CERP/fulltextd/internal/metrics"
	"github.com/Aman-CERP/fulltextd/internal/queue"
	"github.com/Aman-CERP/fulltextd/internal/search"
)

// Server routes HTTP requests to the queue and the search engine.
type Server struct {
	router *mux.Router
	queue  *queue.Queue
	engine *search.Engine
	log    *slog.Logger
}

func New(q *queue.Queue, engine *search.Engine, m *metrics.Metrics, registry *prometheus.Registry, log *slog.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		queue:  q,
		engine: engine,
		log:    log.With("component", "server"),
	}

	s.router.Use(metrics.HTTPMiddleware(m))
	s.router.HandleFunc("/api/v1/queue", s.enqueue).Methods("POST")
	s.router.HandleFunc("/api/v1/search", s.search).Methods("POST")
	s.router.HandleFunc("/api/v1/terms", s.terms).Methods("POST")
	s.router.HandleFunc("/healthz", s.health).Methods("GET")
	s.router.Handle("/metrics", metrics.Handler(registry)).Methods("GET")
	return s
}

// Handler returns the routed handler for mounting on an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// enqueue handles POST /api/v1/queue. The request is persisted for the
// background indexers; acceptance does not mean the content is searchable
// yet.
func (s *Server) enqueue(w http.ResponseWriter, r *http.Request) {
	var req domain.IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, domain.IndexResponse{
			Success: false, Message: "malformed request body",
		})
		return
	}

	if err := s.queue.Enqueue(&req); err != nil {
		// Store failures are the only server-side enqueue errors; everything
		// else is a rejected request.
		status := http.StatusBadRequest
		if errs.IsCode(err, errs.CodePersistence) {
			status = http.StatusInternalServerError
		}
		s.log.Warn("enqueue rejected", "error", err)
		writeJSON(w, status, domain.IndexResponse{Success: false, Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, domain.IndexResponse{
		Success: true, Message: "queued",
	})
}

// search handles POST /api/v1/search. An empty query is a client error;
// every other failure degrades to an empty result page so callers never
// have to distinguish "no matches" from "search broke".
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, domain.EmptySearchResponse())
		return
	}
	if !req.Valid() {
		writeJSON(w, http.StatusBadRequest, domain.EmptySearchResponse())
		return
	}

	resp, err := s.engine.Search(r.Context(), &req)
	if err != nil {
		s.log.Error("search failed", "query", req.Query, "error", err)
		writeJSON(w, http.StatusOK, domain.EmptySearchResponse())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// terms handles POST /api/v1/terms.
func (s *Server) terms(w http.ResponseWriter, r *http.Request) {
	var req domain.TermsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, domain.TermsResponse{Terms: []domain.ContentTerm{}})
		return
	}
	if !req.Valid() {
		writeJSON(w, http.StatusBadRequest, domain.TermsResponse{Terms: []domain.ContentTerm{}})
		return
	}

	resp, err := s.engine.Terms(r.Context(), &req)
	if err != nil {
		s.log.Error("terms lookup failed", "path", req.Path, "error", err)
		writeJSON(w, http.StatusOK, domain.TermsResponse{Terms: []domain.ContentTerm{}})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
