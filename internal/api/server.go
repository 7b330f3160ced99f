package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NetSentry/internal/mitigation"
)

// Server exposes the mitigation state over HTTP for dashboards and
// operators, plus the Prometheus metrics endpoint.
type Server struct {
	engine    *mitigation.Engine
	attackers map[string]bool
	srv       *http.Server
}

// NewServer creates the observability server around a mitigation engine.
// attackers is the optional labelled ground truth used by /summary.
func NewServer(addr string, engine *mitigation.Engine, attackers map[string]bool) *Server {
	s := &Server{engine: engine, attackers: attackers}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/sources", s.handleSources).Methods("GET")
	r.HandleFunc("/api/v1/sources/{addr}", s.handleSource).Methods("GET")
	r.HandleFunc("/api/v1/denylist", s.handleDenylist).Methods("GET")
	r.HandleFunc("/api/v1/summary", s.handleSummary).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start launches the HTTP server in the background.
func (s *Server) Start() {
	go func() {
		log.Printf("API server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("API server shutdown error: %v", err)
	}
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["addr"]
	stats, ok := s.engine.SourceStats(addr)
	if !ok {
		http.Error(w, "unknown source", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDenylist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Denylist().Entries())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Summary(s.attackers))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode API response: %v", err)
	}
}
