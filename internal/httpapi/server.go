// Package httpapi exposes the analysis service over HTTP: a JSON API
// for requesting and reading reports, a WebSocket feed of job events,
// and the usual health, status and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"coinclarity/internal/domain"
	"coinclarity/internal/observability"
	"coinclarity/internal/orchestrator"
)

// Service is the slice of the orchestrator the API serves.
type Service interface {
	RequestAnalysis(ctx context.Context, token domain.TokenIdentity) (*orchestrator.AnalysisResponse, error)
	GetReport(ctx context.Context, token domain.TokenIdentity) (*domain.AnalysisReport, error)
	GetReportHistory(ctx context.Context, token domain.TokenIdentity, limit int) ([]*domain.AnalysisReport, error)
	GetJob(ctx context.Context, jobID string) (*domain.AnalysisJob, error)
	GetScoreTrend(ctx context.Context, token domain.TokenIdentity, limit int) ([]*domain.ScorePoint, error)
	Subscribe() (<-chan orchestrator.JobEvent, func())
	Stats() orchestrator.Stats
}

// Server holds the handlers for the public API.
type Server struct {
	service Service
	logger  *log.Logger
	started time.Time
}

// NewServer creates a new API server around the given service.
func NewServer(service Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[api] ", log.LstdFlags)
	}
	return &Server{
		service: service,
		logger:  logger,
		started: time.Now(),
	}
}

// Routes builds the full handler tree, CORS included.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /report/{chain}/{address}", s.handleReport)
	mux.HandleFunc("GET /report/{chain}/{address}/history", s.handleReportHistory)
	mux.HandleFunc("GET /report/{chain}/{address}/scores", s.handleScoreTrend)
	mux.HandleFunc("GET /jobs/{id}", s.handleJob)
	mux.HandleFunc("GET /ws/jobs", s.handleJobsWS)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)

	return withCORS(mux)
}

// withCORS allows the web client to call the API cross-origin and
// short-circuits preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
