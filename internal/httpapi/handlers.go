package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"coinclarity/internal/domain"
	"coinclarity/internal/orchestrator"
	"coinclarity/internal/storage"
)

type analyzeRequest struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
}

// handleAnalyze answers from cache when possible and otherwise returns
// the job that will produce the report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, err := domain.NewTokenIdentity(req.Chain, req.Address)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.service.RequestAnalysis(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrNoCode):
			s.writeError(w, http.StatusBadRequest, "address holds no contract code")
		case errors.Is(err, orchestrator.ErrUnsupportedChain):
			s.writeError(w, http.StatusBadRequest, "chain is not configured on this deployment")
		case errors.Is(err, orchestrator.ErrQueueFull):
			s.writeError(w, http.StatusServiceUnavailable, "analysis queue is full, retry later")
		default:
			s.logger.Printf("analyze %s: %v", token.Fingerprint(), err)
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	token, err := domain.NewTokenIdentity(r.PathValue("chain"), r.PathValue("address"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.service.GetReport(r.Context(), token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no report for token")
			return
		}
		s.logger.Printf("report %s: %v", token.Fingerprint(), err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

type reportHistoryResponse struct {
	Chain   domain.Chain             `json:"chain"`
	Address string                   `json:"address"`
	Reports []*domain.AnalysisReport `json:"reports"`
}

func (s *Server) handleReportHistory(w http.ResponseWriter, r *http.Request) {
	token, err := domain.NewTokenIdentity(r.PathValue("chain"), r.PathValue("address"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := s.service.GetReportHistory(r.Context(), token, queryLimit(r))
	if err != nil {
		s.logger.Printf("report history %s: %v", token.Fingerprint(), err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, reportHistoryResponse{
		Chain:   token.Chain,
		Address: token.Address,
		Reports: reports,
	})
}

type scoreTrendResponse struct {
	Chain   domain.Chain         `json:"chain"`
	Address string               `json:"address"`
	Points  []*domain.ScorePoint `json:"points"`
}

func (s *Server) handleScoreTrend(w http.ResponseWriter, r *http.Request) {
	token, err := domain.NewTokenIdentity(r.PathValue("chain"), r.PathValue("address"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := s.service.GetScoreTrend(r.Context(), token, queryLimit(r))
	if err != nil {
		s.logger.Printf("score trend %s: %v", token.Fingerprint(), err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, scoreTrendResponse{
		Chain:   token.Chain,
		Address: token.Address,
		Points:  points,
	})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	job, err := s.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "unknown job")
			return
		}
		s.logger.Printf("job %s: %v", jobID, err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	StartedAt time.Time `json:"startedAt"`
	Workers   int       `json:"workers"`
	QueueSize int       `json:"queueSize"`
	QueueUsed int       `json:"queueUsed"`
}

// handleStatus returns a queue and uptime snapshot as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	stats := s.service.Stats()
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.started).String(),
		StartedAt: s.started,
		Workers:   stats.Workers,
		QueueSize: stats.QueueSize,
		QueueUsed: stats.QueueUsed,
	})
}

// queryLimit parses the optional ?limit= parameter. Invalid or missing
// values fall back to the store default.
func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
