package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coinclarity/internal/domain"
	"coinclarity/internal/orchestrator"
	"coinclarity/internal/storage"
)

type fakeService struct {
	lastToken   domain.TokenIdentity
	analyzeResp *orchestrator.AnalysisResponse
	analyzeErr  error
	report      *domain.AnalysisReport
	reportErr   error
	history     []*domain.AnalysisReport
	historyErr  error
	job         *domain.AnalysisJob
	jobErr      error
	points      []*domain.ScorePoint
	pointsErr   error
	events      chan orchestrator.JobEvent
}

func (f *fakeService) RequestAnalysis(_ context.Context, token domain.TokenIdentity) (*orchestrator.AnalysisResponse, error) {
	f.lastToken = token
	return f.analyzeResp, f.analyzeErr
}

func (f *fakeService) GetReport(_ context.Context, token domain.TokenIdentity) (*domain.AnalysisReport, error) {
	f.lastToken = token
	return f.report, f.reportErr
}

func (f *fakeService) GetReportHistory(_ context.Context, token domain.TokenIdentity, _ int) ([]*domain.AnalysisReport, error) {
	f.lastToken = token
	return f.history, f.historyErr
}

func (f *fakeService) GetJob(_ context.Context, _ string) (*domain.AnalysisJob, error) {
	return f.job, f.jobErr
}

func (f *fakeService) GetScoreTrend(_ context.Context, token domain.TokenIdentity, _ int) ([]*domain.ScorePoint, error) {
	f.lastToken = token
	return f.points, f.pointsErr
}

func (f *fakeService) Subscribe() (<-chan orchestrator.JobEvent, func()) {
	if f.events == nil {
		f.events = make(chan orchestrator.JobEvent, 8)
	}
	return f.events, func() {}
}

func (f *fakeService) Stats() orchestrator.Stats {
	return orchestrator.Stats{Workers: 4, QueueSize: 64, QueueUsed: 1}
}

func newTestServer(fake *fakeService) *httptest.Server {
	api := NewServer(fake, log.New(io.Discard, "", 0))
	return httptest.NewServer(api.Routes())
}

func sampleReport() *domain.AnalysisReport {
	return &domain.AnalysisReport{
		ReportID:   "report-1",
		Chain:      domain.ChainEthereum,
		Address:    "0x1111111111111111111111111111111111111111",
		RiskScore:  74,
		RiskTier:   domain.TierHigh,
		MRR:        66,
		SCR:        35,
		MFR:        58,
		UF:         0.25,
		Confidence: 0.75,
		Signals:    []domain.Signal{},
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
}

func postAnalyze(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/analyze", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /analyze: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestAnalyze_Completed(t *testing.T) {
	fake := &fakeService{
		analyzeResp: &orchestrator.AnalysisResponse{
			Status: orchestrator.StatusCompleted,
			Report: sampleReport(),
		},
	}
	server := newTestServer(fake)
	defer server.Close()

	resp := postAnalyze(t, server.URL, `{"chain":"ethereum","address":"0x1111111111111111111111111111111111111111"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body orchestrator.AnalysisResponse
	decodeBody(t, resp, &body)
	if body.Status != orchestrator.StatusCompleted {
		t.Errorf("expected completed, got %s", body.Status)
	}
	if body.Report == nil || body.Report.ReportID != "report-1" {
		t.Errorf("expected report in response, got %+v", body.Report)
	}
}

func TestAnalyze_Processing(t *testing.T) {
	fake := &fakeService{
		analyzeResp: &orchestrator.AnalysisResponse{
			Status: orchestrator.StatusProcessing,
			JobID:  "job-42",
		},
	}
	server := newTestServer(fake)
	defer server.Close()

	resp := postAnalyze(t, server.URL, `{"chain":"base","address":"0x2222222222222222222222222222222222222222"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body orchestrator.AnalysisResponse
	decodeBody(t, resp, &body)
	if body.Status != orchestrator.StatusProcessing || body.JobID != "job-42" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestAnalyze_NormalizesAddress(t *testing.T) {
	fake := &fakeService{
		analyzeResp: &orchestrator.AnalysisResponse{Status: orchestrator.StatusProcessing, JobID: "job-1"},
	}
	server := newTestServer(fake)
	defer server.Close()

	resp := postAnalyze(t, server.URL, `{"chain":"ethereum","address":"0xABCDEF1234567890ABCDEF1234567890ABCDEF12"}`)
	resp.Body.Close()

	want := "0xabcdef1234567890abcdef1234567890abcdef12"
	if fake.lastToken.Address != want {
		t.Errorf("address not normalized: %s", fake.lastToken.Address)
	}
}

func TestAnalyze_InvalidInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unsupported chain", `{"chain":"solana","address":"0x1111111111111111111111111111111111111111"}`},
		{"bad address", `{"chain":"ethereum","address":"not-an-address"}`},
		{"malformed json", `{"chain":`},
		{"empty body", ``},
	}
	server := newTestServer(&fakeService{})
	defer server.Close()

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postAnalyze(t, server.URL, tc.body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestAnalyze_NoCode(t *testing.T) {
	fake := &fakeService{
		analyzeErr: fmt.Errorf("ethereum:0x11: %w", orchestrator.ErrNoCode),
	}
	server := newTestServer(fake)
	defer server.Close()

	resp := postAnalyze(t, server.URL, `{"chain":"ethereum","address":"0x1111111111111111111111111111111111111111"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for codeless address, got %d", resp.StatusCode)
	}
}

func TestAnalyze_UnconfiguredChain(t *testing.T) {
	fake := &fakeService{
		analyzeErr: fmt.Errorf("base:0x22: %w", orchestrator.ErrUnsupportedChain),
	}
	server := newTestServer(fake)
	defer server.Close()

	resp := postAnalyze(t, server.URL, `{"chain":"base","address":"0x2222222222222222222222222222222222222222"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unconfigured chain, got %d", resp.StatusCode)
	}
}

func TestAnalyze_QueueFull(t *testing.T) {
	fake := &fakeService{
		analyzeErr: fmt.Errorf("ethereum:0x11: %w", orchestrator.ErrQueueFull),
	}
	server := newTestServer(fake)
	defer server.Close()

	resp := postAnalyze(t, server.URL, `{"chain":"ethereum","address":"0x1111111111111111111111111111111111111111"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when saturated, got %d", resp.StatusCode)
	}
}

func TestAnalyze_InternalErrorIsOpaque(t *testing.T) {
	fake := &fakeService{
		analyzeErr: fmt.Errorf("pg: connection refused on 10.0.0.5"),
	}
	server := newTestServer(fake)
	defer server.Close()

	resp := postAnalyze(t, server.URL, `{"chain":"ethereum","address":"0x1111111111111111111111111111111111111111"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	var body errorResponse
	decodeBody(t, resp, &body)
	if strings.Contains(body.Error, "10.0.0.5") {
		t.Errorf("raw provider error leaked to the caller: %q", body.Error)
	}
}

func TestReport_Found(t *testing.T) {
	fake := &fakeService{report: sampleReport()}
	server := newTestServer(fake)
	defer server.Close()

	resp, err := http.Get(server.URL + "/report/ethereum/0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("GET report: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var report domain.AnalysisReport
	decodeBody(t, resp, &report)
	if report.ReportID != "report-1" || report.RiskTier != domain.TierHigh {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestReport_NotFound(t *testing.T) {
	fake := &fakeService{reportErr: storage.ErrNotFound}
	server := newTestServer(fake)
	defer server.Close()

	resp, err := http.Get(server.URL + "/report/ethereum/0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("GET report: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestReport_InvalidChain(t *testing.T) {
	server := newTestServer(&fakeService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/report/dogecoin/0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("GET report: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestReportHistory(t *testing.T) {
	fake := &fakeService{history: []*domain.AnalysisReport{sampleReport()}}
	server := newTestServer(fake)
	defer server.Close()

	resp, err := http.Get(server.URL + "/report/ethereum/0x1111111111111111111111111111111111111111/history?limit=5")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body reportHistoryResponse
	decodeBody(t, resp, &body)
	if len(body.Reports) != 1 || body.Reports[0].ReportID != "report-1" {
		t.Errorf("unexpected history: %+v", body)
	}
	if body.Chain != domain.ChainEthereum {
		t.Errorf("unexpected chain: %s", body.Chain)
	}
}

func TestScoreTrend(t *testing.T) {
	fake := &fakeService{points: []*domain.ScorePoint{
		{Fingerprint: "ethereum:0x1111111111111111111111111111111111111111", RiskScore: 40, RiskTier: domain.TierMedium},
		{Fingerprint: "ethereum:0x1111111111111111111111111111111111111111", RiskScore: 55, RiskTier: domain.TierMedium},
	}}
	server := newTestServer(fake)
	defer server.Close()

	resp, err := http.Get(server.URL + "/report/ethereum/0x1111111111111111111111111111111111111111/scores")
	if err != nil {
		t.Fatalf("GET scores: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body scoreTrendResponse
	decodeBody(t, resp, &body)
	if len(body.Points) != 2 || body.Points[1].RiskScore != 55 {
		t.Errorf("unexpected trend: %+v", body)
	}
}

func TestJob_Found(t *testing.T) {
	errMsg := "all analyzers failed"
	fake := &fakeService{job: &domain.AnalysisJob{
		JobID:       "job-9",
		Fingerprint: "ethereum:0x1111111111111111111111111111111111111111",
		Chain:       domain.ChainEthereum,
		State:       domain.JobFailed,
		Error:       &errMsg,
	}}
	server := newTestServer(fake)
	defer server.Close()

	resp, err := http.Get(server.URL + "/jobs/job-9")
	if err != nil {
		t.Fatalf("GET job: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var job domain.AnalysisJob
	decodeBody(t, resp, &job)
	if job.State != domain.JobFailed {
		t.Errorf("expected failed state to surface, got %s", job.State)
	}
	if job.Error == nil || *job.Error != errMsg {
		t.Errorf("expected failure reason, got %v", job.Error)
	}
}

func TestJob_NotFound(t *testing.T) {
	fake := &fakeService{jobErr: storage.ErrNotFound}
	server := newTestServer(fake)
	defer server.Close()

	resp, err := http.Get(server.URL + "/jobs/nope")
	if err != nil {
		t.Fatalf("GET job: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(&fakeService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("expected ok, got %q", body)
	}
}

func TestStatus(t *testing.T) {
	server := newTestServer(&fakeService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var status StatusResponse
	decodeBody(t, resp, &status)
	if status.Status != "running" || status.Workers != 4 || status.QueueSize != 64 {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestCORS(t *testing.T) {
	server := newTestServer(&fakeService{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("missing CORS header, got %q", got)
	}

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/analyze", nil)
	preflight, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS analyze: %v", err)
	}
	preflight.Body.Close()
	if preflight.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", preflight.StatusCode)
	}
	if got := preflight.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("preflight methods missing POST: %q", got)
	}
}

func TestQueryLimit(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"10", 10},
		{"-3", 0},
		{"abc", 0},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/report/ethereum/0x1/history?limit="+tc.raw, nil)
		if got := queryLimit(r); got != tc.want {
			t.Errorf("queryLimit(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
