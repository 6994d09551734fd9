// Package orchestrator coordinates token analysis end to end.
// It answers requests from cache or storage when it can, and otherwise
// schedules exactly one job per token fingerprint: contract analysis
// feeds authority classification, liquidity and holder analysis run
// alongside, and the scoring engine folds whatever survived into a
// persisted report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"coinclarity/internal/analyzer"
	"coinclarity/internal/domain"
	"coinclarity/internal/idhash"
	"coinclarity/internal/observability"
	"coinclarity/internal/scoring"
	"coinclarity/internal/storage"
)

var (
	// ErrNoCode is returned by RequestAnalysis when the address holds no
	// deployed bytecode. Published here so API layers only need this
	// package for request errors.
	ErrNoCode = analyzer.ErrNoCode

	// ErrUnsupportedChain is returned when no provider stack is
	// configured for the requested chain.
	ErrUnsupportedChain = analyzer.ErrUnsupportedChain

	// ErrQueueFull is returned when the analysis queue cannot accept
	// another job.
	ErrQueueFull = errors.New("analysis queue is full")
)

// Defaults applied by New when the corresponding option is zero.
const (
	DefaultWorkers         = 4
	DefaultQueueSize       = 64
	DefaultCacheTTL        = 6 * time.Hour
	DefaultJobBudget       = 60 * time.Second
	DefaultRetention       = time.Hour
	DefaultJanitorInterval = 30 * time.Second
)

// staleJobReason is recorded on jobs the janitor reaps.
const staleJobReason = "job exceeded time budget"

// Status reported by RequestAnalysis.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusProcessing Status = "processing"
)

// AnalysisResponse is the immediate answer to an analysis request:
// either a finished report, or the job that will produce one.
type AnalysisResponse struct {
	Status Status                 `json:"status"`
	Report *domain.AnalysisReport `json:"report,omitempty"`
	JobID  string                 `json:"jobId,omitempty"`
}

// ContractAnalyzer extracts bytecode capabilities for a token contract.
type ContractAnalyzer interface {
	Analyze(ctx context.Context, token domain.TokenIdentity) (*domain.ContractAnalysis, error)
}

// AuthorityClassifier annotates a contract analysis with who controls
// the privileged surface. It degrades internally and never fails.
type AuthorityClassifier interface {
	Classify(ctx context.Context, token domain.TokenIdentity, analysis *domain.ContractAnalysis)
}

// LiquidityAnalyzer measures the market surface of a token.
type LiquidityAnalyzer interface {
	Analyze(ctx context.Context, token domain.TokenIdentity) (*domain.LiquidityAnalysis, error)
}

// HolderAnalyzer measures supply concentration across top holders.
type HolderAnalyzer interface {
	Analyze(ctx context.Context, token domain.TokenIdentity) (*domain.HolderAnalysis, error)
}

// CodeChecker probes for deployed bytecode before a job is queued.
type CodeChecker interface {
	GetCode(ctx context.Context, token domain.TokenIdentity) ([]byte, error)
}

// Orchestrator owns the request path, the worker pool and the janitor.
type Orchestrator struct {
	// Analyzers
	contract  ContractAnalyzer
	authority AuthorityClassifier
	liquidity LiquidityAnalyzer
	holders   HolderAnalyzer
	code      CodeChecker

	// Stores
	reports storage.ReportStore
	jobs    storage.JobStore
	cache   storage.ReportCache
	scores  storage.ScoreHistoryStore

	scoringConfig scoring.Config

	workers         int
	cacheTTL        time.Duration
	jobBudget       time.Duration
	retention       time.Duration
	janitorInterval time.Duration

	queue  chan *domain.AnalysisJob
	events *eventHub

	logger  *log.Logger
	verbose bool
	now     func() time.Time
}

// Options for creating an Orchestrator.
type Options struct {
	// Required analyzers and the bytecode probe for the precheck.
	Contract  ContractAnalyzer
	Authority AuthorityClassifier
	Liquidity LiquidityAnalyzer
	Holders   HolderAnalyzer
	Code      CodeChecker

	// Required stores
	ReportStore  storage.ReportStore
	JobStore     storage.JobStore
	ReportCache  storage.ReportCache
	ScoreHistory storage.ScoreHistoryStore

	// ScoringConfig overrides the default weight table when set.
	ScoringConfig *scoring.Config

	// Options; zero values take the package defaults.
	Workers         int
	QueueSize       int
	CacheTTL        time.Duration
	JobBudget       time.Duration
	Retention       time.Duration
	JanitorInterval time.Duration

	Logger  *log.Logger
	Verbose bool

	// Now overrides the clock used for report timestamps and freshness
	// checks.
	Now func() time.Time
}

// New creates a new Orchestrator. Run must be called before requests
// can make progress past the queue.
func New(opts Options) *Orchestrator {
	cfg := scoring.DefaultConfig()
	if opts.ScoringConfig != nil {
		cfg = *opts.ScoringConfig
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	jobBudget := opts.JobBudget
	if jobBudget <= 0 {
		jobBudget = DefaultJobBudget
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	janitorInterval := opts.JanitorInterval
	if janitorInterval <= 0 {
		janitorInterval = DefaultJanitorInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[orchestrator] ", log.LstdFlags)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		contract:        opts.Contract,
		authority:       opts.Authority,
		liquidity:       opts.Liquidity,
		holders:         opts.Holders,
		code:            opts.Code,
		reports:         opts.ReportStore,
		jobs:            opts.JobStore,
		cache:           opts.ReportCache,
		scores:          opts.ScoreHistory,
		scoringConfig:   cfg,
		workers:         workers,
		cacheTTL:        cacheTTL,
		jobBudget:       jobBudget,
		retention:       retention,
		janitorInterval: janitorInterval,
		queue:           make(chan *domain.AnalysisJob, queueSize),
		events:          newEventHub(),
		logger:          logger,
		verbose:         opts.Verbose,
		now:             now,
	}
}

// RequestAnalysis answers from cache or a fresh stored report when it
// can, otherwise ensures exactly one analysis job exists for the token.
// The token must come from domain.NewTokenIdentity so chain and address
// are already normalized.
func (o *Orchestrator) RequestAnalysis(ctx context.Context, token domain.TokenIdentity) (*AnalysisResponse, error) {
	fingerprint := token.Fingerprint()

	if report, err := o.cache.Get(ctx, fingerprint); err == nil {
		observability.RecordCacheHit()
		o.logf("cache hit for %s", fingerprint)
		return &AnalysisResponse{Status: StatusCompleted, Report: report}, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		o.logger.Printf("cache get %s: %v", fingerprint, err)
	}
	observability.RecordCacheMiss()

	if report, err := o.reports.GetLatest(ctx, token.Chain, token.Address); err == nil {
		if age := o.now().Sub(report.CreatedAt); age < o.cacheTTL {
			// Re-prime the cache for the freshness the report has left,
			// not a full TTL, so age never exceeds one TTL end to end.
			if err := o.cache.Set(ctx, fingerprint, report, o.cacheTTL-age); err != nil {
				o.logger.Printf("cache set %s: %v", fingerprint, err)
			}
			o.logf("serving stored report %s for %s", report.ReportID, fingerprint)
			return &AnalysisResponse{Status: StatusCompleted, Report: report}, nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		o.logger.Printf("latest report %s: %v", fingerprint, err)
	}

	if code, err := o.code.GetCode(ctx, token); err != nil {
		if errors.Is(err, ErrUnsupportedChain) {
			return nil, fmt.Errorf("%s: %w", fingerprint, ErrUnsupportedChain)
		}
		// A flaky node must not reject the request; the worker retries
		// against the same node with the full job budget behind it.
		o.logger.Printf("code precheck %s: %v", fingerprint, err)
	} else if len(code) == 0 {
		return nil, fmt.Errorf("%s: %w", fingerprint, ErrNoCode)
	}

	jobID, err := idhash.NewJobID()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}
	now := o.now().UTC()
	job := &domain.AnalysisJob{
		JobID:       jobID,
		Fingerprint: fingerprint,
		Chain:       token.Chain,
		Address:     token.Address,
		State:       domain.JobQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, won, err := o.jobs.CreateIfAbsent(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("create job for %s: %w", fingerprint, err)
	}
	if !won {
		o.logf("joined in-flight job %s for %s", created.JobID, fingerprint)
		return &AnalysisResponse{Status: StatusProcessing, JobID: created.JobID}, nil
	}

	select {
	case o.queue <- created:
	default:
		// Free the fingerprint so a later request can try again.
		reason := "queue full"
		if err := o.jobs.SetState(ctx, created.JobID, domain.JobFailed, &reason); err != nil {
			o.logger.Printf("fail overflowed job %s: %v", created.JobID, err)
		}
		return nil, fmt.Errorf("%s: %w", fingerprint, ErrQueueFull)
	}

	observability.RecordAnalysisRequested(string(token.Chain))
	observability.JobsInflightInc()
	o.events.publish(JobEvent{JobID: created.JobID, Fingerprint: fingerprint, State: domain.JobQueued})
	o.logf("queued job %s for %s", created.JobID, fingerprint)
	return &AnalysisResponse{Status: StatusProcessing, JobID: created.JobID}, nil
}

// GetReport returns the latest stored report for a token.
func (o *Orchestrator) GetReport(ctx context.Context, token domain.TokenIdentity) (*domain.AnalysisReport, error) {
	return o.reports.GetLatest(ctx, token.Chain, token.Address)
}

// GetReportHistory returns stored reports for a token, newest first.
func (o *Orchestrator) GetReportHistory(ctx context.Context, token domain.TokenIdentity, limit int) ([]*domain.AnalysisReport, error) {
	return o.reports.History(ctx, token.Chain, token.Address, limit)
}

// GetJob returns the job with the given ID.
func (o *Orchestrator) GetJob(ctx context.Context, jobID string) (*domain.AnalysisJob, error) {
	return o.jobs.GetByID(ctx, jobID)
}

// GetScoreTrend returns per-run score snapshots for a token, oldest
// first.
func (o *Orchestrator) GetScoreTrend(ctx context.Context, token domain.TokenIdentity, limit int) ([]*domain.ScorePoint, error) {
	return o.scores.GetByFingerprint(ctx, token.Fingerprint(), limit)
}

// Subscribe registers a listener for job lifecycle events. The returned
// cancel func releases the subscription.
func (o *Orchestrator) Subscribe() (<-chan JobEvent, func()) {
	return o.events.subscribe()
}

// Stats is a point-in-time snapshot of the work queue.
type Stats struct {
	Workers   int `json:"workers"`
	QueueSize int `json:"queueSize"`
	QueueUsed int `json:"queueUsed"`
}

// Stats reports the queue configuration and its current depth.
func (o *Orchestrator) Stats() Stats {
	return Stats{Workers: o.workers, QueueSize: cap(o.queue), QueueUsed: len(o.queue)}
}

// Run starts the worker pool and the janitor, then blocks until ctx is
// cancelled and every worker has drained.
func (o *Orchestrator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			o.runWorker(ctx, id)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.runJanitor(ctx)
	}()

	o.logger.Printf("started %d workers (queue %d, job budget %s, cache ttl %s)",
		o.workers, cap(o.queue), o.jobBudget, o.cacheTTL)

	<-ctx.Done()
	wg.Wait()
	o.logger.Printf("stopped")
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.verbose {
		o.logger.Printf(format, args...)
	}
}
