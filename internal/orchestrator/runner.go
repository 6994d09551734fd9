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
)

func (o *Orchestrator) runWorker(ctx context.Context, id int) {
	logger := log.New(o.logger.Writer(), fmt.Sprintf("[worker %d] ", id), o.logger.Flags())
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-o.queue:
			o.runJob(ctx, logger, job)
		}
	}
}

// runJob drives one queued job to a terminal state.
func (o *Orchestrator) runJob(ctx context.Context, logger *log.Logger, job *domain.AnalysisJob) {
	defer observability.JobsInflightDec()

	current, err := o.jobs.GetByID(ctx, job.JobID)
	if err != nil {
		logger.Printf("job %s: lookup: %v", job.JobID, err)
		return
	}
	if current.State != domain.JobQueued {
		// The janitor reaps jobs that outwait their budget in the queue.
		logger.Printf("job %s: skipping, already %s", job.JobID, current.State)
		return
	}

	if err := o.jobs.SetState(ctx, job.JobID, domain.JobRunning, nil); err != nil {
		logger.Printf("job %s: mark running: %v", job.JobID, err)
		return
	}
	o.events.publish(JobEvent{JobID: job.JobID, Fingerprint: job.Fingerprint, State: domain.JobRunning})

	started := time.Now()
	report, runErr := o.analyze(ctx, logger, job)
	elapsed := time.Since(started)

	if runErr != nil {
		reason := runErr.Error()
		if err := o.jobs.SetState(ctx, job.JobID, domain.JobFailed, &reason); err != nil {
			logger.Printf("job %s: mark failed: %v", job.JobID, err)
		}
		observability.RecordAnalysisFailed(string(job.Chain))
		o.events.publish(JobEvent{JobID: job.JobID, Fingerprint: job.Fingerprint, State: domain.JobFailed, Error: reason})
		logger.Printf("job %s: %s failed after %s: %v", job.JobID, job.Fingerprint, elapsed.Round(time.Millisecond), runErr)
		return
	}

	if err := o.jobs.SetState(ctx, job.JobID, domain.JobCompleted, nil); err != nil {
		logger.Printf("job %s: mark completed: %v", job.JobID, err)
	}
	observability.RecordAnalysisCompleted(string(job.Chain), elapsed.Seconds())
	observability.RecordRiskTier(string(report.RiskTier))
	observability.MarkAnalysisSuccess(float64(o.now().Unix()))
	o.events.publish(JobEvent{JobID: job.JobID, Fingerprint: job.Fingerprint, State: domain.JobCompleted})
	logger.Printf("job %s: %s scored %d (%s) in %s",
		job.JobID, job.Fingerprint, report.RiskScore, report.RiskTier, elapsed.Round(time.Millisecond))
}

// analyze runs the analyzers under the job budget, scores whatever
// survived and persists the report. A single failed analyzer degrades
// the report; the job itself fails only when every analyzer failed or
// the report cannot be stored.
func (o *Orchestrator) analyze(ctx context.Context, logger *log.Logger, job *domain.AnalysisJob) (*domain.AnalysisReport, error) {
	jobCtx, cancel := context.WithTimeout(ctx, o.jobBudget)
	defer cancel()

	token := domain.TokenIdentity{Chain: job.Chain, Address: job.Address}

	contract := o.runContract(jobCtx, logger, job, token)

	var (
		wg        sync.WaitGroup
		liquidity *domain.LiquidityAnalysis
		holders   *domain.HolderAnalysis
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		liquidity = o.runLiquidity(jobCtx, logger, job, token)
	}()
	go func() {
		defer wg.Done()
		holders = o.runHolders(jobCtx, logger, job, token)
	}()
	wg.Wait()

	if contract == nil && liquidity == nil && holders == nil {
		return nil, errors.New("all analyzers failed")
	}

	result := scoring.Score(scoring.Inputs{
		Token:     token,
		Contract:  contract,
		Liquidity: liquidity,
		Holders:   holders,
	}, o.scoringConfig)

	report := o.buildReport(token, contract, liquidity, holders, result)

	if err := o.reports.Insert(jobCtx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}
	if err := o.scores.Insert(jobCtx, scorePointFrom(report)); err != nil {
		logger.Printf("job %s: append score point: %v", job.JobID, err)
	}
	if err := o.cache.Set(jobCtx, job.Fingerprint, report, o.cacheTTL); err != nil {
		logger.Printf("job %s: cache report: %v", job.JobID, err)
	}
	return report, nil
}

func (o *Orchestrator) runContract(ctx context.Context, logger *log.Logger, job *domain.AnalysisJob, token domain.TokenIdentity) *domain.ContractAnalysis {
	started := time.Now()
	analysis, err := o.contract.Analyze(ctx, token)
	observability.RecordAnalyzerDuration("contract", time.Since(started).Seconds())
	if err != nil {
		observability.RecordAnalyzerError("contract", errorKind(err))
		logger.Printf("job %s: contract analyzer: %v", job.JobID, err)
		return nil
	}
	o.authority.Classify(ctx, token, analysis)
	return analysis
}

func (o *Orchestrator) runLiquidity(ctx context.Context, logger *log.Logger, job *domain.AnalysisJob, token domain.TokenIdentity) *domain.LiquidityAnalysis {
	started := time.Now()
	analysis, err := o.liquidity.Analyze(ctx, token)
	observability.RecordAnalyzerDuration("liquidity", time.Since(started).Seconds())
	if err != nil {
		observability.RecordAnalyzerError("liquidity", errorKind(err))
		logger.Printf("job %s: liquidity analyzer: %v", job.JobID, err)
		return nil
	}
	return analysis
}

func (o *Orchestrator) runHolders(ctx context.Context, logger *log.Logger, job *domain.AnalysisJob, token domain.TokenIdentity) *domain.HolderAnalysis {
	started := time.Now()
	analysis, err := o.holders.Analyze(ctx, token)
	observability.RecordAnalyzerDuration("holders", time.Since(started).Seconds())
	if err != nil {
		observability.RecordAnalyzerError("holders", errorKind(err))
		logger.Printf("job %s: holder analyzer: %v", job.JobID, err)
		return nil
	}
	return analysis
}

func (o *Orchestrator) buildReport(token domain.TokenIdentity, contract *domain.ContractAnalysis, liquidity *domain.LiquidityAnalysis, holders *domain.HolderAnalysis, result scoring.Result) *domain.AnalysisReport {
	createdAt := o.now().UTC()
	report := &domain.AnalysisReport{
		ReportID:          idhash.ComputeReportID(string(token.Chain), token.Address, createdAt.UnixMilli()),
		Chain:             token.Chain,
		Address:           token.Address,
		RiskScore:         result.RiskScore,
		RiskTier:          result.RiskTier,
		MRR:               result.MRR,
		SCR:               result.SCR,
		MFR:               result.MFR,
		UF:                result.UF,
		Confidence:        result.Confidence,
		Signals:           result.Signals,
		ContractAnalysis:  contract,
		LiquidityAnalysis: liquidity,
		HolderAnalysis:    holders,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	if liquidity != nil {
		report.TokenName = liquidity.TokenName
		report.TokenSymbol = liquidity.TokenSymbol
		report.PriceUSD = liquidity.PriceUSD
		report.PriceChange24h = liquidity.PriceChange24h
	}
	return report
}

func scorePointFrom(r *domain.AnalysisReport) *domain.ScorePoint {
	return &domain.ScorePoint{
		Fingerprint: r.Fingerprint(),
		Chain:       r.Chain,
		Address:     r.Address,
		RiskScore:   r.RiskScore,
		RiskTier:    r.RiskTier,
		MRR:         r.MRR,
		SCR:         r.SCR,
		MFR:         r.MFR,
		UF:          r.UF,
		Confidence:  r.Confidence,
		ScoredAt:    r.CreatedAt,
	}
}

// errorKind labels an analyzer error for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, analyzer.ErrNoCode):
		return "no_code"
	default:
		return "provider"
	}
}

func (o *Orchestrator) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(o.janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.sweep(ctx)
		}
	}
}

// sweep fails jobs that exceeded the time budget and deletes terminal
// jobs past retention. Reports are never touched here.
func (o *Orchestrator) sweep(ctx context.Context) {
	failed, err := o.jobs.FailStale(ctx, o.now().Add(-o.jobBudget), staleJobReason)
	if err != nil {
		o.logger.Printf("janitor: fail stale jobs: %v", err)
	} else if failed > 0 {
		observability.RecordStaleJobsFailed(failed)
		o.logger.Printf("janitor: failed %d stale jobs", failed)
	}

	deleted, err := o.jobs.DeleteTerminalBefore(ctx, o.now().Add(-o.retention))
	if err != nil {
		o.logger.Printf("janitor: delete terminal jobs: %v", err)
	} else if deleted > 0 {
		o.logf("janitor: deleted %d terminal jobs", deleted)
	}
}
