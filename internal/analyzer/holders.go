package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"coinclarity/internal/domain"
	"coinclarity/internal/explorer"
)

// topHolderCount is how many holders the concentration windows cover.
const topHolderCount = 10

// HolderProvider is the slice of the explorer client the holder analyzer
// consumes.
type HolderProvider interface {
	TopHolders(ctx context.Context, address string, limit int) ([]explorer.Holder, error)
	TokenSupply(ctx context.Context, address string) (float64, error)
	HasCredential() bool
}

// HolderAnalyzer measures supply concentration across the largest
// holders. Missing data is reported as unavailable, never as zero.
type HolderAnalyzer struct {
	holders HolderProvider
	logger  *log.Logger
}

// NewHolderAnalyzer creates a holder analyzer. holders may be nil when no
// explorer is configured; analysis then reports holders unavailable.
func NewHolderAnalyzer(holders HolderProvider, logger *log.Logger) *HolderAnalyzer {
	if logger == nil {
		logger = log.Default()
	}
	return &HolderAnalyzer{holders: holders, logger: logger}
}

// Analyze computes top-1 and top-10 concentration as percentages of total
// supply. No credential or no explorer data is a valid degraded result;
// transient provider failure is returned to the caller.
func (a *HolderAnalyzer) Analyze(ctx context.Context, token domain.TokenIdentity) (*domain.HolderAnalysis, error) {
	unavailable := &domain.HolderAnalysis{HoldersUnavailable: true}

	if a.holders == nil || !a.holders.HasCredential() {
		return unavailable, nil
	}

	holders, err := a.holders.TopHolders(ctx, token.Address, topHolderCount)
	if err != nil {
		if errors.Is(err, explorer.ErrNoData) || errors.Is(err, explorer.ErrNoCredential) {
			return unavailable, nil
		}
		return nil, fmt.Errorf("fetch holders: %w", err)
	}
	if len(holders) == 0 {
		return unavailable, nil
	}

	supply, err := a.holders.TokenSupply(ctx, token.Address)
	if err != nil {
		if errors.Is(err, explorer.ErrNoData) || errors.Is(err, explorer.ErrNoCredential) {
			return unavailable, nil
		}
		return nil, fmt.Errorf("fetch supply: %w", err)
	}
	if supply <= 0 {
		a.logger.Printf("[analyzer] zero supply reported for %s", token.Fingerprint())
		return unavailable, nil
	}

	top1 := clampPct(holders[0].Quantity / supply * 100)

	var sum float64
	for i, h := range holders {
		if i >= topHolderCount {
			break
		}
		sum += h.Quantity
	}
	top10 := clampPct(sum / supply * 100)

	return &domain.HolderAnalysis{
		Top1Concentration:  &top1,
		Top10Concentration: &top10,
	}, nil
}

// clampPct bounds a percentage to [0,100]; explorer data can overshoot
// when supply and holder snapshots race.
func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
