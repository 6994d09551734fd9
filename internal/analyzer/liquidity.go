package analyzer

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"coinclarity/internal/dexscreener"
	"coinclarity/internal/domain"
)

// Default market thresholds.
const (
	DefaultLiquidityFloorUSD = 25_000.0
	DefaultWashVolumeRatio   = 10.0
)

// MarketProvider is the slice of the DexScreener client the liquidity
// analyzer consumes.
type MarketProvider interface {
	TokenPairs(ctx context.Context, chainID, address string) ([]dexscreener.Pair, error)
}

// LiquidityAnalyzer builds the liquidity surface of a token from its DEX
// pairs: depth, venue spread, volume sanity and age.
type LiquidityAnalyzer struct {
	market    MarketProvider
	floorUSD  float64
	washRatio float64
	now       func() time.Time // injectable clock for deterministic age
	logger    *log.Logger
}

// NewLiquidityAnalyzer creates a liquidity analyzer with default thresholds.
func NewLiquidityAnalyzer(market MarketProvider, logger *log.Logger) *LiquidityAnalyzer {
	if logger == nil {
		logger = log.Default()
	}
	return &LiquidityAnalyzer{
		market:    market,
		floorUSD:  DefaultLiquidityFloorUSD,
		washRatio: DefaultWashVolumeRatio,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// WithThresholds overrides the liquidity floor and wash-trade ratio.
func (a *LiquidityAnalyzer) WithThresholds(floorUSD, washRatio float64) *LiquidityAnalyzer {
	a.floorUSD = floorUSD
	a.washRatio = washRatio
	return a
}

// WithClock sets a custom clock function for deterministic output.
func (a *LiquidityAnalyzer) WithClock(now func() time.Time) *LiquidityAnalyzer {
	a.now = now
	return a
}

// Analyze fetches the token's pairs and aggregates its liquidity surface.
// A token with no pairs yields an all-null analysis and no error;
// provider failure after retries is returned to the caller to degrade.
func (a *LiquidityAnalyzer) Analyze(ctx context.Context, token domain.TokenIdentity) (*domain.LiquidityAnalysis, error) {
	pairs, err := a.market.TokenPairs(ctx, string(token.Chain), token.Address)
	if err != nil {
		return nil, fmt.Errorf("fetch pairs: %w", err)
	}

	analysis := &domain.LiquidityAnalysis{}
	if len(pairs) == 0 {
		a.logger.Printf("[analyzer] no pairs for %s", token.Fingerprint())
		return analysis, nil
	}

	primary := selectPrimary(pairs)

	analysis.LiquidityUSD = primary.LiquidityUSD()
	analysis.FDVUSD = primary.FDV
	analysis.MarketCapUSD = primary.MarketCap
	if primary.Volume != nil {
		analysis.Volume24hUSD = primary.Volume.H24
	}
	if primary.PriceChange != nil {
		analysis.PriceChange24h = primary.PriceChange.H24
	}
	if primary.URL != "" {
		url := primary.URL
		analysis.PairURL = &url
	}
	if primary.BaseToken.Name != "" {
		name := primary.BaseToken.Name
		analysis.TokenName = &name
	}
	if primary.BaseToken.Symbol != "" {
		symbol := primary.BaseToken.Symbol
		analysis.TokenSymbol = &symbol
	}
	if price, err := strconv.ParseFloat(primary.PriceUSD, 64); err == nil {
		analysis.PriceUSD = &price
	}

	var total float64
	var haveTotal bool
	var earliest *int64
	for i := range pairs {
		p := &pairs[i]
		if liq := p.LiquidityUSD(); liq != nil && *liq > 0 {
			total += *liq
			haveTotal = true
			analysis.PairCount++
		}
		if p.PairCreatedAt != nil && (earliest == nil || *p.PairCreatedAt < *earliest) {
			earliest = p.PairCreatedAt
		}
	}
	if haveTotal {
		analysis.TotalLiquidityUSD = &total
	}
	if earliest != nil {
		ageDays := a.now().Sub(time.UnixMilli(*earliest)).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		analysis.TokenAgeDays = &ageDays
	}

	if analysis.LiquidityUSD != nil && *analysis.LiquidityUSD < a.floorUSD {
		analysis.LowLiquidity = true
	}
	if analysis.LiquidityUSD != nil && *analysis.LiquidityUSD > 0 && analysis.Volume24hUSD != nil {
		if *analysis.Volume24hUSD / *analysis.LiquidityUSD > a.washRatio {
			analysis.SuspiciousRatio = true
		}
	}

	return analysis, nil
}

// selectPrimary returns the deepest pair, falling back to the first when
// no pair reports liquidity.
func selectPrimary(pairs []dexscreener.Pair) *dexscreener.Pair {
	primary := &pairs[0]
	var best float64
	for i := range pairs {
		if liq := pairs[i].LiquidityUSD(); liq != nil && *liq > best {
			best = *liq
			primary = &pairs[i]
		}
	}
	return primary
}
