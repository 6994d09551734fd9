package domain

// LiquidityAnalysis is the liquidity surface analyzer output.
// Nil means the dimension was unavailable, never zero-as-unknown.
type LiquidityAnalysis struct {
	LiquidityUSD      *float64 `json:"liquidityUsd"`      // primary pair
	TotalLiquidityUSD *float64 `json:"totalLiquidityUsd"` // across all chain-local pairs
	FDVUSD            *float64 `json:"fdvUsd"`
	MarketCapUSD      *float64 `json:"marketCapUsd"`
	Volume24hUSD      *float64 `json:"volume24hUsd"`
	PriceUSD          *float64 `json:"priceUsd"`
	PriceChange24h    *float64 `json:"priceChange24h"` // percent
	PairCount         int      `json:"pairCount"`
	PairURL           *string  `json:"pairUrl,omitempty"`
	TokenName         *string  `json:"tokenName,omitempty"`
	TokenSymbol       *string  `json:"tokenSymbol,omitempty"`
	TokenAgeDays      *float64 `json:"tokenAgeDays"` // since earliest pair creation

	LowLiquidity    bool `json:"lowLiquidity"`    // primary liquidity below floor
	SuspiciousRatio bool `json:"suspiciousRatio"` // 24h volume implausible vs liquidity
}

// HolderAnalysis is the holder distribution analyzer output.
// Concentrations are percentages of total supply in [0,100];
// unavailable data leaves them nil, it is never treated as zero.
type HolderAnalysis struct {
	HoldersUnavailable bool     `json:"holdersUnavailable"`
	Top1Concentration  *float64 `json:"top1Concentration"`
	Top10Concentration *float64 `json:"top10Concentration"`
}
