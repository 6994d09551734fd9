package domain

import "time"

// Severity orders signals from most to least urgent.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank returns a sortable weight. Higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Signal is one explainable finding surfaced on a report.
type Signal struct {
	Title         string   `json:"title"`
	Severity      Severity `json:"severity"`
	Description   string   `json:"description"`
	EvidenceLinks []string `json:"evidenceLinks,omitempty"`
}

// RiskTier buckets the composite score. The step function lives in the
// scoring engine; nothing else derives tiers.
type RiskTier string

const (
	TierLow     RiskTier = "low"
	TierMedium  RiskTier = "medium"
	TierHigh    RiskTier = "high"
	TierExtreme RiskTier = "extreme"
)

// AnalysisReport is the aggregate analysis result for one token.
// Corresponds to analysis_reports table in PostgreSQL. Reports are
// append-only: re-analysis inserts a new report that supersedes earlier
// ones, it never mutates them.
type AnalysisReport struct {
	ReportID string `json:"reportId"` // deterministic hash
	Chain    Chain  `json:"chain"`
	Address  string `json:"address"`

	RiskScore int      `json:"riskScore"` // 0..100
	RiskTier  RiskTier `json:"riskTier"`

	// Sub-scores behind the composite.
	MRR        int     `json:"mrr"` // materialized rug risk, 0..100
	SCR        int     `json:"scr"` // structural control risk, 0..100
	MFR        int     `json:"mfr"` // market fragility risk, 0..100
	UF         float64 `json:"uf"`  // uncertainty factor, 0..1
	Confidence float64 `json:"confidence"`

	Signals []Signal `json:"signals"`

	ContractAnalysis  *ContractAnalysis  `json:"contractAnalysis,omitempty"`
	LiquidityAnalysis *LiquidityAnalysis `json:"liquidityAnalysis,omitempty"`
	HolderAnalysis    *HolderAnalysis    `json:"holderAnalysis,omitempty"`

	// Denormalized token metadata for list views.
	TokenName      *string  `json:"tokenName,omitempty"`
	TokenSymbol    *string  `json:"tokenSymbol,omitempty"`
	PriceUSD       *float64 `json:"priceUsd,omitempty"`
	PriceChange24h *float64 `json:"priceChange24h,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Fingerprint returns the analysis key this report answers for.
func (r *AnalysisReport) Fingerprint() string {
	return string(r.Chain) + ":" + r.Address
}
