package domain

import "time"

// ScorePoint is a compact per-run score snapshot.
// Corresponds to score_history table in ClickHouse; one row is appended
// for every completed analysis so score drift can be queried over time.
type ScorePoint struct {
	Fingerprint string    `json:"fingerprint"`
	Chain       Chain     `json:"chain"`
	Address     string    `json:"address"`
	RiskScore   int       `json:"riskScore"`
	RiskTier    RiskTier  `json:"riskTier"`
	MRR         int       `json:"mrr"`
	SCR         int       `json:"scr"`
	MFR         int       `json:"mfr"`
	UF          float64   `json:"uf"`
	Confidence  float64   `json:"confidence"`
	ScoredAt    time.Time `json:"scoredAt"`
}
