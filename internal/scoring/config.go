package scoring

// Config carries every weight and threshold the engine uses. The engine
// reads no ambient state: same inputs and config, same result. Treat a
// Config as immutable once passed to Score.
type Config struct {
	// Composite blend weights over the sub-scores.
	MRRWeight float64
	SCRWeight float64
	MFRWeight float64

	// CapabilityMRR maps a capability name to its materialized-risk
	// weight, applied only under hostile authority. CapabilitySCR maps
	// it to its structural weight, applied on existence alone.
	CapabilityMRR map[string]float64
	CapabilitySCR map[string]float64

	// UnknownAuthorityMult scales hostile MRR weights when the authority
	// could not be classified: unresolved control is worse than a known
	// deployer key, never safer.
	UnknownAuthorityMult float64

	// ProxySCR is the structural weight of an upgradeable proxy pattern.
	ProxySCR float64

	// Market fragility factor weights; they sum to 1 and the weight of
	// unknown factors is redistributed over the known ones.
	DepthWeight     float64
	HolderWeight    float64
	WashWeight      float64
	VenueWeight     float64
	ImbalanceWeight float64

	// Primary-pair depth bands (USD).
	DepthCriticalUSD float64
	DepthLowUSD      float64
	DepthModerateUSD float64

	// Holder concentration bands (percent of supply).
	Top1Critical float64
	Top1High     float64
	Top1Medium   float64
	Top10High    float64
	Top10Medium  float64

	// Liquidity-to-FDV imbalance bands (ratio).
	ImbalanceCritical float64
	ImbalanceHigh     float64

	// Age bands (days) and their MRR multipliers.
	VeryYoungAgeDays float64
	YoungAgeDays     float64
	MatureAgeDays    float64
	VeryYoungMult    float64
	YoungMult        float64
	MatureMult       float64

	// Legitimacy dampener: deep, spread-out liquidity argues against an
	// imminent rug. MinMRRMult floors the combined dampening so detected
	// capabilities are never scored to zero.
	LegitimacyStrongUSD float64
	LegitimacyLiqUSD    float64
	LegitimacyMinPairs  int
	LegitimacyMult      float64
	MinMRRMult          float64

	// Uncertainty contributions, additive and capped at 1.
	UFContractMissing  float64
	UFUnverified       float64
	UFLiquidityMissing float64
	UFHoldersMissing   float64
	UFThinVolume       float64
	UFProxyUnresolved  float64
	UFAuthorityUnknown float64
	UFAgeUnknown       float64
	UFBrandNew         float64

	ThinVolumeUSD   float64
	BrandNewAgeDays float64

	// Signal shaping.
	MaxSignals            int
	SignalMinContribution float64
	LowRiskScoreMax       int
	LowRiskMRRMax         int
}

// DefaultConfig returns the reference weights and thresholds.
func DefaultConfig() Config {
	return Config{
		MRRWeight: 1.00,
		SCRWeight: 0.15,
		MFRWeight: 0.60,

		CapabilityMRR: map[string]float64{
			"mint":              30,
			"withdrawLiquidity": 30,
			"blacklist":         25,
			"upgrade":           22,
			"setFee":            20,
			"setTrading":        20,
			"burnFrom":          20,
			"pause":             18,
			"unpause":           18,
		},
		CapabilitySCR: map[string]float64{
			"mint":              20,
			"blacklist":         15,
			"withdrawLiquidity": 15,
			"upgrade":           15,
			"burnFrom":          10,
			"pause":             8,
			"unpause":           8,
			"setFee":            8,
			"setTrading":        8,
			"transferOwnership": 3,
		},
		UnknownAuthorityMult: 1.2,
		ProxySCR:             10,

		DepthWeight:     0.35,
		HolderWeight:    0.25,
		WashWeight:      0.15,
		VenueWeight:     0.15,
		ImbalanceWeight: 0.10,

		DepthCriticalUSD: 25_000,
		DepthLowUSD:      100_000,
		DepthModerateUSD: 500_000,

		Top1Critical: 50,
		Top1High:     30,
		Top1Medium:   15,
		Top10High:    80,
		Top10Medium:  60,

		ImbalanceCritical: 0.005,
		ImbalanceHigh:     0.02,

		VeryYoungAgeDays: 7,
		YoungAgeDays:     30,
		MatureAgeDays:    180,
		VeryYoungMult:    1.5,
		YoungMult:        1.25,
		MatureMult:       0.75,

		LegitimacyStrongUSD: 50_000_000,
		LegitimacyLiqUSD:    10_000_000,
		LegitimacyMinPairs:  2,
		LegitimacyMult:      0.6,
		MinMRRMult:          0.25,

		UFContractMissing:  0.30,
		UFUnverified:       0.25,
		UFLiquidityMissing: 0.20,
		UFHoldersMissing:   0.15,
		UFThinVolume:       0.15,
		UFProxyUnresolved:  0.10,
		UFAuthorityUnknown: 0.10,
		UFAgeUnknown:       0.05,
		UFBrandNew:         0.10,

		ThinVolumeUSD:   1_000,
		BrandNewAgeDays: 1,

		MaxSignals:            8,
		SignalMinContribution: 4.0,
		LowRiskScoreMax:       30,
		LowRiskMRRMax:         15,
	}
}
