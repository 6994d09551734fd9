package scoring

import (
	"fmt"
	"math"

	"coinclarity/internal/domain"
)

// Inputs bundles the analyzer outputs for one token. A nil analysis
// means that analyzer produced nothing; the engine then widens the
// uncertainty factor instead of guessing.
type Inputs struct {
	Token     domain.TokenIdentity
	Contract  *domain.ContractAnalysis
	Liquidity *domain.LiquidityAnalysis
	Holders   *domain.HolderAnalysis
}

// Result is the complete scored outcome for one token.
type Result struct {
	RiskScore  int
	RiskTier   domain.RiskTier
	MRR        int
	SCR        int
	MFR        int
	UF         float64
	Confidence float64
	Signals    []domain.Signal
}

// Score converts analyzer outputs into the composite risk result. It is
// a pure function: no I/O, no clock, no randomness. The composite is
// blended from the rounded sub-scores, so it can be recomputed from the
// published report fields.
func Score(in Inputs, cfg Config) Result {
	var sigs signalSet

	mrrRaw := materializedRisk(in, cfg, &sigs)
	mrr := roundScore(mrrRaw * riskMultiplier(in, cfg, mrrRaw, &sigs))
	scr := roundScore(structuralRisk(in, cfg, &sigs))
	mfr := roundScore(marketFragility(in, cfg, &sigs))

	uf := uncertainty(in, cfg, &sigs)
	confidence := round2(1 - uf)

	composite := cfg.MRRWeight*float64(mrr) + cfg.SCRWeight*float64(scr) + cfg.MFRWeight*float64(mfr)
	score := clampInt(int(math.Round(composite)), 0, 100)

	if score <= cfg.LowRiskScoreMax && mrr < cfg.LowRiskMRRMax {
		sigs.context(domain.SeverityInfo, "Low rug-risk profile",
			"No materialized rug vector was detected and the market structure looks routine.")
	}

	return Result{
		RiskScore:  score,
		RiskTier:   TierFor(score),
		MRR:        mrr,
		SCR:        scr,
		MFR:        mfr,
		UF:         uf,
		Confidence: confidence,
		Signals:    sigs.finalize(cfg),
	}
}

// TierFor buckets a composite score into its risk tier. This step
// function is the only place tiers are derived.
func TierFor(score int) domain.RiskTier {
	switch {
	case score <= 30:
		return domain.TierLow
	case score <= 59:
		return domain.TierMedium
	case score <= 79:
		return domain.TierHigh
	default:
		return domain.TierExtreme
	}
}

// materializedRisk sums capability weights under hostile authority. Each
// capability counts once no matter how many selectors matched it, and a
// neutralized authority zeroes the whole dimension.
func materializedRisk(in Inputs, cfg Config, sigs *signalSet) float64 {
	c := in.Contract
	if c == nil {
		return 0
	}

	total := 0.0
	capCount := 0
	seen := make(map[string]bool)
	for _, flag := range c.PrivilegeFlags {
		if seen[flag.Name] {
			continue
		}
		seen[flag.Name] = true

		weight := cfg.CapabilityMRR[flag.Name]
		if weight == 0 {
			continue
		}
		capCount++

		authority := flag.Authority
		if authority == "" {
			authority = c.Authority
		}
		if !authority.Hostile() {
			continue
		}
		if authority == domain.AuthorityUnknown {
			weight *= cfg.UnknownAuthorityMult
		}
		total += weight

		if text, ok := capabilityCopy[flag.Name]; ok {
			sigs.add(riskSeverity(flag.RiskLevel), text.Title,
				fmt.Sprintf("Contract %s, and control sits with %s.", text.Peril, authorityPhrase(authority)),
				weight, in.Token.ExplorerURL())
		}
	}

	switch {
	case c.Authority == domain.AuthorityRenounced:
		sigs.context(domain.SeverityInfo, "Ownership renounced",
			"The owner role points at a burn address; owner-gated functions are out of reach.",
			in.Token.ExplorerURL())
	case capCount > 0 && c.Authority == domain.AuthorityMultisig:
		sigs.context(domain.SeverityInfo, "Privileged functions behind a multisig",
			"Privileged functions exist but require multiple signers to exercise.",
			in.Token.ExplorerURL())
	case capCount > 0 && c.Authority == domain.AuthorityTimelock:
		sigs.context(domain.SeverityInfo, "Privileged functions behind a contract",
			"Privileged functions are gated by a controlling contract, likely a timelock.",
			in.Token.ExplorerURL())
	}

	return total
}

// riskMultiplier derives the age and legitimacy scaling applied to MRR.
// The multipliers compound, floored at MinMRRMult so detected
// capabilities always keep a residue of risk.
func riskMultiplier(in Inputs, cfg Config, mrrRaw float64, sigs *signalSet) float64 {
	mult := 1.0
	liq := in.Liquidity

	var age *float64
	if liq != nil {
		age = liq.TokenAgeDays
	}
	switch {
	case age == nil:
	case *age < cfg.VeryYoungAgeDays:
		mult *= cfg.VeryYoungMult
		sigs.add(domain.SeverityHigh, "Launched days ago",
			fmt.Sprintf("The earliest trading pair is %.0f days old; most rug pulls happen inside the first week.", *age),
			mrrRaw*(cfg.VeryYoungMult-1))
	case *age < cfg.YoungAgeDays:
		mult *= cfg.YoungMult
		sigs.add(domain.SeverityMedium, "Recently launched",
			fmt.Sprintf("The earliest trading pair is %.0f days old.", *age),
			mrrRaw*(cfg.YoungMult-1))
	case *age > cfg.MatureAgeDays:
		mult *= cfg.MatureMult
		sigs.context(domain.SeverityInfo, "Established trading history",
			fmt.Sprintf("The token has traded for %.0f days.", *age))
	}

	if legitimateDepth(liq, cfg) {
		mult *= cfg.LegitimacyMult
		sigs.context(domain.SeverityInfo, "Deep liquidity across venues",
			fmt.Sprintf("Total liquidity of %s across %d pairs argues against an imminent rug.",
				formatUSD(*liq.TotalLiquidityUSD), liq.PairCount))
	}

	if mult < cfg.MinMRRMult {
		mult = cfg.MinMRRMult
	}
	return mult
}

// legitimateDepth reports whether liquidity is deep and spread out enough
// to dampen materialized risk.
func legitimateDepth(liq *domain.LiquidityAnalysis, cfg Config) bool {
	if liq == nil || liq.TotalLiquidityUSD == nil {
		return false
	}
	total := *liq.TotalLiquidityUSD
	if total >= cfg.LegitimacyStrongUSD {
		return true
	}
	return total >= cfg.LegitimacyLiqUSD && liq.PairCount >= cfg.LegitimacyMinPairs
}

// structuralRisk scores the control surface on existence alone: what the
// contract could do if its authority turned hostile tomorrow.
func structuralRisk(in Inputs, cfg Config, sigs *signalSet) float64 {
	c := in.Contract
	if c == nil {
		return 0
	}

	total := 0.0
	seen := make(map[string]bool)
	for _, flag := range c.PrivilegeFlags {
		if seen[flag.Name] {
			continue
		}
		seen[flag.Name] = true
		total += cfg.CapabilitySCR[flag.Name]
	}

	if c.IsProxy {
		total += cfg.ProxySCR
		switch {
		case !c.ProxyResolved:
			sigs.context(domain.SeverityMedium, "Unresolved proxy implementation",
				"The contract delegates to an implementation that could not be read, so its real logic is unknown.",
				in.Token.ExplorerURL())
		case c.DeepProxyChain:
			sigs.context(domain.SeverityMedium, "Nested proxy chain",
				"The implementation behind the proxy is itself a proxy; only the first hop was analyzed.",
				in.Token.ExplorerURL())
		default:
			desc := "The token runs behind an upgradeable proxy."
			if c.Implementation != nil {
				desc = fmt.Sprintf("The token runs behind an upgradeable proxy; current implementation is %s.", *c.Implementation)
			}
			sigs.context(domain.SeverityInfo, "Upgradeable proxy pattern", desc, in.Token.ExplorerURL())
		}
	}

	return total
}

// marketFragility blends liquidity depth, holder concentration, volume
// plausibility, venue spread and valuation imbalance. Factors with no
// data are excluded and their weight redistributed over the rest, so
// absence widens uncertainty without fabricating risk.
func marketFragility(in Inputs, cfg Config, sigs *signalSet) float64 {
	liq := in.Liquidity

	marketLinks := func() []string {
		if liq != nil && liq.PairURL != nil {
			return []string{*liq.PairURL}
		}
		return []string{in.Token.ExplorerURL()}
	}

	type factor struct {
		weight float64
		norm   float64
		title  string
		desc   string
		links  []string
	}
	var known []factor

	if liq != nil && liq.LiquidityUSD != nil {
		depth := *liq.LiquidityUSD
		var norm float64
		var title, desc string
		switch {
		case depth < cfg.DepthCriticalUSD:
			norm = 100
			title = "Critically thin liquidity"
			desc = fmt.Sprintf("The primary pair holds only %s of liquidity; even small sells will crater the price.", formatUSD(depth))
		case depth < cfg.DepthLowUSD:
			norm = 55
			title = "Thin liquidity"
			desc = fmt.Sprintf("The primary pair holds %s of liquidity, too thin for clean exits.", formatUSD(depth))
		case depth < cfg.DepthModerateUSD:
			norm = 25
			title = "Modest liquidity depth"
			desc = fmt.Sprintf("The primary pair holds %s of liquidity.", formatUSD(depth))
		}
		known = append(known, factor{cfg.DepthWeight, norm, title, desc, marketLinks()})
	}

	if h := in.Holders; h != nil && !h.HoldersUnavailable && h.Top1Concentration != nil && h.Top10Concentration != nil {
		top1, top10 := *h.Top1Concentration, *h.Top10Concentration
		var norm float64
		switch {
		case top1 > cfg.Top1Critical:
			norm = 100
		case top1 > cfg.Top1High:
			norm = 70
		case top1 > cfg.Top1Medium:
			norm = 40
		}
		switch {
		case top10 > cfg.Top10High:
			norm += 25
		case top10 > cfg.Top10Medium:
			norm += 12
		}
		if norm > 100 {
			norm = 100
		}
		title := "High holder concentration"
		if top1 > cfg.Top1Critical {
			title = "Extreme holder concentration"
		}
		known = append(known, factor{cfg.HolderWeight, norm, title,
			fmt.Sprintf("The largest wallet holds %.1f%% of supply and the top ten hold %.1f%%.", top1, top10),
			[]string{in.Token.ExplorerURL()}})
	}

	if liq != nil && liq.LiquidityUSD != nil && liq.Volume24hUSD != nil {
		norm := 0.0
		if liq.SuspiciousRatio {
			norm = 100
		}
		known = append(known, factor{cfg.WashWeight, norm, "Volume out of proportion to liquidity",
			fmt.Sprintf("24h volume of %s against %s of liquidity points at wash trading.",
				formatUSD(*liq.Volume24hUSD), formatUSD(*liq.LiquidityUSD)), marketLinks()})
	}

	if liq != nil && liq.LiquidityUSD != nil {
		var norm float64
		var title, desc string
		switch {
		case liq.PairCount <= 1:
			norm = 70
			title = "Single trading venue"
			desc = "All liquidity sits in a single pair, which can be drained in one transaction."
		case liq.PairCount == 2:
			norm = 30
			title = "Few trading venues"
			desc = "Liquidity is spread over only two pairs."
		}
		known = append(known, factor{cfg.VenueWeight, norm, title, desc, marketLinks()})
	}

	if liq != nil && liq.FDVUSD != nil && *liq.FDVUSD > 0 {
		depth := liq.TotalLiquidityUSD
		if depth == nil {
			depth = liq.LiquidityUSD
		}
		if depth != nil {
			ratio := *depth / *liq.FDVUSD
			var norm float64
			switch {
			case ratio < cfg.ImbalanceCritical:
				norm = 100
			case ratio < cfg.ImbalanceHigh:
				norm = 55
			}
			known = append(known, factor{cfg.ImbalanceWeight, norm, "Liquidity is a sliver of valuation",
				fmt.Sprintf("%s of liquidity backs a fully diluted valuation of %s (%.2f%%).",
					formatUSD(*depth), formatUSD(*liq.FDVUSD), ratio*100), marketLinks()})
		}
	}

	var weightSum, weighted float64
	for _, f := range known {
		weightSum += f.weight
		weighted += f.weight * f.norm
	}
	if weightSum == 0 {
		return 0
	}

	for _, f := range known {
		if f.norm <= 0 {
			continue
		}
		contribution := cfg.MFRWeight * f.weight * f.norm / weightSum
		sigs.add(severityForNorm(f.norm), f.title, f.desc, contribution, f.links...)
	}

	return weighted / weightSum
}

// uncertainty adds up what the analysis could not see. Confidence is its
// complement, so missing data reads as less certainty, never less risk.
func uncertainty(in Inputs, cfg Config, sigs *signalSet) float64 {
	uf := 0.0

	if c := in.Contract; c == nil {
		uf += cfg.UFContractMissing
		sigs.context(domain.SeverityMedium, "Contract analysis incomplete",
			"Bytecode could not be inspected, so privileged capabilities are unknown.")
	} else {
		if !c.Verified {
			uf += cfg.UFUnverified
			sigs.context(domain.SeverityMedium, "Unverified source code",
				"No verified source is published for this contract; analysis rests on bytecode alone.",
				in.Token.ExplorerURL())
		}
		if c.IsProxy && !c.ProxyResolved {
			uf += cfg.UFProxyUnresolved
		}
		if c.Authority == domain.AuthorityUnknown {
			uf += cfg.UFAuthorityUnknown
		}
	}

	liq := in.Liquidity
	if liq == nil || liq.LiquidityUSD == nil {
		uf += cfg.UFLiquidityMissing
		sigs.context(domain.SeverityMedium, "No market data",
			"No trading pairs were found on tracked venues; market checks could not run.")
	} else if liq.Volume24hUSD == nil || *liq.Volume24hUSD < cfg.ThinVolumeUSD {
		uf += cfg.UFThinVolume
		sigs.context(domain.SeverityInfo, "Negligible trading volume",
			"Reported 24h volume is too small to confirm organic demand.")
	}

	if in.Holders == nil || in.Holders.HoldersUnavailable {
		uf += cfg.UFHoldersMissing
		sigs.context(domain.SeverityInfo, "Holder data unavailable",
			"Top-holder balances could not be fetched; concentration checks were skipped.")
	}

	var age *float64
	if liq != nil {
		age = liq.TokenAgeDays
	}
	switch {
	case age == nil:
		uf += cfg.UFAgeUnknown
	case *age < cfg.BrandNewAgeDays:
		uf += cfg.UFBrandNew
	}

	if uf > 1 {
		uf = 1
	}
	return round2(uf)
}

func roundScore(v float64) int {
	return clampInt(int(math.Round(v)), 0, 100)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
