package scoring

import (
	"math"
	"testing"

	"coinclarity/internal/domain"
)

func f64(v float64) *float64 { return &v }

func testToken() domain.TokenIdentity {
	return domain.TokenIdentity{
		Chain:   domain.ChainEthereum,
		Address: "0x1111111111111111111111111111111111111111",
	}
}

func contractWith(authority domain.AuthorityClass, verified bool, names ...string) *domain.ContractAnalysis {
	c := &domain.ContractAnalysis{
		Verified:           verified,
		Authority:          authority,
		OwnershipRenounced: authority == domain.AuthorityRenounced,
	}
	for _, name := range names {
		level := domain.RiskCritical
		if name != "mint" && name != "blacklist" && name != "withdrawLiquidity" {
			level = domain.RiskHigh
		}
		c.PrivilegeFlags = append(c.PrivilegeFlags, domain.CapabilityFlag{
			Name:      name,
			Selector:  "0x40c10f19",
			RiskLevel: level,
			Source:    domain.CapSourceBytecode,
		})
	}
	return c
}

func hasSeverity(signals []domain.Signal, sev domain.Severity) bool {
	for _, s := range signals {
		if s.Severity == sev {
			return true
		}
	}
	return false
}

func hasTitle(signals []domain.Signal, title string) bool {
	for _, s := range signals {
		if s.Title == title {
			return true
		}
	}
	return false
}

func TestTierFor_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  domain.RiskTier
	}{
		{0, domain.TierLow},
		{30, domain.TierLow},
		{31, domain.TierMedium},
		{59, domain.TierMedium},
		{60, domain.TierHigh},
		{79, domain.TierHigh},
		{80, domain.TierExtreme},
		{100, domain.TierExtreme},
	}
	for _, tt := range tests {
		if got := TierFor(tt.score); got != tt.want {
			t.Errorf("TierFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScore_HealthyBlueChip(t *testing.T) {
	// Verified, renounced, no privileged capabilities, deep and old market.
	// Every dimension is clean, so the composite is 0 and confidence full.
	in := Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthorityRenounced, true),
		Liquidity: &domain.LiquidityAnalysis{
			LiquidityUSD:      f64(2_000_000),
			TotalLiquidityUSD: f64(2_000_000),
			FDVUSD:            f64(80_000_000), // ratio 2.5%, above the imbalance bands
			Volume24hUSD:      f64(850_000),
			PairCount:         3,
			TokenAgeDays:      f64(730),
		},
		Holders: &domain.HolderAnalysis{
			Top1Concentration:  f64(3),
			Top10Concentration: f64(18),
		},
	}

	r := Score(in, DefaultConfig())

	if r.RiskScore != 0 {
		t.Errorf("expected score 0, got %d", r.RiskScore)
	}
	if r.RiskTier != domain.TierLow {
		t.Errorf("expected tier low, got %s", r.RiskTier)
	}
	if r.MRR != 0 || r.SCR != 0 || r.MFR != 0 {
		t.Errorf("expected all sub-scores 0, got MRR=%d SCR=%d MFR=%d", r.MRR, r.SCR, r.MFR)
	}
	if r.UF != 0 {
		t.Errorf("expected UF 0, got %f", r.UF)
	}
	if r.Confidence != 1 {
		t.Errorf("expected confidence 1, got %f", r.Confidence)
	}
	if hasSeverity(r.Signals, domain.SeverityCritical) || hasSeverity(r.Signals, domain.SeverityHigh) {
		t.Errorf("expected no critical or high signals, got %+v", r.Signals)
	}
	if !hasTitle(r.Signals, "Low rug-risk profile") {
		t.Errorf("expected low-risk profile signal, got %+v", r.Signals)
	}
}

func TestScore_MintBlacklistYoungThin(t *testing.T) {
	// Unverified contract, mint + blacklist under a single EOA, three days
	// old, $8k of liquidity and one whale-heavy pair. The archetypal rug.
	in := Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthoritySingleEOA, false, "mint", "blacklist"),
		Liquidity: &domain.LiquidityAnalysis{
			LiquidityUSD:      f64(8_000),
			TotalLiquidityUSD: f64(8_000),
			PairCount:         1,
			TokenAgeDays:      f64(3),
		},
		Holders: &domain.HolderAnalysis{
			Top1Concentration:  f64(62),
			Top10Concentration: f64(91),
		},
	}

	r := Score(in, DefaultConfig())

	// MRR: (30 + 25) * 1.5 young-age multiplier = 82.5 → 83
	if r.MRR != 83 {
		t.Errorf("expected MRR 83, got %d", r.MRR)
	}
	// SCR: mint 20 + blacklist 15 = 35
	if r.SCR != 35 {
		t.Errorf("expected SCR 35, got %d", r.SCR)
	}
	// MFR: depth 100*.35 + holders 100*.25 + venue 70*.15 over weight .75 = 94
	if r.MFR != 94 {
		t.Errorf("expected MFR 94, got %d", r.MFR)
	}
	if r.RiskScore != 100 {
		t.Errorf("expected score 100, got %d", r.RiskScore)
	}
	if r.RiskTier != domain.TierExtreme {
		t.Errorf("expected tier extreme, got %s", r.RiskTier)
	}
	// UF: unverified 0.25 + missing volume 0.15 = 0.40
	if math.Abs(r.UF-0.40) > 0.0001 {
		t.Errorf("expected UF 0.40, got %f", r.UF)
	}
	if math.Abs(r.Confidence-0.60) > 0.0001 {
		t.Errorf("expected confidence 0.60, got %f", r.Confidence)
	}
	if len(r.Signals) == 0 || r.Signals[0].Severity != domain.SeverityCritical {
		t.Fatalf("expected a critical signal first, got %+v", r.Signals)
	}
	// Highest-contribution critical finding leads the list.
	if r.Signals[0].Title != "Active mint capability" {
		t.Errorf("expected mint signal first, got %q", r.Signals[0].Title)
	}
}

func TestScore_RenouncedMintMature(t *testing.T) {
	// A mint function exists but ownership is renounced and the market is
	// mature and distributed. Structure alone keeps the score low.
	in := Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthorityRenounced, true, "mint"),
		Liquidity: &domain.LiquidityAnalysis{
			LiquidityUSD:      f64(600_000),
			TotalLiquidityUSD: f64(800_000),
			FDVUSD:            f64(5_000_000),
			Volume24hUSD:      f64(200_000),
			PairCount:         3,
			TokenAgeDays:      f64(400),
		},
		Holders: &domain.HolderAnalysis{
			Top1Concentration:  f64(8),
			Top10Concentration: f64(20),
		},
	}

	r := Score(in, DefaultConfig())

	if r.MRR != 0 {
		t.Errorf("expected MRR 0 for renounced authority, got %d", r.MRR)
	}
	// SCR: mint existence weight 20 → composite 0.15*20 = 3
	if r.RiskScore != 3 {
		t.Errorf("expected score 3, got %d", r.RiskScore)
	}
	if r.RiskTier != domain.TierLow {
		t.Errorf("expected tier low, got %s", r.RiskTier)
	}
	if hasSeverity(r.Signals, domain.SeverityCritical) || hasSeverity(r.Signals, domain.SeverityHigh) {
		t.Errorf("expected no critical or high signals, got %+v", r.Signals)
	}
	if !hasTitle(r.Signals, "Ownership renounced") {
		t.Errorf("expected renounced context signal, got %+v", r.Signals)
	}
}

func TestScore_RenouncedScoresBelowSingleEOA(t *testing.T) {
	renounced := Score(Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthorityRenounced, true, "mint"),
	}, DefaultConfig())
	held := Score(Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthoritySingleEOA, true, "mint"),
	}, DefaultConfig())

	if renounced.MRR >= held.MRR {
		t.Errorf("renounced MRR %d should be below single-EOA MRR %d", renounced.MRR, held.MRR)
	}
	if renounced.RiskScore >= held.RiskScore {
		t.Errorf("renounced score %d should be below single-EOA score %d", renounced.RiskScore, held.RiskScore)
	}
}

func TestScore_UnknownAuthorityOutscoresKnown(t *testing.T) {
	// An authority that cannot be classified is worse than a known key.
	unknown := Score(Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthorityUnknown, true, "mint"),
	}, DefaultConfig())
	held := Score(Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthoritySingleEOA, true, "mint"),
	}, DefaultConfig())

	// 30 * 1.2 = 36 vs 30
	if unknown.MRR != 36 {
		t.Errorf("expected unknown-authority MRR 36, got %d", unknown.MRR)
	}
	if held.MRR != 30 {
		t.Errorf("expected single-EOA MRR 30, got %d", held.MRR)
	}
}

func TestScore_DuplicateCapabilityCountsOnce(t *testing.T) {
	// Two mint selectors collapse to one capability.
	c := contractWith(domain.AuthoritySingleEOA, true, "mint")
	c.PrivilegeFlags = append(c.PrivilegeFlags, domain.CapabilityFlag{
		Name:      "mint",
		Selector:  "0xa0712d68",
		RiskLevel: domain.RiskCritical,
		Source:    domain.CapSourceBytecode,
	})

	r := Score(Inputs{Token: testToken(), Contract: c}, DefaultConfig())

	if r.MRR != 30 {
		t.Errorf("expected MRR 30 with deduped mint, got %d", r.MRR)
	}
	if r.SCR != 20 {
		t.Errorf("expected SCR 20 with deduped mint, got %d", r.SCR)
	}
}

func TestScore_HolderUnavailabilityRedistributesWeight(t *testing.T) {
	liq := &domain.LiquidityAnalysis{
		LiquidityUSD:      f64(8_000),
		TotalLiquidityUSD: f64(8_000),
		Volume24hUSD:      f64(5_000),
		PairCount:         1,
		TokenAgeDays:      f64(90),
	}

	// Holders unavailable: depth .35*100 + wash .15*0 + venue .15*70 over
	// weight .65 = 70. Zeroing the holder factor instead would give 51.
	missing := Score(Inputs{
		Token:     testToken(),
		Liquidity: liq,
		Holders:   &domain.HolderAnalysis{HoldersUnavailable: true},
	}, DefaultConfig())

	if missing.MFR != 70 {
		t.Errorf("expected MFR 70 with holder weight redistributed, got %d", missing.MFR)
	}

	// Same market with clean, known holders: weight .90, same numerator → 51.
	clean := Score(Inputs{
		Token:     testToken(),
		Liquidity: liq,
		Holders: &domain.HolderAnalysis{
			Top1Concentration:  f64(5),
			Top10Concentration: f64(15),
		},
	}, DefaultConfig())

	if clean.MFR != 51 {
		t.Errorf("expected MFR 51 with known clean holders, got %d", clean.MFR)
	}
	if missing.UF <= clean.UF {
		t.Errorf("missing holder data should raise UF: %f vs %f", missing.UF, clean.UF)
	}
}

func TestScore_NoMarketData(t *testing.T) {
	r := Score(Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthorityRenounced, true),
	}, DefaultConfig())

	if r.MFR != 0 {
		t.Errorf("expected MFR 0 with no market data, got %d", r.MFR)
	}
	// UF: liquidity 0.20 + holders 0.15 + age 0.05 = 0.40
	if math.Abs(r.UF-0.40) > 0.0001 {
		t.Errorf("expected UF 0.40, got %f", r.UF)
	}
	if !hasTitle(r.Signals, "No market data") {
		t.Errorf("expected no-market-data signal, got %+v", r.Signals)
	}
}

func TestScore_LegitimacyDampener(t *testing.T) {
	// Deep multi-venue liquidity scales MRR by 0.6: 30 * 0.6 = 18.
	damped := Score(Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthoritySingleEOA, true, "mint"),
		Liquidity: &domain.LiquidityAnalysis{
			LiquidityUSD:      f64(30_000_000),
			TotalLiquidityUSD: f64(60_000_000),
			Volume24hUSD:      f64(9_000_000),
			PairCount:         4,
			TokenAgeDays:      f64(90),
		},
	}, DefaultConfig())

	if damped.MRR != 18 {
		t.Errorf("expected MRR 18 with legitimacy dampener, got %d", damped.MRR)
	}
	if !hasTitle(damped.Signals, "Deep liquidity across venues") {
		t.Errorf("expected legitimacy context signal, got %+v", damped.Signals)
	}
}

func TestScore_MultiplierFloor(t *testing.T) {
	// Compounded dampening never erases detected capabilities.
	cfg := DefaultConfig()
	cfg.MatureMult = 0.2 // 0.2 * 0.6 = 0.12, below the 0.25 floor

	r := Score(Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthoritySingleEOA, true, "mint"),
		Liquidity: &domain.LiquidityAnalysis{
			LiquidityUSD:      f64(30_000_000),
			TotalLiquidityUSD: f64(60_000_000),
			Volume24hUSD:      f64(9_000_000),
			PairCount:         4,
			TokenAgeDays:      f64(400),
		},
	}, cfg)

	// 30 * 0.25 = 7.5 → 8
	if r.MRR != 8 {
		t.Errorf("expected floored MRR 8, got %d", r.MRR)
	}
}

func TestScore_CompositeReproducibleFromSubScores(t *testing.T) {
	in := Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthoritySingleEOA, false, "setFee", "pause"),
		Liquidity: &domain.LiquidityAnalysis{
			LiquidityUSD:      f64(180_000),
			TotalLiquidityUSD: f64(180_000),
			FDVUSD:            f64(4_000_000),
			Volume24hUSD:      f64(40_000),
			PairCount:         2,
			TokenAgeDays:      f64(45),
		},
		Holders: &domain.HolderAnalysis{
			Top1Concentration:  f64(22),
			Top10Concentration: f64(48),
		},
	}

	cfg := DefaultConfig()
	r := Score(in, cfg)

	want := int(math.Round(cfg.MRRWeight*float64(r.MRR) + cfg.SCRWeight*float64(r.SCR) + cfg.MFRWeight*float64(r.MFR)))
	if want > 100 {
		want = 100
	}
	if r.RiskScore != want {
		t.Errorf("composite %d is not the blend of its sub-scores (want %d)", r.RiskScore, want)
	}
}

func TestScore_Deterministic(t *testing.T) {
	in := Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthoritySingleEOA, false, "mint", "blacklist", "pause"),
		Liquidity: &domain.LiquidityAnalysis{
			LiquidityUSD:      f64(12_000),
			TotalLiquidityUSD: f64(12_000),
			PairCount:         1,
			TokenAgeDays:      f64(5),
		},
		Holders: &domain.HolderAnalysis{
			Top1Concentration:  f64(40),
			Top10Concentration: f64(75),
		},
	}

	first := Score(in, DefaultConfig())
	for i := 0; i < 5; i++ {
		again := Score(in, DefaultConfig())
		if again.RiskScore != first.RiskScore || again.UF != first.UF {
			t.Fatalf("scores diverged across runs: %+v vs %+v", again, first)
		}
		if len(again.Signals) != len(first.Signals) {
			t.Fatalf("signal count diverged: %d vs %d", len(again.Signals), len(first.Signals))
		}
		for j := range again.Signals {
			if again.Signals[j].Title != first.Signals[j].Title {
				t.Fatalf("signal order diverged at %d: %q vs %q", j, again.Signals[j].Title, first.Signals[j].Title)
			}
		}
	}
}

func TestScore_UFCappedAtOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UFLiquidityMissing = 0.9

	r := Score(Inputs{Token: testToken()}, cfg)

	// contract 0.30 + liquidity 0.9 + holders 0.15 + age 0.05 caps at 1.
	if r.UF != 1 {
		t.Errorf("expected UF capped at 1, got %f", r.UF)
	}
	if r.Confidence != 0 {
		t.Errorf("expected confidence 0, got %f", r.Confidence)
	}
}

func TestScore_SignalsCappedAndOrdered(t *testing.T) {
	// Everything wrong at once produces more candidates than the cap.
	in := Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthorityUnknown, false, "mint", "blacklist", "withdrawLiquidity", "pause", "setFee"),
		Liquidity: &domain.LiquidityAnalysis{
			LiquidityUSD:      f64(4_000),
			TotalLiquidityUSD: f64(4_000),
			FDVUSD:            f64(10_000_000),
			Volume24hUSD:      f64(90_000),
			PairCount:         1,
			TokenAgeDays:      f64(2),
			SuspiciousRatio:   true,
		},
		Holders: &domain.HolderAnalysis{
			Top1Concentration:  f64(70),
			Top10Concentration: f64(95),
		},
	}

	r := Score(in, DefaultConfig())

	cfg := DefaultConfig()
	if len(r.Signals) != cfg.MaxSignals {
		t.Fatalf("expected exactly %d signals, got %d", cfg.MaxSignals, len(r.Signals))
	}
	for i := 1; i < len(r.Signals); i++ {
		if r.Signals[i].Severity.Rank() > r.Signals[i-1].Severity.Rank() {
			t.Errorf("signals out of severity order at %d: %s after %s",
				i, r.Signals[i].Severity, r.Signals[i-1].Severity)
		}
	}
	if r.RiskTier != domain.TierExtreme {
		t.Errorf("expected tier extreme, got %s", r.RiskTier)
	}
}

func TestScore_BrandNewTokenRaisesUF(t *testing.T) {
	r := Score(Inputs{
		Token:    testToken(),
		Contract: contractWith(domain.AuthorityRenounced, true),
		Liquidity: &domain.LiquidityAnalysis{
			LiquidityUSD:      f64(50_000),
			TotalLiquidityUSD: f64(50_000),
			Volume24hUSD:      f64(20_000),
			PairCount:         1,
			TokenAgeDays:      f64(0.5),
		},
		Holders: &domain.HolderAnalysis{
			Top1Concentration:  f64(10),
			Top10Concentration: f64(30),
		},
	}, DefaultConfig())

	// Only the brand-new age term applies: UF 0.10.
	if math.Abs(r.UF-0.10) > 0.0001 {
		t.Errorf("expected UF 0.10 for a token under a day old, got %f", r.UF)
	}
}
