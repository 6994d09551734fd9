package scoring

import (
	"fmt"
	"sort"

	"coinclarity/internal/domain"
)

// capabilityCopy holds the report wording for each capability that can
// carry materialized risk. Peril completes the sentence "Contract ...".
var capabilityCopy = map[string]struct {
	Title string
	Peril string
}{
	"mint":              {"Active mint capability", "can create new tokens at will, diluting every holder"},
	"burnFrom":          {"Can burn holder balances", "can destroy tokens held by any address"},
	"blacklist":         {"Transfer blacklist", "can block arbitrary addresses from selling"},
	"pause":             {"Trading can be paused", "can halt all transfers"},
	"unpause":           {"Pause control present", "controls resuming transfers, which implies they can also be halted"},
	"setFee":            {"Owner-settable fees", "can change transfer taxes after launch"},
	"setTrading":        {"Trading switch", "can enable or disable trading"},
	"upgrade":           {"Upgradeable logic", "can replace the token's code wholesale"},
	"withdrawLiquidity": {"Treasury drain function", "can pull pooled funds directly"},
}

// authorityPhrase renders an authority class for signal descriptions.
func authorityPhrase(a domain.AuthorityClass) string {
	switch a {
	case domain.AuthoritySingleEOA:
		return "a single externally owned key"
	case domain.AuthorityUnknown:
		return "an authority that could not be classified"
	case domain.AuthorityMultisig:
		return "a multisig"
	case domain.AuthorityTimelock:
		return "a controlling contract, likely a timelock"
	default:
		return a.String()
	}
}

// riskSeverity maps a capability risk level to a signal severity.
func riskSeverity(r domain.RiskLevel) domain.Severity {
	switch r {
	case domain.RiskCritical:
		return domain.SeverityCritical
	case domain.RiskHigh:
		return domain.SeverityHigh
	case domain.RiskMedium:
		return domain.SeverityMedium
	default:
		return domain.SeverityInfo
	}
}

// severityForNorm grades a market fragility factor by its normalized value.
func severityForNorm(norm float64) domain.Severity {
	switch {
	case norm >= 85:
		return domain.SeverityCritical
	case norm >= 50:
		return domain.SeverityHigh
	case norm >= 20:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// candidate is a signal plus the bookkeeping used to rank and filter it.
type candidate struct {
	signal       domain.Signal
	contribution float64 // composite points this finding is worth
	context      bool    // explanatory, exempt from the materiality cut
}

// signalSet accumulates candidates during scoring and shapes them into
// the final ordered signal list.
type signalSet struct {
	items []candidate
}

// add records a score-bearing candidate. Candidates below the materiality
// threshold are dropped in finalize.
func (s *signalSet) add(sev domain.Severity, title, desc string, contribution float64, links ...string) {
	s.items = append(s.items, candidate{
		signal: domain.Signal{
			Title:         title,
			Severity:      sev,
			Description:   desc,
			EvidenceLinks: links,
		},
		contribution: contribution,
	})
}

// context records an explanatory candidate that is kept regardless of
// contribution, subject only to the overall cap.
func (s *signalSet) context(sev domain.Severity, title, desc string, links ...string) {
	s.items = append(s.items, candidate{
		signal: domain.Signal{
			Title:         title,
			Severity:      sev,
			Description:   desc,
			EvidenceLinks: links,
		},
		context: true,
	})
}

// finalize filters immaterial candidates, orders the rest by severity,
// then contribution, then title, and truncates to the configured cap.
// The ordering is total, so equal inputs always render equal lists.
func (s *signalSet) finalize(cfg Config) []domain.Signal {
	kept := make([]candidate, 0, len(s.items))
	for _, c := range s.items {
		if !c.context && c.contribution < cfg.SignalMinContribution {
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		ri, rj := kept[i].signal.Severity.Rank(), kept[j].signal.Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		if kept[i].contribution != kept[j].contribution {
			return kept[i].contribution > kept[j].contribution
		}
		return kept[i].signal.Title < kept[j].signal.Title
	})

	if cfg.MaxSignals > 0 && len(kept) > cfg.MaxSignals {
		kept = kept[:cfg.MaxSignals]
	}

	out := make([]domain.Signal, 0, len(kept))
	for _, c := range kept {
		out = append(out, c.signal)
	}
	return out
}

// formatUSD renders a dollar amount for signal descriptions.
func formatUSD(v float64) string {
	if v >= 1_000_000 {
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	}
	if v >= 1_000 {
		return fmt.Sprintf("$%.1fk", v/1_000)
	}
	return fmt.Sprintf("$%.0f", v)
}
