// Package render prints analysis reports for terminals. Tables carry
// the structured parts, colors carry the severity, and every missing
// dimension is printed as n/a instead of being skipped.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"coinclarity/internal/domain"
)

const maxDetailWidth = 72

var (
	extremeColor  = color.New(color.FgRed, color.Bold)
	highColor     = color.New(color.FgRed)
	mediumColor   = color.New(color.FgYellow)
	lowColor      = color.New(color.FgGreen)
	infoColor     = color.New(color.FgHiBlack)
	headlineColor = color.New(color.Bold)
)

// Report writes the full human-readable report.
func Report(w io.Writer, r *domain.AnalysisReport) error {
	writeHeader(w, r)

	if err := writeScores(w, r); err != nil {
		return err
	}
	if err := writeSignals(w, r.Signals); err != nil {
		return err
	}
	if err := writeCapabilities(w, r.ContractAnalysis); err != nil {
		return err
	}
	writeMarket(w, r.LiquidityAnalysis)
	writeHolders(w, r.HolderAnalysis)
	return nil
}

func writeHeader(w io.Writer, r *domain.AnalysisReport) {
	name := "unknown token"
	if r.TokenName != nil {
		name = *r.TokenName
		if r.TokenSymbol != nil {
			name = fmt.Sprintf("%s (%s)", name, *r.TokenSymbol)
		}
	}

	fmt.Fprintf(w, "%s\n", headlineColor.Sprintf("Risk report for %s", name))
	fmt.Fprintf(w, "Chain:    %s\n", r.Chain)
	fmt.Fprintf(w, "Address:  %s\n", r.Address)
	fmt.Fprintf(w, "Report:   %s (%s)\n", shorten(r.ReportID), r.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "\nRisk score: %d/100  %s   confidence %.2f\n\n",
		r.RiskScore, tierLabel(r.RiskTier), r.Confidence)
}

func writeScores(w io.Writer, r *domain.AnalysisReport) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Component", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := [][]string{
		{"Materialized rug risk", fmt.Sprintf("%d", r.MRR)},
		{"Structural control risk", fmt.Sprintf("%d", r.SCR)},
		{"Market fragility risk", fmt.Sprintf("%d", r.MFR)},
		{"Uncertainty factor", fmt.Sprintf("%.2f", r.UF)},
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func writeSignals(w io.Writer, signals []domain.Signal) error {
	if len(signals) == 0 {
		fmt.Fprintf(w, "No signals.\n\n")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Severity", "Signal", "Detail"})

	var data [][]string
	for _, sig := range signals {
		data = append(data, []string{
			severityLabel(sig.Severity),
			sig.Title,
			truncate(sig.Description, maxDetailWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func writeCapabilities(w io.Writer, c *domain.ContractAnalysis) error {
	if c == nil {
		fmt.Fprintf(w, "Contract analysis unavailable.\n\n")
		return nil
	}

	verified := "unverified"
	if c.Verified {
		verified = "verified"
	}
	proxy := ""
	if c.IsProxy {
		proxy = ", proxy"
		if !c.ProxyResolved {
			proxy = ", unresolved proxy"
		}
	}
	fmt.Fprintf(w, "Contract: %s%s, authority %s (%.2f)\n",
		verified, proxy, c.Authority, c.AuthorityConfidence)

	if len(c.PrivilegeFlags) == 0 {
		fmt.Fprintf(w, "No privileged capabilities detected.\n\n")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Capability", "Risk", "Authority", "Source"})

	var data [][]string
	for _, flag := range c.PrivilegeFlags {
		authority := string(flag.Authority)
		if authority == "" {
			authority = string(c.Authority)
		}
		data = append(data, []string{
			flag.Name,
			riskLabel(flag.RiskLevel),
			authority,
			string(flag.Source),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func writeMarket(w io.Writer, l *domain.LiquidityAnalysis) {
	if l == nil {
		fmt.Fprintf(w, "Market data unavailable.\n")
		return
	}

	fmt.Fprintf(w, "Liquidity: %s primary, %s total across %d pair(s)\n",
		usd(l.LiquidityUSD), usd(l.TotalLiquidityUSD), l.PairCount)
	fmt.Fprintf(w, "Volume 24h: %s   Price: %s (%s)\n",
		usd(l.Volume24hUSD), usd(l.PriceUSD), pct(l.PriceChange24h))
	fmt.Fprintf(w, "FDV: %s   Market cap: %s   Age: %s\n",
		usd(l.FDVUSD), usd(l.MarketCapUSD), days(l.TokenAgeDays))
	if l.PairURL != nil {
		fmt.Fprintf(w, "Primary pair: %s\n", *l.PairURL)
	}
}

func writeHolders(w io.Writer, h *domain.HolderAnalysis) {
	if h == nil || h.HoldersUnavailable {
		fmt.Fprintf(w, "Holder distribution unavailable.\n")
		return
	}
	fmt.Fprintf(w, "Holders: top 1 holds %s, top 10 hold %s of supply\n",
		pct(h.Top1Concentration), pct(h.Top10Concentration))
}

func tierLabel(t domain.RiskTier) string {
	text := strings.ToUpper(string(t))
	switch t {
	case domain.TierExtreme:
		return extremeColor.Sprint(text)
	case domain.TierHigh:
		return highColor.Sprint(text)
	case domain.TierMedium:
		return mediumColor.Sprint(text)
	default:
		return lowColor.Sprint(text)
	}
}

func severityLabel(s domain.Severity) string {
	text := string(s)
	switch s {
	case domain.SeverityCritical:
		return extremeColor.Sprint(text)
	case domain.SeverityHigh:
		return highColor.Sprint(text)
	case domain.SeverityMedium:
		return mediumColor.Sprint(text)
	case domain.SeverityLow:
		return lowColor.Sprint(text)
	default:
		return infoColor.Sprint(text)
	}
}

func riskLabel(r domain.RiskLevel) string {
	text := string(r)
	switch r {
	case domain.RiskCritical:
		return extremeColor.Sprint(text)
	case domain.RiskHigh:
		return highColor.Sprint(text)
	case domain.RiskMedium:
		return mediumColor.Sprint(text)
	default:
		return infoColor.Sprint(text)
	}
}

func usd(v *float64) string {
	if v == nil {
		return "n/a"
	}
	if *v >= 1000 {
		return fmt.Sprintf("$%.0f", *v)
	}
	return fmt.Sprintf("$%.4f", *v)
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

func days(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.0f days", *v)
}

func shorten(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "…"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
