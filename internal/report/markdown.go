package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/tvandenberg/thirteenf/internal/model"
)

// Millicent scale for display. Stored values are 0.001 USD, so one
// million USD is 1e9 millicents.
const (
	millicentsPerMillionUSD = 1e9
	millicentsPerBillionUSD = 1e12
)

// ArtifactName returns the on-disk filename for a report artifact,
// e.g. "ownership_Q2-2025.md".
func ArtifactName(kind model.ReportKind, quarter model.Quarter, ext string) string {
	return fmt.Sprintf("%s_%s.%s", kind, quarter, ext)
}

// Markdown renders the human-readable artifact for a ranked report.
func Markdown(r *model.RankedReport) []byte {
	var b bytes.Buffer
	if r.Kind == model.ReportNetAdditions {
		writeNetAdditionsMarkdown(&b, r)
	} else {
		writeOwnershipMarkdown(&b, r)
	}
	return b.Bytes()
}

func writeOwnershipMarkdown(b *bytes.Buffer, r *model.RankedReport) {
	fmt.Fprintf(b, "# %s %s\n\n", r.Quarter, metricTitle(r.Metric))
	fmt.Fprintf(b, "*Generated: %s*\n\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))

	writeSummary(b, r)

	fmt.Fprintf(b, "## Top %d by %s\n\n", r.TopN, metricColumn(r.Metric))
	fmt.Fprintf(b, "| Rank | CUSIP | Ticker | Name | Shares Held | %% of Float | Value ($M) | Holders |\n")
	fmt.Fprintf(b, "|------|-------|--------|------|-------------|------------|------------|--------|\n")
	for _, e := range r.Entries {
		fmt.Fprintf(b, "| %d | %s | %s | %s | %s | %s | %.1f | %d |\n",
			e.Rank, e.CUSIP, tickerOrNA(e.Ticker), truncateName(e.Name, 30),
			humanize.Comma(e.TotalShares), pctOrNA(e.PctOfFloat),
			float64(e.TotalValueMillicents)/millicentsPerMillionUSD, e.HolderCount)
	}

	b.WriteString("\n## Concentration\n\n")
	writeConcentrationSection(b, r.Entries, 70)
	writeConcentrationSection(b, r.Entries, 50)

	b.WriteString("### Most Widely Held\n\n")
	widelyHeld := make([]model.RankedEntry, len(r.Entries))
	copy(widelyHeld, r.Entries)
	sort.SliceStable(widelyHeld, func(i, j int) bool {
		return widelyHeld[i].HolderCount > widelyHeld[j].HolderCount
	})
	if len(widelyHeld) > 10 {
		widelyHeld = widelyHeld[:10]
	}
	if len(widelyHeld) == 0 {
		b.WriteString("*No ranked securities.*\n")
	}
	for _, e := range widelyHeld {
		fmt.Fprintf(b, "- **%s** (%s): %d holders (%s of shares outstanding)\n",
			displayName(e), tickerOrNA(e.Ticker), e.HolderCount, pctOrNA(e.PctOfFloat))
	}

	writeCoverage(b, r)
}

func writeNetAdditionsMarkdown(b *bytes.Buffer, r *model.RankedReport) {
	title := fmt.Sprintf("# %s %s", r.Quarter, metricTitle(r.Metric))
	if r.PriorQuarter != nil {
		title += fmt.Sprintf(" (vs %s)", *r.PriorQuarter)
	}
	b.WriteString(title + "\n\n")
	fmt.Fprintf(b, "*Generated: %s*\n\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))

	writeSummary(b, r)

	fmt.Fprintf(b, "## Top %d by %s\n\n", r.TopN, metricColumn(r.Metric))
	fmt.Fprintf(b, "| Rank | CUSIP | Ticker | Name | Net Adds | Adding | Reducing | Entering | Exiting | Net Shares | Value ($M) |\n")
	fmt.Fprintf(b, "|------|-------|--------|------|----------|--------|----------|----------|---------|------------|------------|\n")
	for _, e := range r.Entries {
		na := e.NetAddition
		if na == nil {
			continue
		}
		fmt.Fprintf(b, "| %d | %s | %s | %s | %d | %d | %d | %d | %d | %s | %.1f |\n",
			e.Rank, e.CUSIP, tickerOrNA(e.Ticker), truncateName(e.Name, 30),
			na.NetAddingInstitutions-na.NetReducingInstitutions,
			na.NetAddingInstitutions, na.NetReducingInstitutions,
			len(na.InstitutionsEntering), len(na.InstitutionsExiting),
			humanize.Comma(na.NetSharesDelta),
			float64(e.TotalValueMillicents)/millicentsPerMillionUSD)
	}

	b.WriteString("\n### Largest Full Entries\n\n")
	entering := filterEntries(r.Entries, func(e model.RankedEntry) bool {
		return e.NetAddition != nil && len(e.NetAddition.InstitutionsEntering) > 0
	})
	sort.SliceStable(entering, func(i, j int) bool {
		return len(entering[i].NetAddition.InstitutionsEntering) > len(entering[j].NetAddition.InstitutionsEntering)
	})
	if len(entering) > 10 {
		entering = entering[:10]
	}
	if len(entering) == 0 {
		b.WriteString("*No securities gained new holders.*\n")
	}
	for _, e := range entering {
		fmt.Fprintf(b, "- **%s** (%s): %d institutions opened positions, %d closed\n",
			displayName(e), tickerOrNA(e.Ticker),
			len(e.NetAddition.InstitutionsEntering), len(e.NetAddition.InstitutionsExiting))
	}

	writeCoverage(b, r)
}

func writeSummary(b *bytes.Buffer, r *model.RankedReport) {
	s := r.Summary
	b.WriteString("## Summary Statistics\n\n")
	fmt.Fprintf(b, "- Securities analyzed: %d\n", s.SecuritiesConsidered)
	fmt.Fprintf(b, "- Securities ranked: %d\n", s.SecuritiesRanked)
	fmt.Fprintf(b, "- Total ranked value: $%.2fB\n", float64(s.TotalValueMillicents)/millicentsPerBillionUSD)
	if s.SecuritiesRanked > 0 {
		avgHolders := 0.0
		for _, e := range r.Entries {
			avgHolders += float64(e.HolderCount)
		}
		if len(r.Entries) > 0 {
			avgHolders /= float64(len(r.Entries))
		}
		fmt.Fprintf(b, "- Average holders per listed security: %.1f\n", avgHolders)
	}
	fmt.Fprintf(b, "- Institutions included: %d total\n", s.InstitutionsInQuarter)
	fmt.Fprintf(b, "  - %d from %s (current quarter)\n", s.InstitutionsInQuarter-r.Diagnostics.FromEarlierQuarters, r.Quarter)
	fmt.Fprintf(b, "  - %d from earlier quarters\n", r.Diagnostics.FromEarlierQuarters)
	fmt.Fprintf(b, "- Excluded: %d ETFs, %d below minimum float, %d above ownership cap, %d without usable shares outstanding\n\n",
		s.ExcludedETF, s.ExcludedMinShares, s.ExcludedCap, s.ExcludedUnresolved)
}

func writeConcentrationSection(b *bytes.Buffer, entries []model.RankedEntry, threshold float64) {
	fmt.Fprintf(b, "### Above %.0f%% of Shares Outstanding\n\n", threshold)
	var hits []model.RankedEntry
	for _, e := range entries {
		if e.PctOfFloat != nil && *e.PctOfFloat > threshold {
			hits = append(hits, e)
		}
	}
	if len(hits) == 0 {
		fmt.Fprintf(b, "*No positions exceed %.0f%% of shares outstanding.*\n\n", threshold)
		return
	}
	if len(hits) > 10 {
		hits = hits[:10]
	}
	for _, e := range hits {
		fmt.Fprintf(b, "- **%s** (%s): %.2f%% of shares outstanding held by %d institutions\n",
			displayName(e), tickerOrNA(e.Ticker), *e.PctOfFloat, e.HolderCount)
	}
	b.WriteString("\n")
}

func writeCoverage(b *bytes.Buffer, r *model.RankedReport) {
	c := r.Coverage
	d := r.Diagnostics
	b.WriteString("\n## Data Quality\n\n")
	fmt.Fprintf(b, "- Ticker coverage: %d of %d securities (%.1f%% of filed value)\n",
		c.TickerResolvedSecurities, c.TotalSecurities, c.TickerResolvedValuePct)
	fmt.Fprintf(b, "- Shares-outstanding coverage: %d of %d securities (%.1f%% of filed value)\n",
		c.SharesResolvedSecurities, c.TotalSecurities, c.SharesResolvedValuePct)
	fmt.Fprintf(b, "- Malformed records skipped: %d\n", d.MalformedRecords)
	fmt.Fprintf(b, "- Amendments excluded: %d\n", d.AmendmentsExcluded)
	fmt.Fprintf(b, "- Duplicate filings resolved: %d\n", d.DuplicatesResolved)
	fmt.Fprintf(b, "- Ownership cap exceedances: %d\n", d.OwnershipCapExceedances)
	fmt.Fprintf(b, "- Stale shares figures treated absent: %d\n", d.StaleSharesTreatedAbsent)
}

func metricTitle(m model.Metric) string {
	switch m {
	case model.MetricOwnershipPct:
		return "Institutional Holdings as % of Shares Outstanding"
	case model.MetricTotalValue:
		return "Institutional Holdings by Reported Value"
	case model.MetricHolderCount:
		return "Institutional Holdings by Holder Count"
	case model.MetricNetInstitutions:
		return "Net Additions by Institutional Adds"
	case model.MetricNetShares:
		return "Net Additions by Shares Added"
	case model.MetricNetValue:
		return "Net Additions by Value Added"
	default:
		return string(m)
	}
}

func metricColumn(m model.Metric) string {
	switch m {
	case model.MetricOwnershipPct:
		return "Percentage of Shares Outstanding"
	case model.MetricTotalValue:
		return "Reported Value"
	case model.MetricHolderCount:
		return "Holder Count"
	case model.MetricNetInstitutions:
		return "Net Institutional Adds"
	case model.MetricNetShares:
		return "Net Shares Added"
	case model.MetricNetValue:
		return "Net Value Added"
	default:
		return string(m)
	}
}

func tickerOrNA(t *string) string {
	if t == nil || *t == "" {
		return "N/A"
	}
	return *t
}

func pctOrNA(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *p)
}

func displayName(e model.RankedEntry) string {
	if e.Name != "" {
		return truncateName(e.Name, 40)
	}
	return e.CUSIP
}

func truncateName(name string, max int) string {
	if name == "" {
		return "-"
	}
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max])
}

func filterEntries(entries []model.RankedEntry, keep func(model.RankedEntry) bool) []model.RankedEntry {
	var out []model.RankedEntry
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
