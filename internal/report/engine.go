// Package report turns aggregated quarter data into the engine's final
// output views: data-quality filtered, ranked, top-N reports over one
// quarter's ownership aggregates or over a quarter pair's net additions.
package report

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/identity"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// Filters are the data-quality gates applied before ranking, in fixed
// order: ETF exclusion, minimum shares outstanding, ownership cap.
type Filters struct {
	// ExcludeETFs drops securities whose identity carries the ETF flag.
	// A security without a flag is included.
	ExcludeETFs bool
	// MinSharesOutstanding drops securities whose usable float is below
	// the floor from percentage-of-float rankings only. Zero disables
	// the floor.
	MinSharesOutstanding int64
	// OwnershipCapPct quarantines securities whose computed institutional
	// ownership is strictly above the cap. A reading of exactly the cap
	// stays in.
	OwnershipCapPct float64
}

// Stats carries the anomaly counts from one ranking pass that feed the
// run diagnostics rather than the report summary.
type Stats struct {
	// OwnershipCapExceedances counts securities whose computed ownership
	// exceeded the cap, whether or not the metric excluded them.
	OwnershipCapExceedances int
	// StaleSharesTreatedAbsent counts securities whose stored
	// shares-outstanding figure was discarded by the staleness window.
	StaleSharesTreatedAbsent int
}

// Engine ranks snapshot and net-addition views against one identity
// resolver. Construct once per run; Rank methods never mutate state and
// identical inputs produce identical output ordering.
type Engine struct {
	resolver *identity.Resolver
	filters  Filters
	topN     int
}

// NewEngine builds a ranking engine. topN bounds report length; zero or
// negative keeps every ranked row.
func NewEngine(resolver *identity.Resolver, filters Filters, topN int) *Engine {
	return &Engine{resolver: resolver, filters: filters, topN: topN}
}

// RankOwnership ranks one quarter's per-security aggregates by metric:
// ownership percentage of float, total reported value, or holder count.
//
// Percentage-of-float metrics apply all three filters; value and count
// metrics apply only the ETF exclusion, so a security with no usable
// shares-outstanding figure still ranks by value. Cap exceedances are
// flagged whenever the percentage is computable, even when the metric
// keeps the security in.
func (e *Engine) RankOwnership(snap *model.QuarterSnapshot, metric model.Metric) (*model.RankedReport, *Stats, error) {
	switch metric {
	case model.MetricOwnershipPct, model.MetricTotalValue, model.MetricHolderCount:
	default:
		return nil, nil, fmt.Errorf("metric %q does not rank an ownership view: %w", metric, apperrors.ErrInvalidMetric)
	}
	if snap == nil {
		return nil, nil, fmt.Errorf("ranking requires a quarter snapshot")
	}

	stats := &Stats{}
	summary := model.ReportSummary{
		SecuritiesConsidered:  len(snap.Securities),
		InstitutionsInQuarter: len(snap.Institutions),
	}

	entries := make([]model.RankedEntry, 0, len(snap.Securities))
	for _, cusip := range sortedCUSIPs(snap.Securities) {
		sec := snap.Securities[cusip]
		id := e.resolver.Resolve(cusip)

		if e.filters.ExcludeETFs && id.IsETF {
			summary.ExcludedETF++
			continue
		}

		entry := model.RankedEntry{
			CUSIP:                cusip,
			Ticker:               id.Ticker,
			Name:                 id.Name,
			TotalShares:          sec.TotalShares,
			TotalValueMillicents: sec.TotalValueMillicents,
			HolderCount:          len(sec.Holders),
		}

		floatShares, hasFloat := e.resolver.SharesOutstanding(cusip)
		var pct float64
		if hasFloat {
			pct = float64(sec.TotalShares) / float64(floatShares) * 100
			entry.PctOfFloat = &pct
		}

		if metric.PercentageBased() {
			if !hasFloat {
				summary.ExcludedUnresolved++
				continue
			}
			if floatShares < e.filters.MinSharesOutstanding {
				summary.ExcludedMinShares++
				continue
			}
		}
		if hasFloat && pct > e.filters.OwnershipCapPct {
			stats.OwnershipCapExceedances++
			log.Printf("ownership cap exceeded for %s: %.2f%% of %d shares outstanding (cap %.1f%%)",
				cusip, pct, floatShares, e.filters.OwnershipCapPct)
			if metric.PercentageBased() {
				summary.ExcludedCap++
				continue
			}
		}

		switch metric {
		case model.MetricOwnershipPct:
			entry.MetricValue = pct
		case model.MetricTotalValue:
			entry.MetricValue = float64(sec.TotalValueMillicents)
		case model.MetricHolderCount:
			entry.MetricValue = float64(len(sec.Holders))
		}

		summary.TotalShares += sec.TotalShares
		summary.TotalValueMillicents += sec.TotalValueMillicents
		entries = append(entries, entry)
	}
	summary.SecuritiesRanked = len(entries)

	rankEntries(entries)

	cov, stale := e.resolver.Coverage(snap)
	stats.StaleSharesTreatedAbsent = stale

	return &model.RankedReport{
		Kind:        model.ReportOwnership,
		Metric:      metric,
		Quarter:     snap.Quarter,
		GeneratedAt: time.Now().UTC(),
		TopN:        e.topN,
		Entries:     truncate(entries, e.topN),
		Summary:     summary,
		Coverage:    cov,
	}, stats, nil
}

// RankNetAdditions ranks a reconciliation pass by metric: net
// institutional adds (adding minus reducing institutions), net shares
// added, or net value added. Entries carry the full net-addition record
// plus current-quarter ownership context. Only the ETF exclusion applies;
// net metrics never divide by the float.
func (e *Engine) RankNetAdditions(records []model.NetAdditionRecord, current *model.QuarterSnapshot, metric model.Metric) (*model.RankedReport, *Stats, error) {
	switch metric {
	case model.MetricNetInstitutions, model.MetricNetShares, model.MetricNetValue:
	default:
		return nil, nil, fmt.Errorf("metric %q does not rank a net-additions view: %w", metric, apperrors.ErrInvalidMetric)
	}
	if current == nil {
		return nil, nil, fmt.Errorf("ranking requires the current quarter snapshot")
	}

	stats := &Stats{}
	summary := model.ReportSummary{
		SecuritiesConsidered:  len(records),
		InstitutionsInQuarter: len(current.Institutions),
	}

	var priorQuarter *model.Quarter
	entries := make([]model.RankedEntry, 0, len(records))
	for i := range records {
		rec := records[i]
		if rec.Quarter != current.Quarter {
			return nil, nil, fmt.Errorf("net-addition record for %s is from %s, want %s",
				rec.CUSIP, rec.Quarter, current.Quarter)
		}
		if priorQuarter == nil {
			p := rec.PriorQuarter
			priorQuarter = &p
		}

		id := e.resolver.Resolve(rec.CUSIP)
		if e.filters.ExcludeETFs && id.IsETF {
			summary.ExcludedETF++
			continue
		}

		entry := model.RankedEntry{
			CUSIP:       rec.CUSIP,
			Ticker:      id.Ticker,
			Name:        id.Name,
			NetAddition: &rec,
		}
		// Securities that were fully exited have no current aggregate;
		// their ownership context stays zero.
		if sec := current.Security(rec.CUSIP); sec != nil {
			entry.TotalShares = sec.TotalShares
			entry.TotalValueMillicents = sec.TotalValueMillicents
			entry.HolderCount = len(sec.Holders)
			if floatShares, ok := e.resolver.SharesOutstanding(rec.CUSIP); ok {
				pct := float64(sec.TotalShares) / float64(floatShares) * 100
				entry.PctOfFloat = &pct
			}
		}

		switch metric {
		case model.MetricNetInstitutions:
			entry.MetricValue = float64(rec.NetAddingInstitutions - rec.NetReducingInstitutions)
		case model.MetricNetShares:
			entry.MetricValue = float64(rec.NetSharesDelta)
		case model.MetricNetValue:
			entry.MetricValue = float64(rec.NetValueDeltaMillicents)
		}

		summary.TotalShares += entry.TotalShares
		summary.TotalValueMillicents += entry.TotalValueMillicents
		entries = append(entries, entry)
	}
	summary.SecuritiesRanked = len(entries)

	rankEntries(entries)

	cov, stale := e.resolver.Coverage(current)
	stats.StaleSharesTreatedAbsent = stale

	return &model.RankedReport{
		Kind:         model.ReportNetAdditions,
		Metric:       metric,
		Quarter:      current.Quarter,
		PriorQuarter: priorQuarter,
		GeneratedAt:  time.Now().UTC(),
		TopN:         e.topN,
		Entries:      truncate(entries, e.topN),
		Summary:      summary,
		Coverage:     cov,
	}, stats, nil
}

// rankEntries orders by metric descending, ties by total value descending
// then CUSIP ascending, and assigns 1-based ranks. The three-key order is
// total, so identical inputs always rank identically.
func rankEntries(entries []model.RankedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].MetricValue != entries[j].MetricValue {
			return entries[i].MetricValue > entries[j].MetricValue
		}
		if entries[i].TotalValueMillicents != entries[j].TotalValueMillicents {
			return entries[i].TotalValueMillicents > entries[j].TotalValueMillicents
		}
		return entries[i].CUSIP < entries[j].CUSIP
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

func truncate(entries []model.RankedEntry, topN int) []model.RankedEntry {
	if topN > 0 && len(entries) > topN {
		return entries[:topN]
	}
	return entries
}

func sortedCUSIPs(securities map[string]*model.SecurityAggregate) []string {
	cusips := make([]string, 0, len(securities))
	for cusip := range securities {
		cusips = append(cusips, cusip)
	}
	sort.Strings(cusips)
	return cusips
}
