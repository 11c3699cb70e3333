// Package reconcile diffs two quarter snapshots into per-security
// net-addition records: who entered, who exited, and how share counts
// and portfolio weights moved between the quarters.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/tvandenberg/thirteenf/internal/model"
)

// Stats carries the non-fatal exclusion counts from one reconciliation
// pass, surfaced in the run summary.
type Stats struct {
	// DivisionGuardExclusions counts institutions dropped from a
	// weight-delta average because a portfolio denominator was zero.
	DivisionGuardExclusions int
}

// Reconcile diffs prior against current and returns one NetAdditionRecord
// per CUSIP present in either snapshot, ordered by CUSIP ascending.
//
// Delta sign convention is uniform: an entrant's delta is its full current
// position, an exit's delta is the negated full prior position, and an
// institution present in both quarters contributes current minus prior.
// An institution whose coverage lapses for a quarter (late filing) is
// indistinguishable from an exit and is counted as one.
//
// The portfolio-weight average spans institutions holding the security in
// the current quarter. A zero portfolio denominator on either side excludes
// that institution from the average and increments the division guard.
func Reconcile(prior, current *model.QuarterSnapshot) ([]model.NetAdditionRecord, *Stats, error) {
	if prior == nil || current == nil {
		return nil, nil, fmt.Errorf("reconcile requires two snapshots")
	}
	if prior.Quarter == current.Quarter {
		return nil, nil, fmt.Errorf("reconcile requires distinct quarters, got %s twice", current.Quarter)
	}

	stats := &Stats{}
	cusips := unionKeys(prior.Securities, current.Securities)
	records := make([]model.NetAdditionRecord, 0, len(cusips))

	for _, cusip := range cusips {
		priorPos := positionsByInstitution(prior.Security(cusip))
		currentPos := positionsByInstitution(current.Security(cusip))

		rec := model.NetAdditionRecord{
			CUSIP:                cusip,
			Quarter:              current.Quarter,
			PriorQuarter:         prior.Quarter,
			InstitutionsEntering: []string{},
			InstitutionsExiting:  []string{},
		}

		var weightSum float64
		var weightCount int

		for _, instID := range unionKeys(priorPos, currentPos) {
			p, hadPrior := priorPos[instID]
			c, hasCurrent := currentPos[instID]

			delta := c.Shares - p.Shares
			rec.InstitutionChanges = append(rec.InstitutionChanges, model.InstitutionChange{
				InstitutionID: instID,
				PriorShares:   p.Shares,
				CurrentShares: c.Shares,
				SharesDelta:   delta,
			})
			switch {
			case delta > 0:
				rec.NetAddingInstitutions++
			case delta < 0:
				rec.NetReducingInstitutions++
			}
			rec.NetSharesDelta += delta
			rec.NetValueDeltaMillicents += c.ValueMillicents - p.ValueMillicents

			switch {
			case hasCurrent && !hadPrior:
				rec.InstitutionsEntering = append(rec.InstitutionsEntering, instID)
			case hadPrior && !hasCurrent:
				rec.InstitutionsExiting = append(rec.InstitutionsExiting, instID)
			}

			if !hasCurrent {
				continue
			}
			currentWeight, ok := portfolioWeight(current, instID, c.ValueMillicents)
			if !ok {
				stats.DivisionGuardExclusions++
				continue
			}
			var priorWeight float64
			if hadPrior {
				priorWeight, ok = portfolioWeight(prior, instID, p.ValueMillicents)
				if !ok {
					stats.DivisionGuardExclusions++
					continue
				}
			}
			weightSum += currentWeight - priorWeight
			weightCount++
		}

		if weightCount > 0 {
			avg := weightSum / float64(weightCount)
			rec.AvgPortfolioWeightDeltaPct = &avg
		}
		records = append(records, rec)
	}

	return records, stats, nil
}

// portfolioWeight returns positionValue as a percentage of the
// institution's whole portfolio in snap. ok is false when the portfolio
// denominator is zero.
func portfolioWeight(snap *model.QuarterSnapshot, instID string, positionValue int64) (float64, bool) {
	total := snap.PortfolioValue(instID)
	if total == 0 {
		return 0, false
	}
	return float64(positionValue) / float64(total) * 100, true
}

func positionsByInstitution(sec *model.SecurityAggregate) map[string]model.HolderPosition {
	if sec == nil {
		return nil
	}
	m := make(map[string]model.HolderPosition, len(sec.Holders))
	for _, h := range sec.Holders {
		m[h.InstitutionID] = h
	}
	return m
}

// unionKeys returns the sorted union of both maps' keys. Sorting keeps
// record and roster order deterministic across runs.
func unionKeys[V any](a, b map[string]V) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
