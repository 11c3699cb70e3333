// Package snapshot aggregates normalized holding records into immutable
// per-quarter views. A QuarterSnapshot answers two questions the rest of
// the engine keeps asking: who holds a security, and how big is an
// institution's whole portfolio.
package snapshot

import (
	"fmt"
	"sort"

	"github.com/tvandenberg/thirteenf/internal/model"
)

// Build aggregates records into a QuarterSnapshot for quarter.
//
// Every record must already be normalized to the requested quarter; a
// record tagged with any other quarter indicates an upstream bug and
// fails the build rather than silently polluting the aggregates.
//
// Holder rosters are ordered by descending shares, ties broken by
// institution ID ascending, so snapshot output is deterministic across
// runs regardless of input order.
func Build(quarter model.Quarter, records []model.HoldingRecord) (*model.QuarterSnapshot, error) {
	snap := &model.QuarterSnapshot{
		Quarter:      quarter,
		Securities:   make(map[string]*model.SecurityAggregate),
		Institutions: make(map[string]*model.InstitutionAggregate),
		RecordCount:  len(records),
	}

	for i := range records {
		rec := &records[i]
		if rec.Quarter != quarter {
			return nil, fmt.Errorf("holding record %s/%s tagged %s, snapshot is for %s",
				rec.InstitutionID, rec.CUSIP, rec.Quarter, quarter)
		}

		sec, ok := snap.Securities[rec.CUSIP]
		if !ok {
			sec = &model.SecurityAggregate{CUSIP: rec.CUSIP}
			snap.Securities[rec.CUSIP] = sec
		}
		sec.TotalShares += rec.Shares
		sec.TotalValueMillicents += rec.ValueMillicents
		sec.Holders = append(sec.Holders, model.HolderPosition{
			InstitutionID:   rec.InstitutionID,
			Shares:          rec.Shares,
			ValueMillicents: rec.ValueMillicents,
		})

		inst, ok := snap.Institutions[rec.InstitutionID]
		if !ok {
			inst = &model.InstitutionAggregate{
				InstitutionID: rec.InstitutionID,
				Name:          rec.InstitutionName,
			}
			snap.Institutions[rec.InstitutionID] = inst
		}
		inst.TotalShares += rec.Shares
		inst.TotalValueMillicents += rec.ValueMillicents
		inst.Positions++
	}

	for _, sec := range snap.Securities {
		sortHolders(sec.Holders)
	}

	return snap, nil
}

func sortHolders(holders []model.HolderPosition) {
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].Shares != holders[j].Shares {
			return holders[i].Shares > holders[j].Shares
		}
		return holders[i].InstitutionID < holders[j].InstitutionID
	})
}
