package normalize

import (
	"log"
	"sort"

	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/validation"
)

// DuplicateResolution records one deterministic duplicate-filing decision.
// Diagnostic only: duplicates are resolved, never surfaced as errors.
type DuplicateResolution struct {
	InstitutionID    string
	CUSIP            string
	Quarter          model.Quarter
	KeptAccession    string
	DroppedAccession string
	Reason           string // "later filing date" or "larger share count"
}

// Diagnostics aggregates the non-fatal events of one normalization pass.
type Diagnostics struct {
	MalformedRecords   int
	AmendmentsExcluded int
	DuplicatesResolved int
	Resolutions        []DuplicateResolution
}

// Normalize converts the quarter's ingested filings into canonical holding
// records.
//
// Policy, in order:
//  1. Amendment filings are discarded unconditionally. Amendments are
//     frequently partial restatements; merging them corrupts quarter totals.
//  2. Lines within one filing are summed per CUSIP (filers legitimately
//     split a security across discretion/voting-authority rows).
//  3. Lines with a malformed CUSIP or non-positive share count are skipped.
//  4. When multiple original filings cover the same (institution, cusip),
//     the later filing date wins; equal dates keep the larger share count.
func Normalize(quarter model.Quarter, filings []model.FilingHoldings) ([]model.HoldingRecord, *Diagnostics) {
	diags := &Diagnostics{}

	// Candidate records keyed by institution then cusip, resolved as
	// filings are folded in.
	kept := make(map[string]map[string]model.HoldingRecord)

	for _, fh := range filings {
		f := fh.Filing
		if f.FilingType == model.FilingAmendment {
			diags.AmendmentsExcluded++
			continue
		}
		if f.PeriodQuarter != quarter {
			log.Printf("normalize: skipping filing %s: period %s outside analysis quarter %s",
				f.Accession, f.PeriodQuarter, quarter)
			continue
		}

		byCUSIP := make(map[string]model.HoldingRecord)
		for _, line := range fh.Lines {
			cusip, err := validation.NormalizeCUSIP(line.CUSIP)
			if err != nil {
				diags.MalformedRecords++
				continue
			}
			if line.Shares <= 0 {
				diags.MalformedRecords++
				continue
			}
			rec, ok := byCUSIP[cusip]
			if !ok {
				rec = model.HoldingRecord{
					InstitutionID:   f.InstitutionID,
					InstitutionName: f.InstitutionName,
					CUSIP:           cusip,
					Quarter:         quarter,
					SourceQuarter:   f.PeriodQuarter,
					FilingType:      f.FilingType,
					FilingDate:      f.FilingDate,
					Accession:       f.Accession,
				}
			}
			rec.Shares += line.Shares
			rec.ValueMillicents += line.ValueMillicents
			byCUSIP[cusip] = rec
		}

		instKept, ok := kept[f.InstitutionID]
		if !ok {
			instKept = make(map[string]model.HoldingRecord)
			kept[f.InstitutionID] = instKept
		}
		for cusip, candidate := range byCUSIP {
			existing, ok := instKept[cusip]
			if !ok {
				instKept[cusip] = candidate
				continue
			}
			winner, loser, reason := resolveDuplicate(existing, candidate)
			instKept[cusip] = winner
			diags.DuplicatesResolved++
			diags.Resolutions = append(diags.Resolutions, DuplicateResolution{
				InstitutionID:    f.InstitutionID,
				CUSIP:            cusip,
				Quarter:          quarter,
				KeptAccession:    winner.Accession,
				DroppedAccession: loser.Accession,
				Reason:           reason,
			})
			log.Printf("normalize: duplicate original for (%s, %s, %s): kept %s over %s (%s)",
				f.InstitutionID, cusip, quarter, winner.Accession, loser.Accession, reason)
		}
	}

	records := make([]model.HoldingRecord, 0, len(kept))
	for _, instKept := range kept {
		for _, rec := range instKept {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CUSIP != records[j].CUSIP {
			return records[i].CUSIP < records[j].CUSIP
		}
		return records[i].InstitutionID < records[j].InstitutionID
	})

	return records, diags
}

// resolveDuplicate picks between two original records for the same
// (institution, cusip, quarter). Later filing date wins; a date tie keeps
// the larger share count. The tie-break is a documented policy choice, not
// an adjudication rule.
func resolveDuplicate(a, b model.HoldingRecord) (winner, loser model.HoldingRecord, reason string) {
	switch {
	case b.FilingDate.After(a.FilingDate):
		return b, a, "later filing date"
	case a.FilingDate.After(b.FilingDate):
		return a, b, "later filing date"
	case b.Shares > a.Shares:
		return b, a, "larger share count"
	default:
		return a, b, "larger share count"
	}
}
