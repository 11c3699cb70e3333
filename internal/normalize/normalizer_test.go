package normalize_test

import (
	"testing"
	"time"

	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/normalize"
)

var q2 = model.MustParseQuarter("Q2-2025")

func filing(accession, cik, name string, filed string, ft model.FilingType, lines ...model.HoldingLine) model.FilingHoldings {
	date, err := time.Parse("2006-01-02", filed)
	if err != nil {
		panic(err)
	}
	form := "13F-HR"
	if ft == model.FilingAmendment {
		form = "13F-HR/A"
	}
	return model.FilingHoldings{
		Filing: model.Filing{
			Accession:       accession,
			InstitutionID:   cik,
			InstitutionName: name,
			FormType:        form,
			FilingType:      ft,
			FilingDate:      date,
			PeriodQuarter:   q2,
		},
		Lines: lines,
	}
}

func line(cusip string, shares, valueMillicents int64) model.HoldingLine {
	return model.HoldingLine{CUSIP: cusip, IssuerName: "TEST ISSUER", Shares: shares, ValueMillicents: valueMillicents}
}

// TestNormalizeDropsAmendments verifies the unconditional amendment policy:
// an amendment-only filing set produces zero records.
// WHY: amendments are often partial restatements; merging them corrupts
// quarter totals, so they are excluded entirely rather than merged.
func TestNormalizeDropsAmendments(t *testing.T) {
	records, diags := normalize.Normalize(q2, []model.FilingHoldings{
		filing("0001-25-1", "0001000001", "AMENDER LP", "2025-08-01", model.FilingAmendment,
			line("037833100", 1000, 5000000)),
	})

	if len(records) != 0 {
		t.Fatalf("expected no records from amendments, got %d", len(records))
	}
	if diags.AmendmentsExcluded != 1 {
		t.Errorf("AmendmentsExcluded = %d, want 1", diags.AmendmentsExcluded)
	}
}

// TestNormalizeMalformedLines verifies bad CUSIPs and non-positive share
// counts are skipped without failing the filing.
func TestNormalizeMalformedLines(t *testing.T) {
	records, diags := normalize.Normalize(q2, []model.FilingHoldings{
		filing("0002-25-1", "0001000002", "SELECTIVE LP", "2025-08-01", model.FilingOriginal,
			line("short", 1000, 1000),       // bad cusip
			line("037833100", 0, 1000),      // zero shares
			line("59491810!", 1000, 1000),   // punctuation
			line("594918104", 2500, 900000), // good
		),
	})

	if len(records) != 1 {
		t.Fatalf("expected 1 surviving record, got %d", len(records))
	}
	if records[0].CUSIP != "594918104" || records[0].Shares != 2500 {
		t.Errorf("surviving record = %+v", records[0])
	}
	if diags.MalformedRecords != 3 {
		t.Errorf("MalformedRecords = %d, want 3", diags.MalformedRecords)
	}
}

// TestNormalizeSumsSplitRows verifies per-CUSIP summing within one filing.
// WHY: filers split a position across voting-authority rows; those are one
// position, not duplicates.
func TestNormalizeSumsSplitRows(t *testing.T) {
	records, diags := normalize.Normalize(q2, []model.FilingHoldings{
		filing("0003-25-1", "0001000003", "SPLITTER LLC", "2025-08-05", model.FilingOriginal,
			line("037833100", 600, 3000000),
			line("037833100", 400, 2000000),
		),
	})

	if len(records) != 1 {
		t.Fatalf("expected split rows to merge into 1 record, got %d", len(records))
	}
	if records[0].Shares != 1000 {
		t.Errorf("shares = %d, want 1000", records[0].Shares)
	}
	if records[0].ValueMillicents != 5000000 {
		t.Errorf("value = %d, want 5000000", records[0].ValueMillicents)
	}
	if diags.DuplicatesResolved != 0 {
		t.Errorf("split rows must not count as duplicates, got %d", diags.DuplicatesResolved)
	}
}

// TestNormalizeDuplicateLaterDateWins covers the restatement policy: two
// originals for the same (institution, cusip, quarter) keep the later-dated
// filing.
func TestNormalizeDuplicateLaterDateWins(t *testing.T) {
	records, diags := normalize.Normalize(q2, []model.FilingHoldings{
		filing("0004-25-1", "000100000X", "X CAPITAL", "2025-08-01", model.FilingOriginal,
			line("ABC123456", 100, 100000)),
		filing("0004-25-2", "000100000X", "X CAPITAL", "2025-08-15", model.FilingOriginal,
			line("ABC123456", 150, 150000)),
	})

	if len(records) != 1 {
		t.Fatalf("expected 1 record after duplicate resolution, got %d", len(records))
	}
	if records[0].Shares != 150 {
		t.Errorf("shares = %d, want the later filing's 150", records[0].Shares)
	}
	if records[0].Accession != "0004-25-2" {
		t.Errorf("kept accession = %s, want 0004-25-2", records[0].Accession)
	}
	if diags.DuplicatesResolved != 1 {
		t.Errorf("DuplicatesResolved = %d, want 1", diags.DuplicatesResolved)
	}
	if len(diags.Resolutions) != 1 || diags.Resolutions[0].Reason != "later filing date" {
		t.Errorf("resolution detail = %+v", diags.Resolutions)
	}
}

// TestNormalizeDuplicateDateTie keeps the larger share count when filing
// dates are equal. Order of arrival must not matter.
func TestNormalizeDuplicateDateTie(t *testing.T) {
	for _, order := range []string{"small-first", "large-first"} {
		t.Run(order, func(t *testing.T) {
			small := filing("0005-25-1", "0001000005", "TIE LP", "2025-08-10", model.FilingOriginal,
				line("594918104", 100, 100000))
			large := filing("0005-25-2", "0001000005", "TIE LP", "2025-08-10", model.FilingOriginal,
				line("594918104", 900, 900000))

			input := []model.FilingHoldings{small, large}
			if order == "large-first" {
				input = []model.FilingHoldings{large, small}
			}

			records, diags := normalize.Normalize(q2, input)
			if len(records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(records))
			}
			if records[0].Shares != 900 {
				t.Errorf("shares = %d, want 900 (larger count wins the tie)", records[0].Shares)
			}
			if diags.Resolutions[0].Reason != "larger share count" {
				t.Errorf("reason = %q", diags.Resolutions[0].Reason)
			}
		})
	}
}

// TestNormalizeProvenance verifies records carry both analysis and source
// quarters, and filings from other periods never leak in.
func TestNormalizeProvenance(t *testing.T) {
	stray := filing("0006-24-9", "0001000006", "LATE LP", "2025-08-01", model.FilingOriginal,
		line("037833100", 500, 500000))
	stray.Filing.PeriodQuarter = model.MustParseQuarter("Q1-2025")

	records, _ := normalize.Normalize(q2, []model.FilingHoldings{
		stray,
		filing("0006-25-1", "0001000006", "LATE LP", "2025-08-01", model.FilingOriginal,
			line("594918104", 700, 700000)),
	})

	if len(records) != 1 {
		t.Fatalf("expected stray-period filing to be skipped, got %d records", len(records))
	}
	if records[0].Quarter != q2 || records[0].SourceQuarter != q2 {
		t.Errorf("provenance = quarter %s source %s, want both %s",
			records[0].Quarter, records[0].SourceQuarter, q2)
	}
}
