package model

import "time"

// HoldingRecord is the canonical (institution, security, shares, value)
// tuple for one quarter, produced by the Filing Normalizer. Records are
// owned by the quarter's ingestion that created them and are never shared
// across quarters.
//
// Quarter is the analysis quarter the record participates in;
// SourceQuarter is the reporting period of the filing that produced it.
// The two differ only if a cross-quarter fallback policy ever populates a
// gap, so reports can state provenance explicitly.
type HoldingRecord struct {
	InstitutionID   string     `json:"institution_id"`
	InstitutionName string     `json:"institution_name"`
	CUSIP           string     `json:"cusip"`
	Quarter         Quarter    `json:"quarter"`
	SourceQuarter   Quarter    `json:"source_quarter"`
	Shares          int64      `json:"shares"`
	ValueMillicents int64      `json:"value_millicents"`
	FilingType      FilingType `json:"filing_type"`
	FilingDate      time.Time  `json:"filing_date"`
	Accession       string     `json:"accession"`
}
