package model

import "time"

// FilingType distinguishes original 13F-HR reports from amendments.
type FilingType string

const (
	FilingOriginal  FilingType = "original"
	FilingAmendment FilingType = "amendment"
)

// FilingTypeFromForm maps an EDGAR form type string to a FilingType.
// Any "/A" suffix marks an amendment.
func FilingTypeFromForm(form string) FilingType {
	if len(form) >= 2 && form[len(form)-2:] == "/A" {
		return FilingAmendment
	}
	return FilingOriginal
}

// Filing is the metadata of one ingested 13F document.
type Filing struct {
	Accession       string     `json:"accession"`
	InstitutionID   string     `json:"institution_id"` // CIK
	InstitutionName string     `json:"institution_name"`
	FormType        string     `json:"form_type"` // e.g. "13F-HR", "13F-HR/A"
	FilingType      FilingType `json:"filing_type"`
	FilingDate      time.Time  `json:"filing_date"`
	PeriodQuarter   Quarter    `json:"period_quarter"`
	RawPath         string     `json:"raw_path"`
	DownloadedAt    time.Time  `json:"downloaded_at"`
}

// IngestStats records the outcome of one acquisition pass over a quarter.
// Reconciliation runs read these back to report filing-level diagnostics
// without re-parsing the documents.
type IngestStats struct {
	Quarter            Quarter   `json:"quarter"`
	IndexEntries       int       `json:"index_entries"`
	FilingsIngested    int       `json:"filings_ingested"`
	AmendmentsExcluded int       `json:"amendments_excluded"`
	OtherPeriods       int       `json:"other_periods"`
	MalformedRecords   int       `json:"malformed_records"`
	DuplicatesResolved int       `json:"duplicates_resolved"`
	HoldingRecords     int       `json:"holding_records"`
	IngestedAt         time.Time `json:"ingested_at"`
}

// HoldingLine is one information-table row as reported in a filing,
// already converted to the pipeline's internal units. IssuerName is the
// filer-reported security name, used as a fallback when no identity mapping
// carries a better one.
type HoldingLine struct {
	CUSIP           string `json:"cusip"`
	IssuerName      string `json:"issuer_name"`
	Shares          int64  `json:"shares"`
	ValueMillicents int64  `json:"value_millicents"`
}

// FilingHoldings couples a filing's metadata with its reported line items.
// This is the normalizer's input shape.
type FilingHoldings struct {
	Filing Filing
	Lines  []HoldingLine
}
