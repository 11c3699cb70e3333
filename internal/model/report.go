package model

import "time"

// ReportKind names the two report families the engine emits.
type ReportKind string

const (
	ReportOwnership    ReportKind = "ownership"
	ReportNetAdditions ReportKind = "net_additions"
)

// Metric selects the primary ranking dimension.
type Metric string

const (
	// MetricOwnershipPct ranks by institutional ownership as a percentage
	// of shares outstanding. Percentage-of-float semantics: data-quality
	// filters (minimum float, ownership cap) apply.
	MetricOwnershipPct Metric = "ownership_pct"
	// MetricTotalValue ranks by aggregate reported position value.
	MetricTotalValue Metric = "total_value"
	// MetricHolderCount ranks by the number of holding institutions.
	MetricHolderCount Metric = "holder_count"
	// MetricNetInstitutions ranks by net institutional adds
	// (adding minus reducing institutions).
	MetricNetInstitutions Metric = "net_institutions"
	// MetricNetShares ranks by net shares added quarter over quarter.
	MetricNetShares Metric = "net_shares"
	// MetricNetValue ranks by net value added quarter over quarter.
	MetricNetValue Metric = "net_value"
)

// PercentageBased reports whether the metric divides by shares outstanding,
// which switches on the float-quality filters.
func (m Metric) PercentageBased() bool {
	return m == MetricOwnershipPct
}

// RankedEntry is one row of a RankedReport. Ownership context
// (shares, value, holders) is populated for both report kinds; the
// NetAddition block is present only on net-additions reports.
type RankedEntry struct {
	Rank                 int                `json:"rank"`
	CUSIP                string             `json:"cusip"`
	Ticker               *string            `json:"ticker,omitempty"`
	Name                 string             `json:"name,omitempty"`
	MetricValue          float64            `json:"metric_value"`
	TotalShares          int64              `json:"total_shares"`
	TotalValueMillicents int64              `json:"total_value_millicents"`
	HolderCount          int                `json:"holder_count"`
	PctOfFloat           *float64           `json:"pct_of_float,omitempty"`
	NetAddition          *NetAdditionRecord `json:"net_addition,omitempty"`
}

// ReportSummary carries the aggregate statistics a completed ranking emits
// alongside the rows, so consumers can judge completeness.
type ReportSummary struct {
	SecuritiesConsidered  int   `json:"securities_considered"`
	SecuritiesRanked      int   `json:"securities_ranked"`
	ExcludedETF           int   `json:"excluded_etf"`
	ExcludedMinShares     int   `json:"excluded_min_shares_outstanding"`
	ExcludedCap           int   `json:"excluded_ownership_cap"`
	ExcludedUnresolved    int   `json:"excluded_unresolved"`
	TotalShares           int64 `json:"total_shares"`
	TotalValueMillicents  int64 `json:"total_value_millicents"`
	InstitutionsInQuarter int   `json:"institutions_in_quarter"`
}

// CoverageSummary is the per-run identity-resolution audit: how much of the
// filed value resolved to a ticker and to a usable shares-outstanding
// figure. Emitted on every completed run.
type CoverageSummary struct {
	Quarter                   Quarter `json:"quarter"`
	TotalSecurities           int     `json:"total_securities"`
	TotalFiledValueMillicents int64   `json:"total_filed_value_millicents"`
	TickerResolvedSecurities  int     `json:"ticker_resolved_securities"`
	TickerResolvedValuePct    float64 `json:"ticker_resolved_value_pct"`
	SharesResolvedSecurities  int     `json:"shares_resolved_securities"`
	SharesResolvedValuePct    float64 `json:"shares_resolved_value_pct"`
	UnresolvedSecurities      int     `json:"unresolved_securities"`
}

// DiagnosticCounts surfaces the non-fatal data-quality events of one run.
type DiagnosticCounts struct {
	MalformedRecords         int `json:"malformed_records"`
	AmendmentsExcluded       int `json:"amendments_excluded"`
	DuplicatesResolved       int `json:"duplicates_resolved"`
	OwnershipCapExceedances  int `json:"ownership_cap_exceedances"`
	DivisionGuardExclusions  int `json:"division_guard_exclusions"`
	StaleSharesTreatedAbsent int `json:"stale_shares_treated_absent"`
	FromEarlierQuarters      int `json:"from_earlier_quarters"`
}

// RankedReport is the engine's final output view: ranked, truncated rows
// plus summary, coverage, and diagnostics. Regenerated per run, never
// mutated after emission.
type RankedReport struct {
	Kind         ReportKind       `json:"kind"`
	Metric       Metric           `json:"metric"`
	Quarter      Quarter          `json:"quarter"`
	PriorQuarter *Quarter         `json:"prior_quarter,omitempty"`
	GeneratedAt  time.Time        `json:"generated_at"`
	TopN         int              `json:"top_n"`
	Entries      []RankedEntry    `json:"entries"`
	Summary      ReportSummary    `json:"summary"`
	Coverage     CoverageSummary  `json:"coverage"`
	Diagnostics  DiagnosticCounts `json:"diagnostics"`
}
