package testutil

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/tvandenberg/thirteenf/internal/model"
)

// storedTime renders a timestamp the way the repositories store them.
func storedTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// IdentityBuilder provides a fluent interface for creating test security
// identities.
//
// Example usage:
//
//	// Simple creation with defaults (resolved directory mapping)
//	identity := testutil.NewIdentity().Build(t, db)
//
//	// Customized identity
//	identity := testutil.NewIdentity().
//	    WithCUSIP("037833100").
//	    WithTicker("AAPL").
//	    WithShares(15_000_000_000, time.Now()).
//	    Build(t, db)
type IdentityBuilder struct {
	CUSIP             string
	Ticker            *string
	Name              string
	SharesOutstanding *int64
	SharesAsOf        *time.Time
	MappingSource     model.MappingSource
	IsETF             bool
	LastUpdated       time.Time
}

// NewIdentity creates an IdentityBuilder with sensible defaults: a resolved
// directory mapping with no shares-outstanding figure.
func NewIdentity() *IdentityBuilder {
	ticker := MakeTicker("")
	return &IdentityBuilder{
		CUSIP:         MakeCUSIP(),
		Ticker:        &ticker,
		Name:          MakeInstitutionName("Issuer"),
		MappingSource: model.SourceDirectory,
		IsETF:         false,
		LastUpdated:   time.Now().UTC(),
	}
}

// WithCUSIP sets a custom CUSIP.
func (b *IdentityBuilder) WithCUSIP(cusip string) *IdentityBuilder {
	b.CUSIP = cusip
	return b
}

// WithTicker sets a custom ticker.
func (b *IdentityBuilder) WithTicker(ticker string) *IdentityBuilder {
	b.Ticker = &ticker
	return b
}

// WithName sets a custom issuer name.
func (b *IdentityBuilder) WithName(name string) *IdentityBuilder {
	b.Name = name
	return b
}

// WithShares sets a shares-outstanding figure and its as-of date.
func (b *IdentityBuilder) WithShares(shares int64, asOf time.Time) *IdentityBuilder {
	b.SharesOutstanding = &shares
	asOfUTC := asOf.UTC()
	b.SharesAsOf = &asOfUTC
	return b
}

// WithSource sets the mapping provenance.
func (b *IdentityBuilder) WithSource(source model.MappingSource) *IdentityBuilder {
	b.MappingSource = source
	return b
}

// Unresolved marks the identity as having no ticker mapping.
func (b *IdentityBuilder) Unresolved() *IdentityBuilder {
	b.Ticker = nil
	b.MappingSource = model.SourceUnresolved
	return b
}

// Manual marks the mapping as operator-supplied.
func (b *IdentityBuilder) Manual() *IdentityBuilder {
	b.MappingSource = model.SourceManual
	return b
}

// AsETF flags the security as an exchange-traded fund.
func (b *IdentityBuilder) AsETF() *IdentityBuilder {
	b.IsETF = true
	return b
}

// Build creates the identity in the database and returns it.
func (b *IdentityBuilder) Build(t *testing.T, db *sql.DB) model.SecurityIdentity {
	t.Helper()

	query := `
		INSERT INTO security_identities (cusip, ticker, name, shares_outstanding, shares_as_of, mapping_source, is_etf, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var sharesAsOf any
	if b.SharesAsOf != nil {
		sharesAsOf = storedTime(*b.SharesAsOf)
	}
	var shares any
	if b.SharesOutstanding != nil {
		shares = *b.SharesOutstanding
	}

	_, err := db.Exec(query, b.CUSIP, b.Ticker, b.Name, shares, sharesAsOf, string(b.MappingSource), b.IsETF, storedTime(b.LastUpdated))
	if err != nil {
		t.Fatalf("Failed to create test identity: %v", err)
	}

	return model.SecurityIdentity{
		CUSIP:             b.CUSIP,
		Ticker:            b.Ticker,
		Name:              b.Name,
		SharesOutstanding: b.SharesOutstanding,
		SharesAsOf:        b.SharesAsOf,
		MappingSource:     b.MappingSource,
		IsETF:             b.IsETF,
		LastUpdated:       b.LastUpdated.UTC(),
	}
}

// FilingBuilder provides a fluent interface for creating test filing
// metadata rows.
//
// Example usage:
//
//	filing := testutil.NewFiling(quarter).Build(t, db)
//
//	amendment := testutil.NewFiling(quarter).
//	    WithCIK("0001067983").
//	    Amendment().
//	    Build(t, db)
type FilingBuilder struct {
	Accession       string
	CIK             string
	InstitutionName string
	FormType        string
	FilingType      model.FilingType
	FilingDate      time.Time
	PeriodQuarter   model.Quarter
	RawPath         string
	DownloadedAt    time.Time
}

// NewFiling creates a FilingBuilder for an original 13F-HR covering the
// given period quarter, filed a month after quarter end.
func NewFiling(quarter model.Quarter) *FilingBuilder {
	return &FilingBuilder{
		Accession:       MakeAccession(),
		CIK:             MakeCIK(),
		InstitutionName: MakeInstitutionName(""),
		FormType:        "13F-HR",
		FilingType:      model.FilingOriginal,
		FilingDate:      quarter.PeriodEnd().AddDate(0, 0, 30),
		PeriodQuarter:   quarter,
		RawPath:         "",
		DownloadedAt:    time.Now().UTC(),
	}
}

// WithAccession sets a custom accession number.
func (b *FilingBuilder) WithAccession(accession string) *FilingBuilder {
	b.Accession = accession
	return b
}

// WithCIK sets a custom filer CIK.
func (b *FilingBuilder) WithCIK(cik string) *FilingBuilder {
	b.CIK = cik
	return b
}

// WithInstitutionName sets a custom filer name.
func (b *FilingBuilder) WithInstitutionName(name string) *FilingBuilder {
	b.InstitutionName = name
	return b
}

// WithFilingDate sets a custom filing date.
func (b *FilingBuilder) WithFilingDate(date time.Time) *FilingBuilder {
	b.FilingDate = date
	return b
}

// Amendment marks the filing as a 13F-HR/A.
func (b *FilingBuilder) Amendment() *FilingBuilder {
	b.FormType = "13F-HR/A"
	b.FilingType = model.FilingAmendment
	return b
}

// Build creates the filing in the database and returns it.
func (b *FilingBuilder) Build(t *testing.T, db *sql.DB) model.Filing {
	t.Helper()

	query := `
		INSERT INTO filings (accession, cik, institution_name, form_type, filing_type, filed_at, period_quarter, raw_path, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		b.Accession, b.CIK, b.InstitutionName, b.FormType, string(b.FilingType),
		storedTime(b.FilingDate), b.PeriodQuarter.String(), b.RawPath, storedTime(b.DownloadedAt),
	)
	if err != nil {
		t.Fatalf("Failed to create test filing: %v", err)
	}

	return model.Filing{
		Accession:       b.Accession,
		InstitutionID:   b.CIK,
		InstitutionName: b.InstitutionName,
		FormType:        b.FormType,
		FilingType:      b.FilingType,
		FilingDate:      b.FilingDate.UTC(),
		PeriodQuarter:   b.PeriodQuarter,
		RawPath:         b.RawPath,
		DownloadedAt:    b.DownloadedAt.UTC(),
	}
}

// HoldingBuilder provides a fluent interface for creating test holding
// records.
//
// Example usage:
//
//	holding := testutil.NewHolding(quarter).
//	    WithCUSIP(identity.CUSIP).
//	    WithShares(250_000).
//	    Build(t, db)
type HoldingBuilder struct {
	InstitutionID   string
	InstitutionName string
	CUSIP           string
	Quarter         model.Quarter
	SourceQuarter   model.Quarter
	Shares          int64
	ValueMillicents int64
	FilingType      model.FilingType
	FilingDate      time.Time
	Accession       string
}

// NewHolding creates a HoldingBuilder with sensible defaults: an original
// filing position of 1,000 shares worth $50,000.
func NewHolding(quarter model.Quarter) *HoldingBuilder {
	return &HoldingBuilder{
		InstitutionID:   MakeCIK(),
		InstitutionName: MakeInstitutionName(""),
		CUSIP:           MakeCUSIP(),
		Quarter:         quarter,
		SourceQuarter:   quarter,
		Shares:          1_000,
		ValueMillicents: 50_000_000,
		FilingType:      model.FilingOriginal,
		FilingDate:      quarter.PeriodEnd().AddDate(0, 0, 30),
		Accession:       MakeAccession(),
	}
}

// WithInstitution sets the holding institution.
func (b *HoldingBuilder) WithInstitution(cik, name string) *HoldingBuilder {
	b.InstitutionID = cik
	b.InstitutionName = name
	return b
}

// WithCUSIP sets a custom CUSIP.
func (b *HoldingBuilder) WithCUSIP(cusip string) *HoldingBuilder {
	b.CUSIP = cusip
	return b
}

// WithShares sets the position size.
func (b *HoldingBuilder) WithShares(shares int64) *HoldingBuilder {
	b.Shares = shares
	return b
}

// WithValue sets the position value in millicents.
func (b *HoldingBuilder) WithValue(valueMillicents int64) *HoldingBuilder {
	b.ValueMillicents = valueMillicents
	return b
}

// WithSourceQuarter marks the record as carried forward from an earlier
// filing period.
func (b *HoldingBuilder) WithSourceQuarter(source model.Quarter) *HoldingBuilder {
	b.SourceQuarter = source
	return b
}

// WithFilingDate sets the date of the filing the record came from.
func (b *HoldingBuilder) WithFilingDate(date time.Time) *HoldingBuilder {
	b.FilingDate = date
	return b
}

// WithAccession sets the source accession number.
func (b *HoldingBuilder) WithAccession(accession string) *HoldingBuilder {
	b.Accession = accession
	return b
}

// Build creates the holding record in the database and returns it.
func (b *HoldingBuilder) Build(t *testing.T, db *sql.DB) model.HoldingRecord {
	t.Helper()

	query := `
		INSERT INTO holdings (quarter, institution_id, cusip, institution_name, source_quarter, shares, value_millicents, filing_type, filing_date, accession)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		b.Quarter.String(), b.InstitutionID, b.CUSIP, b.InstitutionName, b.SourceQuarter.String(),
		b.Shares, b.ValueMillicents, string(b.FilingType), storedTime(b.FilingDate), b.Accession,
	)
	if err != nil {
		t.Fatalf("Failed to create test holding: %v", err)
	}

	return model.HoldingRecord{
		InstitutionID:   b.InstitutionID,
		InstitutionName: b.InstitutionName,
		CUSIP:           b.CUSIP,
		Quarter:         b.Quarter,
		SourceQuarter:   b.SourceQuarter,
		Shares:          b.Shares,
		ValueMillicents: b.ValueMillicents,
		FilingType:      b.FilingType,
		FilingDate:      b.FilingDate.UTC(),
		Accession:       b.Accession,
	}
}

// RunBuilder provides a fluent interface for creating test run rows.
//
// Example usage:
//
//	// A completed run with empty coverage
//	run := testutil.NewRun(quarter).Build(t, db)
//
//	// A run still in flight
//	run := testutil.NewRun(quarter).Running().Build(t, db)
type RunBuilder struct {
	ID               string
	RequestedQuarter model.Quarter
	PriorQuarter     model.Quarter
	Status           model.RunStatus
	Error            string
	StartedAt        time.Time
	FinishedAt       *time.Time
	Coverage         *model.CoverageSummary
	Diagnostics      model.DiagnosticCounts
}

// NewRun creates a RunBuilder for a completed run over the given quarter.
func NewRun(quarter model.Quarter) *RunBuilder {
	now := time.Now().UTC()
	finished := now
	started := now.Add(-time.Minute)
	return &RunBuilder{
		ID:               MakeID(),
		RequestedQuarter: quarter,
		PriorQuarter:     quarter.Prev(),
		Status:           model.RunCompleted,
		StartedAt:        started,
		FinishedAt:       &finished,
		Coverage:         &model.CoverageSummary{Quarter: quarter},
	}
}

// WithID sets a custom run ID.
func (b *RunBuilder) WithID(id string) *RunBuilder {
	b.ID = id
	return b
}

// WithStartedAt sets a custom start time, which controls latest-run
// ordering.
func (b *RunBuilder) WithStartedAt(startedAt time.Time) *RunBuilder {
	b.StartedAt = startedAt
	return b
}

// WithCoverage sets the stored coverage summary.
func (b *RunBuilder) WithCoverage(coverage model.CoverageSummary) *RunBuilder {
	b.Coverage = &coverage
	return b
}

// WithDiagnostics sets the stored diagnostic counts.
func (b *RunBuilder) WithDiagnostics(diagnostics model.DiagnosticCounts) *RunBuilder {
	b.Diagnostics = diagnostics
	return b
}

// Running marks the run as still in flight.
func (b *RunBuilder) Running() *RunBuilder {
	b.Status = model.RunRunning
	b.FinishedAt = nil
	b.Coverage = nil
	return b
}

// Failed marks the run as failed with the given error message.
func (b *RunBuilder) Failed(message string) *RunBuilder {
	b.Status = model.RunFailed
	b.Error = message
	b.Coverage = nil
	return b
}

// Build creates the run in the database and returns it.
func (b *RunBuilder) Build(t *testing.T, db *sql.DB) model.Run {
	t.Helper()

	coverageJSON := ""
	if b.Coverage != nil {
		data, err := json.Marshal(b.Coverage)
		if err != nil {
			t.Fatalf("Failed to marshal test coverage: %v", err)
		}
		coverageJSON = string(data)
	}
	diagnosticsJSON, err := json.Marshal(b.Diagnostics)
	if err != nil {
		t.Fatalf("Failed to marshal test diagnostics: %v", err)
	}

	var finishedAt any
	if b.FinishedAt != nil {
		finishedAt = storedTime(*b.FinishedAt)
	}

	query := `
		INSERT INTO runs (id, requested_quarter, prior_quarter, status, started_at, finished_at, error, coverage_json, diagnostics_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.Exec(query,
		b.ID, b.RequestedQuarter.String(), b.PriorQuarter.String(), string(b.Status),
		storedTime(b.StartedAt), finishedAt, b.Error, coverageJSON, string(diagnosticsJSON),
	)
	if err != nil {
		t.Fatalf("Failed to create test run: %v", err)
	}

	return model.Run{
		ID:               b.ID,
		RequestedQuarter: b.RequestedQuarter,
		PriorQuarter:     b.PriorQuarter,
		Status:           b.Status,
		Error:            b.Error,
		StartedAt:        b.StartedAt.UTC(),
		FinishedAt:       b.FinishedAt,
		Coverage:         b.Coverage,
		Diagnostics:      b.Diagnostics,
	}
}

// ArtifactBuilder provides a fluent interface for creating test report
// artifacts. The stored report JSON defaults to a minimal valid ranked
// report so Markdown rendering works on built rows.
//
// Example usage:
//
//	run := testutil.NewRun(quarter).Build(t, db)
//	artifact := testutil.NewArtifact(run.ID, quarter).Build(t, db)
type ArtifactBuilder struct {
	ID           string
	RunID        string
	Kind         model.ReportKind
	Metric       model.Metric
	Quarter      model.Quarter
	JSONPath     string
	MarkdownPath string
	Report       *model.RankedReport
	CreatedAt    time.Time
}

// NewArtifact creates an ArtifactBuilder for an ownership report produced
// by the given run.
func NewArtifact(runID string, quarter model.Quarter) *ArtifactBuilder {
	return &ArtifactBuilder{
		ID:           MakeID(),
		RunID:        runID,
		Kind:         model.ReportOwnership,
		Metric:       model.MetricOwnershipPct,
		Quarter:      quarter,
		JSONPath:     "reports/ownership_" + quarter.String() + ".json",
		MarkdownPath: "reports/ownership_" + quarter.String() + ".md",
		CreatedAt:    time.Now().UTC(),
	}
}

// NetAdditions switches the artifact to a net-additions report.
func (b *ArtifactBuilder) NetAdditions() *ArtifactBuilder {
	b.Kind = model.ReportNetAdditions
	b.Metric = model.MetricNetInstitutions
	b.JSONPath = "reports/net_additions_" + b.Quarter.String() + ".json"
	b.MarkdownPath = "reports/net_additions_" + b.Quarter.String() + ".md"
	return b
}

// WithMetric sets the ranking metric.
func (b *ArtifactBuilder) WithMetric(metric model.Metric) *ArtifactBuilder {
	b.Metric = metric
	return b
}

// WithReport sets the full stored report.
func (b *ArtifactBuilder) WithReport(report model.RankedReport) *ArtifactBuilder {
	b.Report = &report
	return b
}

// WithCreatedAt sets a custom creation time, which controls latest-report
// ordering.
func (b *ArtifactBuilder) WithCreatedAt(createdAt time.Time) *ArtifactBuilder {
	b.CreatedAt = createdAt
	return b
}

// Build creates the artifact in the database and returns it.
func (b *ArtifactBuilder) Build(t *testing.T, db *sql.DB) model.ReportArtifact {
	t.Helper()

	report := b.Report
	if report == nil {
		report = &model.RankedReport{
			Kind:        b.Kind,
			Metric:      b.Metric,
			Quarter:     b.Quarter,
			GeneratedAt: b.CreatedAt,
			TopN:        50,
			Entries:     []model.RankedEntry{},
			Coverage:    model.CoverageSummary{Quarter: b.Quarter},
		}
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Failed to marshal test report: %v", err)
	}

	query := `
		INSERT INTO report_artifacts (id, run_id, kind, metric, quarter, json_path, markdown_path, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.Exec(query,
		b.ID, b.RunID, string(b.Kind), string(b.Metric), b.Quarter.String(),
		b.JSONPath, b.MarkdownPath, string(reportJSON), storedTime(b.CreatedAt),
	)
	if err != nil {
		t.Fatalf("Failed to create test artifact: %v", err)
	}

	return model.ReportArtifact{
		ID:           b.ID,
		RunID:        b.RunID,
		Kind:         b.Kind,
		Metric:       b.Metric,
		Quarter:      b.Quarter,
		JSONPath:     b.JSONPath,
		MarkdownPath: b.MarkdownPath,
		CreatedAt:    b.CreatedAt.UTC(),
	}
}

// SnapshotRowBuilder provides a fluent interface for creating persisted
// snapshot rows under an existing run.
//
// Example usage:
//
//	run := testutil.NewRun(quarter).Build(t, db)
//	row := testutil.NewSnapshotRow(run.ID, quarter).
//	    WithTotals(500_000, 2_000_000_000, 3).
//	    Build(t, db)
type SnapshotRowBuilder struct {
	RunID                string
	Quarter              model.Quarter
	CUSIP                string
	TotalShares          int64
	TotalValueMillicents int64
	HolderCount          int
	PctOfFloat           *float64
	Holders              []model.HolderPosition
}

// NewSnapshotRow creates a SnapshotRowBuilder with a single-holder position.
func NewSnapshotRow(runID string, quarter model.Quarter) *SnapshotRowBuilder {
	cik := MakeCIK()
	return &SnapshotRowBuilder{
		RunID:                runID,
		Quarter:              quarter,
		CUSIP:                MakeCUSIP(),
		TotalShares:          1_000,
		TotalValueMillicents: 50_000_000,
		HolderCount:          1,
		Holders: []model.HolderPosition{
			{InstitutionID: cik, Shares: 1_000, ValueMillicents: 50_000_000},
		},
	}
}

// WithCUSIP sets a custom CUSIP.
func (b *SnapshotRowBuilder) WithCUSIP(cusip string) *SnapshotRowBuilder {
	b.CUSIP = cusip
	return b
}

// WithTotals sets the aggregate position.
func (b *SnapshotRowBuilder) WithTotals(shares, valueMillicents int64, holderCount int) *SnapshotRowBuilder {
	b.TotalShares = shares
	b.TotalValueMillicents = valueMillicents
	b.HolderCount = holderCount
	return b
}

// WithPctOfFloat sets the ownership percentage.
func (b *SnapshotRowBuilder) WithPctOfFloat(pct float64) *SnapshotRowBuilder {
	b.PctOfFloat = &pct
	return b
}

// WithHolders sets the holder roster.
func (b *SnapshotRowBuilder) WithHolders(holders []model.HolderPosition) *SnapshotRowBuilder {
	b.Holders = holders
	return b
}

// Build creates the snapshot row in the database and returns it.
func (b *SnapshotRowBuilder) Build(t *testing.T, db *sql.DB) model.SnapshotSecurityRow {
	t.Helper()

	holdersJSON, err := json.Marshal(b.Holders)
	if err != nil {
		t.Fatalf("Failed to marshal test holders: %v", err)
	}
	var pct any
	if b.PctOfFloat != nil {
		pct = *b.PctOfFloat
	}

	query := `
		INSERT INTO snapshot_securities (run_id, cusip, quarter, total_shares, total_value_millicents, holder_count, pct_of_float, holders_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.Exec(query,
		b.RunID, b.CUSIP, b.Quarter.String(),
		b.TotalShares, b.TotalValueMillicents, b.HolderCount, pct, string(holdersJSON),
	)
	if err != nil {
		t.Fatalf("Failed to create test snapshot row: %v", err)
	}

	return model.SnapshotSecurityRow{
		Quarter:              b.Quarter,
		CUSIP:                b.CUSIP,
		TotalShares:          b.TotalShares,
		TotalValueMillicents: b.TotalValueMillicents,
		HolderCount:          b.HolderCount,
		PctOfFloat:           b.PctOfFloat,
		Holders:              b.Holders,
	}
}

// NetAdditionBuilder provides a fluent interface for creating persisted
// net-addition rows under an existing run.
//
// Example usage:
//
//	run := testutil.NewRun(quarter).Build(t, db)
//	rec := testutil.NewNetAdditionRow(run.ID, quarter).
//	    WithNetInstitutions(5, 1).
//	    Build(t, db)
type NetAdditionBuilder struct {
	RunID                   string
	Quarter                 model.Quarter
	PriorQuarter            model.Quarter
	CUSIP                   string
	NetAddingInstitutions   int
	NetReducingInstitutions int
	NetSharesDelta          int64
	NetValueDeltaMillicents int64
	AvgWeightDeltaPct       *float64
	InstitutionsEntering    []string
	InstitutionsExiting     []string
	InstitutionChanges      []model.InstitutionChange
}

// NewNetAdditionRow creates a NetAdditionBuilder for one net-adding
// institution.
func NewNetAdditionRow(runID string, quarter model.Quarter) *NetAdditionBuilder {
	return &NetAdditionBuilder{
		RunID:                   runID,
		Quarter:                 quarter,
		PriorQuarter:            quarter.Prev(),
		CUSIP:                   MakeCUSIP(),
		NetAddingInstitutions:   1,
		NetReducingInstitutions: 0,
		NetSharesDelta:          1_000,
		NetValueDeltaMillicents: 50_000_000,
		InstitutionsEntering:    []string{},
		InstitutionsExiting:     []string{},
		InstitutionChanges:      []model.InstitutionChange{},
	}
}

// WithCUSIP sets a custom CUSIP.
func (b *NetAdditionBuilder) WithCUSIP(cusip string) *NetAdditionBuilder {
	b.CUSIP = cusip
	return b
}

// WithNetInstitutions sets the adding and reducing institution counts.
func (b *NetAdditionBuilder) WithNetInstitutions(adding, reducing int) *NetAdditionBuilder {
	b.NetAddingInstitutions = adding
	b.NetReducingInstitutions = reducing
	return b
}

// WithDeltas sets the net share and value deltas.
func (b *NetAdditionBuilder) WithDeltas(shares, valueMillicents int64) *NetAdditionBuilder {
	b.NetSharesDelta = shares
	b.NetValueDeltaMillicents = valueMillicents
	return b
}

// WithEntering sets the institutions that opened positions.
func (b *NetAdditionBuilder) WithEntering(ciks ...string) *NetAdditionBuilder {
	b.InstitutionsEntering = ciks
	return b
}

// WithExiting sets the institutions that closed positions.
func (b *NetAdditionBuilder) WithExiting(ciks ...string) *NetAdditionBuilder {
	b.InstitutionsExiting = ciks
	return b
}

// Build creates the net-addition row in the database and returns it.
func (b *NetAdditionBuilder) Build(t *testing.T, db *sql.DB) model.NetAdditionRecord {
	t.Helper()

	enteringJSON, err := json.Marshal(b.InstitutionsEntering)
	if err != nil {
		t.Fatalf("Failed to marshal test entering institutions: %v", err)
	}
	exitingJSON, err := json.Marshal(b.InstitutionsExiting)
	if err != nil {
		t.Fatalf("Failed to marshal test exiting institutions: %v", err)
	}
	changesJSON, err := json.Marshal(b.InstitutionChanges)
	if err != nil {
		t.Fatalf("Failed to marshal test institution changes: %v", err)
	}
	var avgWeight any
	if b.AvgWeightDeltaPct != nil {
		avgWeight = *b.AvgWeightDeltaPct
	}

	query := `
		INSERT INTO net_additions (
			run_id, cusip, quarter, prior_quarter,
			net_adding_institutions, net_reducing_institutions,
			net_shares_delta, net_value_delta_millicents,
			avg_portfolio_weight_delta_pct,
			entering_json, exiting_json, changes_json
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.Exec(query,
		b.RunID, b.CUSIP, b.Quarter.String(), b.PriorQuarter.String(),
		b.NetAddingInstitutions, b.NetReducingInstitutions,
		b.NetSharesDelta, b.NetValueDeltaMillicents,
		avgWeight, string(enteringJSON), string(exitingJSON), string(changesJSON),
	)
	if err != nil {
		t.Fatalf("Failed to create test net addition row: %v", err)
	}

	return model.NetAdditionRecord{
		CUSIP:                      b.CUSIP,
		Quarter:                    b.Quarter,
		PriorQuarter:               b.PriorQuarter,
		NetAddingInstitutions:      b.NetAddingInstitutions,
		NetReducingInstitutions:    b.NetReducingInstitutions,
		NetSharesDelta:             b.NetSharesDelta,
		NetValueDeltaMillicents:    b.NetValueDeltaMillicents,
		AvgPortfolioWeightDeltaPct: b.AvgWeightDeltaPct,
		InstitutionsEntering:       b.InstitutionsEntering,
		InstitutionsExiting:        b.InstitutionsExiting,
		InstitutionChanges:         b.InstitutionChanges,
	}
}

// Convenience functions

// CreateIdentity creates a resolved identity for the given CUSIP and ticker.
//
// Example usage:
//
//	identity := testutil.CreateIdentity(t, db, "037833100", "AAPL")
func CreateIdentity(t *testing.T, db *sql.DB, cusip, ticker string) model.SecurityIdentity {
	t.Helper()
	return NewIdentity().WithCUSIP(cusip).WithTicker(ticker).Build(t, db)
}

// CreateUnresolvedIdentity creates an identity with no ticker mapping.
//
// Example usage:
//
//	identity := testutil.CreateUnresolvedIdentity(t, db, "999999999")
func CreateUnresolvedIdentity(t *testing.T, db *sql.DB, cusip string) model.SecurityIdentity {
	t.Helper()
	return NewIdentity().WithCUSIP(cusip).Unresolved().Build(t, db)
}

// CreateCompletedRun creates a completed run with empty coverage for the
// quarter.
//
// Example usage:
//
//	run := testutil.CreateCompletedRun(t, db, quarter)
func CreateCompletedRun(t *testing.T, db *sql.DB, quarter model.Quarter) model.Run {
	t.Helper()
	return NewRun(quarter).Build(t, db)
}

// CreateHoldings creates count holdings for distinct institutions in one
// security.
//
// Example usage:
//
//	holdings := testutil.CreateHoldings(t, db, quarter, "037833100", 5)
func CreateHoldings(t *testing.T, db *sql.DB, quarter model.Quarter, cusip string, count int) []model.HoldingRecord {
	t.Helper()

	holdings := make([]model.HoldingRecord, count)
	for i := 0; i < count; i++ {
		holdings[i] = NewHolding(quarter).WithCUSIP(cusip).Build(t, db)
	}
	return holdings
}
