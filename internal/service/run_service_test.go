package service_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/testutil"
)

// TestRunService_Run tests the synchronous reconciliation run.
//
// WHY: A run is the engine's core operation. This exercises the full pass
// over seeded holdings: snapshotting both quarters, reconciling, ranking,
// writing artifact files, persisting the read-model rows, and finalizing
// the run row on both the success and failure paths.
func TestRunService_Run(t *testing.T) {
	t.Run("completes a full reconciliation pass", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRunService(t, db)

		quarter := model.MustParseQuarter("Q2-2025")
		prior := quarter.Prev()
		asOf := time.Now().UTC().AddDate(0, 0, -30)

		testutil.NewIdentity().WithCUSIP("037833100").WithTicker("AAPL").
			WithName("Apple Inc").WithShares(15_000_000_000, asOf).Build(t, db)
		testutil.NewIdentity().WithCUSIP("595112103").WithTicker("MU").
			WithName("Micron Technology Inc").WithShares(1_100_000_000, asOf).Build(t, db)

		berkshire := "0001067983"
		vanguard := "0000102909"

		// Prior quarter: both institutions hold Apple.
		testutil.NewHolding(prior).WithCUSIP("037833100").
			WithInstitution(berkshire, "Berkshire Hathaway Inc").
			WithShares(250_000).WithValue(45_000_000_000).Build(t, db)
		testutil.NewHolding(prior).WithCUSIP("037833100").
			WithInstitution(vanguard, "Vanguard Group Inc").
			WithShares(200_000).WithValue(36_000_000_000).Build(t, db)

		// Current quarter: Berkshire adds to Apple and enters Micron; the
		// Vanguard position is carried forward from the prior period.
		testutil.NewHolding(quarter).WithCUSIP("037833100").
			WithInstitution(berkshire, "Berkshire Hathaway Inc").
			WithShares(300_000).WithValue(60_000_000_000).Build(t, db)
		testutil.NewHolding(quarter).WithCUSIP("037833100").
			WithInstitution(vanguard, "Vanguard Group Inc").
			WithShares(200_000).WithValue(40_000_000_000).
			WithSourceQuarter(prior).Build(t, db)
		testutil.NewHolding(quarter).WithCUSIP("595112103").
			WithInstitution(berkshire, "Berkshire Hathaway Inc").
			WithShares(400_000).WithValue(36_000_000_000).Build(t, db)

		params := testutil.DefaultTestParams(t)
		params.Quarter = "Q2-2025"

		// Execute
		run, err := svc.Run(params)

		// Assert
		if err != nil {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
		if run.Status != model.RunCompleted {
			t.Fatalf("Expected status %s, got %s (error %q)", model.RunCompleted, run.Status, run.Error)
		}
		if run.RequestedQuarter != quarter || run.PriorQuarter != prior {
			t.Errorf("Expected quarters %s/%s, got %s/%s", quarter, prior, run.RequestedQuarter, run.PriorQuarter)
		}
		if run.FinishedAt == nil {
			t.Error("Expected a finish time on a completed run")
		}
		if run.Coverage == nil {
			t.Fatal("Expected coverage on a completed run")
		}
		if run.Coverage.TotalSecurities != 2 {
			t.Errorf("Expected 2 securities in coverage, got %d", run.Coverage.TotalSecurities)
		}
		if run.Coverage.TickerResolvedValuePct != 100 {
			t.Errorf("Expected fully ticker-resolved value, got %.2f%%", run.Coverage.TickerResolvedValuePct)
		}
		if run.Coverage.SharesResolvedValuePct != 100 {
			t.Errorf("Expected fully shares-resolved value, got %.2f%%", run.Coverage.SharesResolvedValuePct)
		}
		if run.Diagnostics.FromEarlierQuarters != 1 {
			t.Errorf("Expected 1 carried-forward record, got %d", run.Diagnostics.FromEarlierQuarters)
		}

		artifacts, err := svc.RunArtifacts(run.ID)
		if err != nil {
			t.Fatalf("RunArtifacts() returned unexpected error: %v", err)
		}
		if len(artifacts) != 2 {
			t.Fatalf("Expected 2 artifacts, got %d", len(artifacts))
		}
		kinds := map[model.ReportKind]bool{}
		for _, artifact := range artifacts {
			kinds[artifact.Kind] = true
			if _, err := os.Stat(artifact.JSONPath); err != nil {
				t.Errorf("Expected JSON artifact on disk at %s: %v", artifact.JSONPath, err)
			}
			if _, err := os.Stat(artifact.MarkdownPath); err != nil {
				t.Errorf("Expected Markdown artifact on disk at %s: %v", artifact.MarkdownPath, err)
			}
		}
		if !kinds[model.ReportOwnership] || !kinds[model.ReportNetAdditions] {
			t.Errorf("Expected one artifact per report kind, got %v", kinds)
		}

		var snapshotRows int
		if err := db.QueryRow(`SELECT COUNT(*) FROM snapshot_securities WHERE run_id = ?`, run.ID).Scan(&snapshotRows); err != nil {
			t.Fatalf("Failed to count snapshot rows: %v", err)
		}
		if snapshotRows != 2 {
			t.Errorf("Expected 2 snapshot rows, got %d", snapshotRows)
		}
		var netAddRows int
		if err := db.QueryRow(`SELECT COUNT(*) FROM net_additions WHERE run_id = ?`, run.ID).Scan(&netAddRows); err != nil {
			t.Fatalf("Failed to count net-addition rows: %v", err)
		}
		if netAddRows != 2 {
			t.Errorf("Expected 2 net-addition rows, got %d", netAddRows)
		}
	})

	t.Run("marks the run failed when the quarter has no filings", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRunService(t, db)
		testutil.CreateIdentity(t, db, "037833100", "AAPL")

		params := testutil.DefaultTestParams(t)
		params.Quarter = "Q2-2025"

		// Execute
		run, err := svc.Run(params)

		// Assert
		if !errors.Is(err, apperrors.ErrNoFilings) {
			t.Fatalf("Expected ErrNoFilings, got %v", err)
		}
		if run.Status != model.RunFailed {
			t.Errorf("Expected status %s, got %s", model.RunFailed, run.Status)
		}
		if run.Error == "" {
			t.Error("Expected the failure reason on the run")
		}

		stored, err := svc.GetRun(run.ID)
		if err != nil {
			t.Fatalf("GetRun() returned unexpected error: %v", err)
		}
		if stored.Status != model.RunFailed {
			t.Errorf("Expected persisted status %s, got %s", model.RunFailed, stored.Status)
		}
		if stored.FinishedAt == nil {
			t.Error("Expected a finish time on a failed run")
		}
	})

	t.Run("fails fast on an empty identity table", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRunService(t, db)

		params := testutil.DefaultTestParams(t)
		params.Quarter = "Q2-2025"

		// Execute
		_, err := svc.Run(params)

		// Assert
		if !errors.Is(err, apperrors.ErrEmptyIdentityTable) {
			t.Fatalf("Expected ErrEmptyIdentityTable, got %v", err)
		}
	})
}

// TestRunService_RunArtifacts tests artifact listing guards.
func TestRunService_RunArtifacts(t *testing.T) {
	t.Run("rejects an unknown run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRunService(t, db)

		_, err := svc.RunArtifacts(testutil.MakeID())

		if !errors.Is(err, apperrors.ErrRunNotFound) {
			t.Fatalf("Expected ErrRunNotFound, got %v", err)
		}
	})
}

// TestRunService_ListRuns_DatabaseErrors tests error handling.
//
// WHY: The service must surface database errors rather than panicking, so
// the API can keep answering other requests when storage misbehaves.
func TestRunService_ListRuns_DatabaseErrors(t *testing.T) {
	t.Run("handles closed database connection", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRunService(t, db)

		// Close database to force error
		db.Close()

		// Execute
		_, err := svc.ListRuns(10)

		// Assert
		if err == nil {
			t.Error("Expected error when database is closed, got nil")
		}
	})
}
