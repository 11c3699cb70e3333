package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// Configure SQLite for testing
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	// Create schema
	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the embedded goose migrations.
func createTestSchema(db *sql.DB) error {
	schema := `
		-- Security identity store
		CREATE TABLE security_identities (
			cusip TEXT PRIMARY KEY,
			ticker TEXT,
			name TEXT NOT NULL DEFAULT '',
			shares_outstanding INTEGER,
			shares_as_of TIMESTAMP,
			mapping_source TEXT NOT NULL DEFAULT 'unresolved',
			is_etf INTEGER NOT NULL DEFAULT 0,
			last_updated TIMESTAMP NOT NULL
		);

		CREATE INDEX idx_security_identities_ticker ON security_identities (ticker);

		-- Filing metadata
		CREATE TABLE filings (
			accession TEXT PRIMARY KEY,
			cik TEXT NOT NULL,
			institution_name TEXT NOT NULL DEFAULT '',
			form_type TEXT NOT NULL,
			filing_type TEXT NOT NULL,
			filed_at TIMESTAMP NOT NULL,
			period_quarter TEXT NOT NULL,
			raw_path TEXT NOT NULL DEFAULT '',
			downloaded_at TIMESTAMP NOT NULL
		);

		CREATE INDEX idx_filings_cik_quarter ON filings (cik, period_quarter);
		CREATE INDEX idx_filings_quarter ON filings (period_quarter);

		-- Normalized holding records
		CREATE TABLE holdings (
			quarter TEXT NOT NULL,
			institution_id TEXT NOT NULL,
			cusip TEXT NOT NULL,
			institution_name TEXT NOT NULL DEFAULT '',
			source_quarter TEXT NOT NULL,
			shares INTEGER NOT NULL,
			value_millicents INTEGER NOT NULL,
			filing_type TEXT NOT NULL,
			filing_date TIMESTAMP NOT NULL,
			accession TEXT NOT NULL,
			PRIMARY KEY (quarter, institution_id, cusip)
		);

		CREATE INDEX idx_holdings_cusip ON holdings (quarter, cusip);

		-- Run lifecycle
		CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			requested_quarter TEXT NOT NULL,
			prior_quarter TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			error TEXT NOT NULL DEFAULT '',
			coverage_json TEXT NOT NULL DEFAULT '',
			diagnostics_json TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX idx_runs_started_at ON runs (started_at);

		-- Report artifacts
		CREATE TABLE report_artifacts (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs (id),
			kind TEXT NOT NULL,
			metric TEXT NOT NULL,
			quarter TEXT NOT NULL,
			json_path TEXT NOT NULL,
			markdown_path TEXT NOT NULL,
			report_json TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);

		CREATE INDEX idx_report_artifacts_kind ON report_artifacts (kind, created_at);
		CREATE INDEX idx_report_artifacts_run ON report_artifacts (run_id);

		-- Per-run snapshot rows
		CREATE TABLE snapshot_securities (
			run_id TEXT NOT NULL REFERENCES runs (id),
			quarter TEXT NOT NULL,
			cusip TEXT NOT NULL,
			total_shares INTEGER NOT NULL,
			total_value_millicents INTEGER NOT NULL,
			holder_count INTEGER NOT NULL,
			pct_of_float REAL,
			holders_json TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (run_id, cusip)
		);

		CREATE INDEX idx_snapshot_securities_quarter ON snapshot_securities (quarter, cusip);

		-- Per-run net-addition rows
		CREATE TABLE net_additions (
			run_id TEXT NOT NULL REFERENCES runs (id),
			quarter TEXT NOT NULL,
			prior_quarter TEXT NOT NULL,
			cusip TEXT NOT NULL,
			net_adding_institutions INTEGER NOT NULL,
			net_reducing_institutions INTEGER NOT NULL,
			net_shares_delta INTEGER NOT NULL,
			net_value_delta_millicents INTEGER NOT NULL,
			avg_portfolio_weight_delta_pct REAL,
			entering_json TEXT NOT NULL DEFAULT '[]',
			exiting_json TEXT NOT NULL DEFAULT '[]',
			changes_json TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (run_id, cusip)
		);

		CREATE INDEX idx_net_additions_quarter ON net_additions (quarter, cusip);

		-- Operator settings
		CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			encrypted INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		);

		-- Per-quarter ingest diagnostics
		CREATE TABLE ingest_stats (
			quarter TEXT PRIMARY KEY,
			index_entries INTEGER NOT NULL,
			filings_ingested INTEGER NOT NULL,
			amendments_excluded INTEGER NOT NULL,
			other_periods INTEGER NOT NULL,
			malformed_records INTEGER NOT NULL,
			duplicates_resolved INTEGER NOT NULL,
			holding_records INTEGER NOT NULL,
			ingested_at TIMESTAMP NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// CleanDatabase truncates all tables in dependency order.
// Useful for reusing the same database across multiple tests.
//
// Example usage:
//
//	func TestMultipleThings(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//
//	    t.Run("First test", func(t *testing.T) {
//	        // Create data
//	        testutil.CleanDatabase(t, db)  // Clean after
//	    })
//
//	    t.Run("Second test", func(t *testing.T) {
//	        // Fresh clean database
//	    })
//	}
func CleanDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	// Order matters: delete children before parents due to foreign keys
	tables := []string{
		"net_additions",
		"snapshot_securities",
		"report_artifacts",
		"runs",
		"holdings",
		"filings",
		"ingest_stats",
		"security_identities",
		"settings",
	}

	for _, table := range tables {
		query := "DELETE FROM " + table
		if _, err := db.Exec(query); err != nil {
			t.Fatalf("Failed to clean table %s: %v", table, err)
		}
	}
}

// CountRows returns the number of rows in a table.
// Useful for assertions in tests.
//
// Example usage:
//
//	count := testutil.CountRows(t, db, "holdings")
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	query := "SELECT COUNT(*) FROM " + table
	err := db.QueryRow(query).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}

	return count
}

// AssertRowCount asserts that a table has the expected number of rows.
//
// Example usage:
//
//	testutil.AssertRowCount(t, db, "runs", 2)
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()

	actual := CountRows(t, db, table)
	if actual != expected {
		t.Errorf("Expected %d rows in %s, got %d", expected, table, actual)
	}
}
