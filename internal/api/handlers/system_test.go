package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/service"
	"github.com/tvandenberg/thirteenf/internal/testutil"
)

func TestSystemHandler_Health(t *testing.T) {
	setupHandler := func(t *testing.T) (*SystemHandler, *sql.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		ss := testutil.NewTestSystemService(t, db)
		return NewSystemHandler(ss), db
	}

	t.Run("returns healthy status when database is connected", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		w := httptest.NewRecorder()

		handler.Health(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response HealthResponse
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if response.Status != "healthy" {
			t.Errorf("Expected status 'healthy', got '%s'", response.Status)
		}

		if response.Database != "connected" {
			t.Errorf("Expected database 'connected', got '%s'", response.Database)
		}

		if response.Error != "" {
			t.Errorf("Expected no error, got '%s'", response.Error)
		}
	})

	t.Run("returns 503 when database is disconnected", func(t *testing.T) {
		handler, db := setupHandler(t)

		// Close the database connection to simulate failure
		db.Close()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		w := httptest.NewRecorder()

		handler.Health(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestSystemHandler_Stats(t *testing.T) {
	setupHandler := func(t *testing.T) (*SystemHandler, *sql.DB) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		ss := testutil.NewTestSystemService(t, db)
		return NewSystemHandler(ss), db
	}

	t.Run("counts stored entities", func(t *testing.T) {
		handler, db := setupHandler(t)

		quarter := model.MustParseQuarter("Q2-2025")
		testutil.NewIdentity().Build(t, db)
		testutil.NewIdentity().Build(t, db)
		testutil.NewFiling(quarter).Build(t, db)
		testutil.NewHolding(quarter).Build(t, db)
		run := testutil.NewRun(quarter).Build(t, db)
		testutil.NewArtifact(run.ID, quarter).Build(t, db)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/system/stats", nil)
		w := httptest.NewRecorder()

		handler.Stats(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var stats service.SystemStats
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&stats)

		if stats.Identities != 2 {
			t.Errorf("Expected 2 identities, got %d", stats.Identities)
		}
		if stats.Filings != 1 {
			t.Errorf("Expected 1 filing, got %d", stats.Filings)
		}
		if stats.HoldingRecords != 1 {
			t.Errorf("Expected 1 holding record, got %d", stats.HoldingRecords)
		}
		if stats.Runs != 1 || stats.CompletedRuns != 1 {
			t.Errorf("Expected 1 run and 1 completed run, got %d/%d", stats.Runs, stats.CompletedRuns)
		}
		if stats.ReportArtifacts != 1 {
			t.Errorf("Expected 1 report artifact, got %d", stats.ReportArtifacts)
		}
		if stats.LatestRunID == nil || *stats.LatestRunID != run.ID {
			t.Errorf("Expected latest run ID %s, got %v", run.ID, stats.LatestRunID)
		}
	})

	t.Run("returns 500 when database is disconnected", func(t *testing.T) {
		handler, db := setupHandler(t)

		db.Close()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/system/stats", nil)
		w := httptest.NewRecorder()

		handler.Stats(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected 500, got %d: %s", w.Code, w.Body.String())
		}
	})
}
