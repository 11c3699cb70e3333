package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/testutil"
)

func setupRunHandler(t *testing.T) (*RunHandler, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rs := testutil.NewTestRunService(t, db)
	return NewRunHandler(rs, testutil.DefaultTestParams(t)), db
}

func TestRunHandler_TriggerRun(t *testing.T) {
	t.Run("accepts a bodyless trigger and targets the latest completed quarter", func(t *testing.T) {
		handler, _ := setupRunHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
		w := httptest.NewRecorder()

		handler.TriggerRun(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
		}

		var run model.Run
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&run)

		if run.Status != model.RunRunning {
			t.Errorf("Expected status running, got %s", run.Status)
		}
		want := model.LatestCompletedQuarter(time.Now().UTC())
		if run.RequestedQuarter != want {
			t.Errorf("Expected quarter %s, got %s", want, run.RequestedQuarter)
		}
	})

	t.Run("pins the analysis quarter from the request body", func(t *testing.T) {
		handler, _ := setupRunHandler(t)

		body := strings.NewReader(`{"quarter": "Q1-2025"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
		w := httptest.NewRecorder()

		handler.TriggerRun(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
		}

		var run model.Run
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&run)

		if run.RequestedQuarter != model.MustParseQuarter("Q1-2025") {
			t.Errorf("Expected quarter Q1-2025, got %s", run.RequestedQuarter)
		}
		if run.PriorQuarter != model.MustParseQuarter("Q4-2024") {
			t.Errorf("Expected prior quarter Q4-2024, got %s", run.PriorQuarter)
		}
	})

	t.Run("rejects an invalid quarter", func(t *testing.T) {
		handler, _ := setupRunHandler(t)

		body := strings.NewReader(`{"quarter": "2025Q1"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
		w := httptest.NewRecorder()

		handler.TriggerRun(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		handler, _ := setupRunHandler(t)

		body := strings.NewReader(`{"quartier": "Q1-2025"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
		w := httptest.NewRecorder()

		handler.TriggerRun(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestRunHandler_GetRun(t *testing.T) {
	t.Run("returns a stored run", func(t *testing.T) {
		handler, db := setupRunHandler(t)

		quarter := model.MustParseQuarter("Q2-2025")
		run := testutil.NewRun(quarter).Build(t, db)

		req := testutil.NewRequestWithURLParams(
			http.MethodGet,
			"/api/v1/runs/"+run.ID,
			map[string]string{"uuid": run.ID},
		)
		w := httptest.NewRecorder()

		handler.GetRun(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var got model.Run
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&got)

		if got.ID != run.ID {
			t.Errorf("Expected run %s, got %s", run.ID, got.ID)
		}
		if got.Status != model.RunCompleted {
			t.Errorf("Expected status completed, got %s", got.Status)
		}
		if got.Coverage == nil || got.Coverage.Quarter != quarter {
			t.Errorf("Expected coverage for %s, got %+v", quarter, got.Coverage)
		}
	})

	t.Run("returns 404 for an unknown run", func(t *testing.T) {
		handler, _ := setupRunHandler(t)

		id := testutil.MakeID()
		req := testutil.NewRequestWithURLParams(
			http.MethodGet,
			"/api/v1/runs/"+id,
			map[string]string{"uuid": id},
		)
		w := httptest.NewRecorder()

		handler.GetRun(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestRunHandler_ListRuns(t *testing.T) {
	t.Run("lists runs newest first with a limit", func(t *testing.T) {
		handler, db := setupRunHandler(t)

		quarter := model.MustParseQuarter("Q2-2025")
		base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
		testutil.NewRun(quarter).WithStartedAt(base.Add(-2 * time.Hour)).Build(t, db)
		testutil.NewRun(quarter).WithStartedAt(base.Add(-time.Hour)).Build(t, db)
		newest := testutil.NewRun(quarter).WithStartedAt(base).Build(t, db)

		req := testutil.NewRequestWithQueryParams(
			http.MethodGet,
			"/api/v1/runs",
			map[string]string{"limit": "2"},
		)
		w := httptest.NewRecorder()

		handler.ListRuns(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var runs []model.Run
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&runs)

		if len(runs) != 2 {
			t.Fatalf("Expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != newest.ID {
			t.Errorf("Expected newest run %s first, got %s", newest.ID, runs[0].ID)
		}
	})

	t.Run("rejects a non-numeric limit", func(t *testing.T) {
		handler, _ := setupRunHandler(t)

		req := testutil.NewRequestWithQueryParams(
			http.MethodGet,
			"/api/v1/runs",
			map[string]string{"limit": "lots"},
		)
		w := httptest.NewRecorder()

		handler.ListRuns(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestRunHandler_RunArtifacts(t *testing.T) {
	t.Run("lists the artifacts a run produced", func(t *testing.T) {
		handler, db := setupRunHandler(t)

		quarter := model.MustParseQuarter("Q2-2025")
		run := testutil.NewRun(quarter).Build(t, db)
		testutil.NewArtifact(run.ID, quarter).Build(t, db)
		testutil.NewArtifact(run.ID, quarter).NetAdditions().Build(t, db)

		req := testutil.NewRequestWithURLParams(
			http.MethodGet,
			"/api/v1/runs/"+run.ID+"/artifacts",
			map[string]string{"uuid": run.ID},
		)
		w := httptest.NewRecorder()

		handler.RunArtifacts(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var artifacts []model.ReportArtifact
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&artifacts)

		if len(artifacts) != 2 {
			t.Fatalf("Expected 2 artifacts, got %d", len(artifacts))
		}
		// Ordered by kind: net_additions before ownership.
		if artifacts[0].Kind != model.ReportNetAdditions || artifacts[1].Kind != model.ReportOwnership {
			t.Errorf("Expected net_additions then ownership, got %s then %s", artifacts[0].Kind, artifacts[1].Kind)
		}
	})

	t.Run("returns 404 for an unknown run", func(t *testing.T) {
		handler, _ := setupRunHandler(t)

		id := testutil.MakeID()
		req := testutil.NewRequestWithURLParams(
			http.MethodGet,
			"/api/v1/runs/"+id+"/artifacts",
			map[string]string{"uuid": id},
		)
		w := httptest.NewRecorder()

		handler.RunArtifacts(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}
