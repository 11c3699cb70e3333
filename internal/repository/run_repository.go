package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// RunRepository provides data access methods for the runs table. A run row
// is written once at start and finalized exactly once with either a
// coverage/diagnostics payload or an error message.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the provided database connection.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, requested_quarter, prior_quarter, status, started_at, finished_at, error, coverage_json, diagnostics_json`

// Create records a newly started run.
func (r *RunRepository) Create(run model.Run) error {
	query := `
          INSERT INTO runs (id, requested_quarter, prior_quarter, status, started_at)
          VALUES (?, ?, ?, ?, ?)
      `
	_, err := r.db.Exec(query,
		run.ID,
		run.RequestedQuarter.String(),
		run.PriorQuarter.String(),
		string(run.Status),
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// MarkCompleted finalizes a run with its coverage summary and diagnostic
// counts. Only a running run can be completed.
func (r *RunRepository) MarkCompleted(id string, finishedAt time.Time, coverage model.CoverageSummary, diagnostics model.DiagnosticCounts) error {
	coverageJSON, err := json.Marshal(coverage)
	if err != nil {
		return fmt.Errorf("failed to marshal coverage summary: %w", err)
	}
	diagnosticsJSON, err := json.Marshal(diagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostic counts: %w", err)
	}

	result, err := r.db.Exec(`
          UPDATE runs
          SET status = ?, finished_at = ?, coverage_json = ?, diagnostics_json = ?
          WHERE id = ? AND status = ?
      `, string(model.RunCompleted), formatTime(finishedAt), string(coverageJSON), string(diagnosticsJSON), id, string(model.RunRunning))
	if err != nil {
		return fmt.Errorf("failed to mark run completed: %w", err)
	}
	return requireRunUpdated(result)
}

// MarkFailed finalizes a run with an error message.
func (r *RunRepository) MarkFailed(id string, finishedAt time.Time, runErr string) error {
	result, err := r.db.Exec(`
          UPDATE runs
          SET status = ?, finished_at = ?, error = ?
          WHERE id = ? AND status = ?
      `, string(model.RunFailed), formatTime(finishedAt), runErr, id, string(model.RunRunning))
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return requireRunUpdated(result)
}

// Get retrieves one run by ID.
func (r *RunRepository) Get(id string) (model.Run, error) {
	query := `
          SELECT ` + runColumns + `
          FROM runs
          WHERE id = ?
      `
	row := r.db.QueryRow(query, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return model.Run{}, apperrors.ErrRunNotFound
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// LatestCompleted retrieves the most recent completed run for a quarter.
func (r *RunRepository) LatestCompleted(quarter model.Quarter) (model.Run, error) {
	query := `
          SELECT ` + runColumns + `
          FROM runs
          WHERE requested_quarter = ? AND status = ?
          ORDER BY started_at DESC, id
          LIMIT 1
      `
	row := r.db.QueryRow(query, quarter.String(), string(model.RunCompleted))
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return model.Run{}, apperrors.ErrRunNotFound
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("failed to query latest completed run: %w", err)
	}
	return run, nil
}

// List retrieves runs newest-first, capped at limit when limit is positive.
func (r *RunRepository) List(limit int) ([]model.Run, error) {
	query := `
          SELECT ` + runColumns + `
          FROM runs
          ORDER BY started_at DESC, id
      `
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs table: %w", err)
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan runs results: %w", err)
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs table: %w", err)
	}
	return runs, nil
}

func requireRunUpdated(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read run update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrRunNotFound
	}
	return nil
}

func scanRun(s scanner) (model.Run, error) {
	var (
		run             model.Run
		requested       string
		prior           string
		status          string
		startedAt       string
		finishedAt      sql.NullString
		coverageJSON    string
		diagnosticsJSON string
	)
	err := s.Scan(&run.ID, &requested, &prior, &status, &startedAt, &finishedAt, &run.Error, &coverageJSON, &diagnosticsJSON)
	if err != nil {
		return model.Run{}, err
	}
	if run.RequestedQuarter, err = parseQuarter(requested); err != nil {
		return model.Run{}, err
	}
	if run.PriorQuarter, err = parseQuarter(prior); err != nil {
		return model.Run{}, err
	}
	run.Status = model.RunStatus(status)

	if run.StartedAt, err = ParseTime(startedAt); err != nil {
		return model.Run{}, err
	}
	if finishedAt.Valid && finishedAt.String != "" {
		finished, err := ParseTime(finishedAt.String)
		if err != nil {
			return model.Run{}, err
		}
		run.FinishedAt = &finished
	}

	if coverageJSON != "" {
		var coverage model.CoverageSummary
		if err := json.Unmarshal([]byte(coverageJSON), &coverage); err != nil {
			return model.Run{}, fmt.Errorf("failed to unmarshal coverage summary: %w", err)
		}
		run.Coverage = &coverage
	}
	if diagnosticsJSON != "" {
		if err := json.Unmarshal([]byte(diagnosticsJSON), &run.Diagnostics); err != nil {
			return model.Run{}, fmt.Errorf("failed to unmarshal diagnostic counts: %w", err)
		}
	}
	return run, nil
}
