package repository

import (
	"database/sql"
	"fmt"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// ArtifactRepository provides data access methods for the report_artifacts
// table. Each row carries the full report JSON alongside the on-disk paths,
// so the API can serve reports without touching the filesystem.
type ArtifactRepository struct {
	db *sql.DB
}

// NewArtifactRepository creates a new ArtifactRepository with the provided database connection.
func NewArtifactRepository(db *sql.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

const artifactColumns = `id, run_id, kind, metric, quarter, json_path, markdown_path, report_json, created_at`

// Create stores a report artifact and its serialized report.
func (r *ArtifactRepository) Create(artifact model.ReportArtifact, reportJSON []byte) error {
	query := `
          INSERT INTO report_artifacts (` + artifactColumns + `)
          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
      `
	_, err := r.db.Exec(query,
		artifact.ID,
		artifact.RunID,
		string(artifact.Kind),
		string(artifact.Metric),
		artifact.Quarter.String(),
		artifact.JSONPath,
		artifact.MarkdownPath,
		string(reportJSON),
		formatTime(artifact.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create report artifact: %w", err)
	}
	return nil
}

// GetByID retrieves one artifact and its report JSON.
func (r *ArtifactRepository) GetByID(id string) (model.ReportArtifact, []byte, error) {
	query := `
          SELECT ` + artifactColumns + `
          FROM report_artifacts
          WHERE id = ?
      `
	row := r.db.QueryRow(query, id)
	artifact, reportJSON, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return model.ReportArtifact{}, nil, apperrors.ErrReportNotFound
	}
	if err != nil {
		return model.ReportArtifact{}, nil, fmt.Errorf("failed to query report artifact: %w", err)
	}
	return artifact, reportJSON, nil
}

// LatestByKind retrieves the most recently created artifact of a kind.
func (r *ArtifactRepository) LatestByKind(kind model.ReportKind) (model.ReportArtifact, []byte, error) {
	query := `
          SELECT ` + artifactColumns + `
          FROM report_artifacts
          WHERE kind = ?
          ORDER BY created_at DESC, id
          LIMIT 1
      `
	row := r.db.QueryRow(query, string(kind))
	artifact, reportJSON, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return model.ReportArtifact{}, nil, apperrors.ErrReportNotFound
	}
	if err != nil {
		return model.ReportArtifact{}, nil, fmt.Errorf("failed to query latest report artifact: %w", err)
	}
	return artifact, reportJSON, nil
}

// ListByRun retrieves the artifacts one run produced. Report JSON is
// omitted; callers fetch individual artifacts when they need the payload.
func (r *ArtifactRepository) ListByRun(runID string) ([]model.ReportArtifact, error) {
	query := `
          SELECT id, run_id, kind, metric, quarter, json_path, markdown_path, created_at
          FROM report_artifacts
          WHERE run_id = ?
          ORDER BY kind, metric
      `
	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []model.ReportArtifact{}
	for rows.Next() {
		var (
			artifact  model.ReportArtifact
			kind      string
			metric    string
			quarter   string
			createdAt string
		)
		err := rows.Scan(&artifact.ID, &artifact.RunID, &kind, &metric, &quarter, &artifact.JSONPath, &artifact.MarkdownPath, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run artifacts results: %w", err)
		}
		artifact.Kind = model.ReportKind(kind)
		artifact.Metric = model.Metric(metric)
		if artifact.Quarter, err = parseQuarter(quarter); err != nil {
			return nil, err
		}
		if artifact.CreatedAt, err = ParseTime(createdAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run artifacts: %w", err)
	}
	return artifacts, nil
}

func scanArtifact(s scanner) (model.ReportArtifact, []byte, error) {
	var (
		artifact   model.ReportArtifact
		kind       string
		metric     string
		quarter    string
		reportJSON string
		createdAt  string
	)
	err := s.Scan(&artifact.ID, &artifact.RunID, &kind, &metric, &quarter, &artifact.JSONPath, &artifact.MarkdownPath, &reportJSON, &createdAt)
	if err != nil {
		return model.ReportArtifact{}, nil, err
	}
	artifact.Kind = model.ReportKind(kind)
	artifact.Metric = model.Metric(metric)
	if artifact.Quarter, err = parseQuarter(quarter); err != nil {
		return model.ReportArtifact{}, nil, err
	}
	if artifact.CreatedAt, err = ParseTime(createdAt); err != nil {
		return model.ReportArtifact{}, nil, err
	}
	return artifact, []byte(reportJSON), nil
}
