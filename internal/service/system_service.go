package service

import (
	"database/sql"
	"fmt"

	"github.com/tvandenberg/thirteenf/internal/database"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// SystemService handles system-related operations
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// SystemStats is a row-count overview of the stored corpus, for operators
// eyeballing whether ingestion and runs are keeping up.
type SystemStats struct {
	Identities      int     `json:"identities"`
	Filings         int     `json:"filings"`
	HoldingRecords  int     `json:"holding_records"`
	Quarters        int     `json:"quarters"`
	Runs            int     `json:"runs"`
	CompletedRuns   int     `json:"completed_runs"`
	ReportArtifacts int     `json:"report_artifacts"`
	LatestRunID     *string `json:"latest_run_id,omitempty"`
}

// Stats counts the stored entities.
func (s *SystemService) Stats() (SystemStats, error) {
	stats := SystemStats{}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM security_identities`, &stats.Identities},
		{`SELECT COUNT(*) FROM filings`, &stats.Filings},
		{`SELECT COUNT(*) FROM holdings`, &stats.HoldingRecords},
		{`SELECT COUNT(DISTINCT quarter) FROM holdings`, &stats.Quarters},
		{`SELECT COUNT(*) FROM runs`, &stats.Runs},
		{`SELECT COUNT(*) FROM runs WHERE status = ?`, &stats.CompletedRuns},
		{`SELECT COUNT(*) FROM report_artifacts`, &stats.ReportArtifacts},
	}
	for _, c := range counts {
		var args []any
		if c.dest == &stats.CompletedRuns {
			args = append(args, string(model.RunCompleted))
		}
		if err := s.db.QueryRow(c.query, args...).Scan(c.dest); err != nil {
			return SystemStats{}, fmt.Errorf("failed to count system stats: %w", err)
		}
	}

	var latest sql.NullString
	err := s.db.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC, id LIMIT 1`).Scan(&latest)
	if err != nil && err != sql.ErrNoRows {
		return SystemStats{}, fmt.Errorf("failed to find latest run: %w", err)
	}
	if latest.Valid {
		stats.LatestRunID = &latest.String
	}
	return stats, nil
}
