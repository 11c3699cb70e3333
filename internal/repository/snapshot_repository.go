package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// SnapshotRepository provides data access methods for persisted quarter
// snapshots. Rows are keyed by (run, cusip); reads always serve the latest
// completed run that covered the quarter, so an in-flight run never bleeds
// into API responses.
type SnapshotRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) WithTx(tx *sql.Tx) *SnapshotRepository {
	return &SnapshotRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *SnapshotRepository) getQuerier() interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// ReplaceRun stores the snapshot rows a run produced for one quarter.
// Ticker and name are not stored; reads join the identity table so mapping
// refreshes reach old snapshots without rewriting them.
func (r *SnapshotRepository) ReplaceRun(runID string, quarter model.Quarter, rows []model.SnapshotSecurityRow) error {
	q := r.getQuerier()

	if _, err := q.Exec(`DELETE FROM snapshot_securities WHERE run_id = ? AND quarter = ?`, runID, quarter.String()); err != nil {
		return fmt.Errorf("failed to clear snapshot rows: %w", err)
	}

	insert := `
          INSERT INTO snapshot_securities (run_id, cusip, quarter, total_shares, total_value_millicents, holder_count, pct_of_float, holders_json)
          VALUES (?, ?, ?, ?, ?, ?, ?, ?)
      `
	for _, row := range rows {
		holdersJSON, err := json.Marshal(row.Holders)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot holders: %w", err)
		}
		var pct any
		if row.PctOfFloat != nil {
			pct = *row.PctOfFloat
		}
		_, err = q.Exec(insert,
			runID,
			row.CUSIP,
			quarter.String(),
			row.TotalShares,
			row.TotalValueMillicents,
			row.HolderCount,
			pct,
			string(holdersJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot row: %w", err)
		}
	}
	return nil
}

// ListByQuarter retrieves one page of the quarter's snapshot ordered by
// total value descending then CUSIP, plus the total row count for paging.
func (r *SnapshotRepository) ListByQuarter(quarter model.Quarter, limit, offset int) ([]model.SnapshotSecurityRow, int, error) {
	runID, err := r.latestRunForQuarter(quarter)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM snapshot_securities WHERE run_id = ? AND quarter = ?`
	if err := r.getQuerier().QueryRow(countQuery, runID, quarter.String()).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count snapshot rows: %w", err)
	}

	query := `
          SELECT ss.quarter, ss.cusip, si.ticker, si.name, ss.total_shares, ss.total_value_millicents, ss.holder_count, ss.pct_of_float
          FROM snapshot_securities ss
          LEFT JOIN security_identities si ON ss.cusip = si.cusip
          WHERE ss.run_id = ? AND ss.quarter = ?
          ORDER BY ss.total_value_millicents DESC, ss.cusip
          LIMIT ? OFFSET ?
      `
	rows, err := r.getQuerier().Query(query, runID, quarter.String(), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query snapshot rows: %w", err)
	}
	defer rows.Close()

	results := []model.SnapshotSecurityRow{}
	for rows.Next() {
		row, err := scanSnapshotRow(rows, false)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan snapshot results: %w", err)
		}
		results = append(results, row)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return results, total, nil
}

// GetSecurity retrieves one security's snapshot row including its full
// holder roster.
func (r *SnapshotRepository) GetSecurity(quarter model.Quarter, cusip string) (model.SnapshotSecurityRow, error) {
	runID, err := r.latestRunForQuarter(quarter)
	if err != nil {
		return model.SnapshotSecurityRow{}, err
	}

	query := `
          SELECT ss.quarter, ss.cusip, si.ticker, si.name, ss.total_shares, ss.total_value_millicents, ss.holder_count, ss.pct_of_float, ss.holders_json
          FROM snapshot_securities ss
          LEFT JOIN security_identities si ON ss.cusip = si.cusip
          WHERE ss.run_id = ? AND ss.quarter = ? AND ss.cusip = ?
      `
	row, err := scanSnapshotRow(r.getQuerier().QueryRow(query, runID, quarter.String(), cusip), true)
	if err == sql.ErrNoRows {
		return model.SnapshotSecurityRow{}, apperrors.ErrSecurityNotInSnapshot
	}
	if err != nil {
		return model.SnapshotSecurityRow{}, fmt.Errorf("failed to query snapshot security: %w", err)
	}
	return row, nil
}

// latestRunForQuarter resolves the newest completed run that wrote snapshot
// rows for the quarter.
func (r *SnapshotRepository) latestRunForQuarter(quarter model.Quarter) (string, error) {
	query := `
          SELECT r.id
          FROM runs r
          WHERE r.status = 'completed'
            AND EXISTS (
                SELECT 1 FROM snapshot_securities ss
                WHERE ss.run_id = r.id AND ss.quarter = ?
            )
          ORDER BY r.started_at DESC, r.id
          LIMIT 1
      `
	var runID string
	err := r.getQuerier().QueryRow(query, quarter.String()).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", apperrors.ErrSnapshotNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve snapshot run for quarter: %w", err)
	}
	return runID, nil
}

func scanSnapshotRow(s scanner, withHolders bool) (model.SnapshotSecurityRow, error) {
	var (
		row         model.SnapshotSecurityRow
		quarter     string
		ticker      sql.NullString
		name        sql.NullString
		pct         sql.NullFloat64
		holdersJSON string
	)
	dest := []any{&quarter, &row.CUSIP, &ticker, &name, &row.TotalShares, &row.TotalValueMillicents, &row.HolderCount, &pct}
	if withHolders {
		dest = append(dest, &holdersJSON)
	}
	if err := s.Scan(dest...); err != nil {
		return model.SnapshotSecurityRow{}, err
	}

	var err error
	if row.Quarter, err = parseQuarter(quarter); err != nil {
		return model.SnapshotSecurityRow{}, err
	}
	if ticker.Valid && ticker.String != "" {
		row.Ticker = &ticker.String
	}
	if name.Valid {
		row.Name = name.String
	}
	if pct.Valid {
		row.PctOfFloat = &pct.Float64
	}
	if withHolders && holdersJSON != "" {
		if err := json.Unmarshal([]byte(holdersJSON), &row.Holders); err != nil {
			return model.SnapshotSecurityRow{}, fmt.Errorf("failed to unmarshal snapshot holders: %w", err)
		}
	}
	return row, nil
}
