package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// NetAdditionRepository provides data access methods for persisted
// reconciliation results. Like snapshots, rows are immutable per run and
// reads serve the latest completed run for the quarter.
type NetAdditionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewNetAdditionRepository creates a new NetAdditionRepository with the provided database connection.
func NewNetAdditionRepository(db *sql.DB) *NetAdditionRepository {
	return &NetAdditionRepository{db: db}
}

func (r *NetAdditionRepository) WithTx(tx *sql.Tx) *NetAdditionRepository {
	return &NetAdditionRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *NetAdditionRepository) getQuerier() interface {
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

// ReplaceRun stores the reconciliation records a run produced.
func (r *NetAdditionRepository) ReplaceRun(runID string, quarter model.Quarter, records []model.NetAdditionRecord) error {
	q := r.getQuerier()

	if _, err := q.Exec(`DELETE FROM net_additions WHERE run_id = ? AND quarter = ?`, runID, quarter.String()); err != nil {
		return fmt.Errorf("failed to clear net addition rows: %w", err)
	}

	insert := `
          INSERT INTO net_additions (
              run_id, cusip, quarter, prior_quarter,
              net_adding_institutions, net_reducing_institutions,
              net_shares_delta, net_value_delta_millicents,
              avg_portfolio_weight_delta_pct,
              entering_json, exiting_json, changes_json
          )
          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
      `
	for _, rec := range records {
		enteringJSON, err := json.Marshal(rec.InstitutionsEntering)
		if err != nil {
			return fmt.Errorf("failed to marshal entering institutions: %w", err)
		}
		exitingJSON, err := json.Marshal(rec.InstitutionsExiting)
		if err != nil {
			return fmt.Errorf("failed to marshal exiting institutions: %w", err)
		}
		changesJSON, err := json.Marshal(rec.InstitutionChanges)
		if err != nil {
			return fmt.Errorf("failed to marshal institution changes: %w", err)
		}
		var avgWeight any
		if rec.AvgPortfolioWeightDeltaPct != nil {
			avgWeight = *rec.AvgPortfolioWeightDeltaPct
		}
		_, err = q.Exec(insert,
			runID,
			rec.CUSIP,
			rec.Quarter.String(),
			rec.PriorQuarter.String(),
			rec.NetAddingInstitutions,
			rec.NetReducingInstitutions,
			rec.NetSharesDelta,
			rec.NetValueDeltaMillicents,
			avgWeight,
			string(enteringJSON),
			string(exitingJSON),
			string(changesJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert net addition row: %w", err)
		}
	}
	return nil
}

// ListByQuarter retrieves the net-addition records of the latest completed
// run for the quarter, ordered by net adding institutions descending.
func (r *NetAdditionRepository) ListByQuarter(quarter model.Quarter) ([]model.NetAdditionRecord, error) {
	runID, err := r.latestRunForQuarter(quarter)
	if err != nil {
		return nil, err
	}

	query := `
          SELECT cusip, quarter, prior_quarter,
                 net_adding_institutions, net_reducing_institutions,
                 net_shares_delta, net_value_delta_millicents,
                 avg_portfolio_weight_delta_pct,
                 entering_json, exiting_json, changes_json
          FROM net_additions
          WHERE run_id = ? AND quarter = ?
          ORDER BY (net_adding_institutions - net_reducing_institutions) DESC, cusip
      `
	rows, err := r.getQuerier().Query(query, runID, quarter.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query net addition rows: %w", err)
	}
	defer rows.Close()

	records := []model.NetAdditionRecord{}
	for rows.Next() {
		rec, err := scanNetAddition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan net addition results: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating net addition rows: %w", err)
	}
	return records, nil
}

func (r *NetAdditionRepository) latestRunForQuarter(quarter model.Quarter) (string, error) {
	query := `
          SELECT r.id
          FROM runs r
          WHERE r.status = 'completed'
            AND EXISTS (
                SELECT 1 FROM net_additions na
                WHERE na.run_id = r.id AND na.quarter = ?
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
		return "", fmt.Errorf("failed to resolve net additions run for quarter: %w", err)
	}
	return runID, nil
}

func scanNetAddition(s scanner) (model.NetAdditionRecord, error) {
	var (
		rec          model.NetAdditionRecord
		quarter      string
		prior        string
		avgWeight    sql.NullFloat64
		enteringJSON string
		exitingJSON  string
		changesJSON  string
	)
	err := s.Scan(
		&rec.CUSIP,
		&quarter,
		&prior,
		&rec.NetAddingInstitutions,
		&rec.NetReducingInstitutions,
		&rec.NetSharesDelta,
		&rec.NetValueDeltaMillicents,
		&avgWeight,
		&enteringJSON,
		&exitingJSON,
		&changesJSON,
	)
	if err != nil {
		return model.NetAdditionRecord{}, err
	}
	if rec.Quarter, err = parseQuarter(quarter); err != nil {
		return model.NetAdditionRecord{}, err
	}
	if rec.PriorQuarter, err = parseQuarter(prior); err != nil {
		return model.NetAdditionRecord{}, err
	}
	if avgWeight.Valid {
		rec.AvgPortfolioWeightDeltaPct = &avgWeight.Float64
	}
	if err := json.Unmarshal([]byte(enteringJSON), &rec.InstitutionsEntering); err != nil {
		return model.NetAdditionRecord{}, fmt.Errorf("failed to unmarshal entering institutions: %w", err)
	}
	if err := json.Unmarshal([]byte(exitingJSON), &rec.InstitutionsExiting); err != nil {
		return model.NetAdditionRecord{}, fmt.Errorf("failed to unmarshal exiting institutions: %w", err)
	}
	if err := json.Unmarshal([]byte(changesJSON), &rec.InstitutionChanges); err != nil {
		return model.NetAdditionRecord{}, fmt.Errorf("failed to unmarshal institution changes: %w", err)
	}
	return rec, nil
}
