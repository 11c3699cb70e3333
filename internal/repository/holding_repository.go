package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tvandenberg/thirteenf/internal/model"
)

// HoldingRepository provides data access methods for the holdings table:
// the canonical per-quarter (institution, security) records the normalizer
// produces. Writes replace a whole quarter at once so a re-run never mixes
// records from two ingestions.
type HoldingRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

func (r *HoldingRepository) WithTx(tx *sql.Tx) *HoldingRepository {
	return &HoldingRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *HoldingRepository) getQuerier() interface {
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

const holdingColumns = `quarter, institution_id, cusip, institution_name, source_quarter, shares, value_millicents, filing_type, filing_date, accession`

// ReplaceQuarter deletes the quarter's existing records and inserts the
// given set. Callers run it inside a transaction via WithTx so a failure
// midway never leaves the quarter half-written.
func (r *HoldingRepository) ReplaceQuarter(quarter model.Quarter, records []model.HoldingRecord) error {
	q := r.getQuerier()

	if _, err := q.Exec(`DELETE FROM holdings WHERE quarter = ?`, quarter.String()); err != nil {
		return fmt.Errorf("failed to clear holdings for quarter: %w", err)
	}

	insert := `
          INSERT INTO holdings (` + holdingColumns + `)
          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
      `
	for _, rec := range records {
		_, err := q.Exec(insert,
			rec.Quarter.String(),
			rec.InstitutionID,
			rec.CUSIP,
			rec.InstitutionName,
			rec.SourceQuarter.String(),
			rec.Shares,
			rec.ValueMillicents,
			string(rec.FilingType),
			formatTime(rec.FilingDate),
			rec.Accession,
		)
		if err != nil {
			return fmt.Errorf("failed to insert holding record: %w", err)
		}
	}
	return nil
}

// ListQuarter retrieves every holding record for the quarter, ordered by
// CUSIP then institution for stable aggregation input.
func (r *HoldingRepository) ListQuarter(quarter model.Quarter) ([]model.HoldingRecord, error) {
	query := `
          SELECT ` + holdingColumns + `
          FROM holdings
          WHERE quarter = ?
          ORDER BY cusip, institution_id
      `
	rows, err := r.getQuerier().Query(query, quarter.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for quarter: %w", err)
	}
	defer rows.Close()

	records := []model.HoldingRecord{}
	for rows.Next() {
		rec, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holdings results: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings table: %w", err)
	}
	return records, nil
}

// UnmappedCUSIPs returns the distinct CUSIPs held in the quarter that have
// no identity row at all. This is the lookup-service work queue; CUSIPs with
// an unresolved row have already been tried and stay out of it.
func (r *HoldingRepository) UnmappedCUSIPs(quarter model.Quarter) ([]string, error) {
	query := `
          SELECT DISTINCT h.cusip
          FROM holdings h
          LEFT JOIN security_identities si ON h.cusip = si.cusip
          WHERE h.quarter = ? AND si.cusip IS NULL
          ORDER BY h.cusip
      `
	rows, err := r.getQuerier().Query(query, quarter.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query unmapped CUSIPs: %w", err)
	}
	defer rows.Close()

	cusips := []string{}
	for rows.Next() {
		var cusip string
		if err := rows.Scan(&cusip); err != nil {
			return nil, fmt.Errorf("failed to scan unmapped CUSIP: %w", err)
		}
		cusips = append(cusips, cusip)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unmapped CUSIPs: %w", err)
	}
	return cusips, nil
}

func scanHolding(s scanner) (model.HoldingRecord, error) {
	var (
		rec           model.HoldingRecord
		quarter       string
		sourceQuarter string
		filingType    string
		filingDate    string
	)
	err := s.Scan(
		&quarter,
		&rec.InstitutionID,
		&rec.CUSIP,
		&rec.InstitutionName,
		&sourceQuarter,
		&rec.Shares,
		&rec.ValueMillicents,
		&filingType,
		&filingDate,
		&rec.Accession,
	)
	if err != nil {
		return model.HoldingRecord{}, err
	}
	if rec.Quarter, err = parseQuarter(quarter); err != nil {
		return model.HoldingRecord{}, err
	}
	if rec.SourceQuarter, err = parseQuarter(sourceQuarter); err != nil {
		return model.HoldingRecord{}, err
	}
	rec.FilingType = model.FilingType(filingType)
	if rec.FilingDate, err = ParseTime(filingDate); err != nil {
		return model.HoldingRecord{}, err
	}
	return rec, nil
}
