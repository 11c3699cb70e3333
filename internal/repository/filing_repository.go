package repository

import (
	"database/sql"
	"fmt"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// FilingRepository provides data access methods for ingested 13F filing
// metadata. Holdings themselves live in HoldingRepository; filings record
// which documents the holdings came from.
type FilingRepository struct {
	db *sql.DB
}

// NewFilingRepository creates a new FilingRepository with the provided database connection.
func NewFilingRepository(db *sql.DB) *FilingRepository {
	return &FilingRepository{db: db}
}

const filingColumns = `accession, cik, institution_name, form_type, filing_type, filed_at, period_quarter, raw_path, downloaded_at`

// Upsert records a filing. Re-ingesting the same accession refreshes the
// metadata, so repeated acquisition runs stay idempotent.
func (r *FilingRepository) Upsert(filing model.Filing) error {
	query := `
          INSERT INTO filings (` + filingColumns + `)
          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
          ON CONFLICT (accession) DO UPDATE SET
              cik = excluded.cik,
              institution_name = excluded.institution_name,
              form_type = excluded.form_type,
              filing_type = excluded.filing_type,
              filed_at = excluded.filed_at,
              period_quarter = excluded.period_quarter,
              raw_path = excluded.raw_path,
              downloaded_at = excluded.downloaded_at
      `
	_, err := r.db.Exec(query,
		filing.Accession,
		filing.InstitutionID,
		filing.InstitutionName,
		filing.FormType,
		string(filing.FilingType),
		formatTime(filing.FilingDate),
		filing.PeriodQuarter.String(),
		filing.RawPath,
		formatTime(filing.DownloadedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert filing: %w", err)
	}
	return nil
}

// GetByAccession retrieves one filing by its accession number.
func (r *FilingRepository) GetByAccession(accession string) (model.Filing, error) {
	query := `
          SELECT ` + filingColumns + `
          FROM filings
          WHERE accession = ?
      `
	row := r.db.QueryRow(query, accession)
	filing, err := scanFiling(row)
	if err == sql.ErrNoRows {
		return model.Filing{}, apperrors.ErrFilingNotFound
	}
	if err != nil {
		return model.Filing{}, fmt.Errorf("failed to query filing: %w", err)
	}
	return filing, nil
}

// ListByQuarter retrieves all filings whose reporting period is the given
// quarter, ordered by filing date then accession for stable output.
func (r *FilingRepository) ListByQuarter(quarter model.Quarter) ([]model.Filing, error) {
	query := `
          SELECT ` + filingColumns + `
          FROM filings
          WHERE period_quarter = ?
          ORDER BY filed_at, accession
      `
	rows, err := r.db.Query(query, quarter.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query filings for quarter: %w", err)
	}
	defer rows.Close()

	filings := []model.Filing{}
	for rows.Next() {
		filing, err := scanFiling(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filings results: %w", err)
		}
		filings = append(filings, filing)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filings table: %w", err)
	}
	return filings, nil
}

// UpsertIngestStats records the outcome of an acquisition pass. Each
// quarter keeps only its latest pass; re-ingesting replaces the row.
func (r *FilingRepository) UpsertIngestStats(stats model.IngestStats) error {
	query := `
          INSERT INTO ingest_stats (quarter, index_entries, filings_ingested, amendments_excluded,
              other_periods, malformed_records, duplicates_resolved, holding_records, ingested_at)
          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
          ON CONFLICT (quarter) DO UPDATE SET
              index_entries = excluded.index_entries,
              filings_ingested = excluded.filings_ingested,
              amendments_excluded = excluded.amendments_excluded,
              other_periods = excluded.other_periods,
              malformed_records = excluded.malformed_records,
              duplicates_resolved = excluded.duplicates_resolved,
              holding_records = excluded.holding_records,
              ingested_at = excluded.ingested_at
      `
	_, err := r.db.Exec(query,
		stats.Quarter.String(),
		stats.IndexEntries,
		stats.FilingsIngested,
		stats.AmendmentsExcluded,
		stats.OtherPeriods,
		stats.MalformedRecords,
		stats.DuplicatesResolved,
		stats.HoldingRecords,
		formatTime(stats.IngestedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ingest stats: %w", err)
	}
	return nil
}

// GetIngestStats retrieves the acquisition stats for a quarter. A quarter
// that was never ingested yields zero stats, not an error, so runs over
// directly seeded data still work.
func (r *FilingRepository) GetIngestStats(quarter model.Quarter) (model.IngestStats, error) {
	query := `
          SELECT quarter, index_entries, filings_ingested, amendments_excluded,
              other_periods, malformed_records, duplicates_resolved, holding_records, ingested_at
          FROM ingest_stats
          WHERE quarter = ?
      `
	var (
		stats      model.IngestStats
		quarterStr string
		ingestedAt string
	)
	err := r.db.QueryRow(query, quarter.String()).Scan(
		&quarterStr,
		&stats.IndexEntries,
		&stats.FilingsIngested,
		&stats.AmendmentsExcluded,
		&stats.OtherPeriods,
		&stats.MalformedRecords,
		&stats.DuplicatesResolved,
		&stats.HoldingRecords,
		&ingestedAt,
	)
	if err == sql.ErrNoRows {
		return model.IngestStats{Quarter: quarter}, nil
	}
	if err != nil {
		return model.IngestStats{}, fmt.Errorf("failed to query ingest stats: %w", err)
	}
	if stats.Quarter, err = parseQuarter(quarterStr); err != nil {
		return model.IngestStats{}, err
	}
	if stats.IngestedAt, err = ParseTime(ingestedAt); err != nil {
		return model.IngestStats{}, err
	}
	return stats, nil
}

func scanFiling(s scanner) (model.Filing, error) {
	var (
		filing       model.Filing
		filingType   string
		filedAt      string
		quarter      string
		downloadedAt string
	)
	err := s.Scan(
		&filing.Accession,
		&filing.InstitutionID,
		&filing.InstitutionName,
		&filing.FormType,
		&filingType,
		&filedAt,
		&quarter,
		&filing.RawPath,
		&downloadedAt,
	)
	if err != nil {
		return model.Filing{}, err
	}
	filing.FilingType = model.FilingType(filingType)

	if filing.FilingDate, err = ParseTime(filedAt); err != nil {
		return model.Filing{}, err
	}
	if filing.PeriodQuarter, err = parseQuarter(quarter); err != nil {
		return model.Filing{}, err
	}
	if filing.DownloadedAt, err = ParseTime(downloadedAt); err != nil {
		return model.Filing{}, err
	}
	return filing, nil
}
