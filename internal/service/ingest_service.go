package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tvandenberg/thirteenf/internal/edgar"
	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/normalize"
	"github.com/tvandenberg/thirteenf/internal/repository"
)

// parseWorkers bounds the parallel parse fan-out. Parsing is CPU-bound;
// downloads stay serial behind the EDGAR throttler.
const parseWorkers = 8

// IngestResult summarizes one acquisition pass over a quarter.
type IngestResult struct {
	Quarter model.Quarter `json:"quarter"`
	// FilingQuarter is the index quarter that was scanned: 13F reports on
	// quarter Q are filed within 45 days after Q ends, so they appear in
	// the following quarter's form index.
	FilingQuarter      model.Quarter `json:"filing_quarter"`
	IndexEntries       int           `json:"index_entries"`
	Downloads          int           `json:"downloads"`
	CacheHits          int           `json:"cache_hits"`
	ParseFailures      int           `json:"parse_failures"`
	Filings            int           `json:"filings"`
	Amendments         int           `json:"amendments"`
	OtherPeriods       int           `json:"other_periods"`
	MalformedRecords   int           `json:"malformed_records"`
	DuplicatesResolved int           `json:"duplicates_resolved"`
	Records            int           `json:"records"`
}

// IngestService acquires 13F filings from EDGAR and normalizes them into
// the quarter's canonical holding records. Raw documents are cached on
// disk, so re-ingesting a quarter only downloads what is missing.
type IngestService struct {
	filingRepo  *repository.FilingRepository
	holdingRepo *repository.HoldingRepository
	edgarClient edgar.Client
	db          *sql.DB
	dataDir     string
}

// NewIngestService creates a new IngestService with the provided repository and client dependencies.
func NewIngestService(
	filingRepo *repository.FilingRepository,
	holdingRepo *repository.HoldingRepository,
	edgarClient edgar.Client,
	db *sql.DB,
	dataDir string,
) *IngestService {
	return &IngestService{
		filingRepo:  filingRepo,
		holdingRepo: holdingRepo,
		edgarClient: edgarClient,
		db:          db,
		dataDir:     dataDir,
	}
}

// IngestQuarter acquires every 13F filing reporting on the quarter and
// replaces the quarter's holding records with the normalized result.
//
// The form index of the following quarter is scanned, since that is the
// filing window. Documents whose conformed period is a different quarter
// (late filings for older periods) are skipped. Amendment filings are
// recorded as metadata but contribute no holdings.
func (s *IngestService) IngestQuarter(ctx context.Context, quarter model.Quarter) (*IngestResult, error) {
	filingQuarter := quarter.Next()
	result := &IngestResult{Quarter: quarter, FilingQuarter: filingQuarter}

	entries, err := s.edgarClient.QuarterIndex(ctx, filingQuarter)
	if err != nil {
		return nil, err
	}
	result.IndexEntries = len(entries)

	// Download serially; the EDGAR client enforces the fair-access rate.
	paths := make([]string, len(entries))
	for i, entry := range entries {
		path, cached, err := s.ensureDocument(ctx, filingQuarter, entry)
		if err != nil {
			return nil, err
		}
		if cached {
			result.CacheHits++
		} else {
			result.Downloads++
		}
		paths[i] = path
	}

	parsed := make([]*normalize.ParsedDocument, len(entries))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(parseWorkers)
	for i := range entries {
		g.Go(func() error {
			data, err := os.ReadFile(paths[i])
			if err != nil {
				return err
			}
			doc, err := normalize.ParseDocument(data)
			if err != nil {
				// One odd document must not lose the quarter; it is
				// counted and skipped below.
				return nil
			}
			parsed[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	filings := make([]model.FilingHoldings, 0, len(entries))
	for i, entry := range entries {
		doc := parsed[i]
		if doc == nil {
			result.ParseFailures++
			continue
		}
		if doc.PeriodOfReport.IsZero() || model.QuarterOf(doc.PeriodOfReport) != quarter {
			result.OtherPeriods++
			continue
		}

		filing := model.Filing{
			Accession:       entry.Accession(),
			InstitutionID:   entry.CIK,
			InstitutionName: entry.CompanyName,
			FormType:        entry.FormType,
			FilingType:      model.FilingTypeFromForm(entry.FormType),
			FilingDate:      entry.DateFiled,
			PeriodQuarter:   quarter,
			RawPath:         paths[i],
			DownloadedAt:    now,
		}
		if err := s.filingRepo.Upsert(filing); err != nil {
			return nil, err
		}
		if filing.FilingType == model.FilingAmendment {
			result.Amendments++
		} else {
			result.Filings++
		}
		filings = append(filings, model.FilingHoldings{Filing: filing, Lines: doc.Lines})
	}

	records, diags := normalize.Normalize(quarter, filings)
	result.Records = len(records)
	result.MalformedRecords = diags.MalformedRecords
	result.DuplicatesResolved = diags.DuplicatesResolved

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := s.holdingRepo.WithTx(tx).ReplaceQuarter(quarter, records); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit holding records: %w", err)
	}

	stats := model.IngestStats{
		Quarter:            quarter,
		IndexEntries:       result.IndexEntries,
		FilingsIngested:    result.Filings,
		AmendmentsExcluded: diags.AmendmentsExcluded,
		OtherPeriods:       result.OtherPeriods,
		MalformedRecords:   diags.MalformedRecords,
		DuplicatesResolved: diags.DuplicatesResolved,
		HoldingRecords:     len(records),
		IngestedAt:         now,
	}
	if err := s.filingRepo.UpsertIngestStats(stats); err != nil {
		return nil, err
	}
	return result, nil
}

// ensureDocument returns the local cache path of one filing document,
// downloading it when absent.
func (s *IngestService) ensureDocument(ctx context.Context, filingQuarter model.Quarter, entry edgar.IndexEntry) (string, bool, error) {
	dir := filepath.Join(s.dataDir, filingQuarter.String())
	path := filepath.Join(dir, entry.Accession()+".txt")
	if _, err := os.Stat(path); err == nil {
		return path, true, nil
	}

	data, err := s.edgarClient.Document(ctx, entry.FileName)
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", false, fmt.Errorf("failed to cache document: %w", err)
	}
	return path, false, nil
}
