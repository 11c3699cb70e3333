package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/config"
	"github.com/tvandenberg/thirteenf/internal/identity"
	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/reconcile"
	"github.com/tvandenberg/thirteenf/internal/report"
	"github.com/tvandenberg/thirteenf/internal/repository"
	"github.com/tvandenberg/thirteenf/internal/snapshot"
)

// RunService orchestrates reconciliation runs: snapshot both quarters,
// reconcile, rank, and persist the resulting reports. Runs are serialized;
// a second trigger while one is active is refused with ErrRunActive.
type RunService struct {
	db           *sql.DB
	runRepo      *repository.RunRepository
	artifactRepo *repository.ArtifactRepository
	identityRepo *repository.IdentityRepository
	holdingRepo  *repository.HoldingRepository
	filingRepo   *repository.FilingRepository
	snapshotRepo *repository.SnapshotRepository
	netAddRepo   *repository.NetAdditionRepository
	reportsDir   string

	mu     sync.Mutex
	active bool
}

// NewRunService creates a new RunService with the provided repository dependencies.
// reportsDir is where report artifacts (JSON and Markdown) are written.
func NewRunService(
	db *sql.DB,
	runRepo *repository.RunRepository,
	artifactRepo *repository.ArtifactRepository,
	identityRepo *repository.IdentityRepository,
	holdingRepo *repository.HoldingRepository,
	filingRepo *repository.FilingRepository,
	snapshotRepo *repository.SnapshotRepository,
	netAddRepo *repository.NetAdditionRepository,
	reportsDir string,
) *RunService {
	return &RunService{
		db:           db,
		runRepo:      runRepo,
		artifactRepo: artifactRepo,
		identityRepo: identityRepo,
		holdingRepo:  holdingRepo,
		filingRepo:   filingRepo,
		snapshotRepo: snapshotRepo,
		netAddRepo:   netAddRepo,
		reportsDir:   reportsDir,
	}
}

// GetRun retrieves one run by ID.
func (s *RunService) GetRun(id string) (model.Run, error) {
	return s.runRepo.Get(id)
}

// ListRuns retrieves runs newest-first, capped at limit when positive.
func (s *RunService) ListRuns(limit int) ([]model.Run, error) {
	return s.runRepo.List(limit)
}

// RunArtifacts retrieves the report artifacts a run produced.
func (s *RunService) RunArtifacts(runID string) ([]model.ReportArtifact, error) {
	if _, err := s.runRepo.Get(runID); err != nil {
		return nil, err
	}
	return s.artifactRepo.ListByRun(runID)
}

// Run executes a reconciliation run synchronously and returns the terminal
// run. On pipeline failure the run row is marked failed and the error is
// returned alongside it.
func (s *RunService) Run(params config.Params) (model.Run, error) {
	if !s.tryAcquire() {
		return model.Run{}, apperrors.ErrRunActive
	}
	defer s.release()

	run, err := s.begin(params, time.Now().UTC())
	if err != nil {
		return model.Run{}, err
	}
	return s.execute(run, params)
}

// Trigger starts a reconciliation run in the background and returns the
// freshly created run row, status running. Callers poll GetRun for the
// outcome.
func (s *RunService) Trigger(params config.Params) (model.Run, error) {
	if !s.tryAcquire() {
		return model.Run{}, apperrors.ErrRunActive
	}

	run, err := s.begin(params, time.Now().UTC())
	if err != nil {
		s.release()
		return model.Run{}, err
	}

	go func() {
		defer s.release()
		if _, err := s.execute(run, params); err != nil {
			log.Printf("run %s failed: %v", run.ID, err)
		}
	}()
	return run, nil
}

func (s *RunService) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	return true
}

func (s *RunService) release() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// begin resolves the target quarter and creates the run row.
func (s *RunService) begin(params config.Params, now time.Time) (model.Run, error) {
	quarter, err := params.TargetQuarter(now)
	if err != nil {
		return model.Run{}, err
	}

	run := model.Run{
		ID:               uuid.New().String(),
		RequestedQuarter: quarter,
		PriorQuarter:     quarter.Prev(),
		Status:           model.RunRunning,
		StartedAt:        now,
	}
	if err := s.runRepo.Create(run); err != nil {
		return model.Run{}, err
	}
	return run, nil
}

// execute drives the pipeline and finalizes the run row either way.
func (s *RunService) execute(run model.Run, params config.Params) (model.Run, error) {
	err := s.pipeline(run, params)
	finished := time.Now().UTC()
	if err != nil {
		if markErr := s.runRepo.MarkFailed(run.ID, finished, err.Error()); markErr != nil {
			log.Printf("failed to mark run %s failed: %v", run.ID, markErr)
		}
		run.Status = model.RunFailed
		run.Error = err.Error()
		run.FinishedAt = &finished
		return run, err
	}
	return s.runRepo.Get(run.ID)
}

// pipeline is one full reconciliation pass: load, snapshot, reconcile,
// rank, persist. Any error aborts the run; the engine never completes on
// partial or simulated inputs.
func (s *RunService) pipeline(run model.Run, params config.Params) error {
	quarter, prior := run.RequestedQuarter, run.PriorQuarter

	identities, err := s.identityRepo.List()
	if err != nil {
		return err
	}
	resolver, err := identity.NewResolver(identities, run.StartedAt, params.MaxDataAge())
	if err != nil {
		return err
	}

	currentRecords, err := s.holdingRepo.ListQuarter(quarter)
	if err != nil {
		return err
	}
	if len(currentRecords) == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrNoFilings, quarter)
	}
	priorRecords, err := s.holdingRepo.ListQuarter(prior)
	if err != nil {
		return err
	}

	currentSnap, err := snapshot.Build(quarter, currentRecords)
	if err != nil {
		return err
	}
	// An empty prior snapshot is legitimate: every position counts as
	// entering. It happens on the first quarter ever ingested.
	priorSnap, err := snapshot.Build(prior, priorRecords)
	if err != nil {
		return err
	}

	netAdds, recStats, err := reconcile.Reconcile(priorSnap, currentSnap)
	if err != nil {
		return err
	}

	engine := report.NewEngine(resolver, report.Filters{
		ExcludeETFs:          params.ExcludeETFs,
		MinSharesOutstanding: params.MinSharesOutstanding,
		OwnershipCapPct:      params.OwnershipCapPct,
	}, params.TopN)

	ownership, ownStats, err := engine.RankOwnership(currentSnap, model.MetricOwnershipPct)
	if err != nil {
		return err
	}
	netReport, _, err := engine.RankNetAdditions(netAdds, currentSnap, params.NetAddsRankingMetric())
	if err != nil {
		return err
	}
	if netReport.PriorQuarter == nil {
		p := prior
		netReport.PriorQuarter = &p
	}

	ingestStats, err := s.filingRepo.GetIngestStats(quarter)
	if err != nil {
		return err
	}
	fromEarlier := 0
	for _, rec := range currentRecords {
		if rec.SourceQuarter != rec.Quarter {
			fromEarlier++
		}
	}
	diagnostics := model.DiagnosticCounts{
		MalformedRecords:         ingestStats.MalformedRecords,
		AmendmentsExcluded:       ingestStats.AmendmentsExcluded,
		DuplicatesResolved:       ingestStats.DuplicatesResolved,
		OwnershipCapExceedances:  ownStats.OwnershipCapExceedances,
		DivisionGuardExclusions:  recStats.DivisionGuardExclusions,
		StaleSharesTreatedAbsent: ownStats.StaleSharesTreatedAbsent,
		FromEarlierQuarters:      fromEarlier,
	}
	ownership.Diagnostics = diagnostics
	netReport.Diagnostics = diagnostics

	artifacts := make([]model.ReportArtifact, 0, 2)
	payloads := make([][]byte, 0, 2)
	for _, r := range []*model.RankedReport{ownership, netReport} {
		artifact, reportJSON, err := s.writeArtifact(run, r)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, artifact)
		payloads = append(payloads, reportJSON)
	}

	rows := snapshotRows(currentSnap, resolver)
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := s.snapshotRepo.WithTx(tx).ReplaceRun(run.ID, quarter, rows); err != nil {
		tx.Rollback()
		return err
	}
	if err := s.netAddRepo.WithTx(tx).ReplaceRun(run.ID, quarter, netAdds); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run output: %w", err)
	}

	for i, artifact := range artifacts {
		if err := s.artifactRepo.Create(artifact, payloads[i]); err != nil {
			return err
		}
	}

	return s.runRepo.MarkCompleted(run.ID, time.Now().UTC(), ownership.Coverage, diagnostics)
}

// writeArtifact renders one report to the reports directory in both
// formats and returns its artifact row plus the JSON payload.
func (s *RunService) writeArtifact(run model.Run, r *model.RankedReport) (model.ReportArtifact, []byte, error) {
	if err := os.MkdirAll(s.reportsDir, 0o755); err != nil {
		return model.ReportArtifact{}, nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	jsonPath := filepath.Join(s.reportsDir, report.ArtifactName(r.Kind, r.Quarter, "json"))
	markdownPath := filepath.Join(s.reportsDir, report.ArtifactName(r.Kind, r.Quarter, "md"))

	reportJSON, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return model.ReportArtifact{}, nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(jsonPath, reportJSON, 0o644); err != nil {
		return model.ReportArtifact{}, nil, fmt.Errorf("failed to write report JSON: %w", err)
	}
	if err := os.WriteFile(markdownPath, report.Markdown(r), 0o644); err != nil {
		return model.ReportArtifact{}, nil, fmt.Errorf("failed to write report Markdown: %w", err)
	}

	return model.ReportArtifact{
		ID:           uuid.New().String(),
		RunID:        run.ID,
		Kind:         r.Kind,
		Metric:       r.Metric,
		Quarter:      r.Quarter,
		JSONPath:     jsonPath,
		MarkdownPath: markdownPath,
		CreatedAt:    time.Now().UTC(),
	}, reportJSON, nil
}

// snapshotRows flattens the quarter snapshot into persistable read-model
// rows. Ticker and name stay out; reads join the identity table.
func snapshotRows(snap *model.QuarterSnapshot, resolver *identity.Resolver) []model.SnapshotSecurityRow {
	rows := make([]model.SnapshotSecurityRow, 0, len(snap.Securities))
	for cusip, sec := range snap.Securities {
		row := model.SnapshotSecurityRow{
			Quarter:              snap.Quarter,
			CUSIP:                cusip,
			TotalShares:          sec.TotalShares,
			TotalValueMillicents: sec.TotalValueMillicents,
			HolderCount:          len(sec.Holders),
			Holders:              sec.Holders,
		}
		if floatShares, ok := resolver.SharesOutstanding(cusip); ok {
			pct := float64(sec.TotalShares) / float64(floatShares) * 100
			row.PctOfFloat = &pct
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CUSIP < rows[j].CUSIP })
	return rows
}
