package service

import (
	"encoding/json"
	"fmt"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/report"
	"github.com/tvandenberg/thirteenf/internal/repository"
)

// ReportService is the read side of completed runs: report artifacts,
// quarter snapshots, net additions, and coverage summaries. It never
// recomputes; everything served was persisted by a completed run.
type ReportService struct {
	runRepo      *repository.RunRepository
	artifactRepo *repository.ArtifactRepository
	snapshotRepo *repository.SnapshotRepository
	netAddRepo   *repository.NetAdditionRepository
}

// NewReportService creates a new ReportService with the provided repository dependencies.
func NewReportService(
	runRepo *repository.RunRepository,
	artifactRepo *repository.ArtifactRepository,
	snapshotRepo *repository.SnapshotRepository,
	netAddRepo *repository.NetAdditionRepository,
) *ReportService {
	return &ReportService{
		runRepo:      runRepo,
		artifactRepo: artifactRepo,
		snapshotRepo: snapshotRepo,
		netAddRepo:   netAddRepo,
	}
}

// ParseReportKind validates a report kind name.
func ParseReportKind(kind string) (model.ReportKind, error) {
	switch model.ReportKind(kind) {
	case model.ReportOwnership:
		return model.ReportOwnership, nil
	case model.ReportNetAdditions:
		return model.ReportNetAdditions, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidReportKind, kind)
	}
}

// LatestReport returns the newest artifact of the given kind with its
// report JSON.
func (s *ReportService) LatestReport(kind model.ReportKind) (model.ReportArtifact, json.RawMessage, error) {
	artifact, reportJSON, err := s.artifactRepo.LatestByKind(kind)
	if err != nil {
		return model.ReportArtifact{}, nil, err
	}
	return artifact, reportJSON, nil
}

// GetReport returns one artifact by ID with its report JSON.
func (s *ReportService) GetReport(id string) (model.ReportArtifact, json.RawMessage, error) {
	artifact, reportJSON, err := s.artifactRepo.GetByID(id)
	if err != nil {
		return model.ReportArtifact{}, nil, err
	}
	return artifact, reportJSON, nil
}

// ReportMarkdown renders one artifact's report as Markdown. The stored
// JSON is the source of truth; rendering from it keeps the endpoint
// serving even when the file on disk has been rotated away.
func (s *ReportService) ReportMarkdown(id string) (model.ReportArtifact, []byte, error) {
	artifact, reportJSON, err := s.artifactRepo.GetByID(id)
	if err != nil {
		return model.ReportArtifact{}, nil, err
	}

	var ranked model.RankedReport
	if err := json.Unmarshal(reportJSON, &ranked); err != nil {
		return model.ReportArtifact{}, nil, fmt.Errorf("failed to decode stored report: %w", err)
	}
	return artifact, report.Markdown(&ranked), nil
}

// Snapshot returns one page of a quarter's persisted snapshot plus the
// total row count.
func (s *ReportService) Snapshot(quarter model.Quarter, limit, offset int) ([]model.SnapshotSecurityRow, int, error) {
	return s.snapshotRepo.ListByQuarter(quarter, limit, offset)
}

// SnapshotSecurity returns one security's snapshot row including its
// holder roster.
func (s *ReportService) SnapshotSecurity(quarter model.Quarter, cusip string) (model.SnapshotSecurityRow, error) {
	return s.snapshotRepo.GetSecurity(quarter, cusip)
}

// NetAdditions returns a quarter's net-addition records, strongest net
// adds first.
func (s *ReportService) NetAdditions(quarter model.Quarter) ([]model.NetAdditionRecord, error) {
	return s.netAddRepo.ListByQuarter(quarter)
}

// Coverage returns the identity-resolution coverage and diagnostics of the
// latest completed run for the quarter.
func (s *ReportService) Coverage(quarter model.Quarter) (model.CoverageSummary, model.DiagnosticCounts, error) {
	run, err := s.runRepo.LatestCompleted(quarter)
	if err != nil {
		return model.CoverageSummary{}, model.DiagnosticCounts{}, err
	}
	if run.Coverage == nil {
		// Completed runs always carry coverage; a nil here means the row
		// predates the summary being stored.
		return model.CoverageSummary{Quarter: quarter}, run.Diagnostics, nil
	}
	return *run.Coverage, run.Diagnostics, nil
}
