package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tvandenberg/thirteenf/internal/api/response"
	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/service"
)

// ReportHandler handles HTTP requests for the report artifacts and
// coverage summaries completed runs produced.
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler with the provided service dependency.
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// ReportResponse pairs a report artifact with its stored report document.
type ReportResponse struct {
	Artifact model.ReportArtifact `json:"artifact"`
	Report   json.RawMessage      `json:"report"`
}

// LatestReport handles GET requests for the newest report of a kind.
//
// Endpoint: GET /api/v1/reports/latest?kind=ownership|net_additions
// Response: 200 OK with ReportResponse
// Error: 400 Bad Request if kind is missing or unknown
// Error: 404 Not Found if no report of that kind exists yet
// Error: 500 Internal Server Error if retrieval fails
func (h *ReportHandler) LatestReport(w http.ResponseWriter, r *http.Request) {
	kind, err := service.ParseReportKind(r.URL.Query().Get("kind"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidReportKind.Error(), err.Error())
		return
	}

	artifact, reportJSON, err := h.reportService.LatestReport(kind)
	if err != nil {
		if errors.Is(err, apperrors.ErrReportNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrReportNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve report", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, ReportResponse{Artifact: artifact, Report: reportJSON})
}

// GetReport handles GET requests to retrieve a single report by artifact ID.
//
// Endpoint: GET /api/v1/reports/{uuid}
// Response: 200 OK with ReportResponse
// Error: 400 Bad Request if artifact ID is invalid (validated by middleware)
// Error: 404 Not Found if report not found
// Error: 500 Internal Server Error if retrieval fails
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	artifactID := chi.URLParam(r, "uuid")

	artifact, reportJSON, err := h.reportService.GetReport(artifactID)
	if err != nil {
		if errors.Is(err, apperrors.ErrReportNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrReportNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve report", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, ReportResponse{Artifact: artifact, Report: reportJSON})
}

// ReportMarkdown handles GET requests for the Markdown rendering of a
// report, rebuilt from the stored report document.
//
// Endpoint: GET /api/v1/reports/{uuid}/markdown
// Response: 200 OK, Content-Type text/markdown
// Error: 400 Bad Request if artifact ID is invalid (validated by middleware)
// Error: 404 Not Found if report not found
// Error: 500 Internal Server Error if rendering fails
func (h *ReportHandler) ReportMarkdown(w http.ResponseWriter, r *http.Request) {
	artifactID := chi.URLParam(r, "uuid")

	_, markdown, err := h.reportService.ReportMarkdown(artifactID)
	if err != nil {
		if errors.Is(err, apperrors.ErrReportNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrReportNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to render report", err.Error())
		return
	}

	response.RespondMarkdown(w, http.StatusOK, markdown)
}

// CoverageResponse carries the identity-resolution coverage and the
// diagnostic counts of the latest completed run for a quarter.
type CoverageResponse struct {
	Coverage    model.CoverageSummary  `json:"coverage"`
	Diagnostics model.DiagnosticCounts `json:"diagnostics"`
}

// Coverage handles GET requests for a quarter's coverage summary.
//
// Endpoint: GET /api/v1/coverage/{quarter}
// Response: 200 OK with CoverageResponse
// Error: 400 Bad Request if quarter is invalid (validated by middleware)
// Error: 404 Not Found if the quarter has no completed run
// Error: 500 Internal Server Error if retrieval fails
func (h *ReportHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	quarter, err := model.ParseQuarter(chi.URLParam(r, "quarter"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidQuarter.Error(), err.Error())
		return
	}

	coverage, diagnostics, err := h.reportService.Coverage(quarter)
	if err != nil {
		if errors.Is(err, apperrors.ErrRunNotFound) {
			response.RespondError(w, http.StatusNotFound, "no completed run for quarter", err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve coverage", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, CoverageResponse{Coverage: coverage, Diagnostics: diagnostics})
}
