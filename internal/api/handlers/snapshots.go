package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tvandenberg/thirteenf/internal/api/request"
	"github.com/tvandenberg/thirteenf/internal/api/response"
	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/service"
	"github.com/tvandenberg/thirteenf/internal/validation"
)

// SnapshotHandler handles HTTP requests for the full unranked quarter
// snapshots persisted by completed runs.
type SnapshotHandler struct {
	reportService *service.ReportService
}

// NewSnapshotHandler creates a new SnapshotHandler with the provided service dependency.
func NewSnapshotHandler(reportService *service.ReportService) *SnapshotHandler {
	return &SnapshotHandler{
		reportService: reportService,
	}
}

// SnapshotResponse is one page of a quarter's snapshot rows plus paging
// context and the total row count.
type SnapshotResponse struct {
	Quarter    model.Quarter               `json:"quarter"`
	Total      int                         `json:"total"`
	Limit      int                         `json:"limit"`
	Offset     int                         `json:"offset"`
	Securities []model.SnapshotSecurityRow `json:"securities"`
}

// Snapshot handles GET requests for one page of a quarter's snapshot,
// ordered by total value descending.
//
// Endpoint: GET /api/v1/snapshots/{quarter}?limit=&offset=
// Response: 200 OK with SnapshotResponse
// Error: 400 Bad Request if quarter or paging parameters are invalid
// Error: 404 Not Found if the quarter has no completed run
// Error: 500 Internal Server Error if retrieval fails
func (h *SnapshotHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	quarter, err := model.ParseQuarter(chi.URLParam(r, "quarter"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidQuarter.Error(), err.Error())
		return
	}

	paging, err := request.ParsePaging(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid paging parameters", err.Error())
		return
	}

	rows, total, err := h.reportService.Snapshot(quarter, paging.Limit, paging.Offset)
	if err != nil {
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrSnapshotNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve snapshot", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, SnapshotResponse{
		Quarter:    quarter,
		Total:      total,
		Limit:      paging.Limit,
		Offset:     paging.Offset,
		Securities: rows,
	})
}

// SnapshotSecurity handles GET requests for one security's snapshot row
// including its full holder roster.
//
// Endpoint: GET /api/v1/snapshots/{quarter}/securities/{cusip}
// Response: 200 OK with SnapshotSecurityRow
// Error: 400 Bad Request if quarter or CUSIP is invalid (validated by middleware)
// Error: 404 Not Found if the quarter has no completed run or the security is absent
// Error: 500 Internal Server Error if retrieval fails
func (h *SnapshotHandler) SnapshotSecurity(w http.ResponseWriter, r *http.Request) {
	quarter, err := model.ParseQuarter(chi.URLParam(r, "quarter"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidQuarter.Error(), err.Error())
		return
	}

	cusip, err := validation.NormalizeCUSIP(chi.URLParam(r, "cusip"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidCUSIP.Error(), err.Error())
		return
	}

	row, err := h.reportService.SnapshotSecurity(quarter, cusip)
	if err != nil {
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrSnapshotNotFound.Error(), err.Error())
			return
		}
		if errors.Is(err, apperrors.ErrSecurityNotInSnapshot) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrSecurityNotInSnapshot.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve security", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, row)
}
