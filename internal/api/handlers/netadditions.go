package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tvandenberg/thirteenf/internal/api/response"
	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/service"
)

// NetAdditionHandler handles HTTP requests for the per-security
// net-addition records persisted by completed runs.
type NetAdditionHandler struct {
	reportService *service.ReportService
}

// NewNetAdditionHandler creates a new NetAdditionHandler with the provided service dependency.
func NewNetAdditionHandler(reportService *service.ReportService) *NetAdditionHandler {
	return &NetAdditionHandler{
		reportService: reportService,
	}
}

// NetAdditions handles GET requests for a quarter's net-addition records,
// strongest net adds first.
//
// Endpoint: GET /api/v1/net-additions/{quarter}
// Response: 200 OK with array of NetAdditionRecord
// Error: 400 Bad Request if quarter is invalid (validated by middleware)
// Error: 404 Not Found if the quarter has no completed run
// Error: 500 Internal Server Error if retrieval fails
func (h *NetAdditionHandler) NetAdditions(w http.ResponseWriter, r *http.Request) {
	quarter, err := model.ParseQuarter(chi.URLParam(r, "quarter"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidQuarter.Error(), err.Error())
		return
	}

	records, err := h.reportService.NetAdditions(quarter)
	if err != nil {
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrSnapshotNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve net additions", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, records)
}
