package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tvandenberg/thirteenf/internal/api/request"
	"github.com/tvandenberg/thirteenf/internal/api/response"
	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/config"
	"github.com/tvandenberg/thirteenf/internal/service"
	"github.com/tvandenberg/thirteenf/internal/validation"
)

// RunHandler handles HTTP requests for reconciliation runs.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the runService.
type RunHandler struct {
	runService *service.RunService
	params     config.Params
}

// NewRunHandler creates a new RunHandler with the provided service
// dependency and the engine parameters applied to triggered runs.
func NewRunHandler(runService *service.RunService, params config.Params) *RunHandler {
	return &RunHandler{
		runService: runService,
		params:     params,
	}
}

// ListRuns handles GET requests to list runs, most recent first.
//
// Endpoint: GET /api/v1/runs?limit=
// Response: 200 OK with array of Run
// Error: 400 Bad Request if limit is invalid
// Error: 500 Internal Server Error if retrieval fails
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := request.ParseRunLimit(r.URL.Query().Get("limit"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid limit", err.Error())
		return
	}

	runs, err := h.runService.ListRuns(limit)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, runs)
}

// TriggerRun handles POST requests to start a reconciliation run in the
// background. The optional body may pin the analysis quarter; without it
// the run targets the latest completed quarter.
//
// Endpoint: POST /api/v1/runs
// Request Body: TriggerRunRequest (quarter, optional)
// Response: 202 Accepted with the running Run
// Error: 400 Bad Request if the body or quarter is invalid
// Error: 409 Conflict if a run is already active
// Error: 500 Internal Server Error if the run cannot be started
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	params := h.params

	if r.ContentLength != 0 {
		req, err := parseJSON[request.TriggerRunRequest](r)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		if req.Quarter != "" {
			if err := validation.ValidateQuarter(req.Quarter); err != nil {
				response.RespondError(w, http.StatusBadRequest, "invalid quarter format", err.Error())
				return
			}
			params.Quarter = req.Quarter
		}
	}

	run, err := h.runService.Trigger(params)
	if err != nil {
		if errors.Is(err, apperrors.ErrRunActive) {
			response.RespondError(w, http.StatusConflict, apperrors.ErrRunActive.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to start run", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusAccepted, run)
}

// GetRun handles GET requests to retrieve a single run by ID.
//
// Endpoint: GET /api/v1/runs/{uuid}
// Response: 200 OK with Run
// Error: 400 Bad Request if run ID is invalid (validated by middleware)
// Error: 404 Not Found if run not found
// Error: 500 Internal Server Error if retrieval fails
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "uuid")

	run, err := h.runService.GetRun(runID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRunNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrRunNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve run", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, run)
}

// RunArtifacts handles GET requests to list the report artifacts a run
// produced.
//
// Endpoint: GET /api/v1/runs/{uuid}/artifacts
// Response: 200 OK with array of ReportArtifact
// Error: 400 Bad Request if run ID is invalid (validated by middleware)
// Error: 404 Not Found if run not found
// Error: 500 Internal Server Error if retrieval fails
func (h *RunHandler) RunArtifacts(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "uuid")

	artifacts, err := h.runService.RunArtifacts(runID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRunNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrRunNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve run artifacts", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, artifacts)
}
