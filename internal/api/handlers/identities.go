package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tvandenberg/thirteenf/internal/api/request"
	"github.com/tvandenberg/thirteenf/internal/api/response"
	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/service"
)

// IdentityHandler handles HTTP requests for security identity mappings.
type IdentityHandler struct {
	identityService *service.IdentityService
}

// NewIdentityHandler creates a new IdentityHandler with the provided service dependency.
func NewIdentityHandler(identityService *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{
		identityService: identityService,
	}
}

// GetIdentity handles GET requests to retrieve a security identity by CUSIP.
//
// Endpoint: GET /api/v1/identities/{cusip}
// Response: 200 OK with SecurityIdentity
// Error: 400 Bad Request if CUSIP is invalid (validated by middleware)
// Error: 404 Not Found if no identity exists for the CUSIP
// Error: 500 Internal Server Error if retrieval fails
func (h *IdentityHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	cusip := chi.URLParam(r, "cusip")

	identity, err := h.identityService.GetIdentity(cusip)
	if err != nil {
		if errors.Is(err, apperrors.ErrIdentityNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrIdentityNotFound.Error(), err.Error())
			return
		}
		if errors.Is(err, apperrors.ErrInvalidCUSIP) {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidCUSIP.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve identity", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, identity)
}

// SetETF handles PUT requests to flag or unflag a security as an ETF.
// The flag feeds the ETF-exclusion ranking filter on subsequent runs.
//
// Endpoint: PUT /api/v1/identities/{cusip}/etf
// Request Body: SetETFRequest (is_etf, required)
// Response: 200 OK with the updated SecurityIdentity
// Error: 400 Bad Request if CUSIP is invalid (validated by middleware) or body is invalid
// Error: 404 Not Found if no identity exists for the CUSIP
// Error: 500 Internal Server Error if the update fails
func (h *IdentityHandler) SetETF(w http.ResponseWriter, r *http.Request) {
	cusip := chi.URLParam(r, "cusip")

	req, err := parseJSON[request.SetETFRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.IsETF == nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", "is_etf is required")
		return
	}

	if err := h.identityService.SetETF(cusip, *req.IsETF); err != nil {
		if errors.Is(err, apperrors.ErrIdentityNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrIdentityNotFound.Error(), err.Error())
			return
		}
		if errors.Is(err, apperrors.ErrInvalidCUSIP) {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidCUSIP.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to update ETF flag", err.Error())
		return
	}

	identity, err := h.identityService.GetIdentity(cusip)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve identity", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, identity)
}
