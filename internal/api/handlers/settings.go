package handlers

import (
	"net/http"

	"github.com/tvandenberg/thirteenf/internal/api/request"
	"github.com/tvandenberg/thirteenf/internal/api/response"
	"github.com/tvandenberg/thirteenf/internal/service"
)

// SettingsHandler handles HTTP requests for operator-managed settings.
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler with the provided service dependency.
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
	}
}

// StoreOpenFIGIKey handles PUT requests to store the lookup-service API
// key, encrypted at rest. The key raises OpenFIGI rate limits on later
// mapping runs.
//
// Endpoint: PUT /api/v1/settings/openfigi-key
// Request Body: OpenFIGIKeyRequest (key, required)
// Response: 204 No Content
// Error: 400 Bad Request if the body is invalid or the key is empty
// Error: 500 Internal Server Error if encryption or storage fails
func (h *SettingsHandler) StoreOpenFIGIKey(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.OpenFIGIKeyRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Key == "" {
		response.RespondError(w, http.StatusBadRequest, "validation failed", "key is required")
		return
	}

	if err := h.settingsService.StoreOpenFIGIKey(req.Key); err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to store key", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
