package handlers

import (
	"net/http"

	"github.com/tvandenberg/thirteenf/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Health checks the health of the system and database connectivity
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.systemService.CheckHealth(); err != nil {
		response := HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		}
		respondJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response := HealthResponse{
		Status:   "healthy",
		Database: "connected",
	}
	respondJSON(w, http.StatusOK, response)
}

// Stats handles GET requests for store-wide row counts: identities,
// filings, holding records, runs, and artifacts.
//
// Endpoint: GET /api/v1/system/stats
// Response: 200 OK with SystemStats
// Error: 500 Internal Server Error if a count query fails
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.systemService.Stats()
	if err != nil {
		errorResponse := map[string]string{
			"error":  "failed to get system stats",
			"detail": err.Error(),
		}
		respondJSON(w, http.StatusInternalServerError, errorResponse)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
