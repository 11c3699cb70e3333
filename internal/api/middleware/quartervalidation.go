package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tvandenberg/thirteenf/internal/api/response"
	"github.com/tvandenberg/thirteenf/internal/validation"
)

// ValidateQuarterMiddleware validates that the quarter URL parameter parses
// as YYYYQn. Returns 400 Bad Request on a missing or malformed quarter so
// handlers below it can trust the value.
func ValidateQuarterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		quarter := chi.URLParam(r, "quarter")

		if quarter == "" {
			response.RespondError(w, http.StatusBadRequest, "quarter is required", "")
			return
		}

		if err := validation.ValidateQuarter(quarter); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid quarter format", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
