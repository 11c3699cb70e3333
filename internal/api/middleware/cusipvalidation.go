package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tvandenberg/thirteenf/internal/api/response"
	"github.com/tvandenberg/thirteenf/internal/validation"
)

// ValidateCUSIPMiddleware validates that the cusip URL parameter normalizes
// to nine alphanumeric characters. Returns 400 Bad Request otherwise.
// Handlers still normalize the value themselves; this only rejects garbage
// before it reaches them.
func ValidateCUSIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cusip := chi.URLParam(r, "cusip")

		if cusip == "" {
			response.RespondError(w, http.StatusBadRequest, "CUSIP is required", "")
			return
		}

		if _, err := validation.NormalizeCUSIP(cusip); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid CUSIP format", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
