package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/tvandenberg/thirteenf/internal/api/response"
)

// APIKeyMiddleware guards mutating endpoints (run triggers, settings writes)
// with a shared key supplied in the X-API-Key header. The expected key comes
// from the INTERNAL_API_KEY environment variable; if that is not set the
// middleware fails closed with a 500 rather than letting requests through.
func APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := os.Getenv("INTERNAL_API_KEY")
		if expected == "" {
			response.RespondError(w, http.StatusInternalServerError, "server misconfigured", "Authentication not loaded")
			return
		}

		provided := r.Header.Get("X-API-Key")
		if provided == "" {
			response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing API key")
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
