package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tvandenberg/thirteenf/internal/api/middleware"
)

func TestValidateUUIDMiddleware(t *testing.T) {
	t.Run("passes through generated run IDs", func(t *testing.T) {
		// Run and artifact IDs are created with uuid.NewString, so a
		// fresh one must always clear the validator.
		handlerCalled := false
		next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})

		mw := middleware.ValidateUUIDMiddleware(next)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("uuid", uuid.NewString())
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if !handlerCalled {
			t.Error("Expected next handler to be called")
		}
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})

	t.Run("rejects IDs that are not UUIDs", func(t *testing.T) {
		tests := []struct {
			name string
			id   string
		}{
			{"empty parameter", ""},
			{"arbitrary text", "latest"},
			{"truncated UUID", "550e8400-e29b-41d4-a716"},
			{"quarter label in the ID slot", "Q2-2025"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				handlerCalled := false
				next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
					handlerCalled = true
				})

				mw := middleware.ValidateUUIDMiddleware(next)

				req := httptest.NewRequest(http.MethodGet, "/test", nil)
				rctx := chi.NewRouteContext()
				rctx.URLParams.Add("uuid", tt.id)
				req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

				w := httptest.NewRecorder()
				mw.ServeHTTP(w, req)

				if handlerCalled {
					t.Error("Expected next handler NOT to be called")
				}
				if w.Code != http.StatusBadRequest {
					t.Errorf("Expected 400, got %d", w.Code)
				}
			})
		}
	})
}
