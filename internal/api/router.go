package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tvandenberg/thirteenf/internal/api/handlers"
	custommiddleware "github.com/tvandenberg/thirteenf/internal/api/middleware"
	"github.com/tvandenberg/thirteenf/internal/config"
	"github.com/tvandenberg/thirteenf/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	runService *service.RunService,
	reportService *service.ReportService,
	identityService *service.IdentityService,
	settingsService *service.SettingsService,
	params config.Params,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	systemHandler := handlers.NewSystemHandler(systemService)
	runHandler := handlers.NewRunHandler(runService, params)
	reportHandler := handlers.NewReportHandler(reportService)
	snapshotHandler := handlers.NewSnapshotHandler(reportService)
	netAddHandler := handlers.NewNetAdditionHandler(reportService)
	identityHandler := handlers.NewIdentityHandler(identityService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", systemHandler.Health)

		r.Route("/system", func(r chi.Router) {
			r.Get("/stats", systemHandler.Stats)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", runHandler.ListRuns)
			r.With(custommiddleware.APIKeyMiddleware).Post("/", runHandler.TriggerRun)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", runHandler.GetRun)
				r.Get("/artifacts", runHandler.RunArtifacts)
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/latest", reportHandler.LatestReport)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", reportHandler.GetReport)
				r.Get("/markdown", reportHandler.ReportMarkdown)
			})
		})

		r.Route("/snapshots/{quarter}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateQuarterMiddleware)
			r.Get("/", snapshotHandler.Snapshot)
			r.With(custommiddleware.ValidateCUSIPMiddleware).
				Get("/securities/{cusip}", snapshotHandler.SnapshotSecurity)
		})

		r.Route("/net-additions/{quarter}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateQuarterMiddleware)
			r.Get("/", netAddHandler.NetAdditions)
		})

		r.Route("/coverage/{quarter}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateQuarterMiddleware)
			r.Get("/", reportHandler.Coverage)
		})

		r.Route("/identities/{cusip}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateCUSIPMiddleware)
			r.Get("/", identityHandler.GetIdentity)
			r.With(custommiddleware.APIKeyMiddleware).Put("/etf", identityHandler.SetETF)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Use(custommiddleware.APIKeyMiddleware)
			r.Put("/openfigi-key", settingsHandler.StoreOpenFIGIKey)
		})
	})

	return r
}
