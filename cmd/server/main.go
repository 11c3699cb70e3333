package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tvandenberg/thirteenf/internal/api"
	"github.com/tvandenberg/thirteenf/internal/config"
	"github.com/tvandenberg/thirteenf/internal/database"
	"github.com/tvandenberg/thirteenf/internal/edgar"
	"github.com/tvandenberg/thirteenf/internal/figi"
	"github.com/tvandenberg/thirteenf/internal/repository"
	"github.com/tvandenberg/thirteenf/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	params, err := config.LoadParams(cfg.Engine.ParamsPath)
	if err != nil {
		log.Fatalf("Failed to load engine parameters: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Create repositories
	runRepo := repository.NewRunRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	identityRepo := repository.NewIdentityRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	filingRepo := repository.NewFilingRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	netAddRepo := repository.NewNetAdditionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Create services
	systemService := service.NewSystemService(db)
	settingsService := service.NewSettingsService(
		settingsRepo,
		cfg.Secrets.FernetKey,
		cfg.OpenFIGI.APIKey,
	)
	runService := service.NewRunService(
		db,
		runRepo,
		artifactRepo,
		identityRepo,
		holdingRepo,
		filingRepo,
		snapshotRepo,
		netAddRepo,
		cfg.Storage.ReportsDir,
	)
	reportService := service.NewReportService(
		runRepo,
		artifactRepo,
		snapshotRepo,
		netAddRepo,
	)

	figiKey, err := settingsService.OpenFIGIKey()
	if err != nil {
		log.Printf("Lookup-service key unavailable, running unkeyed: %v", err)
	}
	figiClient := figi.NewHTTPClient(figiKey)

	// EDGAR requires a User-Agent identifying the operator. Without one,
	// the API still serves stored data but cannot acquire filings, so the
	// scheduled refresh stays off.
	var edgarClient edgar.Client
	if ua := cfg.SEC.UserAgent(); ua != "" {
		edgarClient, err = edgar.NewHTTPClient(ua)
		if err != nil {
			log.Fatalf("Failed to create EDGAR client: %v", err)
		}
	}

	identityService := service.NewIdentityService(
		identityRepo,
		holdingRepo,
		edgarClient,
		figiClient,
	)
	ingestService := service.NewIngestService(
		filingRepo,
		holdingRepo,
		edgarClient,
		db,
		cfg.Storage.DataDir,
	)

	if cfg.Refresh.Schedule != "" {
		if edgarClient == nil {
			log.Fatalf("REFRESH_SCHEDULE requires SEC_USER_NAME and SEC_USER_EMAIL for EDGAR access")
		}
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.Refresh.Schedule, func() {
			refresh(ingestService, identityService, runService, params)
		})
		if err != nil {
			log.Fatalf("Invalid REFRESH_SCHEDULE %q: %v", cfg.Refresh.Schedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.Printf("Scheduled refresh registered: %s", cfg.Refresh.Schedule)
	}

	// Create router
	router := api.NewRouter(
		systemService,
		runService,
		reportService,
		identityService,
		settingsService,
		params,
		cfg,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// refresh is one full scheduled pass: acquire the target quarter, resolve
// new CUSIPs, refresh shares figures, and run the engine. A stage failure
// abandons the pass; the next tick starts over from the cache.
func refresh(
	ingestService *service.IngestService,
	identityService *service.IdentityService,
	runService *service.RunService,
	params config.Params,
) {
	ctx := context.Background()

	quarter, err := params.TargetQuarter(time.Now().UTC())
	if err != nil {
		log.Printf("Scheduled refresh: %v", err)
		return
	}
	log.Printf("Scheduled refresh started for %s", quarter)

	ingested, err := ingestService.IngestQuarter(ctx, quarter)
	if err != nil {
		log.Printf("Scheduled refresh: ingest failed: %v", err)
		return
	}
	log.Printf("Ingested %s: %d filings, %d holding records", quarter, ingested.Filings, ingested.Records)

	mapped, err := identityService.MapQuarterCUSIPs(ctx, quarter)
	if err != nil {
		log.Printf("Scheduled refresh: CUSIP mapping failed: %v", err)
		return
	}
	log.Printf("Mapped CUSIPs for %s: %d requested, %d mapped, %d unresolved",
		quarter, mapped.Requested, mapped.Mapped, mapped.Unresolved)

	shares, err := identityService.RefreshShares(ctx, params.MaxDataAge())
	if err != nil {
		log.Printf("Scheduled refresh: shares refresh failed: %v", err)
		return
	}
	log.Printf("Refreshed shares: %d stored, %d rejected", shares.SharesStored, shares.RejectedFigures)

	run, err := runService.Run(params)
	if err != nil {
		log.Printf("Scheduled refresh: run failed: %v", err)
		return
	}
	log.Printf("Run %s completed for %s", run.ID, run.RequestedQuarter)
}
