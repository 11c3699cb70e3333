package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/config"
	"github.com/tvandenberg/thirteenf/internal/database"
	"github.com/tvandenberg/thirteenf/internal/edgar"
	"github.com/tvandenberg/thirteenf/internal/figi"
	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/repository"
	"github.com/tvandenberg/thirteenf/internal/service"
)

// app wires the dependencies the pipeline stages share. Stages open it
// inside Execute, so `pipeline help` never touches the database.
type app struct {
	cfg    *config.Config
	params config.Params
	db     *sql.DB

	edgarClient edgar.Client

	ingestService   *service.IngestService
	identityService *service.IdentityService
	runService      *service.RunService
	reportService   *service.ReportService
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	params, err := config.LoadParams(cfg.Engine.ParamsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load engine parameters: %w", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	runRepo := repository.NewRunRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	identityRepo := repository.NewIdentityRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	filingRepo := repository.NewFilingRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	netAddRepo := repository.NewNetAdditionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	settingsService := service.NewSettingsService(
		settingsRepo,
		cfg.Secrets.FernetKey,
		cfg.OpenFIGI.APIKey,
	)
	figiKey, err := settingsService.OpenFIGIKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: lookup-service key unavailable, running unkeyed: %v\n", err)
		figiKey = ""
	}

	// EDGAR access stays optional here: only the acquisition stages need
	// it, and they check requireEDGAR before touching the client.
	var edgarClient edgar.Client
	if ua := cfg.SEC.UserAgent(); ua != "" {
		edgarClient, err = edgar.NewHTTPClient(ua)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	a := &app{
		cfg:         cfg,
		params:      params,
		db:          db,
		edgarClient: edgarClient,
	}
	a.ingestService = service.NewIngestService(
		filingRepo,
		holdingRepo,
		edgarClient,
		db,
		cfg.Storage.DataDir,
	)
	a.identityService = service.NewIdentityService(
		identityRepo,
		holdingRepo,
		edgarClient,
		figi.NewHTTPClient(figiKey),
	)
	a.runService = service.NewRunService(
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
	a.reportService = service.NewReportService(
		runRepo,
		artifactRepo,
		snapshotRepo,
		netAddRepo,
	)
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// requireEDGAR guards the acquisition stages. Identity imports, runs, and
// report rendering work without SEC credentials.
func (a *app) requireEDGAR() error {
	if a.edgarClient == nil {
		return fmt.Errorf("%w: set SEC_USER_NAME and SEC_USER_EMAIL", apperrors.ErrUserAgentNotConfigured)
	}
	return nil
}

// resolveQuarter picks a stage's analysis quarter: the -quarter flag when
// given, else the configured target.
func (a *app) resolveQuarter(flagValue string) (model.Quarter, error) {
	if flagValue != "" {
		return model.ParseQuarter(flagValue)
	}
	return a.params.TargetQuarter(time.Now().UTC())
}
