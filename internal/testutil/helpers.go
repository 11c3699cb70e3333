package testutil

import (
	"database/sql"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/tvandenberg/thirteenf/internal/config"
	"github.com/tvandenberg/thirteenf/internal/edgar"
	"github.com/tvandenberg/thirteenf/internal/figi"
	"github.com/tvandenberg/thirteenf/internal/repository"
	"github.com/tvandenberg/thirteenf/internal/service"
)

// TestFernetKey is a fixed base64url fernet key for settings tests. It is
// the example key from the fernet spec and must never leave test code.
const TestFernetKey = "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4="

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}

func NewTestSettingsService(t *testing.T, db *sql.DB) *service.SettingsService {
	t.Helper()

	settingsRepo := repository.NewSettingsRepository(db)

	return service.NewSettingsService(settingsRepo, TestFernetKey, "")
}

// NewTestSettingsServiceWithEnvKey creates a SettingsService whose
// environment-supplied lookup key takes precedence over the stored one.
func NewTestSettingsServiceWithEnvKey(t *testing.T, db *sql.DB, envKey string) *service.SettingsService {
	t.Helper()

	settingsRepo := repository.NewSettingsRepository(db)

	return service.NewSettingsService(settingsRepo, TestFernetKey, envKey)
}

// NewTestSettingsServiceWithoutFernetKey creates a SettingsService with no
// encryption key configured, for exercising the storage refusal path.
func NewTestSettingsServiceWithoutFernetKey(t *testing.T, db *sql.DB) *service.SettingsService {
	t.Helper()

	settingsRepo := repository.NewSettingsRepository(db)

	return service.NewSettingsService(settingsRepo, "", "")
}

func NewTestIdentityService(t *testing.T, db *sql.DB, edgarClient edgar.Client, figiClient figi.Client) *service.IdentityService {
	t.Helper()

	identityRepo := repository.NewIdentityRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)

	return service.NewIdentityService(
		identityRepo,
		holdingRepo,
		edgarClient,
		figiClient,
	)
}

func NewTestIngestService(t *testing.T, db *sql.DB, edgarClient edgar.Client) *service.IngestService {
	t.Helper()

	filingRepo := repository.NewFilingRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)

	return service.NewIngestService(
		filingRepo,
		holdingRepo,
		edgarClient,
		db,
		t.TempDir(),
	)
}

func NewTestRunService(t *testing.T, db *sql.DB) *service.RunService {
	t.Helper()

	runRepo := repository.NewRunRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	identityRepo := repository.NewIdentityRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	filingRepo := repository.NewFilingRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	netAddRepo := repository.NewNetAdditionRepository(db)

	return service.NewRunService(
		db,
		runRepo,
		artifactRepo,
		identityRepo,
		holdingRepo,
		filingRepo,
		snapshotRepo,
		netAddRepo,
		t.TempDir(),
	)
}

func NewTestReportService(t *testing.T, db *sql.DB) *service.ReportService {
	t.Helper()

	runRepo := repository.NewRunRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	netAddRepo := repository.NewNetAdditionRepository(db)

	return service.NewReportService(
		runRepo,
		artifactRepo,
		snapshotRepo,
		netAddRepo,
	)
}

// DefaultTestParams returns engine parameters with every knob at its
// shipped default, suitable for runs over builder-seeded data.
func DefaultTestParams(t *testing.T) config.Params {
	t.Helper()

	params, err := config.LoadParams("")
	if err != nil {
		t.Fatalf("failed to load default params: %v", err)
	}
	return params
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeCUSIP generates a unique nine-character CUSIP for testing.
//
// Example usage:
//
//	cusip := testutil.MakeCUSIP()
//	// Returns: "TST4F7Q2M"
func MakeCUSIP() string {
	return "TST" + randomAlphanumeric(6)
}

// MakeCIK generates a ten-digit zero-padded CIK string for testing.
//
// Example usage:
//
//	cik := testutil.MakeCIK()
//	// Returns: "0001234567"
func MakeCIK() string {
	//nolint:gosec // G404: Using math/rand for test data generation is acceptable
	return fmt.Sprintf("%010d", rand.Intn(9000000)+1000000)
}

// MakeAccession generates an accession number in the EDGAR format.
//
// Example usage:
//
//	accession := testutil.MakeAccession()
//	// Returns: "0001234567-25-004821"
func MakeAccession() string {
	//nolint:gosec // G404: Using math/rand for test data generation is acceptable
	return fmt.Sprintf("%010d-25-%06d", rand.Intn(9000000)+1000000, rand.Intn(999999)+1)
}

// MakeInstitutionName generates a unique filer name for testing.
//
// Example usage:
//
//	name := testutil.MakeInstitutionName("ACME Capital")
//	// Returns: "ACME Capital XYZ789"
func MakeInstitutionName(base string) string {
	if base == "" {
		base = "Institution"
	}
	return base + " " + randomAlphanumeric(6)
}

// MakeTicker generates a stock ticker symbol for testing.
//
// Example usage:
//
//	ticker := testutil.MakeTicker("AAPL")
//	// Returns: "AAPL1A2B"
func MakeTicker(base string) string {
	if base == "" {
		base = "TST"
	}
	return base + randomAlphanumeric(4)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
