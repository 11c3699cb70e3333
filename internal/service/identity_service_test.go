package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tvandenberg/thirteenf/internal/edgar"
	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/testutil"
)

// TestIdentityService_MapQuarterCUSIPs tests the identifier-lookup pass.
//
// WHY: The lookup service is rate-limited and quota-bound, so the pass must
// only request CUSIPs that were never tried: misses are negative-cached as
// unresolved rows and not requested again.
func TestIdentityService_MapQuarterCUSIPs(t *testing.T) {
	t.Run("maps unknown CUSIPs and negative-caches misses", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		quarter := model.MustParseQuarter("Q2-2025")

		// Already mapped; must not be requested again.
		testutil.CreateIdentity(t, db, "037833100", "AAPL")
		testutil.NewHolding(quarter).WithCUSIP("037833100").Build(t, db)
		testutil.NewHolding(quarter).WithCUSIP("594918104").Build(t, db)
		testutil.NewHolding(quarter).WithCUSIP("88160R101").Build(t, db)

		figiMock := testutil.NewMockFigiClient().
			WithMapping("594918104", "MSFT", "MICROSOFT CORP")
		svc := testutil.NewTestIdentityService(t, db, testutil.NewMockEdgarClient(), figiMock)

		// Execute
		stats, err := svc.MapQuarterCUSIPs(context.Background(), quarter)

		// Assert
		if err != nil {
			t.Fatalf("MapQuarterCUSIPs() returned unexpected error: %v", err)
		}
		if stats.Requested != 2 {
			t.Errorf("Expected 2 CUSIPs requested, got %d", stats.Requested)
		}
		if stats.Mapped != 1 || stats.Unresolved != 1 {
			t.Errorf("Expected 1 mapped and 1 unresolved, got %d/%d", stats.Mapped, stats.Unresolved)
		}

		mapped, err := svc.GetIdentity("594918104")
		if err != nil {
			t.Fatalf("GetIdentity() returned unexpected error: %v", err)
		}
		if mapped.Ticker == nil || *mapped.Ticker != "MSFT" {
			t.Errorf("Expected ticker MSFT, got %v", mapped.Ticker)
		}
		if mapped.MappingSource != model.SourceLookupService {
			t.Errorf("Expected lookup-service provenance, got %s", mapped.MappingSource)
		}

		missed, err := svc.GetIdentity("88160R101")
		if err != nil {
			t.Fatalf("GetIdentity() returned unexpected error: %v", err)
		}
		if missed.MappingSource != model.SourceUnresolved || missed.Ticker != nil {
			t.Errorf("Expected an unresolved row for the miss, got %s/%v", missed.MappingSource, missed.Ticker)
		}

		// A second pass finds nothing to request and spends no quota.
		again, err := svc.MapQuarterCUSIPs(context.Background(), quarter)
		if err != nil {
			t.Fatalf("Second MapQuarterCUSIPs() returned unexpected error: %v", err)
		}
		if again.Requested != 0 {
			t.Errorf("Expected 0 CUSIPs requested on re-run, got %d", again.Requested)
		}
		if figiMock.MapCalls != 1 {
			t.Errorf("Expected 1 lookup call in total, got %d", figiMock.MapCalls)
		}
	})

	t.Run("propagates lookup failures", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		quarter := model.MustParseQuarter("Q2-2025")
		testutil.NewHolding(quarter).WithCUSIP("594918104").Build(t, db)

		figiMock := testutil.NewMockFigiClient().WithError(errors.New("lookup unavailable"))
		svc := testutil.NewTestIdentityService(t, db, testutil.NewMockEdgarClient(), figiMock)

		// Execute
		_, err := svc.MapQuarterCUSIPs(context.Background(), quarter)

		// Assert
		if err == nil {
			t.Fatal("Expected error from a failing lookup, got nil")
		}
	})
}

// TestIdentityService_RefreshTickers tests the directory reconciliation pass.
func TestIdentityService_RefreshTickers(t *testing.T) {
	t.Run("refreshes names and upgrades lookup-service mappings", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)

		testutil.NewIdentity().WithCUSIP("037833100").WithTicker("AAPL").
			WithName("APPLE (LOOKUP)").WithSource(model.SourceLookupService).Build(t, db)
		testutil.NewIdentity().WithCUSIP("594918104").WithTicker("MSFT").
			WithName("Microsoft Corp").Build(t, db)
		testutil.NewIdentity().WithCUSIP("88160R101").WithTicker("ZZZZ").
			WithSource(model.SourceLookupService).Build(t, db)
		testutil.CreateUnresolvedIdentity(t, db, "464287200")

		edgarMock := testutil.NewMockEdgarClient().WithTickers(
			edgar.TickerEntry{CIK: "0000320193", Ticker: "AAPL", Title: "Apple Inc."},
			edgar.TickerEntry{CIK: "0000789019", Ticker: "MSFT", Title: "Microsoft Corp"},
		)
		svc := testutil.NewTestIdentityService(t, db, edgarMock, testutil.NewMockFigiClient())

		// Execute
		stats, err := svc.RefreshTickers(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("RefreshTickers() returned unexpected error: %v", err)
		}
		if stats.DirectoryEntries != 2 {
			t.Errorf("Expected 2 directory entries, got %d", stats.DirectoryEntries)
		}
		if stats.Checked != 3 {
			t.Errorf("Expected 3 resolved identities checked, got %d", stats.Checked)
		}
		if stats.Upgraded != 1 {
			t.Errorf("Expected 1 upgrade, got %d", stats.Upgraded)
		}
		if stats.Misses != 1 {
			t.Errorf("Expected 1 directory miss, got %d", stats.Misses)
		}

		upgraded, err := svc.GetIdentity("037833100")
		if err != nil {
			t.Fatalf("GetIdentity() returned unexpected error: %v", err)
		}
		if upgraded.MappingSource != model.SourceDirectory {
			t.Errorf("Expected directory provenance after upgrade, got %s", upgraded.MappingSource)
		}
		if upgraded.Name != "Apple Inc." {
			t.Errorf("Expected the directory title, got %q", upgraded.Name)
		}

		// A mapping already at directory provenance is left alone.
		untouched, err := svc.GetIdentity("594918104")
		if err != nil {
			t.Fatalf("GetIdentity() returned unexpected error: %v", err)
		}
		if untouched.MappingSource != model.SourceDirectory || untouched.Name != "Microsoft Corp" {
			t.Errorf("Expected the directory mapping untouched, got %s/%q", untouched.MappingSource, untouched.Name)
		}
	})
}

// TestIdentityService_RefreshShares tests the shares-outstanding refresh.
//
// WHY: Percentage-of-float rankings are only as good as the float figures.
// The refresh must store validated figures, reject placeholders and stale
// data, and survive filers that publish no facts at all.
func TestIdentityService_RefreshShares(t *testing.T) {
	maxAge := 3 * 365 * 24 * time.Hour

	t.Run("stores validated figures and upgrades provenance", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.NewIdentity().WithCUSIP("037833100").WithTicker("AAPL").
			WithSource(model.SourceLookupService).Build(t, db)

		asOf := time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
		edgarMock := testutil.NewMockEdgarClient().
			WithTickers(edgar.TickerEntry{CIK: "0000320193", Ticker: "AAPL", Title: "Apple Inc."}).
			WithFacts("0000320193", testutil.CreateCompanyFacts(t, 320193, "Apple Inc.", 15_000_000_000, asOf))
		svc := testutil.NewTestIdentityService(t, db, edgarMock, testutil.NewMockFigiClient())

		// Execute
		stats, err := svc.RefreshShares(context.Background(), maxAge)

		// Assert
		if err != nil {
			t.Fatalf("RefreshShares() returned unexpected error: %v", err)
		}
		if stats.TickersChecked != 1 {
			t.Errorf("Expected 1 ticker checked, got %d", stats.TickersChecked)
		}
		if stats.SharesStored != 1 {
			t.Errorf("Expected 1 figure stored, got %d", stats.SharesStored)
		}
		if stats.DirectoryUpgrades != 1 {
			t.Errorf("Expected 1 provenance upgrade, got %d", stats.DirectoryUpgrades)
		}

		identity, err := svc.GetIdentity("037833100")
		if err != nil {
			t.Fatalf("GetIdentity() returned unexpected error: %v", err)
		}
		if identity.SharesOutstanding == nil || *identity.SharesOutstanding != 15_000_000_000 {
			t.Errorf("Expected 15000000000 shares outstanding, got %v", identity.SharesOutstanding)
		}
		if identity.MappingSource != model.SourceDirectory {
			t.Errorf("Expected directory provenance after the pass, got %s", identity.MappingSource)
		}
	})

	t.Run("rejects placeholder and stale figures", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.NewIdentity().WithCUSIP("111111111").WithTicker("PLCH").Build(t, db)
		testutil.NewIdentity().WithCUSIP("222222222").WithTicker("STAL").Build(t, db)

		recent := time.Now().UTC().AddDate(0, 0, -10).Format("2006-01-02")
		edgarMock := testutil.NewMockEdgarClient().
			WithTickers(
				edgar.TickerEntry{CIK: "0000000001", Ticker: "PLCH", Title: "Placeholder Corp"},
				edgar.TickerEntry{CIK: "0000000002", Ticker: "STAL", Title: "Stale Corp"},
			).
			WithFacts("0000000001", testutil.CreateCompanyFacts(t, 1, "Placeholder Corp", 1, recent)).
			WithFacts("0000000002", testutil.CreateCompanyFacts(t, 2, "Stale Corp", 500_000_000, "2019-12-31"))
		svc := testutil.NewTestIdentityService(t, db, edgarMock, testutil.NewMockFigiClient())

		// Execute
		stats, err := svc.RefreshShares(context.Background(), maxAge)

		// Assert
		if err != nil {
			t.Fatalf("RefreshShares() returned unexpected error: %v", err)
		}
		if stats.RejectedFigures != 2 {
			t.Errorf("Expected 2 rejected figures, got %d", stats.RejectedFigures)
		}
		if stats.SharesStored != 0 {
			t.Errorf("Expected no figures stored, got %d", stats.SharesStored)
		}

		for _, cusip := range []string{"111111111", "222222222"} {
			identity, err := svc.GetIdentity(cusip)
			if err != nil {
				t.Fatalf("GetIdentity(%s) returned unexpected error: %v", cusip, err)
			}
			if identity.SharesOutstanding != nil {
				t.Errorf("Expected no stored figure for %s, got %d", cusip, *identity.SharesOutstanding)
			}
		}
	})

	t.Run("tolerates missing facts documents", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.NewIdentity().WithCUSIP("037833100").WithTicker("AAPL").Build(t, db)

		// Directory hit, but no facts registered for the CIK.
		edgarMock := testutil.NewMockEdgarClient().
			WithTickers(edgar.TickerEntry{CIK: "0000320193", Ticker: "AAPL", Title: "Apple Inc."})
		svc := testutil.NewTestIdentityService(t, db, edgarMock, testutil.NewMockFigiClient())

		// Execute
		stats, err := svc.RefreshShares(context.Background(), maxAge)

		// Assert
		if err != nil {
			t.Fatalf("RefreshShares() returned unexpected error: %v", err)
		}
		if stats.FactsErrors != 1 {
			t.Errorf("Expected 1 facts error, got %d", stats.FactsErrors)
		}
		if stats.SharesStored != 0 {
			t.Errorf("Expected no figures stored, got %d", stats.SharesStored)
		}
	})
}

// TestIdentityService_ImportManualMappings tests the operator import path.
func TestIdentityService_ImportManualMappings(t *testing.T) {
	t.Run("imports operator mappings over automated ones", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.NewIdentity().WithCUSIP("88160R101").WithTicker("TSLA-OLD").
			WithName("TESLA (LOOKUP)").WithSource(model.SourceLookupService).Build(t, db)
		svc := testutil.NewTestIdentityService(t, db, testutil.NewMockEdgarClient(), testutil.NewMockFigiClient())

		path := filepath.Join(t.TempDir(), "manual.json")
		payload := []byte(`{"88160r101": "TSLA", "02079K305": "GOOGL"}`)
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			t.Fatalf("Failed to write manual mappings file: %v", err)
		}

		// Execute
		count, err := svc.ImportManualMappings(path)

		// Assert
		if err != nil {
			t.Fatalf("ImportManualMappings() returned unexpected error: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2 mappings imported, got %d", count)
		}

		overridden, err := svc.GetIdentity("88160R101")
		if err != nil {
			t.Fatalf("GetIdentity() returned unexpected error: %v", err)
		}
		if overridden.Ticker == nil || *overridden.Ticker != "TSLA" {
			t.Errorf("Expected the manual ticker TSLA, got %v", overridden.Ticker)
		}
		if overridden.MappingSource != model.SourceManual {
			t.Errorf("Expected manual provenance, got %s", overridden.MappingSource)
		}
		// The import carries no issuer name; the existing one survives.
		if overridden.Name != "TESLA (LOOKUP)" {
			t.Errorf("Expected the stored name preserved, got %q", overridden.Name)
		}

		created, err := svc.GetIdentity("02079K305")
		if err != nil {
			t.Fatalf("GetIdentity() returned unexpected error: %v", err)
		}
		if created.Ticker == nil || *created.Ticker != "GOOGL" {
			t.Errorf("Expected ticker GOOGL, got %v", created.Ticker)
		}
		if created.MappingSource != model.SourceManual {
			t.Errorf("Expected manual provenance, got %s", created.MappingSource)
		}
	})

	t.Run("rejects malformed CUSIPs", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestIdentityService(t, db, testutil.NewMockEdgarClient(), testutil.NewMockFigiClient())

		path := filepath.Join(t.TempDir(), "manual.json")
		if err := os.WriteFile(path, []byte(`{"BAD": "TSLA"}`), 0o644); err != nil {
			t.Fatalf("Failed to write manual mappings file: %v", err)
		}

		// Execute
		count, err := svc.ImportManualMappings(path)

		// Assert
		if err == nil {
			t.Fatal("Expected error for a malformed CUSIP, got nil")
		}
		if count != 0 {
			t.Errorf("Expected nothing imported, got %d", count)
		}
	})
}

// TestIdentityService_ImportETFList tests the ETF classification import.
func TestIdentityService_ImportETFList(t *testing.T) {
	t.Run("flags listed securities, creating rows when missing", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.CreateIdentity(t, db, "78462F103", "SPY")
		svc := testutil.NewTestIdentityService(t, db, testutil.NewMockEdgarClient(), testutil.NewMockFigiClient())

		path := filepath.Join(t.TempDir(), "etfs.json")
		if err := os.WriteFile(path, []byte(`["78462f103", "464287200"]`), 0o644); err != nil {
			t.Fatalf("Failed to write ETF list file: %v", err)
		}

		// Execute
		count, err := svc.ImportETFList(path)

		// Assert
		if err != nil {
			t.Fatalf("ImportETFList() returned unexpected error: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2 securities flagged, got %d", count)
		}

		existing, err := svc.GetIdentity("78462F103")
		if err != nil {
			t.Fatalf("GetIdentity() returned unexpected error: %v", err)
		}
		if !existing.IsETF {
			t.Error("Expected the existing identity flagged as an ETF")
		}
		if existing.Ticker == nil {
			t.Error("Expected the ETF flag to leave the mapping intact")
		}

		created, err := svc.GetIdentity("464287200")
		if err != nil {
			t.Fatalf("GetIdentity() returned unexpected error: %v", err)
		}
		if !created.IsETF || created.MappingSource != model.SourceUnresolved {
			t.Errorf("Expected a flagged unresolved row, got etf=%v source=%s", created.IsETF, created.MappingSource)
		}
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestIdentityService(t, db, testutil.NewMockEdgarClient(), testutil.NewMockFigiClient())

		path := filepath.Join(t.TempDir(), "etfs.json")
		if err := os.WriteFile(path, []byte(`["SHORT"]`), 0o644); err != nil {
			t.Fatalf("Failed to write ETF list file: %v", err)
		}

		// Execute
		count, err := svc.ImportETFList(path)

		// Assert
		if err == nil {
			t.Fatal("Expected error for a malformed entry, got nil")
		}
		if count != 0 {
			t.Errorf("Expected nothing flagged, got %d", count)
		}
	})
}
