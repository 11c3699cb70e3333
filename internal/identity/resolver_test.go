package identity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/identity"
	"github.com/tvandenberg/thirteenf/internal/model"
)

var asOf = time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)

const maxAge = 1095 * 24 * time.Hour

func strPtr(s string) *string   { return &s }
func i64Ptr(n int64) *int64     { return &n }
func datePtr(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func testIdentities() []model.SecurityIdentity {
	return []model.SecurityIdentity{
		{
			CUSIP:             "037833100",
			Ticker:            strPtr("AAPL"),
			Name:              "Apple Inc.",
			SharesOutstanding: i64Ptr(15_000_000_000),
			SharesAsOf:        datePtr("2025-06-30"),
			MappingSource:     model.SourceDirectory,
			LastUpdated:       asOf,
		},
		{
			CUSIP:             "594918104",
			Ticker:            strPtr("MSFT"),
			Name:              "Microsoft Corp",
			SharesOutstanding: i64Ptr(7_400_000_000),
			SharesAsOf:        datePtr("2021-01-15"), // stale vs 1095-day window
			MappingSource:     model.SourceLookupService,
			LastUpdated:       asOf,
		},
		{
			CUSIP:         "68389X105",
			Ticker:        strPtr("ORCL"),
			Name:          "Oracle Corp",
			MappingSource: model.SourceLookupService,
			LastUpdated:   asOf,
		},
	}
}

// TestResolverEmptyTableFatal verifies the fatal-input rule: a run must
// abort rather than resolve against nothing.
func TestResolverEmptyTableFatal(t *testing.T) {
	_, err := identity.NewResolver(nil, asOf, maxAge)
	if !errors.Is(err, apperrors.ErrEmptyIdentityTable) {
		t.Fatalf("expected ErrEmptyIdentityTable, got %v", err)
	}
}

// TestResolveOrder verifies primary-then-supplementary-then-unresolved
// resolution and that unresolved CUSIPs are retained, not dropped.
func TestResolveOrder(t *testing.T) {
	r, err := identity.NewResolver(testIdentities(), asOf, maxAge)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	t.Run("primary directory hit", func(t *testing.T) {
		id := r.Resolve("037833100")
		if id.Ticker == nil || *id.Ticker != "AAPL" {
			t.Errorf("ticker = %v, want AAPL", id.Ticker)
		}
		if id.MappingSource != model.SourceDirectory {
			t.Errorf("source = %s, want directory", id.MappingSource)
		}
		if id.SharesOutstanding == nil || *id.SharesOutstanding != 15_000_000_000 {
			t.Errorf("fresh shares figure should survive, got %v", id.SharesOutstanding)
		}
	})

	t.Run("supplementary hit", func(t *testing.T) {
		id := r.Resolve("68389X105")
		if id.Ticker == nil || *id.Ticker != "ORCL" {
			t.Errorf("ticker = %v, want ORCL", id.Ticker)
		}
		if id.MappingSource != model.SourceLookupService {
			t.Errorf("source = %s, want lookup-service", id.MappingSource)
		}
	})

	t.Run("unresolved retained under cusip", func(t *testing.T) {
		id := r.Resolve("999999999")
		if id.MappingSource != model.SourceUnresolved {
			t.Errorf("source = %s, want unresolved", id.MappingSource)
		}
		if id.CUSIP != "999999999" {
			t.Errorf("cusip = %s", id.CUSIP)
		}
		if id.Ticker != nil || id.SharesOutstanding != nil {
			t.Error("unresolved identity must carry no ticker or shares")
		}
	})
}

// TestResolveStaleShares verifies shares older than the staleness window
// are treated as absent, not returned.
func TestResolveStaleShares(t *testing.T) {
	r, err := identity.NewResolver(testIdentities(), asOf, maxAge)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	id := r.Resolve("594918104")
	if id.SharesOutstanding != nil {
		t.Errorf("stale shares should be absent, got %d", *id.SharesOutstanding)
	}
	if _, ok := r.SharesOutstanding("594918104"); ok {
		t.Error("SharesOutstanding should report unusable for stale data")
	}
	// Ticker resolution is unaffected by shares staleness.
	if id.Ticker == nil || *id.Ticker != "MSFT" {
		t.Errorf("ticker = %v, want MSFT", id.Ticker)
	}
}

// TestCoverage verifies value-weighted coverage percentages and the
// stale-shares diagnostic count.
// WHY: coverage is the run's completeness audit; with ~30-40% mapping
// coverage in practice, consumers must see how much filed value resolved.
func TestCoverage(t *testing.T) {
	r, err := identity.NewResolver(testIdentities(), asOf, maxAge)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	snap := &model.QuarterSnapshot{
		Quarter: model.MustParseQuarter("Q2-2025"),
		Securities: map[string]*model.SecurityAggregate{
			"037833100": {CUSIP: "037833100", TotalShares: 100, TotalValueMillicents: 600_000},
			"594918104": {CUSIP: "594918104", TotalShares: 100, TotalValueMillicents: 300_000},
			"999999999": {CUSIP: "999999999", TotalShares: 100, TotalValueMillicents: 100_000},
		},
	}

	cov, stale := r.Coverage(snap)

	if cov.TotalSecurities != 3 {
		t.Errorf("TotalSecurities = %d, want 3", cov.TotalSecurities)
	}
	if cov.TotalFiledValueMillicents != 1_000_000 {
		t.Errorf("TotalFiledValue = %d, want 1000000", cov.TotalFiledValueMillicents)
	}
	// AAPL and MSFT resolve to tickers: 900k of 1m filed value.
	if cov.TickerResolvedValuePct != 90.0 {
		t.Errorf("TickerResolvedValuePct = %v, want 90", cov.TickerResolvedValuePct)
	}
	if cov.TickerResolvedSecurities != 2 || cov.UnresolvedSecurities != 1 {
		t.Errorf("resolved/unresolved = %d/%d, want 2/1",
			cov.TickerResolvedSecurities, cov.UnresolvedSecurities)
	}
	// Only AAPL has a usable shares figure: 600k of 1m.
	if cov.SharesResolvedValuePct != 60.0 {
		t.Errorf("SharesResolvedValuePct = %v, want 60", cov.SharesResolvedValuePct)
	}
	if stale != 1 {
		t.Errorf("stale count = %d, want 1 (MSFT's aged figure)", stale)
	}
}

// TestCoverageEmptySnapshot guards the zero-value division path.
func TestCoverageEmptySnapshot(t *testing.T) {
	r, err := identity.NewResolver(testIdentities(), asOf, maxAge)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	cov, _ := r.Coverage(&model.QuarterSnapshot{
		Quarter:    model.MustParseQuarter("Q2-2025"),
		Securities: map[string]*model.SecurityAggregate{},
	})
	if cov.TickerResolvedValuePct != 0 || cov.SharesResolvedValuePct != 0 {
		t.Errorf("empty snapshot should yield zero percentages, got %v/%v",
			cov.TickerResolvedValuePct, cov.SharesResolvedValuePct)
	}
}
