package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tvandenberg/thirteenf/internal/model"
)

func writeParams(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write params: %v", err)
	}
	return path
}

func TestLoadParamsDefaults(t *testing.T) {
	p, err := LoadParams("")
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if p.OwnershipCapPct != 101 {
		t.Errorf("OwnershipCapPct = %v, want 101", p.OwnershipCapPct)
	}
	if !p.ExcludeETFs {
		t.Error("ExcludeETFs default should be true")
	}
	if p.MinSharesOutstanding != 100_000 {
		t.Errorf("MinSharesOutstanding = %d, want 100000", p.MinSharesOutstanding)
	}
	if p.MaxDataAgeDays != 1095 {
		t.Errorf("MaxDataAgeDays = %d, want 1095", p.MaxDataAgeDays)
	}
	if p.TopN != 50 {
		t.Errorf("TopN = %d, want 50", p.TopN)
	}
	if p.NetAddsMetric != "institutions" {
		t.Errorf("NetAddsMetric = %q, want institutions", p.NetAddsMetric)
	}
}

// TestLoadParamsPartialFile verifies that a config file only overrides the
// keys it names, including setting a true-by-default flag to false.
func TestLoadParamsPartialFile(t *testing.T) {
	path := writeParams(t, "quarter: Q2-2025\nexclude_etfs: false\ntop_n: 10\n")
	p, err := LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if p.Quarter != "Q2-2025" {
		t.Errorf("Quarter = %q, want Q2-2025", p.Quarter)
	}
	if p.ExcludeETFs {
		t.Error("ExcludeETFs should have been overridden to false")
	}
	if p.TopN != 10 {
		t.Errorf("TopN = %d, want 10", p.TopN)
	}
	if p.OwnershipCapPct != 101 {
		t.Errorf("OwnershipCapPct = %v, want untouched default 101", p.OwnershipCapPct)
	}
}

func TestLoadParamsValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad quarter", "quarter: Q9-2025\n"},
		{"zero cap", "ownership_cap_pct: 0\n"},
		{"negative floor", "min_shares_outstanding: -1\n"},
		{"zero staleness", "max_data_age_days: 0\n"},
		{"zero top_n", "top_n: 0\n"},
		{"unknown metric", "net_adds_metric: momentum\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadParams(writeParams(t, tc.body)); err == nil {
				t.Errorf("LoadParams accepted %q", tc.body)
			}
		})
	}
}

func TestLoadParamsMissingFile(t *testing.T) {
	if _, err := LoadParams(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadParams should fail on an unreadable path")
	}
}

func TestTargetQuarter(t *testing.T) {
	p := defaultParams()

	// Aug 20, 2025 is past the Q2 deadline (Aug 14) and before Q3's.
	got, err := p.TargetQuarter(time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("TargetQuarter: %v", err)
	}
	if want := model.MustParseQuarter("Q2-2025"); got != want {
		t.Errorf("TargetQuarter = %s, want %s", got, want)
	}

	p.Quarter = "2024Q4"
	got, err = p.TargetQuarter(time.Now())
	if err != nil {
		t.Fatalf("TargetQuarter: %v", err)
	}
	if want := model.MustParseQuarter("Q4-2024"); got != want {
		t.Errorf("TargetQuarter = %s, want %s", got, want)
	}
}

func TestNetAddsRankingMetric(t *testing.T) {
	cases := map[string]model.Metric{
		"institutions": model.MetricNetInstitutions,
		"shares":       model.MetricNetShares,
		"value":        model.MetricNetValue,
	}
	for name, want := range cases {
		p := defaultParams()
		p.NetAddsMetric = name
		if got := p.NetAddsRankingMetric(); got != want {
			t.Errorf("NetAddsRankingMetric(%q) = %s, want %s", name, got, want)
		}
	}
}
