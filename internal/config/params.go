package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tvandenberg/thirteenf/internal/model"
)

// Params are the engine knobs for one analysis run: which quarter, which
// data-quality thresholds, which ranking shape. Loaded from a YAML file
// over defaults so a config file only needs the keys it changes.
type Params struct {
	// Quarter selects the analysis quarter, "Q2-2025" style. Empty means
	// the latest quarter whose filing deadline has passed.
	Quarter string `yaml:"quarter"`
	// OwnershipCapPct quarantines securities whose computed institutional
	// ownership is strictly above this percentage.
	OwnershipCapPct float64 `yaml:"ownership_cap_pct"`
	// ExcludeETFs drops flagged ETFs from rankings.
	ExcludeETFs bool `yaml:"exclude_etfs"`
	// MinSharesOutstanding is the float floor for percentage rankings.
	MinSharesOutstanding int64 `yaml:"min_shares_outstanding"`
	// MaxDataAgeDays is the staleness window on shares-outstanding
	// figures; older figures are treated as absent.
	MaxDataAgeDays int `yaml:"max_data_age_days"`
	// TopN bounds ranked report length.
	TopN int `yaml:"top_n"`
	// NetAddsMetric ranks the net-additions report: "institutions",
	// "shares", or "value".
	NetAddsMetric string `yaml:"net_adds_metric"`
}

func defaultParams() Params {
	return Params{
		OwnershipCapPct:      101,
		ExcludeETFs:          true,
		MinSharesOutstanding: 100_000,
		MaxDataAgeDays:       1095,
		TopN:                 50,
		NetAddsMetric:        "institutions",
	}
}

// LoadParams reads engine parameters from path over the defaults. An empty
// path runs on pure defaults; a path that cannot be read or validated is
// an error rather than a silent fallback.
func LoadParams(path string) (Params, error) {
	p := defaultParams()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return p, fmt.Errorf("validate %s: %w", path, err)
	}
	return p, nil
}

func (p Params) validate() error {
	if p.Quarter != "" {
		if _, err := model.ParseQuarter(p.Quarter); err != nil {
			return err
		}
	}
	if p.OwnershipCapPct <= 0 {
		return errors.New("ownership_cap_pct must be positive")
	}
	if p.MinSharesOutstanding < 0 {
		return errors.New("min_shares_outstanding must not be negative")
	}
	if p.MaxDataAgeDays < 1 {
		return errors.New("max_data_age_days must be at least 1")
	}
	if p.TopN < 1 {
		return errors.New("top_n must be at least 1")
	}
	switch p.NetAddsMetric {
	case "institutions", "shares", "value":
	default:
		return errors.New(`net_adds_metric must be "institutions", "shares", or "value"`)
	}
	return nil
}

// TargetQuarter resolves the analysis quarter: the configured one, or the
// latest completed quarter relative to now when unset.
func (p Params) TargetQuarter(now time.Time) (model.Quarter, error) {
	if p.Quarter == "" {
		return model.LatestCompletedQuarter(now), nil
	}
	return model.ParseQuarter(p.Quarter)
}

// MaxDataAge converts the staleness window to a duration.
func (p Params) MaxDataAge() time.Duration {
	return time.Duration(p.MaxDataAgeDays) * 24 * time.Hour
}

// NetAddsRankingMetric maps the configured name to its ranking metric.
func (p Params) NetAddsRankingMetric() model.Metric {
	switch p.NetAddsMetric {
	case "shares":
		return model.MetricNetShares
	case "value":
		return model.MetricNetValue
	default:
		return model.MetricNetInstitutions
	}
}
