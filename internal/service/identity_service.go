package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/edgar"
	"github.com/tvandenberg/thirteenf/internal/figi"
	"github.com/tvandenberg/thirteenf/internal/model"
	"github.com/tvandenberg/thirteenf/internal/repository"
	"github.com/tvandenberg/thirteenf/internal/validation"
)

// MappingStats summarizes one identifier-lookup pass.
type MappingStats struct {
	Requested  int `json:"requested"`
	Mapped     int `json:"mapped"`
	Unresolved int `json:"unresolved"`
}

// SharesStats summarizes one shares-outstanding refresh.
type SharesStats struct {
	TickersChecked    int `json:"tickers_checked"`
	SharesStored      int `json:"shares_stored"`
	RejectedFigures   int `json:"rejected_figures"`
	DirectoryMisses   int `json:"directory_misses"`
	DirectoryUpgrades int `json:"directory_upgrades"`
	FactsErrors       int `json:"facts_errors"`
}

// TickerStats summarizes one ticker-directory pass.
type TickerStats struct {
	DirectoryEntries int `json:"directory_entries"`
	Checked          int `json:"checked"`
	Upgraded         int `json:"upgraded"`
	Misses           int `json:"misses"`
}

// IdentityService maintains the security-identity table: CUSIP to ticker
// mappings plus shares-outstanding figures. Mappings come from three places
// with fixed precedence: operator-supplied manual entries, the SEC ticker
// directory, and the OpenFIGI lookup service, in that order. The repository
// enforces that a manual mapping is never downgraded.
type IdentityService struct {
	identityRepo *repository.IdentityRepository
	holdingRepo  *repository.HoldingRepository
	edgarClient  edgar.Client
	figiClient   figi.Client
}

// NewIdentityService creates a new IdentityService with the provided repository and client dependencies.
func NewIdentityService(
	identityRepo *repository.IdentityRepository,
	holdingRepo *repository.HoldingRepository,
	edgarClient edgar.Client,
	figiClient figi.Client,
) *IdentityService {
	return &IdentityService{
		identityRepo: identityRepo,
		holdingRepo:  holdingRepo,
		edgarClient:  edgarClient,
		figiClient:   figiClient,
	}
}

// GetIdentity retrieves the identity for one CUSIP.
func (s *IdentityService) GetIdentity(cusip string) (model.SecurityIdentity, error) {
	normalized, err := validation.NormalizeCUSIP(cusip)
	if err != nil {
		return model.SecurityIdentity{}, err
	}
	return s.identityRepo.Get(normalized)
}

// SetETF flags or unflags a security as an ETF. Flagged securities are
// dropped from rankings when the exclusion filter is on.
func (s *IdentityService) SetETF(cusip string, isETF bool) error {
	normalized, err := validation.NormalizeCUSIP(cusip)
	if err != nil {
		return err
	}
	return s.identityRepo.SetETF(normalized, isETF, time.Now().UTC())
}

// MapQuarterCUSIPs resolves CUSIPs held in the quarter that have no
// identity row yet, through the identifier-lookup service. CUSIPs the
// service cannot resolve are recorded as unresolved so later passes skip
// them instead of burning lookup quota every run.
func (s *IdentityService) MapQuarterCUSIPs(ctx context.Context, quarter model.Quarter) (MappingStats, error) {
	cusips, err := s.holdingRepo.UnmappedCUSIPs(quarter)
	if err != nil {
		return MappingStats{}, err
	}
	stats := MappingStats{Requested: len(cusips)}
	if len(cusips) == 0 {
		return stats, nil
	}

	mappings, err := s.figiClient.MapCUSIPs(ctx, cusips)
	if err != nil {
		return stats, fmt.Errorf("identifier lookup failed: %w", err)
	}

	now := time.Now().UTC()
	for _, m := range mappings {
		if m.Found {
			ticker := m.Ticker
			if err := s.identityRepo.UpsertMapping(m.CUSIP, &ticker, m.Name, model.SourceLookupService, now); err != nil {
				return stats, err
			}
			stats.Mapped++
			continue
		}
		if err := s.identityRepo.UpsertMapping(m.CUSIP, nil, "", model.SourceUnresolved, now); err != nil {
			return stats, err
		}
		stats.Unresolved++
	}
	return stats, nil
}

// RefreshTickers reconciles resolved identities against the SEC ticker
// directory. A directory hit refreshes the issuer name and upgrades
// lookup-service mappings to directory provenance; fetching the heavier
// per-company facts documents is RefreshShares' job.
func (s *IdentityService) RefreshTickers(ctx context.Context) (TickerStats, error) {
	identities, err := s.identityRepo.List()
	if err != nil {
		return TickerStats{}, err
	}

	directory, err := s.edgarClient.CompanyTickers(ctx)
	if err != nil {
		return TickerStats{}, fmt.Errorf("failed to load ticker directory: %w", err)
	}
	byTicker := make(map[string]edgar.TickerEntry, len(directory))
	for _, entry := range directory {
		byTicker[entry.Ticker] = entry
	}

	stats := TickerStats{DirectoryEntries: len(directory)}
	now := time.Now().UTC()
	for _, id := range identities {
		if !id.Resolved() {
			continue
		}
		stats.Checked++

		entry, ok := byTicker[*id.Ticker]
		if !ok {
			stats.Misses++
			continue
		}
		if id.MappingSource != model.SourceLookupService {
			continue
		}
		ticker := entry.Ticker
		if err := s.identityRepo.UpsertMapping(id.CUSIP, &ticker, entry.Title, model.SourceDirectory, now); err != nil {
			return stats, err
		}
		stats.Upgraded++
	}
	return stats, nil
}

// RefreshShares fetches shares-outstanding figures for every identity that
// carries a ticker. The SEC ticker directory joins ticker to CIK; XBRL
// company facts supply the figure. A directory hit also confirms the
// listing, upgrading lookup-service mappings to directory provenance.
//
// Figures failing the validity checks (placeholders, implausibly small
// floats, stale data) are rejected, never stored.
func (s *IdentityService) RefreshShares(ctx context.Context, maxAge time.Duration) (SharesStats, error) {
	identities, err := s.identityRepo.List()
	if err != nil {
		return SharesStats{}, err
	}

	directory, err := s.edgarClient.CompanyTickers(ctx)
	if err != nil {
		return SharesStats{}, fmt.Errorf("failed to load ticker directory: %w", err)
	}
	byTicker := make(map[string]edgar.TickerEntry, len(directory))
	for _, entry := range directory {
		byTicker[entry.Ticker] = entry
	}

	stats := SharesStats{}
	now := time.Now().UTC()
	// Several CUSIPs (share classes) can join to one CIK; fetch each
	// facts document once.
	factsByCIK := map[string]*edgar.CompanyFacts{}

	for _, id := range identities {
		if !id.Resolved() {
			continue
		}
		stats.TickersChecked++

		entry, ok := byTicker[*id.Ticker]
		if !ok {
			stats.DirectoryMisses++
			continue
		}

		if id.MappingSource == model.SourceLookupService {
			ticker := entry.Ticker
			if err := s.identityRepo.UpsertMapping(id.CUSIP, &ticker, entry.Title, model.SourceDirectory, now); err != nil {
				return stats, err
			}
			stats.DirectoryUpgrades++
		}

		facts, ok := factsByCIK[entry.CIK]
		if !ok {
			facts, err = s.edgarClient.CompanyFacts(ctx, entry.CIK)
			if err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				// One missing facts document should not abort the
				// whole refresh; plenty of filers have none.
				stats.FactsErrors++
				factsByCIK[entry.CIK] = nil
				continue
			}
			factsByCIK[entry.CIK] = facts
		}
		if facts == nil {
			stats.FactsErrors++
			continue
		}

		fig, ok := facts.SharesOutstanding()
		if !ok {
			stats.RejectedFigures++
			continue
		}
		if valid, _ := fig.Valid(now, maxAge); !valid {
			stats.RejectedFigures++
			continue
		}

		if err := s.identityRepo.UpsertShares(id.CUSIP, fig.Shares, fig.AsOf, now); err != nil {
			return stats, err
		}
		stats.SharesStored++
	}
	return stats, nil
}

// ImportManualMappings loads operator-curated CUSIP-to-ticker mappings from
// a JSON file of the form {"cusip": "ticker", ...}. Manual mappings take
// precedence over every automated source and are never overwritten by one.
func (s *IdentityService) ImportManualMappings(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read manual mappings: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("failed to parse manual mappings: %w", err)
	}

	now := time.Now().UTC()
	imported := 0
	for cusip, ticker := range raw {
		normalized, err := validation.NormalizeCUSIP(cusip)
		if err != nil {
			return imported, fmt.Errorf("manual mapping %q: %w", cusip, err)
		}
		if ticker == "" {
			return imported, fmt.Errorf("manual mapping %q has an empty ticker", cusip)
		}
		t := ticker
		if err := s.identityRepo.UpsertMapping(normalized, &t, "", model.SourceManual, now); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

// ImportETFList flags every CUSIP in a JSON array file as an ETF. CUSIPs
// with no identity row yet get an unresolved one, so the flag is not lost
// when the list is loaded before the first mapping pass.
func (s *IdentityService) ImportETFList(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read ETF list: %w", err)
	}

	var cusips []string
	if err := json.Unmarshal(data, &cusips); err != nil {
		return 0, fmt.Errorf("failed to parse ETF list: %w", err)
	}

	now := time.Now().UTC()
	flagged := 0
	for _, cusip := range cusips {
		normalized, err := validation.NormalizeCUSIP(cusip)
		if err != nil {
			return flagged, fmt.Errorf("ETF list entry %q: %w", cusip, err)
		}
		err = s.identityRepo.SetETF(normalized, true, now)
		if errors.Is(err, apperrors.ErrIdentityNotFound) {
			if err = s.identityRepo.UpsertMapping(normalized, nil, "", model.SourceUnresolved, now); err == nil {
				err = s.identityRepo.SetETF(normalized, true, now)
			}
		}
		if err != nil {
			return flagged, err
		}
		flagged++
	}
	return flagged, nil
}
