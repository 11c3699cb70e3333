// Package identity resolves raw CUSIPs against the loaded mapping tables.
// The resolver is constructed once per run from immutable table snapshots
// and is safe to share across parallel workers: Resolve never mutates state.
package identity

import (
	"time"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// Resolver maps CUSIPs to canonical identities. Resolution order: exact
// match in the primary mapping (exchange directory and manual entries),
// then the supplementary lookup-service table, else unresolved.
type Resolver struct {
	primary       map[string]model.SecurityIdentity
	supplementary map[string]model.SecurityIdentity
	asOf          time.Time
	maxAge        time.Duration
}

// NewResolver builds a resolver over a loaded identity table. An empty
// table is a fatal input condition: the pipeline aborts rather than running
// with nothing to resolve against.
func NewResolver(identities []model.SecurityIdentity, asOf time.Time, maxAge time.Duration) (*Resolver, error) {
	if len(identities) == 0 {
		return nil, apperrors.ErrEmptyIdentityTable
	}

	r := &Resolver{
		primary:       make(map[string]model.SecurityIdentity),
		supplementary: make(map[string]model.SecurityIdentity),
		asOf:          asOf,
		maxAge:        maxAge,
	}
	for _, id := range identities {
		switch id.MappingSource {
		case model.SourceDirectory, model.SourceManual:
			r.primary[id.CUSIP] = id
		case model.SourceLookupService:
			r.supplementary[id.CUSIP] = id
		default:
			// Rows previously stored as unresolved still carry issuer
			// names worth keeping; they stay supplementary.
			r.supplementary[id.CUSIP] = id
		}
	}
	return r, nil
}

// Resolve returns the identity for a CUSIP. Unknown CUSIPs come back with
// MappingSource "unresolved" and no ticker: the security stays in the
// pipeline under its CUSIP, excluded only from percentage-of-float views.
// Shares-outstanding figures older than the staleness window are treated
// as absent in the returned identity.
func (r *Resolver) Resolve(cusip string) model.SecurityIdentity {
	if id, ok := r.lookup(cusip); ok {
		return r.sanitizeShares(id)
	}
	return model.SecurityIdentity{
		CUSIP:         cusip,
		MappingSource: model.SourceUnresolved,
		LastUpdated:   r.asOf,
	}
}

// SharesOutstanding returns the usable shares-outstanding figure for a
// CUSIP, applying the positivity and staleness rules.
func (r *Resolver) SharesOutstanding(cusip string) (int64, bool) {
	id, ok := r.lookup(cusip)
	if !ok {
		return 0, false
	}
	return id.UsableShares(r.asOf, r.maxAge)
}

func (r *Resolver) lookup(cusip string) (model.SecurityIdentity, bool) {
	if id, ok := r.primary[cusip]; ok {
		return id, true
	}
	if id, ok := r.supplementary[cusip]; ok {
		return id, true
	}
	return model.SecurityIdentity{}, false
}

// sanitizeShares clears shares-outstanding data that fails the usability
// rules so downstream components only ever see usable figures.
func (r *Resolver) sanitizeShares(id model.SecurityIdentity) model.SecurityIdentity {
	if id.SharesOutstanding == nil {
		return id
	}
	if _, ok := id.UsableShares(r.asOf, r.maxAge); !ok {
		id.SharesOutstanding = nil
		id.SharesAsOf = nil
	}
	return id
}

// Coverage computes the per-run data-quality audit over one quarter
// snapshot: the share of total filed value resolved to a ticker, and the
// share resolved to a usable shares-outstanding figure. It also counts
// securities whose stored shares figure was discarded as stale, feeding the
// run diagnostics.
func (r *Resolver) Coverage(snap *model.QuarterSnapshot) (model.CoverageSummary, int) {
	cov := model.CoverageSummary{Quarter: snap.Quarter}
	stale := 0

	for cusip, sec := range snap.Securities {
		cov.TotalSecurities++
		cov.TotalFiledValueMillicents += sec.TotalValueMillicents

		raw, found := r.lookup(cusip)
		resolved := r.Resolve(cusip)

		if resolved.Resolved() {
			cov.TickerResolvedSecurities++
			cov.TickerResolvedValuePct += float64(sec.TotalValueMillicents)
		} else {
			cov.UnresolvedSecurities++
		}
		if resolved.SharesOutstanding != nil {
			cov.SharesResolvedSecurities++
			cov.SharesResolvedValuePct += float64(sec.TotalValueMillicents)
		} else if found && raw.SharesOutstanding != nil && *raw.SharesOutstanding > 0 {
			stale++
		}
	}

	// The value accumulators become percentages of total filed value.
	if cov.TotalFiledValueMillicents > 0 {
		total := float64(cov.TotalFiledValueMillicents)
		cov.TickerResolvedValuePct = cov.TickerResolvedValuePct / total * 100
		cov.SharesResolvedValuePct = cov.SharesResolvedValuePct / total * 100
	} else {
		cov.TickerResolvedValuePct = 0
		cov.SharesResolvedValuePct = 0
	}

	return cov, stale
}
