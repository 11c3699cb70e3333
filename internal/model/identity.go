package model

import "time"

// MappingSource records which collaborator produced a CUSIP mapping.
type MappingSource string

const (
	// SourceDirectory is the primary exchange-listing directory (SEC ticker file).
	SourceDirectory MappingSource = "directory"
	// SourceLookupService is the external identifier-lookup service (OpenFIGI).
	SourceLookupService MappingSource = "lookup-service"
	// SourceManual is an operator-supplied mapping.
	SourceManual MappingSource = "manual"
	// SourceUnresolved marks a CUSIP no collaborator could map.
	SourceUnresolved MappingSource = "unresolved"
)

// SecurityIdentity is the canonical view of one security, keyed by CUSIP.
// A CUSIP maps to at most one active identity per analysis run. Identities
// are created and refreshed by the mapping collaborators and are read-only
// to the reconciliation engine.
type SecurityIdentity struct {
	CUSIP             string        `json:"cusip"`
	Ticker            *string       `json:"ticker,omitempty"`
	Name              string        `json:"name"`
	SharesOutstanding *int64        `json:"shares_outstanding,omitempty"`
	SharesAsOf        *time.Time    `json:"shares_as_of,omitempty"`
	MappingSource     MappingSource `json:"mapping_source"`
	IsETF             bool          `json:"is_etf"`
	LastUpdated       time.Time     `json:"last_updated"`
}

// Resolved reports whether the identity carries a ticker mapping.
func (s *SecurityIdentity) Resolved() bool {
	return s.MappingSource != SourceUnresolved && s.Ticker != nil && *s.Ticker != ""
}

// UsableShares returns the shares-outstanding figure if it is present,
// positive, and no older than maxAge relative to asOf. Stale or missing
// figures are treated as absent, which excludes the security from
// percentage-of-float computation without dropping it from the run.
func (s *SecurityIdentity) UsableShares(asOf time.Time, maxAge time.Duration) (int64, bool) {
	if s.SharesOutstanding == nil || *s.SharesOutstanding <= 0 {
		return 0, false
	}
	if s.SharesAsOf == nil {
		return 0, false
	}
	if asOf.Sub(*s.SharesAsOf) > maxAge {
		return 0, false
	}
	return *s.SharesOutstanding, true
}
