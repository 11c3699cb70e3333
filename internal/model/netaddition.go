package model

// InstitutionChange is one institution's quarter-over-quarter movement in a
// single security. Entrants have PriorShares zero; exits have CurrentShares
// zero with a negative delta (an exit is a full negative position).
type InstitutionChange struct {
	InstitutionID string `json:"institution_id"`
	PriorShares   int64  `json:"prior_shares"`
	CurrentShares int64  `json:"current_shares"`
	SharesDelta   int64  `json:"shares_delta"`
}

// NetAdditionRecord is the reconciliation result for one security across two
// adjacent quarters. Derived data: it exists for the lifetime of one report
// generation and is persisted only as an immutable run artifact.
type NetAdditionRecord struct {
	CUSIP        string  `json:"cusip"`
	Quarter      Quarter `json:"quarter"`
	PriorQuarter Quarter `json:"prior_quarter"`

	// NetAddingInstitutions counts strictly positive share deltas,
	// entrants included; NetReducingInstitutions counts strictly negative
	// deltas, exits included.
	NetAddingInstitutions   int `json:"net_adding_institutions"`
	NetReducingInstitutions int `json:"net_reducing_institutions"`

	NetSharesDelta          int64 `json:"net_shares_delta"`
	NetValueDeltaMillicents int64 `json:"net_value_delta_millicents"`

	// AvgPortfolioWeightDeltaPct averages per-institution portfolio-weight
	// deltas over institutions present in the current quarter; institutions
	// with a zero portfolio denominator are excluded from the mean. Nil when
	// no institution qualified.
	AvgPortfolioWeightDeltaPct *float64 `json:"avg_portfolio_weight_delta_pct,omitempty"`

	InstitutionsEntering []string            `json:"institutions_entering"`
	InstitutionsExiting  []string            `json:"institutions_exiting"`
	InstitutionChanges   []InstitutionChange `json:"institution_changes"`
}
