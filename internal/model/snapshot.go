package model

// HolderPosition is one institution's position in a security within a
// quarter snapshot.
type HolderPosition struct {
	InstitutionID   string `json:"institution_id"`
	Shares          int64  `json:"shares"`
	ValueMillicents int64  `json:"value_millicents"`
}

// SecurityAggregate is the per-security roster inside a QuarterSnapshot.
// Holders is ordered by descending shares, then institution ID ascending.
type SecurityAggregate struct {
	CUSIP                string           `json:"cusip"`
	TotalShares          int64            `json:"total_shares"`
	TotalValueMillicents int64            `json:"total_value_millicents"`
	Holders              []HolderPosition `json:"holders"`
}

// HolderIDs returns the ordered institution roster without position detail.
func (s *SecurityAggregate) HolderIDs() []string {
	ids := make([]string, len(s.Holders))
	for i, h := range s.Holders {
		ids[i] = h.InstitutionID
	}
	return ids
}

// InstitutionAggregate is one institution's whole-portfolio footprint in a
// quarter. The reconciler uses TotalValueMillicents as the denominator for
// portfolio-weight deltas, so snapshots carry it rather than forcing a
// rescan of holding records.
type InstitutionAggregate struct {
	InstitutionID        string `json:"institution_id"`
	Name                 string `json:"name"`
	TotalShares          int64  `json:"total_shares"`
	TotalValueMillicents int64  `json:"total_value_millicents"`
	Positions            int    `json:"positions"`
}

// SnapshotSecurityRow is the API read model for one security in a persisted
// quarter snapshot: the aggregate joined with its identity mapping. Ticker
// and PctOfFloat are nil when the run could not resolve them.
type SnapshotSecurityRow struct {
	Quarter              Quarter          `json:"quarter"`
	CUSIP                string           `json:"cusip"`
	Ticker               *string          `json:"ticker,omitempty"`
	Name                 string           `json:"name"`
	TotalShares          int64            `json:"total_shares"`
	TotalValueMillicents int64            `json:"total_value_millicents"`
	HolderCount          int              `json:"holder_count"`
	PctOfFloat           *float64         `json:"pct_of_float,omitempty"`
	Holders              []HolderPosition `json:"holders,omitempty"`
}

// QuarterSnapshot is the aggregate of all normalized holding records for one
// quarter. Built once per quarter and immutable after construction.
type QuarterSnapshot struct {
	Quarter      Quarter                          `json:"quarter"`
	Securities   map[string]*SecurityAggregate    `json:"securities"`
	Institutions map[string]*InstitutionAggregate `json:"institutions"`
	RecordCount  int                              `json:"record_count"`
}

// Security returns the aggregate for cusip, or nil when no institution
// reported a position.
func (qs *QuarterSnapshot) Security(cusip string) *SecurityAggregate {
	if qs == nil {
		return nil
	}
	return qs.Securities[cusip]
}

// PortfolioValue returns the institution's total reported portfolio value
// in millicents, zero when the institution is absent from the quarter.
func (qs *QuarterSnapshot) PortfolioValue(institutionID string) int64 {
	if qs == nil {
		return 0
	}
	if inst, ok := qs.Institutions[institutionID]; ok {
		return inst.TotalValueMillicents
	}
	return 0
}
