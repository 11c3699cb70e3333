package request

// SetETFRequest flags or unflags a security as an ETF. The field is a
// pointer so a missing value is distinguishable from false.
type SetETFRequest struct {
	IsETF *bool `json:"is_etf"`
}
