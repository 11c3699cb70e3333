package request

// TriggerRunRequest is the optional body for triggering a reconciliation
// run. An empty quarter selects the latest quarter whose filing deadline
// has passed.
type TriggerRunRequest struct {
	Quarter string `json:"quarter,omitempty"`
}
