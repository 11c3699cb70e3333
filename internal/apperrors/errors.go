package apperrors

import (
	"errors"
	"fmt"
)

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrRunNotFound indicates that a run with the given ID does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrReportNotFound indicates that a report artifact does not exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrSnapshotNotFound indicates that no snapshot rows exist for the quarter.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrIdentityNotFound indicates that no identity exists for the CUSIP.
	ErrIdentityNotFound = errors.New("security identity not found")

	// ErrSecurityNotInSnapshot indicates the quarter snapshot has no row for the CUSIP.
	ErrSecurityNotInSnapshot = errors.New("security not present in snapshot")

	// ErrSettingNotFound indicates that a settings key has not been stored.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrFilingNotFound indicates that a filing with the given accession does not exist.
	ErrFilingNotFound = errors.New("filing not found")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrInvalidQuarter indicates that a quarter string is not Qn-YYYY or YYYYQn.
	ErrInvalidQuarter = errors.New("invalid quarter format")

	// ErrInvalidCUSIP indicates that a CUSIP is not exactly 9 alphanumeric characters.
	ErrInvalidCUSIP = errors.New("invalid CUSIP format")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrRunActive indicates a reconciliation run is already in progress;
	// runs are serialized, one at a time.
	ErrRunActive = errors.New("a run is already active")

	// ErrInvalidMetric indicates an unknown ranking metric name.
	ErrInvalidMetric = errors.New("invalid ranking metric")

	// ErrInvalidReportKind indicates an unknown report kind name.
	ErrInvalidReportKind = errors.New("invalid report kind")
)

// Input table errors abort a run outright: the pipeline never degrades into
// simulated or placeholder data when a required table cannot be loaded.
var (
	// ErrEmptyIdentityTable indicates the CUSIP mapping table has no rows.
	ErrEmptyIdentityTable = errors.New("identity mapping table is empty")

	// ErrNoFilings indicates no original filings were ingested for the
	// requested quarter.
	ErrNoFilings = errors.New("no filings ingested for quarter")
)

// External collaborator errors cover the acquisition clients.
var (
	// ErrUserAgentNotConfigured indicates SEC_USER_NAME/SEC_USER_EMAIL are
	// unset; the regulator rejects anonymous traffic, so acquisition refuses
	// to start without them.
	ErrUserAgentNotConfigured = errors.New("SEC user agent not configured")

	// ErrLookupThrottled indicates the identifier-lookup service returned
	// a rate-limit response after all retries.
	ErrLookupThrottled = errors.New("lookup service rate limit exceeded")
)

// MalformedRecordError marks one rejected information-table line: a bad
// CUSIP or a non-positive share count. The record is skipped, the run
// continues, and the count is surfaced in the run summary.
type MalformedRecordError struct {
	CUSIP  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record (cusip=%q): %s", e.CUSIP, e.Reason)
}

// IsMalformedRecord reports whether err is a MalformedRecordError.
func IsMalformedRecord(err error) bool {
	var target *MalformedRecordError
	return errors.As(err, &target)
}
