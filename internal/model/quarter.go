package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quarter identifies one 13F reporting quarter, e.g. Q2-2025.
// The zero value is not a valid quarter; use ParseQuarter or QuarterOf.
type Quarter struct {
	Year int
	Q    int // 1 through 4
}

// filingGraceDays is the statutory 13F filing window: reports are due 45 days
// after quarter end (Q1 -> May 15, Q2 -> Aug 14, Q3 -> Nov 14, Q4 -> Feb 14).
const filingGraceDays = 45

// ParseQuarter parses "Q2-2025" (canonical) or "2025Q2". Case-insensitive.
func ParseQuarter(s string) (Quarter, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))

	var yearPart, qPart string
	switch {
	case strings.HasPrefix(raw, "Q") && strings.Contains(raw, "-"):
		parts := strings.SplitN(raw, "-", 2)
		qPart, yearPart = strings.TrimPrefix(parts[0], "Q"), parts[1]
	case strings.Contains(raw, "Q"):
		parts := strings.SplitN(raw, "Q", 2)
		yearPart, qPart = parts[0], parts[1]
	default:
		return Quarter{}, fmt.Errorf("invalid quarter %q: expected Qn-YYYY or YYYYQn", s)
	}

	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 1900 || year > 9999 {
		return Quarter{}, fmt.Errorf("invalid quarter %q: bad year", s)
	}
	q, err := strconv.Atoi(qPart)
	if err != nil || q < 1 || q > 4 {
		return Quarter{}, fmt.Errorf("invalid quarter %q: quarter must be 1-4", s)
	}
	return Quarter{Year: year, Q: q}, nil
}

// MustParseQuarter is ParseQuarter that panics on error. For tests and constants.
func MustParseQuarter(s string) Quarter {
	q, err := ParseQuarter(s)
	if err != nil {
		panic(err)
	}
	return q
}

// QuarterOf returns the calendar quarter containing t.
func QuarterOf(t time.Time) Quarter {
	t = t.UTC()
	return Quarter{Year: t.Year(), Q: (int(t.Month())-1)/3 + 1}
}

// LatestCompletedQuarter returns the most recent quarter whose 13F filing
// deadline has passed as of ref, i.e. the latest quarter with a complete
// filing set.
func LatestCompletedQuarter(ref time.Time) Quarter {
	ref = ref.UTC()
	q := QuarterOf(ref)
	for ref.Before(q.FilingDeadline()) {
		q = q.Prev()
	}
	return q
}

func (q Quarter) String() string {
	return fmt.Sprintf("Q%d-%d", q.Q, q.Year)
}

// IsZero reports whether q is the zero value.
func (q Quarter) IsZero() bool {
	return q.Year == 0 && q.Q == 0
}

// Prev returns the preceding quarter.
func (q Quarter) Prev() Quarter {
	if q.Q == 1 {
		return Quarter{Year: q.Year - 1, Q: 4}
	}
	return Quarter{Year: q.Year, Q: q.Q - 1}
}

// Next returns the following quarter.
func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Year: q.Year + 1, Q: 1}
	}
	return Quarter{Year: q.Year, Q: q.Q + 1}
}

// PeriodEnd returns the last day of the quarter (UTC midnight).
func (q Quarter) PeriodEnd() time.Time {
	firstOfNext := time.Date(q.Year, time.Month(q.Q*3)+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// FilingDeadline returns the date 13F filings for this quarter are due.
func (q Quarter) FilingDeadline() time.Time {
	return q.PeriodEnd().AddDate(0, 0, filingGraceDays)
}

// Index returns a total ordering key (consecutive quarters differ by 1).
func (q Quarter) Index() int {
	return q.Year*4 + q.Q - 1
}

// Before reports whether q precedes other.
func (q Quarter) Before(other Quarter) bool {
	return q.Index() < other.Index()
}

// MarshalJSON encodes the quarter as its canonical "Qn-YYYY" string.
func (q Quarter) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(q.String())), nil
}

// UnmarshalJSON decodes either accepted textual form.
func (q *Quarter) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("quarter must be a JSON string: %w", err)
	}
	parsed, err := ParseQuarter(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
