package repository

import (
	"fmt"
	"time"

	"github.com/tvandenberg/thirteenf/internal/model"
)

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse("2006-01-02", str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return returnTime.UTC(), nil
}

// formatTime renders a timestamp in the canonical stored form. All stored
// timestamps are UTC RFC3339.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseQuarter converts a stored quarter column back to its value type.
func parseQuarter(str string) (model.Quarter, error) {
	q, err := model.ParseQuarter(str)
	if err != nil {
		return model.Quarter{}, fmt.Errorf("failed to parse stored quarter %q: %w", str, err)
	}
	return q, nil
}
