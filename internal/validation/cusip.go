package validation

import (
	"fmt"
	"strings"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
)

// NormalizeCUSIP uppercases and trims a raw CUSIP and validates the result:
// exactly 9 alphanumeric characters. Filings occasionally carry lowercase or
// padded identifiers; anything that does not normalize cleanly is malformed.
func NormalizeCUSIP(raw string) (string, error) {
	cusip := strings.ToUpper(strings.TrimSpace(raw))
	if err := ValidateCUSIP(cusip); err != nil {
		return "", err
	}
	return cusip, nil
}

// ValidateCUSIP checks that a CUSIP is exactly 9 alphanumeric characters.
func ValidateCUSIP(cusip string) error {
	if len(cusip) != 9 {
		return fmt.Errorf("%w: %q is %d characters, want 9", apperrors.ErrInvalidCUSIP, cusip, len(cusip))
	}
	for _, c := range cusip {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		default:
			return fmt.Errorf("%w: %q contains %q", apperrors.ErrInvalidCUSIP, cusip, c)
		}
	}
	return nil
}
