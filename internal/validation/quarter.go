package validation

import (
	"fmt"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// ValidateQuarter checks that a quarter URL or config value parses.
func ValidateQuarter(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty", apperrors.ErrInvalidQuarter)
	}
	if _, err := model.ParseQuarter(s); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidQuarter, err)
	}
	return nil
}
