package request

import (
	"fmt"
	"strconv"
)

// Paging holds validated limit/offset query parameters for list endpoints.
type Paging struct {
	Limit  int
	Offset int
}

// ParsePaging extracts and validates paging from query parameters.
//
// Validation rules:
//   - limit: must be between 1 and 500 (defaults to 100)
//   - offset: must be zero or positive (defaults to 0)
//
// Returns an error if either parameter fails validation.
func ParsePaging(limitParam, offsetParam string) (Paging, error) {
	paging := Paging{Limit: 100}

	if limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return paging, fmt.Errorf("invalid limit: must be a number")
		}
		if limit < 1 || limit > 500 {
			return paging, fmt.Errorf("invalid limit: must be between 1 and 500")
		}
		paging.Limit = limit
	}

	if offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil {
			return paging, fmt.Errorf("invalid offset: must be a number")
		}
		if offset < 0 {
			return paging, fmt.Errorf("invalid offset: must not be negative")
		}
		paging.Offset = offset
	}

	return paging, nil
}

// ParseRunLimit validates the limit query parameter for run listings.
// Must be between 1 and 100; defaults to 20.
func ParseRunLimit(limitParam string) (int, error) {
	if limitParam == "" {
		return 20, nil
	}
	limit, err := strconv.Atoi(limitParam)
	if err != nil {
		return 0, fmt.Errorf("invalid limit: must be a number")
	}
	if limit < 1 || limit > 100 {
		return 0, fmt.Errorf("invalid limit: must be between 1 and 100")
	}
	return limit, nil
}
