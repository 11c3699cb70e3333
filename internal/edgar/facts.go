package edgar

import (
	"context"
	"encoding/json"
	"fmt"
)

// CompanyFacts fetches the XBRL company-facts document for one CIK. The
// caller extracts shares figures via CompanyFacts.SharesOutstanding.
func (c *HTTPClient) CompanyFacts(ctx context.Context, cik string) (*CompanyFacts, error) {
	url := fmt.Sprintf("https://data.sec.gov/api/xbrl/companyfacts/CIK%s.json", PadCIK(cik))
	data, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company facts for CIK %s: %w", cik, err)
	}

	var facts CompanyFacts
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("failed to decode company facts for CIK %s: %w", cik, err)
	}
	return &facts, nil
}
