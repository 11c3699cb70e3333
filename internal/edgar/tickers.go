package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const companyTickersURL = "https://www.sec.gov/files/company_tickers.json"

// companyTickerRow mirrors one entry of company_tickers.json, which is a
// map of row index to {cik_str, ticker, title}.
type companyTickerRow struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// CompanyTickers fetches the SEC ticker directory: every registered
// company's CIK, ticker, and title.
func (c *HTTPClient) CompanyTickers(ctx context.Context) ([]TickerEntry, error) {
	data, err := c.get(ctx, companyTickersURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company tickers: %w", err)
	}

	var raw map[string]companyTickerRow
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode company tickers: %w", err)
	}

	entries := make([]TickerEntry, 0, len(raw))
	for _, row := range raw {
		ticker := strings.ToUpper(strings.TrimSpace(row.Ticker))
		if ticker == "" || row.CIK == 0 {
			continue
		}
		entries = append(entries, TickerEntry{
			CIK:    strconv.FormatInt(row.CIK, 10),
			Ticker: ticker,
			Title:  strings.TrimSpace(row.Title),
		})
	}
	return entries, nil
}

// PadCIK left-pads a CIK to the 10 digits the XBRL endpoints require.
func PadCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	if len(cik) >= 10 {
		return cik
	}
	return strings.Repeat("0", 10-len(cik)) + cik
}
