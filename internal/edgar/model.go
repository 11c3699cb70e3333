package edgar

import (
	"path"
	"strings"
	"time"
)

// IndexEntry is one row of an EDGAR quarterly form index.
type IndexEntry struct {
	FormType    string
	CompanyName string
	CIK         string
	DateFiled   time.Time
	// FileName is the document path relative to the EDGAR archives root,
	// e.g. "edgar/data/1067983/0000950123-25-008361.txt".
	FileName string
}

// Accession returns the accession number embedded in the index file name.
func (e IndexEntry) Accession() string {
	return strings.TrimSuffix(path.Base(e.FileName), ".txt")
}

// TickerEntry is one row of the SEC company_tickers.json directory.
type TickerEntry struct {
	CIK    string
	Ticker string
	Title  string
}

// CompanyFacts mirrors the slice of the XBRL company-facts response this
// system reads: the us-gaap shares-outstanding concepts.
type CompanyFacts struct {
	CIK        int64  `json:"cik"`
	EntityName string `json:"entityName"`
	Facts      struct {
		USGAAP map[string]conceptFacts `json:"us-gaap"`
	} `json:"facts"`
}

type conceptFacts struct {
	Units map[string][]factValue `json:"units"`
}

type factValue struct {
	End string  `json:"end"`
	Val float64 `json:"val"`
}

// SharesFigure is one extracted shares-outstanding data point.
type SharesFigure struct {
	Shares int64
	AsOf   time.Time
}

// sharesConcepts are tried in order. The weighted-average figure is a
// fallback for filers that never tag the point-in-time concept.
var sharesConcepts = []string{
	"CommonStockSharesOutstanding",
	"WeightedAverageNumberOfSharesOutstandingBasic",
}

// SharesOutstanding returns the most recently dated shares figure across
// the recognized concepts, false when the filer tagged none of them.
func (f *CompanyFacts) SharesOutstanding() (SharesFigure, bool) {
	for _, concept := range sharesConcepts {
		facts, ok := f.Facts.USGAAP[concept]
		if !ok {
			continue
		}
		values, ok := facts.Units["shares"]
		if !ok {
			continue
		}

		var best SharesFigure
		found := false
		for _, v := range values {
			end, err := time.Parse("2006-01-02", v.End)
			if err != nil || v.Val <= 0 {
				continue
			}
			if !found || end.After(best.AsOf) {
				best = SharesFigure{Shares: int64(v.Val), AsOf: end.UTC()}
				found = true
			}
		}
		if found {
			return best, true
		}
	}
	return SharesFigure{}, false
}

// placeholderShares are values some filers tag instead of a real float.
// A figure matching one says nothing about the actual shares outstanding.
var placeholderShares = map[int64]bool{
	1:     true,
	10:    true,
	12:    true,
	100:   true,
	1000:  true,
	10000: true,
}

// minPublicFloat is the smallest credible float for a listed company. This
// rejects junk at acquisition time; the ranking floor is configured
// separately.
const minPublicFloat = 100_000

// Valid reports whether the figure is usable: not a placeholder, not below
// the minimum credible float, and no older than maxAge relative to now.
// The reason names the failed check.
func (fig SharesFigure) Valid(now time.Time, maxAge time.Duration) (bool, string) {
	if placeholderShares[fig.Shares] {
		return false, "placeholder value"
	}
	if fig.Shares < minPublicFloat {
		return false, "too few shares for a public company"
	}
	if fig.AsOf.IsZero() {
		return false, "no as-of date"
	}
	if now.Sub(fig.AsOf) > maxAge {
		return false, "stale figure"
	}
	return true, ""
}
