package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tvandenberg/thirteenf/internal/edgar"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// MockEdgarClient is a mock implementation of edgar.Client for testing.
// It serves registered fixtures instead of fetching from EDGAR.
type MockEdgarClient struct {
	// IndexEntries is returned by QuarterIndex regardless of quarter.
	IndexEntries []edgar.IndexEntry
	// Documents maps EDGAR archive paths to document bodies.
	Documents map[string][]byte
	// Tickers is returned by CompanyTickers.
	Tickers []edgar.TickerEntry
	// Facts maps CIKs to company-facts fixtures. Missing CIKs error,
	// matching the live endpoint's behavior for filers without facts.
	Facts map[string]*edgar.CompanyFacts
	// MockError is returned from every method when set.
	MockError error

	// Call counters for asserting fetch behavior, e.g. cache hits.
	IndexCalls    int
	DocumentCalls int
	TickerCalls   int
	FactsCalls    int
}

// NewMockEdgarClient creates an empty mock EDGAR client.
func NewMockEdgarClient() *MockEdgarClient {
	return &MockEdgarClient{
		Documents: map[string][]byte{},
		Facts:     map[string]*edgar.CompanyFacts{},
	}
}

// QuarterIndex mocks the form-index fetch with the registered entries.
func (m *MockEdgarClient) QuarterIndex(_ context.Context, _ model.Quarter) ([]edgar.IndexEntry, error) {
	m.IndexCalls++
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.IndexEntries, nil
}

// Document mocks a document fetch with the registered body.
func (m *MockEdgarClient) Document(_ context.Context, edgarPath string) ([]byte, error) {
	m.DocumentCalls++
	if m.MockError != nil {
		return nil, m.MockError
	}
	doc, ok := m.Documents[edgarPath]
	if !ok {
		return nil, fmt.Errorf("no mock document registered at %s", edgarPath)
	}
	return doc, nil
}

// CompanyTickers mocks the ticker-directory fetch.
func (m *MockEdgarClient) CompanyTickers(_ context.Context) ([]edgar.TickerEntry, error) {
	m.TickerCalls++
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.Tickers, nil
}

// CompanyFacts mocks the XBRL facts fetch for one CIK.
func (m *MockEdgarClient) CompanyFacts(_ context.Context, cik string) (*edgar.CompanyFacts, error) {
	m.FactsCalls++
	if m.MockError != nil {
		return nil, m.MockError
	}
	facts, ok := m.Facts[cik]
	if !ok {
		return nil, fmt.Errorf("no mock company facts registered for CIK %s", cik)
	}
	return facts, nil
}

// WithError configures the mock to return the specified error.
func (m *MockEdgarClient) WithError(err error) *MockEdgarClient {
	m.MockError = err
	return m
}

// WithFiling registers an index entry together with its document body, so
// the entry is both listed and fetchable.
func (m *MockEdgarClient) WithFiling(entry edgar.IndexEntry, document []byte) *MockEdgarClient {
	m.IndexEntries = append(m.IndexEntries, entry)
	m.Documents[entry.FileName] = document
	return m
}

// WithTickers configures the ticker directory.
func (m *MockEdgarClient) WithTickers(entries ...edgar.TickerEntry) *MockEdgarClient {
	m.Tickers = append(m.Tickers, entries...)
	return m
}

// WithFacts registers a company-facts fixture for a CIK.
func (m *MockEdgarClient) WithFacts(cik string, facts *edgar.CompanyFacts) *MockEdgarClient {
	m.Facts[cik] = facts
	return m
}

// CreateIndexEntry creates a form-index entry with a fresh accession number
// and the archive path EDGAR would list for it.
func CreateIndexEntry(cik, companyName, formType string, filed time.Time) edgar.IndexEntry {
	accession := MakeAccession()
	return edgar.IndexEntry{
		FormType:    formType,
		CompanyName: companyName,
		CIK:         cik,
		DateFiled:   filed,
		FileName:    fmt.Sprintf("edgar/data/%s/%s.txt", strings.TrimLeft(cik, "0"), accession),
	}
}

// InfoTableLine is one holding row for a generated 13F document. Value is
// in whole dollars, as reported on the form.
type InfoTableLine struct {
	IssuerName string
	CUSIP      string
	Shares     int64
	ValueUSD   int64
}

// Create13FDocument builds a full EDGAR 13F submission: SEC-HEADER with the
// given conformed form type and period ("20250630" style), and an
// information table carrying the given lines.
func Create13FDocument(formType, period string, lines []InfoTableLine) []byte {
	var b strings.Builder
	b.WriteString("<SEC-DOCUMENT>0000000000-00-000000.txt\n")
	b.WriteString("<SEC-HEADER>\n")
	fmt.Fprintf(&b, "CONFORMED SUBMISSION TYPE:\t%s\n", formType)
	fmt.Fprintf(&b, "CONFORMED PERIOD OF REPORT:\t%s\n", period)
	b.WriteString("</SEC-HEADER>\n")
	b.WriteString("<DOCUMENT>\n<TYPE>INFORMATION TABLE\n<SEQUENCE>2\n<FILENAME>infotable.xml\n<XML>\n")
	b.WriteString(`<informationTable xmlns="http://www.sec.gov/edgar/document/thirteenf/informationtable">` + "\n")
	for _, line := range lines {
		b.WriteString("  <infoTable>\n")
		fmt.Fprintf(&b, "    <nameOfIssuer>%s</nameOfIssuer>\n", line.IssuerName)
		b.WriteString("    <titleOfClass>COM</titleOfClass>\n")
		fmt.Fprintf(&b, "    <cusip>%s</cusip>\n", line.CUSIP)
		fmt.Fprintf(&b, "    <value>%d</value>\n", line.ValueUSD)
		b.WriteString("    <shrsOrPrnAmt>\n")
		fmt.Fprintf(&b, "      <sshPrnamt>%d</sshPrnamt>\n", line.Shares)
		b.WriteString("      <sshPrnamtType>SH</sshPrnamtType>\n")
		b.WriteString("    </shrsOrPrnAmt>\n")
		b.WriteString("  </infoTable>\n")
	}
	b.WriteString("</informationTable>\n</XML>\n</DOCUMENT>\n</SEC-DOCUMENT>\n")
	return []byte(b.String())
}

// CreateCompanyFacts creates a company-facts fixture carrying one
// point-in-time shares-outstanding figure dated asOf ("2025-06-30" style).
func CreateCompanyFacts(t *testing.T, cik int64, entityName string, shares int64, asOf string) *edgar.CompanyFacts {
	t.Helper()

	raw := fmt.Sprintf(`{
		"cik": %d,
		"entityName": %q,
		"facts": {
			"us-gaap": {
				"CommonStockSharesOutstanding": {
					"units": {"shares": [{"end": %q, "val": %d}]}
				}
			}
		}
	}`, cik, entityName, asOf, shares)

	var facts edgar.CompanyFacts
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		t.Fatalf("Failed to build company facts fixture: %v", err)
	}
	return &facts
}
