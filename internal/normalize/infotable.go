// Package normalize converts raw 13F filing documents into canonical
// HoldingRecords: it parses the information-table XML, excludes amendments,
// rejects malformed lines, and resolves duplicate original filings
// deterministically.
package normalize

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tvandenberg/thirteenf/internal/model"
)

// millicentsPerDollar converts reported whole-dollar values into the
// pipeline's internal unit. Information tables report values in USD
// (thousands before the 2023 reporting change, which predates every quarter
// this system ingests).
const millicentsPerDollar = 1000

// ParsedDocument is the raw yield of one 13F document before normalization.
type ParsedDocument struct {
	// FormType comes from the SEC-HEADER when the document is a full
	// submission; empty for a bare information-table XML.
	FormType string
	// PeriodOfReport is the conformed reporting period, zero when absent.
	PeriodOfReport time.Time
	// Lines are the share-type (SH) information-table rows.
	Lines []model.HoldingLine
	// SkippedLines counts rows dropped because a numeric field would not
	// parse. PrincipalLines counts principal-amount (PRN) rows, which
	// report debt positions and never participate in share analysis.
	SkippedLines   int
	PrincipalLines int
}

// informationTable mirrors the EDGAR 13F information-table schema. Field
// tags use local names only, so documents with or without a namespace
// prefix both decode.
type informationTable struct {
	XMLName xml.Name         `xml:"informationTable"`
	Entries []infoTableEntry `xml:"infoTable"`
}

type infoTableEntry struct {
	NameOfIssuer string `xml:"nameOfIssuer"`
	TitleOfClass string `xml:"titleOfClass"`
	CUSIP        string `xml:"cusip"`
	Value        string `xml:"value"`
	ShrsOrPrnAmt struct {
		Amount string `xml:"sshPrnamt"`
		Type   string `xml:"sshPrnamtType"`
	} `xml:"shrsOrPrnAmt"`
}

// ParseDocument extracts information-table lines from a raw 13F document.
// Both EDGAR layouts are handled: a full submission whose INFORMATION TABLE
// document wraps the XML in <XML> markers, and a standalone XML document.
func ParseDocument(data []byte) (*ParsedDocument, error) {
	doc := &ParsedDocument{
		FormType: headerValue(data, "CONFORMED SUBMISSION TYPE:"),
	}
	if v := headerValue(data, "CONFORMED PERIOD OF REPORT:"); v != "" {
		if t, err := time.Parse("20060102", v); err == nil {
			doc.PeriodOfReport = t
		}
	}

	body, err := extractInfoTableXML(data)
	if err != nil {
		return nil, err
	}

	var table informationTable
	if err := xml.Unmarshal(body, &table); err != nil {
		return nil, fmt.Errorf("failed to decode information table: %w", err)
	}

	for _, entry := range table.Entries {
		if strings.EqualFold(strings.TrimSpace(entry.ShrsOrPrnAmt.Type), "PRN") {
			doc.PrincipalLines++
			continue
		}
		shares, err := parseAmount(entry.ShrsOrPrnAmt.Amount)
		if err != nil {
			doc.SkippedLines++
			continue
		}
		dollars, err := parseAmount(entry.Value)
		if err != nil {
			doc.SkippedLines++
			continue
		}
		doc.Lines = append(doc.Lines, model.HoldingLine{
			CUSIP:           strings.TrimSpace(entry.CUSIP),
			IssuerName:      strings.TrimSpace(entry.NameOfIssuer),
			Shares:          shares,
			ValueMillicents: dollars * millicentsPerDollar,
		})
	}

	return doc, nil
}

// extractInfoTableXML locates the information-table XML body. Full
// submissions carry multiple <DOCUMENT> sections; the one typed
// INFORMATION TABLE wraps its payload in <XML> markers. Documents without
// <DOCUMENT> markers are assumed to be the XML itself.
func extractInfoTableXML(data []byte) ([]byte, error) {
	if !bytes.Contains(data, []byte("<DOCUMENT>")) {
		return bytes.TrimSpace(data), nil
	}

	rest := data
	for {
		start := bytes.Index(rest, []byte("<DOCUMENT>"))
		if start < 0 {
			return nil, fmt.Errorf("no INFORMATION TABLE document in submission")
		}
		rest = rest[start+len("<DOCUMENT>"):]

		end := bytes.Index(rest, []byte("</DOCUMENT>"))
		section := rest
		if end >= 0 {
			section = rest[:end]
		}

		if infoTableSection(section) {
			xmlStart := bytes.Index(section, []byte("<XML>"))
			xmlEnd := bytes.Index(section, []byte("</XML>"))
			if xmlStart < 0 || xmlEnd < 0 || xmlEnd <= xmlStart {
				return nil, fmt.Errorf("INFORMATION TABLE document has no <XML> body")
			}
			return bytes.TrimSpace(section[xmlStart+len("<XML>") : xmlEnd]), nil
		}

		if end < 0 {
			return nil, fmt.Errorf("no INFORMATION TABLE document in submission")
		}
		rest = rest[end+len("</DOCUMENT>"):]
	}
}

// infoTableSection reports whether a <DOCUMENT> section's TYPE is an
// information table.
func infoTableSection(section []byte) bool {
	idx := bytes.Index(section, []byte("<TYPE>"))
	if idx < 0 {
		return false
	}
	line := section[idx+len("<TYPE>"):]
	if nl := bytes.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	// The TYPE value may share its line with the next tag.
	if tag := bytes.IndexByte(line, '<'); tag >= 0 {
		line = line[:tag]
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(string(line))), "INFORMATION TABLE")
}

// headerValue scans the SEC-HEADER region for "KEY:\tvalue" style entries.
func headerValue(data []byte, key string) string {
	idx := bytes.Index(data, []byte(key))
	if idx < 0 {
		return ""
	}
	line := data[idx+len(key):]
	if nl := bytes.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	return strings.TrimSpace(string(line))
}

// parseAmount converts a reported numeric field. Filers occasionally emit
// decimal notation ("1234.0") for integral quantities.
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("bad amount %q: %w", s, err)
		}
		return int64(f), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q: %w", s, err)
	}
	return n, nil
}
