package normalize_test

import (
	"testing"

	"github.com/tvandenberg/thirteenf/internal/normalize"
)

const embeddedTableXML = `<?xml version="1.0" encoding="UTF-8"?>
<ns1:informationTable xmlns:ns1="http://www.sec.gov/edgar/document/thirteenf/informationtable">
  <ns1:infoTable>
    <ns1:nameOfIssuer>ARROW FINL CORP</ns1:nameOfIssuer>
    <ns1:titleOfClass>COM</ns1:titleOfClass>
    <ns1:cusip>042744102</ns1:cusip>
    <ns1:value>2850000</ns1:value>
    <ns1:shrsOrPrnAmt>
      <ns1:sshPrnamt>95000</ns1:sshPrnamt>
      <ns1:sshPrnamtType>SH</ns1:sshPrnamtType>
    </ns1:shrsOrPrnAmt>
  </ns1:infoTable>
  <ns1:infoTable>
    <ns1:nameOfIssuer>SOME BOND LLC</ns1:nameOfIssuer>
    <ns1:titleOfClass>NOTE</ns1:titleOfClass>
    <ns1:cusip>123456AB7</ns1:cusip>
    <ns1:value>500000</ns1:value>
    <ns1:shrsOrPrnAmt>
      <ns1:sshPrnamt>500000</ns1:sshPrnamt>
      <ns1:sshPrnamtType>PRN</ns1:sshPrnamtType>
    </ns1:shrsOrPrnAmt>
  </ns1:infoTable>
  <ns1:infoTable>
    <ns1:nameOfIssuer>FRACTIONAL INC</ns1:nameOfIssuer>
    <ns1:titleOfClass>COM</ns1:titleOfClass>
    <ns1:cusip>35952H601</ns1:cusip>
    <ns1:value>101.0</ns1:value>
    <ns1:shrsOrPrnAmt>
      <ns1:sshPrnamt>42.0</ns1:sshPrnamt>
      <ns1:sshPrnamtType>SH</ns1:sshPrnamtType>
    </ns1:shrsOrPrnAmt>
  </ns1:infoTable>
</ns1:informationTable>`

const fullSubmission = `<SEC-DOCUMENT>0000919185-25-000042.txt : 20250811
<SEC-HEADER>0000919185-25-000042.hdr.sgml : 20250811
ACCESSION NUMBER:		0000919185-25-000042
CONFORMED SUBMISSION TYPE:	13F-HR
CONFORMED PERIOD OF REPORT:	20250630
FILED AS OF DATE:		20250811
</SEC-HEADER>
<DOCUMENT>
<TYPE>13F-HR
<SEQUENCE>1
<FILENAME>primary_doc.xml
<XML>
<edgarSubmission xmlns="http://www.sec.gov/edgar/thirteenffiler"></edgarSubmission>
</XML>
</DOCUMENT>
<DOCUMENT>
<TYPE>INFORMATION TABLE
<SEQUENCE>2
<FILENAME>infotable.xml
<XML>
<informationTable xmlns="http://www.sec.gov/edgar/document/thirteenf/informationtable">
  <infoTable>
    <nameOfIssuer>ARROW FINL CORP</nameOfIssuer>
    <titleOfClass>COM</titleOfClass>
    <cusip>042744102</cusip>
    <value>2850000</value>
    <shrsOrPrnAmt>
      <sshPrnamt>95000</sshPrnamt>
      <sshPrnamtType>SH</sshPrnamtType>
    </shrsOrPrnAmt>
  </infoTable>
</informationTable>
</XML>
</DOCUMENT>
</SEC-DOCUMENT>`

// TestParseDocumentEmbeddedXML parses a standalone, namespace-prefixed
// information table.
// WHY: filers submit both prefixed and default-namespace tables; the parser
// must be indifferent to the prefix style.
func TestParseDocumentEmbeddedXML(t *testing.T) {
	doc, err := normalize.ParseDocument([]byte(embeddedTableXML))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	if len(doc.Lines) != 2 {
		t.Fatalf("expected 2 share lines, got %d", len(doc.Lines))
	}
	if doc.PrincipalLines != 1 {
		t.Errorf("expected 1 principal-amount line excluded, got %d", doc.PrincipalLines)
	}

	first := doc.Lines[0]
	if first.CUSIP != "042744102" {
		t.Errorf("cusip = %q, want 042744102", first.CUSIP)
	}
	if first.IssuerName != "ARROW FINL CORP" {
		t.Errorf("issuer = %q", first.IssuerName)
	}
	if first.Shares != 95000 {
		t.Errorf("shares = %d, want 95000", first.Shares)
	}
	// 2,850,000 reported dollars -> millicents.
	if first.ValueMillicents != 2850000*1000 {
		t.Errorf("value = %d millicents, want %d", first.ValueMillicents, 2850000*1000)
	}

	// Decimal notation is tolerated for integral quantities.
	if doc.Lines[1].Shares != 42 || doc.Lines[1].ValueMillicents != 101*1000 {
		t.Errorf("fractional row parsed as shares=%d value=%d", doc.Lines[1].Shares, doc.Lines[1].ValueMillicents)
	}
}

// TestParseDocumentFullSubmission parses the multi-document submission
// layout and confirms both layouts yield identical records.
func TestParseDocumentFullSubmission(t *testing.T) {
	doc, err := normalize.ParseDocument([]byte(fullSubmission))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	if doc.FormType != "13F-HR" {
		t.Errorf("form type = %q, want 13F-HR", doc.FormType)
	}
	if got := doc.PeriodOfReport.Format("2006-01-02"); got != "2025-06-30" {
		t.Errorf("period = %s, want 2025-06-30", got)
	}
	if len(doc.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(doc.Lines))
	}

	embedded, err := normalize.ParseDocument([]byte(embeddedTableXML))
	if err != nil {
		t.Fatalf("ParseDocument(embedded): %v", err)
	}
	if doc.Lines[0] != embedded.Lines[0] {
		t.Errorf("layouts disagree: %+v vs %+v", doc.Lines[0], embedded.Lines[0])
	}
}

// TestParseDocumentNoInfoTable rejects submissions without an information
// table rather than returning empty holdings.
func TestParseDocumentNoInfoTable(t *testing.T) {
	raw := `<SEC-DOCUMENT>
<DOCUMENT>
<TYPE>13F-HR
<SEQUENCE>1
<XML>
<edgarSubmission></edgarSubmission>
</XML>
</DOCUMENT>
</SEC-DOCUMENT>`

	if _, err := normalize.ParseDocument([]byte(raw)); err == nil {
		t.Fatal("expected error for submission without information table")
	}
}
