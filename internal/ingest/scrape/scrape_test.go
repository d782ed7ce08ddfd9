package scrape

import (
	"strings"
	"testing"
	"time"
)

const taxRollHTML = `
<html><body>
<h1>Delinquent Tax Roll</h1>
<table>
  <tr><th>APN</th><th>Owner</th><th>Address</th><th>City</th><th>State</th><th>Zip</th><th>Owed</th><th>Years</th></tr>
  <tr>
    <td>117-04-032</td><td>RAMIREZ, CARLOS J</td><td>4418 W Solano Dr</td>
    <td>Phoenix</td><td>AZ</td><td>85031</td><td>$8,425.00</td><td>2</td>
  </tr>
  <tr>
    <td>118-22-077</td><td>NGUYEN, LINH</td><td>912 S Roosevelt St</td>
    <td>Tempe</td><td>AZ</td><td>85281</td><td>$3,102.00</td><td>1</td>
  </tr>
  <tr>
    <td></td><td>MISSING APN</td><td>1 Nowhere Ln</td>
    <td>Phoenix</td><td>AZ</td><td>85001</td><td>$100.00</td><td>1</td>
  </tr>
</table>
</body></html>`

func TestParseTaxRecords(t *testing.T) {
	records, err := ParseTaxRecords(strings.NewReader(taxRollHTML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (rows without APN dropped)", len(records))
	}

	first := records[0]
	if first.APN != "117-04-032" {
		t.Errorf("apn = %q", first.APN)
	}
	if first.OwnerName != "RAMIREZ, CARLOS J" {
		t.Errorf("owner = %q", first.OwnerName)
	}
	if first.AmountOwedCents != 842500 {
		t.Errorf("amount = %d, want 842500", first.AmountOwedCents)
	}
	if first.YearsDelinquent != 2 {
		t.Errorf("years = %d, want 2", first.YearsDelinquent)
	}
}

func TestParseTaxRecordsEmptyDocument(t *testing.T) {
	records, err := ParseTaxRecords(strings.NewReader("<html><body><p>maintenance</p></body></html>"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}

const filingFeedHTML = `
<html><body>
<table>
  <tr><th>Address</th><th>City</th><th>State</th><th>Zip</th><th>Owner</th><th>Type</th><th>Filed</th><th>Auction</th></tr>
  <tr>
    <td>3302 N 36th St</td><td>Phoenix</td><td>AZ</td><td>85018</td>
    <td>DELGADO, RUBEN</td><td>Notice of Trustee Sale</td><td>2026-02-15</td><td>2026-04-01</td>
  </tr>
  <tr>
    <td>845 W Southern Ave</td><td>Mesa</td><td>AZ</td><td>85210</td>
    <td>KOWALSKI, ANNA</td><td>NOD</td><td>03/01/2026</td><td></td>
  </tr>
</table>
</body></html>`

func TestParseFilings(t *testing.T) {
	filings, err := ParseFilings(strings.NewReader(filingFeedHTML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(filings) != 2 {
		t.Fatalf("got %d filings, want 2", len(filings))
	}

	first := filings[0]
	if first.FilingType != "notice_of_trustee_sale" {
		t.Errorf("type = %q", first.FilingType)
	}
	if first.AuctionDate == nil || !first.AuctionDate.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("auction date = %v", first.AuctionDate)
	}

	second := filings[1]
	if second.FilingType != "notice_of_default" {
		t.Errorf("type = %q", second.FilingType)
	}
	if second.FiledAt == nil {
		t.Errorf("filed date should parse from 03/01/2026")
	}
	if second.AuctionDate != nil {
		t.Errorf("empty auction cell should stay nil")
	}
}

func TestNormalizeFilingType(t *testing.T) {
	cases := map[string]string{
		"Notice of Default":     "notice_of_default",
		"NOD":                   "notice_of_default",
		"Lis Pendens":           "lis_pendens",
		"Trustee's Sale Notice": "notice_of_trustee_sale",
		"Foreclosure Complaint": "pre_foreclosure",
	}
	for raw, want := range cases {
		if got := normalizeFilingType(raw); got != want {
			t.Errorf("normalizeFilingType(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseMoneyCents(t *testing.T) {
	cases := map[string]int64{
		"$8,425.00": 842500,
		"3102":      310200,
		"":          0,
		"n/a":       0,
	}
	for raw, want := range cases {
		if got := parseMoneyCents(raw); got != want {
			t.Errorf("parseMoneyCents(%q) = %d, want %d", raw, got, want)
		}
	}
}
