package exports

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMapConversionName(t *testing.T) {
	cases := []struct {
		toStatus string
		want     string
	}{
		{"responded", ConversionLeadResponded},
		{"under_contract", ConversionDealUnderContract},
		{"closed", ConversionDealWon},
		{"contacted", ""},
		{"dead", ""},
	}
	for _, tc := range cases {
		if got := mapConversionName(tc.toStatus); got != tc.want {
			t.Fatalf("mapConversionName(%q) = %q, want %q", tc.toStatus, got, tc.want)
		}
	}
}

func TestConversionValueOnlyForDealWon(t *testing.T) {
	if got := conversionValue(ConversionDealWon); got != dealWonValue {
		t.Fatalf("Deal_Won value = %v", got)
	}
	if got := conversionValue(ConversionLeadResponded); got != 0 {
		t.Fatalf("Lead_Responded value = %v, want 0", got)
	}
}

func TestBuildConversionRowsSkipsNonMilestones(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	events := []ConversionEvent{
		{EventID: uuid.New(), LeadID: uuid.New(), ToStatus: "closed", OccurredAt: occurred},
		{EventID: uuid.New(), LeadID: uuid.New(), ToStatus: "negotiating", OccurredAt: occurred},
		{EventID: uuid.New(), LeadID: uuid.New(), ToStatus: "responded", OccurredAt: occurred},
	}

	rows := buildConversionRows(events, time.UTC, "USD")
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ConversionName != ConversionDealWon || rows[0].ConversionValue != dealWonValue {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].ConversionName != ConversionLeadResponded {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
	if rows[0].Currency != "USD" {
		t.Fatalf("currency = %q", rows[0].Currency)
	}
}

func TestWriteConversionCSVDeduplicates(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	dup := conversionRow{
		LeadID:         uuid.New(),
		ConversionName: ConversionLeadResponded,
		ConversionTime: occurred,
		Currency:       "USD",
		OrderID:        "order-1",
	}
	fresh := conversionRow{
		LeadID:          uuid.New(),
		ConversionName:  ConversionDealWon,
		ConversionTime:  occurred,
		ConversionValue: dealWonValue,
		Currency:        "USD",
		OrderID:         "order-2",
	}

	exported := map[string]struct{}{"order-1::" + ConversionLeadResponded: {}}

	var buf bytes.Buffer
	records, err := writeConversionCSV(&buf, []conversionRow{dup, fresh}, exported, "UTC", false)
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}

	if len(records) != 1 || records[0].OrderID != "order-2" {
		t.Fatalf("unexpected records: %+v", records)
	}

	out := buf.String()
	if !strings.Contains(out, "Parameters:TimeZone=UTC") {
		t.Fatalf("missing timezone preamble:\n%s", out)
	}
	if strings.Contains(out, "order-1") {
		t.Fatalf("duplicate row was written:\n%s", out)
	}
	if !strings.Contains(out, "order-2") || !strings.Contains(out, "10000.00") {
		t.Fatalf("fresh row missing:\n%s", out)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// Preamble, header, one data row.
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
}

func TestWriteConversionCSVEnhancedColumns(t *testing.T) {
	row := conversionRow{
		LeadID:         uuid.New(),
		ConversionName: ConversionDealUnderContract,
		ConversionTime: time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC),
		Currency:       "USD",
		OrderID:        "order-9",
		OwnerName:      "John Smith",
		Address:        "123 Main St, Phoenix, AZ 85001",
	}

	var buf bytes.Buffer
	if _, err := writeConversionCSV(&buf, []conversionRow{row}, nil, "UTC", true); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Owner Name") || !strings.Contains(out, "John Smith") {
		t.Fatalf("enhanced columns missing:\n%s", out)
	}
}

func TestGenerateAPIKeyHashRoundTrip(t *testing.T) {
	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(plaintext, apiKeyPrefix) {
		t.Fatalf("plaintext %q missing prefix", plaintext)
	}
	if prefix != plaintext[:12] {
		t.Fatalf("prefix = %q", prefix)
	}
	if HashKey(plaintext) != hash {
		t.Fatalf("hash mismatch")
	}
	if strings.Contains(hash, plaintext) {
		t.Fatalf("hash leaks plaintext")
	}
}
