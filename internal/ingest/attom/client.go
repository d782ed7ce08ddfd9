// Package attom provides the HTTP client for the ATTOM property data API.
package attom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
)

const defaultHTTPTimeout = 15 * time.Second

// Client is the HTTP client for the ATTOM gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

// New creates a new ATTOM client, or nil when no API key is configured.
func New(cfg config.AttomConfig, log *logger.Logger) *Client {
	if !cfg.IsAttomEnabled() {
		log.Warn("attom api not configured, property enrichment disabled")
		return nil
	}

	rps := cfg.GetAttomRequestsPerSecond()
	if rps <= 0 {
		rps = 1
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.GetAttomBaseURL(), "/"),
		apiKey:     cfg.GetAttomAPIKey(),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		log:        log,
	}
}

// PropertyDetail is the normalized subset of ATTOM property data the
// enrichment pipeline uses.
type PropertyDetail struct {
	AttomID             string
	APN                 string
	PropertyType        string
	Beds                int
	Baths               float64
	Sqft                int
	LotSqft             int
	YearBuilt           int
	AssessedValueCents  int64
	OwnerName           string
	OwnerMailingAddress string
	OwnerOccupied       bool
	LastSaleDate        *time.Time
	LastSalePriceCents  int64
}

type detailResponse struct {
	Property []struct {
		Identifier struct {
			AttomID int64  `json:"attomId"`
			APN     string `json:"apn"`
		} `json:"identifier"`
		Summary struct {
			PropType  string `json:"proptype"`
			YearBuilt int    `json:"yearbuilt"`
			AbsOcc    string `json:"absenteeInd"`
		} `json:"summary"`
		Building struct {
			Rooms struct {
				Beds       int     `json:"beds"`
				BathsTotal float64 `json:"bathstotal"`
			} `json:"rooms"`
			Size struct {
				UniversalSize int `json:"universalsize"`
			} `json:"size"`
		} `json:"building"`
		Lot struct {
			LotSizeSqft float64 `json:"lotsize2"`
		} `json:"lot"`
		Assessment struct {
			Assessed struct {
				TotalValue float64 `json:"assdttlvalue"`
			} `json:"assessed"`
		} `json:"assessment"`
		Owner struct {
			Owner1 struct {
				Name string `json:"name"`
			} `json:"owner1"`
			MailingAddressOneLine string `json:"mailingaddressoneline"`
		} `json:"owner"`
		Sale struct {
			SaleSearchDate string `json:"salesearchdate"`
			Amount         struct {
				SaleAmt float64 `json:"saleamt"`
			} `json:"amount"`
		} `json:"sale"`
	} `json:"property"`
}

type avmResponse struct {
	Property []struct {
		AVM struct {
			Amount struct {
				Value float64 `json:"value"`
			} `json:"amount"`
		} `json:"avm"`
	} `json:"property"`
}

// GetDetail fetches property detail by street address.
func (c *Client) GetDetail(ctx context.Context, addressLine, cityStateZip string) (*PropertyDetail, error) {
	params := url.Values{}
	params.Set("address1", addressLine)
	params.Set("address2", cityStateZip)

	var payload detailResponse
	if err := c.get(ctx, "/property/detailwithschools", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Property) == 0 {
		return nil, nil
	}

	p := payload.Property[0]
	detail := &PropertyDetail{
		AttomID:             fmt.Sprintf("%d", p.Identifier.AttomID),
		APN:                 p.Identifier.APN,
		PropertyType:        strings.ToLower(p.Summary.PropType),
		Beds:                p.Building.Rooms.Beds,
		Baths:               p.Building.Rooms.BathsTotal,
		Sqft:                p.Building.Size.UniversalSize,
		LotSqft:             int(p.Lot.LotSizeSqft),
		YearBuilt:           p.Summary.YearBuilt,
		AssessedValueCents:  int64(p.Assessment.Assessed.TotalValue * 100),
		OwnerName:           p.Owner.Owner1.Name,
		OwnerMailingAddress: p.Owner.MailingAddressOneLine,
		OwnerOccupied:       !strings.EqualFold(p.Summary.AbsOcc, "ABSENTEE(MAIL AND SITUS NOT EQUAL)"),
		LastSalePriceCents:  int64(p.Sale.Amount.SaleAmt * 100),
	}
	if p.Sale.SaleSearchDate != "" {
		if saleDate, err := time.Parse("2006-01-02", p.Sale.SaleSearchDate); err == nil {
			detail.LastSaleDate = &saleDate
		}
	}
	return detail, nil
}

// GetAVM fetches the automated valuation for an address, in cents. Returns
// zero when no valuation exists.
func (c *Client) GetAVM(ctx context.Context, addressLine, cityStateZip string) (int64, error) {
	params := url.Values{}
	params.Set("address1", addressLine)
	params.Set("address2", cityStateZip)

	var payload avmResponse
	if err := c.get(ctx, "/attomavm/detail", params, &payload); err != nil {
		return 0, err
	}
	if len(payload.Property) == 0 {
		return 0, nil
	}
	return int64(payload.Property[0].AVM.Amount.Value * 100), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("attom request failed", "error", err, "path", path)
		return fmt.Errorf("attom request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return fmt.Errorf("attom unauthorized: invalid api key")
	case http.StatusNotFound:
		// No record for this address.
		return nil
	default:
		c.log.Error("attom upstream error", "status", resp.StatusCode, "path", path)
		return fmt.Errorf("attom upstream status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode attom response: %w", err)
	}
	return nil
}
