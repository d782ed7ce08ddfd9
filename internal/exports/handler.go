package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"
)

const (
	defaultCurrency = "USD"
	defaultTimezone = "UTC"
	dateLayout      = "2006-01-02"

	defaultExportLimit = 5000
	maxExportLimit     = 50000

	// Closed deals are reported at the standard assignment fee; actual
	// fees are not tracked per deal.
	dealWonValue = 10000.00
)

// Conversion names keyed by the pipeline status a lead moved into.
const (
	ConversionLeadResponded     = "Lead_Responded"
	ConversionDealUnderContract = "Deal_Under_Contract"
	ConversionDealWon           = "Deal_Won"
)

// Archiver stores a copy of each export file. Implemented by the storage
// service.
type Archiver interface {
	PutExportArchive(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
}

// Handler handles conversion export requests and API key management.
type Handler struct {
	repo     *Repository
	val      *validator.Validator
	archiver Archiver
	log      *logger.Logger
	now      func() time.Time
}

// NewHandler creates a new export handler.
func NewHandler(repo *Repository, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{repo: repo, val: val, log: log, now: time.Now}
}

// SetArchiver injects the optional export archive store.
func (h *Handler) SetArchiver(archiver Archiver) { h.archiver = archiver }

// ---- Admin API key management (JWT authenticated) ----

type CreateAPIKeyRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type CreateAPIKeyResponse struct {
	APIKey
	// Key is the plaintext key, shown exactly once at creation.
	Key string `json:"key"`
}

func (h *Handler) CreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate API key", nil)
		return
	}

	var createdBy *uuid.UUID
	if identity := httpkit.GetIdentity(c); identity != nil {
		id := identity.UserID()
		createdBy = &id
	}

	key, err := h.repo.CreateAPIKey(c.Request.Context(), req.Name, hash, prefix, createdBy)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, CreateAPIKeyResponse{APIKey: key, Key: plaintext})
}

func (h *Handler) ListAPIKeys(c *gin.Context) {
	keys, err := h.repo.ListAPIKeys(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, keys)
}

func (h *Handler) RevokeAPIKey(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key id", nil)
		return
	}

	if err := h.repo.RevokeAPIKey(c.Request.Context(), keyID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "revoked"})
}

// ---- Conversion CSV export (API key authenticated) ----

// ExportConversionsCSV streams conversion events as CSV for ad-platform
// offline conversion import. Rows already exported under the same order id
// are skipped.
func (h *Handler) ExportConversionsCSV(c *gin.Context) {
	if keyID, ok := c.Get(contextKeyID); ok {
		if id, ok := keyID.(uuid.UUID); ok {
			h.repo.TouchAPIKey(c.Request.Context(), id)
		}
	}

	from, to, err := parseDateRange(c, h.now())
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}
	location, tzName, err := parseTimezone(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid timezone", nil)
		return
	}
	limit := parseLimit(c, defaultExportLimit, maxExportLimit)
	currency := strings.ToUpper(strings.TrimSpace(c.DefaultQuery("currency", defaultCurrency)))
	enhanced := parseBool(c.Query("enhanced"))

	events, err := h.repo.ListConversionEvents(c.Request.Context(), from, to, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	rows := buildConversionRows(events, location, currency)
	exportedKeys, err := h.repo.ListExportedKeys(c.Request.Context(), collectOrderIDs(rows))
	if httpkit.HandleError(c, err) {
		return
	}

	var buf bytes.Buffer
	records, err := writeConversionCSV(&buf, rows, exportedKeys, tzName, enhanced)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to build export", nil)
		return
	}

	if err := h.repo.RecordExports(c.Request.Context(), records); err != nil {
		h.log.Error("failed to record exported conversions", "error", err)
	}
	h.archive(c.Request.Context(), buf.Bytes(), len(records))

	c.Header("Content-Disposition", "attachment; filename=conversions.csv")
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *Handler) archive(ctx context.Context, payload []byte, rows int) {
	if h.archiver == nil || rows == 0 {
		return
	}
	key := fmt.Sprintf("exports/conversions/%s.csv", h.now().UTC().Format("20060102T150405Z"))
	if _, err := h.archiver.PutExportArchive(ctx, key, "text/csv", bytes.NewReader(payload), int64(len(payload))); err != nil {
		h.log.Error("failed to archive conversion export", "key", key, "error", err)
	}
}

// ---- Helpers ----

type conversionRow struct {
	LeadID          uuid.UUID
	ConversionName  string
	ConversionTime  time.Time
	ConversionValue float64
	Currency        string
	OrderID         string
	OwnerName       string
	Address         string
}

func (r conversionRow) fields(enhanced bool) []string {
	fields := []string{
		r.OrderID,
		r.ConversionName,
		r.ConversionTime.Format("2006-01-02 15:04:05-0700"),
		strconv.FormatFloat(r.ConversionValue, 'f', 2, 64),
		r.Currency,
	}
	if enhanced {
		fields = append(fields, r.OwnerName, r.Address)
	}
	return fields
}

func csvHeaders(enhanced bool) []string {
	headers := []string{
		"Order ID",
		"Conversion Name",
		"Conversion Time",
		"Conversion Value",
		"Conversion Currency",
	}
	if enhanced {
		headers = append(headers, "Owner Name", "Property Address")
	}
	return headers
}

func buildConversionRows(events []ConversionEvent, location *time.Location, currency string) []conversionRow {
	rows := make([]conversionRow, 0, len(events))
	for _, event := range events {
		name := mapConversionName(event.ToStatus)
		if name == "" {
			continue
		}
		rows = append(rows, conversionRow{
			LeadID:          event.LeadID,
			ConversionName:  name,
			ConversionTime:  event.OccurredAt.In(location),
			ConversionValue: conversionValue(name),
			Currency:        currency,
			OrderID:         event.EventID.String(),
			OwnerName:       event.OwnerName,
			Address:         event.Address,
		})
	}
	return rows
}

// mapConversionName maps a pipeline status to its ad-platform conversion
// name. Statuses outside the funnel milestones export nothing.
func mapConversionName(toStatus string) string {
	switch toStatus {
	case "responded":
		return ConversionLeadResponded
	case "under_contract":
		return ConversionDealUnderContract
	case "closed":
		return ConversionDealWon
	default:
		return ""
	}
}

func conversionValue(conversionName string) float64 {
	if conversionName == ConversionDealWon {
		return dealWonValue
	}
	return 0
}

func collectOrderIDs(rows []conversionRow) []string {
	orderIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		orderIDs = append(orderIDs, row.OrderID)
	}
	return orderIDs
}

func writeConversionCSV(w io.Writer, rows []conversionRow, exportedKeys map[string]struct{}, tzName string, enhanced bool) ([]ExportRecord, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{fmt.Sprintf("Parameters:TimeZone=%s", tzName)}); err != nil {
		return nil, err
	}
	if err := writer.Write(csvHeaders(enhanced)); err != nil {
		return nil, err
	}

	records := make([]ExportRecord, 0, len(rows))
	for _, row := range rows {
		if _, exists := exportedKeys[row.OrderID+"::"+row.ConversionName]; exists {
			continue
		}
		if err := writer.Write(row.fields(enhanced)); err != nil {
			return nil, err
		}
		records = append(records, ExportRecord{
			LeadID:          row.LeadID,
			ConversionName:  row.ConversionName,
			ConversionTime:  row.ConversionTime,
			ConversionValue: row.ConversionValue,
			OrderID:         row.OrderID,
		})
	}

	writer.Flush()
	return records, writer.Error()
}

func parseDateRange(c *gin.Context, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	from := now.AddDate(0, 0, -90)
	to := now

	if raw := strings.TrimSpace(c.Query("fromDate")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := strings.TrimSpace(c.Query("toDate")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("toDate before fromDate")
	}
	return from, to, nil
}

func parseTimezone(c *gin.Context) (*time.Location, string, error) {
	tzName := strings.TrimSpace(c.DefaultQuery("timezone", defaultTimezone))
	location, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, "", err
	}
	return location, tzName, nil
}

func parseLimit(c *gin.Context, fallback, max int) int {
	limit := fallback
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit > max {
		return max
	}
	if limit < 1 {
		return fallback
	}
	return limit
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}
