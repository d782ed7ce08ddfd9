// Package service implements the ingest pipeline: county tax and foreclosure
// imports, external property enrichment, and data source management.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/ingest/attom"
	"dealflow_backend/internal/ingest/repository"
	"dealflow_backend/internal/ingest/scrape"
	"dealflow_backend/internal/ingest/transport"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/sanitize"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200

	enrichBatchSize   = 100
	enrichConcurrency = 4

	maxRunErrors = 50
)

// PropertyRecord carries the fields the pipeline writes for a property.
type PropertyRecord struct {
	AddressLine          string
	City                 string
	State                string
	Zip                  string
	County               string
	APN                  string
	PropertyType         string
	Beds                 int
	Baths                float64
	Sqft                 int
	LotSqft              int
	YearBuilt            int
	AssessedValueCents   int64
	EstimatedValueCents  int64
	MortgageBalanceCents int64
	LastSaleDate         *time.Time
	LastSalePriceCents   int64
	OwnerName            string
	OwnerMailingAddress  string
	OwnerOccupied        bool
	Source               string
	AttomID              string
}

// Indicator is a distress signal the pipeline attaches to a property.
type Indicator struct {
	Type        string
	Severity    int
	AuctionDate *time.Time
	Source      string
	Details     string
}

// EnrichTarget identifies a property waiting for external enrichment.
type EnrichTarget struct {
	ID          uuid.UUID
	AddressLine string
	City        string
	State       string
	Zip         string
	County      string
	APN         string
}

// PropertyCatalog provides access to the property inventory owned by another
// module.
type PropertyCatalog interface {
	Upsert(ctx context.Context, record PropertyRecord) (uuid.UUID, bool, error)
	AddIndicator(ctx context.Context, propertyID uuid.UUID, ind Indicator) error
	ListUnenriched(ctx context.Context, limit int) ([]EnrichTarget, error)
}

// LeadCreator creates pipeline leads for qualifying properties.
type LeadCreator interface {
	PreviewScore(ctx context.Context, propertyID uuid.UUID) (int, error)
	CreateFromIngest(ctx context.Context, propertyID uuid.UUID, ownerName, source string) (bool, error)
}

// TaxSource fetches the county delinquent tax roll.
type TaxSource interface {
	Fetch(ctx context.Context) ([]scrape.TaxRecord, error)
}

// FilingSource fetches the pre-foreclosure filing feed.
type FilingSource interface {
	Fetch(ctx context.Context) ([]scrape.Filing, error)
}

// Enricher fetches external property data. Implemented by the ATTOM client.
type Enricher interface {
	GetDetail(ctx context.Context, addressLine, cityStateZip string) (*attom.PropertyDetail, error)
	GetAVM(ctx context.Context, addressLine, cityStateZip string) (int64, error)
}

// SnapshotArchiver stores the raw payload of an import run.
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, runID uuid.UUID, sourceKey string, payload []byte) (string, error)
}

// Enqueuer schedules a source run on the task queue.
type Enqueuer interface {
	EnqueueSourceRun(ctx context.Context, sourceKey string) error
}

// Service implements the ingest pipeline and source management.
type Service struct {
	repo     repository.Repository
	props    PropertyCatalog
	leads    LeadCreator
	taxes    TaxSource
	filings  FilingSource
	enricher Enricher
	archiver SnapshotArchiver
	enqueuer Enqueuer
	bus      events.Bus
	log      *logger.Logger
	minScore int
}

// New creates a new ingest service. enricher and archiver may be nil when the
// corresponding integrations are not configured.
func New(repo repository.Repository, props PropertyCatalog, leads LeadCreator,
	taxes TaxSource, filings FilingSource, enricher Enricher, archiver SnapshotArchiver,
	enqueuer Enqueuer, bus events.Bus, log *logger.Logger, minScore int) *Service {
	return &Service{
		repo:     repo,
		props:    props,
		leads:    leads,
		taxes:    taxes,
		filings:  filings,
		enricher: enricher,
		archiver: archiver,
		enqueuer: enqueuer,
		bus:      bus,
		log:      log,
		minScore: minScore,
	}
}

// RunSource executes one import for the named source and records the run.
func (s *Service) RunSource(ctx context.Context, sourceKey string) (repository.ImportRun, error) {
	source, err := s.repo.GetSourceByKey(ctx, sourceKey)
	if err != nil {
		return repository.ImportRun{}, err
	}

	run, err := s.repo.CreateRun(ctx, source.Key)
	if err != nil {
		return repository.ImportRun{}, err
	}

	switch source.Type {
	case repository.SourceCountyTax:
		err = s.runCountyTax(ctx, source, &run)
	case repository.SourceForeclosure:
		err = s.runForeclosure(ctx, source, &run)
	case repository.SourceAttom:
		err = s.runEnrichment(ctx, source, &run)
	default:
		err = apperr.Validation("unknown source type " + source.Type)
	}

	run.Status = repository.RunCompleted
	if err != nil {
		run.Status = repository.RunFailed
		run.Errors = appendRunError(run.Errors, err.Error())
		s.log.Error("import run failed", "source", source.Key, "error", err)
	}

	finished, finishErr := s.repo.FinishRun(ctx, run)
	if finishErr != nil {
		return run, finishErr
	}
	if touchErr := s.repo.TouchLastRun(ctx, source.Key); touchErr != nil {
		s.log.Warn("touch source last run failed", "source", source.Key, "error", touchErr)
	}

	s.bus.Publish(ctx, events.ImportRunCompleted{
		BaseEvent:      events.NewBaseEvent(),
		RunID:          finished.ID,
		SourceKey:      source.Key,
		RecordsFound:   finished.RecordsFound,
		RecordsCreated: finished.RecordsCreated,
		RecordsUpdated: finished.RecordsUpdated,
		RecordsFailed:  finished.RecordsFailed,
	})
	s.log.ImportRun(source.Key, finished.RecordsFound, finished.RecordsCreated,
		finished.RecordsUpdated, finished.RecordsFailed)

	return finished, err
}

func (s *Service) runCountyTax(ctx context.Context, source repository.DataSource, run *repository.ImportRun) error {
	records, err := s.taxes.Fetch(ctx)
	if err != nil {
		return err
	}
	run.RecordsFound = len(records)
	s.archive(ctx, run, records)

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		propertyID, created, err := s.props.Upsert(ctx, PropertyRecord{
			AddressLine: record.AddressLine,
			City:        record.City,
			State:       record.State,
			Zip:         record.Zip,
			County:      source.County,
			APN:         record.APN,
			OwnerName:   record.OwnerName,
			Source:      source.Key,
		})
		if err != nil {
			run.RecordsFailed++
			run.Errors = appendRunError(run.Errors, fmt.Sprintf("apn %s: %v", record.APN, err))
			continue
		}
		if created {
			run.RecordsCreated++
		} else {
			run.RecordsUpdated++
		}

		indicator := Indicator{
			Type:     "tax_lien",
			Severity: taxLienSeverity(record.YearsDelinquent),
			Source:   source.Key,
			Details: fmt.Sprintf("delinquent $%.2f over %d years",
				float64(record.AmountOwedCents)/100, record.YearsDelinquent),
		}
		if err := s.props.AddIndicator(ctx, propertyID, indicator); err != nil {
			run.Errors = appendRunError(run.Errors, fmt.Sprintf("apn %s indicator: %v", record.APN, err))
		}

		s.maybeCreateLead(ctx, run, propertyID, record.OwnerName, source.Key)
	}
	return nil
}

func (s *Service) runForeclosure(ctx context.Context, source repository.DataSource, run *repository.ImportRun) error {
	filings, err := s.filings.Fetch(ctx)
	if err != nil {
		return err
	}
	run.RecordsFound = len(filings)
	s.archive(ctx, run, filings)

	for _, filing := range filings {
		if err := ctx.Err(); err != nil {
			return err
		}

		propertyID, created, err := s.props.Upsert(ctx, PropertyRecord{
			AddressLine: filing.AddressLine,
			City:        filing.City,
			State:       filing.State,
			Zip:         filing.Zip,
			County:      source.County,
			APN:         apnFromAddress(filing.AddressLine, filing.Zip),
			OwnerName:   filing.OwnerName,
			Source:      source.Key,
		})
		if err != nil {
			run.RecordsFailed++
			run.Errors = appendRunError(run.Errors, fmt.Sprintf("%s: %v", filing.AddressLine, err))
			continue
		}
		if created {
			run.RecordsCreated++
		} else {
			run.RecordsUpdated++
		}

		indicator := Indicator{
			Type:        "pre_foreclosure",
			Severity:    filingSeverity(filing.FilingType),
			AuctionDate: filing.AuctionDate,
			Source:      source.Key,
			Details:     sanitize.Text(filing.FilingType),
		}
		if err := s.props.AddIndicator(ctx, propertyID, indicator); err != nil {
			run.Errors = appendRunError(run.Errors, fmt.Sprintf("%s indicator: %v", filing.AddressLine, err))
		}

		s.maybeCreateLead(ctx, run, propertyID, filing.OwnerName, source.Key)
	}
	return nil
}

// runEnrichment enriches properties missing external data, with bounded
// concurrency against the provider's rate limit.
func (s *Service) runEnrichment(ctx context.Context, source repository.DataSource, run *repository.ImportRun) error {
	if s.enricher == nil {
		return apperr.Unavailable("property enrichment is not configured")
	}

	targets, err := s.props.ListUnenriched(ctx, enrichBatchSize)
	if err != nil {
		return err
	}
	run.RecordsFound = len(targets)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for _, target := range targets {
		g.Go(func() error {
			updated, err := s.enrichOne(gctx, source, target)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				run.RecordsFailed++
				run.Errors = appendRunError(run.Errors, fmt.Sprintf("%s: %v", target.AddressLine, err))
				return nil
			}
			if updated {
				run.RecordsUpdated++
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) enrichOne(ctx context.Context, source repository.DataSource, target EnrichTarget) (bool, error) {
	cityStateZip := fmt.Sprintf("%s, %s %s", target.City, target.State, target.Zip)

	detail, err := s.enricher.GetDetail(ctx, target.AddressLine, cityStateZip)
	if err != nil {
		return false, err
	}
	if detail == nil {
		return false, nil
	}

	avmCents, err := s.enricher.GetAVM(ctx, target.AddressLine, cityStateZip)
	if err != nil {
		s.log.Warn("avm lookup failed", "address", target.AddressLine, "error", err)
	}

	record := PropertyRecord{
		AddressLine:         target.AddressLine,
		City:                target.City,
		State:               target.State,
		Zip:                 target.Zip,
		County:              target.County,
		APN:                 target.APN,
		PropertyType:        detail.PropertyType,
		Beds:                detail.Beds,
		Baths:               detail.Baths,
		Sqft:                detail.Sqft,
		LotSqft:             detail.LotSqft,
		YearBuilt:           detail.YearBuilt,
		AssessedValueCents:  detail.AssessedValueCents,
		EstimatedValueCents: avmCents,
		LastSaleDate:        detail.LastSaleDate,
		LastSalePriceCents:  detail.LastSalePriceCents,
		OwnerName:           detail.OwnerName,
		OwnerMailingAddress: detail.OwnerMailingAddress,
		OwnerOccupied:       detail.OwnerOccupied,
		Source:              source.Key,
		AttomID:             detail.AttomID,
	}

	if _, _, err := s.props.Upsert(ctx, record); err != nil {
		return false, err
	}

	s.bus.Publish(ctx, events.PropertyEnriched{
		BaseEvent:  events.NewBaseEvent(),
		PropertyID: target.ID,
		Source:     source.Key,
	})
	return true, nil
}

// maybeCreateLead auto-creates a pipeline lead when the property's projected
// score clears the configured threshold.
func (s *Service) maybeCreateLead(ctx context.Context, run *repository.ImportRun, propertyID uuid.UUID, ownerName, sourceKey string) {
	score, err := s.leads.PreviewScore(ctx, propertyID)
	if err != nil {
		run.Errors = appendRunError(run.Errors, fmt.Sprintf("score property %s: %v", propertyID, err))
		return
	}
	if score < s.minScore {
		return
	}

	created, err := s.leads.CreateFromIngest(ctx, propertyID, ownerName, sourceKey)
	if err != nil {
		run.Errors = appendRunError(run.Errors, fmt.Sprintf("create lead for %s: %v", propertyID, err))
		return
	}
	if created {
		run.LeadsCreated++
	}
}

func (s *Service) archive(ctx context.Context, run *repository.ImportRun, payload any) {
	if s.archiver == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("marshal import snapshot failed", "run_id", run.ID, "error", err)
		return
	}
	object, err := s.archiver.ArchiveSnapshot(ctx, run.ID, run.SourceKey, raw)
	if err != nil {
		s.log.Warn("archive import snapshot failed", "run_id", run.ID, "error", err)
		return
	}
	run.SnapshotObject = object
}

// EnqueueRun schedules an asynchronous import for a source.
func (s *Service) EnqueueRun(ctx context.Context, id uuid.UUID) (repository.DataSource, error) {
	source, err := s.repo.GetSource(ctx, id)
	if err != nil {
		return repository.DataSource{}, err
	}
	if s.enqueuer == nil {
		return repository.DataSource{}, apperr.Unavailable("task queue is not configured")
	}
	if err := s.enqueuer.EnqueueSourceRun(ctx, source.Key); err != nil {
		return repository.DataSource{}, err
	}
	return source, nil
}

// CreateSource registers a data source.
func (s *Service) CreateSource(ctx context.Context, req transport.CreateSourceRequest) (repository.DataSource, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return s.repo.CreateSource(ctx, repository.DataSource{
		Key:      strings.ToLower(strings.TrimSpace(req.Key)),
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		URL:      req.URL,
		County:   strings.TrimSpace(req.County),
		Schedule: req.Schedule,
		Active:   active,
	})
}

// GetSource returns a data source.
func (s *Service) GetSource(ctx context.Context, id uuid.UUID) (repository.DataSource, error) {
	return s.repo.GetSource(ctx, id)
}

// ListSources returns data sources.
func (s *Service) ListSources(ctx context.Context, activeOnly bool) ([]repository.DataSource, error) {
	return s.repo.ListSources(ctx, activeOnly)
}

// UpdateSource overwrites a data source's mutable fields.
func (s *Service) UpdateSource(ctx context.Context, id uuid.UUID, req transport.UpdateSourceRequest) (repository.DataSource, error) {
	existing, err := s.repo.GetSource(ctx, id)
	if err != nil {
		return repository.DataSource{}, err
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}
	return s.repo.UpdateSource(ctx, id, repository.DataSource{
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		URL:      req.URL,
		County:   strings.TrimSpace(req.County),
		Schedule: req.Schedule,
		Active:   active,
	})
}

// DeleteSource removes a data source.
func (s *Service) DeleteSource(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteSource(ctx, id)
}

// GetRun returns an import run.
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (repository.ImportRun, error) {
	return s.repo.GetRun(ctx, id)
}

// ListRuns returns import runs, optionally filtered to one source.
func (s *Service) ListRuns(ctx context.Context, sourceKey string, page, pageSize int) (transport.ListResponse[repository.ImportRun], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.repo.ListRuns(ctx, sourceKey, pageSize, (page-1)*pageSize)
	if err != nil {
		return transport.ListResponse[repository.ImportRun]{}, err
	}
	return transport.ListResponse[repository.ImportRun]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// taxLienSeverity maps years of delinquency to indicator severity.
func taxLienSeverity(years int) int {
	switch {
	case years >= 4:
		return 9
	case years == 3:
		return 7
	case years == 2:
		return 5
	default:
		return 3
	}
}

// filingSeverity maps a filing type to indicator severity. A scheduled
// trustee sale is the strongest signal.
func filingSeverity(filingType string) int {
	switch filingType {
	case "notice_of_trustee_sale":
		return 9
	case "notice_of_default":
		return 7
	case "lis_pendens":
		return 6
	default:
		return 6
	}
}

// apnFromAddress derives a stable surrogate parcel key for feeds that carry
// no APN, so repeated imports of the same address merge.
func apnFromAddress(addressLine, zip string) string {
	var sb strings.Builder
	sb.WriteString("addr-")
	for _, r := range strings.ToLower(addressLine + "-" + zip) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '-':
			sb.WriteRune('-')
		}
	}
	return sb.String()
}

func appendRunError(errs []string, msg string) []string {
	if len(errs) >= maxRunErrors {
		return errs
	}
	return append(errs, msg)
}
