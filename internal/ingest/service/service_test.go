package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/ingest/attom"
	"dealflow_backend/internal/ingest/repository"
	"dealflow_backend/internal/ingest/scrape"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
)

type fakeRepo struct {
	repository.Repository

	mu      sync.Mutex
	sources map[string]repository.DataSource
	runs    map[uuid.UUID]repository.ImportRun
	touched []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sources: map[string]repository.DataSource{},
		runs:    map[uuid.UUID]repository.ImportRun{},
	}
}

func (f *fakeRepo) GetSourceByKey(_ context.Context, key string) (repository.DataSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	source, ok := f.sources[key]
	if !ok {
		return repository.DataSource{}, apperr.NotFound("data source not found")
	}
	return source, nil
}

func (f *fakeRepo) CreateRun(_ context.Context, sourceKey string) (repository.ImportRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := repository.ImportRun{
		ID:        uuid.New(),
		SourceKey: sourceKey,
		Status:    repository.RunRunning,
		StartedAt: time.Now(),
	}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeRepo) FinishRun(_ context.Context, run repository.ImportRun) (repository.ImportRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	run.FinishedAt = &now
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeRepo) TouchLastRun(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, key)
	return nil
}

type upsertCall struct {
	record  PropertyRecord
	created bool
}

type fakeCatalog struct {
	mu         sync.Mutex
	ids        map[string]uuid.UUID
	known      map[string]bool
	upserts    []upsertCall
	indicators map[uuid.UUID][]Indicator
	unenriched []EnrichTarget
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		ids:        map[string]uuid.UUID{},
		known:      map[string]bool{},
		indicators: map[uuid.UUID][]Indicator{},
	}
}

func (f *fakeCatalog) Upsert(_ context.Context, record PropertyRecord) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.ids[record.APN]
	if !ok {
		id = uuid.New()
		f.ids[record.APN] = id
	}
	created := !f.known[record.APN]
	f.known[record.APN] = true
	f.upserts = append(f.upserts, upsertCall{record: record, created: created})
	return id, created, nil
}

func (f *fakeCatalog) AddIndicator(_ context.Context, propertyID uuid.UUID, ind Indicator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indicators[propertyID] = append(f.indicators[propertyID], ind)
	return nil
}

func (f *fakeCatalog) ListUnenriched(_ context.Context, _ int) ([]EnrichTarget, error) {
	return f.unenriched, nil
}

type fakeLeads struct {
	mu      sync.Mutex
	scores  map[string]int
	catalog *fakeCatalog
	created []uuid.UUID
}

func (f *fakeLeads) scoreFor(propertyID uuid.UUID) int {
	for apn, id := range f.catalog.ids {
		if id == propertyID {
			return f.scores[apn]
		}
	}
	return 0
}

func (f *fakeLeads) PreviewScore(_ context.Context, propertyID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scoreFor(propertyID), nil
}

func (f *fakeLeads) CreateFromIngest(_ context.Context, propertyID uuid.UUID, _, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.created {
		if id == propertyID {
			return false, nil
		}
	}
	f.created = append(f.created, propertyID)
	return true, nil
}

type fakeTaxSource struct {
	records []scrape.TaxRecord
}

func (f *fakeTaxSource) Fetch(context.Context) ([]scrape.TaxRecord, error) { return f.records, nil }

type fakeFilingSource struct {
	filings []scrape.Filing
}

func (f *fakeFilingSource) Fetch(context.Context) ([]scrape.Filing, error) { return f.filings, nil }

type fakeEnricher struct {
	details map[string]*attom.PropertyDetail
	avm     int64
}

func (f *fakeEnricher) GetDetail(_ context.Context, addressLine, _ string) (*attom.PropertyDetail, error) {
	return f.details[addressLine], nil
}

func (f *fakeEnricher) GetAVM(context.Context, string, string) (int64, error) { return f.avm, nil }

type fakeArchiver struct {
	mu      sync.Mutex
	objects []string
}

func (f *fakeArchiver) ArchiveSnapshot(_ context.Context, runID uuid.UUID, sourceKey string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	object := "imports/" + sourceKey + "/" + runID.String() + ".json"
	f.objects = append(f.objects, object)
	return object, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	repo     *fakeRepo
	catalog  *fakeCatalog
	leads    *fakeLeads
	taxes    *fakeTaxSource
	filings  *fakeFilingSource
	enricher *fakeEnricher
	archiver *fakeArchiver
	bus      *recordingBus
	svc      *Service
}

func newFixture(withEnricher bool) *fixture {
	f := &fixture{
		repo:     newFakeRepo(),
		catalog:  newFakeCatalog(),
		taxes:    &fakeTaxSource{},
		filings:  &fakeFilingSource{},
		enricher: &fakeEnricher{details: map[string]*attom.PropertyDetail{}},
		archiver: &fakeArchiver{},
		bus:      &recordingBus{},
	}
	f.leads = &fakeLeads{scores: map[string]int{}, catalog: f.catalog}

	var enricher Enricher
	if withEnricher {
		enricher = f.enricher
	}
	f.svc = New(f.repo, f.catalog, f.leads, f.taxes, f.filings, enricher, f.archiver,
		nil, f.bus, logger.New("test"), 60)
	return f
}

func TestRunCountyTaxImportsAndQualifiesLeads(t *testing.T) {
	f := newFixture(false)
	f.repo.sources["maricopa_tax"] = repository.DataSource{
		Key: "maricopa_tax", Type: repository.SourceCountyTax, County: "Maricopa", Active: true,
	}
	f.taxes.records = []scrape.TaxRecord{
		{APN: "117-04-032", OwnerName: "RAMIREZ, CARLOS J", AddressLine: "4418 W Solano Dr",
			City: "Phoenix", State: "AZ", Zip: "85031", AmountOwedCents: 842500, YearsDelinquent: 2},
		{APN: "118-22-077", OwnerName: "NGUYEN, LINH", AddressLine: "912 S Roosevelt St",
			City: "Tempe", State: "AZ", Zip: "85281", AmountOwedCents: 310200, YearsDelinquent: 1},
	}
	f.leads.scores["117-04-032"] = 72
	f.leads.scores["118-22-077"] = 40

	run, err := f.svc.RunSource(context.Background(), "maricopa_tax")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if run.Status != repository.RunCompleted {
		t.Fatalf("status = %q", run.Status)
	}
	if run.RecordsFound != 2 || run.RecordsCreated != 2 || run.RecordsFailed != 0 {
		t.Fatalf("unexpected counters: %+v", run)
	}
	if run.LeadsCreated != 1 {
		t.Fatalf("leads created = %d, want 1 (only the qualifying score)", run.LeadsCreated)
	}
	if run.SnapshotObject == "" {
		t.Fatalf("raw payload should be archived")
	}

	// County comes from the source, not the roll.
	if f.catalog.upserts[0].record.County != "Maricopa" {
		t.Fatalf("county = %q", f.catalog.upserts[0].record.County)
	}

	hotID := f.catalog.ids["117-04-032"]
	inds := f.catalog.indicators[hotID]
	if len(inds) != 1 || inds[0].Type != "tax_lien" || inds[0].Severity != 5 {
		t.Fatalf("unexpected indicators: %+v", inds)
	}

	var completed bool
	for _, e := range f.bus.events {
		if _, ok := e.(events.ImportRunCompleted); ok {
			completed = true
		}
	}
	if !completed {
		t.Fatalf("expected an ImportRunCompleted event")
	}
	if len(f.repo.touched) != 1 || f.repo.touched[0] != "maricopa_tax" {
		t.Fatalf("source last run should be stamped")
	}
}

func TestRunForeclosureAttachesAuctionDates(t *testing.T) {
	f := newFixture(false)
	f.repo.sources["maricopa_nod"] = repository.DataSource{
		Key: "maricopa_nod", Type: repository.SourceForeclosure, County: "Maricopa", Active: true,
	}
	auction := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	f.filings.filings = []scrape.Filing{
		{AddressLine: "3302 N 36th St", City: "Phoenix", State: "AZ", Zip: "85018",
			OwnerName: "DELGADO, RUBEN", FilingType: "notice_of_trustee_sale", AuctionDate: &auction},
	}

	run, err := f.svc.RunSource(context.Background(), "maricopa_nod")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.RecordsCreated != 1 {
		t.Fatalf("records created = %d", run.RecordsCreated)
	}

	apn := apnFromAddress("3302 N 36th St", "85018")
	id := f.catalog.ids[apn]
	inds := f.catalog.indicators[id]
	if len(inds) != 1 || inds[0].Type != "pre_foreclosure" {
		t.Fatalf("unexpected indicators: %+v", inds)
	}
	if inds[0].Severity != 9 {
		t.Fatalf("trustee sale severity = %d, want 9", inds[0].Severity)
	}
	if inds[0].AuctionDate == nil || !inds[0].AuctionDate.Equal(auction) {
		t.Fatalf("auction date not carried: %v", inds[0].AuctionDate)
	}
}

func TestRunForeclosureRepeatImportMerges(t *testing.T) {
	f := newFixture(false)
	f.repo.sources["maricopa_nod"] = repository.DataSource{
		Key: "maricopa_nod", Type: repository.SourceForeclosure, County: "Maricopa", Active: true,
	}
	f.filings.filings = []scrape.Filing{
		{AddressLine: "845 W Southern Ave", City: "Mesa", State: "AZ", Zip: "85210",
			OwnerName: "KOWALSKI, ANNA", FilingType: "notice_of_default"},
	}

	if _, err := f.svc.RunSource(context.Background(), "maricopa_nod"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := f.svc.RunSource(context.Background(), "maricopa_nod")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if second.RecordsCreated != 0 || second.RecordsUpdated != 1 {
		t.Fatalf("repeat import should merge by address key: %+v", second)
	}
}

func TestRunEnrichmentUpdatesProperties(t *testing.T) {
	f := newFixture(true)
	f.repo.sources["attom_enrich"] = repository.DataSource{
		Key: "attom_enrich", Type: repository.SourceAttom, County: "Maricopa", Active: true,
	}
	found := EnrichTarget{ID: uuid.New(), AddressLine: "4418 W Solano Dr",
		City: "Phoenix", State: "AZ", Zip: "85031", County: "Maricopa", APN: "117-04-032"}
	missing := EnrichTarget{ID: uuid.New(), AddressLine: "1 Nowhere Ln",
		City: "Phoenix", State: "AZ", Zip: "85001", County: "Maricopa", APN: "999-99-999"}
	f.catalog.unenriched = []EnrichTarget{found, missing}
	f.enricher.details["4418 W Solano Dr"] = &attom.PropertyDetail{
		AttomID: "1842203", Beds: 3, Baths: 2, Sqft: 1450, YearBuilt: 1974,
		AssessedValueCents: 21_500_000, OwnerName: "RAMIREZ CARLOS J",
	}
	f.enricher.avm = 31_200_000

	run, err := f.svc.RunSource(context.Background(), "attom_enrich")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if run.RecordsFound != 2 || run.RecordsUpdated != 1 || run.RecordsFailed != 0 {
		t.Fatalf("unexpected counters: %+v", run)
	}

	if len(f.catalog.upserts) != 1 {
		t.Fatalf("expected one upsert, got %d", len(f.catalog.upserts))
	}
	record := f.catalog.upserts[0].record
	if record.AttomID != "1842203" || record.EstimatedValueCents != 31_200_000 {
		t.Fatalf("enriched fields not carried: %+v", record)
	}

	var enriched int
	for _, e := range f.bus.events {
		if _, ok := e.(events.PropertyEnriched); ok {
			enriched++
		}
	}
	if enriched != 1 {
		t.Fatalf("expected one PropertyEnriched event, got %d", enriched)
	}
}

func TestRunEnrichmentWithoutClientFails(t *testing.T) {
	f := newFixture(false)
	f.repo.sources["attom_enrich"] = repository.DataSource{
		Key: "attom_enrich", Type: repository.SourceAttom, Active: true,
	}

	run, err := f.svc.RunSource(context.Background(), "attom_enrich")
	if err == nil {
		t.Fatalf("expected error when enrichment is not configured")
	}
	if run.Status != repository.RunFailed {
		t.Fatalf("status = %q, want failed", run.Status)
	}
}

func TestApnFromAddress(t *testing.T) {
	got := apnFromAddress("3302 N. 36th St", "85018")
	if got != "addr-3302-n-36th-st-85018" {
		t.Fatalf("got %q", got)
	}
	if got != apnFromAddress("3302 N. 36TH ST", "85018") {
		t.Fatalf("surrogate key should be case-insensitive")
	}
}

func TestTaxLienSeverity(t *testing.T) {
	cases := []struct {
		years int
		want  int
	}{
		{0, 3}, {1, 3}, {2, 5}, {3, 7}, {4, 9}, {7, 9},
	}
	for _, tc := range cases {
		if got := taxLienSeverity(tc.years); got != tc.want {
			t.Errorf("taxLienSeverity(%d) = %d, want %d", tc.years, got, tc.want)
		}
	}
}
