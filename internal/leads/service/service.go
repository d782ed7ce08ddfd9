// Package service implements lead pipeline business logic: creation,
// status transitions, assignment, the activity timeline, and scoring.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/leads/repository"
	"dealflow_backend/internal/leads/scoring"
	"dealflow_backend/internal/leads/transport"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/phone"
	"dealflow_backend/platform/sanitize"
)

const (
	defaultPageSize    = 25
	maxPageSize        = 200
	boardLeadsPerCol   = 15
	followUpBatchLimit = 100
	digestLeadLimit    = 10
)

// PropertySnapshot carries the property fields the leads module needs for
// scoring and notifications. It is filled by an adapter over the properties
// module, keeping this package free of a direct dependency on it.
type PropertySnapshot struct {
	Address             string
	OwnerName           string
	EquityPercent       float64
	HasEquityData       bool
	Absentee            bool
	OwnerOccupied       bool
	YearBuilt           int
	EstimatedValueCents int64
}

// PropertyIndicator is a distress signal as seen by the scorer.
type PropertyIndicator struct {
	Type        string
	Severity    int
	AuctionDate *time.Time
}

// PropertyReader provides read access to property data owned by another module.
type PropertyReader interface {
	GetSnapshot(ctx context.Context, propertyID uuid.UUID) (PropertySnapshot, error)
	ListIndicators(ctx context.Context, propertyID uuid.UUID) ([]PropertyIndicator, error)
}

// Service implements lead operations on top of the repository.
type Service struct {
	repo         repository.Repository
	props        PropertyReader
	bus          events.Bus
	log          *logger.Logger
	hotThreshold int
	now          func() time.Time
}

// New creates a new leads service.
func New(repo repository.Repository, props PropertyReader, bus events.Bus, log *logger.Logger, hotThreshold int) *Service {
	return &Service{
		repo:         repo,
		props:        props,
		bus:          bus,
		log:          log,
		hotThreshold: hotThreshold,
		now:          time.Now,
	}
}

// GetByID returns a single lead.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

// FindByPhone locates the lead owning the given phone number.
func (s *Service) FindByPhone(ctx context.Context, rawPhone string) (repository.Lead, error) {
	return s.repo.FindByPhone(ctx, phone.NormalizeE164(rawPhone))
}

// List returns a filtered page of leads.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.ListResponse[repository.Lead], error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.repo.List(ctx, repository.ListParams{
		Status:          req.Status,
		Classification:  req.Classification,
		AssignedAgentID: req.AgentID,
		MinScore:        req.MinScore,
		MaxScore:        req.MaxScore,
		Source:          req.Source,
		Search:          req.Search,
		SortBy:          req.SortBy,
		SortOrder:       req.SortOrder,
		Limit:           pageSize,
		Offset:          (page - 1) * pageSize,
	})
	if err != nil {
		return transport.ListResponse[repository.Lead]{}, err
	}

	return transport.ListResponse[repository.Lead]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Board returns the pipeline Kanban view.
func (s *Service) Board(ctx context.Context) ([]repository.BoardColumn, error) {
	return s.repo.Board(ctx, boardLeadsPerCol)
}

// FollowUpsDue returns open leads whose follow-up time has passed.
func (s *Service) FollowUpsDue(ctx context.Context) ([]repository.Lead, error) {
	return s.repo.FollowUpsDue(ctx, s.now(), followUpBatchLimit)
}

// DigestSnapshot assembles the numbers for the daily digest: leads created
// since the given time, the top hot leads, and overdue follow-ups.
func (s *Service) DigestSnapshot(ctx context.Context, since time.Time) (transport.DigestSnapshot, error) {
	newCount, err := s.repo.CountCreatedSince(ctx, since)
	if err != nil {
		return transport.DigestSnapshot{}, err
	}

	hot, _, err := s.repo.List(ctx, repository.ListParams{
		Classification: scoring.ClassHot,
		SortBy:         "score",
		SortOrder:      "desc",
		Limit:          digestLeadLimit,
	})
	if err != nil {
		return transport.DigestSnapshot{}, err
	}

	due, err := s.repo.FollowUpsDue(ctx, s.now(), digestLeadLimit)
	if err != nil {
		return transport.DigestSnapshot{}, err
	}

	return transport.DigestSnapshot{
		Since:        since,
		NewLeads:     newCount,
		HotLeads:     s.digestLeads(ctx, hot),
		FollowUpsDue: s.digestLeads(ctx, due),
	}, nil
}

func (s *Service) digestLeads(ctx context.Context, leads []repository.Lead) []transport.DigestLead {
	items := make([]transport.DigestLead, 0, len(leads))
	for _, lead := range leads {
		item := transport.DigestLead{
			LeadID:     lead.ID,
			OwnerName:  lead.OwnerName,
			Score:      lead.Score,
			Status:     lead.Status,
			FollowUpAt: lead.NextFollowUpAt,
		}
		if snapshot, err := s.props.GetSnapshot(ctx, lead.PropertyID); err == nil {
			item.Address = snapshot.Address
		}
		items = append(items, item)
	}
	return items
}

// Create adds a lead for a property and computes its initial score.
// A property can hold at most one open lead at a time.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest, actorID *uuid.UUID) (repository.Lead, error) {
	snapshot, err := s.props.GetSnapshot(ctx, req.PropertyID)
	if err != nil {
		return repository.Lead{}, err
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}

	lead := repository.Lead{
		PropertyID:      req.PropertyID,
		OwnerName:       req.OwnerName,
		Phones:          normalizePhones(req.Phones),
		Emails:          req.Emails,
		Status:          repository.StatusNew,
		AssignedAgentID: req.AssignedAgentID,
		Source:          source,
	}

	result, err := s.scoreFor(ctx, lead, snapshot)
	if err != nil {
		return repository.Lead{}, err
	}
	applyScore(&lead, result)

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return repository.Lead{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     created.ID,
		PropertyID: created.PropertyID,
		Source:     created.Source,
		Score:      created.Score,
	})
	s.maybePublishHot(ctx, created, 0, snapshot)

	return created, nil
}

// CreateFromIngest creates a lead on behalf of the ingest pipeline. When the
// property already has an open lead, that lead is returned unchanged.
func (s *Service) CreateFromIngest(ctx context.Context, propertyID uuid.UUID, ownerName, source string) (repository.Lead, bool, error) {
	existing, err := s.repo.GetOpenByPropertyID(ctx, propertyID)
	if err == nil {
		return existing, false, nil
	}
	if apperr.GetKind(err) != apperr.KindNotFound {
		return repository.Lead{}, false, err
	}

	created, err := s.Create(ctx, transport.CreateLeadRequest{
		PropertyID: propertyID,
		OwnerName:  ownerName,
		Source:     source,
	}, nil)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindConflict {
			// Lost a race with a concurrent import; reuse the winner.
			lead, getErr := s.repo.GetOpenByPropertyID(ctx, propertyID)
			if getErr != nil {
				return repository.Lead{}, false, getErr
			}
			return lead, false, nil
		}
		return repository.Lead{}, false, err
	}
	return created, true, nil
}

// PreviewScore computes the motivation score a lead on this property would
// receive without creating one. Used by the ingest pipeline to decide whether
// a property qualifies for auto lead creation.
func (s *Service) PreviewScore(ctx context.Context, propertyID uuid.UUID) (int, error) {
	snapshot, err := s.props.GetSnapshot(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	result, err := s.scoreFor(ctx, repository.Lead{PropertyID: propertyID}, snapshot)
	if err != nil {
		return 0, err
	}
	return result.Score, nil
}

// UpdateContact overwrites the lead's owner contact fields.
func (s *Service) UpdateContact(ctx context.Context, id uuid.UUID, req transport.UpdateContactRequest) (repository.Lead, error) {
	return s.repo.UpdateContact(ctx, id, req.OwnerName, normalizePhones(req.Phones), req.Emails)
}

// MergeContactInfo unions discovered phones and emails into the lead and
// records a skip trace activity. Used by the enrichment pipeline.
func (s *Service) MergeContactInfo(ctx context.Context, id uuid.UUID, phones, emails []string, note string) (repository.Lead, error) {
	lead, err := s.repo.MergeContactInfo(ctx, id, normalizePhones(phones), emails)
	if err != nil {
		return repository.Lead{}, err
	}

	if note != "" {
		if _, err := s.repo.AddActivity(ctx, repository.Activity{
			LeadID: id,
			Type:   repository.ActivitySkipTrace,
			Body:   note,
		}); err != nil {
			s.log.Warn("record skip trace activity failed", "lead_id", id, "error", err)
		}
	}
	return lead, nil
}

// ChangeStatus moves a lead through the pipeline, enforcing the allowed
// transitions, and records a status_change activity.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req transport.ChangeStatusRequest, actorID *uuid.UUID) (repository.Lead, error) {
	if !repository.ValidStatus(req.Status) {
		return repository.Lead{}, apperr.Validation("unknown status")
	}

	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Lead{}, err
	}
	if lead.Status == req.Status {
		return lead, nil
	}
	if !allowedTransition(lead.Status, req.Status) {
		return repository.Lead{}, apperr.Validation("cannot move lead from " + lead.Status + " to " + req.Status)
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return repository.Lead{}, err
	}

	body := lead.Status + " -> " + req.Status
	if note := sanitize.Text(req.Note); note != "" {
		body += ": " + note
	}
	meta, _ := json.Marshal(map[string]string{"from": lead.Status, "to": req.Status})
	if _, err := s.repo.AddActivity(ctx, repository.Activity{
		LeadID:   id,
		Type:     repository.ActivityStatusChange,
		Body:     body,
		ActorID:  actorID,
		Metadata: meta,
	}); err != nil {
		return repository.Lead{}, err
	}

	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		OldStatus: lead.Status,
		NewStatus: req.Status,
		ActorID:   actorID,
	})

	return s.repo.GetByID(ctx, id)
}

// Assign sets or clears the assigned agent.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, req transport.AssignRequest, assignedBy uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Lead{}, err
	}

	if err := s.repo.Assign(ctx, id, req.AgentID); err != nil {
		return repository.Lead{}, err
	}

	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        id,
		PreviousAgent: lead.AssignedAgentID,
		NewAgent:      req.AgentID,
		AssignedByID:  assignedBy,
	})

	lead.AssignedAgentID = req.AgentID
	return lead, nil
}

// SetFollowUp schedules or clears the next follow-up reminder.
func (s *Service) SetFollowUp(ctx context.Context, id uuid.UUID, req transport.FollowUpRequest) error {
	if req.At == nil || *req.At == "" {
		return s.repo.SetFollowUp(ctx, id, nil)
	}
	at, err := time.Parse(time.RFC3339, *req.At)
	if err != nil {
		return apperr.Validation("invalid follow-up time, expected RFC 3339")
	}
	if at.Before(s.now()) {
		return apperr.Validation("follow-up time is in the past")
	}
	return s.repo.SetFollowUp(ctx, id, &at)
}

// SetOptOut records the SMS opt-out flag. Used by the inbound SMS webhook.
func (s *Service) SetOptOut(ctx context.Context, id uuid.UUID, optedOut bool) error {
	return s.repo.SetOptOut(ctx, id, optedOut)
}

// TouchLastContacted records the time of the latest outreach touch.
func (s *Service) TouchLastContacted(ctx context.Context, id uuid.UUID) error {
	return s.repo.TouchLastContacted(ctx, id, s.now())
}

// AddActivity appends a manual timeline entry.
func (s *Service) AddActivity(ctx context.Context, leadID uuid.UUID, req transport.AddActivityRequest, actorID *uuid.UUID) (repository.Activity, error) {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		return repository.Activity{}, err
	}
	return s.repo.AddActivity(ctx, repository.Activity{
		LeadID:  leadID,
		Type:    req.Type,
		Body:    sanitize.Text(req.Body),
		ActorID: actorID,
	})
}

// RecordActivity appends a timeline entry on behalf of another module.
func (s *Service) RecordActivity(ctx context.Context, a repository.Activity) (repository.Activity, error) {
	return s.repo.AddActivity(ctx, a)
}

// ListActivities returns a lead's timeline, newest first.
func (s *Service) ListActivities(ctx context.Context, leadID uuid.UUID, page, pageSize int) (transport.ListResponse[repository.Activity], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.repo.ListActivities(ctx, leadID, pageSize, (page-1)*pageSize)
	if err != nil {
		return transport.ListResponse[repository.Activity]{}, err
	}
	return transport.ListResponse[repository.Activity]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Rescore recomputes a lead's motivation score from current property and
// engagement data and persists the result.
func (s *Service) Rescore(ctx context.Context, id uuid.UUID) (transport.RescoreResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.RescoreResponse{}, err
	}

	snapshot, err := s.props.GetSnapshot(ctx, lead.PropertyID)
	if err != nil {
		return transport.RescoreResponse{}, err
	}

	result, err := s.scoreFor(ctx, lead, snapshot)
	if err != nil {
		return transport.RescoreResponse{}, err
	}

	if err := s.repo.UpdateScore(ctx, id, repository.ScoreUpdate{
		Score:            result.Score,
		Classification:   result.Classification,
		DominantDistress: result.DominantDistress,
		FactorsJSON:      result.FactorsJSON,
		Version:          result.Version,
		ScoredAt:         result.ComputedAt,
	}); err != nil {
		return transport.RescoreResponse{}, err
	}

	if result.Score != lead.Score {
		s.bus.Publish(ctx, events.LeadScored{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         lead.ID,
			PropertyID:     lead.PropertyID,
			OldScore:       lead.Score,
			NewScore:       result.Score,
			Classification: result.Classification,
			ScoreVersion:   result.Version,
		})
	}
	rescored := lead
	rescored.Score = result.Score
	s.maybePublishHot(ctx, rescored, lead.Score, snapshot)

	return transport.RescoreResponse{
		LeadID:         lead.ID,
		OldScore:       lead.Score,
		NewScore:       result.Score,
		Classification: result.Classification,
		ScoreVersion:   result.Version,
	}, nil
}

// RescoreAll recomputes scores for every open lead. Used by the nightly sweep.
func (s *Service) RescoreAll(ctx context.Context) (transport.SweepResponse, error) {
	open := []string{
		repository.StatusNew, repository.StatusContacted, repository.StatusResponded,
		repository.StatusNegotiating, repository.StatusUnderContract,
	}
	ids, err := s.repo.ListIDs(ctx, open)
	if err != nil {
		return transport.SweepResponse{}, err
	}

	var out transport.SweepResponse
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Scanned++
		res, err := s.Rescore(ctx, id)
		if err != nil {
			out.Failed++
			s.log.Warn("rescore failed", "lead_id", id, "error", err)
			continue
		}
		if res.NewScore != res.OldScore {
			out.Changed++
		}
	}
	return out, nil
}

type scoreResult struct {
	Score            int
	Classification   string
	DominantDistress string
	FactorsJSON      []byte
	Version          string
	ComputedAt       time.Time
}

// scoreFor assembles scoring input from the property snapshot, its distress
// indicators, and the lead's conversation stats.
func (s *Service) scoreFor(ctx context.Context, lead repository.Lead, snapshot PropertySnapshot) (scoreResult, error) {
	indicators, err := s.props.ListIndicators(ctx, lead.PropertyID)
	if err != nil {
		return scoreResult{}, err
	}

	scoringIndicators := make([]scoring.Indicator, 0, len(indicators))
	for _, ind := range indicators {
		scoringIndicators = append(scoringIndicators, scoring.Indicator{
			Type:        ind.Type,
			Severity:    ind.Severity,
			AuctionDate: ind.AuctionDate,
		})
	}

	var stats repository.ResponseStats
	if lead.ID != uuid.Nil {
		stats, err = s.repo.GetResponseStats(ctx, lead.ID)
		if err != nil {
			return scoreResult{}, err
		}
	}

	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	result := scoring.Compute(scoring.Input{
		Indicators:          scoringIndicators,
		EquityPercent:       snapshot.EquityPercent,
		HasEquityData:       snapshot.HasEquityData,
		Absentee:            snapshot.Absentee,
		OwnerOccupied:       snapshot.OwnerOccupied,
		YearBuilt:           snapshot.YearBuilt,
		EstimatedValueCents: snapshot.EstimatedValueCents,
		LeadCreatedAt:       createdAt,
		Status:              lead.Status,
		InboundMessages:     stats.InboundMessages,
		OutboundMessages:    stats.OutboundMessages,
		LastInboundAt:       stats.LastInboundAt,
		ActivityCount:       stats.ActivityCount,
		Now:                 s.now(),
	})

	return scoreResult{
		Score:            result.Score,
		Classification:   result.Classification,
		DominantDistress: scoring.DominantType(scoringIndicators),
		FactorsJSON:      result.FactorsJSON,
		Version:          result.Version,
		ComputedAt:       result.ComputedAt,
	}, nil
}

func (s *Service) maybePublishHot(ctx context.Context, lead repository.Lead, oldScore int, snapshot PropertySnapshot) {
	if lead.Score < s.hotThreshold || oldScore >= s.hotThreshold {
		return
	}
	s.bus.Publish(ctx, events.HotLeadDetected{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		PropertyID:    lead.PropertyID,
		Score:         lead.Score,
		Address:       snapshot.Address,
		AssignedAgent: lead.AssignedAgentID,
	})
}

func applyScore(lead *repository.Lead, result scoreResult) {
	lead.Score = result.Score
	lead.Classification = result.Classification
	lead.DominantDistress = result.DominantDistress
	lead.ScoreFactors = result.FactorsJSON
	lead.ScoreVersion = result.Version
	scoredAt := result.ComputedAt
	lead.ScoredAt = &scoredAt
}

// statusRank orders the pipeline for transition checks.
var statusRank = map[string]int{
	repository.StatusNew:           0,
	repository.StatusContacted:     1,
	repository.StatusResponded:     2,
	repository.StatusNegotiating:   3,
	repository.StatusUnderContract: 4,
	repository.StatusClosed:        5,
}

// allowedTransition enforces the pipeline shape: forward moves are allowed
// (skipping stages is fine when an owner responds out of the blue), closed is
// only reachable from under_contract, dead is reachable from any open status,
// and a dead lead can be reopened as new.
func allowedTransition(from, to string) bool {
	if to == repository.StatusDead {
		return from != repository.StatusDead && from != repository.StatusClosed
	}
	if from == repository.StatusDead {
		return to == repository.StatusNew
	}
	if to == repository.StatusClosed {
		return from == repository.StatusUnderContract
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

func normalizePhones(raw []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		normalized := phone.NormalizeE164(p)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}
