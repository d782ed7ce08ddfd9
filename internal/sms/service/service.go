// Package service implements SMS outreach: one-off sends, templates,
// campaign dispatch, and the inbound/status webhooks.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/sms/repository"
	"dealflow_backend/internal/sms/transport"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/phone"
	"dealflow_backend/platform/sanitize"
)

const (
	defaultPageSize      = 25
	maxPageSize          = 200
	defaultAudienceLimit = 500
)

// Opt-out and opt-in keywords per carrier requirements.
var optOutKeywords = map[string]bool{
	"STOP": true, "STOPALL": true, "UNSUBSCRIBE": true, "CANCEL": true, "END": true, "QUIT": true,
}
var optInKeywords = map[string]bool{
	"START": true, "YES": true, "UNSTOP": true,
}

// Sender delivers one SMS and returns the provider message SID.
// Implemented by the Twilio client; nil-safe wrappers handle disabled SMS.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// LeadContact is the slice of a lead the outreach flow needs.
type LeadContact struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	OwnerName  string
	Phones     []string
	OptedOut   bool
}

// LeadDirectory provides access to leads owned by another module.
type LeadDirectory interface {
	GetLead(ctx context.Context, id uuid.UUID) (LeadContact, error)
	FindLeadByPhone(ctx context.Context, phoneNumber string) (LeadContact, error)
	SelectAudience(ctx context.Context, filter transport.AudienceFilter) ([]LeadContact, error)
	SetOptOut(ctx context.Context, leadID uuid.UUID, optedOut bool) error
	TouchLastContacted(ctx context.Context, leadID uuid.UUID) error
	RecordActivity(ctx context.Context, leadID uuid.UUID, activityType, body string) error
	PropertyFields(ctx context.Context, propertyID uuid.UUID) (map[string]string, error)
}

// Enqueuer schedules a campaign dispatch on the task queue.
type Enqueuer interface {
	EnqueueCampaignDispatch(ctx context.Context, campaignID uuid.UUID) error
}

// Service implements SMS outreach on top of the repository, the provider
// client, and the leads port.
type Service struct {
	repo     repository.Repository
	sender   Sender
	leads    LeadDirectory
	enqueuer Enqueuer
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new sms service. sender may be nil when Twilio is not
// configured; sends then fail with an unavailable error.
func New(repo repository.Repository, sender Sender, leads LeadDirectory, enqueuer Enqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		sender:   sender,
		leads:    leads,
		enqueuer: enqueuer,
		bus:      bus,
		log:      log,
	}
}

// SendToLead sends a one-off SMS to a lead, rendering a template when one is
// given. Opted-out leads are refused.
func (s *Service) SendToLead(ctx context.Context, req transport.SendMessageRequest) (repository.Message, error) {
	lead, err := s.leads.GetLead(ctx, req.LeadID)
	if err != nil {
		return repository.Message{}, err
	}
	if lead.OptedOut {
		return repository.Message{}, apperr.Validation("lead has opted out of SMS")
	}

	to := phone.NormalizeE164(req.Phone)
	if to == "" {
		if len(lead.Phones) == 0 {
			return repository.Message{}, apperr.Validation("lead has no phone number")
		}
		to = lead.Phones[0]
	}

	body := req.Body
	if req.TemplateID != nil {
		tmpl, err := s.repo.GetTemplate(ctx, *req.TemplateID)
		if err != nil {
			return repository.Message{}, err
		}
		body, err = s.renderForLead(ctx, tmpl.Body, lead)
		if err != nil {
			return repository.Message{}, err
		}
	}
	if strings.TrimSpace(body) == "" {
		return repository.Message{}, apperr.Validation("message body is empty")
	}

	return s.deliver(ctx, lead, nil, to, body)
}

// DispatchCampaign sends a campaign to its audience. Called by the task
// worker; per-recipient failures are collected, not fatal.
func (s *Service) DispatchCampaign(ctx context.Context, campaignID uuid.UUID) (transport.DispatchResult, error) {
	campaign, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return transport.DispatchResult{}, err
	}
	if campaign.Status == repository.CampaignCompleted || campaign.Status == repository.CampaignCanceled {
		return transport.DispatchResult{CampaignID: campaignID}, nil
	}

	tmpl, err := s.repo.GetTemplate(ctx, campaign.TemplateID)
	if err != nil {
		return transport.DispatchResult{}, err
	}

	var filter transport.AudienceFilter
	if len(campaign.Audience) > 0 {
		if err := json.Unmarshal(campaign.Audience, &filter); err != nil {
			return transport.DispatchResult{}, fmt.Errorf("parse campaign audience: %w", err)
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultAudienceLimit
	}

	recipients, err := s.leads.SelectAudience(ctx, filter)
	if err != nil {
		return transport.DispatchResult{}, err
	}

	if err := s.repo.MarkCampaignStarted(ctx, campaignID, len(recipients)); err != nil {
		return transport.DispatchResult{}, err
	}

	result := transport.DispatchResult{CampaignID: campaignID, Recipients: len(recipients)}
	for _, lead := range recipients {
		if err := ctx.Err(); err != nil {
			break
		}
		if lead.OptedOut || len(lead.Phones) == 0 {
			result.Skipped++
			continue
		}

		body, err := s.renderForLead(ctx, tmpl.Body, lead)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("lead %s: %v", lead.ID, err))
			continue
		}

		if _, err := s.deliver(ctx, lead, &campaignID, lead.Phones[0], body); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("lead %s: %v", lead.ID, err))
			continue
		}
		result.Sent++
	}

	if err := s.repo.MarkCampaignCompleted(ctx, campaignID, result.Sent, result.Failed); err != nil {
		return result, err
	}

	s.bus.Publish(ctx, events.CampaignCompleted{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: campaignID,
		Name:       campaign.Name,
		Sent:       result.Sent,
		Failed:     result.Failed,
	})
	s.log.OutreachEvent("campaign completed", campaignID.String(), "",
		fmt.Sprintf("sent=%d failed=%d skipped=%d", result.Sent, result.Failed, result.Skipped))

	return result, nil
}

// HandleStatusCallback records a delivery status change from the provider.
func (s *Service) HandleStatusCallback(ctx context.Context, req transport.StatusCallbackRequest) error {
	if req.MessageSID == "" {
		return apperr.BadRequest("missing message sid")
	}

	message, err := s.repo.GetMessageBySID(ctx, req.MessageSID)
	if err != nil {
		return err
	}

	status := req.MessageStatus
	switch status {
	case repository.StatusSent, repository.StatusDelivered, repository.StatusFailed, repository.StatusUndelivered, repository.StatusQueued:
	default:
		// Provider statuses we don't track (accepted, sending) are ignored.
		return nil
	}

	errorMessage := ""
	if req.ErrorCode != "" {
		errorMessage = "provider error " + req.ErrorCode
	}
	return s.repo.UpdateMessageStatus(ctx, message.ID, status, errorMessage)
}

// HandleInbound records an incoming reply, applies STOP/START opt-out
// handling, and logs the reply on the lead's timeline.
func (s *Service) HandleInbound(ctx context.Context, req transport.InboundMessageRequest) error {
	from := phone.NormalizeE164(req.From)
	if from == "" {
		return apperr.BadRequest("missing sender number")
	}

	lead, err := s.leads.FindLeadByPhone(ctx, from)
	if err != nil {
		// Replies from unknown numbers are logged and dropped.
		s.log.Info("inbound sms from unknown number", "from", from)
		return nil
	}

	body := sanitize.Text(req.Body)
	keyword := strings.ToUpper(strings.TrimSpace(body))
	optOut := optOutKeywords[keyword]
	optIn := optInKeywords[keyword]

	message, err := s.repo.CreateMessage(ctx, repository.Message{
		LeadID:      lead.ID,
		Direction:   repository.DirectionInbound,
		Phone:       from,
		Body:        body,
		Status:      repository.StatusReceived,
		ProviderSID: req.MessageSID,
	})
	if err != nil {
		return err
	}

	if optOut {
		if err := s.leads.SetOptOut(ctx, lead.ID, true); err != nil {
			return err
		}
		s.log.OutreachEvent("lead opted out", "", lead.ID.String(), from)
	} else if optIn && lead.OptedOut {
		if err := s.leads.SetOptOut(ctx, lead.ID, false); err != nil {
			return err
		}
		s.log.OutreachEvent("lead opted back in", "", lead.ID.String(), from)
	}

	if err := s.leads.RecordActivity(ctx, lead.ID, "sms", "Reply: "+body); err != nil {
		s.log.Warn("record inbound activity failed", "lead_id", lead.ID, "error", err)
	}

	s.bus.Publish(ctx, events.MessageReceived{
		BaseEvent: events.NewBaseEvent(),
		MessageID: message.ID,
		LeadID:    lead.ID,
		Phone:     from,
		Body:      body,
		OptOut:    optOut,
	})
	return nil
}

// ListMessages returns a lead's conversation.
func (s *Service) ListMessages(ctx context.Context, leadID uuid.UUID, page, pageSize int) (transport.ListResponse[repository.Message], error) {
	page, pageSize = clampPage(page, pageSize)
	items, total, err := s.repo.ListMessagesByLead(ctx, leadID, pageSize, (page-1)*pageSize)
	if err != nil {
		return transport.ListResponse[repository.Message]{}, err
	}
	return transport.ListResponse[repository.Message]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// CreateTemplate adds a message template.
func (s *Service) CreateTemplate(ctx context.Context, req transport.UpsertTemplateRequest) (repository.Template, error) {
	return s.repo.CreateTemplate(ctx, templateFromRequest(req))
}

// UpdateTemplate overwrites a template.
func (s *Service) UpdateTemplate(ctx context.Context, id uuid.UUID, req transport.UpsertTemplateRequest) (repository.Template, error) {
	return s.repo.UpdateTemplate(ctx, id, templateFromRequest(req))
}

// GetTemplate returns a template.
func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (repository.Template, error) {
	return s.repo.GetTemplate(ctx, id)
}

// ListTemplates returns templates.
func (s *Service) ListTemplates(ctx context.Context, activeOnly bool) ([]repository.Template, error) {
	return s.repo.ListTemplates(ctx, activeOnly)
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTemplate(ctx, id)
}

// CreateCampaign creates a campaign in draft status.
func (s *Service) CreateCampaign(ctx context.Context, req transport.CreateCampaignRequest) (repository.Campaign, error) {
	if _, err := s.repo.GetTemplate(ctx, req.TemplateID); err != nil {
		return repository.Campaign{}, err
	}

	audience, err := json.Marshal(req.Audience)
	if err != nil {
		return repository.Campaign{}, fmt.Errorf("marshal audience: %w", err)
	}

	return s.repo.CreateCampaign(ctx, repository.Campaign{
		Name:       strings.TrimSpace(req.Name),
		TemplateID: req.TemplateID,
		Status:     repository.CampaignDraft,
		Audience:   audience,
	})
}

// GetCampaign returns a campaign.
func (s *Service) GetCampaign(ctx context.Context, id uuid.UUID) (repository.Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

// ListCampaigns returns campaigns.
func (s *Service) ListCampaigns(ctx context.Context, page, pageSize int) (transport.ListResponse[repository.Campaign], error) {
	page, pageSize = clampPage(page, pageSize)
	items, total, err := s.repo.ListCampaigns(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return transport.ListResponse[repository.Campaign]{}, err
	}
	return transport.ListResponse[repository.Campaign]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// StartCampaign queues a draft campaign for dispatch.
func (s *Service) StartCampaign(ctx context.Context, id uuid.UUID) error {
	campaign, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status != repository.CampaignDraft {
		return apperr.Validation("only draft campaigns can be started")
	}
	if s.sender == nil {
		return apperr.Unavailable("sms is not configured")
	}
	if s.enqueuer == nil {
		return apperr.Unavailable("task queue is not configured")
	}

	if err := s.repo.SetCampaignStatus(ctx, id, repository.CampaignQueued); err != nil {
		return err
	}
	if err := s.enqueuer.EnqueueCampaignDispatch(ctx, id); err != nil {
		// Roll the status back so the campaign can be retried.
		if rbErr := s.repo.SetCampaignStatus(ctx, id, repository.CampaignDraft); rbErr != nil {
			s.log.Error("campaign status rollback failed", "campaign_id", id, "error", rbErr)
		}
		return err
	}
	return nil
}

// CancelCampaign cancels a campaign that has not completed.
func (s *Service) CancelCampaign(ctx context.Context, id uuid.UUID) error {
	campaign, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status == repository.CampaignCompleted {
		return apperr.Validation("campaign already completed")
	}
	return s.repo.SetCampaignStatus(ctx, id, repository.CampaignCanceled)
}

// deliver sends one message, records it, logs the touch, and publishes the
// sent event.
func (s *Service) deliver(ctx context.Context, lead LeadContact, campaignID *uuid.UUID, to, body string) (repository.Message, error) {
	if s.sender == nil {
		return repository.Message{}, apperr.Unavailable("sms is not configured")
	}

	sid, sendErr := s.sender.Send(ctx, to, body)

	status := repository.StatusSent
	errorMessage := ""
	if sendErr != nil {
		status = repository.StatusFailed
		errorMessage = sendErr.Error()
	}

	message, err := s.repo.CreateMessage(ctx, repository.Message{
		LeadID:       lead.ID,
		CampaignID:   campaignID,
		Direction:    repository.DirectionOutbound,
		Phone:        to,
		Body:         body,
		Status:       status,
		ProviderSID:  sid,
		ErrorMessage: errorMessage,
	})
	if err != nil {
		return repository.Message{}, err
	}
	if sendErr != nil {
		return message, sendErr
	}

	if err := s.leads.TouchLastContacted(ctx, lead.ID); err != nil {
		s.log.Warn("touch last contacted failed", "lead_id", lead.ID, "error", err)
	}
	if err := s.leads.RecordActivity(ctx, lead.ID, "sms", "Sent: "+body); err != nil {
		s.log.Warn("record outbound activity failed", "lead_id", lead.ID, "error", err)
	}

	s.bus.Publish(ctx, events.MessageSent{
		BaseEvent:  events.NewBaseEvent(),
		MessageID:  message.ID,
		LeadID:     lead.ID,
		CampaignID: campaignID,
		Phone:      to,
	})
	return message, nil
}

func (s *Service) renderForLead(ctx context.Context, templateBody string, lead LeadContact) (string, error) {
	property, err := s.leads.PropertyFields(ctx, lead.PropertyID)
	if err != nil {
		return "", err
	}
	return RenderTemplate(templateBody, TemplateFields(lead.OwnerName, property)), nil
}

func templateFromRequest(req transport.UpsertTemplateRequest) repository.Template {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return repository.Template{
		Name:   strings.TrimSpace(req.Name),
		Body:   req.Body,
		Active: active,
	}
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
