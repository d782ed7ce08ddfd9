package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dealflow_backend/internal/sms/service"
	"dealflow_backend/internal/sms/transport"
	"dealflow_backend/internal/sms/twilio"
	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/validator"
)

// Handler handles HTTP requests for SMS outreach.
type Handler struct {
	svc    *service.Service
	client *twilio.Client
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid ID"
)

// New creates a new sms handler. client may be nil when Twilio is disabled;
// webhooks then reject all requests.
func New(svc *service.Service, client *twilio.Client, val *validator.Validator) *Handler {
	return &Handler{svc: svc, client: client, val: val}
}

// Send sends a one-off SMS to a lead.
// POST /api/v1/sms/messages
func (h *Handler) Send(c *gin.Context) {
	var req transport.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SendToLead(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListMessages returns a lead's conversation.
// GET /api/v1/sms/leads/:leadId/messages
func (h *Handler) ListMessages(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead ID", nil)
		return
	}

	result, err := h.svc.ListMessages(c.Request.Context(), leadID, queryInt(c, "page", 1), queryInt(c, "pageSize", 0))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateTemplate adds a message template.
// POST /api/v1/sms/templates
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req transport.UpsertTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateTemplate(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListTemplates returns templates.
// GET /api/v1/sms/templates
func (h *Handler) ListTemplates(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	result, err := h.svc.ListTemplates(c.Request.Context(), activeOnly)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetTemplate returns a template.
// GET /api/v1/sms/templates/:id
func (h *Handler) GetTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetTemplate(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateTemplate overwrites a template.
// PUT /api/v1/sms/templates/:id
func (h *Handler) UpdateTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpsertTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateTemplate(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteTemplate removes a template.
// DELETE /api/v1/sms/templates/:id
func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.DeleteTemplate(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateCampaign creates a campaign in draft status.
// POST /api/v1/sms/campaigns
func (h *Handler) CreateCampaign(c *gin.Context) {
	var req transport.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateCampaign(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListCampaigns returns campaigns.
// GET /api/v1/sms/campaigns
func (h *Handler) ListCampaigns(c *gin.Context) {
	result, err := h.svc.ListCampaigns(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "pageSize", 0))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetCampaign returns a campaign.
// GET /api/v1/sms/campaigns/:id
func (h *Handler) GetCampaign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetCampaign(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// StartCampaign queues a draft campaign for dispatch.
// POST /api/v1/sms/campaigns/:id/start
func (h *Handler) StartCampaign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.StartCampaign(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusAccepted)
}

// CancelCampaign cancels a campaign.
// POST /api/v1/sms/campaigns/:id/cancel
func (h *Handler) CancelCampaign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.CancelCampaign(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// StatusCallback is the provider's delivery status webhook.
// POST /api/v1/sms/webhooks/status
func (h *Handler) StatusCallback(c *gin.Context) {
	if !h.validSignature(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	var req transport.StatusCallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.HandleStatusCallback(c.Request.Context(), req); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Inbound is the provider's incoming-message webhook.
// POST /api/v1/sms/webhooks/inbound
func (h *Handler) Inbound(c *gin.Context) {
	if !h.validSignature(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	var req transport.InboundMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.HandleInbound(c.Request.Context(), req); httpkit.HandleError(c, err) {
		return
	}
	// Twilio expects TwiML; an empty response means no reply.
	c.Data(http.StatusOK, "text/xml", []byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
}

func (h *Handler) validSignature(c *gin.Context) bool {
	if h.client == nil {
		return false
	}
	if err := c.Request.ParseForm(); err != nil {
		return false
	}

	scheme := "https"
	if c.Request.TLS == nil && c.GetHeader("X-Forwarded-Proto") != "https" {
		scheme = "http"
	}
	fullURL := scheme + "://" + c.Request.Host + c.Request.RequestURI

	return h.client.ValidateSignature(fullURL, c.Request.PostForm, c.GetHeader("X-Twilio-Signature"))
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
