package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dealflow_backend/internal/leads/service"
	"dealflow_backend/internal/leads/transport"
	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/validator"
)

// Handler handles HTTP requests for the lead pipeline.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead ID"
)

// New creates a new leads handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves leads with filters.
// GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Board returns the pipeline Kanban view.
// GET /api/v1/leads/board
func (h *Handler) Board(c *gin.Context) {
	result, err := h.svc.Board(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// FollowUpsDue returns open leads whose follow-up time has passed.
// GET /api/v1/leads/follow-ups
func (h *Handler) FollowUpsDue(c *gin.Context) {
	result, err := h.svc.FollowUpsDue(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves a lead by ID.
// GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create adds a new lead for a property.
// POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req, actorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// UpdateContact overwrites the lead's owner contact fields.
// PUT /api/v1/leads/:id/contact
func (h *Handler) UpdateContact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateContact(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ChangeStatus moves a lead through the pipeline.
// PUT /api/v1/leads/:id/status
func (h *Handler) ChangeStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ChangeStatus(c.Request.Context(), id, req, actorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Assign sets or clears the assigned agent.
// PUT /api/v1/leads/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Assign(c.Request.Context(), id, req, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetFollowUp schedules or clears the next follow-up reminder.
// PUT /api/v1/leads/:id/follow-up
func (h *Handler) SetFollowUp(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.SetFollowUp(c.Request.Context(), id, req); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// AddActivity appends a manual timeline entry.
// POST /api/v1/leads/:id/activities
func (h *Handler) AddActivity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.AddActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.AddActivity(c.Request.Context(), id, req, actorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListActivities returns a lead's timeline.
// GET /api/v1/leads/:id/activities
func (h *Handler) ListActivities(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "pageSize", 0)

	result, err := h.svc.ListActivities(c.Request.Context(), id, page, pageSize)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Rescore recomputes a lead's motivation score on demand.
// POST /api/v1/leads/:id/rescore
func (h *Handler) Rescore(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.Rescore(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RescoreAll recomputes scores for every open lead.
// POST /api/v1/admin/leads/rescore
func (h *Handler) RescoreAll(c *gin.Context) {
	result, err := h.svc.RescoreAll(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func actorID(c *gin.Context) *uuid.UUID {
	identity := httpkit.GetIdentity(c)
	if !identity.IsAuthenticated() {
		return nil
	}
	id := identity.UserID()
	return &id
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
