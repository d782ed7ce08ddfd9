package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dealflow_backend/internal/ingest/service"
	"dealflow_backend/internal/ingest/transport"
	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/validator"
)

// Handler handles HTTP requests for ingest source management.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid ID"
)

// New creates a new ingest handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// CreateSource registers a data source.
// POST /api/v1/admin/ingest/sources
func (h *Handler) CreateSource(c *gin.Context) {
	var req transport.CreateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateSource(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListSources returns data sources.
// GET /api/v1/admin/ingest/sources
func (h *Handler) ListSources(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	result, err := h.svc.ListSources(c.Request.Context(), activeOnly)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetSource returns a data source.
// GET /api/v1/admin/ingest/sources/:id
func (h *Handler) GetSource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetSource(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateSource overwrites a data source.
// PUT /api/v1/admin/ingest/sources/:id
func (h *Handler) UpdateSource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateSource(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteSource removes a data source.
// DELETE /api/v1/admin/ingest/sources/:id
func (h *Handler) DeleteSource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.DeleteSource(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Run enqueues an import run for a source.
// POST /api/v1/admin/ingest/sources/:id/run
func (h *Handler) Run(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	source, err := h.svc.EnqueueRun(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"sourceKey": source.Key, "status": "queued"})
}

// ListRuns returns import runs.
// GET /api/v1/admin/ingest/runs
func (h *Handler) ListRuns(c *gin.Context) {
	result, err := h.svc.ListRuns(c.Request.Context(), c.Query("source"),
		queryInt(c, "page", 1), queryInt(c, "pageSize", 0))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetRun returns an import run.
// GET /api/v1/admin/ingest/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetRun(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
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
