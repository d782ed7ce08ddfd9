package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dealflow_backend/internal/skiptrace/service"
	"dealflow_backend/internal/skiptrace/transport"
	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/validator"
)

// Handler handles HTTP requests for skip tracing.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new skiptrace handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Trace runs a skip trace lookup for a lead.
// POST /api/v1/skip-trace/leads/:leadId
func (h *Handler) Trace(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead ID", nil)
		return
	}

	var req transport.TraceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
			return
		}
	}

	result, err := h.svc.Trace(c.Request.Context(), leadID, req.Force)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// TraceBatch runs lookups for a set of leads.
// POST /api/v1/skip-trace/batch
func (h *Handler) TraceBatch(c *gin.Context) {
	var req transport.BatchTraceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.TraceBatch(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Results returns stored lookups for a lead.
// GET /api/v1/skip-trace/leads/:leadId/results
func (h *Handler) Results(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead ID", nil)
		return
	}

	results, err := h.svc.Results(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, results)
}
