package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealflow_backend/internal/analyzers/service"
	"dealflow_backend/internal/analyzers/transport"
	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/validator"
)

// Handler handles HTTP requests for the deal analyzers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// New creates a new analyzers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ARV estimates after-repair value from comparable sales.
// POST /api/v1/analyzers/arv
func (h *Handler) ARV(c *gin.Context) {
	var req transport.ARVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	httpkit.OK(c, h.svc.ARV(c.Request.Context(), req))
}

// Repair estimates rehab cost.
// POST /api/v1/analyzers/repair
func (h *Handler) Repair(c *gin.Context) {
	var req transport.RepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	httpkit.OK(c, h.svc.Repair(c.Request.Context(), req))
}

// MAO computes the maximum allowable offer.
// POST /api/v1/analyzers/mao
func (h *Handler) MAO(c *gin.Context) {
	var req transport.MAORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	httpkit.OK(c, h.svc.MAO(c.Request.Context(), req))
}

// CashFlow runs a rental cash flow analysis.
// POST /api/v1/analyzers/cash-flow
func (h *Handler) CashFlow(c *gin.Context) {
	var req transport.CashFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	httpkit.OK(c, h.svc.CashFlow(c.Request.Context(), req))
}

// DealScore computes the composite deal quality score.
// POST /api/v1/analyzers/deal-score
func (h *Handler) DealScore(c *gin.Context) {
	var req transport.DealScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	httpkit.OK(c, h.svc.DealScore(c.Request.Context(), req))
}
