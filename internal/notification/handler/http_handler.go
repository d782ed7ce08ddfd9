// Package handler exposes the notification feed over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dealflow_backend/internal/notification/inapp"
	"dealflow_backend/platform/httpkit"
)

// HTTPHandler serves the per-agent notification feed.
type HTTPHandler struct {
	svc *inapp.Service
}

// NewHTTPHandler creates a new notification feed handler.
func NewHTTPHandler(svc *inapp.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// RegisterRoutes mounts the feed routes on the given group.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.PATCH("/:id/read", h.MarkRead)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.DELETE("/:id", h.Delete)
}

func (h *HTTPHandler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := h.svc.List(c.Request.Context(), identity.UserID(), page, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"items": items,
		"total": total,
		"page":  page,
	})
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), identity.UserID(), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.MarkAllRead(c.Request.Context(), identity.UserID()); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) Delete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), identity.UserID(), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}
