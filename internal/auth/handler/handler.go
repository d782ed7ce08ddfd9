// Package handler exposes the authentication and account management endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dealflow_backend/internal/auth/service"
	"dealflow_backend/internal/auth/transport"
	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid user ID"
)

// Handler handles HTTP requests for authentication and accounts.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new auth handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Login exchanges credentials for a token pair.
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req transport.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, tokens)
}

// Refresh rotates a refresh token.
// POST /api/v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req transport.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	tokens, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, tokens)
}

// Logout revokes a refresh token.
// POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	var req transport.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

// Me returns the calling user's account.
// GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	user, err := h.svc.GetByID(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, service.ToUserResponse(user))
}

// ChangePassword replaces the calling user's password.
// POST /api/v1/auth/change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	err := h.svc.ChangePassword(c.Request.Context(), identity.UserID(), req.CurrentPassword, req.NewPassword)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

// Register creates a new account.
// POST /api/v1/admin/users
func (h *Handler) Register(c *gin.Context) {
	var req transport.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, service.ToUserResponse(user))
}

// ListUsers returns every account.
// GET /api/v1/admin/users
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, service.ToUserResponse(u))
	}
	httpkit.OK(c, out)
}

// SetActive enables or disables an account.
// PATCH /api/v1/admin/users/:id/active
func (h *Handler) SetActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.SetActive(c.Request.Context(), id, *req.Active); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}
