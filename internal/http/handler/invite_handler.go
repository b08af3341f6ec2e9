package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/http/middleware"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/service"
)

// InviteHandler exposes the owner invite lifecycle.
type InviteHandler struct {
	Invites *service.InviteService
}

// NewInviteHandler creates the handler.
func NewInviteHandler(invites *service.InviteService) *InviteHandler {
	return &InviteHandler{Invites: invites}
}

// CreateInvite issues a pending invite. Requires the compound's admin.
func (h *InviteHandler) CreateInvite(c *gin.Context) {
	cpdCtx, ok := middleware.GetCompoundContext(c)
	if !ok {
		respondNoCompound(c)
		return
	}
	subject, ok := middleware.GetSubject(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Bearer identity required."})
		return
	}

	var req struct {
		Phone          string `json:"phone" binding:"required"`
		Email          string `json:"email"`
		FirstName      string `json:"firstName"`
		LastName       string `json:"lastName"`
		PropertyUnit   string `json:"propertyUnit"`
		ExpiresInHours int    `json:"expiresInHours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "phone is required.")
		return
	}

	input := service.CreateInviteInput{
		Phone:        req.Phone,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PropertyUnit: req.PropertyUnit,
	}
	if req.ExpiresInHours > 0 {
		expires := time.Now().UTC().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		input.ExpiresAt = &expires
	}

	result, err := h.Invites.CreateInvite(c.Request.Context(), cpdCtx, subject, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// AcceptInvite consumes a pending invite and creates the owner record.
func (h *InviteHandler) AcceptInvite(c *gin.Context) {
	subject, ok := middleware.GetSubject(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Bearer identity required."})
		return
	}

	var req struct {
		Token     string `json:"token" binding:"required"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "token is required.")
		return
	}

	owner, err := h.Invites.AcceptInvite(c.Request.Context(), subject, req.Token, req.FirstName, req.LastName)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner})
}
