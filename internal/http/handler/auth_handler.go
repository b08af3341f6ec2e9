package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/fingerprint"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/http/middleware"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/service"
)

// AuthHandler exposes the owner authentication flow.
type AuthHandler struct {
	Auth *service.AuthService
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

type identityHintsRequest struct {
	OwnerID    int64  `json:"ownerId"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	IdentityID string `json:"identityId"`
}

func (r identityHintsRequest) toService() service.IdentityHints {
	return service.IdentityHints{
		OwnerID:    r.OwnerID,
		Phone:      r.Phone,
		Email:      r.Email,
		IdentityID: r.IdentityID,
	}
}

// deviceSignalsRequest carries the raw environment signals for clients that
// do not compute the fingerprint themselves.
type deviceSignalsRequest struct {
	UserAgent        string  `json:"userAgent"`
	ScreenResolution string  `json:"screenResolution"`
	Timezone         string  `json:"timezone"`
	Language         string  `json:"language"`
	Platform         string  `json:"platform"`
	CookiesEnabled   bool    `json:"cookiesEnabled"`
	DoNotTrack       string  `json:"doNotTrack"`
	ColorDepth       int     `json:"colorDepth"`
	PixelRatio       float64 `json:"pixelRatio"`
}

func (r *deviceSignalsRequest) generate() string {
	return fingerprint.Generate(fingerprint.Signals{
		UserAgent:        r.UserAgent,
		ScreenResolution: r.ScreenResolution,
		Timezone:         r.Timezone,
		Language:         r.Language,
		Platform:         r.Platform,
		CookiesEnabled:   r.CookiesEnabled,
		DoNotTrack:       r.DoNotTrack,
		ColorDepth:       r.ColorDepth,
		PixelRatio:       r.PixelRatio,
	})
}

// CheckDevice reports whether the fingerprint maps to a trusted owner.
// Clients send either a precomputed fingerprint or the raw signals.
func (h *AuthHandler) CheckDevice(c *gin.Context) {
	cpdCtx, ok := middleware.GetCompoundContext(c)
	if !ok {
		respondNoCompound(c)
		return
	}

	var req struct {
		Fingerprint string                `json:"fingerprint"`
		Signals     *deviceSignalsRequest `json:"signals"`
		UserAgent   string                `json:"userAgent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "fingerprint or signals are required.")
		return
	}
	if req.Fingerprint == "" && req.Signals != nil {
		req.Fingerprint = req.Signals.generate()
		if req.UserAgent == "" {
			req.UserAgent = req.Signals.UserAgent
		}
	}
	if req.Fingerprint == "" {
		respondBadRequest(c, "fingerprint or signals are required.")
		return
	}

	result, err := h.Auth.CheckDevice(c.Request.Context(), cpdCtx, req.Fingerprint, userAgent(c, req.UserAgent))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SendOTP delivers a one-time code and returns the confirmation handle.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	cpdCtx, ok := middleware.GetCompoundContext(c)
	if !ok {
		respondNoCompound(c)
		return
	}

	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "phone is required.")
		return
	}

	handle, err := h.Auth.SendOTP(c.Request.Context(), cpdCtx, req.Phone)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"handle": handle})
}

// ConfirmOTP verifies the code and reports the next step.
func (h *AuthHandler) ConfirmOTP(c *gin.Context) {
	cpdCtx, ok := middleware.GetCompoundContext(c)
	if !ok {
		respondNoCompound(c)
		return
	}

	var req struct {
		Handle      string `json:"handle" binding:"required"`
		Code        string `json:"code" binding:"required"`
		Fingerprint string `json:"fingerprint"`
		UserAgent   string `json:"userAgent"`
		identityHintsRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "handle and code are required.")
		return
	}

	result, err := h.Auth.ConfirmOTP(c.Request.Context(), cpdCtx, req.Handle, req.Code, req.Fingerprint, userAgent(c, req.UserAgent), c.ClientIP(), req.toService())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SetupPassword stores the owner's first password and trusts the device.
func (h *AuthHandler) SetupPassword(c *gin.Context) {
	cpdCtx, ok := middleware.GetCompoundContext(c)
	if !ok {
		respondNoCompound(c)
		return
	}

	var req struct {
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
		Fingerprint     string `json:"fingerprint"`
		UserAgent       string `json:"userAgent"`
		identityHintsRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "password and confirmPassword are required.")
		return
	}

	owner, err := h.Auth.SetupPassword(c.Request.Context(), cpdCtx, req.Password, req.ConfirmPassword, req.Fingerprint, userAgent(c, req.UserAgent), c.ClientIP(), req.toService())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner})
}

// LoginWithPassword verifies credentials on a known or unknown device.
func (h *AuthHandler) LoginWithPassword(c *gin.Context) {
	cpdCtx, ok := middleware.GetCompoundContext(c)
	if !ok {
		respondNoCompound(c)
		return
	}

	var req struct {
		Login       string `json:"login" binding:"required"`
		Password    string `json:"password" binding:"required"`
		Fingerprint string `json:"fingerprint" binding:"required"`
		UserAgent   string `json:"userAgent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "login, password, and fingerprint are required.")
		return
	}

	result, err := h.Auth.LoginWithPassword(c.Request.Context(), cpdCtx, req.Login, req.Password, req.Fingerprint, userAgent(c, req.UserAgent), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ActivateDevice trusts the current device for the resolved owner.
func (h *AuthHandler) ActivateDevice(c *gin.Context) {
	cpdCtx, ok := middleware.GetCompoundContext(c)
	if !ok {
		respondNoCompound(c)
		return
	}

	var req struct {
		Fingerprint string `json:"fingerprint" binding:"required"`
		UserAgent   string `json:"userAgent"`
		identityHintsRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "fingerprint is required.")
		return
	}

	if err := h.Auth.ActivateDevice(c.Request.Context(), cpdCtx, req.Fingerprint, userAgent(c, req.UserAgent), c.ClientIP(), req.toService()); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RevokeDevice drops trust for the owner's session on this fingerprint.
func (h *AuthHandler) RevokeDevice(c *gin.Context) {
	cpdCtx, ok := middleware.GetCompoundContext(c)
	if !ok {
		respondNoCompound(c)
		return
	}

	var req struct {
		Fingerprint string `json:"fingerprint" binding:"required"`
		identityHintsRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "fingerprint is required.")
		return
	}

	if err := h.Auth.RevokeDevice(c.Request.Context(), cpdCtx, req.Fingerprint, req.toService()); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func userAgent(c *gin.Context, override string) string {
	if override != "" {
		return override
	}
	return c.Request.UserAgent()
}

func respondNoCompound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "invalid_compound", "error_description": "Compound not resolved."})
}

func respondBadRequest(c *gin.Context, desc string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": desc})
}

func respondServiceError(c *gin.Context, err error) {
	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		c.JSON(authErr.Status, gin.H{"error": authErr.Code, "error_description": authErr.Description})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": err.Error()})
}
