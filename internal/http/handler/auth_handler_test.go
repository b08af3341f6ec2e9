package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/compound"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
	httpHandler "github.com/HamzaElshennawy/qrsystem-sub000/internal/http/handler"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/identity"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/otp"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/password"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/repository"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/service"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/store"
)

func testCompoundCtx() *compound.Context {
	return &compound.Context{Compound: domain.Compound{
		ID: 1, Slug: "palm-hills", Name: "Palm Hills", AdminSubject: "admin-1", IsActive: true,
	}}
}

func newTestAuthHandler(t *testing.T) (*httpHandler.AuthHandler, repository.UserRepository) {
	t.Helper()

	s := store.NewMemoryStore()
	users := repository.NewStoreUserRepo(s)
	sessions := repository.NewStoreDeviceSessionRepo(s)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	logger := zap.NewNop()
	devices := service.NewDeviceService(sessions, node, logger)
	resolver := identity.NewResolver(users, logger)
	authSvc := service.NewAuthService(users, devices, resolver, otp.NewMemoryChannel(), logger)
	return httpHandler.NewAuthHandler(authSvc), users
}

func seedHandlerOwner(t *testing.T, users repository.UserRepository) domain.User {
	t.Helper()

	hash, err := password.Hash("Sup3r$ecret")
	require.NoError(t, err)
	now := time.Now().UTC()
	user := domain.User{
		ID: 10, CompoundID: 1, Type: domain.UserTypeOwner,
		Email: "amira@example.com", Phone: "01012345678",
		IsActive: true, HasPassword: true, PasswordHash: hash,
		CreatedAt: now, UpdatedAt: now,
	}
	created, err := users.Create(context.Background(), user)
	require.NoError(t, err)
	return created
}

func postJSON(t *testing.T, path string, payload map[string]any) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "https://palm-hills.qrsystem.test"+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("compoundContext", testCompoundCtx())
	return w, c
}

func TestCheckDeviceUnknownFingerprint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTestAuthHandler(t)

	w, c := postJSON(t, "/auth/owner/device/check", map[string]any{"fingerprint": "fp-1"})
	handler.CheckDevice(c)

	res := w.Result()
	body, _ := io.ReadAll(res.Body)
	_ = res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)

	var result struct {
		RequiresOTP   bool `json:"requiresOTP"`
		IsKnownDevice bool `json:"isKnownDevice"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	require.True(t, result.RequiresOTP)
	require.False(t, result.IsKnownDevice)
}

func TestCheckDeviceAcceptsRawSignals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTestAuthHandler(t)

	w, c := postJSON(t, "/auth/owner/device/check", map[string]any{
		"signals": map[string]any{
			"userAgent":        "Mozilla/5.0 Chrome/126.0",
			"screenResolution": "1920x1080",
			"timezone":         "Africa/Cairo",
			"language":         "en-US",
			"platform":         "Win32",
			"cookiesEnabled":   true,
			"colorDepth":       24,
			"pixelRatio":       1.25,
		},
	})
	handler.CheckDevice(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "requiresOTP")
}

func TestCheckDeviceRequiresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTestAuthHandler(t)

	w, c := postJSON(t, "/auth/owner/device/check", map[string]any{})
	handler.CheckDevice(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_request")
}

func TestCheckDeviceWithoutCompound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTestAuthHandler(t)

	body, _ := json.Marshal(map[string]any{"fingerprint": "fp-1"})
	req := httptest.NewRequest(http.MethodPost, "https://unknown.qrsystem.test/auth/owner/device/check", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.CheckDevice(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "invalid_compound")
}

func TestLoginWithPasswordResponseShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, users := newTestAuthHandler(t)
	owner := seedHandlerOwner(t, users)

	w, c := postJSON(t, "/auth/owner/password/login", map[string]any{
		"login":       owner.Email,
		"password":    "Sup3r$ecret",
		"fingerprint": "fp-1",
	})
	handler.LoginWithPassword(c)

	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Owner       domain.User `json:"owner"`
		RequiresOTP bool        `json:"requiresOTP"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, owner.ID, result.Owner.ID)
	require.True(t, result.RequiresOTP, "first login from an unknown device")

	// The password hash never leaves the service.
	require.NotContains(t, w.Body.String(), "passwordHash")
	require.NotContains(t, w.Body.String(), owner.PasswordHash)
}

func TestLoginWithPasswordWrongCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, users := newTestAuthHandler(t)
	seedHandlerOwner(t, users)

	w, c := postJSON(t, "/auth/owner/password/login", map[string]any{
		"login":       "amira@example.com",
		"password":    "Wr0ng$Pass",
		"fingerprint": "fp-1",
	})
	handler.LoginWithPassword(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_grant")
	require.Contains(t, w.Body.String(), "error_description")
}

func TestSendOTPReturnsHandle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, users := newTestAuthHandler(t)
	seedHandlerOwner(t, users)

	w, c := postJSON(t, "/auth/owner/otp/request", map[string]any{"phone": "01012345678"})
	handler.SendOTP(c)

	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Handle string `json:"handle"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotEmpty(t, result.Handle)
}
