package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/compound"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/identity"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/otp"
	pw "github.com/HamzaElshennawy/qrsystem-sub000/internal/password"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/repository"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/store"
)

// Next steps reported to the client after OTP confirmation.
const (
	StepSetupPassword = "setup-password"
	StepAuthenticated = "authenticated"
)

// credentialsMessage is shared by the unknown-account and wrong-password
// outcomes so callers cannot enumerate accounts.
const credentialsMessage = "Wrong email/phone or password."

// IdentityHints carry whatever the caller knows about the owner. The flow
// never reads ambient client state; the verified identity always arrives
// explicitly.
type IdentityHints struct {
	OwnerID    int64
	Phone      string
	Email      string
	IdentityID string
}

// CheckDeviceResult answers whether a fingerprint maps to a trusted owner.
type CheckDeviceResult struct {
	Owner         *domain.User `json:"owner,omitempty"`
	RequiresOTP   bool         `json:"requiresOTP"`
	IsKnownDevice bool         `json:"isKnownDevice"`
}

// ConfirmOTPResult reports the owner and the next step of the flow.
type ConfirmOTPResult struct {
	Owner    domain.User `json:"owner"`
	NextStep string      `json:"nextStep"`
}

// LoginResult is the password-login outcome.
type LoginResult struct {
	Owner       domain.User `json:"owner"`
	RequiresOTP bool        `json:"requiresOTP"`
}

// AuthService orchestrates the owner authentication state machine: it
// composes the identity resolver, device sessions, credentials, and the OTP
// channel to decide when OTP may be skipped and when a device becomes
// trusted. OTP is the trust anchor; the password fast path only opens after
// OTP has been confirmed on the device at least once.
type AuthService struct {
	users    repository.UserRepository
	devices  *DeviceService
	resolver *identity.Resolver
	channel  otp.Channel
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, devices *DeviceService, resolver *identity.Resolver, channel otp.Channel, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		devices:  devices,
		resolver: resolver,
		channel:  channel,
		logger:   logger,
		tracer:   otel.Tracer("github.com/HamzaElshennawy/qrsystem-sub000/internal/service"),
	}
}

// CheckDevice decides whether the device may take the password fast path.
// The OTP requirement drops only when the fingerprint maps to an owner with
// a password, past first login, on a session that is still active. The call
// is read-only, so repeating it without state changes yields the same answer.
func (s *AuthService) CheckDevice(ctx context.Context, cpd *compound.Context, fingerprint, userAgent string) (*CheckDeviceResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.CheckDevice")
	defer span.End()

	if strings.TrimSpace(fingerprint) == "" {
		return nil, newAuthError("invalid_request", "Device fingerprint is required.", http.StatusBadRequest)
	}

	sessions, err := s.devices.SessionsForFingerprint(ctx, fingerprint)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("lookup device sessions: %w", err)
	}
	if len(sessions) == 0 {
		return &CheckDeviceResult{RequiresOTP: true}, nil
	}

	// Most recently used session wins when the fingerprint has history with
	// more than one user.
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastUsedAt.After(sessions[j].LastUsedAt)
	})
	session := sessions[0]

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			span.RecordError(err)
			return nil, fmt.Errorf("load session user: %w", err)
		}
		// Orphaned session; treat the device as anonymous.
		s.log().Warn("device session references missing user",
			zap.Int64("session_id", session.ID),
			zap.Int64("user_id", session.UserID),
			zap.Error(err),
		)
		return &CheckDeviceResult{RequiresOTP: true}, nil
	}
	if user.CompoundID != cpd.Compound.ID || !user.IsActive {
		return &CheckDeviceResult{RequiresOTP: true}, nil
	}

	requiresOTP := !(user.HasPassword && !user.IsFirstTimeLogin && session.IsActive)
	return &CheckDeviceResult{
		Owner:         &user,
		RequiresOTP:   requiresOTP,
		IsKnownDevice: true,
	}, nil
}

// SendOTP delivers a one-time code and returns the confirmation handle.
func (s *AuthService) SendOTP(ctx context.Context, cpd *compound.Context, phone string) (string, error) {
	ctx, span := s.startSpan(ctx, "AuthService.SendOTP")
	defer span.End()

	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return "", newAuthError("invalid_request", "Phone number is required.", http.StatusBadRequest)
	}

	handle, err := s.channel.Send(ctx, cleaned)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("send otp: %w", err)
	}

	s.audit("otp.sent", "compound_id", cpd.Compound.ID)
	return handle, nil
}

// ConfirmOTP verifies the code, resolves the owner, and reports the next
// step: password setup for first-time or password-less owners, otherwise the
// device session is activated and the owner is authenticated.
func (s *AuthService) ConfirmOTP(ctx context.Context, cpd *compound.Context, handle, code, fingerprint, userAgent, ipAddress string, hints IdentityHints) (*ConfirmOTPResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.ConfirmOTP")
	defer span.End()

	if strings.TrimSpace(handle) == "" || strings.TrimSpace(code) == "" {
		return nil, newAuthError("invalid_request", "Confirmation handle and code are required.", http.StatusBadRequest)
	}

	if err := s.channel.Confirm(ctx, handle, code); err != nil {
		if errors.Is(err, otp.ErrInvalidCode) {
			return nil, newAuthError("invalid_grant", "Invalid or expired code.", http.StatusBadRequest)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("confirm otp: %w", err)
	}

	user, err := s.resolveOwner(ctx, cpd, hints)
	if err != nil {
		return nil, err
	}

	if user.IsFirstTimeLogin || !user.HasPassword {
		s.audit("otp.confirm.success", "compound_id", cpd.Compound.ID, "user_id", user.ID, "next_step", StepSetupPassword)
		return &ConfirmOTPResult{Owner: user, NextStep: StepSetupPassword}, nil
	}

	if strings.TrimSpace(fingerprint) != "" {
		if _, err := s.devices.EnsureActive(ctx, user.ID, fingerprint, userAgent, ipAddress); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("activate device session: %w", err)
		}
	}

	s.audit("otp.confirm.success", "compound_id", cpd.Compound.ID, "user_id", user.ID, "next_step", StepAuthenticated)
	return &ConfirmOTPResult{Owner: user, NextStep: StepAuthenticated}, nil
}

// SetupPassword stores the owner's first password and trusts the current
// device. Validation happens before any I/O.
func (s *AuthService) SetupPassword(ctx context.Context, cpd *compound.Context, password, confirmPassword, fingerprint, userAgent, ipAddress string, hints IdentityHints) (*domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.SetupPassword")
	defer span.End()

	if password == "" || confirmPassword == "" {
		return nil, newAuthError("invalid_request", "Password and confirmation are required.", http.StatusBadRequest)
	}
	if password != confirmPassword {
		return nil, newAuthError("invalid_request", "Passwords do not match.", http.StatusBadRequest)
	}
	if result := pw.ValidateStrength(password); !result.IsValid {
		return nil, newAuthError("invalid_request", strings.Join(result.Errors, " "), http.StatusBadRequest)
	}

	user, err := s.resolveOwner(ctx, cpd, hints)
	if err != nil {
		return nil, err
	}

	hash, err := pw.Hash(password)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.Update(ctx, user.ID, map[string]any{
		"passwordHash":     hash,
		"hasPassword":      true,
		"isFirstTimeLogin": false,
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store password: %w", err)
	}
	user.PasswordHash = hash
	user.HasPassword = true
	user.IsFirstTimeLogin = false

	// Device trust is best-effort here: the password write is the
	// authoritative outcome and must not be rolled back by a session
	// failure. The failure is logged so it stays observable.
	if strings.TrimSpace(fingerprint) != "" {
		if _, err := s.devices.EnsureActive(ctx, user.ID, fingerprint, userAgent, ipAddress); err != nil {
			s.log().Warn("device activation after password setup failed",
				zap.Int64("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	s.audit("password.setup.success", "compound_id", cpd.Compound.ID, "user_id", user.ID)
	return &user, nil
}

// LoginWithPassword verifies credentials and decides whether the device is
// trusted. A correct password on an unrecognized or inactive device still
// forces OTP; the inactive session is created up front so the later OTP
// confirmation can activate it.
func (s *AuthService) LoginWithPassword(ctx context.Context, cpd *compound.Context, emailOrPhone, password, fingerprint, userAgent, ipAddress string) (*LoginResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.LoginWithPassword")
	defer span.End()

	login := strings.TrimSpace(emailOrPhone)
	if login == "" || password == "" {
		return nil, newAuthError("invalid_request", "Login and password are required.", http.StatusBadRequest)
	}
	if strings.TrimSpace(fingerprint) == "" {
		return nil, newAuthError("invalid_request", "Device fingerprint is required.", http.StatusBadRequest)
	}

	query := identity.Query{Phone: login}
	if strings.Contains(login, "@") {
		query = identity.Query{Email: login}
	}
	candidates, strategy, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("resolve owner: %w", err)
	}
	// Credentials only bind to exact matches. The suffix and partial-email
	// steps exist for the OTP flow, where the code proves phone possession;
	// here they would let one account answer for another.
	if strategy != identity.StrategyExactPhone && strategy != identity.StrategyExactEmail {
		candidates = nil
	}
	user, ok := firstInCompound(candidates, cpd.Compound.ID)
	if !ok || !user.HasPassword {
		// Same message as a wrong password; account existence stays hidden.
		return nil, newAuthError("invalid_grant", credentialsMessage, http.StatusBadRequest)
	}

	valid, err := pw.Verify(password, user.PasswordHash)
	if err != nil || !valid {
		if err != nil {
			span.RecordError(err)
		}
		return nil, newAuthError("invalid_grant", credentialsMessage, http.StatusBadRequest)
	}

	session, found, err := s.devices.GetByUserAndDevice(ctx, user.ID, fingerprint)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("lookup device session: %w", err)
	}

	switch {
	case found && session.IsActive:
		if err := s.devices.Touch(ctx, session.ID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("touch device session: %w", err)
		}
		s.audit("password.login.success", "compound_id", cpd.Compound.ID, "user_id", user.ID, "strategy", string(strategy))
		return &LoginResult{Owner: user, RequiresOTP: false}, nil
	case !found:
		if _, err := s.devices.Create(ctx, user.ID, fingerprint, userAgent, ipAddress, false); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("create pending device session: %w", err)
		}
	}

	s.audit("password.login.otp_required", "compound_id", cpd.Compound.ID, "user_id", user.ID)
	return &LoginResult{Owner: user, RequiresOTP: true}, nil
}

// ActivateDevice trusts the current device for the resolved owner. Used
// after an out-of-band OTP confirmation.
func (s *AuthService) ActivateDevice(ctx context.Context, cpd *compound.Context, fingerprint, userAgent, ipAddress string, hints IdentityHints) error {
	ctx, span := s.startSpan(ctx, "AuthService.ActivateDevice")
	defer span.End()

	if strings.TrimSpace(fingerprint) == "" {
		return newAuthError("invalid_request", "Device fingerprint is required.", http.StatusBadRequest)
	}

	user, err := s.resolveOwner(ctx, cpd, hints)
	if err != nil {
		return err
	}
	if _, err := s.devices.EnsureActive(ctx, user.ID, fingerprint, userAgent, ipAddress); err != nil {
		span.RecordError(err)
		return fmt.Errorf("activate device session: %w", err)
	}

	s.audit("device.activated", "compound_id", cpd.Compound.ID, "user_id", user.ID)
	return nil
}

// RevokeDevice drops trust for the owner's session on this fingerprint.
func (s *AuthService) RevokeDevice(ctx context.Context, cpd *compound.Context, fingerprint string, hints IdentityHints) error {
	ctx, span := s.startSpan(ctx, "AuthService.RevokeDevice")
	defer span.End()

	if strings.TrimSpace(fingerprint) == "" {
		return newAuthError("invalid_request", "Device fingerprint is required.", http.StatusBadRequest)
	}

	user, err := s.resolveOwner(ctx, cpd, hints)
	if err != nil {
		return err
	}
	session, found, err := s.devices.GetByUserAndDevice(ctx, user.ID, fingerprint)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("lookup device session: %w", err)
	}
	if !found {
		return newAuthError("not_found", "No session for this device.", http.StatusNotFound)
	}
	if err := s.devices.Revoke(ctx, session.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("revoke device session: %w", err)
	}

	s.audit("device.revoked", "compound_id", cpd.Compound.ID, "user_id", user.ID, "session_id", session.ID)
	return nil
}

// resolveOwner turns identity hints into the single owner record this
// compound knows, trying the direct ID first and the resolver chain after.
func (s *AuthService) resolveOwner(ctx context.Context, cpd *compound.Context, hints IdentityHints) (domain.User, error) {
	if hints.OwnerID != 0 {
		user, err := s.users.GetByID(ctx, hints.OwnerID)
		if err == nil && user.CompoundID == cpd.Compound.ID {
			return user, nil
		}
	}

	candidates, strategy, err := s.resolver.Resolve(ctx, identity.Query{
		Phone:      hints.Phone,
		Email:      hints.Email,
		IdentityID: hints.IdentityID,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("resolve owner: %w", err)
	}
	user, ok := firstInCompound(candidates, cpd.Compound.ID)
	if !ok {
		return domain.User{}, newAuthError("not_found", "Owner profile not found.", http.StatusNotFound)
	}

	s.log().Debug("owner resolved",
		zap.Int64("user_id", user.ID),
		zap.String("strategy", string(strategy)),
	)
	return user, nil
}

func firstInCompound(users []domain.User, compoundID int64) (domain.User, bool) {
	for _, user := range users {
		if user.CompoundID == compoundID {
			return user, true
		}
	}
	return domain.User{}, false
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
