package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/compound"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/identity"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/repository"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/store"
)

const invalidInviteMessage = "Invalid or used invite."

// CreateInviteInput carries the admin-supplied invite fields.
type CreateInviteInput struct {
	Phone        string
	Email        string
	FirstName    string
	LastName     string
	PropertyUnit string
	ExpiresAt    *time.Time
}

// CreateInviteResult returns the identifiers the admin hands to the owner.
type CreateInviteResult struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
}

// InviteService owns the owner invite lifecycle: created by a compound
// admin, consumed exactly once by accept.
type InviteService struct {
	invites   repository.InviteRepository
	users     repository.UserRepository
	resolver  *identity.Resolver
	snowflake *snowflake.Node
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewInviteService wires dependencies.
func NewInviteService(invites repository.InviteRepository, users repository.UserRepository, resolver *identity.Resolver, node *snowflake.Node, logger *zap.Logger) *InviteService {
	return &InviteService{
		invites:   invites,
		users:     users,
		resolver:  resolver,
		snowflake: node,
		logger:    logger,
		tracer:    otel.Tracer("github.com/HamzaElshennawy/qrsystem-sub000/internal/service"),
	}
}

// CreateInvite issues a pending invite for a phone number. Only the admin
// identity that owns the compound may create invites for it.
func (s *InviteService) CreateInvite(ctx context.Context, cpd *compound.Context, adminSubject string, input CreateInviteInput) (*CreateInviteResult, error) {
	ctx, span := s.startSpan(ctx, "InviteService.CreateInvite")
	defer span.End()

	if strings.TrimSpace(adminSubject) == "" {
		return nil, newAuthError("invalid_token", "Admin identity required.", http.StatusUnauthorized)
	}
	if cpd.Compound.AdminSubject != adminSubject {
		return nil, newAuthError("access_denied", "Caller does not own this compound.", http.StatusForbidden)
	}
	phone := strings.TrimSpace(input.Phone)
	if phone == "" {
		return nil, newAuthError("invalid_request", "Phone number is required.", http.StatusBadRequest)
	}

	// Tolerant pre-check; the transactional phone claim at accept time is
	// what actually closes the race.
	existing, _, err := s.resolver.Resolve(ctx, identity.Query{Phone: phone})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check phone: %w", err)
	}
	if len(existing) > 0 {
		return nil, newAuthError("conflict", "Phone number already registered.", http.StatusBadRequest)
	}

	now := time.Now().UTC()
	invite := domain.OwnerInvite{
		ID:           s.snowflake.Generate().Int64(),
		Token:        newInviteToken(now),
		CompoundID:   cpd.Compound.ID,
		Phone:        phone,
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PropertyUnit: strings.TrimSpace(input.PropertyUnit),
		Status:       domain.InviteStatusPending,
		CreatedBy:    adminSubject,
		ExpiresAt:    input.ExpiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.invites.Create(ctx, invite)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create invite: %w", err)
	}

	s.audit("invite.created", "compound_id", cpd.Compound.ID, "invite_id", created.ID)
	return &CreateInviteResult{ID: created.ID, Token: created.Token}, nil
}

// AcceptInvite consumes a pending invite and creates the owner record. The
// token is single-use: any status other than pending rejects, and the phone
// claim document makes a concurrent duplicate registration fail in the same
// transaction that creates the user.
func (s *InviteService) AcceptInvite(ctx context.Context, subject, token, firstName, lastName string) (*domain.User, error) {
	ctx, span := s.startSpan(ctx, "InviteService.AcceptInvite")
	defer span.End()

	if strings.TrimSpace(token) == "" {
		return nil, newAuthError("invalid_request", "Invite token is required.", http.StatusBadRequest)
	}
	if strings.TrimSpace(subject) == "" {
		return nil, newAuthError("invalid_token", "Bearer identity required.", http.StatusUnauthorized)
	}

	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAuthError("invalid_grant", invalidInviteMessage, http.StatusBadRequest)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load invite: %w", err)
	}

	if invite.Status == domain.InviteStatusPending && invite.ExpiresAt != nil && time.Now().After(*invite.ExpiresAt) {
		if err := s.invites.Update(ctx, invite.ID, map[string]any{"status": domain.InviteStatusExpired}); err != nil {
			s.log().Warn("mark invite expired failed", zap.Int64("invite_id", invite.ID), zap.Error(err))
		}
		return nil, newAuthError("invalid_grant", "Invite expired.", http.StatusBadRequest)
	}
	if invite.Status != domain.InviteStatusPending {
		return nil, newAuthError("invalid_grant", invalidInviteMessage, http.StatusBadRequest)
	}

	first := strings.TrimSpace(firstName)
	if first == "" {
		first = invite.FirstName
	}
	last := strings.TrimSpace(lastName)
	if last == "" {
		last = invite.LastName
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:               s.snowflake.Generate().Int64(),
		CompoundID:       invite.CompoundID,
		Type:             domain.UserTypeOwner,
		FirstName:        first,
		LastName:         last,
		Email:            invite.Email,
		Phone:            invite.Phone,
		PropertyUnit:     invite.PropertyUnit,
		IsActive:         true,
		HasPassword:      false,
		IsFirstTimeLogin: true,
		ExternalAuthID:   subject,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrPhoneInUse) {
			return nil, newAuthError("conflict", "Phone number already registered.", http.StatusBadRequest)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("create owner: %w", err)
	}

	if err := s.invites.Update(ctx, invite.ID, map[string]any{
		"status":        domain.InviteStatusAccepted,
		"acceptedByUid": subject,
		"acceptedAt":    now,
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("mark invite accepted: %w", err)
	}

	s.audit("invite.accepted", "compound_id", invite.CompoundID, "invite_id", invite.ID, "user_id", created.ID)
	return &created, nil
}

// newInviteToken derives an opaque token from time and randomness.
func newInviteToken(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strconv.FormatInt(now.UnixNano(), 36) + "-" + random
}

func (s *InviteService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *InviteService) audit(event string, attrs ...any) {
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

func (s *InviteService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
