package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/repository"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/store"
)

// DeviceService owns the lifecycle of (user, device) pairings. It never
// hard-deletes a session; Revoke flips it inactive. Activating one device
// does not deactivate another: multiple concurrently trusted devices are
// intended policy.
type DeviceService struct {
	sessions  repository.DeviceSessionRepository
	snowflake *snowflake.Node
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewDeviceService wires dependencies.
func NewDeviceService(sessions repository.DeviceSessionRepository, node *snowflake.Node, logger *zap.Logger) *DeviceService {
	return &DeviceService{
		sessions:  sessions,
		snowflake: node,
		logger:    logger,
		tracer:    otel.Tracer("github.com/HamzaElshennawy/qrsystem-sub000/internal/service"),
	}
}

// GetByUserAndDevice looks up the session for the exact pair. The boolean
// reports whether one exists.
func (s *DeviceService) GetByUserAndDevice(ctx context.Context, userID int64, fingerprint string) (domain.DeviceSession, bool, error) {
	session, err := s.sessions.GetByUserAndDevice(ctx, userID, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DeviceSession{}, false, nil
		}
		return domain.DeviceSession{}, false, err
	}
	return session, true, nil
}

// SessionsForFingerprint returns every session seen for a fingerprint,
// regardless of user.
func (s *DeviceService) SessionsForFingerprint(ctx context.Context, fingerprint string) ([]domain.DeviceSession, error) {
	return s.sessions.FindByFingerprint(ctx, fingerprint)
}

// Create persists a new session row. It does not deduplicate; callers check
// GetByUserAndDevice first.
func (s *DeviceService) Create(ctx context.Context, userID int64, fingerprint, userAgent, ipAddress string, isActive bool) (domain.DeviceSession, error) {
	now := time.Now().UTC()
	session := domain.DeviceSession{
		ID:                s.snowflake.Generate().Int64(),
		UserID:            userID,
		DeviceFingerprint: fingerprint,
		UserAgent:         userAgent,
		IPAddress:         ipAddress,
		IsActive:          isActive,
		LastUsedAt:        now,
		CreatedAt:         now,
	}
	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		return domain.DeviceSession{}, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("device session created",
		zap.Int64("user_id", userID),
		zap.Int64("session_id", created.ID),
		zap.Bool("is_active", isActive),
	)
	return created, nil
}

// Activate marks the session trusted and refreshes last use.
func (s *DeviceService) Activate(ctx context.Context, sessionID int64) error {
	return s.sessions.Update(ctx, sessionID, map[string]any{
		"isActive":   true,
		"lastUsedAt": time.Now().UTC(),
	})
}

// Touch refreshes last use without changing trust.
func (s *DeviceService) Touch(ctx context.Context, sessionID int64) error {
	return s.sessions.Update(ctx, sessionID, map[string]any{
		"lastUsedAt": time.Now().UTC(),
	})
}

// Revoke flips the session inactive; the next login from that device falls
// back to OTP.
func (s *DeviceService) Revoke(ctx context.Context, sessionID int64) error {
	return s.sessions.Update(ctx, sessionID, map[string]any{
		"isActive":   false,
		"lastUsedAt": time.Now().UTC(),
	})
}

// EnsureActive creates the session for the pair if missing, or activates the
// existing one.
func (s *DeviceService) EnsureActive(ctx context.Context, userID int64, fingerprint, userAgent, ipAddress string) (domain.DeviceSession, error) {
	ctx, span := s.startSpan(ctx, "DeviceService.EnsureActive")
	defer span.End()

	session, found, err := s.GetByUserAndDevice(ctx, userID, fingerprint)
	if err != nil {
		span.RecordError(err)
		return domain.DeviceSession{}, err
	}
	if !found {
		return s.Create(ctx, userID, fingerprint, userAgent, ipAddress, true)
	}
	if err := s.Activate(ctx, session.ID); err != nil {
		span.RecordError(err)
		return domain.DeviceSession{}, err
	}
	session.IsActive = true
	session.LastUsedAt = time.Now().UTC()
	return session, nil
}

func (s *DeviceService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}
