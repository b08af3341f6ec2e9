package repository

import (
	"context"
	"errors"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
)

// ErrPhoneInUse is returned when a create would bind a phone number already
// claimed by another user.
var ErrPhoneInUse = errors.New("phone number already in use")

// UserRepository exposes persistence for compound users.
type UserRepository interface {
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	// FindByField returns users whose named document field equals value.
	FindByField(ctx context.Context, field string, value any) ([]domain.User, error)
	// ListAll returns every user; the identity resolver scans it for its
	// suffix and external-id fallbacks.
	ListAll(ctx context.Context) ([]domain.User, error)
	// Create persists the user and, when the user has a phone, claims the
	// phone index document in the same transaction.
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, userID int64, fields map[string]any) error
}

// DeviceSessionRepository exposes persistence for (user, device) pairings.
type DeviceSessionRepository interface {
	GetByUserAndDevice(ctx context.Context, userID int64, fingerprint string) (domain.DeviceSession, error)
	FindByFingerprint(ctx context.Context, fingerprint string) ([]domain.DeviceSession, error)
	Create(ctx context.Context, session domain.DeviceSession) (domain.DeviceSession, error)
	Update(ctx context.Context, sessionID int64, fields map[string]any) error
}

// InviteRepository exposes persistence for owner invites.
type InviteRepository interface {
	GetByToken(ctx context.Context, token string) (domain.OwnerInvite, error)
	Create(ctx context.Context, invite domain.OwnerInvite) (domain.OwnerInvite, error)
	Update(ctx context.Context, inviteID int64, fields map[string]any) error
}

// CompoundRepository exposes compound lookups.
type CompoundRepository interface {
	GetByID(ctx context.Context, compoundID int64) (domain.Compound, error)
	GetBySlug(ctx context.Context, slug string) (domain.Compound, error)
	Create(ctx context.Context, compound domain.Compound) (domain.Compound, error)
}
