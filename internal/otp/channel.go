// Package otp sends and confirms one-time codes through an external
// phone-verification provider. The core treats send and confirm as opaque
// operations with success or failure outcomes.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidCode covers wrong, expired, and unknown confirmation attempts.
var ErrInvalidCode = errors.New("invalid or expired verification code")

// Channel is the contract the authentication flow consumes.
type Channel interface {
	// Send delivers a code to the phone and returns an opaque confirmation
	// handle for the later Confirm call.
	Send(ctx context.Context, phone string) (string, error)
	Confirm(ctx context.Context, handle, code string) error
}

// Provider is the outbound surface of the external verification service.
type Provider interface {
	StartVerification(ctx context.Context, phone string) (string, error)
	CheckVerification(ctx context.Context, providerID, code string) error
}

// PendingVerification is what a confirmation handle points at while the code
// is in flight.
type PendingVerification struct {
	Phone      string    `json:"phone"`
	ProviderID string    `json:"providerId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HandleStore persists pending verifications between Send and Confirm.
type HandleStore interface {
	Save(ctx context.Context, handle string, pending PendingVerification, ttl time.Duration) error
	// Get returns nil without error when the handle is unknown or expired.
	Get(ctx context.Context, handle string) (*PendingVerification, error)
	Delete(ctx context.Context, handle string) error
}

// ProviderChannel is the production Channel: codes go out through the
// provider and the handle lives in the handle store until confirmed.
type ProviderChannel struct {
	provider Provider
	handles  HandleStore
	ttl      time.Duration
	logger   *zap.Logger
}

var _ Channel = (*ProviderChannel)(nil)

// NewProviderChannel wires a provider and handle store together.
func NewProviderChannel(provider Provider, handles HandleStore, ttl time.Duration, logger *zap.Logger) *ProviderChannel {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.L()
	}
	return &ProviderChannel{provider: provider, handles: handles, ttl: ttl, logger: logger}
}

func (c *ProviderChannel) Send(ctx context.Context, phone string) (string, error) {
	providerID, err := c.provider.StartVerification(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("start verification: %w", err)
	}

	handle := uuid.NewString()
	pending := PendingVerification{Phone: phone, ProviderID: providerID, CreatedAt: time.Now().UTC()}
	if err := c.handles.Save(ctx, handle, pending, c.ttl); err != nil {
		return "", fmt.Errorf("persist verification handle: %w", err)
	}

	c.logger.Debug("otp sent", zap.String("handle", handle))
	return handle, nil
}

func (c *ProviderChannel) Confirm(ctx context.Context, handle, code string) error {
	pending, err := c.handles.Get(ctx, handle)
	if err != nil {
		return fmt.Errorf("load verification handle: %w", err)
	}
	if pending == nil {
		return ErrInvalidCode
	}

	if err := c.provider.CheckVerification(ctx, pending.ProviderID, code); err != nil {
		return err
	}

	if err := c.handles.Delete(ctx, handle); err != nil {
		c.logger.Warn("delete verification handle failed", zap.String("handle", handle), zap.Error(err))
	}
	return nil
}
