package domain

import "time"

// InviteStatus enumerates the owner invite lifecycle.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusExpired  InviteStatus = "expired"
	InviteStatusRevoked  InviteStatus = "revoked"
)

// OwnerInvite is created by a compound admin and consumed exactly once.
// The token is single-use: acceptance fails unless the status is still
// pending and the invite's phone is not yet bound to a user.
type OwnerInvite struct {
	ID            int64        `json:"id"`
	Token         string       `json:"token"`
	CompoundID    int64        `json:"compoundId"`
	Phone         string       `json:"phone"`
	Email         string       `json:"email,omitempty"`
	FirstName     string       `json:"firstName,omitempty"`
	LastName      string       `json:"lastName,omitempty"`
	PropertyUnit  string       `json:"propertyUnit,omitempty"`
	Status        InviteStatus `json:"status"`
	CreatedBy     string       `json:"createdBy"`
	AcceptedByUID string       `json:"acceptedByUid,omitempty"`
	AcceptedAt    *time.Time   `json:"acceptedAt,omitempty"`
	ExpiresAt     *time.Time   `json:"expiresAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}
