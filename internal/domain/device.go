package domain

import "time"

// DeviceSession pairs a user with a client device fingerprint.
//
// One conceptual session exists per (UserID, DeviceFingerprint); the manager
// checks for an existing row before creating a new one. A session is created
// inactive when an unrecognized device shows up during password login and
// becomes active only after OTP confirmation or password setup.
type DeviceSession struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"userId"`
	DeviceFingerprint string    `json:"deviceFingerprint"`
	UserAgent         string    `json:"userAgent"`
	IPAddress         string    `json:"ipAddress"`
	IsActive          bool      `json:"isActive"`
	LastUsedAt        time.Time `json:"lastUsedAt"`
	CreatedAt         time.Time `json:"createdAt"`
}
