package domain

import "time"

// UserType distinguishes the people a compound admin can register.
type UserType string

const (
	UserTypeOwner    UserType = "owner"
	UserTypeEmployee UserType = "employee"
	UserTypeManager  UserType = "manager"
)

// User represents an owner, employee, or manager belonging to a compound.
//
// Phone is unique across the whole system when present. The uniqueness is
// enforced at write time through the phone claim document, not by a store
// constraint.
type User struct {
	ID               int64     `json:"id"`
	CompoundID       int64     `json:"compoundId"`
	Type             UserType  `json:"type"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	PropertyUnit     string    `json:"propertyUnit,omitempty"`
	IsActive         bool      `json:"isActive"`
	HasPassword      bool      `json:"hasPassword"`
	PasswordHash     string    `json:"-"`
	IsFirstTimeLogin bool      `json:"isFirstTimeLogin"`
	ExternalAuthID   string    `json:"externalAuthId,omitempty"`
	PaymentStatus    string    `json:"paymentStatus,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// PhoneClaim is the secondary index document that turns the phone uniqueness
// check into a transactional write instead of a read-then-write race. Its
// document ID is the normalized phone number.
type PhoneClaim struct {
	Phone     string    `json:"phone"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
