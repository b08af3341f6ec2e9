package domain

import "time"

// Compound is the tenancy and authorization boundary. Every user belongs to
// exactly one compound and a compound is owned by exactly one admin identity.
type Compound struct {
	ID           int64     `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	AdminSubject string    `json:"adminSubject"`
	Location     string    `json:"location,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
