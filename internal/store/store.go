// Package store exposes the keyed document collection contract the rest of
// the service persists through. Collections hold JSON documents addressed by
// a string ID; queries are exact-match on top-level fields.
package store

import (
	"context"
	"errors"
)

// Collection names used by the service.
const (
	CollectionUsers          = "users"
	CollectionDeviceSessions = "deviceSessions"
	CollectionOwnerInvites   = "ownerInvites"
	CollectionCompounds      = "compounds"
	CollectionPhoneIndex     = "phoneIndex"
)

var (
	// ErrNotFound is returned when a document ID does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a Create targets an existing ID.
	ErrConflict = errors.New("document already exists")
)

// Filter is an exact-match predicate on a top-level document field.
type Filter struct {
	Field string
	Value any
}

// Doc couples a document with its address for multi-document writes.
type Doc struct {
	Collection string
	ID         string
	Data       any
}

// Store is the persistence contract. Documents are encoded as JSON; Get and
// Query return the raw encoded documents for the caller to decode.
type Store interface {
	Create(ctx context.Context, collection, id string, doc any) error
	// CreateAll writes every document or none. A conflict on any ID fails
	// the whole batch with ErrConflict.
	CreateAll(ctx context.Context, docs ...Doc) error
	Get(ctx context.Context, collection, id string) ([]byte, error)
	// Update merges the given fields into the stored document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, filters ...Filter) ([][]byte, error)
}
