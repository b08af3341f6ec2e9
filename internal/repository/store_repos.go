package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/identity"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/store"
)

// Compile-time interface assertions.
var (
	_ UserRepository          = (*StoreUserRepo)(nil)
	_ DeviceSessionRepository = (*StoreDeviceSessionRepo)(nil)
	_ InviteRepository        = (*StoreInviteRepo)(nil)
	_ CompoundRepository      = (*StoreCompoundRepo)(nil)
)

// StoreUserRepo implements UserRepository on the document store.
type StoreUserRepo struct {
	store store.Store
}

func NewStoreUserRepo(s store.Store) *StoreUserRepo {
	return &StoreUserRepo{store: s}
}

func (r *StoreUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	data, err := r.store.Get(ctx, store.CollectionUsers, docID(userID))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return decodeUser(data)
}

func (r *StoreUserRepo) FindByField(ctx context.Context, field string, value any) ([]domain.User, error) {
	docs, err := r.store.Query(ctx, store.CollectionUsers, store.Filter{Field: field, Value: value})
	if err != nil {
		return nil, fmt.Errorf("find users by %s: %w", field, err)
	}
	return decodeUsers(docs)
}

func (r *StoreUserRepo) ListAll(ctx context.Context) ([]domain.User, error) {
	docs, err := r.store.Query(ctx, store.CollectionUsers)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return decodeUsers(docs)
}

func (r *StoreUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	docs := []store.Doc{{Collection: store.CollectionUsers, ID: docID(user.ID), Data: encodeUser(user)}}
	if user.Phone != "" {
		claim := domain.PhoneClaim{Phone: user.Phone, UserID: user.ID, CreatedAt: user.CreatedAt}
		docs = append(docs, store.Doc{
			Collection: store.CollectionPhoneIndex,
			ID:         identity.NormalizePhone(user.Phone),
			Data:       claim,
		})
	}
	if err := r.store.CreateAll(ctx, docs...); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.User{}, ErrPhoneInUse
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *StoreUserRepo) Update(ctx context.Context, userID int64, fields map[string]any) error {
	if err := r.store.Update(ctx, store.CollectionUsers, docID(userID), withUpdatedAt(fields)); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// StoreDeviceSessionRepo implements DeviceSessionRepository on the document store.
type StoreDeviceSessionRepo struct {
	store store.Store
}

func NewStoreDeviceSessionRepo(s store.Store) *StoreDeviceSessionRepo {
	return &StoreDeviceSessionRepo{store: s}
}

func (r *StoreDeviceSessionRepo) GetByUserAndDevice(ctx context.Context, userID int64, fingerprint string) (domain.DeviceSession, error) {
	docs, err := r.store.Query(ctx, store.CollectionDeviceSessions,
		store.Filter{Field: "userId", Value: userID},
		store.Filter{Field: "deviceFingerprint", Value: fingerprint},
	)
	if err != nil {
		return domain.DeviceSession{}, fmt.Errorf("get device session: %w", err)
	}
	if len(docs) == 0 {
		return domain.DeviceSession{}, store.ErrNotFound
	}
	return decodeSession(docs[0])
}

func (r *StoreDeviceSessionRepo) FindByFingerprint(ctx context.Context, fingerprint string) ([]domain.DeviceSession, error) {
	docs, err := r.store.Query(ctx, store.CollectionDeviceSessions,
		store.Filter{Field: "deviceFingerprint", Value: fingerprint},
	)
	if err != nil {
		return nil, fmt.Errorf("find device sessions: %w", err)
	}
	sessions := make([]domain.DeviceSession, 0, len(docs))
	for _, data := range docs {
		session, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (r *StoreDeviceSessionRepo) Create(ctx context.Context, session domain.DeviceSession) (domain.DeviceSession, error) {
	if err := r.store.Create(ctx, store.CollectionDeviceSessions, docID(session.ID), session); err != nil {
		return domain.DeviceSession{}, fmt.Errorf("create device session: %w", err)
	}
	return session, nil
}

func (r *StoreDeviceSessionRepo) Update(ctx context.Context, sessionID int64, fields map[string]any) error {
	if err := r.store.Update(ctx, store.CollectionDeviceSessions, docID(sessionID), fields); err != nil {
		return fmt.Errorf("update device session: %w", err)
	}
	return nil
}

// StoreInviteRepo implements InviteRepository on the document store.
type StoreInviteRepo struct {
	store store.Store
}

func NewStoreInviteRepo(s store.Store) *StoreInviteRepo {
	return &StoreInviteRepo{store: s}
}

func (r *StoreInviteRepo) GetByToken(ctx context.Context, token string) (domain.OwnerInvite, error) {
	docs, err := r.store.Query(ctx, store.CollectionOwnerInvites, store.Filter{Field: "token", Value: token})
	if err != nil {
		return domain.OwnerInvite{}, fmt.Errorf("get invite by token: %w", err)
	}
	if len(docs) == 0 {
		return domain.OwnerInvite{}, store.ErrNotFound
	}
	var invite domain.OwnerInvite
	if err := json.Unmarshal(docs[0], &invite); err != nil {
		return domain.OwnerInvite{}, fmt.Errorf("decode invite: %w", err)
	}
	return invite, nil
}

func (r *StoreInviteRepo) Create(ctx context.Context, invite domain.OwnerInvite) (domain.OwnerInvite, error) {
	if err := r.store.Create(ctx, store.CollectionOwnerInvites, docID(invite.ID), invite); err != nil {
		return domain.OwnerInvite{}, fmt.Errorf("create invite: %w", err)
	}
	return invite, nil
}

func (r *StoreInviteRepo) Update(ctx context.Context, inviteID int64, fields map[string]any) error {
	if err := r.store.Update(ctx, store.CollectionOwnerInvites, docID(inviteID), withUpdatedAt(fields)); err != nil {
		return fmt.Errorf("update invite: %w", err)
	}
	return nil
}

// StoreCompoundRepo implements CompoundRepository on the document store.
type StoreCompoundRepo struct {
	store store.Store
}

func NewStoreCompoundRepo(s store.Store) *StoreCompoundRepo {
	return &StoreCompoundRepo{store: s}
}

func (r *StoreCompoundRepo) GetByID(ctx context.Context, compoundID int64) (domain.Compound, error) {
	data, err := r.store.Get(ctx, store.CollectionCompounds, docID(compoundID))
	if err != nil {
		return domain.Compound{}, fmt.Errorf("get compound: %w", err)
	}
	var compound domain.Compound
	if err := json.Unmarshal(data, &compound); err != nil {
		return domain.Compound{}, fmt.Errorf("decode compound: %w", err)
	}
	return compound, nil
}

func (r *StoreCompoundRepo) GetBySlug(ctx context.Context, slug string) (domain.Compound, error) {
	docs, err := r.store.Query(ctx, store.CollectionCompounds, store.Filter{Field: "slug", Value: slug})
	if err != nil {
		return domain.Compound{}, fmt.Errorf("get compound by slug: %w", err)
	}
	if len(docs) == 0 {
		return domain.Compound{}, store.ErrNotFound
	}
	var compound domain.Compound
	if err := json.Unmarshal(docs[0], &compound); err != nil {
		return domain.Compound{}, fmt.Errorf("decode compound: %w", err)
	}
	return compound, nil
}

func (r *StoreCompoundRepo) Create(ctx context.Context, compound domain.Compound) (domain.Compound, error) {
	if err := r.store.Create(ctx, store.CollectionCompounds, docID(compound.ID), compound); err != nil {
		return domain.Compound{}, fmt.Errorf("create compound: %w", err)
	}
	return compound, nil
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func withUpdatedAt(fields map[string]any) map[string]any {
	if _, ok := fields["updatedAt"]; !ok {
		fields["updatedAt"] = time.Now().UTC()
	}
	return fields
}

func decodeUser(data []byte) (domain.User, error) {
	var user userDocument
	if err := json.Unmarshal(data, &user); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	return user.toDomain(), nil
}

func decodeUsers(docs [][]byte) ([]domain.User, error) {
	users := make([]domain.User, 0, len(docs))
	for _, data := range docs {
		user, err := decodeUser(data)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func decodeSession(data []byte) (domain.DeviceSession, error) {
	var session domain.DeviceSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.DeviceSession{}, fmt.Errorf("decode device session: %w", err)
	}
	return session, nil
}

// userDocument mirrors domain.User but includes the password hash, which the
// domain type hides from JSON responses.
type userDocument struct {
	domain.User
	PasswordHash string `json:"passwordHash,omitempty"`
}

func (d userDocument) toDomain() domain.User {
	user := d.User
	user.PasswordHash = d.PasswordHash
	return user
}

// encodeUser is the write-side counterpart of userDocument.
func encodeUser(user domain.User) userDocument {
	doc := userDocument{User: user}
	doc.PasswordHash = user.PasswordHash
	return doc
}
