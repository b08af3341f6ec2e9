package service_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/compound"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/identity"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/repository"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/service"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/store"
)

type inviteEnv struct {
	users   repository.UserRepository
	invites repository.InviteRepository
	service *service.InviteService
	cpd     *compound.Context
}

func newInviteEnv(t *testing.T) *inviteEnv {
	t.Helper()

	s := store.NewMemoryStore()
	users := repository.NewStoreUserRepo(s)
	invites := repository.NewStoreInviteRepo(s)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	logger := zap.NewNop()
	resolver := identity.NewResolver(users, logger)
	svc := service.NewInviteService(invites, users, resolver, node, logger)

	return &inviteEnv{
		users:   users,
		invites: invites,
		service: svc,
		cpd: &compound.Context{Compound: domain.Compound{
			ID: 1, Slug: "palm-hills", Name: "Palm Hills", AdminSubject: "admin-1", IsActive: true,
		}},
	}
}

func TestInviteLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newInviteEnv(t)

	created, err := env.service.CreateInvite(ctx, env.cpd, "admin-1", service.CreateInviteInput{
		Phone:        "01012345678",
		Email:        "Amira@Example.com",
		FirstName:    "Amira",
		LastName:     "Hassan",
		PropertyUnit: "B-14",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.Token)

	user, err := env.service.AcceptInvite(ctx, "firebase-uid-1", created.Token, "", "")
	require.NoError(t, err)
	require.Equal(t, env.cpd.Compound.ID, user.CompoundID)
	require.Equal(t, domain.UserTypeOwner, user.Type)
	require.Equal(t, "Amira", user.FirstName)
	require.Equal(t, "amira@example.com", user.Email)
	require.Equal(t, "01012345678", user.Phone)
	require.Equal(t, "B-14", user.PropertyUnit)
	require.Equal(t, "firebase-uid-1", user.ExternalAuthID)
	require.True(t, user.IsActive)
	require.True(t, user.IsFirstTimeLogin)
	require.False(t, user.HasPassword)

	invite, err := env.invites.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusAccepted, invite.Status)
	require.Equal(t, "firebase-uid-1", invite.AcceptedByUID)
	require.NotNil(t, invite.AcceptedAt)
}

func TestAcceptInviteOverridesNames(t *testing.T) {
	ctx := context.Background()
	env := newInviteEnv(t)

	created, err := env.service.CreateInvite(ctx, env.cpd, "admin-1", service.CreateInviteInput{
		Phone:     "01012345678",
		FirstName: "Placeholder",
	})
	require.NoError(t, err)

	user, err := env.service.AcceptInvite(ctx, "uid-2", created.Token, "Karim", "Mostafa")
	require.NoError(t, err)
	require.Equal(t, "Karim", user.FirstName)
	require.Equal(t, "Mostafa", user.LastName)
}

func TestAcceptInviteIsSingleUse(t *testing.T) {
	ctx := context.Background()
	env := newInviteEnv(t)

	created, err := env.service.CreateInvite(ctx, env.cpd, "admin-1", service.CreateInviteInput{Phone: "01012345678"})
	require.NoError(t, err)

	_, err = env.service.AcceptInvite(ctx, "uid-1", created.Token, "", "")
	require.NoError(t, err)

	_, err = env.service.AcceptInvite(ctx, "uid-2", created.Token, "", "")
	requireAuthError(t, err, "invalid_grant", http.StatusBadRequest)
}

func TestAcceptInviteUnknownToken(t *testing.T) {
	env := newInviteEnv(t)
	_, err := env.service.AcceptInvite(context.Background(), "uid-1", "never-issued", "", "")
	requireAuthError(t, err, "invalid_grant", http.StatusBadRequest)
}

func TestAcceptInviteExpired(t *testing.T) {
	ctx := context.Background()
	env := newInviteEnv(t)

	past := time.Now().UTC().Add(-time.Hour)
	created, err := env.service.CreateInvite(ctx, env.cpd, "admin-1", service.CreateInviteInput{
		Phone:     "01012345678",
		ExpiresAt: &past,
	})
	require.NoError(t, err)

	_, err = env.service.AcceptInvite(ctx, "uid-1", created.Token, "", "")
	requireAuthError(t, err, "invalid_grant", http.StatusBadRequest)

	invite, err := env.invites.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusExpired, invite.Status)
}

func TestCreateInviteRejectsForeignAdmin(t *testing.T) {
	ctx := context.Background()
	env := newInviteEnv(t)

	_, err := env.service.CreateInvite(ctx, env.cpd, "someone-else", service.CreateInviteInput{Phone: "01012345678"})
	requireAuthError(t, err, "access_denied", http.StatusForbidden)

	_, err = env.service.CreateInvite(ctx, env.cpd, "", service.CreateInviteInput{Phone: "01012345678"})
	requireAuthError(t, err, "invalid_token", http.StatusUnauthorized)
}

func TestCreateInviteRejectsRegisteredPhone(t *testing.T) {
	ctx := context.Background()
	env := newInviteEnv(t)

	created, err := env.service.CreateInvite(ctx, env.cpd, "admin-1", service.CreateInviteInput{Phone: "01012345678"})
	require.NoError(t, err)
	_, err = env.service.AcceptInvite(ctx, "uid-1", created.Token, "", "")
	require.NoError(t, err)

	// Either written form of the same number is caught.
	_, err = env.service.CreateInvite(ctx, env.cpd, "admin-1", service.CreateInviteInput{Phone: "+201012345678"})
	requireAuthError(t, err, "conflict", http.StatusBadRequest)
}

func TestAcceptInvitePhoneClaimRace(t *testing.T) {
	ctx := context.Background()
	env := newInviteEnv(t)

	// Two invites for the same number issued before either is accepted; the
	// pre-check alone cannot stop that, the claim document must.
	first, err := env.service.CreateInvite(ctx, env.cpd, "admin-1", service.CreateInviteInput{Phone: "01012345678"})
	require.NoError(t, err)
	second, err := env.service.CreateInvite(ctx, env.cpd, "admin-1", service.CreateInviteInput{Phone: "010 1234 5678"})
	require.NoError(t, err)

	_, err = env.service.AcceptInvite(ctx, "uid-1", first.Token, "", "")
	require.NoError(t, err)

	_, err = env.service.AcceptInvite(ctx, "uid-2", second.Token, "", "")
	requireAuthError(t, err, "conflict", http.StatusBadRequest)
}
