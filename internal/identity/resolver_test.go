package identity_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/identity"
)

type fakeDirectory struct {
	users []domain.User
}

func (d *fakeDirectory) FindByField(_ context.Context, field string, value any) ([]domain.User, error) {
	var matches []domain.User
	for _, user := range d.users {
		var current string
		switch field {
		case "phone":
			current = user.Phone
		case "email":
			current = user.Email
		}
		if current != "" && current == fmt.Sprint(value) {
			matches = append(matches, user)
		}
	}
	return matches, nil
}

func (d *fakeDirectory) ListAll(_ context.Context) ([]domain.User, error) {
	return d.users, nil
}

func newResolver(users ...domain.User) *identity.Resolver {
	return identity.NewResolver(&fakeDirectory{users: users}, zap.NewNop())
}

func TestResolveByIdentityIDWinsOverEverything(t *testing.T) {
	resolver := newResolver(
		domain.User{ID: 1, Phone: "01012345678", ExternalAuthID: "firebase-uid-1"},
		domain.User{ID: 2, Phone: "01099999999"},
	)

	users, strategy, err := resolver.Resolve(context.Background(), identity.Query{
		IdentityID: "firebase-uid-1",
		Phone:      "01099999999",
	})
	require.NoError(t, err)
	require.Equal(t, identity.StrategyIDMatch, strategy)
	require.Len(t, users, 1)
	require.Equal(t, int64(1), users[0].ID)
}

func TestResolveByExactPhoneVariant(t *testing.T) {
	resolver := newResolver(domain.User{ID: 7, Phone: "+201012345678"})

	// Local Egyptian form resolves the stored international form.
	users, strategy, err := resolver.Resolve(context.Background(), identity.Query{Phone: "01012345678"})
	require.NoError(t, err)
	require.Equal(t, identity.StrategyExactPhone, strategy)
	require.Len(t, users, 1)
	require.Equal(t, int64(7), users[0].ID)
}

func TestResolveByPhoneSuffixFallback(t *testing.T) {
	// Stored with punctuation the variant generator does not reproduce, so
	// only the normalized suffix comparison can connect the two.
	resolver := newResolver(domain.User{ID: 3, Phone: "0101.234.5678"})

	users, strategy, err := resolver.Resolve(context.Background(), identity.Query{Phone: "+20 101 234 5678"})
	require.NoError(t, err)
	require.Equal(t, identity.StrategySuffixPhone, strategy)
	require.Len(t, users, 1)
	require.Equal(t, int64(3), users[0].ID)
}

func TestResolveByExactEmail(t *testing.T) {
	resolver := newResolver(domain.User{ID: 4, Email: "owner@compound.example"})

	users, strategy, err := resolver.Resolve(context.Background(), identity.Query{Email: "  Owner@compound.example "})
	require.NoError(t, err)
	require.Equal(t, identity.StrategyExactEmail, strategy)
	require.Len(t, users, 1)
}

func TestResolveByPartialEmail(t *testing.T) {
	resolver := newResolver(domain.User{ID: 5, Email: "owner.family@compound.example"})

	users, strategy, err := resolver.Resolve(context.Background(), identity.Query{Email: "owner.family@gmail.com"})
	require.NoError(t, err)
	require.Equal(t, identity.StrategyPartialEmail, strategy)
	require.Len(t, users, 1)
}

func TestResolveNoMatchIsNotAnError(t *testing.T) {
	resolver := newResolver(domain.User{ID: 6, Phone: "01012345678", Email: "a@b.example"})

	users, strategy, err := resolver.Resolve(context.Background(), identity.Query{Phone: "0555"})
	require.NoError(t, err)
	require.Equal(t, identity.StrategyNone, strategy)
	require.Empty(t, users)
}

func TestResolveEmptyQuery(t *testing.T) {
	resolver := newResolver(domain.User{ID: 8, Phone: "01012345678"})

	users, strategy, err := resolver.Resolve(context.Background(), identity.Query{})
	require.NoError(t, err)
	require.Equal(t, identity.StrategyNone, strategy)
	require.Empty(t, users)
}

func TestResolvePhoneBeatsEmail(t *testing.T) {
	resolver := newResolver(
		domain.User{ID: 1, Phone: "01012345678", Email: "one@a.example"},
		domain.User{ID: 2, Email: "two@b.example"},
	)

	users, strategy, err := resolver.Resolve(context.Background(), identity.Query{
		Phone: "01012345678",
		Email: "two@b.example",
	})
	require.NoError(t, err)
	require.Equal(t, identity.StrategyExactPhone, strategy)
	require.Len(t, users, 1)
	require.Equal(t, int64(1), users[0].ID)
}
