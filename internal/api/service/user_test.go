package service

import (
	"context"
	"testing"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, alice := f.register(t, "alice")

	_, err := f.users.RegisterUser(ctx, &domain.UserRegister{Name: "alice2", Email: "alice@example.com", Password: "pa55word123"})
	var ev *domain.ErrValidation
	require.ErrorAs(t, err, &ev)
	assert.Equal(t, "already exists", ev.Errors["email"])

	id, err := f.users.AuthenticateUser(ctx, &domain.UserAuth{Email: "alice@example.com", Password: "pa55word123"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)

	_, err = f.users.AuthenticateUser(ctx, &domain.UserAuth{Email: "alice@example.com", Password: "wrong-password"})
	require.ErrorAs(t, err, &ev)
	assert.Contains(t, ev.Errors, "credentials")

	_, err = f.users.AuthenticateUser(ctx, &domain.UserAuth{Email: "nobody@example.com", Password: "pa55word123"})
	require.ErrorAs(t, err, &ev)
	assert.Contains(t, ev.Errors, "credentials")

	id, err = f.users.AuthenticateUser(ctx, &domain.UserAuth{Email: " Alice@Example.com ", Password: "pa55word123"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)
}

func TestTokenRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, alice := f.register(t, "alice")

	token, err := f.tokens.GenerateToken(ctx, alice.ID, domain.ScopeAuthentication)
	require.NoError(t, err)
	assert.Len(t, token, 26)

	usr, err := f.users.GetForToken(ctx, domain.ScopeAuthentication, token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, usr.ID)

	require.NoError(t, f.tokens.DeleteAllForUser(ctx, alice.ID, domain.ScopeAuthentication))
	_, err = f.users.GetForToken(ctx, domain.ScopeAuthentication, token)
	var ev *domain.ErrValidation
	assert.ErrorAs(t, err, &ev)

	_, err = f.tokens.GenerateToken(ctx, alice.ID, "activation")
	assert.Error(t, err)
}

func TestUpdateUserOnlineStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, alice := f.register(t, "alice")
	assert.False(t, alice.Online())

	require.NoError(t, f.users.UpdateUserOnlineStatus(ctx, alice, true))
	usr, err := f.users.GetByUniqueField(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, usr.Online())

	require.NoError(t, f.users.UpdateUserOnlineStatus(ctx, alice, false))
	usr, err = f.users.GetByUniqueField(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, usr.Online())
}
