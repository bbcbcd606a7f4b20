package common

import (
	"context"
	"testing"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextGetUser(t *testing.T) {
	assert.Same(t, domain.AnonymousUser, ContextGetUser(context.Background()))

	usr := &domain.User{ID: "u1"}
	ctx := ContextWithUser(context.Background(), usr)
	assert.Same(t, usr, ContextGetUser(ctx))

	got, err := ContextRequireUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = ContextRequireUser(ContextWithUser(context.Background(), domain.AnonymousUser))
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}
