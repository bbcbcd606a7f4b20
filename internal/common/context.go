package common

import (
	"context"
	"net/http"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

type ctxKey string

const UserCtxKey = ctxKey("USER")

func ContextSetUser(r *http.Request, user *domain.User) *http.Request {
	return r.WithContext(ContextWithUser(r.Context(), user))
}

func ContextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, UserCtxKey, user)
}

// ContextGetUser returns the verified caller, domain.AnonymousUser when the request carried no credentials
func ContextGetUser(ctx context.Context) *domain.User {
	user, ok := ctx.Value(UserCtxKey).(*domain.User)
	if !ok || user == nil {
		return domain.AnonymousUser
	}
	return user
}

// ContextRequireUser is ContextGetUser for operations that must be attributed to a verified identity
func ContextRequireUser(ctx context.Context) (*domain.User, error) {
	u := ContextGetUser(ctx)
	if u.IsAnonymousUser() {
		return nil, domain.ErrNotAuthenticated
	}
	return u, nil
}
