package facade

import (
	"context"

	"github.com/M0hammadUsman/listingchat/internal/api/service"
	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
)

type TokenFacade struct {
	service   *service.Service
	txManager TXManager
}

func NewTokenFacade(service *service.Service, txMan TXManager) *TokenFacade {
	return &TokenFacade{service: service, txManager: txMan}
}

// GenerateAuthToken logs the user in. Every login gets its own token, tokens of other devices stay valid
// and only the expired ones are pruned.
func (t *TokenFacade) GenerateAuthToken(ctx context.Context, u *domain.UserAuth) (string, error) {
	usrID, err := t.service.AuthenticateUser(ctx, u)
	if err != nil {
		return "", err
	}
	var token string
	err = t.txManager.RunInTX(ctx, func(ctx context.Context) error {
		if err := t.service.DeleteExpiredForUser(ctx, usrID); err != nil {
			return err
		}
		token, err = t.service.GenerateToken(ctx, usrID, domain.ScopeAuthentication)
		return err
	})
	return token, err
}

func (t *TokenFacade) VerifyAuthToken(ctx context.Context, token string) (*domain.User, error) {
	return t.service.GetForToken(ctx, domain.ScopeAuthentication, token)
}

// RevokeAuthTokens signs the caller out on every device
func (t *TokenFacade) RevokeAuthTokens(ctx context.Context) error {
	usr, err := common.ContextRequireUser(ctx)
	if err != nil {
		return err
	}
	return t.service.DeleteAllForUser(ctx, usr.ID, domain.ScopeAuthentication)
}
