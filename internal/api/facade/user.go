package facade

import (
	"context"

	"github.com/M0hammadUsman/listingchat/internal/api/service"
	"github.com/M0hammadUsman/listingchat/internal/domain"
)

type UserFacade struct {
	service *service.Service
}

func NewUserFacade(service *service.Service) *UserFacade {
	return &UserFacade{service: service}
}

func (f *UserFacade) RegisterUser(ctx context.Context, u *domain.UserRegister) (*domain.User, error) {
	userID, err := f.service.UserService.RegisterUser(ctx, u)
	if err != nil {
		return nil, err
	}
	return f.service.GetByUniqueField(ctx, userID)
}

func (f *UserFacade) GetByUniqueField(ctx context.Context, fieldValue string) (*domain.User, error) {
	return f.service.GetByUniqueField(ctx, fieldValue)
}

func (f *UserFacade) UpdateUserOnlineStatus(ctx context.Context, u *domain.User, online bool) error {
	return f.service.UpdateUserOnlineStatus(ctx, u, online)
}
