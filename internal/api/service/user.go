package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is lowered by tests
var BcryptCost = 12

// compared against when the email is unknown, so both login failures cost one bcrypt comparison
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("listingchat-dummy-password"), bcrypt.MinCost)

var _ domain.UserService = (*UserService)(nil)

// UserService backs the identity accessor: registration, login & resolving bearer tokens to users
type UserService struct {
	userRepo domain.UserRepository
}

func NewUserService(userRepo domain.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) RegisterUser(ctx context.Context, in *domain.UserRegister) (string, error) {
	name, email := strings.TrimSpace(in.Name), normalizeEmail(in.Email)
	ev := domain.NewErrValidation()
	domain.ValidateName(name, ev)
	domain.ValidateEmail(email, ev)
	domain.ValidPlainPassword(in.Password, ev)
	if ev.HasErrors() {
		return "", ev
	}
	// the unique index still decides, this only saves the hashing for the common case
	if exists, err := s.ExistsUser(ctx, email); err != nil {
		return "", err
	} else if exists {
		ev.AddError("email", "already exists")
		return "", ev
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	id, err := s.userRepo.RegisterUser(ctx, &domain.User{Name: name, Email: email, Password: hash})
	if errors.Is(err, domain.ErrDuplicateEmail) {
		ev.AddError("email", "already exists")
		return "", ev
	}
	return id, err
}

func (s *UserService) ExistsUser(ctx context.Context, email string) (bool, error) {
	return s.userRepo.ExistsUser(ctx, normalizeEmail(email))
}

// GetByUniqueField looks a user up by email when idOrEmail contains an "@", by id otherwise
func (s *UserService) GetByUniqueField(ctx context.Context, idOrEmail string) (*domain.User, error) {
	if strings.Contains(idOrEmail, "@") {
		return s.userRepo.GetByUniqueField(ctx, "email", normalizeEmail(idOrEmail))
	}
	if uuid.Validate(idOrEmail) != nil {
		return nil, domain.ErrRecordNotFound
	}
	return s.userRepo.GetByUniqueField(ctx, "id", idOrEmail)
}

// UpdateUserOnlineStatus clears last_online while online, stamps it when the user goes offline.
// domain.ErrEditConflict is returned when the row changed concurrently.
func (s *UserService) UpdateUserOnlineStatus(ctx context.Context, usr *domain.User, online bool) error {
	u, err := s.userRepo.GetByUniqueField(ctx, "id", usr.ID)
	if err != nil {
		return err
	}
	if online {
		u.LastOnline = nil
	} else {
		now := time.Now()
		u.LastOnline = &now
	}
	return s.userRepo.UpdateUser(ctx, u)
}

// GetForToken resolves a plain bearer token, an unknown or expired token is a validation error on "token"
func (s *UserService) GetForToken(ctx context.Context, scope string, plainToken string) (*domain.User, error) {
	ev := domain.NewErrValidation()
	if scope == domain.ScopeAuthentication {
		domain.ValidateAuthenticationToken(plainToken, ev)
		if ev.HasErrors() {
			return nil, ev
		}
	}
	hash := sha256.Sum256([]byte(plainToken))
	usr, err := s.userRepo.GetForToken(ctx, scope, hash[:])
	if errors.Is(err, domain.ErrRecordNotFound) {
		ev.AddError("token", "invalid or expired")
		return nil, ev
	}
	return usr, err
}

// AuthenticateUser returns the id of the user the credentials belong to. Unknown email & wrong password
// fail alike, the response never tells which accounts exist.
func (s *UserService) AuthenticateUser(ctx context.Context, in *domain.UserAuth) (string, error) {
	email := normalizeEmail(in.Email)
	ev := domain.NewErrValidation()
	domain.ValidateEmail(email, ev)
	domain.ValidPlainPassword(in.Password, ev)
	if ev.HasErrors() {
		return "", ev
	}
	hash, id := dummyHash, ""
	usr, err := s.userRepo.GetByUniqueField(ctx, "email", email)
	switch {
	case err == nil:
		hash, id = usr.Password, usr.ID
	case !errors.Is(err, domain.ErrRecordNotFound):
		return "", err
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(in.Password)) != nil || id == "" {
		ev.AddError("credentials", "invalid email or password")
		return "", ev
	}
	return id, nil
}
