package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/google/uuid"
)

var (
	_ domain.UserRepository  = (*UserRepository)(nil)
	_ domain.TokenRepository = (*TokenRepository)(nil)
)

type user = domain.User

type token = domain.Token

type UserRepository struct {
	s *Store
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

func (r *UserRepository) RegisterUser(ctx context.Context, u *domain.User) (string, error) {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.data.users {
		if existing.Email == u.Email {
			return "", domain.ErrDuplicateEmail
		}
	}
	now := r.s.now()
	stored := *u
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.LastOnline = &now
	stored.Version = 1
	r.s.data.users[stored.ID] = stored
	return stored.ID, nil
}

func (r *UserRepository) ExistsUser(_ context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.data.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) GetByUniqueField(_ context.Context, fieldName, fieldValue string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	switch fieldName {
	case "id":
		if u, ok := r.s.data.users[fieldValue]; ok {
			return &u, nil
		}
	case "email":
		for _, u := range r.s.data.users {
			if u.Email == fieldValue {
				return &u, nil
			}
		}
	default:
		return nil, fmt.Errorf("users cannot be looked up by %q", fieldName)
	}
	return nil, domain.ErrRecordNotFound
}

func (r *UserRepository) UpdateUser(ctx context.Context, u *domain.User) error {
	defer r.s.lock(ctx)()
	existing, ok := r.s.data.users[u.ID]
	if !ok || existing.Version != u.Version {
		return domain.ErrEditConflict
	}
	u.Version++
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetForToken(_ context.Context, scope string, hash []byte) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.data.tokens[string(hash)]
	if !ok || t.Scope != scope || !t.Expiry.After(time.Now()) {
		return nil, domain.ErrRecordNotFound
	}
	u, ok := r.s.data.users[t.UserID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &u, nil
}

type TokenRepository struct {
	s *Store
}

func NewTokenRepository(s *Store) *TokenRepository {
	return &TokenRepository{s: s}
}

func (r *TokenRepository) Insert(ctx context.Context, t *domain.Token) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.users[t.UserID]; !ok {
		return domain.ErrRecordNotFound
	}
	r.s.data.tokens[string(t.Hash)] = *t
	return nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, userID string) error {
	defer r.s.lock(ctx)()
	now := time.Now()
	for k, t := range r.s.data.tokens {
		if t.UserID == userID && !t.Expiry.After(now) {
			delete(r.s.data.tokens, k)
		}
	}
	return nil
}

func (r *TokenRepository) DeleteAllForUser(ctx context.Context, userID, scope string) error {
	defer r.s.lock(ctx)()
	for k, t := range r.s.data.tokens {
		if t.UserID == userID && t.Scope == scope {
			delete(r.s.data.tokens, k)
		}
	}
	return nil
}
