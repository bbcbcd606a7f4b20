package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

var _ domain.TokenService = (*TokenService)(nil)

type TokenService struct {
	tokenRepo domain.TokenRepository
}

func NewTokenService(tokenRepo domain.TokenRepository) *TokenService {
	return &TokenService{tokenRepo: tokenRepo}
}

func (s *TokenService) GenerateToken(ctx context.Context, userID string, scope string) (string, error) {
	if scope != domain.ScopeAuthentication {
		return "", fmt.Errorf("invalid token scope %q", scope)
	}
	token, err := generateAuthToken(userID, scope, domain.ScopeAuthenticationTTL)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}
	if err = s.tokenRepo.Insert(ctx, token); err != nil {
		return "", fmt.Errorf("error inserting token: %w", err)
	}
	return token.PlainText, nil
}

func (s *TokenService) DeleteAllForUser(ctx context.Context, userID string, scope string) error {
	return s.tokenRepo.DeleteAllForUser(ctx, userID, scope)
}

func (s *TokenService) DeleteExpiredForUser(ctx context.Context, userID string) error {
	return s.tokenRepo.DeleteExpired(ctx, userID)
}

// generateAuthToken returns a 26 byte base32 token, only its sha256 hash is stored
func generateAuthToken(userID, scope string, ttl time.Duration) (*domain.Token, error) {
	token := &domain.Token{
		UserID: userID,
		Expiry: time.Now().Add(ttl),
		Scope:  scope,
	}
	randBytes := make([]byte, 16)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, err
	}
	token.PlainText = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randBytes)
	hashArray := sha256.Sum256([]byte(token.PlainText))
	token.Hash = hashArray[:]
	return token, nil
}
