package repository

import (
	"context"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

var _ domain.TokenRepository = (*TokenRepository)(nil)

type TokenRepository struct {
	db *DB
}

func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db}
}

func (r *TokenRepository) Insert(ctx context.Context, token *domain.Token) error {
	query := `
		INSERT INTO token (hash, user_id, expiry, scope) 
		VALUES (:hash, :user_id, :expiry, :scope)
		`
	_, err := r.db.conn(ctx).NamedExecContext(ctx, query, token)
	return err
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, userID string) error {
	_, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM token WHERE user_id = $1 AND expiry <= NOW()`, userID)
	return err
}

func (r *TokenRepository) DeleteAllForUser(ctx context.Context, userID, scope string) error {
	query := `
		DELETE FROM token 
        WHERE user_id = $1 AND scope = $2
        `
	_, err := r.db.conn(ctx).ExecContext(ctx, query, userID, scope)
	return err
}
