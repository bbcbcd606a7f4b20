package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

type LocalUserRepository struct {
	db *DB
}

func newLocalUserRepository(db *DB) LocalUserRepository {
	return LocalUserRepository{db}
}

func (r LocalUserRepository) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	query := `
		SELECT id, name, email, created_at FROM users
	`
	var usr domain.User
	if err := r.db.QueryRowxContext(ctx, query).StructScan(&usr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &usr, nil
}

// SaveCurrentUser replaces whatever user was stored before
func (r LocalUserRepository) SaveCurrentUser(ctx context.Context, u *domain.User) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err = tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return err
	}
	query := `
		INSERT INTO users (id, name, email, created_at) 
		VALUES (:id, :name, :email, :created_at)
	`
	if _, err = tx.NamedExecContext(ctx, query, u); err != nil {
		return err
	}
	return tx.Commit()
}

// Reset drops every cached row, used when a different user logs in
func (r LocalUserRepository) Reset(ctx context.Context) error {
	for _, table := range []string{"message", "conversation", "users"} {
		if _, err := r.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
