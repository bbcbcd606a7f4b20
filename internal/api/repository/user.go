package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

var _ domain.UserRepository = (*UserRepository)(nil)

const userColumns = `u.id, u.name, u.email, u.password, u.last_online, u.created_at, u.version`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) RegisterUser(ctx context.Context, u *domain.User) (string, error) {
	query := `
		INSERT INTO users (name, email, password)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
		`
	err := r.db.conn(ctx).QueryRowxContext(ctx, query, u.Name, u.Email, u.Password).
		Scan(&u.ID, &u.CreatedAt, &u.Version)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "users_email_key" {
		return "", domain.ErrDuplicateEmail
	}
	return u.ID, err
}

func (r *UserRepository) ExistsUser(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.conn(ctx).QueryRowxContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).
		Scan(&exists)
	return exists, err
}

// GetByUniqueField accepts "id" or "email" as fieldName
func (r *UserRepository) GetByUniqueField(ctx context.Context, fieldName, fieldValue string) (*domain.User, error) {
	var where string
	switch fieldName {
	case "id":
		where = "u.id = $1"
	case "email":
		where = "u.email = $1"
	default:
		return nil, fmt.Errorf("users cannot be looked up by %q", fieldName)
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users u WHERE `+where, fieldValue)
}

// UpdateUser is optimistic, domain.ErrEditConflict when the row's version moved on
func (r *UserRepository) UpdateUser(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET name = :name, email = :email, password = :password, last_online = :last_online, version = version + 1
		WHERE id = :id AND version = :version
		`
	res, err := r.db.conn(ctx).NamedExecContext(ctx, query, u)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.ErrEditConflict
	}
	u.Version++
	return nil
}

func (r *UserRepository) GetForToken(ctx context.Context, scope string, hash []byte) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN token t ON t.user_id = u.id
		WHERE t.scope = $1 AND t.hash = $2 AND t.expiry > NOW()
		LIMIT 1
		`
	return r.getOne(ctx, query, scope, hash)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User
	if err := r.db.conn(ctx).QueryRowxContext(ctx, query, args...).StructScan(&u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &u, nil
}
