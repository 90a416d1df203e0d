package user

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type sqlRepository struct {
	db *sqlx.DB
}

// NewSQLRepository creates a user repository over a migrated postgres or
// sqlite database.
func NewSQLRepository(db *sqlx.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) CreateUser(ctx context.Context, user *User) error {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM users WHERE email = ?`), strings.ToLower(user.Email)); err != nil {
		return errors.Wrap(err, "check email")
	}
	if n > 0 {
		return ErrEmailTaken
	}
	query := r.db.Rebind(`
		INSERT INTO users (id, email, password_hash, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query, user.ID.String(), strings.ToLower(user.Email), user.PasswordHash,
		user.FirstName, user.LastName, user.CreatedAt, user.UpdatedAt)
	return errors.Wrap(err, "insert user")
}

func (r *sqlRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, `
		SELECT id, email, password_hash, first_name, last_name, created_at, updated_at
		FROM users
		WHERE email = ?
	`, strings.ToLower(email))
}

func (r *sqlRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.get(ctx, `
		SELECT id, email, password_hash, first_name, last_name, created_at, updated_at
		FROM users
		WHERE id = ?
	`, parsedID.String())
}

func (r *sqlRepository) get(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := r.db.GetContext(ctx, user, r.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user")
	}
	return user, nil
}
