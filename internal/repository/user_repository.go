package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"familyphotos/api/internal/database"
	"familyphotos/api/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, session_token, created_at`

func (r *UserRepository) Create(ctx context.Context, user models.User) (int64, error) {
	const query = `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`

	var id int64
	err := r.db.GetContext(ctx, &id, r.db.Rebind(query),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

// ExistsByUsernameOrEmail reports whether either identifier is already taken.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	const query = `SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`

	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), username, email); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// FindByLogin resolves the identifier used on the login form, which may be
// either a username or an email address. Emails are stored lower-cased, so
// only the username comparison is case-sensitive.
func (r *UserRepository) FindByLogin(ctx context.Context, identifier string) (models.User, error) {
	return r.findOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? ORDER BY id LIMIT 1`,
		identifier, strings.ToLower(identifier),
	)
}

func (r *UserRepository) FindBySessionToken(ctx context.Context, tokenHash string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE session_token = ?`, tokenHash)
}

// SetSessionToken replaces the user's single session token. A nil hash logs
// the user out.
func (r *UserRepository) SetSessionToken(ctx context.Context, id int64, tokenHash *string) error {
	const query = `UPDATE users SET session_token = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), tokenHash, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
