package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/model"
	"github.com/sakif/fitness-hub/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new account. The caller supplies Email, PasswordHash
// and Metadata; ID and CreatedAt are filled in here.
//
// The email column is UNIQUE COLLATE NOCASE, so "A@x.com" and "a@x.com" are
// the same account. A duplicate comes back as apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	meta, err := json.Marshal(user.Metadata)
	if err != nil {
		return fmt.Errorf("sqlite: encoding metadata for %s: %w", user.Email, err)
	}
	if user.Metadata == nil {
		meta = []byte("{}")
	}

	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		string(meta),
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "User already registered",
				Field:   "email",
			}
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// GetUserByID retrieves an account by its ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, metadata, created_at
		 FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail retrieves an account by email, case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, metadata, created_at
		 FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u    model.User
		meta string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &meta, &u.CreatedAt); err != nil {
		return nil, err
	}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &u.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	return &u, nil
}
