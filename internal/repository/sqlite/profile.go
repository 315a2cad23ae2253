package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/model"
	"github.com/sakif/fitness-hub/internal/repository"
)

var _ repository.ProfileRepository = (*DB)(nil)

// CreateProfile inserts the profile row for an existing user.
// profile.ID must be the user's ID.
func (db *DB) CreateProfile(ctx context.Context, profile *model.Profile) error {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, email, phone, age, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.FullName,
		profile.Email,
		profile.Phone,
		profile.Age,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return apperror.Conflict("profile", profile.ID)
	case isForeignKeyViolation(err):
		return apperror.NotFound("user", profile.ID)
	default:
		return fmt.Errorf("sqlite: inserting profile %s: %w", profile.ID, err)
	}
}

// GetProfile retrieves the profile for user id.
// Returns apperror.ErrNotFound if the user has no profile row.
func (db *DB) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, full_name, email, phone, age, created_at, updated_at
		 FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.Age, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return &p, nil
}

// UpdateProfile applies the non-nil fields of update and returns the row as
// stored afterwards.
//
// PARTIAL UPDATES:
// Only the columns present in the update appear in the SET clause. Column
// names come from a fixed list, never from input, so building the statement
// with strings.Join is safe; the values still go through ? placeholders.
func (db *DB) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error) {
	var (
		sets []string
		args []any
	)
	if update.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *update.FullName)
	}
	if update.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *update.Phone)
	}
	if update.Age != nil {
		sets = append(sets, "age = ?")
		args = append(args, *update.Age)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating profile %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("profile", id)
	}

	return db.GetProfile(ctx, id)
}
