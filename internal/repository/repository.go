// Package repository declares the storage interfaces used by the local backend.
// Implementations live in subpackages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/fitness-hub/internal/model"
)

// UserRepository stores local accounts and their password hashes.
type UserRepository interface {
	// CreateUser assigns ID and CreatedAt. A taken email is apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// ProfileRepository stores one profile per user, keyed by the user's ID.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error)
}

// ContactRepository stores contact form submissions.
type ContactRepository interface {
	CreateContact(ctx context.Context, contact *model.ContactSubmission) error
}
