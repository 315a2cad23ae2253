// Package service is the self-hosted backend: the business rules that the
// hosted identity service and record store enforce, reimplemented on top of
// the local repositories.
//
// THE LAYERS:
//
//	LocalClient (one per visitor) → AuthService   → UserRepository (DB)
//	                              ↘ RecordService → ProfileRepository, ContactRepository
//
// AuthService and RecordService are shared by every visitor and hold no
// per-visitor state. LocalClient holds the visitor's access token and
// implements the controller's IdentityService and RecordStore ports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/auth"
	"github.com/sakif/fitness-hub/internal/model"
	"github.com/sakif/fitness-hub/internal/repository"
)

// Messages mirror the hosted identity service so both backends read the same.
const (
	MinPasswordLength     = 6
	MsgInvalidCredentials = "Invalid login credentials"
	MsgWeakPassword       = "Password should be at least 6 characters"
	MsgEmailRequired      = "Email is required"
	MsgSessionExpired     = "Session expired. Please log in again."
)

// AuthService handles sign-up, sign-in and token verification.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write accounts
//   - tokens     *auth.TokenService         → issue/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the account and the access token issued for it.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignUp creates an account and signs it in.
//
// A taken email is apperror.ErrConflict ("User already registered").
func (s *AuthService) SignUp(ctx context.Context, email, password string, attrs map[string]any) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", MsgEmailRequired)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", MsgWeakPassword)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash, Metadata: attrs}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))
	return s.issue(user)
}

// SignIn checks credentials and issues a token.
//
// Unknown email and wrong password produce the same error so the response
// does not reveal which accounts exist.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Forbidden(MsgInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			return nil, apperror.Forbidden(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return s.issue(user)
}

// Authenticate resolves an access token to the account it was issued for.
// Expired and invalid tokens are apperror.ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthenticated(MsgSessionExpired)
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthenticated(MsgSessionExpired)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", claims.UserID, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
