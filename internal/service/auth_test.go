package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/auth"
	"github.com/sakif/fitness-hub/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	users   map[string]*model.User // keyed by ID
	byEmail map[string]*model.User
	nextID  int
	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[user.Email]; ok {
		return apperror.Conflict("user", user.Email)
	}
	f.nextID++
	user.ID = "user-" + string(rune('0'+f.nextID))
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	f.byEmail[user.Email] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	copied := *u
	return &copied, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)
	return ts
}

// newTestAuthService returns an AuthService on a fake repository.
// Cost 4 is the bcrypt minimum and keeps tests fast.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) *AuthService {
	t.Helper()
	return NewAuthService(repo, newTestTokens(t), auth.NewPasswordServiceForTest(4), discardLogger())
}

// =========================================================================
// SignUp TESTS
// =========================================================================

func TestSignUp_CreatesUserAndToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	res, err := svc.SignUp(context.Background(), "  Jane@Example.com ", "secret1",
		map[string]any{"full_name": "Jane"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "jane@example.com", res.User.Email)
	assert.Equal(t, "Jane", res.User.Metadata["full_name"])
	assert.NotEqual(t, "secret1", res.User.PasswordHash, "password must be hashed")
}

func TestSignUp_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantMsg  string
	}{
		{"blank email", "   ", "secret1", MsgEmailRequired},
		{"short password", "a@b.co", "12345", MsgWeakPassword},
		{"short multibyte password", "a@b.co", "ééé", MsgWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAuthService(t, newFakeUserRepo())

			_, err := svc.SignUp(context.Background(), tt.email, tt.password, nil)
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	_, err := svc.SignUp(context.Background(), "a@b.co", "secret1", nil)
	require.NoError(t, err)

	_, err = svc.SignUp(context.Background(), "A@B.co", "secret2", nil)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

// =========================================================================
// SignIn TESTS
// =========================================================================

func TestSignIn_Success(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	signedUp, err := svc.SignUp(context.Background(), "a@b.co", "secret1", nil)
	require.NoError(t, err)

	res, err := svc.SignIn(context.Background(), "A@b.co", "secret1")
	require.NoError(t, err)
	assert.Equal(t, signedUp.User.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)
}

func TestSignIn_BadCredentialsLookAlike(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	_, err := svc.SignUp(context.Background(), "a@b.co", "secret1", nil)
	require.NoError(t, err)

	_, wrongPw := svc.SignIn(context.Background(), "a@b.co", "nope-nope")
	_, noUser := svc.SignIn(context.Background(), "x@b.co", "secret1")

	for _, err := range []error{wrongPw, noUser} {
		require.ErrorIs(t, err, apperror.ErrForbidden)
		assert.Equal(t, MsgInvalidCredentials, apperror.UserMessage(err, "fallback"))
	}
}

func TestSignIn_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.getErr = errors.New("database is on fire")
	svc := newTestAuthService(t, repo)

	_, err := svc.SignIn(context.Background(), "a@b.co", "secret1")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "database is on fire"))
	assert.NotErrorIs(t, err, apperror.ErrForbidden)
}

// =========================================================================
// Authenticate TESTS
// =========================================================================

func TestAuthenticate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	res, err := svc.SignUp(context.Background(), "a@b.co", "secret1", nil)
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)
}

func TestAuthenticate_BadTokens(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	expired, err := newTestTokens(t).GenerateWithDuration("user-1", "a@b.co", -time.Minute)
	require.NoError(t, err)
	orphan, err := newTestTokens(t).Generate("deleted-user", "gone@b.co")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage": "not.a.jwt",
		"expired": expired,
		"orphan":  orphan,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), token)
			assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
		})
	}
}
