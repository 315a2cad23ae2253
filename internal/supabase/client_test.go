package supabase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/auth"
	"github.com/sakif/fitness-hub/internal/model"
)

const testAnonKey = "anon-key"

// =========================================================================
// FAKE PROJECT
// =========================================================================

// fakeProject is a tiny GoTrue + PostgREST stand-in with one user.
type fakeProject struct {
	t      *testing.T
	tokens *auth.TokenService

	mu           sync.Mutex
	profiles     map[string]model.Profile
	contacts     []model.ContactSubmission
	refreshCalls int
	logoutStatus int
	lastBearer   string
	lastAPIKey   string
}

const (
	fakeUserID   = "user-1"
	fakeEmail    = "jane@example.com"
	fakePassword = "secret1"
	fakeRefresh  = "refresh-1"
)

func newFakeProject(t *testing.T) (*fakeProject, *httptest.Server) {
	t.Helper()
	ts, err := auth.NewTokenService("fake-project-jwt-secret-123")
	require.NoError(t, err)

	f := &fakeProject{t: t, tokens: ts, profiles: make(map[string]model.Profile), logoutStatus: http.StatusNoContent}

	r := chi.NewRouter()
	r.Use(f.recordHeaders)
	r.Post("/auth/v1/signup", f.signup)
	r.Post("/auth/v1/token", f.token)
	r.Post("/auth/v1/logout", f.logout)
	r.Get("/auth/v1/user", f.user)
	r.Post("/rest/v1/profiles", f.insertProfile)
	r.Get("/rest/v1/profiles", f.getProfile)
	r.Patch("/rest/v1/profiles", f.patchProfile)
	r.Post("/rest/v1/contact_queries", f.insertContact)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeProject) recordHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastBearer = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.lastAPIKey = r.Header.Get("apikey")
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *fakeProject) accessToken(d time.Duration) string {
	tok, err := f.tokens.GenerateWithDuration(fakeUserID, fakeEmail, d)
	require.NoError(f.t, err)
	return tok
}

func (f *fakeProject) session(w http.ResponseWriter) {
	writeJSONBody(w, http.StatusOK, map[string]any{
		"access_token":  f.accessToken(time.Hour),
		"refresh_token": fakeRefresh,
		"user":          map[string]any{"id": fakeUserID, "email": fakeEmail},
	})
}

func (f *fakeProject) authorized(r *http.Request) bool {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	_, err := f.tokens.Validate(bearer)
	return err == nil
}

func (f *fakeProject) signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string         `json:"email"`
		Data  map[string]any `json:"data"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	if body.Email == "taken@example.com" {
		writeJSONBody(w, http.StatusUnprocessableEntity, map[string]any{
			"code": 422, "error_code": "user_already_exists", "msg": "User already registered",
		})
		return
	}
	if body.Email == "confirm@example.com" {
		writeJSONBody(w, http.StatusOK, map[string]any{"id": "user-2", "email": body.Email, "user_metadata": body.Data})
		return
	}
	f.session(w)
}

func (f *fakeProject) token(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)

	switch r.URL.Query().Get("grant_type") {
	case "password":
		if body["email"] != fakeEmail || body["password"] != fakePassword {
			writeJSONBody(w, http.StatusBadRequest, map[string]any{
				"code": 400, "error_code": "invalid_credentials", "msg": "Invalid login credentials",
			})
			return
		}
		f.session(w)
	case "refresh_token":
		f.mu.Lock()
		f.refreshCalls++
		f.mu.Unlock()
		if body["refresh_token"] != fakeRefresh {
			writeJSONBody(w, http.StatusBadRequest, map[string]any{
				"error": "invalid_grant", "error_description": "Invalid Refresh Token",
			})
			return
		}
		f.session(w)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeProject) logout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.logoutStatus
	f.mu.Unlock()
	if status >= 400 {
		writeJSONBody(w, status, map[string]any{"msg": "logout failed"})
		return
	}
	w.WriteHeader(status)
}

func (f *fakeProject) user(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeJSONBody(w, http.StatusUnauthorized, map[string]any{"msg": "invalid JWT"})
		return
	}
	writeJSONBody(w, http.StatusOK, map[string]any{"id": fakeUserID, "email": fakeEmail})
}

func (f *fakeProject) noRows(w http.ResponseWriter) {
	writeJSONBody(w, http.StatusNotAcceptable, map[string]any{
		"code": "PGRST116", "message": "JSON object requested, multiple (or no) rows returned",
	})
}

func (f *fakeProject) insertProfile(w http.ResponseWriter, r *http.Request) {
	var p model.Profile
	json.NewDecoder(r.Body).Decode(&p)
	f.mu.Lock()
	f.profiles[p.ID] = p
	f.mu.Unlock()
	writeJSONBody(w, http.StatusCreated, p)
}

func (f *fakeProject) getProfile(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
	f.mu.Lock()
	p, ok := f.profiles[id]
	f.mu.Unlock()
	if !ok || !f.authorized(r) {
		f.noRows(w)
		return
	}
	writeJSONBody(w, http.StatusOK, p)
}

func (f *fakeProject) patchProfile(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
	var raw map[string]any
	json.NewDecoder(r.Body).Decode(&raw)

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		f.noRows(w)
		return
	}
	if v, ok := raw["mobile _number"].(string); ok {
		p.Phone = v
	}
	if v, ok := raw["full_name"].(string); ok {
		p.FullName = v
	}
	if v, ok := raw["age"].(float64); ok {
		p.Age = int(v)
	}
	f.profiles[id] = p
	writeJSONBody(w, http.StatusOK, p)
}

func (f *fakeProject) insertContact(w http.ResponseWriter, r *http.Request) {
	var c model.ContactSubmission
	json.NewDecoder(r.Body).Decode(&c)
	if c.Message == "boom" {
		writeJSONBody(w, http.StatusInternalServerError, map[string]any{
			"code": "XX000", "message": "database unavailable",
		})
		return
	}
	c.ID = "42"
	f.mu.Lock()
	f.contacts = append(f.contacts, c)
	f.mu.Unlock()
	writeJSONBody(w, http.StatusCreated, c)
}

func writeJSONBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestClient(srv *httptest.Server, access, refresh string) *Client {
	return NewClient(Project{
		URL:        srv.URL + "/",
		AnonKey:    testAnonKey,
		HTTPClient: srv.Client(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, access, refresh)
}

func collect(c *Client) func() []model.IdentityEventKind {
	var (
		mu    sync.Mutex
		kinds []model.IdentityEventKind
	)
	c.Subscribe(func(ev model.IdentityEvent) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})
	return func() []model.IdentityEventKind {
		mu.Lock()
		defer mu.Unlock()
		return append([]model.IdentityEventKind(nil), kinds...)
	}
}

// =========================================================================
// IDENTITY TESTS
// =========================================================================

func TestSignIn(t *testing.T) {
	f, srv := newFakeProject(t)
	c := newTestClient(srv, "", "")
	events := collect(c)

	res, err := c.SignIn(context.Background(), fakeEmail, fakePassword)
	require.NoError(t, err)
	require.NotNil(t, res.Principal)
	assert.Equal(t, fakeUserID, res.Principal.ID)
	assert.Equal(t, c.AccessToken(), res.AccessToken)
	assert.Equal(t, fakeRefresh, c.RefreshToken())
	assert.Equal(t, []model.IdentityEventKind{model.SignedIn}, events())

	// Every call carries the project key.
	assert.Equal(t, testAnonKey, f.lastAPIKey)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	_, srv := newFakeProject(t)
	c := newTestClient(srv, "", "")
	events := collect(c)

	_, err := c.SignIn(context.Background(), fakeEmail, "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", apperror.UserMessage(err, "fallback"))
	assert.Empty(t, c.AccessToken())
	assert.Empty(t, events())
}

func TestSignUp(t *testing.T) {
	_, srv := newFakeProject(t)

	t.Run("with session", func(t *testing.T) {
		c := newTestClient(srv, "", "")
		p, err := c.SignUp(context.Background(), fakeEmail, fakePassword, map[string]any{"full_name": "Jane"})
		require.NoError(t, err)
		assert.Equal(t, fakeUserID, p.ID)
		assert.NotEmpty(t, c.AccessToken())
	})

	t.Run("confirmation required", func(t *testing.T) {
		c := newTestClient(srv, "", "")
		events := collect(c)
		p, err := c.SignUp(context.Background(), "confirm@example.com", fakePassword, map[string]any{"full_name": "Con"})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "user-2", p.ID)
		assert.Equal(t, "Con", p.Metadata["full_name"])
		assert.Empty(t, c.AccessToken())
		assert.Empty(t, events())
	})

	t.Run("already registered", func(t *testing.T) {
		c := newTestClient(srv, "", "")
		_, err := c.SignUp(context.Background(), "taken@example.com", fakePassword, nil)
		require.Error(t, err)
		assert.Equal(t, "User already registered", apperror.UserMessage(err, ""))
	})
}

func TestCurrentPrincipal(t *testing.T) {
	f, srv := newFakeProject(t)

	t.Run("anonymous", func(t *testing.T) {
		p, err := newTestClient(srv, "", "").CurrentPrincipal(context.Background())
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("valid token", func(t *testing.T) {
		p, err := newTestClient(srv, f.accessToken(time.Hour), fakeRefresh).CurrentPrincipal(context.Background())
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, fakeEmail, p.Email)
	})

	t.Run("expired token is refreshed once", func(t *testing.T) {
		before := f.refreshCalls
		expired := f.accessToken(-time.Minute)
		c := newTestClient(srv, expired, fakeRefresh)
		events := collect(c)

		p, err := c.CurrentPrincipal(context.Background())
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.NotEqual(t, expired, c.AccessToken())
		assert.Equal(t, before+1, f.refreshCalls)
		assert.Equal(t, []model.IdentityEventKind{model.TokenRefreshed}, events())
	})

	t.Run("rejected refresh drops the session", func(t *testing.T) {
		c := newTestClient(srv, f.accessToken(-time.Minute), "bad-refresh")
		p, err := c.CurrentPrincipal(context.Background())
		require.NoError(t, err)
		assert.Nil(t, p)
		assert.Empty(t, c.AccessToken())
	})

	t.Run("unknown token drops the session", func(t *testing.T) {
		other, err := auth.NewTokenService("some-other-project-secret")
		require.NoError(t, err)
		forged, err := other.Generate(fakeUserID, fakeEmail)
		require.NoError(t, err)

		c := newTestClient(srv, forged, "")
		p, err := c.CurrentPrincipal(context.Background())
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}

func TestSignOut(t *testing.T) {
	f, srv := newFakeProject(t)

	t.Run("success", func(t *testing.T) {
		c := newTestClient(srv, f.accessToken(time.Hour), fakeRefresh)
		events := collect(c)
		require.NoError(t, c.SignOut(context.Background()))
		assert.Empty(t, c.AccessToken())
		assert.Equal(t, []model.IdentityEventKind{model.SignedOut}, events())
	})

	t.Run("server error keeps the session", func(t *testing.T) {
		f.mu.Lock()
		f.logoutStatus = http.StatusInternalServerError
		f.mu.Unlock()
		t.Cleanup(func() { f.logoutStatus = http.StatusNoContent })

		token := f.accessToken(time.Hour)
		c := newTestClient(srv, token, fakeRefresh)
		events := collect(c)
		require.Error(t, c.SignOut(context.Background()))
		assert.Equal(t, token, c.AccessToken())
		assert.Empty(t, events())
	})

	t.Run("already revoked counts as signed out", func(t *testing.T) {
		f.mu.Lock()
		f.logoutStatus = http.StatusUnauthorized
		f.mu.Unlock()
		t.Cleanup(func() { f.logoutStatus = http.StatusNoContent })

		c := newTestClient(srv, f.accessToken(time.Hour), fakeRefresh)
		require.NoError(t, c.SignOut(context.Background()))
		assert.Empty(t, c.AccessToken())
	})
}

// =========================================================================
// RECORD TESTS
// =========================================================================

func TestProfiles(t *testing.T) {
	f, srv := newFakeProject(t)
	token := f.accessToken(time.Hour)
	c := newTestClient(srv, token, fakeRefresh)
	ctx := context.Background()

	_, err := c.GetProfile(ctx, fakeUserID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	created, err := c.CreateProfile(ctx, model.Profile{ID: fakeUserID, FullName: "Jane", Email: fakeEmail, Phone: "5551234567", Age: 30})
	require.NoError(t, err)
	assert.Equal(t, "5551234567", created.Phone)
	assert.Equal(t, token, f.lastBearer)

	phone := "5559876543"
	updated, err := c.UpdateProfile(ctx, fakeUserID, model.ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "5559876543", updated.Phone)
	assert.Equal(t, 30, updated.Age)

	got, err := c.GetProfile(ctx, fakeUserID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.FullName)

	_, err = c.UpdateProfile(ctx, "someone-else", model.ProfileUpdate{Phone: &phone})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestProfiles_RequireSession(t *testing.T) {
	_, srv := newFakeProject(t)
	c := newTestClient(srv, "", "")

	_, err := c.GetProfile(context.Background(), fakeUserID)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestSubmitContact(t *testing.T) {
	f, srv := newFakeProject(t)
	c := newTestClient(srv, "", "")

	got, err := c.SubmitContact(context.Background(), model.ContactSubmission{
		Name: "Sam", Email: "sam@example.com", Message: "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "42", got.ID)
	assert.Len(t, f.contacts, 1)

	_, err = c.SubmitContact(context.Background(), model.ContactSubmission{
		Name: "Sam", Email: "sam@example.com", Message: "boom",
	})
	require.Error(t, err)
	assert.Equal(t, "database unavailable", apperror.UserMessage(err, "fallback"))
}
