package supabase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/controller"
	"github.com/sakif/fitness-hub/internal/model"
)

// sessionResponse is GoTrue's token response. /signup returns it only when
// email confirmation is off; otherwise it returns a bare user, which lands
// in the embedded userResponse fields.
type sessionResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
	userResponse
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u userResponse) principal() *model.Principal {
	if u.ID == "" {
		return nil
	}
	return &model.Principal{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

// adopt installs the session's tokens and announces the sign-in.
func (c *Client) adopt(s *sessionResponse, kind model.IdentityEventKind) *model.Principal {
	var p *model.Principal
	if s.User != nil {
		p = s.User.principal()
	}
	if s.AccessToken == "" {
		return p
	}
	c.setToken(newToken(s.AccessToken, s.RefreshToken))
	c.hub.Publish(model.IdentityEvent{Kind: kind, Principal: p})
	return p
}

// SignUp registers a user. attrs are stored as the user's metadata.
//
// When the project requires email confirmation GoTrue returns the user
// without a session: the principal is returned but nobody is signed in.
func (c *Client) SignUp(ctx context.Context, email, password string, attrs map[string]any) (*model.Principal, error) {
	body := map[string]any{"email": email, "password": password, "data": attrs}

	var s sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, body, &s); err != nil {
		return nil, err
	}
	if p := c.adopt(&s, model.SignedIn); p != nil {
		return p, nil
	}
	return s.userResponse.principal(), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*model.SignInResult, error) {
	body := map[string]string{"email": email, "password": password}

	var s sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", nil, body, &s); err != nil {
		return nil, err
	}
	p := c.adopt(&s, model.SignedIn)
	return &model.SignInResult{Principal: p, AccessToken: s.AccessToken}, nil
}

// SignOut revokes the session server-side, then forgets it locally.
// A session GoTrue no longer knows (401/403/404) counts as signed out.
func (c *Client) SignOut(ctx context.Context) error {
	if c.currentToken() != nil {
		err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil)
		if err != nil && !isSessionGone(err) {
			return err
		}
	}
	c.setToken(nil)
	c.hub.Publish(model.IdentityEvent{Kind: model.SignedOut})
	return nil
}

// CurrentPrincipal returns the signed-in user, or nil when there is none.
//
// An access token past its exp claim is refreshed once first. A session the
// server rejects is dropped and reported as "nobody signed in".
func (c *Client) CurrentPrincipal(ctx context.Context) (*model.Principal, error) {
	tok := c.currentToken()
	if tok == nil {
		return nil, nil
	}
	if !tok.Valid() {
		if err := c.refresh(ctx, tok); err != nil {
			if isAuthRejection(err) {
				c.project.Logger.Debug("session refresh rejected", slog.String("error", err.Error()))
				c.setToken(nil)
				return nil, nil
			}
			return nil, err
		}
	}

	var u userResponse
	err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, &u)
	if isAuthRejection(err) {
		c.setToken(nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u.principal(), nil
}

// refresh trades the refresh token for a new session.
func (c *Client) refresh(ctx context.Context, tok *oauth2.Token) error {
	if tok.RefreshToken == "" {
		return &APIError{Status: http.StatusUnauthorized, Message: "session expired"}
	}
	body := map[string]string{"refresh_token": tok.RefreshToken}

	var s sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", nil, body, &s); err != nil {
		return err
	}
	if s.AccessToken == "" {
		return errors.New("supabase: refresh returned no access token")
	}
	c.adopt(&s, model.TokenRefreshed)
	return nil
}

func isSessionGone(err error) bool {
	switch statusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// isAuthRejection also treats 400 as a rejection: GoTrue answers a bad
// refresh token with 400 invalid_grant.
func isAuthRejection(err error) bool {
	switch statusOf(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

func (c *Client) Subscribe(fn func(model.IdentityEvent)) controller.Subscription {
	return c.hub.Subscribe(fn)
}

// requireSession is used by record calls that only make sense signed in.
func (c *Client) requireSession() error {
	if c.currentToken() == nil {
		return apperror.Unauthenticated("Please log in to continue.")
	}
	return nil
}
