package service

import (
	"context"
	"errors"
	"sync"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/auth"
	"github.com/sakif/fitness-hub/internal/controller"
	"github.com/sakif/fitness-hub/internal/model"
)

// MsgNotYourProfile is returned when a visitor touches another user's profile.
const MsgNotYourProfile = "You can only access your own profile"

var (
	_ controller.IdentityService = (*LocalClient)(nil)
	_ controller.RecordStore     = (*LocalClient)(nil)
)

// LocalClient is one visitor's connection to the local backend.
//
// It plays the part a browser SDK plays for a hosted backend: it remembers
// the visitor's access token, attaches it to every call, and announces
// sign-in and sign-out to subscribers.
//
// Profile rows are only readable and writable by their owner, like the
// row-level security policy on the hosted "profiles" table.
type LocalClient struct {
	auth    *AuthService
	records *RecordService
	hub     *auth.Hub

	mu    sync.Mutex
	token string
}

// NewLocalClient returns a client for one visitor. accessToken may be empty
// (anonymous) or a token from a previous visit, restored from a cookie.
func NewLocalClient(a *AuthService, r *RecordService, accessToken string) *LocalClient {
	return &LocalClient{
		auth:    a,
		records: r,
		hub:     auth.NewHub(),
		token:   accessToken,
	}
}

// AccessToken returns the current token, or "" when signed out.
func (c *LocalClient) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// RefreshToken is always empty: local tokens are not refreshable, a visitor
// signs in again when one expires.
func (c *LocalClient) RefreshToken() string { return "" }

func (c *LocalClient) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// =========================================================================
// IDENTITY
// =========================================================================

func (c *LocalClient) SignUp(ctx context.Context, email, password string, attrs map[string]any) (*model.Principal, error) {
	res, err := c.auth.SignUp(ctx, email, password, attrs)
	if err != nil {
		return nil, err
	}
	p := res.User.Principal()
	c.setToken(res.Token)
	c.hub.Publish(model.IdentityEvent{Kind: model.SignedIn, Principal: &p})
	return &p, nil
}

func (c *LocalClient) SignIn(ctx context.Context, email, password string) (*model.SignInResult, error) {
	res, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p := res.User.Principal()
	c.setToken(res.Token)
	c.hub.Publish(model.IdentityEvent{Kind: model.SignedIn, Principal: &p})
	return &model.SignInResult{Principal: &p, AccessToken: res.Token}, nil
}

// SignOut forgets the token. Tokens are stateless JWTs, so there is nothing
// to revoke server-side; a copied token stays valid until it expires.
func (c *LocalClient) SignOut(context.Context) error {
	c.setToken("")
	c.hub.Publish(model.IdentityEvent{Kind: model.SignedOut})
	return nil
}

// CurrentPrincipal returns the signed-in user, or nil when there is none.
// An expired or revoked token is dropped rather than reported.
func (c *LocalClient) CurrentPrincipal(ctx context.Context) (*model.Principal, error) {
	token := c.AccessToken()
	if token == "" {
		return nil, nil
	}
	user, err := c.auth.Authenticate(ctx, token)
	if errors.Is(err, apperror.ErrUnauthenticated) {
		c.setToken("")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := user.Principal()
	return &p, nil
}

func (c *LocalClient) Subscribe(fn func(model.IdentityEvent)) controller.Subscription {
	return c.hub.Subscribe(fn)
}

// =========================================================================
// RECORDS
// =========================================================================

// owner checks that the signed-in user is id.
func (c *LocalClient) owner(ctx context.Context, id string) error {
	p, err := c.CurrentPrincipal(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		return apperror.Unauthenticated(MsgSessionExpired)
	}
	if p.ID != id {
		return apperror.Forbidden(MsgNotYourProfile)
	}
	return nil
}

func (c *LocalClient) CreateProfile(ctx context.Context, p model.Profile) (*model.Profile, error) {
	if err := c.owner(ctx, p.ID); err != nil {
		return nil, err
	}
	return c.records.CreateProfile(ctx, p)
}

func (c *LocalClient) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	if err := c.owner(ctx, id); err != nil {
		return nil, err
	}
	return c.records.GetProfile(ctx, id)
}

func (c *LocalClient) UpdateProfile(ctx context.Context, id string, u model.ProfileUpdate) (*model.Profile, error) {
	if err := c.owner(ctx, id); err != nil {
		return nil, err
	}
	return c.records.UpdateProfile(ctx, id, u)
}

// SubmitContact is open to anonymous visitors.
func (c *LocalClient) SubmitContact(ctx context.Context, sub model.ContactSubmission) (*model.ContactSubmission, error) {
	return c.records.SubmitContact(ctx, sub)
}
