package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/model"
)

const (
	profilesPath = "/rest/v1/profiles"
	contactsPath = "/rest/v1/contact_queries"

	// codeNoRows is PostgREST's answer when a single object was requested
	// and zero (or several) rows matched.
	codeNoRows = "PGRST116"
)

// singleRow asks PostgREST to return the written/read row as one object
// instead of a one-element array.
func singleRow() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/vnd.pgrst.object+json")
	h.Set("Prefer", "return=representation")
	return h
}

func eqID(id string) string {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "*")
	return q.Encode()
}

// notFound maps PostgREST's "no rows" reply onto apperror.ErrNotFound.
func notFound(err error, id string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeNoRows {
		return apperror.NotFound("profile", id)
	}
	return err
}

func (c *Client) CreateProfile(ctx context.Context, p model.Profile) (*model.Profile, error) {
	var out model.Profile
	if err := c.do(ctx, http.MethodPost, profilesPath, singleRow(), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out model.Profile
	err := c.do(ctx, http.MethodGet, profilesPath+"?"+eqID(id), singleRow(), nil, &out)
	if err != nil {
		return nil, notFound(err, id)
	}
	return &out, nil
}

// UpdateProfile PATCHes only the fields set in u. Zero matching rows (no
// profile, or hidden by row-level security) is apperror.ErrNotFound.
func (c *Client) UpdateProfile(ctx context.Context, id string, u model.ProfileUpdate) (*model.Profile, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out model.Profile
	err := c.do(ctx, http.MethodPatch, profilesPath+"?"+eqID(id), singleRow(), u, &out)
	if err != nil {
		return nil, notFound(err, id)
	}
	return &out, nil
}

func (c *Client) SubmitContact(ctx context.Context, sub model.ContactSubmission) (*model.ContactSubmission, error) {
	var out model.ContactSubmission
	if err := c.do(ctx, http.MethodPost, contactsPath, singleRow(), sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
