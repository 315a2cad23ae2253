// Package supabase talks to a hosted Supabase project: GoTrue for identity
// (/auth/v1) and PostgREST for the profiles and contact_queries tables
// (/rest/v1).
//
// ONE CLIENT PER VISITOR:
// A Client holds one visitor's session tokens, the same way the browser SDK
// keeps them in local storage. Every request carries the project's anon key
// in the "apikey" header and a bearer token: the visitor's access token when
// signed in, the anon key otherwise. The bearer header is set by an
// oauth2.Transport wrapping the shared *http.Client's transport.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/sakif/fitness-hub/internal/auth"
	"github.com/sakif/fitness-hub/internal/controller"
)

var (
	_ controller.IdentityService = (*Client)(nil)
	_ controller.RecordStore     = (*Client)(nil)
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Project identifies a Supabase project. It is shared by every visitor.
type Project struct {
	URL        string // e.g. https://abcd.supabase.co
	AnonKey    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is one visitor's connection to the project.
type Client struct {
	project Project
	hub     *auth.Hub

	mu    sync.Mutex
	token *oauth2.Token // nil when signed out
}

// NewClient returns a client for one visitor. accessToken and refreshToken
// may be empty, or restored from a previous visit.
func NewClient(p Project, accessToken, refreshToken string) *Client {
	if p.HTTPClient == nil {
		p.HTTPClient = http.DefaultClient
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	p.URL = strings.TrimRight(p.URL, "/")

	c := &Client{project: p, hub: auth.NewHub()}
	if accessToken != "" {
		c.token = newToken(accessToken, refreshToken)
	}
	return c
}

// newToken wraps GoTrue tokens in an oauth2.Token. Expiry comes from the
// access token's own exp claim.
func newToken(access, refresh string) *oauth2.Token {
	t := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
	if exp, err := auth.PeekExpiry(access); err == nil {
		t.Expiry = exp
	}
	return t
}

// AccessToken returns the current access token, or "".
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return ""
	}
	return c.token.AccessToken
}

// RefreshToken returns the current refresh token, or "".
func (c *Client) RefreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return ""
	}
	return c.token.RefreshToken
}

func (c *Client) currentToken() *oauth2.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(t *oauth2.Token) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
}

// httpClient returns a client that authenticates as the visitor, or as the
// anonymous role when there is no session.
func (c *Client) httpClient() *http.Client {
	tok := c.currentToken()
	if tok == nil {
		tok = &oauth2.Token{AccessToken: c.project.AnonKey, TokenType: "Bearer"}
	}
	base := c.project.HTTPClient
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(tok),
			Base:   base.Transport,
		},
		Timeout: base.Timeout,
	}
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("supabase: encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.project.URL+path, body)
	if err != nil {
		return fmt.Errorf("supabase: building request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("apikey", c.project.AnonKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("supabase: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("supabase: decoding %s %s: %w", method, path, err)
	}
	return nil
}

// APIError is a non-2xx response from GoTrue or PostgREST.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

// UserMessage is the service's own explanation, suitable for display.
func (e *APIError) UserMessage() string {
	return e.Message
}

// errorBody covers both services' error shapes:
//
//	GoTrue (new):  {"code":400,"error_code":"invalid_credentials","msg":"..."}
//	GoTrue (old):  {"error":"invalid_grant","error_description":"..."}
//	PostgREST:     {"code":"PGRST116","message":"...","details":"...","hint":null}
type errorBody struct {
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	ErrorDescription string          `json:"error_description"`
	Error            string          `json:"error"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var b errorBody
	if err := json.Unmarshal(raw, &b); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	for _, m := range []string{b.Msg, b.Message, b.ErrorDescription, b.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	apiErr.Code = b.ErrorCode
	if apiErr.Code == "" {
		var s string
		if json.Unmarshal(b.Code, &s) == nil {
			apiErr.Code = s
		}
	}
	return apiErr
}

// statusOf returns the HTTP status of an *APIError, or 0.
func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
