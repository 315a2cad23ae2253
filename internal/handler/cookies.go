package handler

import (
	"net/http"
	"time"

	"github.com/sakif/fitness-hub/internal/visitor"
)

// Cookie names. The visitor cookie keys the server-side controller; the
// token cookies let a visitor's session survive a server restart or an idle
// eviction.
const (
	VisitorCookie = "visitor_id"
	AccessCookie  = "fh_access_token"
	RefreshCookie = "fh_refresh_token"
)

const cookieMaxAge = 30 * 24 * time.Hour

// Cookies writes the site's cookies with one set of attributes.
type Cookies struct {
	// Secure should be true whenever the site is served over HTTPS.
	Secure bool
}

func (c Cookies) set(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c Cookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete now
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// syncTokens makes the token cookies match the client's current tokens.
// Cookies are only written when they differ from what the browser sent.
func (c Cookies) syncTokens(w http.ResponseWriter, r *http.Request, client visitor.Client) {
	c.syncOne(w, r, AccessCookie, client.AccessToken())
	c.syncOne(w, r, RefreshCookie, client.RefreshToken())
}

func (c Cookies) syncOne(w http.ResponseWriter, r *http.Request, name, want string) {
	have := cookieValue(r, name)
	switch {
	case want == have:
	case want == "":
		c.clear(w, name)
	default:
		c.set(w, name, want)
	}
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
