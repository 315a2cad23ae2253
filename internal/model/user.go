// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data: plain values with no behaviour
// beyond a few helpers that derive one shape from another.
package model

import (
	"strconv"
	"strings"
	"time"
)

// NotProvided is shown on the dashboard for profile fields the user never filled in.
const NotProvided = "Not provided"

// Principal is the authenticated identity returned by the identity service.
//
// Metadata carries the attributes passed at sign-up (e.g. "full_name").
// Supabase calls this "user_metadata"; the local backend stores the same keys.
type Principal struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Profile is the durable per-user record kept in the "profiles" table.
//
// COLUMN NAMES:
// The hosted schema was created with a column literally named "mobile _number"
// (with a space). The JSON tag matches it so PostgREST accepts the payload.
type Profile struct {
	ID        string    `json:"id"              db:"id"`
	FullName  string    `json:"full_name"       db:"full_name"`
	Email     string    `json:"email"           db:"email"`
	Phone     string    `json:"mobile _number"  db:"phone"`
	Age       int       `json:"age,omitempty"   db:"age"`
	CreatedAt time.Time `json:"created_at,omitzero" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitzero" db:"updated_at"`
}

// ProfileUpdate is a partial profile. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"mobile _number,omitempty"`
	Age      *int    `json:"age,omitempty"`
}

// Session is the local answer to "who is logged in".
//
// It is derived from a Principal plus (optionally) its Profile and is owned
// exclusively by the session controller. All fields are display strings:
// missing values are NotProvided rather than empty.
type Session struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
	Age         string `json:"age"`
}

// Initial returns the upper-cased first letter of the display name, used as
// the dashboard avatar.
func (s Session) Initial() string {
	for _, r := range s.DisplayName {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// SessionFromPrincipal builds a Session for a principal without a profile
// record. The display name falls back to the local part of the email.
func SessionFromPrincipal(p Principal) Session {
	name, _, _ := strings.Cut(p.Email, "@")
	return Session{
		UserID:      p.ID,
		Email:       p.Email,
		DisplayName: name,
		Phone:       NotProvided,
		Age:         NotProvided,
	}
}

// SessionFromProfile merges a principal with its profile record.
func SessionFromProfile(p Principal, prof Profile) Session {
	s := SessionFromPrincipal(p)
	s.DisplayName = prof.FullName
	if prof.Phone != "" {
		s.Phone = prof.Phone
	}
	if prof.Age > 0 {
		s.Age = strconv.Itoa(prof.Age)
	}
	return s
}

// Apply merges a successful profile update into the session.
func (s Session) Apply(u ProfileUpdate) Session {
	if u.FullName != nil {
		s.DisplayName = *u.FullName
	}
	if u.Phone != nil {
		s.Phone = *u.Phone
	}
	if u.Age != nil {
		s.Age = strconv.Itoa(*u.Age)
	}
	return s
}

// User is a locally stored account. Only the local backend has these; with
// the hosted backend the identity service owns credentials.
type User struct {
	ID           string         `json:"id"         db:"id"`
	Email        string         `json:"email"      db:"email"`
	PasswordHash string         `json:"-"          db:"password_hash"`
	Metadata     map[string]any `json:"user_metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// Principal returns the identity view of u, without the password hash.
func (u User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Metadata: u.Metadata}
}
