package model

import "time"

// ContactSubmission is a message sent through the homepage contact form.
// It is write-only: the site never reads submissions back.
type ContactSubmission struct {
	ID        string    `json:"id,omitempty"         db:"id"`
	Name      string    `json:"name"                 db:"name"`
	Email     string    `json:"email"                db:"email"`
	Message   string    `json:"message"              db:"message"`
	CreatedAt time.Time `json:"created_at,omitzero"  db:"created_at"`
}
