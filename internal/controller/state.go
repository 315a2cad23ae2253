package controller

import "github.com/sakif/fitness-hub/internal/model"

type Tab string

const (
	TabLogin  Tab = "login"
	TabSignup Tab = "signup"
)

// ParseTab returns the tab named s, or false for anything else.
func ParseTab(s string) (Tab, bool) {
	switch Tab(s) {
	case TabLogin, TabSignup:
		return Tab(s), true
	}
	return "", false
}

type Page string

const (
	PageHomepage  Page = "homepage"
	PageDashboard Page = "dashboard"
)

// Form identifies which form an inline error belongs to.
type Form string

const (
	FormLogin   Form = "login"
	FormSignup  Form = "signup"
	FormContact Form = "contact"
	FormProfile Form = "profile"
)

// Snapshot is a copy of the controller state at one instant.
type Snapshot struct {
	ModalOpen bool           `json:"modalOpen"`
	Tab       Tab            `json:"tab"`
	Page      Page           `json:"page"`
	Session   *model.Session `json:"session,omitempty"`
}

// SignupForm holds the raw values of the signup form.
type SignupForm struct {
	FullName string
	Email    string
	Phone    string
	Age      string
	Password string
}

// ContactForm holds the raw values of the contact form.
type ContactForm struct {
	Name    string
	Email   string
	Message string
}

// ProfileForm holds the raw values of the dashboard profile form.
type ProfileForm struct {
	FullName string
	Phone    string
	Age      string
}
