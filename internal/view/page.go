// Package view holds what one visitor currently sees. Page implements the
// controller's View port by recording every rendering decision, and hands
// out Snapshots for the HTML templates and the JSON state endpoint.
package view

import (
	"strings"
	"sync"

	"github.com/sakif/fitness-hub/internal/controller"
	"github.com/sakif/fitness-hub/internal/model"
	"github.com/sakif/fitness-hub/internal/notify"
)

var _ controller.View = (*Page)(nil)

// Page is safe for concurrent use: the controller writes to it from request
// goroutines and timer callbacks while handlers read snapshots.
type Page struct {
	mu sync.Mutex

	modalOpen      bool
	tab            controller.Tab
	page           controller.Page
	session        *model.Session
	fieldErrors    map[string]string
	formErrors     map[string]string
	contactSuccess bool
	notifications  []notify.Notification
	values         map[string]string
}

func New() *Page {
	return &Page{
		tab:         controller.TabLogin,
		page:        controller.PageHomepage,
		fieldErrors: make(map[string]string),
		formErrors:  make(map[string]string),
		values:      make(map[string]string),
	}
}

// Snapshot is everything a template needs to draw the page.
type Snapshot struct {
	ModalOpen      bool                  `json:"modalOpen"`
	Tab            controller.Tab        `json:"tab"`
	Page           controller.Page       `json:"page"`
	LoggedIn       bool                  `json:"loggedIn"`
	Session        *model.Session        `json:"session,omitempty"`
	FieldErrors    map[string]string     `json:"fieldErrors"`
	FormErrors     map[string]string     `json:"formErrors"`
	ContactSuccess bool                  `json:"contactSuccess"`
	Notifications  []notify.Notification `json:"notifications"`
	Values         map[string]string     `json:"-"`
}

// Snapshot returns a deep copy of the current state.
func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		ModalOpen:      p.modalOpen,
		Tab:            p.tab,
		Page:           p.page,
		LoggedIn:       p.session != nil,
		FieldErrors:    copyMap(p.fieldErrors),
		FormErrors:     copyMap(p.formErrors),
		ContactSuccess: p.contactSuccess,
		Notifications:  append([]notify.Notification{}, p.notifications...),
		Values:         copyMap(p.values),
	}
	if p.session != nil {
		sess := *p.session
		s.Session = &sess
	}
	return s
}

// Remember keeps submitted form values so the re-rendered form shows what
// the visitor typed. Password fields are never kept.
func (p *Page) Remember(values map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range values {
		if strings.Contains(k, "password") {
			continue
		}
		p.values[k] = v
	}
}

func (p *Page) forgetLocked(prefixes ...string) {
	for k := range p.values {
		for _, prefix := range prefixes {
			if strings.HasPrefix(k, prefix) {
				delete(p.values, k)
			}
		}
	}
}

func (p *Page) ShowModal(tab controller.Tab) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modalOpen = true
	p.tab = tab
}

func (p *Page) HideModal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modalOpen = false
}

func (p *Page) ShowPage(page controller.Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page = page
}

func (p *Page) ShowFieldError(field, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fieldErrors[field] = message
}

func (p *Page) ShowFormError(form controller.Form, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.formErrors[string(form)] = message
}

func (p *Page) ClearErrors() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.fieldErrors)
	clear(p.formErrors)
}

// RenderLoggedIn shows the logged-in affordances. The auth forms are done
// with, so their remembered values go.
func (p *Page) RenderLoggedIn(s model.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = &s
	p.forgetLocked("login-", "signup-")
}

func (p *Page) RenderLoggedOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = nil
	p.forgetLocked("profile-")
}

func (p *Page) SetContactSuccess(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.contactSuccess = visible
}

func (p *Page) ResetContactForm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forgetLocked("contact-")
}

func (p *Page) AddNotification(n notify.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
}

// RemoveNotification ignores IDs it does not know.
func (p *Page) RemoveNotification(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, n := range p.notifications {
		if n.ID == id {
			p.notifications = append(p.notifications[:i], p.notifications[i+1:]...)
			return
		}
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
