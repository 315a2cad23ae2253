// Package controller is the session/UI controller: the single authority over
// "am I logged in, and as whom", and over which page, modal and tab a visitor
// sees.
//
// STATE MACHINE:
//
//	modal:  Closed ──open──▶ Open(Login) ◀─tab─▶ Open(Signup)
//	        ▲                    │ close / Escape / backdrop / auth success
//	        └────────────────────┘
//	page:   Homepage ──dashboard link (session only)──▶ Dashboard
//	        ◀──────────── home link / logout / sign-out ─┘
//
// The session is a private field mutated only by the methods below. Remote
// calls are made without holding the lock, so a slow backend never blocks
// other input from the same visitor.
//
// STALE RESULTS:
// Background flows (ResumeSession and SignedIn events) remember the session
// generation they started from and drop their result if anything else changed
// the session meanwhile. Flows the user started (login, signup, logout,
// profile edits) always apply and bump the generation.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/clock"
	"github.com/sakif/fitness-hub/internal/model"
	"github.com/sakif/fitness-hub/internal/notify"
	"github.com/sakif/fitness-hub/internal/validate"
)

// ContactBannerDuration is how long the "message sent" banner stays visible.
const ContactBannerDuration = 3 * time.Second

// User-facing messages.
const (
	MsgFillAllFields  = "Please fill in all fields"
	MsgCorrectErrors  = "Please correct the errors above"
	MsgLoginFailed    = "Login failed. Please try again."
	MsgLoginNoData    = "Login failed - no user data received"
	MsgSignupFailed   = "Signup failed. Please try again."
	MsgSignupNoData   = "Signup failed - no user data received"
	MsgWelcome        = "Login successful! Welcome to Fitness Hub."
	MsgLoggedOut      = "You have been logged out successfully."
	MsgLogoutFailed   = "Error logging out. Please try again."
	MsgContactFailed  = "Failed to send message. Please try again."
	MsgProfileUpdated = "Profile updated."
	MsgProfileFailed  = "Could not update your profile. Please try again."
	MsgLoginRequired  = "Please log in to continue."
)

// eventBuffer bounds how many identity events may wait for Run.
const eventBuffer = 16

type Controller struct {
	identity  IdentityService
	records   RecordStore
	view      View
	presenter *notify.Presenter
	clock     clock.Clock
	logger    *slog.Logger

	mu          sync.Mutex
	session     *model.Session
	modalOpen   bool
	tab         Tab
	page        Page
	generation  uint64
	bannerTimer clock.Timer

	// events is only received from while holding drainMu, so Run and settle
	// never reorder it.
	events    chan model.IdentityEvent
	ready     chan struct{}
	drainMu   sync.Mutex
	sub       Subscription
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Controller)

// WithClock replaces the real clock used for the contact banner and for
// notification expiry.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// New creates a controller in its initial state (homepage, modal closed, no
// session) and subscribes to identity events. Call Run to start applying
// them and Close to release the subscription.
func New(identity IdentityService, records RecordStore, view View, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		identity: identity,
		records:  records,
		view:     view,
		clock:    clock.Real{},
		logger:   logger,
		tab:      TabLogin,
		page:     PageHomepage,
		events:   make(chan model.IdentityEvent, eventBuffer),
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.presenter = notify.NewPresenter(c.clock)
	c.sub = identity.Subscribe(c.enqueue)
	return c
}

// =========================================================================
// IDENTITY EVENTS
// =========================================================================

// enqueue is the subscription callback. It only hands the event to Run.
func (c *Controller) enqueue(ev model.IdentityEvent) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.events <- ev:
	case <-c.done:
		return
	}
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Run applies identity events one at a time, in delivery order, until ctx is
// cancelled or Close is called.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-c.ready:
			c.drain(ctx)
		}
	}
}

// drain applies every queued event. Holding drainMu across receive and apply
// keeps a concurrent settle from overtaking an event Run already took.
func (c *Controller) drain(ctx context.Context) {
	c.drainMu.Lock()
	defer c.drainMu.Unlock()
	for {
		select {
		case ev := <-c.events:
			c.apply(ctx, ev)
		default:
			return
		}
	}
}

func (c *Controller) apply(ctx context.Context, ev model.IdentityEvent) {
	if err := c.HandleIdentityEvent(ctx, ev); err != nil {
		c.logger.Debug("identity event not applied",
			slog.String("event", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

// settle applies the identity events already waiting for Run, after any
// event Run is applying right now. Login, signup and logout call it first so
// an older queued transition cannot land on top of the session they install.
func (c *Controller) settle(ctx context.Context) {
	c.drain(ctx)
}

// Close unsubscribes from identity events and stops Run. Pending timers are
// stopped. Close is idempotent.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.sub.Unsubscribe()
		close(c.done)

		c.mu.Lock()
		if c.bannerTimer != nil {
			c.bannerTimer.Stop()
		}
		c.mu.Unlock()
	})
}

// HandleIdentityEvent applies one identity transition. SignedIn behaves like
// ResumeSession for the event's principal; SignedOut clears the session.
func (c *Controller) HandleIdentityEvent(ctx context.Context, ev model.IdentityEvent) error {
	switch ev.Kind {
	case model.SignedIn:
		if ev.Principal == nil {
			return nil
		}
		c.mu.Lock()
		gen := c.generation
		same := c.session != nil && c.session.UserID == ev.Principal.ID
		c.mu.Unlock()
		if same {
			return nil
		}
		return c.adopt(ctx, gen, *ev.Principal)

	case model.SignedOut:
		c.mu.Lock()
		defer c.mu.Unlock()
		c.clearSessionLocked()
		return nil

	default:
		return nil
	}
}

// =========================================================================
// SESSION RESUME
// =========================================================================

// ResumeSession restores the session for whoever the identity service
// currently considers signed in. It is best-effort: failures are logged and
// leave the visitor logged out without any visible error.
func (c *Controller) ResumeSession(ctx context.Context) error {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	p, err := c.identity.CurrentPrincipal(ctx)
	if err != nil {
		c.logger.Error("checking auth state", slog.String("error", err.Error()))
		return apperror.Identity(err, "could not resume session")
	}
	if p == nil {
		return nil
	}
	return c.adopt(ctx, gen, *p)
}

// adopt builds a session for p and installs it, unless the session changed
// since generation gen was read.
func (c *Controller) adopt(ctx context.Context, gen uint64, p model.Principal) error {
	s := c.sessionFor(ctx, p)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		c.logger.Debug("discarding stale session result", slog.String("userID", p.ID))
		return nil
	}
	c.setSessionLocked(s)
	return nil
}

// sessionFor merges the principal with its profile record. A missing or
// unreadable profile yields placeholder fields.
func (c *Controller) sessionFor(ctx context.Context, p model.Principal) model.Session {
	prof, err := c.records.GetProfile(ctx, p.ID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			c.logger.Warn("loading profile",
				slog.String("userID", p.ID),
				slog.String("error", err.Error()),
			)
		}
		return model.SessionFromPrincipal(p)
	}
	if prof == nil {
		return model.SessionFromPrincipal(p)
	}
	return model.SessionFromProfile(p, *prof)
}

// =========================================================================
// LOGIN / SIGNUP / LOGOUT
// =========================================================================

// SubmitLogin signs in with email and password. Invalid input never reaches
// the network.
func (c *Controller) SubmitLogin(ctx context.Context, email, password string) error {
	c.view.ClearErrors()

	if email == "" || password == "" {
		c.view.ShowFormError(FormLogin, MsgFillAllFields)
		return apperror.ValidationFailed("", MsgFillAllFields)
	}
	c.settle(ctx)
	failures := validate.ValidateAll(validate.LoginFields, map[string]string{
		validate.LoginEmail:    email,
		validate.LoginPassword: password,
	})
	if len(failures) > 0 {
		return c.rejectForm(FormLogin, failures)
	}

	res, err := c.identity.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		appErr := apperror.Identity(err, MsgLoginFailed)
		c.logger.Error("login error", slog.String("error", err.Error()))
		c.view.ShowFormError(FormLogin, appErr.Message)
		return appErr
	}
	if res == nil || (res.Principal == nil && res.AccessToken == "") {
		appErr := apperror.Identity(nil, MsgLoginNoData)
		c.logger.Error("login error: sign-in returned neither user nor session")
		c.view.ShowFormError(FormLogin, appErr.Message)
		return appErr
	}

	p := res.Principal
	if p == nil {
		// Token without a user: ask the identity service who it belongs to.
		p, err = c.identity.CurrentPrincipal(ctx)
		if err != nil || p == nil {
			appErr := apperror.Identity(err, MsgLoginNoData)
			c.logger.Error("login error: no user for the issued session", slog.Any("error", err))
			c.view.ShowFormError(FormLogin, appErr.Message)
			return appErr
		}
	}
	s := c.sessionFor(ctx, *p)

	c.mu.Lock()
	c.setSessionLocked(s)
	c.closeModalLocked()
	c.mu.Unlock()

	c.presenter.Show(c.view, MsgWelcome, notify.Success)
	c.logger.Info("user logged in", slog.String("userID", p.ID))
	return nil
}

// SubmitSignup creates an account and its profile record. The profile write
// is advisory: if it fails the signup still succeeds and the failure is only
// logged.
func (c *Controller) SubmitSignup(ctx context.Context, f SignupForm) error {
	c.view.ClearErrors()

	c.settle(ctx)
	failures := validate.ValidateAll(validate.SignupFields, map[string]string{
		validate.SignupName:     f.FullName,
		validate.SignupEmail:    f.Email,
		validate.SignupPhone:    f.Phone,
		validate.SignupAge:      f.Age,
		validate.SignupPassword: f.Password,
	})
	if len(failures) > 0 {
		return c.rejectForm(FormSignup, failures)
	}

	name := strings.TrimSpace(f.FullName)
	email := strings.TrimSpace(f.Email)
	phone := strings.TrimSpace(f.Phone)
	age, _ := validate.ParseAge(f.Age)

	p, err := c.identity.SignUp(ctx, email, f.Password, map[string]any{"full_name": name})
	if err != nil {
		appErr := apperror.Identity(err, MsgSignupFailed)
		c.logger.Error("signup error", slog.String("error", err.Error()))
		c.view.ShowFormError(FormSignup, appErr.Message)
		return appErr
	}
	if p == nil {
		appErr := apperror.Identity(nil, MsgSignupNoData)
		c.logger.Error("signup error: sign-up returned no user")
		c.view.ShowFormError(FormSignup, appErr.Message)
		return appErr
	}

	profile := model.Profile{ID: p.ID, FullName: name, Email: email, Phone: phone, Age: age}
	if _, err := c.records.CreateProfile(ctx, profile); err != nil {
		c.logger.Error("profile creation error",
			slog.String("userID", p.ID),
			slog.String("error", err.Error()),
		)
	}

	c.mu.Lock()
	c.setSessionLocked(model.Session{
		UserID:      p.ID,
		Email:       email,
		DisplayName: name,
		Phone:       phone,
		Age:         strings.TrimSpace(f.Age),
	})
	c.closeModalLocked()
	c.mu.Unlock()

	c.presenter.Show(c.view, MsgWelcome, notify.Success)
	c.logger.Info("user signed up", slog.String("userID", p.ID))
	return nil
}

// Logout signs out. On failure the session is left exactly as it was and
// the user may simply try again.
func (c *Controller) Logout(ctx context.Context) error {
	c.settle(ctx)

	if err := c.identity.SignOut(ctx); err != nil {
		c.logger.Error("logout error", slog.String("error", err.Error()))
		c.presenter.Show(c.view, MsgLogoutFailed, notify.Error)
		return apperror.Identity(err, MsgLogoutFailed)
	}

	c.mu.Lock()
	c.clearSessionLocked()
	c.mu.Unlock()

	c.presenter.Show(c.view, MsgLoggedOut, notify.Info)
	return nil
}

// =========================================================================
// CONTACT FORM / PROFILE
// =========================================================================

// SubmitContact stores a contact message. All three fields must be present;
// there is no format check.
func (c *Controller) SubmitContact(ctx context.Context, f ContactForm) error {
	c.view.ClearErrors()

	name := strings.TrimSpace(f.Name)
	email := strings.TrimSpace(f.Email)
	message := strings.TrimSpace(f.Message)
	if name == "" || email == "" || message == "" {
		c.view.ShowFormError(FormContact, MsgFillAllFields)
		return apperror.ValidationFailed("", MsgFillAllFields)
	}

	_, err := c.records.SubmitContact(ctx, model.ContactSubmission{Name: name, Email: email, Message: message})
	if err != nil {
		appErr := apperror.RecordStore(err, MsgContactFailed)
		c.logger.Error("contact form submission failed", slog.String("error", err.Error()))
		c.presenter.Show(c.view, appErr.Message, notify.Error)
		return appErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bannerTimer != nil {
		c.bannerTimer.Stop()
	}
	c.view.SetContactSuccess(true)
	c.view.ResetContactForm()
	c.bannerTimer = c.clock.AfterFunc(ContactBannerDuration, c.hideContactBanner)
	return nil
}

func (c *Controller) hideContactBanner() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bannerTimer = nil
	c.view.SetContactSuccess(false)
}

// UpdateProfile edits the signed-in user's profile from the dashboard. When
// no profile row exists yet (its creation at signup is advisory) one is
// created instead.
func (c *Controller) UpdateProfile(ctx context.Context, f ProfileForm) error {
	c.view.ClearErrors()

	c.mu.Lock()
	var current model.Session
	if c.session != nil {
		current = *c.session
	}
	c.mu.Unlock()
	if current.UserID == "" {
		c.presenter.Show(c.view, MsgLoginRequired, notify.Error)
		return apperror.Unauthenticated(MsgLoginRequired)
	}

	failures := validate.ValidateAll(validate.ProfileFields, map[string]string{
		validate.ProfileName:  f.FullName,
		validate.ProfilePhone: f.Phone,
		validate.ProfileAge:   f.Age,
	})
	if len(failures) > 0 {
		return c.rejectForm(FormProfile, failures)
	}

	name := strings.TrimSpace(f.FullName)
	phone := strings.TrimSpace(f.Phone)
	age, _ := validate.ParseAge(f.Age)
	update := model.ProfileUpdate{FullName: &name, Phone: &phone, Age: &age}

	_, err := c.records.UpdateProfile(ctx, current.UserID, update)
	if errors.Is(err, apperror.ErrNotFound) {
		_, err = c.records.CreateProfile(ctx, model.Profile{
			ID:       current.UserID,
			FullName: name,
			Email:    current.Email,
			Phone:    phone,
			Age:      age,
		})
	}
	if err != nil {
		appErr := apperror.RecordStore(err, MsgProfileFailed)
		c.logger.Error("profile update failed",
			slog.String("userID", current.UserID),
			slog.String("error", err.Error()),
		)
		c.presenter.Show(c.view, appErr.Message, notify.Error)
		return appErr
	}

	c.mu.Lock()
	if c.session != nil && c.session.UserID == current.UserID {
		c.setSessionLocked(c.session.Apply(update))
	}
	c.mu.Unlock()

	c.presenter.Show(c.view, MsgProfileUpdated, notify.Success)
	return nil
}

// =========================================================================
// MODAL / NAVIGATION
// =========================================================================

// OpenModal shows the auth modal on the login tab.
func (c *Controller) OpenModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modalOpen = true
	c.tab = TabLogin
	c.view.ClearErrors()
	c.view.ShowModal(TabLogin)
}

// SwitchTab selects tab and clears any form or field errors.
func (c *Controller) SwitchTab(tab Tab) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tab = tab
	if c.modalOpen {
		c.view.ShowModal(tab)
	}
	c.view.ClearErrors()
}

// CloseModal handles the close button, a backdrop click and Escape alike.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeModalLocked()
}

// ShowDashboard switches to the dashboard. It reports false, and changes
// nothing, when nobody is logged in.
func (c *Controller) ShowDashboard() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return false
	}
	c.page = PageDashboard
	c.view.ShowPage(PageDashboard)
	return true
}

func (c *Controller) ShowHomepage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = PageHomepage
	c.view.ShowPage(PageHomepage)
}

// Dismiss closes a notification before it expires.
func (c *Controller) Dismiss(id string) {
	c.presenter.Dismiss(c.view, id)
}

// State returns a copy of the current state.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{ModalOpen: c.modalOpen, Tab: c.tab, Page: c.page}
	if c.session != nil {
		s := *c.session
		snap.Session = &s
	}
	return snap
}

// =========================================================================
// HELPERS (callers hold c.mu where the name says Locked)
// =========================================================================

func (c *Controller) setSessionLocked(s model.Session) {
	c.generation++
	c.session = &s
	c.view.RenderLoggedIn(s)
}

func (c *Controller) clearSessionLocked() {
	c.generation++
	c.session = nil
	c.view.RenderLoggedOut()
	c.page = PageHomepage
	c.view.ShowPage(PageHomepage)
}

func (c *Controller) closeModalLocked() {
	c.modalOpen = false
	c.view.HideModal()
	c.view.ClearErrors()
}

// rejectForm marks each failing field and shows the form-level summary.
func (c *Controller) rejectForm(form Form, failures []validate.Failure) error {
	for _, f := range failures {
		c.view.ShowFieldError(f.Field, f.Message)
	}
	c.view.ShowFormError(form, MsgCorrectErrors)
	return apperror.ValidationFailed(failures[0].Field, MsgCorrectErrors)
}
