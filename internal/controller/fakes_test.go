package controller

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/model"
	"github.com/sakif/fitness-hub/internal/notify"
)

// =========================================================================
// FAKE IDENTITY SERVICE
// =========================================================================

type fakeIdentity struct {
	mu sync.Mutex

	signUpPrincipal *model.Principal
	signUpErr       error
	signInResult    *model.SignInResult
	signInErr       error
	signOutErr      error
	current         *model.Principal
	currentErr      error

	signUpCalls  int
	signInCalls  int
	signOutCalls int
	lastAttrs    map[string]any

	subscribers  map[int]func(model.IdentityEvent)
	nextSub      int
	unsubscribed int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{subscribers: make(map[int]func(model.IdentityEvent))}
}

func (f *fakeIdentity) SignUp(_ context.Context, email, password string, attrs map[string]any) (*model.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUpCalls++
	f.lastAttrs = attrs
	return f.signUpPrincipal, f.signUpErr
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (*model.SignInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls++
	return f.signInResult, f.signInErr
}

func (f *fakeIdentity) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	return f.signOutErr
}

func (f *fakeIdentity) CurrentPrincipal(context.Context) (*model.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.currentErr
}

type fakeSub struct {
	f  *fakeIdentity
	id int
}

func (s fakeSub) Unsubscribe() {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	delete(s.f.subscribers, s.id)
	s.f.unsubscribed++
}

func (f *fakeIdentity) Subscribe(fn func(model.IdentityEvent)) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSub++
	f.subscribers[f.nextSub] = fn
	return fakeSub{f: f, id: f.nextSub}
}

// emit delivers ev to every subscriber, like the real services do on a transition.
func (f *fakeIdentity) emit(ev model.IdentityEvent) {
	f.mu.Lock()
	subs := make([]func(model.IdentityEvent), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// =========================================================================
// FAKE RECORD STORE
// =========================================================================

type fakeRecords struct {
	mu sync.Mutex

	profiles  map[string]model.Profile
	contacts  []model.ContactSubmission
	createErr error
	getErr    error
	updateErr error
	submitErr error

	createCalls int
	updateCalls int

	// getHook runs inside GetProfile before it returns, to interleave events.
	getHook func()
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{profiles: make(map[string]model.Profile)}
}

func (f *fakeRecords) CreateProfile(_ context.Context, p model.Profile) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.profiles[p.ID] = p
	return &p, nil
}

func (f *fakeRecords) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	if f.getHook != nil {
		f.getHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	return &p, nil
}

func (f *fakeRecords) UpdateProfile(_ context.Context, id string, u model.ProfileUpdate) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.Age != nil {
		p.Age = *u.Age
	}
	f.profiles[id] = p
	return &p, nil
}

func (f *fakeRecords) SubmitContact(_ context.Context, c model.ContactSubmission) (*model.ContactSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.contacts = append(f.contacts, c)
	return &c, nil
}

// =========================================================================
// FAKE VIEW
// =========================================================================

type fakeView struct {
	mu sync.Mutex

	modalOpen      bool
	tab            Tab
	page           Page
	loggedIn       bool
	rendered       model.Session
	fieldErrors    map[string]string
	formErrors     map[Form]string
	contactSuccess bool
	contactResets  int
	notifications  []notify.Notification
	everShown      []notify.Notification
}

func newFakeView() *fakeView {
	return &fakeView{
		page:        PageHomepage,
		fieldErrors: make(map[string]string),
		formErrors:  make(map[Form]string),
	}
}

func (v *fakeView) ShowModal(tab Tab) { v.mu.Lock(); v.modalOpen, v.tab = true, tab; v.mu.Unlock() }
func (v *fakeView) HideModal()        { v.mu.Lock(); v.modalOpen = false; v.mu.Unlock() }
func (v *fakeView) ShowPage(p Page)   { v.mu.Lock(); v.page = p; v.mu.Unlock() }

func (v *fakeView) ShowFieldError(field, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fieldErrors[field] = msg
}

func (v *fakeView) ShowFormError(form Form, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.formErrors[form] = msg
}

func (v *fakeView) ClearErrors() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fieldErrors = make(map[string]string)
	v.formErrors = make(map[Form]string)
}

func (v *fakeView) RenderLoggedIn(s model.Session) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loggedIn, v.rendered = true, s
}

func (v *fakeView) RenderLoggedOut() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loggedIn, v.rendered = false, model.Session{}
}

func (v *fakeView) SetContactSuccess(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.contactSuccess = visible
}

func (v *fakeView) ResetContactForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.contactResets++
}

func (v *fakeView) AddNotification(n notify.Notification) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notifications = append(v.notifications, n)
	v.everShown = append(v.everShown, n)
}

func (v *fakeView) RemoveNotification(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, n := range v.notifications {
		if n.ID == id {
			v.notifications = append(v.notifications[:i], v.notifications[i+1:]...)
			return
		}
	}
}

// shownWith returns every notification ever shown with severity sev.
func (v *fakeView) shownWith(sev notify.Severity) []notify.Notification {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []notify.Notification
	for _, n := range v.everShown {
		if n.Severity == sev {
			out = append(out, n)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
