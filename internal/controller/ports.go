package controller

import (
	"context"

	"github.com/sakif/fitness-hub/internal/model"
	"github.com/sakif/fitness-hub/internal/notify"
)

// Subscription is a live identity-event subscription.
type Subscription interface {
	Unsubscribe()
}

// IdentityService is the remote identity provider.
//
// Implementations return (nil, nil) when there is simply nothing to return,
// e.g. CurrentPrincipal with no active session.
type IdentityService interface {
	SignUp(ctx context.Context, email, password string, attrs map[string]any) (*model.Principal, error)
	SignIn(ctx context.Context, email, password string) (*model.SignInResult, error)
	SignOut(ctx context.Context) error
	CurrentPrincipal(ctx context.Context) (*model.Principal, error)
	// Subscribe registers fn for session transitions. fn may be called from
	// any goroutine, but calls are made in the order transitions happened.
	Subscribe(fn func(model.IdentityEvent)) Subscription
}

// RecordStore is the remote table storage for profiles and contact messages.
type RecordStore interface {
	CreateProfile(ctx context.Context, p model.Profile) (*model.Profile, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, id string, u model.ProfileUpdate) (*model.Profile, error)
	SubmitContact(ctx context.Context, c model.ContactSubmission) (*model.ContactSubmission, error)
}

// View is the presentation port. The controller decides, the view renders.
// Implementations must not call back into the controller.
type View interface {
	notify.Surface

	ShowModal(tab Tab)
	HideModal()
	ShowPage(page Page)

	ShowFieldError(field, message string)
	ShowFormError(form Form, message string)
	ClearErrors()

	RenderLoggedIn(s model.Session)
	RenderLoggedOut()

	SetContactSuccess(visible bool)
	ResetContactForm()
}
