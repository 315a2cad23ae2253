// Package handler contains the HTTP handlers for the Fitness Hub site.
//
// HOW A REQUEST FLOWS:
//  1. The visitor_id cookie picks the visitor's controller from the registry
//     (a new one is made on first contact).
//  2. A form POST calls one controller operation. The controller decides what
//     the visitor sees and writes it to the visitor's view.Page.
//  3. The handler rewrites the token cookies and redirects to GET /
//     (post/redirect/get), which renders the page from a view snapshot.
//
// Handlers hold no state of their own: everything a visitor sees lives in
// their controller and page.
package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/fitness-hub/internal/apperror"
	"github.com/sakif/fitness-hub/internal/controller"
	"github.com/sakif/fitness-hub/internal/metrics"
	"github.com/sakif/fitness-hub/internal/model"
	"github.com/sakif/fitness-hub/internal/validate"
	"github.com/sakif/fitness-hub/internal/view"
	"github.com/sakif/fitness-hub/internal/visitor"
)

const siteTitle = "Fitness Hub"

// SiteHandler serves the page and every form that changes it.
type SiteHandler struct {
	visitors  *visitor.Registry
	templates *template.Template
	cookies   Cookies
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewSiteHandler parses base.html and index.html from templateDir once, at
// startup. base.html defines the layout and pulls in the "content" block
// that index.html defines.
func NewSiteHandler(
	visitors *visitor.Registry,
	templateDir string,
	cookies Cookies,
	rec metrics.Recorder,
	logger *slog.Logger,
) (*SiteHandler, error) {
	tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFiles(
		filepath.Join(templateDir, "base.html"),
		filepath.Join(templateDir, "index.html"),
	)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = metrics.Nop{}
	}

	return &SiteHandler{
		visitors:  visitors,
		templates: tmpl,
		cookies:   cookies,
		metrics:   rec,
		logger:    logger,
	}, nil
}

var templateFuncs = template.FuncMap{
	// editable hides the "Not provided" placeholder from form inputs.
	"editable": func(v string) string {
		if v == model.NotProvided {
			return ""
		}
		return v
	},
}

// pageData is what the templates receive. The snapshot's fields are promoted,
// so templates write {{.LoggedIn}} or {{index .FieldErrors "login-email"}}.
type pageData struct {
	Title string
	view.Snapshot
}

// visitorFor returns the caller's visitor, issuing a visitor_id cookie when
// the browser had none (or an unusable one).
func (h *SiteHandler) visitorFor(w http.ResponseWriter, r *http.Request) *visitor.Visitor {
	id := cookieValue(r, VisitorCookie)
	v, created := h.visitors.Get(r.Context(), id,
		cookieValue(r, AccessCookie),
		cookieValue(r, RefreshCookie),
	)
	if v.ID != id {
		h.cookies.set(w, VisitorCookie, v.ID)
	}
	if created {
		h.logger.Debug("new visitor", slog.String("visitor", v.ID))
	}
	return v
}

// finish ends every state-changing request. Browsers are redirected; a
// script that asked for JSON gets the new snapshot, or the error.
func (h *SiteHandler) finish(w http.ResponseWriter, r *http.Request, v *visitor.Visitor, err error, location string) {
	h.cookies.syncTokens(w, r, v.Client)
	if wantsJSON(r) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v.Page.Snapshot())
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// formValues reads the posted fields named in ids. The page remembers them
// so a rejected form comes back filled in.
func formValues(r *http.Request, ids ...string) map[string]string {
	values := make(map[string]string, len(ids))
	for _, id := range ids {
		values[id] = r.PostFormValue(id)
	}
	return values
}

// =========================================================================
// PAGES
// =========================================================================

// HandleIndex renders the homepage or the dashboard, whichever the visitor's
// controller says is showing.
//
// HTTP: GET /
func (h *SiteHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	h.cookies.syncTokens(w, r, v.Client)

	data := pageData{Title: siteTitle, Snapshot: v.Page.Snapshot()}
	if data.Page == controller.PageDashboard && data.LoggedIn {
		data.Title = "Dashboard | " + siteTitle
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleState returns the visitor's snapshot as JSON.
//
// HTTP: GET /api/state
func (h *SiteHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	h.cookies.syncTokens(w, r, v.Client)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, v.Page.Snapshot())
}

// HandleDashboard shows the dashboard. Logged-out visitors stay where they are.
//
// HTTP: GET /dashboard
func (h *SiteHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	if !v.Controller.ShowDashboard() {
		h.finish(w, r, v, apperror.Unauthenticated(controller.MsgLoginRequired), "/")
		return
	}
	h.finish(w, r, v, nil, "/")
}

// HTTP: GET /home
func (h *SiteHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	v.Controller.ShowHomepage()
	h.finish(w, r, v, nil, "/")
}

// =========================================================================
// AUTH MODAL
// =========================================================================

// HTTP: POST /auth/open
func (h *SiteHandler) HandleOpenModal(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	v.Controller.OpenModal()
	h.finish(w, r, v, nil, "/")
}

// HTTP: POST /auth/close
func (h *SiteHandler) HandleCloseModal(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	v.Controller.CloseModal()
	h.finish(w, r, v, nil, "/")
}

// HandleSwitchTab selects the login or signup tab.
//
// HTTP: POST /auth/tab/{tab}
func (h *SiteHandler) HandleSwitchTab(w http.ResponseWriter, r *http.Request) {
	tab, ok := controller.ParseTab(chi.URLParam(r, "tab"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	v := h.visitorFor(w, r)
	v.Controller.SwitchTab(tab)
	h.finish(w, r, v, nil, "/")
}

// HTTP: POST /auth/login
func (h *SiteHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	values := formValues(r, validate.LoginEmail, validate.LoginPassword)
	v.Page.Remember(values)

	err := v.Controller.SubmitLogin(r.Context(), values[validate.LoginEmail], values[validate.LoginPassword])
	h.metrics.RecordAuth("login", apperror.Kind(err))
	h.finish(w, r, v, err, "/")
}

// HTTP: POST /auth/signup
func (h *SiteHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	values := formValues(r,
		validate.SignupName,
		validate.SignupEmail,
		validate.SignupPhone,
		validate.SignupAge,
		validate.SignupPassword,
	)
	v.Page.Remember(values)

	err := v.Controller.SubmitSignup(r.Context(), controller.SignupForm{
		FullName: values[validate.SignupName],
		Email:    values[validate.SignupEmail],
		Phone:    values[validate.SignupPhone],
		Age:      values[validate.SignupAge],
		Password: values[validate.SignupPassword],
	})
	h.metrics.RecordAuth("signup", apperror.Kind(err))
	h.finish(w, r, v, err, "/")
}

// HTTP: POST /auth/logout
func (h *SiteHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	err := v.Controller.Logout(r.Context())
	h.metrics.RecordAuth("logout", apperror.Kind(err))
	h.finish(w, r, v, err, "/")
}

// =========================================================================
// CONTACT / PROFILE / NOTIFICATIONS
// =========================================================================

// HandleContact stores a contact message. The redirect lands back on the
// contact section so the banner or the error is in view.
//
// HTTP: POST /contact
func (h *SiteHandler) HandleContact(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	values := formValues(r, validate.ContactName, validate.ContactEmail, validate.ContactMessage)
	v.Page.Remember(values)

	err := v.Controller.SubmitContact(r.Context(), controller.ContactForm{
		Name:    values[validate.ContactName],
		Email:   values[validate.ContactEmail],
		Message: values[validate.ContactMessage],
	})
	h.metrics.RecordContact(apperror.Kind(err))
	h.finish(w, r, v, err, "/#contact")
}

// HTTP: POST /profile
func (h *SiteHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	values := formValues(r, validate.ProfileName, validate.ProfilePhone, validate.ProfileAge)
	v.Page.Remember(values)

	err := v.Controller.UpdateProfile(r.Context(), controller.ProfileForm{
		FullName: values[validate.ProfileName],
		Phone:    values[validate.ProfilePhone],
		Age:      values[validate.ProfileAge],
	})
	h.metrics.RecordProfileUpdate(apperror.Kind(err))
	h.finish(w, r, v, err, "/")
}

// HTTP: POST /notifications/{id}/dismiss
func (h *SiteHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	v := h.visitorFor(w, r)
	v.Controller.Dismiss(chi.URLParam(r, "id"))
	h.finish(w, r, v, nil, "/")
}
