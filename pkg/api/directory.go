package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

type contactRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (a *API) putContact(w http.ResponseWriter, r *http.Request) {
	if a.directory == nil {
		a.respondError(w, r, ErrNotImplemented)
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !email.IsValidAddress(req.Email) {
		a.respondError(w, r, ValidationError{"email": {"must be a valid email address"}})
		return
	}

	rcpt := digest.Recipient{UserID: userID, Email: req.Email, Name: strings.TrimSpace(req.Name)}
	if err := a.directory.SetRecipient(r.Context(), rcpt); err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, rcpt)
}

var scopeKinds = map[string]notifications.ScopeKind{
	"course": notifications.ScopeCourse,
	"forum":  notifications.ScopeForum,
}

type scopeNameRequest struct {
	Name string `json:"name"`
}

func (a *API) putScopeName(w http.ResponseWriter, r *http.Request) {
	if a.directory == nil {
		a.respondError(w, r, ErrNotImplemented)
		return
	}
	kind, ok := scopeKinds[chi.URLParam(r, "kind")]
	if !ok {
		a.respondError(w, r, ValidationError{"kind": {"must be course or forum"}})
		return
	}
	id, err := idParam(r, "scopeID")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	var req scopeNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.respondError(w, r, ValidationError{"name": {"is required"}})
		return
	}

	if err := a.directory.SetScopeName(r.Context(), kind, id, req.Name); err != nil {
		a.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
