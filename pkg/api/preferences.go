package api

import (
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// preferencesBody lists event type names instead of the stored bit masks.
type preferencesBody struct {
	Notify []notifications.EventType `json:"notify"`
	Email  []notifications.EventType `json:"email"`
}

func toPreferencesBody(p notifications.Preferences) preferencesBody {
	body := preferencesBody{Notify: p.Notify.Events(), Email: p.Email.Events()}
	if body.Notify == nil {
		body.Notify = []notifications.EventType{}
	}
	if body.Email == nil {
		body.Email = []notifications.EventType{}
	}
	return body
}

func (a *API) getPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	p, err := a.manager.Preferences(r.Context(), userID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toPreferencesBody(p))
}

// putPreferences replaces the preferences. Unknown event names are rejected
// and email opt-ins without a notification opt-in are dropped.
func (a *API) putPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	var body preferencesBody
	if err := decodeJSON(w, r, &body); err != nil {
		a.respondError(w, r, err)
		return
	}

	verr := ValidationError{}
	for _, e := range body.Notify {
		if !e.Valid() {
			verr.Add("notify", "unknown event type")
		}
	}
	for _, e := range body.Email {
		if !e.Valid() {
			verr.Add("email", "unknown event type")
		}
	}
	if err := verr.Err(); err != nil {
		a.respondError(w, r, err)
		return
	}

	p := notifications.Preferences{
		UserID: userID,
		Notify: notifications.NewEventSet(body.Notify...),
		Email:  notifications.NewEventSet(body.Email...),
	}
	if err := a.manager.SetPreferences(r.Context(), p); err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toPreferencesBody(p.Normalize()))
}
