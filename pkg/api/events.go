package api

import (
	"net/http"
	"slices"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

type recordEventRequest struct {
	Event      notifications.EventType `json:"event"`
	FromUser   int64                   `json:"from_user"`
	SourceRef  int64                   `json:"source_ref"`
	Location   notifications.Location  `json:"location"`
	Recipients []int64                 `json:"recipients"`
}

type recordEventResponse struct {
	QueuedForEmail int `json:"queued_for_email"`
}

// recordEvent fans an event out to the given audience. The actor is never
// notified of their own action.
func (a *API) recordEvent(w http.ResponseWriter, r *http.Request) {
	var req recordEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	recipients := slices.DeleteFunc(req.Recipients, func(u int64) bool { return u == req.FromUser })
	queued, err := a.manager.RecordEvent(r.Context(), notifications.Event{
		Type:      req.Event,
		FromUser:  req.FromUser,
		SourceRef: req.SourceRef,
		Location:  req.Location,
	}, recipients)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	respond(w, http.StatusAccepted, recordEventResponse{QueuedForEmail: queued})
}

type sourcesRemovedRequest struct {
	Event      notifications.EventType `json:"event"`
	SourceRefs []int64                 `json:"source_refs"`
	UserID     int64                   `json:"user_id,omitempty"` // only this recipient lost access
}

func (a *API) sourcesRemoved(w http.ResponseWriter, r *http.Request) {
	var req sourcesRemovedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	verr := ValidationError{}
	if !req.Event.Valid() {
		verr.Add("event", "unknown event type")
	}
	if len(req.SourceRefs) == 0 {
		verr.Add("source_refs", "at least one source reference is required")
	}
	if req.UserID > 0 && len(req.SourceRefs) != 1 {
		verr.Add("source_refs", "exactly one source reference is required with user_id")
	}
	if err := verr.Err(); err != nil {
		a.respondError(w, r, err)
		return
	}

	if req.UserID > 0 {
		a.manager.MarkRemovedForUser(r.Context(), req.UserID, req.Event, req.SourceRefs[0])
	} else {
		a.manager.MarkRemoved(r.Context(), req.Event, req.SourceRefs...)
	}
	w.WriteHeader(http.StatusNoContent)
}

type folderRemovedRequest struct {
	Event     notifications.EventType `json:"event"`
	Container int64                   `json:"container"`
	Path      string                  `json:"path"`
}

func (a *API) folderRemoved(w http.ResponseWriter, r *http.Request) {
	if a.files == nil {
		a.respondError(w, r, ErrNotImplemented.WithMessage("no file index is configured"))
		return
	}
	var req folderRemovedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	if !req.Event.Valid() {
		a.respondError(w, r, ValidationError{"event": {"unknown event type"}})
		return
	}

	a.manager.MarkRemovedUnderPath(r.Context(), req.Event, req.Container, req.Path)
	w.WriteHeader(http.StatusNoContent)
}

type courseRemovedRequest struct {
	UserID int64                   `json:"user_id,omitempty"` // the user left the course
	Except notifications.EventType `json:"except,omitempty"`
}

func (a *API) courseRemoved(w http.ResponseWriter, r *http.Request) {
	course, err := idParam(r, "courseID")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	var req courseRemovedRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			a.respondError(w, r, err)
			return
		}
	}

	a.manager.MarkRemovedForCourseUser(r.Context(), course, req.UserID, req.Except)
	w.WriteHeader(http.StatusNoContent)
}
