package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

const maxPageSize = 200

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	verr := ValidationError{}
	opts := notifications.ListOptions{
		IncludeSeen: queryBool(r, "all", verr),
		Since:       queryTime(r, "since", verr),
		Limit:       int(queryInt64(r, "limit", verr)),
		Offset:      int(queryInt64(r, "offset", verr)),
	}
	if opts.Limit == 0 || opts.Limit > maxPageSize {
		opts.Limit = maxPageSize
	}
	if err := verr.Err(); err != nil {
		a.respondError(w, r, err)
		return
	}

	list, err := a.manager.List(r.Context(), userID, opts)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []notifications.Notification{}
	}

	writeJSON(w, http.StatusOK, Response{
		Data: list,
		Meta: map[string]any{"count": len(list), "limit": opts.Limit, "offset": opts.Offset},
	})
}

// getNotification returns one notification with a summary of its content.
func (a *API) getNotification(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if err != nil {
		a.respondError(w, r, ValidationError{"notificationID": {"must be a UUID"}})
		return
	}

	n, err := a.manager.Get(r.Context(), userID, id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	sum := a.manager.Summary(r.Context(), *n)
	writeJSON(w, http.StatusOK, Response{
		Data: n,
		Meta: map[string]any{"summary": sum.Short, "content": sum.Long},
	})
}

type unseenResponse struct {
	Count int `json:"count"`
}

func (a *API) countUnseen(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	verr := ValidationError{}
	since := queryTime(r, "since", verr)
	if err := verr.Err(); err != nil {
		a.respondError(w, r, err)
		return
	}

	count, err := a.manager.CountUnseen(r.Context(), userID, since)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, unseenResponse{Count: count})
}

// markReadRequest selects what the user has seen. With no field set every
// notification of the user is marked read.
type markReadRequest struct {
	IDs       []uuid.UUID             `json:"ids,omitempty"`
	Event     notifications.EventType `json:"event,omitempty"`
	SourceRef int64                   `json:"source_ref,omitempty"`
	Course    int64                   `json:"course,omitempty"`
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	var req markReadRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			a.respondError(w, r, err)
			return
		}
	}

	ctx := r.Context()
	switch {
	case len(req.IDs) > 0:
		a.manager.MarkRead(ctx, userID, req.IDs...)
	case req.Event != notifications.EventUnknown && req.SourceRef > 0:
		a.manager.MarkReadBySource(ctx, userID, req.Event, req.SourceRef)
	case req.Event != notifications.EventUnknown && req.Course > 0:
		a.manager.MarkReadForCourse(ctx, userID, req.Event, req.Course)
	case req.Event != notifications.EventUnknown || req.SourceRef > 0 || req.Course > 0:
		a.respondError(w, r, ValidationError{"event": {"event needs source_ref or course"}})
		return
	default:
		a.manager.MarkAllRead(ctx, userID)
	}
	w.WriteHeader(http.StatusNoContent)
}
