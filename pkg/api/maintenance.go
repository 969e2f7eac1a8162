package api

import (
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// runDigest runs a pass synchronously and returns its report.
func (a *API) runDigest(w http.ResponseWriter, r *http.Request) {
	if a.digest == nil {
		a.respondError(w, r, ErrNotImplemented)
		return
	}
	report, err := a.digest.RunPass(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, report)
}

type purgeResponse struct {
	Deleted int64 `json:"deleted"`
}

func (a *API) purge(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.manager.Purge(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, purgeResponse{Deleted: deleted})
}

func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	verr := ValidationError{}
	f := notifications.StatsFilter{
		Degree: queryInt64(r, "degree", verr),
		Course: queryInt64(r, "course", verr),
	}
	if err := verr.Err(); err != nil {
		a.respondError(w, r, err)
		return
	}

	stats, err := a.stats.Stats(r.Context(), f)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if stats == nil {
		stats = []notifications.StatCounter{}
	}
	respond(w, http.StatusOK, stats)
}
