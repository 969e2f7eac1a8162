package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// DigestRunner runs one digest pass on demand.
type DigestRunner interface {
	RunPass(ctx context.Context) (digest.Report, error)
}

// API exposes the notification engine over JSON.
type API struct {
	manager   *notifications.Manager
	stats     notifications.StatsStore
	digest    DigestRunner
	directory digest.DirectoryStore
	files     notifications.FileIndexStore
	checks    []httpserver.Check
	logger    *slog.Logger
}

// Option configures an API.
type Option func(*API)

func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithDigest enables POST /digest/run.
func WithDigest(d DigestRunner) Option {
	return func(a *API) { a.digest = d }
}

// WithDirectory enables the contact and scope name endpoints.
func WithDirectory(d digest.DirectoryStore) Option {
	return func(a *API) { a.directory = d }
}

// WithFileIndex enables PUT /files and the folder removal cascade. It should
// be the same index the manager was built with.
func WithFileIndex(idx notifications.FileIndexStore) Option {
	return func(a *API) { a.files = idx }
}

// WithReadinessChecks sets the dependencies checked by GET /readyz.
func WithReadinessChecks(checks ...httpserver.Check) Option {
	return func(a *API) { a.checks = append(a.checks, checks...) }
}

// New creates the API.
func New(manager *notifications.Manager, stats notifications.StatsStore, opts ...Option) *API {
	a := &API{
		manager: manager,
		stats:   stats,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the routed HTTP handler.
//
//	GET    /healthz
//	GET    /readyz
//	POST   /events
//	POST   /sources/removed
//	POST   /folders/removed
//	POST   /courses/{courseID}/removed
//	PUT    /files/{container}/{fileRef}
//	GET    /users/{userID}/notifications
//	GET    /users/{userID}/notifications/unseen
//	GET    /users/{userID}/notifications/{notificationID}
//	POST   /users/{userID}/notifications/read
//	GET    /users/{userID}/preferences
//	PUT    /users/{userID}/preferences
//	PUT    /users/{userID}/contact
//	PUT    /scopes/{kind}/{scopeID}
//	POST   /digest/run
//	POST   /purge
//	GET    /stats
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware, a.accessLog)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.respondError(w, r, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.respondError(w, r, HTTPError{Code: http.StatusMethodNotAllowed, Key: "method_not_allowed"})
	})

	r.Get("/healthz", httpserver.HealthCheckHandler(a.logger, 0))
	r.Get("/readyz", httpserver.HealthCheckHandler(a.logger, 2*time.Second, a.checks...))

	r.Post("/events", a.recordEvent)
	r.Post("/sources/removed", a.sourcesRemoved)
	r.Post("/folders/removed", a.folderRemoved)
	r.Post("/courses/{courseID}/removed", a.courseRemoved)
	r.Put("/files/{container}/{fileRef}", a.putFilePath)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/notifications", a.listNotifications)
		r.Get("/notifications/unseen", a.countUnseen)
		r.Get("/notifications/{notificationID}", a.getNotification)
		r.Post("/notifications/read", a.markRead)
		r.Get("/preferences", a.getPreferences)
		r.Put("/preferences", a.putPreferences)
		r.Put("/contact", a.putContact)
	})
	r.Put("/scopes/{kind}/{scopeID}", a.putScopeName)

	r.Post("/digest/run", a.runDigest)
	r.Post("/purge", a.purge)
	r.Get("/stats", a.getStats)

	return r
}
