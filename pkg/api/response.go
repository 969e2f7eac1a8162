package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Response is the envelope of every JSON body.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Data: data})
}

// respondError classifies err and writes it. 5xx errors are logged at
// error level, client errors at debug.
func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)

	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	a.logger.LogAttrs(r.Context(), level, "Request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		logger.Error(err),
	)

	writeJSON(w, status, Response{Error: detail})
}

func classify(err error) (int, *ErrorDetail) {
	var verr ValidationError
	if errors.As(err, &verr) {
		d := &ErrorDetail{Code: "validation_error", Message: verr.Error(), Details: make(map[string][]string, len(verr))}
		maps.Copy(d.Details, verr)
		return http.StatusUnprocessableEntity, d
	}

	var herr HTTPError
	switch {
	case errors.As(err, &herr):
	case errors.Is(err, notifications.ErrNotificationNotFound):
		herr = ErrNotFound
	case errors.Is(err, notifications.ErrUnknownEventType):
		herr = ErrUnknownEvent.WithMessage("%v", err)
	case errors.Is(err, digest.ErrRecipientNotFound), errors.Is(err, digest.ErrScopeNotFound):
		herr = ErrNotFound
	case errors.Is(err, digest.ErrPassInProgress):
		herr = HTTPError{Code: http.StatusConflict, Key: "digest_in_progress"}
	case errors.Is(err, digest.ErrLockUnavailable):
		herr = ErrServiceUnavailable
	default:
		herr = ErrInternalServerError
	}

	msg := herr.Message
	if msg == "" {
		msg = http.StatusText(herr.Code)
	}
	return herr.Code, &ErrorDetail{Code: herr.Key, Message: msg}
}
