package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

const maxBodySize = 1 << 20

// decodeJSON strictly decodes a single JSON object from the request body.
// A misspelled event name is rejected here, before any handler can read it
// as "no event type".
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return ErrUnsupportedMedia.WithMessage("expected application/json")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrBadRequest.WithMessage("empty body")
		}
		if errors.Is(err, notifications.ErrUnknownEventType) {
			return ErrUnknownEvent.WithMessage("%v", err)
		}
		return ErrBadRequest.WithMessage("invalid JSON: %v", err)
	}
	if dec.More() {
		return ErrBadRequest.WithMessage("invalid JSON: unexpected data after object")
	}
	return nil
}

// idParam parses a positive integer path parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		verr := ValidationError{}
		verr.Add(name, "must be a positive integer")
		return 0, verr
	}
	return id, nil
}

func queryInt64(r *http.Request, name string, verr ValidationError) int64 {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		verr.Add(name, "must be a non-negative integer")
		return 0
	}
	return v
}

func queryBool(r *http.Request, name string, verr ValidationError) bool {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		verr.Add(name, "must be a boolean")
	}
	return v
}

func queryTime(r *http.Request, name string, verr ValidationError) time.Time {
	s := r.URL.Query().Get(name)
	if s == "" {
		return time.Time{}
	}
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		verr.Add(name, "must be an RFC 3339 timestamp")
	}
	return v
}
