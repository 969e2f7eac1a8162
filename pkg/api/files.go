package api

import (
	"net/http"
	"strings"
)

type filePathRequest struct {
	Path string `json:"path"`
}

type filePathResponse struct {
	Container int64  `json:"container"`
	FileRef   int64  `json:"file_ref"`
	Path      string `json:"path"`
}

// putFilePath records where a file lives so a later folder removal can find
// the notifications about it.
func (a *API) putFilePath(w http.ResponseWriter, r *http.Request) {
	if a.files == nil {
		a.respondError(w, r, ErrNotImplemented.WithMessage("no file index is configured"))
		return
	}
	container, err := idParam(r, "container")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	ref, err := idParam(r, "fileRef")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	var req filePathRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	path := strings.Trim(strings.TrimSpace(req.Path), "/")
	if path == "" {
		a.respondError(w, r, ValidationError{"path": {"is required"}})
		return
	}

	if err := a.files.SetFilePath(r.Context(), container, ref, path); err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, filePathResponse{Container: container, FileRef: ref, Path: path})
}
