package handler

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/cardview/modelstore/internal/store"
)

// GetModel streams a stored file back to the caller.
//
// GET /models/{filename}
//
// The body is the exact stored bytes; the Content-Type is always
// text/plain regardless of actual content — that is the published
// contract, there is no sniffing. A filename that fails validation is
// reported as not found, indistinguishable from a file that was never
// uploaded, so nothing about the filesystem layout leaks.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	h.metrics.DownloadsTotal.Add(1)

	name := r.PathValue("filename")
	if !store.ValidFilename(name) {
		h.metrics.DownloadsNotFound.Add(1)
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	ok, err := h.store.Exists(name)
	if err != nil {
		h.logger.Error("download: stat failed", "filename", name, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	if !ok {
		h.metrics.DownloadsNotFound.Add(1)
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	rc, size, err := h.store.Read(name)
	if err != nil {
		// The file can disappear between the existence check and the open.
		if errors.Is(err, fs.ErrNotExist) {
			h.metrics.DownloadsNotFound.Add(1)
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		h.logger.Error("download: read failed", "filename", name, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	n, _ := io.Copy(w, rc)
	h.metrics.BytesServed.Add(n)
}

// ListModels returns the stored files as a JSON array.
//
// GET /models
//
// The listing is read from the storage directory at request time — the
// service keeps no index, so the response always reflects what is on disk.
func (h *Handler) ListModels(w http.ResponseWriter, _ *http.Request) {
	files, err := h.store.List()
	if err != nil {
		h.logger.Error("list: readdir failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, files)
}
