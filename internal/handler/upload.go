package handler

import (
	"net/http"

	"github.com/cardview/modelstore/internal/store"
)

// multipartMemory is the in-memory threshold for multipart parsing; parts
// beyond it spill to disk via the stdlib's own temp files.
const multipartMemory = 32 << 20 // 32 MB

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// Upload stores one file from a multipart form.
//
// POST /upload
// Form field: "file" — the uploaded file; its client-supplied filename
// becomes the storage key, so a second upload under the same name
// overwrites the first (last-write-wins, no versioning).
//
// Error bodies mirror the original service exactly:
//
//	400 {"error":"No file uploaded"}   missing or malformed file field
//	400 {"error":"No file selected"}   file part with an empty filename
//	400 {"error":"Invalid filename"}   path separators, "..", reserved names
//	500 {"error":"Failed to store file"}
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	h.metrics.UploadsTotal.Add(1)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.metrics.UploadsFailed.Add(1)
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	fhs := r.MultipartForm.File["file"]
	if len(fhs) == 0 {
		h.metrics.UploadsFailed.Add(1)
		// A part named "file" with an empty filename parses as a plain
		// form value, which is what browsers send when no file was picked.
		if _, selected := r.MultipartForm.Value["file"]; selected {
			writeError(w, http.StatusBadRequest, "No file selected")
		} else {
			writeError(w, http.StatusBadRequest, "No file uploaded")
		}
		return
	}

	fh := fhs[0]
	if fh.Filename == "" {
		h.metrics.UploadsFailed.Add(1)
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !store.ValidFilename(fh.Filename) {
		h.metrics.UploadsFailed.Add(1)
		writeError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.metrics.UploadsFailed.Add(1)
		h.logger.Error("upload: open form file failed", "filename", fh.Filename, "err", err)
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer f.Close()

	n, err := h.store.Write(fh.Filename, f)
	if err != nil {
		h.metrics.UploadsFailed.Add(1)
		h.logger.Error("upload: write failed", "filename", fh.Filename, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	h.metrics.BytesWritten.Add(n)
	h.logger.Info("upload complete", "filename", fh.Filename, "bytes", n)

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:  "File uploaded successfully",
		Filename: fh.Filename,
	})
}
