package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardview/modelstore/internal/config"
	"github.com/cardview/modelstore/internal/handler"
	"github.com/cardview/modelstore/internal/store"
)

func newTestHandler(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Port:                 "0",
		StorageDir:           dir,
		AllowedOrigin:        "*",
		MaxConcurrentUploads: 4,
		MinFreeBytes:         1,
	}
	backend, err := store.NewLocal(dir)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handler.New(cfg, backend, logger), dir
}

// multipartFile builds a multipart body with one file part named "file".
func multipartFile(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartFile(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var m map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestUploadThenRetrieve(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doUpload(t, h, "notes.txt", "hello")
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	resp := decodeJSON(t, rec)
	assert.Equal(t, "File uploaded successfully", resp["message"])
	assert.Equal(t, "notes.txt", resp["filename"])

	req := httptest.NewRequest(http.MethodGet, "/models/notes.txt", nil)
	get := httptest.NewRecorder()
	h.ServeHTTP(get, req)

	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "hello", get.Body.String())
	assert.Equal(t, "text/plain", get.Header().Get("Content-Type"))
	assert.Equal(t, "5", get.Header().Get("Content-Length"))
}

func TestRetrieveReturnsExactBytes(t *testing.T) {
	h, _ := newTestHandler(t)

	// Binary content must round-trip byte-for-byte even though the
	// response always claims text/plain.
	content := string([]byte{0x00, 0x01, 0xff, 0xfe, '\n', 0x7f})
	rec := doUpload(t, h, "blob.bin", content)
	require.Equal(t, http.StatusOK, rec.Code)

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/models/blob.bin", nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, []byte(content), get.Body.Bytes())
	assert.Equal(t, "text/plain", get.Header().Get("Content-Type"))
}

func TestUploadOverwrites(t *testing.T) {
	h, _ := newTestHandler(t)

	require.Equal(t, http.StatusOK, doUpload(t, h, "m.txt", "first").Code)
	require.Equal(t, http.StatusOK, doUpload(t, h, "m.txt", "second").Code)

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/models/m.txt", nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "second", get.Body.String())
}

func TestRetrieveMissing(t *testing.T) {
	h, _ := newTestHandler(t)

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/models/missing.txt", nil))

	require.Equal(t, http.StatusNotFound, get.Code)
	assert.JSONEq(t, `{"error":"File not found"}`, get.Body.String())
}

func TestUploadWithoutFileField(t *testing.T) {
	h, dir := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("comment", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, rec.Body.String())
	assertNoStoredFiles(t, dir)
}

func TestUploadNonMultipartBody(t *testing.T) {
	h, dir := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("raw bytes"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, rec.Body.String())
	assertNoStoredFiles(t, dir)
}

func TestUploadEmptyFilename(t *testing.T) {
	h, dir := newTestHandler(t)

	// A "file" part with filename="" is what browsers submit when the user
	// picked nothing; the stdlib parses it as a plain form value.
	rec := doUpload(t, h, "", "ignored")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file selected"}`, rec.Body.String())
	assertNoStoredFiles(t, dir)
}

func TestUploadInvalidFilename(t *testing.T) {
	h, dir := newTestHandler(t)

	// filepath.Base strips forward-slash directories during multipart
	// parsing, so the names that can still reach the handler are the ones
	// Base leaves alone: ".." and backslash paths.
	for _, name := range []string{"..", `..\..\evil.txt`} {
		rec := doUpload(t, h, name, "payload")
		require.Equal(t, http.StatusBadRequest, rec.Code, "filename %q", name)
		assert.JSONEq(t, `{"error":"Invalid filename"}`, rec.Body.String())
	}
	assertNoStoredFiles(t, dir)
}

func TestUploadDottedFilename(t *testing.T) {
	h, _ := newTestHandler(t)

	// Dot-dot inside a name is not a traversal; only the exact ".."
	// segment is.
	rec := doUpload(t, h, "a..b.txt", "dots")
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/models/a..b.txt", nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "dots", get.Body.String())
}

func TestRetrieveTraversalName(t *testing.T) {
	h, dir := newTestHandler(t)

	// Plant a file outside the storage dir; an escaped-slash traversal in
	// the path parameter must not be able to reach it.
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o640))

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/models/..%2Fsecret.txt", nil))

	require.Equal(t, http.StatusNotFound, get.Code)
	assert.JSONEq(t, `{"error":"File not found"}`, get.Body.String())
}

func TestListModels(t *testing.T) {
	h, _ := newTestHandler(t)

	require.Equal(t, http.StatusOK, doUpload(t, h, "a.txt", "aa").Code)
	require.Equal(t, http.StatusOK, doUpload(t, h, "b.txt", "b").Code)

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/models", nil))
	require.Equal(t, http.StatusOK, get.Code)

	var files []store.FileInfo
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &files))
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, int64(2), files[0].Size)
	assert.Equal(t, "b.txt", files[1].Name)
}

func TestCORSHeaders(t *testing.T) {
	h, _ := newTestHandler(t)

	// Headers must appear on success, on errors, and on preflight.
	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/models/missing.txt", nil))
	assert.Equal(t, "*", get.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRecorder()
	h.ServeHTTP(pre, httptest.NewRequest(http.MethodOptions, "/upload", nil))
	assert.Equal(t, http.StatusNoContent, pre.Code)
	assert.Equal(t, "*", pre.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, pre.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRequestIDHeader(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// A caller-supplied id is preserved for cross-service correlation.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "upstream-id-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id-1", rec.Header().Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadiness(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Ready bool `json:"ready"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Ready)
}

func TestMetricsCounters(t *testing.T) {
	h, _ := newTestHandler(t)

	require.Equal(t, http.StatusOK, doUpload(t, h, "m.txt", "12345").Code)

	miss := httptest.NewRecorder()
	h.ServeHTTP(miss, httptest.NewRequest(http.MethodGet, "/models/none.txt", nil))
	require.Equal(t, http.StatusNotFound, miss.Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var m map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, int64(1), m["uploads_total"])
	assert.Equal(t, int64(0), m["uploads_failed"])
	assert.Equal(t, int64(5), m["bytes_written"])
	assert.Equal(t, int64(1), m["downloads_total"])
	assert.Equal(t, int64(1), m["downloads_not_found"])
	assert.Equal(t, int64(0), m["active_uploads"])
}

// assertNoStoredFiles verifies that a failed upload left nothing behind.
func assertNoStoredFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed upload must not create files")
}
