package handler

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Metrics holds process-lifetime atomic counters exposed at GET /metrics.
// All writes use atomic operations so there is no lock contention on hot paths.
type Metrics struct {
	UploadsTotal      atomic.Int64 // uploads attempted
	UploadsFailed     atomic.Int64 // uploads that returned an error
	BytesWritten      atomic.Int64 // bytes committed to storage
	DownloadsTotal    atomic.Int64 // retrievals attempted
	DownloadsNotFound atomic.Int64 // retrievals that found no file
	BytesServed       atomic.Int64 // bytes streamed back to clients
}

// metricsHandler returns the http.HandlerFunc that serialises the current
// counter snapshot as a flat JSON object. activeFunc is called at render
// time so the real-time active-upload count comes from the limiter without
// a circular dependency.
func (m *Metrics) metricsHandler(activeFunc func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{ //nolint:errcheck
			"uploads_total":       m.UploadsTotal.Load(),
			"uploads_failed":      m.UploadsFailed.Load(),
			"bytes_written":       m.BytesWritten.Load(),
			"downloads_total":     m.DownloadsTotal.Load(),
			"downloads_not_found": m.DownloadsNotFound.Load(),
			"bytes_served":        m.BytesServed.Load(),
			"active_uploads":      int64(activeFunc()),
		})
	}
}
