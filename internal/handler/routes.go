package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/cardview/modelstore/internal/config"
	"github.com/cardview/modelstore/internal/middleware"
	"github.com/cardview/modelstore/internal/store"
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	cfg     *config.Config
	store   store.Backend
	logger  *slog.Logger
	metrics *Metrics
}

// New registers all routes and returns the root http.Handler.
// Uses Go 1.22 method+path pattern syntax — no external router needed.
//
// Middleware stack (outer → inner):
//
//	RequestID → RequestLog → CORS → ServeMux → UploadLimiter → handler
//
// CORS sits inside logging so preflight requests still get access-log
// entries; the limiter guards only the upload route, downloads are cheap.
func New(cfg *config.Config, backend store.Backend, logger *slog.Logger) http.Handler {
	h := &Handler{
		cfg:     cfg,
		store:   backend,
		logger:  logger,
		metrics: &Metrics{},
	}

	limiter := middleware.NewUploadLimiter(cfg.MaxConcurrentUploads)

	mux := http.NewServeMux()

	// ── Core store/retrieve surface ──────────────────────────────────────────
	// POST /upload            multipart form, field "file"
	// GET  /models/{filename} raw stored bytes, text/plain
	// GET  /models            directory listing as JSON
	mux.Handle("POST /upload", limiter.Limit(http.HandlerFunc(h.Upload)))
	mux.HandleFunc("GET /models/{filename}", h.GetModel)
	mux.HandleFunc("GET /models", h.ListModels)
	mux.HandleFunc("GET /models/{$}", h.ListModels)

	// ── Observability ────────────────────────────────────────────────────────
	//
	// GET /health        — liveness probe: fast 200 while the process is alive.
	// GET /healthz/ready — readiness probe: storage dir + free disk space.
	// GET /metrics       — atomic process counters as flat JSON.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz/ready", h.Readiness)
	mux.Handle("GET /metrics", h.metrics.metricsHandler(limiter.Active))

	// RequestID and RequestLog wrap the entire mux so every route — 404s and
	// limiter 503s included — gets a correlation id and an access log entry.
	logMW := middleware.RequestLog(logger)
	corsMW := middleware.CORS(cfg.AllowedOrigin)
	return middleware.RequestID(logMW(corsMW(mux)))
}

// Readiness reports whether the service can accept uploads.
// Checks performed:
//  1. Storage directory is accessible (os.Stat).
//  2. Free disk space ≥ cfg.MinFreeBytes (Linux only via syscall.Statfs;
//     (0, 0) means "unavailable" — the check is skipped, not failed).
func (h *Handler) Readiness(w http.ResponseWriter, _ *http.Request) {
	type check struct {
		Name string `json:"name"`
		OK   bool   `json:"ok"`
		Msg  string `json:"msg,omitempty"`
	}
	var checks []check
	allOK := true

	if _, err := os.Stat(h.cfg.StorageDir); err != nil {
		checks = append(checks, check{"storage_accessible", false, "stat failed"})
		allOK = false
	} else {
		checks = append(checks, check{"storage_accessible", true, ""})
	}

	if ls, ok := h.store.(*store.Local); ok {
		avail, total := ls.DiskStats()
		if total > 0 {
			if avail < uint64(h.cfg.MinFreeBytes) {
				checks = append(checks, check{
					"disk_space", false,
					fmt.Sprintf("%d MB free — need %d MB", avail>>20, h.cfg.MinFreeBytes>>20),
				})
				allOK = false
			} else {
				checks = append(checks, check{
					"disk_space", true,
					fmt.Sprintf("%d MB free of %d MB", avail>>20, total>>20),
				})
			}
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": allOK, "checks": checks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
