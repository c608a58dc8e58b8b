package middleware

import "net/http"

// CORS returns middleware that attaches cross-origin headers to every
// response and short-circuits OPTIONS preflight requests.
//
// allowedOrigin is an explicit configuration value, not a hidden default:
// "*" keeps the service open to any origin, a concrete origin restricts it.
// The headers are set before the handler runs so error responses (404, 503)
// carry them too — a browser otherwise masks the real status behind a CORS
// failure.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
