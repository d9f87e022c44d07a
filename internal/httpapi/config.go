package httpapi

import (
	"net/http"

	"github.com/go-chi/cors"
)

const defaultMaxBodyBytes int64 = 16 << 20

// maxBodyBytes caps JSON request bodies. Run requests carry base64 input
// buffers, so the default is well above a typical control API.
var maxBodyBytes = defaultMaxBodyBytes

// SetMaxBodyBytes sets the request body cap; n <= 0 restores the default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = defaultMaxBodyBytes
	}
	maxBodyBytes = n
}

// runTimeout bounds, in seconds, how long a /run request may wait for
// admission. Zero leaves only the manager's own max wait.
var runTimeout int64

// SetRunTimeoutSeconds sets the run admission timeout (0 disables).
func SetRunTimeoutSeconds(sec int64) {
	runTimeout = max(sec, 0)
}

// corsOptions is nil unless CORS was enabled.
var corsOptions *cors.Options

// SetCORSOptions enables or disables CORS. Empty lists fall back to any
// origin and the methods and headers the API uses.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	if !enabled {
		corsOptions = nil
		return
	}
	corsOptions = &cors.Options{
		AllowedOrigins: orDefault(origins, []string{"*"}),
		AllowedMethods: orDefault(methods, []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		AllowedHeaders: orDefault(headers, []string{"Content-Type", "X-Log-Level"}),
		MaxAge:         300,
	}
}

// corsMiddleware returns nil when CORS is disabled.
func corsMiddleware() func(http.Handler) http.Handler {
	if corsOptions == nil {
		return nil
	}
	return cors.Handler(*corsOptions)
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return append([]string(nil), v...)
}
