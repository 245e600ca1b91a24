package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig lists the browser origins allowed to call the API. An empty
// origin list or a "*" entry admits every origin.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         time.Duration
}

var (
	corsMethods        = "GET, POST, OPTIONS"
	corsDefaultHeaders = []string{"Content-Type", "Authorization"}
	corsDefaultExpose  = []string{"Idempotent-Replay", "X-Request-Id"}
)

// CORS decorates responses for allowed origins and short-circuits preflight
// requests with 204. Requests from other origins pass through undecorated.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	wildcard := len(cfg.AllowedOrigins) == 0
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		if origin == "*" {
			wildcard = true
			continue
		}
		origins[origin] = struct{}{}
	}
	headers := strings.Join(orDefault(cfg.AllowedHeaders, corsDefaultHeaders), ", ")
	expose := strings.Join(orDefault(cfg.ExposedHeaders, corsDefaultExpose), ", ")
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := false
			if origin != "" {
				_, listed := origins[strings.ToLower(origin)]
				allowed = wildcard || listed
			}
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Expose-Headers", expose)
			}
			if r.Method != http.MethodOptions || origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", strconv.Itoa(int(maxAge.Seconds())))
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
