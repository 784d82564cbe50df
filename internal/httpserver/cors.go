package httpserver

import (
	"net/http"
	"strings"

	"github.com/Boris-Bot69/fitness-ios/internal/auth"
	"github.com/Boris-Bot69/fitness-ios/internal/config"
)

var (
	corsAllowMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions,
	}, ",")
	corsAllowHeaders = strings.Join([]string{
		"Authorization", "Content-Type", auth.OwnerHeader,
	}, ",")
)

// CORSMiddleware echoes allowed origins and answers preflight requests.
func CORSMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(cfg.CORSAllowedOrigins))
	for _, o := range cfg.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		_, ok := allowed[origin]
		ok = ok && origin != ""

		if ok {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if cfg.CORSAllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if r.Method != http.MethodOptions || origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Preflight. Disallowed origins get 204 without CORS headers.
		if ok {
			h := w.Header()
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", "600")
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
