package auth

import (
	"net/http"
	"strings"

	"github.com/Boris-Bot69/fitness-ios/internal/config"
)

const (
	OwnerHeader    = "X-Owner-ID"
	DefaultOwnerID = "local"
)

// Middleware - middleware для проверки авторизации
type Middleware struct {
	config  *config.Config
	service *Service
}

func NewMiddleware(cfg *config.Config, service *Service) *Middleware {
	return &Middleware{
		config:  cfg,
		service: service,
	}
}

// Authenticate puts the owner id of the request into the context. A bearer
// token, when present and auth is enabled, must be valid and its sub is the
// owner. Otherwise the owner comes from X-Owner-ID (default "local"), unless
// AUTH_REQUIRED demands a token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if m.config.AuthEnabled() && authHeader != "" {
			userID, err := m.authenticateHeader(authHeader)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
			return
		}

		if m.config.AuthRequired {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}

		ownerID := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if ownerID == "" {
			ownerID = DefaultOwnerID
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), ownerID)))
	})
}

func (m *Middleware) authenticateHeader(authHeader string) (string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrInvalidToken
	}

	return m.service.VerifyJWT(parts[1])
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}

func isPublicPath(path string) bool {
	return path == "/healthz" || path == "/metrics" || strings.HasPrefix(path, "/v1/auth/")
}
