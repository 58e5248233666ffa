package middleware

import (
	"net/http"
	"strings"

	"github.com/bobotcho/concierge-server-go/internal/audit"
	"github.com/bobotcho/concierge-server-go/internal/util"
)

type contextKey string

// DashboardAuthMiddleware guards the dashboard API with a single bearer
// token checked against a bcrypt hash from configuration. An empty hash
// disables the API entirely.
type DashboardAuthMiddleware struct {
	tokenHash string
}

func NewDashboardAuthMiddleware(tokenHash string) *DashboardAuthMiddleware {
	return &DashboardAuthMiddleware{tokenHash: tokenHash}
}

func (m *DashboardAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.tokenHash == "" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "Dashboard API is not enabled",
			})
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		if !util.CheckTokenHash(token, m.tokenHash) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventDashboardAuthFailure})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
