package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/hexmem/hexmem/internal/apikeys"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

type contextKey string

const apiKeyContextKey contextKey = "hexmem-api-key"

// devKeyPermissions are granted to the configured development key, which
// bypasses store lookup entirely and carries no agent scope.
var devKeyPermissions = []string{hexmem.PermissionRead, hexmem.PermissionWrite, hexmem.PermissionAdmin}

// requireAuth enforces bearer-token auth on every /api/v1/* route. A
// configured dev key matches by constant-time comparison; otherwise the
// token is hashed and looked up as a persisted API key.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == "" || token == auth {
			respondError(w, hexmem.ErrUnauthenticated)
			return
		}

		if s.devKey != "" && apikeys.ConstantTimeEqual(token, s.devKey) {
			k := &hexmem.ApiKey{ID: "dev", Name: "development", Permissions: devKeyPermissions}
			next(w, r.WithContext(context.WithValue(r.Context(), apiKeyContextKey, k)))
			return
		}

		k, err := s.keys.Authenticate(r.Context(), token)
		if err != nil {
			respondError(w, hexmem.ErrUnauthenticated)
			return
		}
		if limiter := s.keys.Limiter(k); limiter != nil && !limiter.Allow() {
			respondJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), apiKeyContextKey, k)))
	}
}

func apiKeyFromContext(ctx context.Context) *hexmem.ApiKey {
	k, _ := ctx.Value(apiKeyContextKey).(*hexmem.ApiKey)
	return k
}

// requirePermission wraps a handler with a permission check (PermissionDenied,
// 403) on top of requireAuth's authentication.
func requirePermission(perm string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		k := apiKeyFromContext(r.Context())
		if k == nil || !apikeys.HasPermission(k, perm) {
			respondError(w, hexmem.ErrPermissionDenied)
			return
		}
		next(w, r)
	}
}
