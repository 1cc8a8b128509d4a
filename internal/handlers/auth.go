package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopprrapp/shopprr/internal/auth"
)

type contextKey string

const identityContextKey contextKey = "identity"

func identityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(auth.Identity)
	return identity, ok
}

// Authenticate verifies a bearer token when one is present and stores the
// resulting identity in the request context. Requests without a token pass
// through anonymously; RequireUser and RequireStaff enforce presence.
func (h *Handlers) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			h.respondError(w, r, http.StatusUnauthorized, "malformed authorization header")
			return
		}

		identity, err := h.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			h.loggerFromContext(r.Context()).Info("rejected bearer token", "error", err)
			h.respondError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identityFromContext(r.Context()); !ok {
			h.respondError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff admits only identities whose token carries the staff flag.
// The check is an explicit boolean, never inferred from lookup failures.
func (h *Handlers) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromContext(r.Context())
		if !ok {
			h.respondError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		if !identity.Staff {
			h.respondError(w, r, http.StatusForbidden, "staff access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
