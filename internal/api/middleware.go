package api

import (
	"context"
	"net/http"

	"github.com/davidahmann/courseledger/internal/auth"
)

type claimsKey struct{}

func withClaims(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func claimsFrom(ctx context.Context) auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(auth.Claims)
	return claims
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.Auth.Authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// requireAdmin admits only the contract owner. It runs after authenticate.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if !claims.Connected() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "account required"})
			return
		}
		ok, err := h.Market.IsAdmin(r.Context(), claims.Account)
		if err != nil {
			h.Log.Warn().Err(err).Str("account", claims.Account.Hex()).Msg("admin check failed")
			writeError(w, statusFor(err), err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
