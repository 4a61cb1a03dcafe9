package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/jwt"
)

// Cookie names shared with the HTTP handlers.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Verifier checks access tokens. *sessionauth.Engine implements it.
type Verifier interface {
	VerifyAccess(token string) (*jwt.AccessClaims, error)
}

// Auditor records failed role checks. *sessionauth.Engine implements it.
type Auditor interface {
	RecordUnauthorizedAccess(ctx context.Context, claims *jwt.AccessClaims, resource string)
}

// ErrorHandler writes a rejected request. err is one of the engine's
// sentinel errors.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by RequireAccess.
func ClaimsFromContext(ctx context.Context) (*jwt.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.AccessClaims)
	return claims, ok && claims != nil
}

// WithClaims stores claims the way RequireAccess does.
func WithClaims(ctx context.Context, claims *jwt.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// RequireAccess rejects requests without a valid access token.
func RequireAccess(v Verifier, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				onError(w, r, sessionauth.ErrEngineNotReady)
				return
			}

			token := AccessToken(r)
			if token == "" {
				onError(w, r, sessionauth.ErrUnauthenticated)
				return
			}
			claims, err := v.VerifyAccess(token)
			if err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole must run after RequireAccess.
func RequireRole(a Auditor, onError ErrorHandler, roles ...account.Role) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				onError(w, r, sessionauth.ErrUnauthenticated)
				return
			}
			if !slices.Contains(roles, account.Role(claims.Role)) {
				if a != nil {
					a.RecordUnauthorizedAccess(r.Context(), claims, r.Method+" "+r.URL.Path)
				}
				onError(w, r, sessionauth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessToken prefers the accessToken cookie and falls back to a bearer
// header.
func AccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token, _ := bearerToken(r.Header.Get("Authorization"))
	return token
}

// RefreshToken returns the refreshToken cookie value, or "".
func RefreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookie); err == nil {
		return c.Value
	}
	return ""
}

func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}

func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusUnauthorized
	switch {
	case errors.Is(err, sessionauth.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, sessionauth.ErrEngineNotReady):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, http.StatusText(status), status)
}
