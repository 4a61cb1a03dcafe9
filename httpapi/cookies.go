package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/middleware"
)

// CookieConfig controls the token cookies.
type CookieConfig struct {
	// Secure is set in production so cookies only travel over HTTPS.
	Secure bool
	Domain string
}

func (c CookieConfig) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c CookieConfig) setTokens(w http.ResponseWriter, tokens sessionauth.TokenPair, accessTTL, refreshTTL time.Duration) {
	c.set(w, middleware.AccessCookie, tokens.AccessToken, accessTTL)
	c.set(w, middleware.RefreshCookie, tokens.RefreshToken, refreshTTL)
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
