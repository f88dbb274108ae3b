package auth

import (
	"net/http"
	"strings"
	"time"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"

	// RefreshCookiePath limits the refresh cookie to the auth endpoints.
	RefreshCookiePath = "/api/auth"
)

// CookieTransport carries token pairs in HttpOnly cookies.
type CookieTransport struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieTransport) Set(w http.ResponseWriter, pair TokenPair) {
	http.SetCookie(w, c.cookie(AccessCookieName, pair.AccessToken, "/", c.AccessTTL))
	http.SetCookie(w, c.cookie(RefreshCookieName, pair.RefreshToken, RefreshCookiePath, c.RefreshTTL))
}

// Clear asks the client to drop both cookies. Tokens already copied elsewhere
// stay valid until they expire.
func (c CookieTransport) Clear(w http.ResponseWriter) {
	access := c.cookie(AccessCookieName, "", "/", 0)
	access.MaxAge = -1
	refresh := c.cookie(RefreshCookieName, "", RefreshCookiePath, 0)
	refresh.MaxAge = -1
	http.SetCookie(w, access)
	http.SetCookie(w, refresh)
}

// AccessToken reads the access cookie, falling back to a Bearer header.
func (c CookieTransport) AccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func (c CookieTransport) RefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (c CookieTransport) cookie(name, value, path string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
