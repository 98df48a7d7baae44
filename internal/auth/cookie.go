package auth

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieWriter sets and clears the auth cookies with consistent attributes.
type CookieWriter struct {
	Secure bool // true in production
}

// SetTokenPair writes both auth cookies. Max age of each derives from the
// refresh-token TTL so the pair expires together on the client.
func (cw CookieWriter) SetTokenPair(w http.ResponseWriter, pair *TokenPair) {
	maxAge := int(pair.RefreshTTL / time.Second)
	cw.set(w, AccessTokenCookie, pair.AccessToken, maxAge)
	cw.set(w, RefreshTokenCookie, pair.RefreshToken, maxAge)
}

// Clear expires both auth cookies unconditionally.
func (cw CookieWriter) Clear(w http.ResponseWriter) {
	cw.set(w, AccessTokenCookie, "", -1)
	cw.set(w, RefreshTokenCookie, "", -1)
}

func (cw CookieWriter) set(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cw.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
