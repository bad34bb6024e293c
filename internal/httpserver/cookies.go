package httpserver

import (
	"net/http"
	"time"
)

const (
	RefreshCookieName       = "refresh"
	DefaultRefreshCookieTTL = 30 * 24 * time.Hour
)

type CookieConfig struct {
	Secure bool
	TTL    time.Duration
}

func CreateCookie(name, value, path string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func DeleteCookie(name, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (cfg CookieConfig) refreshCookie(token string) *http.Cookie {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultRefreshCookieTTL
	}
	return CreateCookie(RefreshCookieName, token, "/", time.Now().Add(ttl), cfg.Secure)
}

func (cfg CookieConfig) clearRefreshCookie() *http.Cookie {
	return DeleteCookie(RefreshCookieName, "/", cfg.Secure)
}
