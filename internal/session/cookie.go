package session

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"savings-admin/console/internal/session/domain"
)

// CookieMirror receives the accessToken cookie whenever the token is stored or cleared,
// so that route guards reading cookies see the same session as the console.
type CookieMirror interface {
	SetCookie(c *http.Cookie)
}

// TokenCookie is the cookie set on login: path /, 30 days, SameSite=Strict.
func TokenCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     domain.CookieName,
		Value:    token,
		Path:     domain.CookiePath,
		MaxAge:   domain.CookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredCookie deletes the accessToken cookie (Max-Age: 0).
func ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     domain.CookieName,
		Value:    "",
		Path:     domain.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// JarMirror mirrors the cookie into a cookie jar scoped to one origin, normally the API's,
// so an http.Client using Jar sends it the way a browser would.
type JarMirror struct {
	mu  sync.Mutex
	jar *cookiejar.Jar
	u   *url.URL
}

// NewJarMirror returns a mirror for cookies on origin (e.g. http://localhost:5000/api/v1).
func NewJarMirror(origin string) (*JarMirror, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &JarMirror{jar: jar, u: u}, nil
}

// SetCookie stores or deletes c in the jar.
func (m *JarMirror) SetCookie(c *http.Cookie) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jar.SetCookies(m.u, []*http.Cookie{c})
}

// Cookie returns the live accessToken cookie, or nil when it is not set.
func (m *JarMirror) Cookie() *http.Cookie {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.jar.Cookies(m.u) {
		if c.Name == domain.CookieName {
			return c
		}
	}
	return nil
}

// Jar exposes the underlying jar for an http.Client.
func (m *JarMirror) Jar() http.CookieJar {
	return m.jar
}
