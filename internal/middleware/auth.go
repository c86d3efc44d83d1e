package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"rtlab-dashboard/internal/domain"
	"rtlab-dashboard/internal/metrics"
	"rtlab-dashboard/internal/utils"
)

// sessionContextKey is where the gate stores the verified session on the echo
// context.
const sessionContextKey = "session"

type pathClass int

const (
	pathAsset pathClass = iota
	pathPublic
	pathProtected
)

// AuthGate intercepts every inbound request: assets and public paths pass,
// everything else requires a valid session cookie. It keeps no state across
// requests.
type AuthGate struct {
	codec        *SessionCodec
	secureCookie bool
	metrics      *metrics.Metrics
}

// NewAuthGate creates the gate. secureCookie should be true in production so
// cleared cookies match the Secure attribute of issued ones. m may be nil.
func NewAuthGate(codec *SessionCodec, secureCookie bool, m *metrics.Metrics) *AuthGate {
	return &AuthGate{codec: codec, secureCookie: secureCookie, metrics: m}
}

func classify(path string) pathClass {
	switch {
	case strings.HasPrefix(path, "/static/"),
		path == "/favicon.ico",
		path == "/health",
		path == "/metrics":
		return pathAsset
	case path == "/login",
		path == "/api/auth/login",
		path == "/api/auth/logout":
		return pathPublic
	default:
		return pathProtected
	}
}

// Middleware is the per-request state machine. On success the verified
// session is attached to the context for downstream handlers.
func (g *AuthGate) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		if cls := classify(path); cls != pathProtected {
			return next(c)
		}

		cookie, err := c.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			return g.deny(c, false)
		}

		session := g.codec.Verify(cookie.Value)
		if session == nil {
			// Stale or tampered cookie; clear it so the client stops
			// retrying with it.
			return g.deny(c, true)
		}

		c.Set(sessionContextKey, session)
		return next(c)
	}
}

// deny converts an authentication failure into a 401 for API paths and a
// login redirect (preserving the sanitized original path) for page paths.
func (g *AuthGate) deny(c echo.Context, clearCookie bool) error {
	if g.metrics != nil {
		g.metrics.AuthFailuresTotal.Inc()
	}
	if clearCookie {
		c.SetCookie(ClearSessionCookie(g.secureCookie))
	}
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	}
	next := utils.SanitizeReturnPath(c.Request().URL.RequestURI())
	return c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(next))
}

// SessionFromContext returns the session the gate attached, or nil when the
// request never passed the gate. Handlers re-check this defensively.
func SessionFromContext(c echo.Context) *domain.Session {
	session, ok := c.Get(sessionContextKey).(*domain.Session)
	if !ok {
		return nil
	}
	return session
}
