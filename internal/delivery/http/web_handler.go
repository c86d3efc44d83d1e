package http

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"

	"rtlab-dashboard/internal/middleware"
)

//go:embed static
var staticFiles embed.FS

// WebHandler serves the minimal page shells. All data rendering happens
// client-side against the /api surface.
type WebHandler struct {
	codec *middleware.SessionCodec
}

// NewWebHandler creates the page handler.
func NewWebHandler(codec *middleware.SessionCodec) *WebHandler {
	return &WebHandler{codec: codec}
}

// StaticFS returns the embedded asset tree rooted at static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Index handles GET /: logged-in users land on the dashboard, everyone else
// on the login page. The gate already redirected unauthenticated requests,
// so reaching here means the session is valid.
func (h *WebHandler) Index(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/dashboard")
}

// LoginPage handles GET /login. A client arriving with a still-valid session
// skips the form; a stale or tampered cookie gets the form, not a redirect
// bounce through the gate.
func (h *WebHandler) LoginPage(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil && h.codec.Verify(cookie.Value) != nil {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return h.servePage(c, "login.html")
}

// DashboardPage handles GET /dashboard.
func (h *WebHandler) DashboardPage(c echo.Context) error {
	return h.servePage(c, "dashboard.html")
}

func (h *WebHandler) servePage(c echo.Context, name string) error {
	page, err := staticFiles.ReadFile("static/" + name)
	if err != nil {
		return JSONError(c, http.StatusInternalServerError, "page missing")
	}
	return c.HTMLBlob(http.StatusOK, page)
}
