package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorBody is the only error shape clients ever see; internal errors never
// leak stack traces or raw upstream details.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSONError sends a typed JSON error response.
func JSONError(c echo.Context, statusCode int, message string) error {
	return c.JSON(statusCode, ErrorBody{Error: message})
}

// BadRequest sends a 400 with a descriptive message.
func BadRequest(c echo.Context, message string) error {
	return JSONError(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401.
func Unauthorized(c echo.Context, message string) error {
	return JSONError(c, http.StatusUnauthorized, message)
}

// BadGateway sends a 502 with a generic message; upstream error details stay
// server-side.
func BadGateway(c echo.Context) error {
	return JSONError(c, http.StatusBadGateway, "backend unavailable")
}
