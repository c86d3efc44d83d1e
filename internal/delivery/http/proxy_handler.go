package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"rtlab-dashboard/configs"
	"rtlab-dashboard/internal/adapter"
	"rtlab-dashboard/internal/metrics"
	"rtlab-dashboard/internal/middleware"
	"rtlab-dashboard/internal/service"
)

// maxProxyBodyBytes bounds buffered request bodies.
const maxProxyBodyBytes = 4 << 20

// ProxyHandler serves the generic /api/<path...> surface: mock backend in
// mock mode, transparent upstream forwarding otherwise.
type ProxyHandler struct {
	cfg     *configs.Config
	mock    *service.MockBackend
	bridge  *adapter.BackendBridge
	metrics *metrics.Metrics
}

// NewProxyHandler creates the handler. bridge may be nil when no upstream
// base URL is configured.
func NewProxyHandler(cfg *configs.Config, mock *service.MockBackend, bridge *adapter.BackendBridge, m *metrics.Metrics) *ProxyHandler {
	return &ProxyHandler{cfg: cfg, mock: mock, bridge: bridge, metrics: m}
}

// Handle accepts any HTTP verb under /api/. The auth gate already verified
// the session; the re-check here is defensive.
func (h *ProxyHandler) Handle(c echo.Context) error {
	session := middleware.SessionFromContext(c)
	if session == nil {
		return Unauthorized(c, "authentication required")
	}

	req := c.Request()
	relPath := strings.TrimPrefix(req.URL.Path, "/api")
	// Read one byte past the cap so an over-limit body is detected and
	// refused rather than truncated and forwarded.
	body, err := io.ReadAll(io.LimitReader(req.Body, maxProxyBodyBytes+1))
	if err != nil {
		return BadRequest(c, "failed to read request body")
	}
	if len(body) > maxProxyBodyBytes {
		return JSONError(c, http.StatusRequestEntityTooLarge, "request body too large")
	}

	if h.cfg.UseMockAPI() {
		return h.serveMock(c, relPath, body)
	}
	if h.bridge == nil {
		// Misconfiguration: no upstream and mock not selected. Never attempt
		// a network call to an empty address.
		return JSONError(c, http.StatusInternalServerError, "BACKEND_API_URL is not configured")
	}

	h.metrics.ProxyRequestsTotal.Inc()
	result, err := h.bridge.Forward(req.Context(), req.Method, relPath, req.URL.RawQuery, body, req.Header, session)
	if err != nil {
		h.metrics.ProxyErrorsTotal.Inc()
		log.Warn().Err(err).Str("path", relPath).Msg("upstream call failed")
		if h.cfg.Backend.FallbackOnError {
			h.metrics.MockFallbacksTotal.Inc()
			return h.serveMock(c, relPath, body)
		}
		return BadGateway(c)
	}

	if result.IsStream() {
		return h.passThroughStream(c, result)
	}

	contentType := result.ContentType
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	return c.Blob(result.StatusCode, contentType, result.Body)
}

func (h *ProxyHandler) serveMock(c echo.Context, relPath string, body []byte) error {
	h.metrics.MockRequestsTotal.Inc()
	session := middleware.SessionFromContext(c)
	resp := h.mock.Dispatch(session, c.Request().Method, relPath, c.QueryParams(), body)
	return c.JSON(resp.Status, resp.Body)
}

// passThroughStream copies an upstream event stream to the client untouched,
// flushing frame by frame; lifetime is governed solely by either side
// closing.
func (h *ProxyHandler) passThroughStream(c echo.Context, result *adapter.ProxyResult) error {
	defer result.Stream.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, result.ContentType)
	res.Header().Set("Cache-Control", "no-cache")
	res.WriteHeader(result.StatusCode)

	buf := make([]byte, 4096)
	for {
		n, err := result.Stream.Read(buf)
		if n > 0 {
			if _, werr := res.Write(buf[:n]); werr != nil {
				return nil
			}
			res.Flush()
		}
		if err != nil {
			return nil
		}
	}
}
