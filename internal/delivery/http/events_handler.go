package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"rtlab-dashboard/configs"
	"rtlab-dashboard/internal/adapter"
	"rtlab-dashboard/internal/domain"
	"rtlab-dashboard/internal/metrics"
	"rtlab-dashboard/internal/middleware"
)

// EventsHandler serves GET /api/events: one long-lived SSE connection per
// client, proxied from the upstream in real mode or synthesized from the
// mock store otherwise.
type EventsHandler struct {
	cfg     *configs.Config
	hub     *EventHub
	bridge  *adapter.BackendBridge
	metrics *metrics.Metrics
}

// NewEventsHandler creates the handler. bridge may be nil in mock mode.
func NewEventsHandler(cfg *configs.Config, hub *EventHub, bridge *adapter.BackendBridge, m *metrics.Metrics) *EventsHandler {
	return &EventsHandler{cfg: cfg, hub: hub, bridge: bridge, metrics: m}
}

// Stream is the endpoint entry point.
func (h *EventsHandler) Stream(c echo.Context) error {
	session := middleware.SessionFromContext(c)
	if session == nil {
		return Unauthorized(c, "authentication required")
	}

	if h.cfg.UseMockAPI() {
		return h.streamMock(c)
	}

	if h.bridge == nil {
		// Real mode forced with no upstream configured. Same fail-fast as the
		// proxy handler: never dial an empty address.
		return JSONError(c, http.StatusInternalServerError, "BACKEND_API_URL is not configured")
	}
	if h.cfg.Backend.InternalProxyToken == "" {
		// Real-mode streaming cannot authenticate to the upstream without
		// the shared token; this is a deployment error, not a degradation.
		return JSONError(c, http.StatusInternalServerError, "INTERNAL_PROXY_TOKEN is not configured")
	}

	stream, err := h.bridge.OpenEventStream(c.Request().Context(), session)
	if err != nil {
		log.Warn().Err(err).Msg("upstream event stream failed")
		if h.cfg.Backend.FallbackOnError {
			h.metrics.MockFallbacksTotal.Inc()
			return h.streamMock(c)
		}
		// Setup failed; answer 502 without ever opening a stream body.
		return BadGateway(c)
	}
	defer stream.Close()

	res := c.Response()
	writeStreamHeaders(res)

	buf := make([]byte, 4096)
	for {
		n, err := stream.Read(buf)
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

// streamMock subscribes the client to the simulator hub. The first frame is
// a synthetic health "connected" event; subsequent frames arrive in
// broadcast order until the client disconnects.
func (h *EventsHandler) streamMock(c echo.Context) error {
	res := c.Response()
	writeStreamHeaders(res)

	h.metrics.SSEClients.Inc()
	defer h.metrics.SSEClients.Dec()

	if err := writeSSE(res, domain.Event{
		Type:     domain.EventHealth,
		TS:       time.Now(),
		Severity: domain.SeverityInfo,
		Module:   "stream",
		Data:     map[string]any{"status": "connected"},
	}); err != nil {
		return nil
	}

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeSSE(res, event); err != nil {
				return nil
			}
			h.metrics.EventsEmittedTotal.Inc()
		}
	}
}

func writeStreamHeaders(res *echo.Response) {
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()
}

// writeSSE emits one `event: <type>` / `data: <json>` frame and flushes it.
func writeSSE(res *echo.Response, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
		return err
	}
	res.Flush()
	return nil
}
