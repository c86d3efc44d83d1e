// Package metrics defines the Prometheus metrics exposed on /metrics:
// proxy traffic, mock-backend usage, auth failures and event-stream health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard service.
type Metrics struct {
	ProxyRequestsTotal  prometheus.Counter // Requests forwarded to the upstream backend
	ProxyErrorsTotal    prometheus.Counter // Upstream calls that failed at the network level
	MockRequestsTotal   prometheus.Counter // Requests answered by the mock backend
	MockFallbacksTotal  prometheus.Counter // Times the opt-in fallback rescued an upstream failure
	AuthFailuresTotal   prometheus.Counter // Requests denied by the auth gate
	SSEClients          prometheus.Gauge   // Currently connected event-stream clients
	EventsEmittedTotal  prometheus.Counter // Events pushed to clients (mock mode)
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, keeping tests
// isolated from the global one.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ProxyRequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bff_proxy_requests_total",
			Help: "Total requests forwarded to the upstream backend",
		}),
		ProxyErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bff_proxy_errors_total",
			Help: "Total upstream calls that failed at the network level",
		}),
		MockRequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bff_mock_requests_total",
			Help: "Total requests answered by the mock backend",
		}),
		MockFallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bff_mock_fallbacks_total",
			Help: "Total upstream failures recovered by the mock fallback",
		}),
		AuthFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bff_auth_failures_total",
			Help: "Total requests denied by the auth gate",
		}),
		SSEClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bff_sse_clients",
			Help: "Currently connected event-stream clients",
		}),
		EventsEmittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bff_events_emitted_total",
			Help: "Total events pushed to event-stream clients in mock mode",
		}),
	}
}
