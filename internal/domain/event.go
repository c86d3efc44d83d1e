package domain

import "time"

// Event kinds carried on the dashboard event stream.
const (
	EventHealth           = "health"
	EventFill             = "fill"
	EventOrderUpdate      = "order_update"
	EventBreakerTriggered = "breaker_triggered"
	EventAPIError         = "api_error"
	EventStrategyChanged  = "strategy_changed"
	EventBacktestFinished = "backtest_finished"
	EventTradeOpen        = "trade_open"
	EventTradeClose       = "trade_close"
)

// Severity levels for events, alerts and log entries.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Event is the tagged payload emitted on the SSE stream. Upstream events are
// proxied verbatim; mock events are synthesized from store mutations.
type Event struct {
	Type     string         `json:"type"`
	TS       time.Time      `json:"ts"`
	Severity string         `json:"severity"`
	Module   string         `json:"module"`
	Data     map[string]any `json:"data"`
}
