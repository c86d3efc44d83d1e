package domain

import "time"

// Bot status values. KILLED is terminal; there is no transition out of it
// without an external reset that this service does not model.
const (
	BotRunning  = "RUNNING"
	BotPaused   = "PAUSED"
	BotSafeMode = "SAFE_MODE"
	BotKilled   = "KILLED"
)

// Backtest run states
const (
	BacktestQueued   = "QUEUED"
	BacktestRunning  = "RUNNING"
	BacktestFinished = "FINISHED"
	BacktestFailed   = "FAILED"
)

// BotStatus is the top-level health block of the trading system.
type BotStatus struct {
	BotStatus     string    `json:"bot_status"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Version       string    `json:"version"`
	Environment   string    `json:"environment"`
	APIConnected  bool      `json:"api_connected"`
	FeedConnected bool      `json:"feed_connected"`
	Healthy       bool      `json:"healthy"` // derived: recomputed on every save
}

// BotSettings is the editable runtime profile of the bot.
type BotSettings struct {
	MaxOpenPositions int     `json:"max_open_positions"`
	MaxDailyLossPct  float64 `json:"max_daily_loss_pct"`
	RiskPerTradePct  float64 `json:"risk_per_trade_pct"`
	OrderSizeUSD     float64 `json:"order_size_usd"`
	BreakerArmed     bool    `json:"breaker_armed"`
	UpdatedAt        time.Time `json:"updated_at"`
	UpdatedBy        string    `json:"updated_by"`
}

// Strategy is one entry in the strategy registry.
type Strategy struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Symbols   []string           `json:"symbols"`
	Timeframe string             `json:"timeframe"`
	Enabled   bool               `json:"enabled"`
	Params    map[string]float64 `json:"params"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// BacktestRun is one launched backtest and, once finished, its result summary.
type BacktestRun struct {
	ID         string     `json:"id"`
	StrategyID string     `json:"strategy_id"`
	Symbol     string     `json:"symbol"`
	From       time.Time  `json:"from"`
	To         time.Time  `json:"to"`
	Status     string     `json:"status"`
	LaunchedBy string     `json:"launched_by"`
	LaunchedAt time.Time  `json:"launched_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Result     *BacktestResult `json:"result,omitempty"`
}

// BacktestResult is the summary the upstream engine reports for a finished run.
type BacktestResult struct {
	Trades      int     `json:"trades"`
	WinRate     float64 `json:"win_rate"`
	PnLPct      float64 `json:"pnl_pct"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Sharpe      float64 `json:"sharpe"`
}

// Trade is a closed (or closing) trade record.
type Trade struct {
	ID       string    `json:"id"`
	Symbol   string    `json:"symbol"`
	Side     string    `json:"side"`
	Qty      float64   `json:"qty"`
	Entry    float64   `json:"entry"`
	Exit     float64   `json:"exit"`
	PnL      float64   `json:"pnl"`
	Strategy string    `json:"strategy"`
	OpenedAt time.Time `json:"opened_at"`
	ClosedAt time.Time `json:"closed_at"`
}

// Position is an open position.
type Position struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Qty        float64   `json:"qty"`
	Entry      float64   `json:"entry"`
	MarkPrice  float64   `json:"mark_price"`
	UnrealPnL  float64   `json:"unreal_pnl"`
	Strategy   string    `json:"strategy"`
	OpenedAt   time.Time `json:"opened_at"`
}

// Portfolio is the account-level snapshot.
type Portfolio struct {
	Equity      float64 `json:"equity"`
	Balance     float64 `json:"balance"`
	RealizedPnL float64 `json:"realized_pnl"`
	UnrealPnL   float64 `json:"unreal_pnl"`
	Currency    string  `json:"currency"`
}

// RiskSnapshot carries the current risk posture. Exposure fields are derived
// from open positions and recomputed on every save.
type RiskSnapshot struct {
	TotalExposure    float64            `json:"total_exposure"`
	ExposureBySymbol map[string]float64 `json:"exposure_by_symbol"`
	DailyLossPct     float64            `json:"daily_loss_pct"`
	MaxDrawdownPct   float64            `json:"max_drawdown_pct"`
	BreakerTripped   bool               `json:"breaker_tripped"`
	OpenPositions    int                `json:"open_positions"`
}

// ExecStats carries order-execution telemetry. P50/P95 are derived from the
// latency series and recomputed on every save.
type ExecStats struct {
	LatencyMS    []float64 `json:"latency_ms"`
	P50LatencyMS float64   `json:"p50_latency_ms"`
	P95LatencyMS float64   `json:"p95_latency_ms"`
	FillRate     float64   `json:"fill_rate"`
	OrdersToday  int       `json:"orders_today"`
	RejectsToday int       `json:"rejects_today"`
}

// Alert is one entry in the bounded, most-recent-first alert list.
type Alert struct {
	ID       string    `json:"id"`
	TS       time.Time `json:"ts"`
	Severity string    `json:"severity"`
	Module   string    `json:"module"`
	Message  string    `json:"message"`
}

// LogEntry is one entry in the bounded, most-recent-first log list. The same
// entries are mirrored to the append-only audit file.
type LogEntry struct {
	ID      string    `json:"id"`
	TS      time.Time `json:"ts"`
	Level   string    `json:"level"`
	Module  string    `json:"module"`
	Message string    `json:"message"`
	Actor   string    `json:"actor,omitempty"`
}

// StoreState is the full mock-backend aggregate. It is owned by the mock
// backend service, which serializes all mutations; nothing else holds a
// reference to it.
type StoreState struct {
	Status     BotStatus     `json:"status"`
	Settings   BotSettings   `json:"settings"`
	Strategies []Strategy    `json:"strategies"`
	Backtests  []BacktestRun `json:"backtests"`
	Trades     []Trade       `json:"trades"`
	Positions  []Position    `json:"positions"`
	Portfolio  Portfolio     `json:"portfolio"`
	Risk       RiskSnapshot  `json:"risk"`
	Exec       ExecStats     `json:"exec"`
	Alerts     []Alert       `json:"alerts"`
	Logs       []LogEntry    `json:"logs"`
	SavedAt    time.Time     `json:"saved_at"`
}
