package service

import (
	"fmt"
	"math/rand"
	"time"

	"rtlab-dashboard/internal/domain"
)

// EventWeights steers the per-tick weighted draw. The defaults are
// illustrative stand-ins for real backend telemetry, not load-bearing.
type EventWeights struct {
	Breaker  float64
	Fill     float64
	APIError float64
}

// DefaultEventWeights favors fills, with occasional breaker trips and API
// errors.
var DefaultEventWeights = EventWeights{Breaker: 0.15, Fill: 0.60, APIError: 0.25}

var simSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}

// Simulator synthesizes backend telemetry from the mock store. Each tick
// mutates the store (latency series rotation, heartbeat refresh, pending
// backtest completion) and emits exactly one event.
type Simulator struct {
	backend *MockBackend
	rng     *rand.Rand
	Weights EventWeights
}

// NewSimulator creates a simulator over the given backend. seed == 0 means
// time-seeded; tests pass a fixed seed.
func NewSimulator(backend *MockBackend, seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		backend: backend,
		rng:     rand.New(rand.NewSource(seed)),
		Weights: DefaultEventWeights,
	}
}

// Tick runs one simulation step and returns the emitted event.
func (s *Simulator) Tick() domain.Event {
	m := s.backend
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.state.Status.LastHeartbeat = now
	s.rotateLatency()

	// A breaker trip is a one-tick condition; clear it before drawing.
	m.state.Risk.BreakerTripped = false

	event := s.completePendingBacktest(now)
	if event == nil {
		event = s.drawEvent(now)
	}

	m.persistLocked()
	if m.emit != nil {
		m.emit(*event)
	}
	return *event
}

// rotateLatency drops the oldest latency sample and appends a fresh one,
// building a new slice so snapshots handed out earlier stay stable.
func (s *Simulator) rotateLatency() {
	series := s.backend.state.Exec.LatencyMS
	sample := 35 + s.rng.Float64()*40
	next := make([]float64, 0, len(series)+1)
	if len(series) > 0 {
		next = append(next, series[1:]...)
	}
	next = append(next, sample)
	s.backend.state.Exec.LatencyMS = next
}

// completePendingBacktest finishes the oldest still-running backtest that has
// aged past one tick, standing in for the asynchronous upstream engine.
func (s *Simulator) completePendingBacktest(now time.Time) *domain.Event {
	m := s.backend
	for i := len(m.state.Backtests) - 1; i >= 0; i-- {
		run := &m.state.Backtests[i]
		if run.Status != domain.BacktestRunning || now.Sub(run.LaunchedAt) < 3*time.Second {
			continue
		}
		run.Status = domain.BacktestFinished
		run.FinishedAt = &now
		run.Result = &domain.BacktestResult{
			Trades:      50 + s.rng.Intn(200),
			WinRate:     0.40 + s.rng.Float64()*0.25,
			PnLPct:      -5 + s.rng.Float64()*20,
			MaxDrawdown: 1 + s.rng.Float64()*9,
			Sharpe:      s.rng.Float64() * 2.5,
		}
		m.appendLog(domain.SeverityInfo, "backtest",
			fmt.Sprintf("backtest %s finished", run.ID), "system")
		return &domain.Event{
			Type:     domain.EventBacktestFinished,
			TS:       now,
			Severity: domain.SeverityInfo,
			Module:   "backtest",
			Data: map[string]any{
				"backtest_id": run.ID,
				"symbol":      run.Symbol,
				"pnl_pct":     run.Result.PnLPct,
			},
		}
	}
	return nil
}

// drawEvent picks the tick's scenario: risk (breaker), execution (fill) or
// failure (API error).
func (s *Simulator) drawEvent(now time.Time) *domain.Event {
	m := s.backend
	total := s.Weights.Breaker + s.Weights.Fill + s.Weights.APIError
	roll := s.rng.Float64() * total
	symbol := simSymbols[s.rng.Intn(len(simSymbols))]

	switch {
	case roll < s.Weights.Breaker:
		m.state.Risk.BreakerTripped = true
		msg := fmt.Sprintf("circuit breaker triggered on %s: volatility spike", symbol)
		m.appendLog(domain.SeverityCritical, "risk", msg, "system")
		m.appendAlert(domain.SeverityCritical, "risk", msg)
		return &domain.Event{
			Type:     domain.EventBreakerTriggered,
			TS:       now,
			Severity: domain.SeverityCritical,
			Module:   "risk",
			Data: map[string]any{
				"symbol": symbol,
				"reason": "volatility_spike",
			},
		}

	case roll < s.Weights.Breaker+s.Weights.Fill:
		side := "BUY"
		if s.rng.Intn(2) == 0 {
			side = "SELL"
		}
		qty := 0.001 + s.rng.Float64()*0.02
		price := 60000 + s.rng.Float64()*8000
		m.state.Exec.OrdersToday++
		m.appendLog(domain.SeverityInfo, "execution",
			fmt.Sprintf("order filled: %s %s %.4f @ %.2f", side, symbol, qty, price), "system")
		return &domain.Event{
			Type:     domain.EventFill,
			TS:       now,
			Severity: domain.SeverityInfo,
			Module:   "execution",
			Data: map[string]any{
				"symbol": symbol,
				"side":   side,
				"qty":    qty,
				"price":  price,
			},
		}

	default:
		m.state.Exec.RejectsToday++
		msg := fmt.Sprintf("exchange API error on %s: 503 service unavailable", symbol)
		m.appendLog(domain.SeverityError, "api", msg, "system")
		return &domain.Event{
			Type:     domain.EventAPIError,
			TS:       now,
			Severity: domain.SeverityError,
			Module:   "api",
			Data: map[string]any{
				"symbol": symbol,
				"status": 503,
			},
		}
	}
}
