package service

import (
	"time"

	"github.com/google/uuid"

	"rtlab-dashboard/internal/domain"
)

// seedState builds the deterministic initial aggregate used when no snapshot
// exists. Values are plausible stand-ins for local development, nothing more.
func seedState() *domain.StoreState {
	now := time.Now()
	momentumID := uuid.NewString()
	meanrevID := uuid.NewString()

	state := &domain.StoreState{
		Status: domain.BotStatus{
			BotStatus:     domain.BotRunning,
			StartedAt:     now,
			LastHeartbeat: now,
			Version:       "0.4.1-mock",
			Environment:   "mock",
			APIConnected:  true,
			FeedConnected: true,
		},
		Settings: domain.BotSettings{
			MaxOpenPositions: 5,
			MaxDailyLossPct:  3.0,
			RiskPerTradePct:  0.5,
			OrderSizeUSD:     250,
			BreakerArmed:     true,
			UpdatedAt:        now,
			UpdatedBy:        "system",
		},
		Strategies: []domain.Strategy{
			{
				ID:        momentumID,
				Name:      "momentum-btc",
				Symbols:   []string{"BTCUSDT"},
				Timeframe: "5m",
				Enabled:   true,
				Params:    map[string]float64{"lookback": 20, "threshold": 1.5},
				UpdatedAt: now,
			},
			{
				ID:        meanrevID,
				Name:      "meanrev-eth",
				Symbols:   []string{"ETHUSDT"},
				Timeframe: "15m",
				Enabled:   false,
				Params:    map[string]float64{"band_width": 2.0, "half_life": 12},
				UpdatedAt: now,
			},
		},
		Backtests: []domain.BacktestRun{
			{
				ID:         uuid.NewString(),
				StrategyID: momentumID,
				Symbol:     "BTCUSDT",
				From:       now.AddDate(0, -3, 0),
				To:         now.AddDate(0, 0, -1),
				Status:     domain.BacktestFinished,
				LaunchedBy: "system",
				LaunchedAt: now.Add(-26 * time.Hour),
				FinishedAt: timePtr(now.Add(-25 * time.Hour)),
				Result: &domain.BacktestResult{
					Trades:      142,
					WinRate:     0.56,
					PnLPct:      8.4,
					MaxDrawdown: 4.1,
					Sharpe:      1.3,
				},
			},
		},
		Trades: []domain.Trade{
			{
				ID: uuid.NewString(), Symbol: "BTCUSDT", Side: "LONG",
				Qty: 0.012, Entry: 64250, Exit: 64810, PnL: 6.72,
				Strategy: "momentum-btc",
				OpenedAt: now.Add(-3 * time.Hour), ClosedAt: now.Add(-2 * time.Hour),
			},
			{
				ID: uuid.NewString(), Symbol: "ETHUSDT", Side: "SHORT",
				Qty: 0.25, Entry: 3180, Exit: 3205, PnL: -6.25,
				Strategy: "meanrev-eth",
				OpenedAt: now.Add(-6 * time.Hour), ClosedAt: now.Add(-5 * time.Hour),
			},
		},
		Positions: []domain.Position{
			{
				Symbol: "BTCUSDT", Side: "LONG", Qty: 0.008,
				Entry: 64900, MarkPrice: 65120, UnrealPnL: 1.76,
				Strategy: "momentum-btc", OpenedAt: now.Add(-40 * time.Minute),
			},
		},
		Portfolio: domain.Portfolio{
			Balance:     10000,
			RealizedPnL: 0.47,
			Currency:    "USDT",
		},
		Risk: domain.RiskSnapshot{
			DailyLossPct:   0.4,
			MaxDrawdownPct: 2.2,
		},
		Exec: domain.ExecStats{
			LatencyMS:    []float64{42, 38, 51, 47, 45, 39, 60, 44, 41, 55, 48, 43},
			FillRate:     0.97,
			OrdersToday:  23,
			RejectsToday: 1,
		},
		Alerts: []domain.Alert{
			{
				ID: uuid.NewString(), TS: now.Add(-90 * time.Minute),
				Severity: domain.SeverityWarning, Module: "risk",
				Message: "daily loss at 40% of limit",
			},
		},
		Logs: []domain.LogEntry{
			{
				ID: uuid.NewString(), TS: now,
				Level: domain.SeverityInfo, Module: "system",
				Message: "mock backend initialized", Actor: "system",
			},
		},
	}
	recomputeDerived(state)
	return state
}

func timePtr(t time.Time) *time.Time { return &t }
