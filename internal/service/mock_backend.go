// Package service implements the mock trading backend: an in-process state
// store answering the same REST surface the real backend would, plus the
// simulator that synthesizes telemetry from it.
package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rtlab-dashboard/internal/domain"
)

// Rolling-list caps. The audit file keeps the full history; these bound only
// what is held in memory and in the snapshot.
const (
	maxLogEntries = 200
	maxAlerts     = 100
)

// MockBackend owns the process-wide store state. All mutations go through
// its mutex; handlers and the simulator never touch the state directly.
type MockBackend struct {
	mu    sync.Mutex
	state *domain.StoreState
	repo  domain.StateRepository
	emit  func(domain.Event)
}

// MockResponse is what Dispatch hands back to the HTTP layer.
type MockResponse struct {
	Status int
	Body   any
}

func errorResponse(status int, format string, args ...any) *MockResponse {
	return &MockResponse{Status: status, Body: map[string]string{"error": fmt.Sprintf(format, args...)}}
}

func okResponse(body any) *MockResponse {
	return &MockResponse{Status: http.StatusOK, Body: body}
}

// NewMockBackend restores the store from a prior snapshot, or seeds a fresh
// one when none exists.
func NewMockBackend(repo domain.StateRepository) (*MockBackend, error) {
	state, err := repo.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to restore mock state: %w", err)
	}
	if state == nil {
		state = seedState()
		log.Info().Msg("mock backend seeded with fresh state")
	} else {
		log.Info().Time("saved_at", state.SavedAt).Msg("mock backend restored from snapshot")
	}
	m := &MockBackend{state: state, repo: repo}
	m.persistLocked()
	return m, nil
}

// SetEmitter wires the event hub. Events synthesized by mutations are sent
// through it; a nil emitter drops them.
func (m *MockBackend) SetEmitter(emit func(domain.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emit = emit
}

// Dispatch answers one REST call against the store. path is relative to the
// /api prefix (e.g. "/control/pause"). Mutating methods require the admin
// role; the check happens here, server-side, regardless of what the UI
// disables.
func (m *MockBackend) Dispatch(session *domain.Session, method, path string, query url.Values, body []byte) *MockResponse {
	if session == nil {
		return errorResponse(http.StatusUnauthorized, "authentication required")
	}
	if method != http.MethodGet && !session.CanMutate() {
		return errorResponse(http.StatusForbidden, "admin role required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	segments := strings.Split(strings.Trim(path, "/"), "/")
	switch segments[0] {
	case "status":
		return okResponse(m.state.Status)
	case "settings":
		return m.handleSettings(session, method, body)
	case "strategies":
		return m.handleStrategies(session, method, segments, body)
	case "backtests":
		return m.handleBacktests(session, method, segments, body)
	case "trades":
		return okResponse(cloneTrades(m.state.Trades, limitParam(query)))
	case "positions":
		return okResponse(clonePositions(m.state.Positions))
	case "portfolio":
		return okResponse(m.state.Portfolio)
	case "risk":
		return okResponse(m.state.Risk)
	case "execution":
		return okResponse(m.state.Exec)
	case "alerts":
		return okResponse(cloneAlerts(m.state.Alerts, limitParam(query)))
	case "logs":
		return okResponse(cloneLogs(m.state.Logs, limitParam(query)))
	case "control":
		if len(segments) != 2 || method != http.MethodPost {
			return errorResponse(http.StatusNotFound, "unknown control action")
		}
		return m.handleControl(session, segments[1])
	default:
		return errorResponse(http.StatusNotFound, "not found: %s", path)
	}
}

func (m *MockBackend) handleSettings(session *domain.Session, method string, body []byte) *MockResponse {
	switch method {
	case http.MethodGet:
		return okResponse(m.state.Settings)
	case http.MethodPut:
		var next domain.BotSettings
		if err := json.Unmarshal(body, &next); err != nil {
			return errorResponse(http.StatusBadRequest, "invalid settings payload: %v", err)
		}
		if next.MaxOpenPositions <= 0 || next.RiskPerTradePct <= 0 || next.OrderSizeUSD <= 0 {
			return errorResponse(http.StatusBadRequest, "settings values must be positive")
		}
		next.UpdatedAt = time.Now()
		next.UpdatedBy = session.Username
		m.state.Settings = next
		m.appendLog(domain.SeverityInfo, "settings", "bot settings updated", session.Username)
		m.persistLocked()
		return okResponse(m.state.Settings)
	default:
		return errorResponse(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (m *MockBackend) handleStrategies(session *domain.Session, method string, segments []string, body []byte) *MockResponse {
	if len(segments) == 1 {
		switch method {
		case http.MethodGet:
			return okResponse(cloneStrategies(m.state.Strategies))
		case http.MethodPost:
			var s domain.Strategy
			if err := json.Unmarshal(body, &s); err != nil {
				return errorResponse(http.StatusBadRequest, "invalid strategy payload: %v", err)
			}
			if s.Name == "" || len(s.Symbols) == 0 {
				return errorResponse(http.StatusBadRequest, "strategy name and symbols are required")
			}
			s.ID = uuid.NewString()
			s.UpdatedAt = time.Now()
			m.state.Strategies = append(m.state.Strategies, s)
			m.appendLog(domain.SeverityInfo, "strategy", fmt.Sprintf("strategy %q registered", s.Name), session.Username)
			m.emitEvent(domain.EventStrategyChanged, domain.SeverityInfo, "strategy", map[string]any{
				"strategy_id": s.ID, "action": "created",
			})
			m.persistLocked()
			return &MockResponse{Status: http.StatusCreated, Body: s}
		default:
			return errorResponse(http.StatusMethodNotAllowed, "method not allowed")
		}
	}

	id := segments[1]
	idx := -1
	for i := range m.state.Strategies {
		if m.state.Strategies[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errorResponse(http.StatusNotFound, "strategy %s not found", id)
	}

	switch method {
	case http.MethodGet:
		return okResponse(m.state.Strategies[idx])
	case http.MethodPut:
		var s domain.Strategy
		if err := json.Unmarshal(body, &s); err != nil {
			return errorResponse(http.StatusBadRequest, "invalid strategy payload: %v", err)
		}
		s.ID = id
		s.UpdatedAt = time.Now()
		m.state.Strategies[idx] = s
		m.appendLog(domain.SeverityInfo, "strategy", fmt.Sprintf("strategy %q updated", s.Name), session.Username)
		m.emitEvent(domain.EventStrategyChanged, domain.SeverityInfo, "strategy", map[string]any{
			"strategy_id": id, "action": "updated",
		})
		m.persistLocked()
		return okResponse(s)
	case http.MethodDelete:
		name := m.state.Strategies[idx].Name
		m.state.Strategies = append(m.state.Strategies[:idx], m.state.Strategies[idx+1:]...)
		m.appendLog(domain.SeverityWarning, "strategy", fmt.Sprintf("strategy %q removed", name), session.Username)
		m.emitEvent(domain.EventStrategyChanged, domain.SeverityWarning, "strategy", map[string]any{
			"strategy_id": id, "action": "deleted",
		})
		m.persistLocked()
		return okResponse(map[string]bool{"ok": true})
	default:
		return errorResponse(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (m *MockBackend) handleBacktests(session *domain.Session, method string, segments []string, body []byte) *MockResponse {
	if len(segments) == 1 {
		switch method {
		case http.MethodGet:
			return okResponse(cloneBacktests(m.state.Backtests))
		case http.MethodPost:
			var req struct {
				StrategyID string    `json:"strategy_id"`
				Symbol     string    `json:"symbol"`
				From       time.Time `json:"from"`
				To         time.Time `json:"to"`
			}
			if err := json.Unmarshal(body, &req); err != nil {
				return errorResponse(http.StatusBadRequest, "invalid backtest payload: %v", err)
			}
			if req.StrategyID == "" || req.Symbol == "" {
				return errorResponse(http.StatusBadRequest, "strategy_id and symbol are required")
			}
			run := domain.BacktestRun{
				ID:         uuid.NewString(),
				StrategyID: req.StrategyID,
				Symbol:     req.Symbol,
				From:       req.From,
				To:         req.To,
				Status:     domain.BacktestRunning,
				LaunchedBy: session.Username,
				LaunchedAt: time.Now(),
			}
			m.state.Backtests = append([]domain.BacktestRun{run}, m.state.Backtests...)
			m.appendLog(domain.SeverityInfo, "backtest", fmt.Sprintf("backtest launched for %s", run.Symbol), session.Username)
			m.persistLocked()
			return &MockResponse{Status: http.StatusAccepted, Body: run}
		default:
			return errorResponse(http.StatusMethodNotAllowed, "method not allowed")
		}
	}

	if method != http.MethodGet {
		return errorResponse(http.StatusMethodNotAllowed, "method not allowed")
	}
	for i := range m.state.Backtests {
		if m.state.Backtests[i].ID == segments[1] {
			return okResponse(m.state.Backtests[i])
		}
	}
	return errorResponse(http.StatusNotFound, "backtest %s not found", segments[1])
}

// handleControl runs the bot-status state machine. KILLED is terminal: once
// there, every further action is rejected until an external reset outside
// this service.
func (m *MockBackend) handleControl(session *domain.Session, action string) *MockResponse {
	target, ok := map[string]string{
		"pause":     domain.BotPaused,
		"resume":    domain.BotRunning,
		"safe-mode": domain.BotSafeMode,
		"kill":      domain.BotKilled,
	}[action]
	if !ok {
		return errorResponse(http.StatusNotFound, "unknown control action: %s", action)
	}

	current := m.state.Status.BotStatus
	if !canTransition(current, target) {
		return errorResponse(http.StatusConflict, "cannot %s: bot is %s", action, current)
	}

	m.state.Status.BotStatus = target
	msg := fmt.Sprintf("bot status %s -> %s", current, target)
	m.appendLog(domain.SeverityWarning, "control", msg, session.Username)

	severity := domain.SeverityWarning
	if target == domain.BotKilled {
		severity = domain.SeverityCritical
	}
	if target == domain.BotKilled || target == domain.BotSafeMode {
		// Risk-relevant transitions surface as alerts, not just log lines.
		m.appendAlert(severity, "control", msg)
	}
	m.emitEvent(domain.EventHealth, severity, "control", map[string]any{
		"bot_status": target,
		"actor":      session.Username,
	})
	m.persistLocked()
	return okResponse(m.state.Status)
}

func canTransition(from, to string) bool {
	if from == domain.BotKilled {
		return false
	}
	if to == domain.BotKilled {
		return true
	}
	switch to {
	case domain.BotPaused:
		return from == domain.BotRunning
	case domain.BotRunning:
		return from == domain.BotPaused || from == domain.BotSafeMode
	case domain.BotSafeMode:
		return from == domain.BotRunning || from == domain.BotPaused
	}
	return false
}

// appendLog prepends a capped log entry and mirrors it to the audit trail.
// Callers hold the mutex.
func (m *MockBackend) appendLog(level, module, message, actor string) {
	entry := domain.LogEntry{
		ID:      uuid.NewString(),
		TS:      time.Now(),
		Level:   level,
		Module:  module,
		Message: message,
		Actor:   actor,
	}
	m.state.Logs = append([]domain.LogEntry{entry}, m.state.Logs...)
	if len(m.state.Logs) > maxLogEntries {
		m.state.Logs = m.state.Logs[:maxLogEntries]
	}
	if err := m.repo.AppendAudit(entry); err != nil {
		log.Warn().Err(err).Msg("audit append failed")
	}
}

// appendAlert prepends a capped alert entry. Callers hold the mutex.
func (m *MockBackend) appendAlert(severity, module, message string) {
	alert := domain.Alert{
		ID:       uuid.NewString(),
		TS:       time.Now(),
		Severity: severity,
		Module:   module,
		Message:  message,
	}
	m.state.Alerts = append([]domain.Alert{alert}, m.state.Alerts...)
	if len(m.state.Alerts) > maxAlerts {
		m.state.Alerts = m.state.Alerts[:maxAlerts]
	}
}

func (m *MockBackend) emitEvent(kind, severity, module string, data map[string]any) {
	if m.emit == nil {
		return
	}
	m.emit(domain.Event{
		Type:     kind,
		TS:       time.Now(),
		Severity: severity,
		Module:   module,
		Data:     data,
	})
}

// persistLocked recomputes derived aggregates and writes the snapshot.
// Derived fields are never stored as independently-mutable state; they are
// rebuilt from the primary collections on every save. Callers hold the mutex.
func (m *MockBackend) persistLocked() {
	recomputeDerived(m.state)
	m.state.SavedAt = time.Now()
	if err := m.repo.Save(m.state); err != nil {
		log.Warn().Err(err).Msg("mock state save failed")
	}
}

func recomputeDerived(s *domain.StoreState) {
	total := 0.0
	bySymbol := make(map[string]float64, len(s.Positions))
	unreal := 0.0
	for _, p := range s.Positions {
		exposure := p.Qty * p.MarkPrice
		if exposure < 0 {
			exposure = -exposure
		}
		total += exposure
		bySymbol[p.Symbol] += exposure
		unreal += p.UnrealPnL
	}
	s.Risk.TotalExposure = total
	s.Risk.ExposureBySymbol = bySymbol
	s.Risk.OpenPositions = len(s.Positions)
	s.Portfolio.UnrealPnL = unreal
	s.Portfolio.Equity = s.Portfolio.Balance + unreal

	s.Exec.P50LatencyMS = percentile(s.Exec.LatencyMS, 0.50)
	s.Exec.P95LatencyMS = percentile(s.Exec.LatencyMS, 0.95)

	s.Status.Healthy = s.Status.APIConnected && s.Status.FeedConnected &&
		s.Status.BotStatus != domain.BotKilled
}

func percentile(series []float64, q float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}

func limitParam(query url.Values) int {
	if v := query.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// The clone helpers hand out copies so the HTTP layer can serialize after the
// mutex is released while the simulator keeps mutating the originals.

func cloneTrades(in []domain.Trade, limit int) []domain.Trade {
	if limit <= 0 || limit > len(in) {
		limit = len(in)
	}
	return append([]domain.Trade(nil), in[:limit]...)
}

func clonePositions(in []domain.Position) []domain.Position {
	return append([]domain.Position(nil), in...)
}

func cloneStrategies(in []domain.Strategy) []domain.Strategy {
	return append([]domain.Strategy(nil), in...)
}

func cloneBacktests(in []domain.BacktestRun) []domain.BacktestRun {
	return append([]domain.BacktestRun(nil), in...)
}

func cloneAlerts(in []domain.Alert, limit int) []domain.Alert {
	if limit <= 0 || limit > len(in) {
		limit = len(in)
	}
	return append([]domain.Alert(nil), in[:limit]...)
}

func cloneLogs(in []domain.LogEntry, limit int) []domain.LogEntry {
	if limit <= 0 || limit > len(in) {
		limit = len(in)
	}
	return append([]domain.LogEntry(nil), in[:limit]...)
}
