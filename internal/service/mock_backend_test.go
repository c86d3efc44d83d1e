package service

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtlab-dashboard/internal/domain"
)

// memoryRepo is an in-memory StateRepository for tests.
type memoryRepo struct {
	saved *domain.StoreState
	audit []domain.LogEntry
}

func (r *memoryRepo) Load() (*domain.StoreState, error)      { return r.saved, nil }
func (r *memoryRepo) Save(s *domain.StoreState) error        { r.saved = s; return nil }
func (r *memoryRepo) AppendAudit(e domain.LogEntry) error    { r.audit = append(r.audit, e); return nil }

var (
	adminSession  = &domain.Session{Username: "ops", Role: domain.RoleAdmin}
	viewerSession = &domain.Session{Username: "desk", Role: domain.RoleViewer}
)

func newTestBackend(t *testing.T) (*MockBackend, *memoryRepo) {
	t.Helper()
	repo := &memoryRepo{}
	m, err := NewMockBackend(repo)
	require.NoError(t, err)
	return m, repo
}

func dispatch(m *MockBackend, session *domain.Session, method, path string, body string) *MockResponse {
	return m.Dispatch(session, method, path, url.Values{}, []byte(body))
}

func TestDispatchReadEndpoints(t *testing.T) {
	m, _ := newTestBackend(t)

	for _, path := range []string{
		"/status", "/settings", "/strategies", "/backtests", "/trades",
		"/positions", "/portfolio", "/risk", "/execution", "/alerts", "/logs",
	} {
		resp := dispatch(m, viewerSession, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, resp.Status, path)
	}
}

func TestDispatchUnknownPath(t *testing.T) {
	m, _ := newTestBackend(t)
	resp := dispatch(m, viewerSession, http.MethodGet, "/nonsense", "")
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestViewerCannotMutate(t *testing.T) {
	m, _ := newTestBackend(t)

	for _, call := range []struct{ method, path string }{
		{http.MethodPost, "/control/kill"},
		{http.MethodPut, "/settings"},
		{http.MethodPost, "/strategies"},
		{http.MethodPost, "/backtests"},
	} {
		resp := dispatch(m, viewerSession, call.method, call.path, "{}")
		assert.Equal(t, http.StatusForbidden, resp.Status, call.path)
	}

	// And the state is untouched.
	resp := dispatch(m, viewerSession, http.MethodGet, "/status", "")
	status := resp.Body.(domain.BotStatus)
	assert.Equal(t, domain.BotRunning, status.BotStatus)
}

func TestControlStateMachine(t *testing.T) {
	m, _ := newTestBackend(t)

	do := func(action string) *MockResponse {
		return dispatch(m, adminSession, http.MethodPost, "/control/"+action, "")
	}
	botStatus := func() string {
		return dispatch(m, adminSession, http.MethodGet, "/status", "").Body.(domain.BotStatus).BotStatus
	}

	assert.Equal(t, http.StatusOK, do("pause").Status)
	assert.Equal(t, domain.BotPaused, botStatus())

	assert.Equal(t, http.StatusOK, do("resume").Status)
	assert.Equal(t, domain.BotRunning, botStatus())

	// Pause is only valid from RUNNING.
	assert.Equal(t, http.StatusOK, do("safe-mode").Status)
	assert.Equal(t, domain.BotSafeMode, botStatus())
	assert.Equal(t, http.StatusConflict, do("pause").Status)

	assert.Equal(t, http.StatusOK, do("resume").Status)
	assert.Equal(t, domain.BotRunning, botStatus())
}

func TestKillIsTerminal(t *testing.T) {
	m, _ := newTestBackend(t)

	kill := dispatch(m, adminSession, http.MethodPost, "/control/kill", "")
	require.Equal(t, http.StatusOK, kill.Status)

	for _, action := range []string{"pause", "resume", "safe-mode", "kill"} {
		resp := dispatch(m, adminSession, http.MethodPost, "/control/"+action, "")
		assert.Equal(t, http.StatusConflict, resp.Status, action)
	}

	status := dispatch(m, adminSession, http.MethodGet, "/status", "").Body.(domain.BotStatus)
	assert.Equal(t, domain.BotKilled, status.BotStatus)
	assert.False(t, status.Healthy)
}

func TestKillAppendsAlertAndPersists(t *testing.T) {
	m, repo := newTestBackend(t)

	dispatch(m, adminSession, http.MethodPost, "/control/kill", "")

	alerts := dispatch(m, viewerSession, http.MethodGet, "/alerts", "").Body.([]domain.Alert)
	require.NotEmpty(t, alerts)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "KILLED")

	require.NotNil(t, repo.saved)
	assert.Equal(t, domain.BotKilled, repo.saved.Status.BotStatus)
	assert.NotEmpty(t, repo.audit)
}

func TestSettingsUpdate(t *testing.T) {
	m, _ := newTestBackend(t)

	resp := dispatch(m, adminSession, http.MethodPut, "/settings",
		`{"max_open_positions":8,"max_daily_loss_pct":2,"risk_per_trade_pct":0.25,"order_size_usd":100,"breaker_armed":true}`)
	require.Equal(t, http.StatusOK, resp.Status)

	settings := resp.Body.(domain.BotSettings)
	assert.Equal(t, 8, settings.MaxOpenPositions)
	assert.Equal(t, "ops", settings.UpdatedBy)
}

func TestSettingsRejectsBadPayload(t *testing.T) {
	m, _ := newTestBackend(t)

	assert.Equal(t, http.StatusBadRequest,
		dispatch(m, adminSession, http.MethodPut, "/settings", "{not json").Status)
	assert.Equal(t, http.StatusBadRequest,
		dispatch(m, adminSession, http.MethodPut, "/settings", `{"max_open_positions":-1}`).Status)
}

func TestStrategyCRUD(t *testing.T) {
	m, _ := newTestBackend(t)

	created := dispatch(m, adminSession, http.MethodPost, "/strategies",
		`{"name":"breakout-sol","symbols":["SOLUSDT"],"timeframe":"1m","enabled":true}`)
	require.Equal(t, http.StatusCreated, created.Status)
	strategy := created.Body.(domain.Strategy)
	require.NotEmpty(t, strategy.ID)

	got := dispatch(m, viewerSession, http.MethodGet, "/strategies/"+strategy.ID, "")
	assert.Equal(t, http.StatusOK, got.Status)

	updated := dispatch(m, adminSession, http.MethodPut, "/strategies/"+strategy.ID,
		`{"name":"breakout-sol","symbols":["SOLUSDT"],"timeframe":"5m","enabled":false}`)
	require.Equal(t, http.StatusOK, updated.Status)
	assert.Equal(t, "5m", updated.Body.(domain.Strategy).Timeframe)

	deleted := dispatch(m, adminSession, http.MethodDelete, "/strategies/"+strategy.ID, "")
	assert.Equal(t, http.StatusOK, deleted.Status)
	assert.Equal(t, http.StatusNotFound,
		dispatch(m, viewerSession, http.MethodGet, "/strategies/"+strategy.ID, "").Status)
}

func TestBacktestLaunch(t *testing.T) {
	m, _ := newTestBackend(t)

	resp := dispatch(m, adminSession, http.MethodPost, "/backtests",
		`{"strategy_id":"s1","symbol":"BTCUSDT"}`)
	require.Equal(t, http.StatusAccepted, resp.Status)
	run := resp.Body.(domain.BacktestRun)
	assert.Equal(t, domain.BacktestRunning, run.Status)
	assert.Equal(t, "ops", run.LaunchedBy)

	got := dispatch(m, viewerSession, http.MethodGet, "/backtests/"+run.ID, "")
	assert.Equal(t, http.StatusOK, got.Status)
}

func TestLogListIsCapped(t *testing.T) {
	m, repo := newTestBackend(t)

	for i := 0; i < maxLogEntries+50; i++ {
		m.mu.Lock()
		m.appendLog(domain.SeverityInfo, "test", "entry", "system")
		m.mu.Unlock()
	}

	logs := dispatch(m, viewerSession, http.MethodGet, "/logs", "").Body.([]domain.LogEntry)
	assert.Len(t, logs, maxLogEntries)
	// The audit trail keeps everything the capped list dropped.
	assert.GreaterOrEqual(t, len(repo.audit), maxLogEntries+50)
}

func TestDerivedFieldsRecomputedOnSave(t *testing.T) {
	m, repo := newTestBackend(t)

	m.mu.Lock()
	m.state.Positions = []domain.Position{
		{Symbol: "BTCUSDT", Qty: 0.01, MarkPrice: 60000, UnrealPnL: 5},
		{Symbol: "ETHUSDT", Qty: -0.5, MarkPrice: 3000, UnrealPnL: -2},
	}
	// Poison the derived fields; persist must rebuild them.
	m.state.Risk.TotalExposure = -1
	m.state.Risk.ExposureBySymbol = map[string]float64{"STALE": 1}
	m.persistLocked()
	m.mu.Unlock()

	risk := repo.saved.Risk
	assert.InDelta(t, 600+1500, risk.TotalExposure, 0.001)
	assert.InDelta(t, 600, risk.ExposureBySymbol["BTCUSDT"], 0.001)
	assert.InDelta(t, 1500, risk.ExposureBySymbol["ETHUSDT"], 0.001)
	assert.NotContains(t, risk.ExposureBySymbol, "STALE")
	assert.Equal(t, 2, risk.OpenPositions)
	assert.InDelta(t, 3, repo.saved.Portfolio.UnrealPnL, 0.001)
}

func TestNewMockBackendRestoresSnapshot(t *testing.T) {
	prior := seedState()
	prior.Status.BotStatus = domain.BotPaused
	repo := &memoryRepo{saved: prior}

	m, err := NewMockBackend(repo)
	require.NoError(t, err)

	status := dispatch(m, viewerSession, http.MethodGet, "/status", "").Body.(domain.BotStatus)
	assert.Equal(t, domain.BotPaused, status.BotStatus)
}
