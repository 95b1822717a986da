package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomity/src/datamodels"
	"autonomity/src/metrics"
	"autonomity/src/simulation"
)

type stubProvider struct {
	bars []datamodels.Bar
}

func (s *stubProvider) GetName() string {
	return "stub"
}

func (s *stubProvider) FetchBars(ctx context.Context, symbol, period, interval string) ([]datamodels.Bar, error) {
	if symbol == "EMPTY" {
		return nil, nil
	}
	return s.bars, nil
}

func flatBars(n int) []datamodels.Bar {
	start := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	bars := make([]datamodels.Bar, n)
	for i := range bars {
		bars[i] = datamodels.Bar{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Open:      100,
			High:      100,
			Low:       100,
			Close:     100,
			Volume:    1000,
		}
	}
	return bars
}

func newTestServer(t *testing.T, bars int) (*Server, *metrics.WebsocketMetricsWriter) {
	t.Helper()
	sim, err := simulation.NewSimulation(&stubProvider{bars: flatBars(bars)}).
		WithMaxAutoSteps(5).
		Build()
	require.NoError(t, err)

	wsWriter := metrics.NewWebSocketMetricsWriter()
	srv, err := NewServer(datamodels.ServerConfig{
		Port:        ":0",
		CorsOrigins: []string{"*"},
		GinMode:     gin.TestMode,
	}).
		WithSimulation(sim).
		WithWebsocketWriter(wsWriter).
		WithGatherer(prometheus.NewRegistry()).
		Build()
	require.NoError(t, err)
	return srv, wsWriter
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) datamodels.Snapshot {
	t.Helper()
	var snapshot datamodels.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	return snapshot
}

func TestBuildRequiresSimulation(t *testing.T) {
	_, err := NewServer(datamodels.ServerConfig{}).Build()
	assert.Error(t, err)
}

func TestStateBeforeInit(t *testing.T) {
	srv, _ := newTestServer(t, 5)

	for _, call := range []struct{ method, path string }{
		{http.MethodGet, "/api/state"},
		{http.MethodPost, "/api/step"},
		{http.MethodPost, "/api/auto-step"},
	} {
		w := doRequest(t, srv, call.method, call.path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, call.path)
		assert.Contains(t, w.Body.String(), "not initialized", call.path)
	}
}

func TestInitDefaults(t *testing.T) {
	srv, _ := newTestServer(t, 5)

	w := doRequest(t, srv, http.MethodPost, "/api/init", "")
	require.Equal(t, http.StatusOK, w.Code)
	snapshot := decodeSnapshot(t, w)
	assert.Equal(t, "AAPL", snapshot.Ticker)
	assert.Equal(t, "5d", snapshot.Period)
	assert.Equal(t, "5m", snapshot.Interval)
	assert.Equal(t, 0, snapshot.Step)
	assert.Len(t, snapshot.Agents, 5)
}

func TestInitErrors(t *testing.T) {
	srv, _ := newTestServer(t, 5)

	w := doRequest(t, srv, http.MethodPost, "/api/init", `{"ticker": "AAPL", "period": "7d"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, srv, http.MethodPost, "/api/init", `{"ticker": "EMPTY"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, srv, http.MethodPost, "/api/init", `{"ticker": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	badRecipe := `{"custom_agents": [{"name": "Mine", "type": "recipe", "recipe": {"mode": "sideways"}}]}`
	w = doRequest(t, srv, http.MethodPost, "/api/init", badRecipe)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	badAgents := map[string]string{
		"duplicate name": `{"custom_agents": [{"name": "Conservative", "type": "momentum"}]}`,
		"empty name":     `{"custom_agents": [{"name": "", "type": "momentum"}]}`,
		"unknown type":   `{"custom_agents": [{"name": "Mine", "type": "bogus"}]}`,
	}
	for name, body := range badAgents {
		w = doRequest(t, srv, http.MethodPost, "/api/init", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.NotContains(t, w.Body.String(), "Unexpected error", name)
	}
}

func TestInitWithCustomAgent(t *testing.T) {
	srv, _ := newTestServer(t, 5)

	body := `{
		"ticker": "MSFT",
		"custom_agents": [{
			"name": "Dip Buyer",
			"type": "recipe",
			"followers": 12,
			"recipe": {"mode": "basic", "basic": {"entry_rule": "price_vs_sma", "exit_rule": "stop_loss"}}
		}]
	}`
	w := doRequest(t, srv, http.MethodPost, "/api/init", body)
	require.Equal(t, http.StatusOK, w.Code)
	snapshot := decodeSnapshot(t, w)
	agent, ok := snapshot.GetAgent("Dip Buyer")
	require.True(t, ok)
	assert.Equal(t, 12, agent.Followers)
	assert.Equal(t, "MSFT", snapshot.Ticker)
}

func TestStepAndAutoStep(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	require.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodPost, "/api/init", "").Code)

	w := doRequest(t, srv, http.MethodPost, "/api/step", "")
	require.Equal(t, http.StatusOK, w.Code)
	snapshot := decodeSnapshot(t, w)
	assert.Equal(t, 1, snapshot.Step)
	assert.Len(t, snapshot.TradeLog, 5)

	w = doRequest(t, srv, http.MethodPost, "/api/auto-step", `{"steps": 2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decodeSnapshot(t, w).Step)

	w = doRequest(t, srv, http.MethodPost, "/api/auto-step", `{"steps": 50}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 8, decodeSnapshot(t, w).Step, "capped at five steps")

	w = doRequest(t, srv, http.MethodPost, "/api/auto-step", `{"steps": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, srv, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 8, decodeSnapshot(t, w).Step)
}

func TestAutoStepDefault(t *testing.T) {
	srv, _ := newTestServer(t, 30)
	require.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodPost, "/api/init", "").Code)

	w := doRequest(t, srv, http.MethodPost, "/api/auto-step", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decodeSnapshot(t, w).Step, "default of ten is capped at five")
}

func TestHealthAndVersion(t *testing.T) {
	srv, _ := newTestServer(t, 5)

	w := doRequest(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Contains(t, health.Usage, "num_goroutine")

	w = doRequest(t, srv, http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_version")

	w = doRequest(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCorsPreflight(t *testing.T) {
	srv, _ := newTestServer(t, 5)
	req := httptest.NewRequest(http.MethodOptions, "/api/step", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebsocketReceivesSnapshots(t *testing.T) {
	srv, wsWriter := newTestServer(t, 5)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var welcome WebSocketResponse
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.True(t, welcome.Success)
	require.Eventually(t, func() bool { return wsWriter.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Post(ts.URL+"/api/init", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var message metrics.WebsocketMessage
	require.NoError(t, conn.ReadJSON(&message))
	assert.Equal(t, datamodels.MetricNameSnapshot, message.Type)

	var snapshot datamodels.Snapshot
	require.NoError(t, json.Unmarshal(message.Data, &snapshot))
	assert.Equal(t, 0, snapshot.Step)
	assert.Len(t, snapshot.Agents, 5)
}
