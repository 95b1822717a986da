package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
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

type fakeAuditFeed struct {
	mutex        sync.Mutex
	channels     map[string]chan string
	unsubscribed []string
}

func newFakeAuditFeed() *fakeAuditFeed {
	return &fakeAuditFeed{channels: map[string]chan string{}}
}

func (f *fakeAuditFeed) SubscribeAudit(ctx context.Context, simulationId string) (string, <-chan string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	ch := make(chan string, 4)
	f.channels[simulationId] = ch
	return "sub-" + simulationId, ch, nil
}

func (f *fakeAuditFeed) UnsubscribeAudit(simulationId, subscriberId string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if ch, ok := f.channels[simulationId]; ok {
		close(ch)
		delete(f.channels, simulationId)
	}
	f.unsubscribed = append(f.unsubscribed, subscriberId)
	return nil
}

func (f *fakeAuditFeed) publish(simulationId, msg string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	ch, ok := f.channels[simulationId]
	if ok {
		ch <- msg
	}
	return ok
}

func (f *fakeAuditFeed) getUnsubscribed() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string{}, f.unsubscribed...)
}

func newAuditServer(t *testing.T, feed *fakeAuditFeed) (*Server, *metrics.WebsocketMetricsWriter) {
	t.Helper()
	sim, err := simulation.NewSimulation(&stubProvider{bars: flatBars(5)}).Build()
	require.NoError(t, err)

	wsWriter := metrics.NewWebSocketMetricsWriter()
	srv, err := NewServer(datamodels.ServerConfig{GinMode: gin.TestMode}).
		WithSimulation(sim).
		WithWebsocketWriter(wsWriter).
		WithGatherer(prometheus.NewRegistry()).
		WithAuditFeed(feed).
		Build()
	require.NoError(t, err)
	return srv, wsWriter
}

func TestAuditEventsAreRelayedToWebsocket(t *testing.T) {
	feed := newFakeAuditFeed()
	srv, wsWriter := newAuditServer(t, feed)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	var welcome WebSocketResponse
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Eventually(t, func() bool { return wsWriter.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	w := doRequest(t, srv, http.MethodPost, "/api/init", "")
	require.Equal(t, http.StatusOK, w.Code)
	simulationId := decodeSnapshot(t, w).SimulationId

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var message metrics.WebsocketMessage
	require.NoError(t, conn.ReadJSON(&message))
	require.Equal(t, datamodels.MetricNameSnapshot, message.Type)

	require.True(t, feed.publish(simulationId, "trade:entry-1"))
	require.NoError(t, conn.ReadJSON(&message))
	assert.Equal(t, datamodels.MetricNameAuditEvent, message.Type)

	var event AuditEvent
	require.NoError(t, json.Unmarshal(message.Data, &event))
	assert.Equal(t, AuditEvent{SimulationId: simulationId, Kind: "trade", EntryId: "entry-1"}, event)
}

func TestReinitializeMovesAuditSubscription(t *testing.T) {
	feed := newFakeAuditFeed()
	srv, _ := newAuditServer(t, feed)

	w := doRequest(t, srv, http.MethodPost, "/api/init", "")
	require.Equal(t, http.StatusOK, w.Code)
	first := decodeSnapshot(t, w).SimulationId

	w = doRequest(t, srv, http.MethodPost, "/api/init", `{"ticker": "MSFT"}`)
	require.Equal(t, http.StatusOK, w.Code)
	second := decodeSnapshot(t, w).SimulationId
	require.NotEqual(t, first, second)

	assert.Equal(t, []string{"sub-" + first}, feed.getUnsubscribed())
	assert.False(t, feed.publish(first, "trade:x"))
	assert.True(t, feed.publish(second, "trade:y"))

	srv.stopAudit()
	assert.Equal(t, []string{"sub-" + first, "sub-" + second}, feed.getUnsubscribed())
}

func TestFailedInitKeepsAuditSubscription(t *testing.T) {
	feed := newFakeAuditFeed()
	srv, _ := newAuditServer(t, feed)

	w := doRequest(t, srv, http.MethodPost, "/api/init", "")
	require.Equal(t, http.StatusOK, w.Code)
	simulationId := decodeSnapshot(t, w).SimulationId

	w = doRequest(t, srv, http.MethodPost, "/api/init", `{"period": "7d"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, feed.getUnsubscribed())
	assert.True(t, feed.publish(simulationId, "regulation:r1"))
}
