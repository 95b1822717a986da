package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"autonomity/src/datamodels"
)

const wsWriteTimeout = 5 * time.Second

// WebsocketMessage is what connected clients receive for every metric.
type WebsocketMessage struct {
	Type          string          `json:"type"`
	GeneratorId   string          `json:"generator_id"`
	GeneratorName string          `json:"generator_name"`
	Time          time.Time       `json:"time"`
	Data          json.RawMessage `json:"data"`
}

// WebsocketMetricsWriter broadcasts metrics to every connected client. A
// client whose write fails is dropped.
type WebsocketMetricsWriter struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewWebSocketMetricsWriter creates a new WebSocketMetricsWriter
func NewWebSocketMetricsWriter() *WebsocketMetricsWriter {
	return &WebsocketMetricsWriter{
		clients: make(map[*websocket.Conn]bool),
	}
}

// AddClient adds a new client connection
func (w *WebsocketMetricsWriter) AddClient(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[conn] = true
}

// RemoveClient removes a client connection
func (w *WebsocketMetricsWriter) RemoveClient(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.clients, conn)
}

func (w *WebsocketMetricsWriter) GetClientCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

func (w *WebsocketMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	message := WebsocketMessage{
		Type:          metric.MetricName,
		GeneratorId:   metric.MetricGeneratorId,
		GeneratorName: metric.MetricGeneratorName,
		Time:          metric.MetricTime,
		Data:          json.RawMessage(metric.MetricValue),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var lastErr error
	for client := range w.clients {
		client.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := client.WriteJSON(message); err != nil {
			slog.Warn("Dropping websocket client", "remote", client.RemoteAddr().String(), "error", err)
			client.Close()
			delete(w.clients, client)
			lastErr = err
		}
	}
	return lastErr
}

func (w *WebsocketMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for client := range w.clients {
		client.Close()
	}
	w.clients = make(map[*websocket.Conn]bool)
	return nil
}
