package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"autonomity/src/config"
	"autonomity/src/database"
	"autonomity/src/datamodels"
	"autonomity/src/metrics"
	"autonomity/src/simulation"
	"autonomity/src/utils/errors"
	"autonomity/src/utils/general"
)

// Server exposes the single Simulation over HTTP. Calls that touch the
// simulation are serialized so a step and its broadcast are never interleaved
// with another request.
type Server struct {
	config     datamodels.ServerConfig
	engine     *gin.Engine
	simulation *simulation.Simulation
	upgrader   websocket.Upgrader
	wsWriter   *metrics.WebsocketMetricsWriter
	gatherer   prometheus.Gatherer
	auditFeed  database.AuditFeed
	auditSub   *auditSubscription
	mutex      sync.Mutex
}

type serverBuilder struct {
	server *Server
}

func NewServer(serverConfig datamodels.ServerConfig) *serverBuilder {
	return &serverBuilder{
		server: &Server{
			config:   serverConfig,
			upgrader: config.NewDefaultWSConfig(serverConfig.CorsOrigins).Upgrader,
			gatherer: prometheus.DefaultGatherer,
		},
	}
}

func (sb *serverBuilder) WithSimulation(sim *simulation.Simulation) *serverBuilder {
	sb.server.simulation = sim
	return sb
}

func (sb *serverBuilder) WithWebsocketWriter(wsWriter *metrics.WebsocketMetricsWriter) *serverBuilder {
	sb.server.wsWriter = wsWriter
	return sb
}

// WithAuditFeed relays committed audit entries of the current run to websocket clients.
func (sb *serverBuilder) WithAuditFeed(feed database.AuditFeed) *serverBuilder {
	sb.server.auditFeed = feed
	return sb
}

func (sb *serverBuilder) WithGatherer(gatherer prometheus.Gatherer) *serverBuilder {
	sb.server.gatherer = gatherer
	return sb
}

func (sb *serverBuilder) Build() (*Server, error) {
	s := sb.server
	if s.simulation == nil {
		return nil, errors.New("server requires a simulation")
	}
	if s.wsWriter == nil {
		s.wsWriter = metrics.NewWebSocketMetricsWriter()
	}
	if s.config.HealthEndpoint == "" {
		s.config.HealthEndpoint = "/health"
	}
	if s.config.MetricsEndpoint == "" {
		s.config.MetricsEndpoint = "/metrics"
	}

	switch s.config.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(s.config.GinMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(cors.New(corsConfig(s.config.CorsOrigins)))
	s.engine = engine
	s.registerRoutes()
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || general.ItemInSlice(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("Request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.config.Port,
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server")
		s.stopAudit()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to close server", "error", err)
		}
	}()

	slog.Info(fmt.Sprintf("Starting server on %s", s.config.Port))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return errors.Wrapf(err, "server error")
	}
	return nil
}

// broadcast pushes the snapshot to every websocket client.
func (s *Server) broadcast(ctx context.Context, snapshot datamodels.Snapshot) {
	if s.wsWriter.GetClientCount() == 0 {
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error("Failed to encode snapshot", "error", err)
		return
	}
	metric := datamodels.Metric{
		MetricGeneratorId:   snapshot.SimulationId,
		MetricGeneratorName: "simulation",
		MetricGeneratorType: datamodels.MetricGeneratorTypeSimulation,
		MetricTime:          time.Now(),
		MetricName:          datamodels.MetricNameSnapshot,
		MetricValue:         payload,
	}
	if err := s.wsWriter.Write(ctx, metric); err != nil {
		slog.Error("Failed to broadcast snapshot", "error", err)
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	welcome := WebSocketResponse{
		Success: true,
		Data:    "Connected to the autonomity market simulation",
	}
	if err := conn.WriteJSON(welcome); err != nil {
		slog.Error("Failed to send welcome message", "error", err)
		return
	}

	s.wsWriter.AddClient(conn)
	defer s.wsWriter.RemoveClient(conn)
	slog.Info("Websocket client connected", "remote", conn.RemoteAddr().String())

	// clients only listen; reading drives ping/pong and detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Websocket client dropped", "error", err)
			}
			break
		}
	}
	slog.Info("Websocket client disconnected", "remote", conn.RemoteAddr().String())
}
