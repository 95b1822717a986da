package server

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
	"autonomity/src/utils/general"
	"autonomity/src/version"
)

// @title Autonomity API
// @version 1.0
// @description Multi-agent stock market simulation with compliance review
// @host localhost:5000
// @BasePath /

// InitRequest starts or restarts the simulation
// @Description Market selection and optional user-defined agents
type InitRequest struct {
	Ticker       string                   `json:"ticker" example:"AAPL"`
	Period       string                   `json:"period" example:"5d"`
	Interval     string                   `json:"interval" example:"5m"`
	CustomAgents []datamodels.AgentConfig `json:"custom_agents"`
}

// AutoStepRequest runs several steps in one call
// @Description Number of steps, capped server side
type AutoStepRequest struct {
	Steps *int `json:"steps" example:"10"`
}

// ErrorResponse is returned for every failed call
type ErrorResponse struct {
	Error string `json:"error" example:"simulation not initialized"`
}

// WebSocketResponse is the first frame sent to a websocket client
type WebSocketResponse struct {
	Success bool   `json:"success" example:"true"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string            `json:"status" example:"healthy"`
	Usage  map[string]string `json:"usage"`
}

func (s *Server) registerRoutes() {
	s.engine.GET(s.config.HealthEndpoint, s.handleHealth)
	s.engine.GET("/version", s.handleVersion)
	s.engine.GET(s.config.MetricsEndpoint, gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	s.engine.GET("/ws", s.handleWebSocket)
	s.engine.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))))

	api := s.engine.Group("/api")
	{
		api.POST("/init", s.handleInit)
		api.POST("/step", s.handleStep)
		api.POST("/auto-step", s.handleAutoStep)
		api.GET("/state", s.handleState)
	}
}

// statusFor maps simulation errors to HTTP status codes.
func statusFor(err error) int {
	if errors.IsConfigurationError(err) || errors.Is(err, errors.ErrNotInitialized) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
		message = "Unexpected error: " + message
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}

// handleHealth
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Usage: general.GetSystemUsage()})
}

// handleVersion
// @Summary Build information
// @Tags health
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /version [get]
func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.GetBuildInfo())
}

// handleInit initializes or re-initializes the simulation
// @Summary Initialize the simulation
// @Description Fetches history for ticker and creates the agent roster. Missing fields default to AAPL, 5d and 5m.
// @Tags simulation
// @Accept json
// @Produce json
// @Param request body InitRequest false "Market and custom agents"
// @Success 200 {object} datamodels.Snapshot
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/init [post]
func (s *Server) handleInit(c *gin.Context) {
	var req InitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Ticker == "" {
		req.Ticker = datamodels.DefaultSymbol
	}
	if req.Period == "" {
		req.Period = datamodels.DefaultPeriod
	}
	if req.Interval == "" {
		req.Interval = datamodels.DefaultInterval
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	snapshot, err := s.simulation.InitializeWithAgents(c.Request.Context(), req.Ticker, req.Period, req.Interval, req.CustomAgents)
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.followAudit(snapshot.SimulationId)
	s.broadcast(c.Request.Context(), snapshot)
	c.JSON(http.StatusOK, snapshot)
}

// handleStep advances the simulation by one bar
// @Summary Step the simulation
// @Tags simulation
// @Produce json
// @Success 200 {object} datamodels.Snapshot
// @Failure 400 {object} ErrorResponse
// @Router /api/step [post]
func (s *Server) handleStep(c *gin.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	snapshot, err := s.simulation.Step(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.broadcast(c.Request.Context(), snapshot)
	c.JSON(http.StatusOK, snapshot)
}

// handleAutoStep runs several steps
// @Summary Run several steps
// @Description Stops early when the run finishes. steps defaults to 10 and is capped by server.max_auto_steps.
// @Tags simulation
// @Accept json
// @Produce json
// @Param request body AutoStepRequest false "Number of steps"
// @Success 200 {object} datamodels.Snapshot
// @Failure 400 {object} ErrorResponse
// @Router /api/auto-step [post]
func (s *Server) handleAutoStep(c *gin.Context) {
	var req AutoStepRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	steps := datamodels.DefaultAutoSteps
	if req.Steps != nil {
		steps = *req.Steps
	}
	if steps <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "No steps executed."})
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	snapshot, err := s.simulation.AutoStep(c.Request.Context(), steps)
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.broadcast(c.Request.Context(), snapshot)
	c.JSON(http.StatusOK, snapshot)
}

// handleState returns the current snapshot
// @Summary Current state
// @Tags simulation
// @Produce json
// @Success 200 {object} datamodels.Snapshot
// @Failure 400 {object} ErrorResponse
// @Router /api/state [get]
func (s *Server) handleState(c *gin.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	snapshot, err := s.simulation.GetSnapshot()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
