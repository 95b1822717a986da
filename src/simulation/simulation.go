package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autonomity/src/audit"
	"autonomity/src/datamodels"
	"autonomity/src/market"
	"autonomity/src/metrics"
	"autonomity/src/portfolio"
	"autonomity/src/regulator"
	"autonomity/src/strategies"
	"autonomity/src/utils/errors"
	"autonomity/src/utils/general"
)

const metricGeneratorNameSimulation = "simulation"

// StrategyFactory builds the strategy for one roster entry.
type StrategyFactory func(config datamodels.AgentConfig) (strategies.Strategy, error)

// RegulatorFactory builds the regulator for a new run.
type RegulatorFactory func(config *datamodels.RegulatorConfig) (regulator.Regulator, error)

type agent struct {
	config   datamodels.AgentConfig
	strategy strategies.Strategy
	ledger   portfolio.Portfolio
}

// run is everything that belongs to one initialized simulation. It is swapped
// in whole by Initialize.
type run struct {
	id           string
	ticker       string
	period       string
	interval     string
	source       market.ReplaySource
	agents       []*agent
	regulator    regulator.Regulator
	priceHistory []datamodels.Bar
	step         int
	maxSteps     int
	finished     bool
}

// Simulation drives the decide, review, apply and audit pipeline over one
// replayed market. Calls are serialized internally.
type Simulation struct {
	provider         market.BarProvider
	simulationConfig datamodels.SimulationConfig
	regulatorConfig  *datamodels.RegulatorConfig
	maxAutoSteps     int
	strategyFactory  StrategyFactory
	regulatorFactory RegulatorFactory
	auditLogger      *audit.Logger
	metricsWriter    metrics.MetricsWriter
	clock            func() time.Time

	current *run
	mutex   sync.Mutex
}

type simulationBuilder struct {
	simulation *Simulation
}

func NewSimulation(provider market.BarProvider) *simulationBuilder {
	return &simulationBuilder{
		simulation: &Simulation{
			provider: provider,
			simulationConfig: datamodels.SimulationConfig{
				InitialCash:  datamodels.DefaultInitialCash,
				RecentWindow: datamodels.DefaultRecentWindow,
			},
			maxAutoSteps: datamodels.DefaultMaxAutoSteps,
			clock:        time.Now,
		},
	}
}

func (sb *simulationBuilder) WithSimulationConfig(config datamodels.SimulationConfig) *simulationBuilder {
	sb.simulation.simulationConfig = config
	return sb
}

func (sb *simulationBuilder) WithRegulatorConfig(config *datamodels.RegulatorConfig) *simulationBuilder {
	sb.simulation.regulatorConfig = config
	return sb
}

func (sb *simulationBuilder) WithMaxAutoSteps(maxAutoSteps int) *simulationBuilder {
	sb.simulation.maxAutoSteps = maxAutoSteps
	return sb
}

func (sb *simulationBuilder) WithStrategyFactory(factory StrategyFactory) *simulationBuilder {
	sb.simulation.strategyFactory = factory
	return sb
}

func (sb *simulationBuilder) WithRegulatorFactory(factory RegulatorFactory) *simulationBuilder {
	sb.simulation.regulatorFactory = factory
	return sb
}

func (sb *simulationBuilder) WithAuditLogger(logger *audit.Logger) *simulationBuilder {
	sb.simulation.auditLogger = logger
	return sb
}

func (sb *simulationBuilder) WithMetricsWriter(metricsWriter metrics.MetricsWriter) *simulationBuilder {
	sb.simulation.metricsWriter = metricsWriter
	return sb
}

func (sb *simulationBuilder) WithClock(clock func() time.Time) *simulationBuilder {
	sb.simulation.clock = clock
	return sb
}

func (sb *simulationBuilder) Build() (*Simulation, error) {
	s := sb.simulation
	if s.provider == nil {
		return nil, errors.New("simulation requires a bar provider")
	}
	if s.simulationConfig.InitialCash <= 0 {
		s.simulationConfig.InitialCash = datamodels.DefaultInitialCash
	}
	if s.simulationConfig.RecentWindow <= 0 {
		s.simulationConfig.RecentWindow = datamodels.DefaultRecentWindow
	}
	if s.maxAutoSteps <= 0 {
		s.maxAutoSteps = datamodels.DefaultMaxAutoSteps
	}
	if s.strategyFactory == nil {
		s.strategyFactory = strategies.StrategyFromConfig
	}
	if s.regulatorFactory == nil {
		s.regulatorFactory = regulator.RegulatorFromConfig
	}
	if s.auditLogger == nil {
		s.auditLogger = audit.NewLogger().WithClock(s.clock)
	}
	return s, nil
}

func (s *Simulation) GetAuditLogger() *audit.Logger {
	return s.auditLogger
}

func (s *Simulation) GetMaxAutoSteps() int {
	return s.maxAutoSteps
}

func (s *Simulation) IsInitialized() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.current != nil
}

func (s *Simulation) Initialize(ctx context.Context, symbol, period, interval string) (datamodels.Snapshot, error) {
	return s.InitializeWithAgents(ctx, symbol, period, interval, nil)
}

// InitializeWithAgents starts a fresh run with the configured roster plus
// extra. On any error the previous run, if there was one, is left untouched.
// Errors that are not caused by the caller's input wrap ErrUnexpected.
func (s *Simulation) InitializeWithAgents(ctx context.Context, symbol, period, interval string, extra []datamodels.AgentConfig) (datamodels.Snapshot, error) {
	snapshot, err := s.initialize(ctx, symbol, period, interval, extra)
	if err != nil {
		return datamodels.Snapshot{}, classify(err)
	}
	return snapshot, nil
}

// classify leaves caller errors and cancellation as they are and marks
// everything else as unexpected.
func classify(err error) error {
	if errors.IsConfigurationError(err) ||
		errors.Is(err, errors.ErrNotInitialized) ||
		errors.Is(err, errors.ErrUnexpected) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.WrapE(errors.ErrUnexpected, err)
}

func (s *Simulation) initialize(ctx context.Context, symbol, period, interval string, extra []datamodels.AgentConfig) (datamodels.Snapshot, error) {
	source, err := market.NewReplaySource(ctx, s.provider, symbol, period, interval)
	if err != nil {
		return datamodels.Snapshot{}, err
	}

	roster, err := strategies.ResolveRoster(&s.simulationConfig, extra)
	if err != nil {
		return datamodels.Snapshot{}, err
	}
	agents := make([]*agent, 0, len(roster))
	for _, config := range roster {
		strategy, err := s.strategyFactory(config)
		if err != nil {
			return datamodels.Snapshot{}, errors.Wrapf(err, "cannot build agent %s", config.Name)
		}
		agents = append(agents, &agent{
			config:   config,
			strategy: strategy,
			ledger:   portfolio.NewPortfolioFromConfig(&s.simulationConfig),
		})
	}
	reg, err := s.regulatorFactory(s.regulatorConfig)
	if err != nil {
		return datamodels.Snapshot{}, err
	}

	ticker := source.GetTicker()
	firstBar := source.CurrentBar()
	for _, a := range agents {
		a.ledger.RecordValuation(a.ledger.Valuation(firstBar.Close, ticker))
	}

	r := &run{
		id:           s.newSimulationId(ticker, period, interval),
		ticker:       ticker,
		period:       period,
		interval:     interval,
		source:       source,
		agents:       agents,
		regulator:    reg,
		priceHistory: []datamodels.Bar{firstBar},
		step:         source.CurrentStep(),
		maxSteps:     source.TotalBars(),
		finished:     source.IsDone(),
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.current = r
	s.auditLogger.Reset(r.id)

	slog.Info("Simulation initialized",
		"simulationId", r.id,
		"ticker", ticker,
		"period", period,
		"interval", interval,
		"bars", r.maxSteps,
		"agents", len(agents))
	return s.snapshot(r), nil
}

// Step runs every agent once on the current bar and then advances the market
// by one bar. A finished run is returned unchanged.
func (s *Simulation) Step(ctx context.Context) (datamodels.Snapshot, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	r := s.current
	if r == nil {
		return datamodels.Snapshot{}, errors.Wrap(errors.ErrNotInitialized, "step called before initialize")
	}
	s.step(ctx, r)
	return s.snapshot(r), nil
}

// AutoStep steps up to n times, capped at the configured maximum, and stops
// early once the run finishes or ctx is done.
func (s *Simulation) AutoStep(ctx context.Context, n int) (datamodels.Snapshot, error) {
	if n > s.maxAutoSteps {
		n = s.maxAutoSteps
	}
	if n < 1 {
		n = 1
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	r := s.current
	if r == nil {
		return datamodels.Snapshot{}, errors.Wrap(errors.ErrNotInitialized, "auto-step called before initialize")
	}
	for i := 0; i < n && !r.finished; i++ {
		if err := ctx.Err(); err != nil {
			return s.snapshot(r), err
		}
		s.step(ctx, r)
	}
	return s.snapshot(r), nil
}

func (s *Simulation) GetSnapshot() (datamodels.Snapshot, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.current == nil {
		return datamodels.Snapshot{}, errors.Wrap(errors.ErrNotInitialized, "no simulation has been initialized")
	}
	return s.snapshot(s.current), nil
}

func (s *Simulation) step(ctx context.Context, r *run) {
	if r.finished || r.source.IsDone() {
		r.finished = true
		return
	}

	bar := r.source.CurrentBar()
	window := r.source.RecentWindow(s.simulationConfig.RecentWindow)
	for _, a := range r.agents {
		s.stepAgent(ctx, r, a, bar, window)
	}

	next, finished := r.source.Advance()
	r.step = r.source.CurrentStep()
	r.priceHistory = append(r.priceHistory, next)
	if finished {
		r.finished = true
		slog.Info("Simulation finished", "simulationId", r.id, "steps", r.step)
	}
}

func (s *Simulation) stepAgent(ctx context.Context, r *run, a *agent, bar datamodels.Bar, window []datamodels.Bar) {
	avgCost, _ := a.ledger.GetAvgCost(r.ticker)
	obs := datamodels.Observation{
		Step:         r.step,
		Bar:          bar,
		RecentWindow: window,
		Cash:         a.ledger.GetCash(),
		InitialCash:  a.ledger.GetInitialCash(),
		HeldQuantity: a.ledger.GetPosition(r.ticker),
		AvgCost:      avgCost,
	}

	decision := decide(a.strategy, obs)
	if decision.Action.Ticker == "" {
		decision.Action.Ticker = r.ticker
	}

	review := reviewAction(r.regulator, datamodels.ReviewRequest{
		AgentName: a.config.Name,
		Step:      r.step,
		Action:    decision.Action,
		State:     a.ledger.State(bar.Close, r.ticker),
		Bar:       bar,
	})
	if review.Executable() {
		if err := apply(a.ledger, review.AdjustedAction, bar.Close); err != nil {
			slog.Error("Failed to apply action", "agent", a.config.Name, "step", r.step, "error", err)
			review = blockedReview(review.AdjustedAction.Ticker, fmt.Sprintf("Execution error: %v", err))
		}
	}
	a.ledger.SetLastReason(decision.Reason)

	value := a.ledger.Valuation(bar.Close, r.ticker)
	a.ledger.RecordValuation(value)

	s.auditLogger.LogTrade(ctx, datamodels.TradeLogEntry{
		Step:              r.step,
		AgentName:         a.config.Name,
		Action:            review.AdjustedAction.Type,
		Ticker:            review.AdjustedAction.Ticker,
		Price:             bar.Close,
		Quantity:          review.AdjustedAction.Quantity,
		PortfolioValue:    value,
		AgentReason:       decision.Reason,
		RegulatorDecision: review.Decision,
		RegulatorReason:   review.Reason,
	})
	if review.IsIntervention() {
		s.auditLogger.LogRegulationEvent(ctx, datamodels.RegulationLogEntry{
			Step:        r.step,
			AgentName:   a.config.Name,
			RuleName:    review.RuleName,
			Decision:    review.Decision,
			Explanation: review.Reason,
		})
	}

	reward := a.ledger.GetLastReward()
	updateAfterStep(a.strategy, reward, bar)

	s.writePortfolioMetric(ctx, r, a, bar, value, reward, review.AdjustedAction.Type)
}

// decide isolates strategy faults: errors, panics and malformed actions all
// become a zero-quantity HOLD.
func decide(strategy strategies.Strategy, obs datamodels.Observation) (decision datamodels.Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Strategy panicked", "agent", strategy.GetName(), "step", obs.Step, "panic", rec)
			decision = datamodels.HoldDecision(obs.Ticker(), fmt.Sprintf("Strategy error: %v", rec))
		}
	}()

	decision, err := strategy.Decide(obs)
	if err != nil {
		slog.Warn("Strategy failed", "agent", strategy.GetName(), "step", obs.Step, "error", err)
		return datamodels.HoldDecision(obs.Ticker(), fmt.Sprintf("Strategy error: %v", err))
	}
	if !decision.Action.IsValid() {
		slog.Warn("Strategy returned a malformed action", "agent", strategy.GetName(), "step", obs.Step, "action", decision.Action)
		return datamodels.HoldDecision(obs.Ticker(), fmt.Sprintf("Malformed action %s", decision.Action))
	}
	return decision
}

// reviewAction turns a regulator panic into a BLOCK so the action is never applied.
func reviewAction(reg regulator.Regulator, req datamodels.ReviewRequest) (review datamodels.Review) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Regulator panicked", "agent", req.AgentName, "step", req.Step, "panic", rec)
			review = blockedReview(req.Action.Ticker, fmt.Sprintf("Regulator error: %v", rec))
		}
	}()
	return reg.Review(req)
}

func blockedReview(ticker, reason string) datamodels.Review {
	return datamodels.Review{
		Decision:       datamodels.ReviewBlock,
		Reason:         reason,
		RuleName:       datamodels.RegulationRuleName,
		AdjustedAction: datamodels.HoldAction(ticker),
	}
}

func apply(ledger portfolio.Portfolio, action datamodels.Action, price float64) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("ledger panicked: %v", rec)
		}
	}()
	ledger.Apply(action, price)
	return nil
}

func updateAfterStep(strategy strategies.Strategy, reward float64, bar datamodels.Bar) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Strategy update panicked", "agent", strategy.GetName(), "panic", rec)
		}
	}()
	strategy.UpdateAfterStep(reward, bar)
}

func (s *Simulation) writePortfolioMetric(ctx context.Context, r *run, a *agent, bar datamodels.Bar, value, reward float64, action datamodels.ActionType) {
	if s.metricsWriter == nil {
		return
	}
	now := s.clock()
	m := datamodels.PortfolioStepMetrics{
		SimulationId:   r.id,
		AgentName:      a.config.Name,
		Step:           r.step,
		Timestamp:      now,
		Price:          bar.Close,
		Cash:           a.ledger.GetCash(),
		HeldQuantity:   a.ledger.GetPosition(r.ticker),
		PortfolioValue: value,
		Reward:         reward,
		Action:         action,
	}
	payload, err := json.Marshal(m)
	if err != nil {
		slog.Error("Failed to encode portfolio metric", "agent", a.config.Name, "error", err)
		return
	}
	metric := datamodels.Metric{
		MetricGeneratorId:   r.id,
		MetricGeneratorName: a.config.Name,
		MetricGeneratorType: datamodels.MetricGeneratorTypePortfolio,
		MetricTime:          now,
		MetricName:          datamodels.MetricNamePortfolioValue,
		MetricValue:         payload,
	}
	if err := s.metricsWriter.Write(ctx, metric); err != nil {
		slog.Error("Failed to write portfolio metric", "agent", a.config.Name, "error", err)
	}
}

func (s *Simulation) newSimulationId(ticker, period, interval string) string {
	seed := fmt.Sprintf("%s|%s|%s|%d", ticker, period, interval, s.clock().UnixNano())
	return general.GenerateUUID5StringFromByteArray([]byte(seed))
}
