package metrics

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

// PrometheusMetricsWriter turns simulation metrics into gauges and counters
// served on the metrics endpoint.
type PrometheusMetricsWriter struct {
	portfolioValue   *prometheus.GaugeVec
	cash             *prometheus.GaugeVec
	heldQuantity     *prometheus.GaugeVec
	step             *prometheus.GaugeVec
	trades           *prometheus.CounterVec
	regulationEvents *prometheus.CounterVec
}

func NewPrometheusMetricsWriter(registerer prometheus.Registerer) (w *PrometheusMetricsWriter, err error) {
	// promauto panics on duplicate registration
	defer func() {
		if r := recover(); r != nil {
			w = nil
			err = errors.Newf("cannot register prometheus collectors: %v", r)
		}
	}()

	factory := promauto.With(registerer)
	return &PrometheusMetricsWriter{
		portfolioValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autonomity_portfolio_value",
			Help: "Current portfolio value per agent",
		}, []string{"agent"}),
		cash: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autonomity_agent_cash",
			Help: "Current cash balance per agent",
		}, []string{"agent"}),
		heldQuantity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autonomity_agent_held_quantity",
			Help: "Shares held per agent",
		}, []string{"agent"}),
		step: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autonomity_simulation_step",
			Help: "Last step processed per simulation",
		}, []string{"simulation_id"}),
		trades: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autonomity_trades_total",
			Help: "Trade log entries by agent, action and regulator decision",
		}, []string{"agent", "action", "decision"}),
		regulationEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autonomity_regulation_events_total",
			Help: "Regulator interventions by agent, rule and decision",
		}, []string{"agent", "rule", "decision"}),
	}, nil
}

func (w *PrometheusMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	switch metric.MetricName {
	case datamodels.MetricNamePortfolioValue:
		var m datamodels.PortfolioStepMetrics
		if err := json.Unmarshal(metric.MetricValue, &m); err != nil {
			return errors.Wrapf(err, "cannot decode portfolio metric")
		}
		w.portfolioValue.WithLabelValues(m.AgentName).Set(m.PortfolioValue)
		w.cash.WithLabelValues(m.AgentName).Set(m.Cash)
		w.heldQuantity.WithLabelValues(m.AgentName).Set(float64(m.HeldQuantity))
		w.step.WithLabelValues(m.SimulationId).Set(float64(m.Step))
	case datamodels.MetricNameTrade:
		var entry datamodels.TradeLogEntry
		if err := json.Unmarshal(metric.MetricValue, &entry); err != nil {
			return errors.Wrapf(err, "cannot decode trade metric")
		}
		w.trades.WithLabelValues(entry.AgentName, string(entry.Action), string(entry.RegulatorDecision)).Inc()
	case datamodels.MetricNameRegulationEvent:
		var entry datamodels.RegulationLogEntry
		if err := json.Unmarshal(metric.MetricValue, &entry); err != nil {
			return errors.Wrapf(err, "cannot decode regulation metric")
		}
		w.regulationEvents.WithLabelValues(entry.AgentName, entry.RuleName, string(entry.Decision)).Inc()
	}
	return nil
}

func (w *PrometheusMetricsWriter) Close() error {
	return nil
}
