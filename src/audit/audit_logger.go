package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"autonomity/src/datamodels"
	"autonomity/src/metrics"
	"autonomity/src/utils/general"
)

const metricGeneratorName = "audit"

// Logger keeps the trade and regulation logs of the current run. Entries are
// only ever appended; Reset is the single way to clear them.
type Logger struct {
	simulationId  string
	tradeLog      []datamodels.TradeLogEntry
	regulationLog []datamodels.RegulationLogEntry
	clock         func() time.Time
	metricsWriter metrics.MetricsWriter
	mutex         sync.RWMutex
}

func NewLogger() *Logger {
	return &Logger{
		tradeLog:      []datamodels.TradeLogEntry{},
		regulationLog: []datamodels.RegulationLogEntry{},
		clock:         time.Now,
	}
}

func (l *Logger) WithClock(clock func() time.Time) *Logger {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.clock = clock
	return l
}

// WithMetricsWriter forwards every appended entry. Sink failures are logged
// and never undo the in-memory append.
func (l *Logger) WithMetricsWriter(metricsWriter metrics.MetricsWriter) *Logger {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.metricsWriter = metricsWriter
	return l
}

// Reset clears both logs and tags subsequent entries with simulationId.
func (l *Logger) Reset(simulationId string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.simulationId = simulationId
	l.tradeLog = []datamodels.TradeLogEntry{}
	l.regulationLog = []datamodels.RegulationLogEntry{}
}

func (l *Logger) GetSimulationId() string {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.simulationId
}

// LogTrade stamps id, simulation id and time on entry, rounds money to cents
// and appends it.
func (l *Logger) LogTrade(ctx context.Context, entry datamodels.TradeLogEntry) datamodels.TradeLogEntry {
	l.mutex.Lock()
	entry.Id = uuid.New().String()
	entry.SimulationId = l.simulationId
	entry.Timestamp = l.clock()
	entry.Price = general.RoundCents(entry.Price)
	entry.PortfolioValue = general.RoundCents(entry.PortfolioValue)
	l.tradeLog = append(l.tradeLog, entry)
	writer := l.metricsWriter
	l.mutex.Unlock()

	l.forward(ctx, writer, datamodels.MetricNameTrade, entry.SimulationId, entry.Timestamp, entry)
	return entry
}

// LogRegulationEvent appends a WARN or BLOCK record. An empty rule name is
// recorded as datamodels.RegulationRuleName.
func (l *Logger) LogRegulationEvent(ctx context.Context, entry datamodels.RegulationLogEntry) datamodels.RegulationLogEntry {
	l.mutex.Lock()
	entry.Id = uuid.New().String()
	entry.SimulationId = l.simulationId
	entry.Timestamp = l.clock()
	if entry.RuleName == "" {
		entry.RuleName = datamodels.RegulationRuleName
	}
	l.regulationLog = append(l.regulationLog, entry)
	writer := l.metricsWriter
	l.mutex.Unlock()

	l.forward(ctx, writer, datamodels.MetricNameRegulationEvent, entry.SimulationId, entry.Timestamp, entry)
	return entry
}

func (l *Logger) GetTradeLog() []datamodels.TradeLogEntry {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	out := make([]datamodels.TradeLogEntry, len(l.tradeLog))
	copy(out, l.tradeLog)
	return out
}

func (l *Logger) GetRegulationLog() []datamodels.RegulationLogEntry {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	out := make([]datamodels.RegulationLogEntry, len(l.regulationLog))
	copy(out, l.regulationLog)
	return out
}

func (l *Logger) forward(ctx context.Context, writer metrics.MetricsWriter, name, simulationId string, at time.Time, entry any) {
	if writer == nil {
		return
	}
	value, err := json.Marshal(entry)
	if err != nil {
		slog.Error("Failed to encode audit entry", "metric", name, "error", err)
		return
	}
	metric := datamodels.Metric{
		MetricGeneratorId:   simulationId,
		MetricGeneratorName: metricGeneratorName,
		MetricGeneratorType: datamodels.MetricGeneratorTypeAudit,
		MetricTime:          at,
		MetricName:          name,
		MetricValue:         value,
	}
	if err := writer.Write(ctx, metric); err != nil {
		slog.Error("Failed to forward audit entry", "metric", name, "simulationId", simulationId, "error", err)
	}
}
