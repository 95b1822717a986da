package database

import (
	"context"
	"log/slog"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

// AuditNotifyChannel carries "<simulation id>;<entry kind>:<entry id>" payloads.
const AuditNotifyChannel = "audit_events"

type AuditDatabase interface {
	WriteTradeLogEntry(ctx context.Context, entry datamodels.TradeLogEntry) error
	WriteRegulationLogEntry(ctx context.Context, entry datamodels.RegulationLogEntry) error
	GetTradeLog(ctx context.Context, simulationId string, limit int) ([]datamodels.TradeLogEntry, error)
	GetRegulationLog(ctx context.Context, simulationId string, limit int) ([]datamodels.RegulationLogEntry, error)
}

type MetricsDatabase interface {
	WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error)
	GetMetrics(ctx context.Context, generatorId string, metricName string) ([]datamodels.Metric, error)
}

func (a *databaseImplementation) WriteTradeLogEntry(ctx context.Context, entry datamodels.TradeLogEntry) error {
	if err := a.gormDb.WithContext(ctx).Create(&entry).Error; err != nil {
		return errors.Wrapf(err, "failed to write trade log entry %s", entry.Id)
	}
	a.notifyAudit(entry.SimulationId, "trade:"+entry.Id)
	return nil
}

func (a *databaseImplementation) WriteRegulationLogEntry(ctx context.Context, entry datamodels.RegulationLogEntry) error {
	if err := a.gormDb.WithContext(ctx).Create(&entry).Error; err != nil {
		return errors.Wrapf(err, "failed to write regulation log entry %s", entry.Id)
	}
	a.notifyAudit(entry.SimulationId, "regulation:"+entry.Id)
	return nil
}

func (a *databaseImplementation) GetTradeLog(ctx context.Context, simulationId string, limit int) ([]datamodels.TradeLogEntry, error) {
	var entries []datamodels.TradeLogEntry
	query := a.gormDb.WithContext(ctx).
		Where("simulation_id = ?", simulationId).
		Order("step asc, timestamp asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to read trade log for %s", simulationId)
	}
	return entries, nil
}

func (a *databaseImplementation) GetRegulationLog(ctx context.Context, simulationId string, limit int) ([]datamodels.RegulationLogEntry, error) {
	var entries []datamodels.RegulationLogEntry
	query := a.gormDb.WithContext(ctx).
		Where("simulation_id = ?", simulationId).
		Order("step asc, timestamp asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to read regulation log for %s", simulationId)
	}
	return entries, nil
}

func (a *databaseImplementation) WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error) {
	result := a.gormDb.WithContext(ctx).Create(&metric)
	return result.RowsAffected, result.Error
}

func (a *databaseImplementation) GetMetrics(ctx context.Context, generatorId string, metricName string) ([]datamodels.Metric, error) {
	var metrics []datamodels.Metric
	err := a.gormDb.WithContext(ctx).
		Where("metric_generator_id = ? AND metric_name = ?", generatorId, metricName).
		Order("metric_time asc").
		Find(&metrics).Error
	return metrics, err
}

// notifyAudit is best effort and only available on postgres.
func (a *databaseImplementation) notifyAudit(simulationId, payload string) {
	if a.notificationManager == nil {
		return
	}
	if err := Notify(a.gormDb, AuditNotifyChannel, simulationId, payload); err != nil {
		slog.Warn("Failed to notify audit event", "simulationId", simulationId, "error", err)
	}
}
