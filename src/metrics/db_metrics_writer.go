package metrics

import (
	"context"
	"encoding/json"

	"autonomity/src/database"
	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

// DBMetricsWriter stores audit entries in their own tables and every other
// metric in the generic metrics table.
type DBMetricsWriter struct {
	db database.AutonomityDatabase
}

func NewDBMetricsWriter(db database.AutonomityDatabase) *DBMetricsWriter {
	return &DBMetricsWriter{
		db: db,
	}
}

func (w *DBMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	switch metric.MetricName {
	case datamodels.MetricNameTrade:
		var entry datamodels.TradeLogEntry
		if err := json.Unmarshal(metric.MetricValue, &entry); err != nil {
			return errors.Wrapf(err, "cannot decode trade metric")
		}
		return w.db.WriteTradeLogEntry(ctx, entry)
	case datamodels.MetricNameRegulationEvent:
		var entry datamodels.RegulationLogEntry
		if err := json.Unmarshal(metric.MetricValue, &entry); err != nil {
			return errors.Wrapf(err, "cannot decode regulation metric")
		}
		return w.db.WriteRegulationLogEntry(ctx, entry)
	}
	_, err := w.db.WriteNewMetric(ctx, metric)
	return err
}

func (w *DBMetricsWriter) Close() error {
	return nil
}
