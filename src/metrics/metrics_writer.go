package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"autonomity/src/database"
	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

// MetricsWriter interface defines methods for writing metrics
type MetricsWriter interface {
	// Write takes any struct and writes it as metrics
	Write(ctx context.Context, metric datamodels.Metric) error
	// Close cleans up any resources
	Close() error
}

type metricsWriterBuilder struct {
	config     *datamodels.MetricsWriterConfig
	db         database.AutonomityDatabase
	wsWriter   *WebsocketMetricsWriter
	registerer prometheus.Registerer
}

// NewMetricsWriterBuilder assembles the writers enabled in config. The
// websocket writer, database and prometheus registerer are shared with other
// components, so they are injected rather than created here.
func NewMetricsWriterBuilder(config *datamodels.MetricsWriterConfig) *metricsWriterBuilder {
	return &metricsWriterBuilder{
		config:     config,
		registerer: prometheus.DefaultRegisterer,
	}
}

func (b *metricsWriterBuilder) WithDatabase(db database.AutonomityDatabase) *metricsWriterBuilder {
	b.db = db
	return b
}

func (b *metricsWriterBuilder) WithWebsocketWriter(wsWriter *WebsocketMetricsWriter) *metricsWriterBuilder {
	b.wsWriter = wsWriter
	return b
}

func (b *metricsWriterBuilder) WithRegisterer(registerer prometheus.Registerer) *metricsWriterBuilder {
	b.registerer = registerer
	return b
}

// Build returns nil when no writer is configured.
func (b *metricsWriterBuilder) Build() (*MultiMetricsWriter, error) {
	config := b.config
	if config == nil {
		slog.Warn("MetricsWriterConfig is nil, skipping metrics writer")
		return nil, nil
	}
	writers := []MetricsWriter{}
	if config.WsWriter {
		if b.wsWriter == nil {
			b.wsWriter = NewWebSocketMetricsWriter()
		}
		writers = append(writers, b.wsWriter)
	}
	if config.FileWriter {
		format := config.FileFormat
		if format == "" {
			format = datamodels.FormatCSV
		}
		metricsWriter, err := NewFileMetricsWriter(config.FilePath, format)
		if err != nil {
			return nil, err
		}
		writers = append(writers, metricsWriter)
	}
	if config.DbWriter {
		if b.db == nil {
			return nil, errors.New("db metrics writer enabled but database persistence is disabled")
		}
		writers = append(writers, NewDBMetricsWriter(b.db))
	}
	if config.PrometheusWriter {
		promWriter, err := NewPrometheusMetricsWriter(b.registerer)
		if err != nil {
			return nil, err
		}
		writers = append(writers, promWriter)
	}
	if len(writers) == 0 {
		return nil, nil
	}
	return NewMultiMetricsWriter(writers...), nil
}
