package metrics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"autonomity/src/datamodels"
)

var csvHeaders = []string{"metric_time", "generator_id", "generator_name", "generator_type", "metric_name", "metric_value"}

// fileRecord is the JSON-lines shape; MetricValue stays embedded JSON rather
// than base64.
type fileRecord struct {
	MetricTime    time.Time                      `json:"metric_time"`
	GeneratorId   string                         `json:"generator_id"`
	GeneratorName string                         `json:"generator_name"`
	GeneratorType datamodels.MetricGeneratorType `json:"generator_type"`
	MetricName    string                         `json:"metric_name"`
	MetricValue   json.RawMessage                `json:"metric_value"`
}

// FileMetricsWriter writes metrics to local files in CSV or JSON format, one
// file per generator per day.
type FileMetricsWriter struct {
	dateId     string
	baseDir    string
	files      map[string]*os.File
	csvWriters map[string]*csv.Writer
	fileFormat datamodels.FileFormat
	mutex      sync.Mutex
}

func NewFileMetricsWriter(baseDir string, format datamodels.FileFormat) (*FileMetricsWriter, error) {
	if format != datamodels.FormatCSV && format != datamodels.FormatJSON {
		return nil, fmt.Errorf("unsupported metrics file format %q", format)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metrics directory: %w", err)
	}
	now := time.Now()
	todaysDateId := fmt.Sprintf("%d%02d%02d", now.Year(), now.Month(), now.Day())

	return &FileMetricsWriter{
		dateId:     todaysDateId,
		baseDir:    baseDir,
		files:      make(map[string]*os.File),
		csvWriters: make(map[string]*csv.Writer),
		fileFormat: format,
	}, nil
}

func (w *FileMetricsWriter) GetFilename(generatorName string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s_%s.%s", w.dateId, generatorName, w.fileFormat))
}

func (w *FileMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	writerId := fmt.Sprintf("%s_%s", w.dateId, metric.MetricGeneratorName)
	file, ok := w.files[writerId]
	if !ok {
		filename := w.GetFilename(metric.MetricGeneratorName)
		_, statErr := os.Stat(filename)
		isNew := os.IsNotExist(statErr)

		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open metrics file: %w", err)
		}
		w.files[writerId] = f
		file = f

		if w.fileFormat == datamodels.FormatCSV {
			csvWriter := csv.NewWriter(f)
			w.csvWriters[writerId] = csvWriter
			if isNew {
				if err := csvWriter.Write(csvHeaders); err != nil {
					return fmt.Errorf("failed to write CSV headers: %w", err)
				}
				csvWriter.Flush()
			}
		}
	}

	switch w.fileFormat {
	case datamodels.FormatJSON:
		value := json.RawMessage(metric.MetricValue)
		if !json.Valid(value) {
			value, _ = json.Marshal(string(metric.MetricValue))
		}
		jsonBytes, err := json.Marshal(fileRecord{
			MetricTime:    metric.MetricTime,
			GeneratorId:   metric.MetricGeneratorId,
			GeneratorName: metric.MetricGeneratorName,
			GeneratorType: metric.MetricGeneratorType,
			MetricName:    metric.MetricName,
			MetricValue:   value,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal metric to JSON: %w", err)
		}
		if _, err := file.Write(append(jsonBytes, '\n')); err != nil {
			return fmt.Errorf("failed to write JSON metrics: %w", err)
		}
	case datamodels.FormatCSV:
		csvWriter := w.csvWriters[writerId]
		values := []string{
			metric.MetricTime.Format(time.RFC3339Nano),
			metric.MetricGeneratorId,
			metric.MetricGeneratorName,
			string(metric.MetricGeneratorType),
			metric.MetricName,
			string(metric.MetricValue),
		}
		if err := csvWriter.Write(values); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return fmt.Errorf("error flushing CSV writer: %w", err)
		}
	}

	return nil
}

func (w *FileMetricsWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	var lastErr error
	for source, file := range w.files {
		if writer := w.csvWriters[source]; writer != nil {
			writer.Flush()
			if err := writer.Error(); err != nil {
				slog.Error("Failed to flush CSV writer", "source", source, "error", err)
				lastErr = err
			}
		}
		if err := file.Close(); err != nil {
			slog.Error("Failed to close metrics file", "source", source, "error", err)
			lastErr = err
		}
	}
	w.files = make(map[string]*os.File)
	w.csvWriters = make(map[string]*csv.Writer)
	return lastErr
}
