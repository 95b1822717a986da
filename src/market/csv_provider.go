package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

const (
	fieldTimestamp = "timestamp"
	fieldOpen      = "open"
	fieldHigh      = "high"
	fieldLow       = "low"
	fieldClose     = "close"
	fieldVolume    = "volume"
)

var DefaultCsvColumns = []datamodels.CsvColumnConfig{
	{ColumnIndex: 0, FieldName: fieldTimestamp},
	{ColumnIndex: 1, FieldName: fieldOpen},
	{ColumnIndex: 2, FieldName: fieldHigh},
	{ColumnIndex: 3, FieldName: fieldLow},
	{ColumnIndex: 4, FieldName: fieldClose},
	{ColumnIndex: 5, FieldName: fieldVolume},
}

var csvTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CsvProvider serves history from <SYMBOL>_<interval>.csv, falling back to
// <SYMBOL>.csv, inside a data directory.
type CsvProvider struct {
	dataDir         string
	columns         map[string]int
	hasHeader       bool
	timestampFormat string
}

type CsvProviderBuilder struct {
	dataDir         string
	columns         []datamodels.CsvColumnConfig
	hasHeader       bool
	timestampFormat string
}

func NewCsvProviderBuilder(dataDir string) *CsvProviderBuilder {
	return &CsvProviderBuilder{
		dataDir:   dataDir,
		hasHeader: true,
	}
}

func (b *CsvProviderBuilder) WithColumns(columns []datamodels.CsvColumnConfig) *CsvProviderBuilder {
	b.columns = columns
	return b
}

func (b *CsvProviderBuilder) WithHasHeader(hasHeader bool) *CsvProviderBuilder {
	b.hasHeader = hasHeader
	return b
}

// WithTimestampFormat sets a Go time layout, or "unix" for epoch seconds.
func (b *CsvProviderBuilder) WithTimestampFormat(format string) *CsvProviderBuilder {
	b.timestampFormat = format
	return b
}

func (b *CsvProviderBuilder) Build() (*CsvProvider, error) {
	if b.dataDir == "" {
		return nil, errors.New("data dir is required")
	}
	info, err := os.Stat(b.dataDir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read data dir %s", b.dataDir)
	}
	if !info.IsDir() {
		return nil, errors.Newf("%s is not a directory", b.dataDir)
	}

	columns := b.columns
	if len(columns) == 0 {
		columns = DefaultCsvColumns
	}
	columnIndex := make(map[string]int, len(columns))
	for _, col := range columns {
		name := strings.ToLower(col.FieldName)
		if _, exists := columnIndex[name]; exists {
			return nil, errors.Newf("duplicate csv column %q", col.FieldName)
		}
		if col.ColumnIndex < 0 {
			return nil, errors.Newf("negative column index for %q", col.FieldName)
		}
		columnIndex[name] = col.ColumnIndex
	}
	if _, ok := columnIndex[fieldTimestamp]; !ok {
		return nil, errors.New("schema must have timestamp field")
	}
	if _, ok := columnIndex[fieldClose]; !ok {
		return nil, errors.New("schema must have close field")
	}

	return &CsvProvider{
		dataDir:         b.dataDir,
		columns:         columnIndex,
		hasHeader:       b.hasHeader,
		timestampFormat: b.timestampFormat,
	}, nil
}

func NewCsvProviderFromConfig(config *datamodels.CsvProviderConfig) (*CsvProvider, error) {
	builder := NewCsvProviderBuilder(config.DataDir).
		WithHasHeader(config.HasHeader).
		WithTimestampFormat(config.TimestampFormat)
	if len(config.Columns) > 0 {
		builder = builder.WithColumns(config.Columns)
	}
	return builder.Build()
}

func (c *CsvProvider) GetName() string {
	return "csv"
}

func (c *CsvProvider) resolvePath(symbol, interval string) (string, error) {
	candidates := []string{
		filepath.Join(c.dataDir, CsvFilename(symbol, interval)),
		filepath.Join(c.dataDir, fmt.Sprintf("%s.csv", symbol)),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.Wrapf(errors.ErrDataUnavailable, "no csv history for %s in %s", symbol, c.dataDir)
}

func (c *CsvProvider) FetchBars(ctx context.Context, symbol, period, interval string) ([]datamodels.Bar, error) {
	path, err := c.resolvePath(symbol, interval)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapef(errors.ErrDataUnavailable, err, "failed to open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	bars := make([]datamodels.Bar, 0)
	line := 0
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		line++
		if line == 1 && c.hasHeader {
			continue
		}
		bar, ok := c.parseRecord(record)
		if !ok {
			slog.Debug("Skipping unparseable csv row", "path", path, "line", line)
			continue
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	if len(bars) > 0 {
		if start, ok := periodStart(period, bars[len(bars)-1].Timestamp); ok {
			first := sort.Search(len(bars), func(i int) bool {
				return !bars[i].Timestamp.Before(start)
			})
			bars = bars[first:]
		}
	}

	return bars, nil
}

func (c *CsvProvider) parseRecord(record []string) (datamodels.Bar, bool) {
	ts, ok := c.field(record, fieldTimestamp)
	if !ok {
		return datamodels.Bar{}, false
	}
	timestamp, err := c.parseTimestamp(ts)
	if err != nil {
		return datamodels.Bar{}, false
	}

	closePrice, ok := c.floatField(record, fieldClose)
	if !ok {
		return datamodels.Bar{}, false
	}

	bar := datamodels.Bar{
		Timestamp: timestamp,
		Close:     closePrice,
		Open:      closePrice,
		High:      closePrice,
		Low:       closePrice,
	}
	if v, ok := c.floatField(record, fieldOpen); ok {
		bar.Open = v
	}
	if v, ok := c.floatField(record, fieldHigh); ok {
		bar.High = v
	}
	if v, ok := c.floatField(record, fieldLow); ok {
		bar.Low = v
	}
	if v, ok := c.floatField(record, fieldVolume); ok {
		bar.Volume = v
	}
	return bar, true
}

func (c *CsvProvider) field(record []string, name string) (string, bool) {
	idx, ok := c.columns[name]
	if !ok || idx >= len(record) {
		return "", false
	}
	value := strings.TrimSpace(record[idx])
	return value, value != ""
}

func (c *CsvProvider) floatField(record []string, name string) (float64, bool) {
	raw, ok := c.field(record, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (c *CsvProvider) parseTimestamp(raw string) (time.Time, error) {
	switch c.timestampFormat {
	case "unix":
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(secs, 0).UTC(), nil
	case "":
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), nil
		}
		for _, layout := range csvTimestampLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
	}
	t, err := time.Parse(c.timestampFormat, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// CsvFilename is the file CsvProvider looks for first.
func CsvFilename(symbol, interval string) string {
	return fmt.Sprintf("%s_%s.csv", symbol, interval)
}

// WriteCsvBars writes bars in the default column layout with a header row, so
// the output can be read back by a default CsvProvider.
func WriteCsvBars(w io.Writer, bars []datamodels.Bar) error {
	writer := csv.NewWriter(w)
	header := make([]string, len(DefaultCsvColumns))
	for i, col := range DefaultCsvColumns {
		header[i] = col.FieldName
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, bar := range bars {
		record := []string{
			bar.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
			strconv.FormatFloat(bar.Volume, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
