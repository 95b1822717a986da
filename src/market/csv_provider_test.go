package market

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

type CsvProviderTestSuite struct {
	suite.Suite
	ctx     context.Context
	dataDir string
}

func (s *CsvProviderTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.dataDir = s.T().TempDir()

	daily := "timestamp,open,high,low,close,volume\n" +
		"2024-01-10,100,101,99,100.5,1000\n" +
		"2024-01-02,98,99,97,98.5,900\n" +
		"2024-01-11,101,102,100,101.5,1100\n" +
		"not-a-date,1,1,1,1,1\n" +
		"2024-01-12,102,103,101,,1200\n"
	s.Require().NoError(os.WriteFile(filepath.Join(s.dataDir, "AAPL.csv"), []byte(daily), 0644))

	intraday := "1709562600,175.1,176.0,174.9,175.6,120000\n" +
		"1709562900,175.5,176.2,175.3,175.9,80000\n"
	s.Require().NoError(os.WriteFile(filepath.Join(s.dataDir, "AAPL_5m.csv"), []byte(intraday), 0644))
}

func (s *CsvProviderTestSuite) TestReadsSortedAndSkipsBadRows() {
	provider, err := NewCsvProviderBuilder(s.dataDir).Build()
	s.Require().NoError(err)

	bars, err := provider.FetchBars(s.ctx, "AAPL", "max", "1d")
	s.Require().NoError(err)
	s.Require().Len(bars, 3)
	s.Equal(98.5, bars[0].Close)
	s.Equal(100.5, bars[1].Close)
	s.Equal(101.5, bars[2].Close)
	s.Equal(1100.0, bars[2].Volume)
}

func (s *CsvProviderTestSuite) TestPeriodTrimsFromLastBar() {
	provider, err := NewCsvProviderBuilder(s.dataDir).Build()
	s.Require().NoError(err)

	bars, err := provider.FetchBars(s.ctx, "AAPL", "5d", "1d")
	s.Require().NoError(err)
	s.Require().Len(bars, 2)
	s.Equal(100.5, bars[0].Close)
}

func (s *CsvProviderTestSuite) TestPrefersIntervalFile() {
	provider, err := NewCsvProviderBuilder(s.dataDir).
		WithHasHeader(false).
		WithTimestampFormat("unix").
		Build()
	s.Require().NoError(err)

	bars, err := provider.FetchBars(s.ctx, "AAPL", "1d", "5m")
	s.Require().NoError(err)
	s.Require().Len(bars, 2)
	s.Equal(175.9, bars[1].Close)
}

func (s *CsvProviderTestSuite) TestMissingSymbol() {
	provider, err := NewCsvProviderBuilder(s.dataDir).Build()
	s.Require().NoError(err)

	_, err = provider.FetchBars(s.ctx, "MSFT", "5d", "1d")
	s.True(errors.Is(err, errors.ErrDataUnavailable))
}

func (s *CsvProviderTestSuite) TestCustomColumns() {
	content := "close,timestamp\n50.5,2024-02-01\n51.5,2024-02-02\n"
	s.Require().NoError(os.WriteFile(filepath.Join(s.dataDir, "TSLA.csv"), []byte(content), 0644))

	provider, err := NewCsvProviderBuilder(s.dataDir).
		WithColumns([]datamodels.CsvColumnConfig{
			{ColumnIndex: 0, FieldName: "close"},
			{ColumnIndex: 1, FieldName: "timestamp"},
		}).
		Build()
	s.Require().NoError(err)

	bars, err := provider.FetchBars(s.ctx, "TSLA", "max", "1d")
	s.Require().NoError(err)
	s.Require().Len(bars, 2)
	s.Equal(51.5, bars[1].Open, "missing open falls back to close")
}

func (s *CsvProviderTestSuite) TestBuildValidatesSchema() {
	_, err := NewCsvProviderBuilder(s.dataDir).
		WithColumns([]datamodels.CsvColumnConfig{{ColumnIndex: 0, FieldName: "close"}}).
		Build()
	s.Error(err)

	_, err = NewCsvProviderBuilder(filepath.Join(s.dataDir, "missing")).Build()
	s.Error(err)
}

func (s *CsvProviderTestSuite) TestWriteCsvBarsRoundTrip() {
	written := []datamodels.Bar{
		{Timestamp: time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC), Open: 175.1, High: 176, Low: 174.9, Close: 175.6, Volume: 120000},
		{Timestamp: time.Date(2024, 3, 4, 14, 35, 0, 0, time.UTC), Open: 175.5, High: 176.2, Low: 175.3, Close: 175.9, Volume: 80000},
	}
	f, err := os.Create(filepath.Join(s.dataDir, CsvFilename("MSFT", "5m")))
	s.Require().NoError(err)
	s.Require().NoError(WriteCsvBars(f, written))
	s.Require().NoError(f.Close())

	provider, err := NewCsvProviderBuilder(s.dataDir).Build()
	s.Require().NoError(err)
	bars, err := provider.FetchBars(s.ctx, "MSFT", "max", "5m")
	s.Require().NoError(err)
	s.Require().Len(bars, 2)
	for i := range written {
		s.True(written[i].Timestamp.Equal(bars[i].Timestamp))
		s.Equal(written[i].Close, bars[i].Close)
		s.Equal(written[i].Volume, bars[i].Volume)
	}
}

func TestCsvProviderTestSuite(t *testing.T) {
	suite.Run(t, new(CsvProviderTestSuite))
}
