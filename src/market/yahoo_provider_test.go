package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomity/src/utils/errors"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "currency": "USD"},
      "timestamp": [1709562600, 1709562900, 1709563200],
      "indicators": {"quote": [{
        "open":   [175.1, 175.5, null],
        "high":   [176.0, 176.2, null],
        "low":    [174.9, 175.3, null],
        "close":  [175.6, 175.9, null],
        "volume": [120000, null, null]
      }]}
    }],
    "error": null
  }
}`

func TestYahooProviderFetchBars(t *testing.T) {
	var gotPath, gotRange, gotInterval, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotInterval = r.URL.Query().Get("interval")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartFixture))
	}))
	defer server.Close()

	provider := NewYahooProvider(server.URL).WithUserAgent("test-agent")
	bars, err := provider.FetchBars(context.Background(), "AAPL", "5d", "5m")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "5d", gotRange)
	assert.Equal(t, "5m", gotInterval)
	assert.Equal(t, "test-agent", gotAgent)

	require.Len(t, bars, 2, "bars with a null close are dropped")
	assert.Equal(t, 175.6, bars[0].Close)
	assert.Equal(t, 174.9, bars[0].Low)
	assert.Equal(t, 120000.0, bars[0].Volume)
	assert.Equal(t, 0.0, bars[1].Volume)
	assert.Equal(t, int64(1709562900), bars[1].Timestamp.Unix())
}

func TestYahooProviderUnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	_, err := NewYahooProvider(server.URL).FetchBars(context.Background(), "ZZZZZZ", "5d", "5m")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
	assert.Contains(t, err.Error(), "delisted")
}

func TestYahooProviderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewYahooProvider(server.URL).FetchBars(context.Background(), "AAPL", "5d", "5m")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
}

func TestYahooProviderEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer server.Close()

	_, err := NewYahooProvider(server.URL).FetchBars(context.Background(), "AAPL", "5d", "5m")
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
}
