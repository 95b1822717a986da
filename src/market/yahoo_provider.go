package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

type YahooProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewYahooProvider(baseURL string) *YahooProvider {
	if baseURL == "" {
		baseURL = datamodels.DefaultYahooBaseURL
	}
	return &YahooProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: datamodels.DefaultMarketUserAgent,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *YahooProvider) WithTimeout(timeout time.Duration) *YahooProvider {
	p.client.Timeout = timeout
	return p
}

func (p *YahooProvider) WithUserAgent(userAgent string) *YahooProvider {
	p.userAgent = userAgent
	return p
}

func (p *YahooProvider) WithHTTPClient(client *http.Client) *YahooProvider {
	p.client = client
	return p
}

func (p *YahooProvider) GetName() string {
	return "yahoo"
}

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *yahooChartError   `json:"error"`
	} `json:"chart"`
}

type yahooChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []yahooQuote `json:"quote"`
	} `json:"indicators"`
}

// nulls are common in intraday series, hence the pointers
type yahooQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

func (p *YahooProvider) FetchBars(ctx context.Context, symbol, period, interval string) ([]datamodels.Bar, error) {
	query := url.Values{}
	query.Set("range", period)
	query.Set("interval", interval)
	query.Set("includePrePost", "false")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(symbol), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build chart request")
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	slog.Debug("Requesting chart", "url", endpoint)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrapef(errors.ErrDataUnavailable, err, "chart request for %s", symbol)
	}
	defer resp.Body.Close()

	var chart yahooChartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&chart)

	if chart.Chart.Error != nil {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "chart error for %s: %s: %s",
			symbol, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "chart request for %s returned status %d",
			symbol, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, errors.Wrapef(errors.ErrDataUnavailable, decodeErr, "failed to decode chart for %s", symbol)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "empty chart for %s", symbol)
	}

	return chartToBars(chart.Chart.Result[0]), nil
}

func chartToBars(result yahooChartResult) []datamodels.Bar {
	if len(result.Indicators.Quote) == 0 {
		return []datamodels.Bar{}
	}
	quote := result.Indicators.Quote[0]

	bars := make([]datamodels.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice, ok := valueAt(quote.Close, i)
		if !ok {
			continue
		}
		bar := datamodels.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     closePrice,
			Open:      closePrice,
			High:      closePrice,
			Low:       closePrice,
		}
		if v, ok := valueAt(quote.Open, i); ok {
			bar.Open = v
		}
		if v, ok := valueAt(quote.High, i); ok {
			bar.High = v
		}
		if v, ok := valueAt(quote.Low, i); ok {
			bar.Low = v
		}
		if v, ok := valueAt(quote.Volume, i); ok {
			bar.Volume = v
		}
		bars = append(bars, bar)
	}
	return bars
}

func valueAt(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}
