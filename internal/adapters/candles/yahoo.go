package candles

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Candle is one OHLCV bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Body returns the absolute body size of the candle.
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-low span.
func (c Candle) Range() float64 { return c.High - c.Low }

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the candle closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// rangeFor maps a bar interval to how far back the chart API lets us
// query at that granularity.
var rangeFor = map[string]string{
	"1m":  "7d",
	"5m":  "60d",
	"15m": "60d",
	"30m": "60d",
	"1h":  "730d",
	"4h":  "730d",
	"1d":  "max",
}

// chartInterval maps our timeframe labels to the chart API's interval
// tokens. 4h has no native interval; 1h bars cover it.
var chartInterval = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1h":  "60m",
	"4h":  "60m",
	"1d":  "1d",
}

// Fetcher pulls OHLCV bars from the Yahoo chart endpoint.
type Fetcher struct {
	http *resty.Client
}

// NewFetcher builds a fetcher against the public chart endpoint.
func NewFetcher() *Fetcher {
	return &Fetcher{
		http: resty.New().
			SetBaseURL(defaultChartURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond).
			SetHeader("User-Agent", "Mozilla/5.0 (compatible; relbot/1.0)"),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch returns the bars for ticker at the given timeframe, oldest
// first. Bars with null fields (halts, partial sessions) are skipped.
func (f *Fetcher) Fetch(ctx context.Context, ticker, timeframe string) ([]Candle, error) {
	interval, ok := chartInterval[timeframe]
	if !ok {
		return nil, fmt.Errorf("candles: unsupported timeframe %q", timeframe)
	}

	var out chartResponse
	resp, err := f.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": interval,
			"range":    rangeFor[timeframe],
		}).
		SetResult(&out).
		Get("/" + ticker)
	if err != nil {
		return nil, fmt.Errorf("candles: fetch %s: %w", ticker, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("candles: fetch %s: status %d", ticker, resp.StatusCode())
	}
	if out.Chart.Error != nil {
		return nil, fmt.Errorf("candles: fetch %s: %s", ticker, out.Chart.Error.Description)
	}
	if len(out.Chart.Result) == 0 || len(out.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("candles: no data for %s", ticker)
	}

	result := out.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || quote.Open[i] == nil || quote.High[i] == nil ||
			quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}
		var volume float64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		bars = append(bars, Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   *quote.Open[i],
			High:   *quote.High[i],
			Low:    *quote.Low[i],
			Close:  *quote.Close[i],
			Volume: volume,
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("candles: no usable bars for %s", ticker)
	}
	return bars, nil
}
