package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ThisIsLeoZhao/stock/market"
)

// DefaultYahooURL is the public Yahoo Finance chart API endpoint.
const DefaultYahooURL = "https://query1.finance.yahoo.com"

// YahooClient implements Fetcher against the Yahoo Finance v8 chart API.
type YahooClient struct {
	// BaseURL can be pointed at a test server; empty means DefaultYahooURL.
	BaseURL string

	client *http.Client
}

// NewYahooClient builds a client with the given request timeout and optional
// HTTP proxy.
func NewYahooClient(timeout time.Duration, proxyURL string) *YahooClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// yahooChart is the chart API response envelope.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves bars for the whole period at the given interval. Bars with
// any missing OHLC value are dropped; if nothing valid remains the call
// fails with an *UpstreamError so an empty series can never be mistaken for
// data.
func (y *YahooClient) Fetch(ctx context.Context, symbol string, period Period, interval market.Interval) ([]market.Bar, error) {
	base := y.BaseURL
	if base == "" {
		base = DefaultYahooURL
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		base, url.PathEscape(symbol), interval.ChartCode(), string(period))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &UpstreamError{Symbol: symbol, Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Symbol: symbol, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Symbol: symbol,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, &UpstreamError{Symbol: symbol, Err: fmt.Errorf("decode: %w", err)}
	}
	if chart.Chart.Error != nil {
		return nil, &UpstreamError{Symbol: symbol,
			Err: fmt.Errorf("api error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, &UpstreamError{Symbol: symbol, Err: errors.New("no data returned")}
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]market.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			break
		}
		// Null entries mark holidays and half-days; drop them here so the
		// cache only ever sees complete bars.
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}
		bar := market.Bar{
			Date:  market.Midnight(time.Unix(ts, 0)),
			Open:  *quote.Open[i],
			High:  *quote.High[i],
			Low:   *quote.Low[i],
			Close: *quote.Close[i],
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil && *quote.Volume[i] >= 0 {
			bar.Volume = *quote.Volume[i]
			bar.HasVolume = true
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, &UpstreamError{Symbol: symbol, Err: errors.New("no valid bars after cleaning")}
	}
	market.SortByDate(bars)
	return bars, nil
}
