package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"PortfolioSentinel/internal/model"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Yahoo implements Provider using the Yahoo Finance public chart API. It
// needs no API key, so it is enabled explicitly in configuration.
type Yahoo struct {
	BaseURL   string
	Client    *http.Client
	Clock     func() time.Time
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahoo creates a Yahoo Finance provider.
func NewYahoo(client *http.Client) *Yahoo {
	return &Yahoo{
		BaseURL: yahooChartURL,
		Client:  client,
		Clock:   time.Now,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
			"BTC":    "BTC-USD",
			"ETH":    "ETH-USD",
		},
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) yahooSymbol(symbol string) string {
	if mapped, ok := y.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.PricePoint, error) {
	endpoint := fmt.Sprintf("%s/%s?interval=%s&range=%s",
		y.BaseURL, url.PathEscape(y.yahooSymbol(symbol)), interval, rng)

	var chart yahooChart
	header := http.Header{"User-Agent": {"Mozilla/5.0"}}
	if err := getJSON(ctx, y.Client, y.Name(), endpoint, header, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: yahoo: %s", ErrNotFound, chart.Chart.Error.Description)
		}
		return nil, fmt.Errorf("%w: yahoo api error: %s", ErrUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo: no data returned for %s", ErrNotFound, symbol)
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // null bars (holidays etc.)
		}
		points = append(points, model.PricePoint{Date: time.Unix(ts, 0), Close: *closes[i]})
	}
	return points, nil
}

func (y *Yahoo) FetchPrice(ctx context.Context, symbol string) (model.Quote, error) {
	points, err := y.fetchChart(ctx, symbol, "1d", "5d")
	if err != nil {
		return model.Quote{}, err
	}
	if len(points) == 0 {
		return model.Quote{}, fmt.Errorf("%w: yahoo: no price data for %s", ErrNotFound, symbol)
	}
	last := points[len(points)-1].Close
	if !validPrice(last) {
		return model.Quote{}, fmt.Errorf("%w: yahoo: invalid price %v", ErrUnavailable, last)
	}
	return model.Quote{
		Symbol:     symbol,
		Price:      last,
		ObservedAt: y.Clock(),
		Source:     y.Name(),
	}, nil
}

// yahooRange picks the smallest chart range covering the given calendar days.
func yahooRange(days int) string {
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	case days <= 1825:
		return "5y"
	default:
		return "10y"
	}
}

func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, days int) (model.PriceSeries, error) {
	// days counts trading sessions; widen to calendar days.
	points, err := y.fetchChart(ctx, symbol, "1d", yahooRange(days*7/5+10))
	if err != nil {
		return model.PriceSeries{}, err
	}
	series := normalizeSeries(symbol, points, days)
	if series.Empty() {
		return model.PriceSeries{}, fmt.Errorf("%w: yahoo: no daily bars for %s", ErrNotFound, symbol)
	}
	return series, nil
}
