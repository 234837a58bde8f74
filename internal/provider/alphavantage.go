package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"PortfolioSentinel/internal/model"
)

const alphaVantageURL = "https://www.alphavantage.co/query"

// AlphaVantage fetches quotes and daily closes from the Alpha Vantage API.
// Prices arrive as decimal strings.
type AlphaVantage struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Clock   func() time.Time
}

// NewAlphaVantage creates an Alpha Vantage provider.
func NewAlphaVantage(apiKey string, client *http.Client) *AlphaVantage {
	return &AlphaVantage{
		BaseURL: alphaVantageURL,
		APIKey:  apiKey,
		Client:  client,
		Clock:   time.Now,
	}
}

func (a *AlphaVantage) Name() string { return "alphavantage" }

// avEnvelope carries the fields Alpha Vantage uses to report problems with
// an otherwise successful HTTP 200.
type avEnvelope struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (e avEnvelope) err(symbol string) error {
	switch {
	case e.ErrorMessage != "":
		return fmt.Errorf("%w: alphavantage: %s: %s", ErrNotFound, symbol, e.ErrorMessage)
	case e.Note != "":
		return fmt.Errorf("%w: alphavantage throttled: %s", ErrUnavailable, e.Note)
	case e.Information != "":
		return fmt.Errorf("%w: alphavantage: %s", ErrUnavailable, e.Information)
	}
	return nil
}

type avGlobalQuote struct {
	avEnvelope
	Quote map[string]string `json:"Global Quote"`
}

type avDaily struct {
	avEnvelope
	Series map[string]map[string]string `json:"Time Series (Daily)"`
}

func (a *AlphaVantage) query(function, symbol string, extra url.Values) string {
	q := url.Values{}
	q.Set("function", function)
	q.Set("symbol", symbol)
	q.Set("apikey", a.APIKey)
	for k, v := range extra {
		q[k] = v
	}
	return a.BaseURL + "?" + q.Encode()
}

func (a *AlphaVantage) FetchPrice(ctx context.Context, symbol string) (model.Quote, error) {
	var out avGlobalQuote
	if err := getJSON(ctx, a.Client, a.Name(), a.query("GLOBAL_QUOTE", symbol, nil), nil, &out); err != nil {
		return model.Quote{}, err
	}
	if err := out.err(symbol); err != nil {
		return model.Quote{}, err
	}
	raw, ok := out.Quote["05. price"]
	if !ok || raw == "" {
		return model.Quote{}, fmt.Errorf("%w: alphavantage: empty quote for %s", ErrNotFound, symbol)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: alphavantage: parse price %q: %w", ErrUnavailable, raw, err)
	}
	if !validPrice(price.InexactFloat64()) {
		return model.Quote{}, fmt.Errorf("%w: alphavantage: invalid price %s", ErrUnavailable, raw)
	}
	return model.Quote{
		Symbol:     symbol,
		Price:      price.InexactFloat64(),
		ObservedAt: a.Clock(),
		Source:     a.Name(),
	}, nil
}

func (a *AlphaVantage) FetchHistory(ctx context.Context, symbol string, days int) (model.PriceSeries, error) {
	outputSize := "compact" // last 100 points
	if days > 100 {
		outputSize = "full"
	}
	endpoint := a.query("TIME_SERIES_DAILY", symbol, url.Values{"outputsize": {outputSize}})

	var out avDaily
	if err := getJSON(ctx, a.Client, a.Name(), endpoint, nil, &out); err != nil {
		return model.PriceSeries{}, err
	}
	if err := out.err(symbol); err != nil {
		return model.PriceSeries{}, err
	}

	points := make([]model.PricePoint, 0, len(out.Series))
	for day, values := range out.Series {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		closePrice, err := decimal.NewFromString(values["4. close"])
		if err != nil {
			continue
		}
		points = append(points, model.PricePoint{Date: date, Close: closePrice.InexactFloat64()})
	}
	series := normalizeSeries(symbol, points, days)
	if series.Empty() {
		return model.PriceSeries{}, fmt.Errorf("%w: alphavantage: no daily series for %s", ErrNotFound, symbol)
	}
	return series, nil
}
