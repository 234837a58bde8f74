package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"PortfolioSentinel/internal/model"
)

const polygonBaseURL = "https://api.polygon.io"

// Polygon fetches quotes and daily aggregates from the Polygon.io REST API.
type Polygon struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Clock   func() time.Time
}

// NewPolygon creates a Polygon provider.
func NewPolygon(apiKey string, client *http.Client) *Polygon {
	return &Polygon{
		BaseURL: polygonBaseURL,
		APIKey:  apiKey,
		Client:  client,
		Clock:   time.Now,
	}
}

func (p *Polygon) Name() string { return "polygon" }

type polygonLastTrade struct {
	Status  string `json:"status"`
	Results *struct {
		Price float64 `json:"p"`
	} `json:"results"`
}

type polygonAggs struct {
	Status  string `json:"status"`
	Results []struct {
		Close     float64 `json:"c"`
		Timestamp int64   `json:"t"` // ms
	} `json:"results"`
}

func (p *Polygon) FetchPrice(ctx context.Context, symbol string) (model.Quote, error) {
	endpoint := fmt.Sprintf("%s/v2/last/trade/%s?apiKey=%s",
		p.BaseURL, url.PathEscape(symbol), url.QueryEscape(p.APIKey))

	var out polygonLastTrade
	if err := getJSON(ctx, p.Client, p.Name(), endpoint, nil, &out); err != nil {
		return model.Quote{}, err
	}
	switch {
	case out.Status == "NOT_FOUND" || (out.Status == "OK" && out.Results == nil):
		return model.Quote{}, fmt.Errorf("%w: polygon: no trade for %s", ErrNotFound, symbol)
	case out.Status != "OK" || out.Results == nil:
		return model.Quote{}, fmt.Errorf("%w: polygon: status %q", ErrUnavailable, out.Status)
	case !validPrice(out.Results.Price):
		return model.Quote{}, fmt.Errorf("%w: polygon: invalid price %v", ErrUnavailable, out.Results.Price)
	}
	return model.Quote{
		Symbol:     symbol,
		Price:      out.Results.Price,
		ObservedAt: p.Clock(),
		Source:     p.Name(),
	}, nil
}

func (p *Polygon) FetchHistory(ctx context.Context, symbol string, days int) (model.PriceSeries, error) {
	end := p.Clock().UTC()
	// Extra buffer for weekends and holidays.
	start := end.AddDate(0, 0, -(days + 50))
	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=50000&apiKey=%s",
		p.BaseURL, url.PathEscape(symbol), start.Format("2006-01-02"), end.Format("2006-01-02"),
		url.QueryEscape(p.APIKey))

	var out polygonAggs
	if err := getJSON(ctx, p.Client, p.Name(), endpoint, nil, &out); err != nil {
		return model.PriceSeries{}, err
	}
	if out.Status != "OK" && out.Status != "DELAYED" {
		return model.PriceSeries{}, fmt.Errorf("%w: polygon aggs: status %q", ErrUnavailable, out.Status)
	}
	points := make([]model.PricePoint, 0, len(out.Results))
	for _, r := range out.Results {
		points = append(points, model.PricePoint{Date: time.UnixMilli(r.Timestamp), Close: r.Close})
	}
	series := normalizeSeries(symbol, points, days)
	if series.Empty() {
		return model.PriceSeries{}, fmt.Errorf("%w: polygon: no aggregates for %s", ErrNotFound, symbol)
	}
	return series, nil
}
