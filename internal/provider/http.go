package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"PortfolioSentinel/internal/model"
)

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 30 * time.Second

// NewHTTPClient returns a client with the given timeout and optional proxy.
func NewHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// getJSON performs a GET and decodes a JSON body into out. 404 maps to
// ErrNotFound, every other failure to ErrUnavailable.
func getJSON(ctx context.Context, client *http.Client, name, endpoint string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %s build request: %w", ErrUnavailable, name, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s fetch: %w", ErrUnavailable, name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s read body: %w", ErrUnavailable, name, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s: status 404", ErrNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s: status %d, body: %s", ErrUnavailable, name, resp.StatusCode, truncate(body, 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s decode: %w", ErrUnavailable, name, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// normalizeSeries sorts points by date, keeps one point per day (the last
// seen wins), drops non-positive closes and trims to the last days points.
func normalizeSeries(symbol string, points []model.PricePoint, days int) model.PriceSeries {
	for i := range points {
		points[i].Date = model.Day(points[i].Date)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	out := make([]model.PricePoint, 0, len(points))
	for _, p := range points {
		if !validPrice(p.Close) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return model.PriceSeries{Symbol: symbol, Points: out}.Tail(days)
}
