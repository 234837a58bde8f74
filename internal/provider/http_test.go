package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPolygonFetchPrice(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"status":"OK","results":{"p":187.25}}`)
	p := NewPolygon("key", srv.Client())
	p.BaseURL = srv.URL
	p.Clock = fixedClock

	q, err := p.FetchPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 187.25, q.Price)
	assert.Equal(t, fixedNow, q.ObservedAt)
	assert.Equal(t, "polygon", q.Source)
}

func TestPolygonClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Status
	}{
		{"http 404", http.StatusNotFound, `{}`, StatusNotFound},
		{"not found status", http.StatusOK, `{"status":"NOT_FOUND"}`, StatusNotFound},
		{"server error", http.StatusInternalServerError, `oops`, StatusUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{}`, StatusUnavailable},
		{"bad json", http.StatusOK, `{not json`, StatusUnavailable},
		{"zero price", http.StatusOK, `{"status":"OK","results":{"p":0}}`, StatusUnavailable},
		{"error status", http.StatusOK, `{"status":"ERROR"}`, StatusUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			p := NewPolygon("key", srv.Client())
			p.BaseURL = srv.URL
			_, err := p.FetchPrice(context.Background(), "AAPL")
			require.Error(t, err)
			assert.Equal(t, tt.want, Classify(err))
		})
	}
}

func TestPolygonFetchHistory(t *testing.T) {
	day := func(d int) int64 { return time.Date(2025, 3, d, 5, 0, 0, 0, time.UTC).UnixMilli() }
	body := fmt.Sprintf(`{"status":"OK","results":[
		{"c":101,"t":%d},{"c":100,"t":%d},{"c":102,"t":%d},{"c":0,"t":%d}]}`,
		day(11), day(10), day(12), day(13))
	srv := serve(t, http.StatusOK, body)
	p := NewPolygon("key", srv.Client())
	p.BaseURL = srv.URL
	p.Clock = fixedClock

	s, err := p.FetchHistory(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102}, s.Closes())
	assert.True(t, s.Points[0].Date.Before(s.Points[1].Date))
}

func TestAlphaVantageFetchPrice(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"Global Quote":{"01. symbol":"MSFT","05. price":"412.3400"}}`)
	a := NewAlphaVantage("key", srv.Client())
	a.BaseURL = srv.URL
	a.Clock = fixedClock

	q, err := a.FetchPrice(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.InDelta(t, 412.34, q.Price, 1e-9)
	assert.Equal(t, "alphavantage", q.Source)
}

func TestAlphaVantageClassification(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Status
	}{
		{"unknown symbol", `{"Error Message":"Invalid API call"}`, StatusNotFound},
		{"empty quote", `{"Global Quote":{}}`, StatusNotFound},
		{"throttled", `{"Note":"Thank you for using Alpha Vantage! 5 calls per minute"}`, StatusUnavailable},
		{"information", `{"Information":"premium endpoint"}`, StatusUnavailable},
		{"unparsable", `{"Global Quote":{"05. price":"n/a"}}`, StatusUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, tt.body)
			a := NewAlphaVantage("key", srv.Client())
			a.BaseURL = srv.URL
			_, err := a.FetchPrice(context.Background(), "XXX")
			require.Error(t, err)
			assert.Equal(t, tt.want, Classify(err))
		})
	}
}

func TestAlphaVantageFetchHistory(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"Time Series (Daily)":{
		"2025-03-12":{"4. close":"12.50"},
		"2025-03-10":{"4. close":"10.00"},
		"2025-03-11":{"4. close":"11.25"},
		"garbage":{"4. close":"1"}}}`)
	a := NewAlphaVantage("key", srv.Client())
	a.BaseURL = srv.URL

	s, err := a.FetchHistory(context.Background(), "IBM", 30)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11.25, 12.5}, s.Closes())
}

func TestYahooFetchPriceSkipsNullBars(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"chart":{"result":[{"timestamp":[1741600000,1741686400,1741772800],
		"indicators":{"quote":[{"close":[10.5,11.5,null]}]}}],"error":null}}`)
	y := NewYahoo(srv.Client())
	y.BaseURL = srv.URL
	y.Clock = fixedClock

	q, err := y.FetchPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 11.5, q.Price)
	assert.Equal(t, "yahoo", q.Source)
}

func TestYahooNotFound(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	y := NewYahoo(srv.Client())
	y.BaseURL = srv.URL

	_, err := y.FetchHistory(context.Background(), "NOPE", 10)
	assert.Equal(t, StatusNotFound, Classify(err))
}

func TestYahooSymbolMapping(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1741600000],"indicators":{"quote":[{"close":[5000]}]}}]}}`)
	}))
	defer srv.Close()
	y := NewYahoo(srv.Client())
	y.BaseURL = srv.URL

	_, err := y.FetchPrice(context.Background(), "SPX500")
	require.NoError(t, err)
	assert.Equal(t, "/^GSPC", gotPath)
}

func TestYahooRange(t *testing.T) {
	assert.Equal(t, "1mo", yahooRange(10))
	assert.Equal(t, "1y", yahooRange(252*7/5+10))
	assert.Equal(t, "2y", yahooRange(400))
	assert.Equal(t, "10y", yahooRange(5000))
}

func TestUnreachableIsUnavailable(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	srv.Close()
	p := NewPolygon("key", NewHTTPClient(time.Second, ""))
	p.BaseURL = srv.URL

	_, err := p.FetchPrice(context.Background(), "AAPL")
	assert.Equal(t, StatusUnavailable, Classify(err))
}
