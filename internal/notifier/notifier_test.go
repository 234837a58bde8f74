package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"PortfolioSentinel/internal/analysis"
	"PortfolioSentinel/internal/model"
)

func newTestNotifier(t *testing.T, srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", srv.Client(), zaptest.NewLogger(t))
	n.BaseURL = srv.URL
	n.RetryBase = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(t, srv).Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(t, srv).SendWithRetry(context.Background(), "x", 3))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestNotifier(t, srv).SendWithRetry(context.Background(), "x", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 attempts exhausted")
	assert.Equal(t, int32(3), calls.Load())
}

func TestStartPolling_DispatchesCommands(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		served  atomic.Bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if served.Swap(true) {
				fmt.Fprint(w, `{"ok":true,"result":[]}`)
				return
			}
			fmt.Fprint(w, `{"ok":true,"result":[{"update_id":7,"message":{"text":" /price AAPL "}},{"update_id":8}]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
			fmt.Fprint(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	n := newTestNotifier(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string { return "echo " + cmd })
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(replies) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"echo /price AAPL"}, replies)
}

func TestFormatRiskReport(t *testing.T) {
	m := model.NeutralMetrics(time.Date(2025, 1, 2, 22, 0, 0, 0, time.UTC))
	m.SortinoRatio = math.Inf(1)
	m.TotalReturn = 0.1234
	report := analysis.Report{
		Valuation: model.Valuation{TotalValue: 1000, TotalPnL: 50, HasCost: true},
		Weights:   map[string]float64{"MSFT": 0.4, "AAPL": 0.6},
		Metrics:   m,
		Benchmark: "SPY",
		Missing:   []string{"ZZZ"},
	}
	out := FormatRiskReport("Core <growth>", report)

	assert.Contains(t, out, "Core &lt;growth&gt;")
	assert.Contains(t, out, "Sortino: ∞")
	assert.Contains(t, out, "Total: +12.34%")
	assert.Contains(t, out, "Beta vs SPY: 1.00")
	assert.Contains(t, out, "Unrealized PnL: +50.00")
	assert.Less(t, strings.Index(out, "AAPL"), strings.Index(out, "MSFT"))
	assert.Contains(t, out, "Excluded (no data): ZZZ")
}

func TestFormatPrices(t *testing.T) {
	assert.Equal(t, "No prices.", FormatPrices(nil))
	out := FormatPrices(map[string]float64{"TSLA": 250, "AAPL": 190.456})
	assert.Contains(t, out, "AAPL: 190.46")
	assert.Less(t, strings.Index(out, "AAPL"), strings.Index(out, "TSLA"))
}
