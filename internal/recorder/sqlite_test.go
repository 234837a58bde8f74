package recorder

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"PortfolioSentinel/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "sentinel.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RecordPrices(t *testing.T) {
	r := openTestRecorder(t)
	at := time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)
	r.clock = func() time.Time { return at }

	quotes := []model.Quote{
		{Symbol: "AAPL", Price: 190.1, ObservedAt: at, Source: "polygon"},
		{Symbol: "MSFT", Price: 410.2, ObservedAt: at, Source: "synthetic"},
	}
	require.NoError(t, r.RecordPrices(context.Background(), quotes))
	require.NoError(t, r.RecordPrices(context.Background(), nil))

	var n, cycles int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT cycle_id) FROM price_snapshots`).Scan(&n, &cycles))
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, cycles)

	var price float64
	var source string
	require.NoError(t, r.db.QueryRow(`SELECT price, source FROM price_snapshots WHERE symbol = 'MSFT'`).Scan(&price, &source))
	assert.Equal(t, 410.2, price)
	assert.Equal(t, "synthetic", source)
}

func TestSQLiteRecorder_RecordRiskStoresInfAsNull(t *testing.T) {
	r := openTestRecorder(t)
	m := model.NeutralMetrics(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	m.SortinoRatio = math.Inf(1)
	m.TotalReturn = 0.12

	require.NoError(t, r.RecordRisk(context.Background(), "core", m))

	var (
		portfolio string
		total     float64
		sortino   sql.NullFloat64
		beta      float64
	)
	require.NoError(t, r.db.QueryRow(
		`SELECT portfolio, total_return, sortino_ratio, beta FROM risk_snapshots`,
	).Scan(&portfolio, &total, &sortino, &beta))
	assert.Equal(t, "core", portfolio)
	assert.Equal(t, 0.12, total)
	assert.False(t, sortino.Valid)
	assert.Equal(t, 1.0, beta)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordPrices(context.Background(), []model.Quote{{Symbol: "X"}}))
	assert.NoError(t, r.RecordRisk(context.Background(), "p", model.RiskMetrics{}))
	assert.NoError(t, r.Close())
}
