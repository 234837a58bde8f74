// Package recorder persists price and risk snapshots for later analysis.
package recorder

import (
	"context"

	"PortfolioSentinel/internal/model"
)

// Recorder persists historical data for analysis.
type Recorder interface {
	// RecordPrices stores one broadcast cycle worth of quotes.
	RecordPrices(ctx context.Context, quotes []model.Quote) error
	// RecordRisk stores a computed bundle for the named portfolio.
	RecordRisk(ctx context.Context, portfolio string, m model.RiskMetrics) error
	Close() error
}
