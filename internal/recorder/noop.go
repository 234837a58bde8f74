package recorder

import (
	"context"

	"PortfolioSentinel/internal/model"
)

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordPrices(context.Context, []model.Quote) error { return nil }
func (n *NoopRecorder) RecordRisk(context.Context, string, model.RiskMetrics) error { return nil }
func (n *NoopRecorder) Close() error { return nil }
