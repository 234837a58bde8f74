package provider

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"PortfolioSentinel/internal/model"
)

// QuoteBucket is the window within which synthetic quotes are stable.
const QuoteBucket = 5 * time.Minute

// DefaultBasePrice is used for symbols missing from BasePrices.
const DefaultBasePrice = 100.0

// BasePrices are the reference prices synthetic quotes are perturbed around.
var BasePrices = map[string]float64{
	"AAPL":  175.0,
	"GOOGL": 140.0,
	"MSFT":  380.0,
	"TSLA":  250.0,
	"AMZN":  145.0,
	"NVDA":  480.0,
	"META":  320.0,
	"NFLX":  450.0,
	"SPY":   450.0,
	"QQQ":   380.0,
	"VTI":   240.0,
	"BTC":   45000.0,
	"ETH":   2800.0,
}

const (
	historyStart  = 100.0
	historyFloor  = 1.0
	historyMu     = 0.001
	historySigma  = 0.02
	historyStream = 0x5eed
)

// Synthetic generates deterministic demo data. It answers for every
// non-empty symbol, which makes it the terminal link of every chain.
type Synthetic struct {
	Clock func() time.Time
}

// NewSynthetic creates a synthetic provider on the wall clock.
func NewSynthetic() *Synthetic {
	return &Synthetic{Clock: time.Now}
}

func (s *Synthetic) Name() string { return "synthetic" }

// BasePrice returns the reference price for symbol.
func BasePrice(symbol string) float64 {
	if p, ok := BasePrices[symbol]; ok {
		return p
	}
	return DefaultBasePrice
}

// PriceAt returns the synthetic price of symbol for the bucket containing at:
// the base price perturbed uniformly within ±5%, rounded to cents.
func (s *Synthetic) PriceAt(symbol string, at time.Time) float64 {
	bucket := uint64(at.Unix() / int64(QuoteBucket/time.Second))
	rng := rand.New(rand.NewPCG(xxhash.Sum64String(symbol), bucket))
	variation := rng.Float64()*0.10 - 0.05
	return decimal.NewFromFloat(BasePrice(symbol) * (1 + variation)).Round(2).InexactFloat64()
}

func (s *Synthetic) FetchPrice(_ context.Context, symbol string) (model.Quote, error) {
	if symbol == "" {
		return model.Quote{}, fmt.Errorf("%w: synthetic: empty symbol", ErrNotFound)
	}
	now := s.Clock()
	return model.Quote{
		Symbol:     symbol,
		Price:      s.PriceAt(symbol, now),
		ObservedAt: now,
		Source:     s.Name(),
	}, nil
}

// FetchHistory returns a geometric random walk seeded by the symbol alone,
// exactly days points long and ending today.
func (s *Synthetic) FetchHistory(_ context.Context, symbol string, days int) (model.PriceSeries, error) {
	if symbol == "" || days <= 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: synthetic: invalid request %q/%d", ErrNotFound, symbol, days)
	}
	rng := rand.New(rand.NewPCG(xxhash.Sum64String(symbol), historyStream))

	end := model.Day(s.Clock())
	start := end.AddDate(0, 0, -(days - 1))
	points := make([]model.PricePoint, days)
	price := historyStart
	for i := 0; i < days; i++ {
		if i > 0 {
			logReturn := historyMu + historySigma*rng.NormFloat64()
			price = math.Max(price*math.Exp(logReturn), historyFloor)
		}
		points[i] = model.PricePoint{Date: start.AddDate(0, 0, i), Close: price}
	}
	return model.PriceSeries{Symbol: symbol, Points: points}, nil
}
