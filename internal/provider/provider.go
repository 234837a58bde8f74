// Package provider defines the quote/history source contract and the ordered
// chain that walks sources until one answers.
package provider

import (
	"context"
	"errors"

	"PortfolioSentinel/internal/model"
)

var (
	// ErrNotFound means the provider does not know the symbol.
	ErrNotFound = errors.New("symbol not found")
	// ErrUnavailable means the provider could not answer right now
	// (network, HTTP, decode, throttling, open circuit, timeout).
	ErrUnavailable = errors.New("provider unavailable")
)

// Provider is a source of current quotes and daily history.
type Provider interface {
	Name() string
	FetchPrice(ctx context.Context, symbol string) (model.Quote, error)
	FetchHistory(ctx context.Context, symbol string, days int) (model.PriceSeries, error)
}

// Status is the outcome of one provider call.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}

// Classify maps a provider error onto a Status. Anything not explicitly
// ErrNotFound is treated as transient.
func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	default:
		return StatusUnavailable
	}
}

// QuoteResult is the variant returned by a chain walk for a price.
type QuoteResult struct {
	Quote    model.Quote
	Provider string
	Status   Status
	Err      error
}

// OK reports whether the walk produced a quote.
func (r QuoteResult) OK() bool { return r.Status == StatusOK }

// HistoryResult is the variant returned by a chain walk for a series.
type HistoryResult struct {
	Series   model.PriceSeries
	Provider string
	Status   Status
	Err      error
}

// OK reports whether the walk produced a non-empty series.
func (r HistoryResult) OK() bool { return r.Status == StatusOK }
