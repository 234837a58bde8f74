package model

// Holding is a position in a portfolio as supplied by the portfolio store.
type Holding struct {
	Symbol        string  `json:"symbol" yaml:"symbol"`
	Quantity      float64 `json:"quantity" yaml:"quantity"`
	PurchasePrice float64 `json:"purchase_price,omitempty" yaml:"purchase_price"` // 0 means unknown
}

// PositionValue is a holding enriched with its current price.
type PositionValue struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price"`
	Priced        bool    `json:"priced"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	HasCost       bool    `json:"has_cost"`
}

// Valuation summarizes a portfolio at current prices.
type Valuation struct {
	Positions  []PositionValue `json:"positions"`
	TotalValue float64         `json:"total_value"`
	TotalCost  float64         `json:"total_cost"`
	TotalPnL   float64         `json:"total_pnl"`
	HasCost    bool            `json:"has_cost"`
}
