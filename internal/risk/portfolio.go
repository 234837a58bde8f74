package risk

import "PortfolioSentinel/internal/model"

// Value prices each holding. Holdings without a positive price are kept with
// Priced=false and contribute nothing to the totals.
func Value(holdings []model.Holding, prices map[string]float64) model.Valuation {
	val := model.Valuation{Positions: make([]model.PositionValue, 0, len(holdings))}
	for _, h := range holdings {
		pv := model.PositionValue{Symbol: h.Symbol, Quantity: h.Quantity}
		if price, ok := prices[h.Symbol]; ok && price > 0 {
			pv.Price = price
			pv.Priced = true
			pv.MarketValue = h.Quantity * price
			val.TotalValue += pv.MarketValue
			if h.PurchasePrice > 0 {
				cost := h.Quantity * h.PurchasePrice
				pv.UnrealizedPnL = pv.MarketValue - cost
				pv.HasCost = true
				val.TotalCost += cost
				val.TotalPnL += pv.UnrealizedPnL
				val.HasCost = true
			}
		}
		val.Positions = append(val.Positions, pv)
	}
	return val
}

// MarketValues sums market value per symbol over the priced positions.
func MarketValues(v model.Valuation) map[string]float64 {
	out := make(map[string]float64, len(v.Positions))
	for _, p := range v.Positions {
		if p.Priced {
			out[p.Symbol] += p.MarketValue
		}
	}
	return out
}

// Weights normalizes market values by their total. A non-positive total
// yields no weights.
func Weights(marketValues map[string]float64) map[string]float64 {
	var total float64
	for _, v := range marketValues {
		total += v
	}
	weights := make(map[string]float64, len(marketValues))
	if total <= 0 {
		return weights
	}
	for s, v := range marketValues {
		weights[s] = v / total
	}
	return weights
}
