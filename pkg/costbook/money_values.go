package costbook

// MoneyValues is the value bucket of one position in one currency view.
type MoneyValues struct {
	Currency       string     `json:"currency" msgpack:"currency"`
	CostBasis      Amount     `json:"cost_basis" msgpack:"cost_basis"`
	CostValue      Amount     `json:"cost_value" msgpack:"cost_value"`
	AverageCost    Amount     `json:"average_cost" msgpack:"average_cost"`
	Purchases      Amount     `json:"purchases" msgpack:"purchases"`
	Sales          Amount     `json:"sales" msgpack:"sales"`
	Dividends      Amount     `json:"dividends" msgpack:"dividends"`
	RealisedGain   Amount     `json:"realised_gain" msgpack:"realised_gain"`
	UnrealisedGain Amount     `json:"unrealised_gain" msgpack:"unrealised_gain"`
	TotalGain      Amount     `json:"total_gain" msgpack:"total_gain"`
	MarketValue    Amount     `json:"market_value" msgpack:"market_value"`
	Weight         Amount     `json:"weight" msgpack:"weight"`
	PriceData      *PriceData `json:"price_data,omitempty" msgpack:"price_data,omitempty"`
}

func newMoneyValues(currency string) *MoneyValues {
	return &MoneyValues{
		Currency:       normalizeCurrency(currency),
		CostBasis:      zero,
		CostValue:      zero,
		AverageCost:    zero,
		Purchases:      zero,
		Sales:          zero,
		Dividends:      zero,
		RealisedGain:   zero,
		UnrealisedGain: zero,
		TotalGain:      zero,
		MarketValue:    zero,
		Weight:         zero,
	}
}

// resetCost clears the cost of a closed position. Realised gains are kept.
func (m *MoneyValues) resetCost() {
	m.CostBasis = zero
	m.CostValue = zero
	m.AverageCost = zero
	m.MarketValue = zero
	m.UnrealisedGain = zero
	m.refreshTotalGain()
}

func (m *MoneyValues) refreshTotalGain() {
	m.TotalGain = m.RealisedGain.plus(m.UnrealisedGain)
}

func (m *MoneyValues) clearMarket() {
	m.MarketValue = zero
	m.UnrealisedGain = zero
	m.Weight = zero
	m.refreshTotalGain()
}
