package costbook

import (
	"sort"
	"time"
)

// weightScale is the number of decimals kept for position weights.
const weightScale = 4

// Totals aggregates the valued positions of a portfolio in one view.
type Totals struct {
	Currency       string `json:"currency" msgpack:"currency"`
	MarketValue    Amount `json:"market_value" msgpack:"market_value"`
	Purchases      Amount `json:"purchases" msgpack:"purchases"`
	Sales          Amount `json:"sales" msgpack:"sales"`
	Dividends      Amount `json:"dividends" msgpack:"dividends"`
	CostValue      Amount `json:"cost_value" msgpack:"cost_value"`
	RealisedGain   Amount `json:"realised_gain" msgpack:"realised_gain"`
	UnrealisedGain Amount `json:"unrealised_gain" msgpack:"unrealised_gain"`
	TotalGain      Amount `json:"total_gain" msgpack:"total_gain"`
}

// Positions holds the positions of one portfolio keyed by AssetKey.
// It is not safe for concurrent use; fold distinct positions separately and Add them.
type Positions struct {
	Portfolio       Portfolio            `json:"portfolio" msgpack:"portfolio"`
	AsAt            *time.Time           `json:"as_at,omitempty" msgpack:"as_at,omitempty"`
	Positions       map[string]*Position `json:"positions" msgpack:"positions"`
	Totals          map[View]*Totals     `json:"totals" msgpack:"totals"`
	MixedCurrencies bool                 `json:"mixed_currencies" msgpack:"mixed_currencies"`
	TradeCurrency   string               `json:"trade_currency,omitempty" msgpack:"trade_currency,omitempty"`
}

// NewPositions creates an empty container for portfolio.
func NewPositions(portfolio Portfolio) *Positions {
	return &Positions{
		Portfolio: portfolio,
		Positions: map[string]*Position{},
		Totals:    map[View]*Totals{},
	}
}

// Get returns the position for asset, creating it on first reference.
func (ps *Positions) Get(asset Asset) *Position {
	if ps.Positions == nil {
		ps.Positions = map[string]*Position{}
	}
	key := asset.Key()
	if p, ok := ps.Positions[key]; ok {
		return p
	}
	p := NewPosition(asset)
	ps.Positions[key] = p
	ps.trackCurrency(asset.Market.Currency)
	return p
}

// Lookup returns the position held for asset, or nil.
func (ps *Positions) Lookup(asset Asset) *Position {
	return ps.Positions[asset.Key()]
}

// Add stores p, replacing any position held for the same asset.
func (ps *Positions) Add(p *Position) {
	if ps.Positions == nil {
		ps.Positions = map[string]*Position{}
	}
	ps.Positions[p.Asset.Key()] = p
	ps.trackCurrency(p.TradeCurrency())
}

// Contains reports whether a position exists for asset.
func (ps *Positions) Contains(asset Asset) bool {
	_, ok := ps.Positions[asset.Key()]
	return ok
}

// HasPositions reports whether the container holds any position.
func (ps *Positions) HasPositions() bool {
	return len(ps.Positions) > 0
}

// IsMixedCurrencies reports whether positions trade in more than one currency.
func (ps *Positions) IsMixedCurrencies() bool {
	return ps.MixedCurrencies
}

// Keys returns the asset keys in sorted order.
func (ps *Positions) Keys() []string {
	keys := make([]string, 0, len(ps.Positions))
	for k := range ps.Positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sorted returns the positions in asset key order.
func (ps *Positions) Sorted() []*Position {
	keys := ps.Keys()
	out := make([]*Position, 0, len(keys))
	for _, k := range keys {
		out = append(out, ps.Positions[k])
	}
	return out
}

// Total returns the totals for view, or nil when they were never computed.
func (ps *Positions) Total(view View) *Totals {
	return ps.Totals[view]
}

func (ps *Positions) trackCurrency(currency string) {
	currency = normalizeCurrency(currency)
	if currency == "" || ps.MixedCurrencies {
		return
	}
	if ps.TradeCurrency == "" {
		ps.TradeCurrency = currency
		return
	}
	if ps.TradeCurrency != currency {
		ps.MixedCurrencies = true
		ps.TradeCurrency = ""
	}
}

// viewCurrency returns the currency a view is reported in at portfolio level.
func (ps *Positions) viewCurrency(view View) string {
	base := normalizeCurrency(ps.Portfolio.Base)
	if base == "" {
		base = DefaultBaseCurrency
	}
	switch view {
	case ViewBase:
		return base
	case ViewPortfolio:
		if c := normalizeCurrency(ps.Portfolio.Currency); c != "" {
			return c
		}
		return base
	default:
		return ps.TradeCurrency
	}
}

// RefreshTotals recomputes per-view totals and position weights.
// TRADE totals are only meaningful when every position trades in one currency.
func (ps *Positions) RefreshTotals() {
	ps.Totals = map[View]*Totals{}
	for _, view := range Views {
		if view == ViewTrade && ps.MixedCurrencies {
			continue
		}
		t := &Totals{
			Currency:       ps.viewCurrency(view),
			MarketValue:    zero,
			Purchases:      zero,
			Sales:          zero,
			Dividends:      zero,
			CostValue:      zero,
			RealisedGain:   zero,
			UnrealisedGain: zero,
			TotalGain:      zero,
		}
		found := false
		for _, p := range ps.Positions {
			mv := p.View(view)
			if mv == nil {
				continue
			}
			found = true
			if t.Currency == "" {
				t.Currency = mv.Currency
			}
			t.MarketValue = t.MarketValue.plus(mv.MarketValue)
			t.Purchases = t.Purchases.plus(mv.Purchases)
			t.Sales = t.Sales.plus(mv.Sales)
			t.Dividends = t.Dividends.plus(mv.Dividends)
			t.CostValue = t.CostValue.plus(mv.CostValue)
			t.RealisedGain = t.RealisedGain.plus(mv.RealisedGain)
			t.UnrealisedGain = t.UnrealisedGain.plus(mv.UnrealisedGain)
			t.TotalGain = t.TotalGain.plus(mv.TotalGain)
		}
		if !found {
			continue
		}
		for _, p := range ps.Positions {
			if mv := p.View(view); mv != nil {
				mv.Weight = mv.MarketValue.over(t.MarketValue, weightScale)
			}
		}
		ps.Totals[view] = t
	}
}
