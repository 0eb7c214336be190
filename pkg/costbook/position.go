package costbook

import (
	"encoding/json"
	"time"
)

// View selects the currency a MoneyValues bucket is expressed in.
type View string

const (
	// ViewTrade is the instrument's market currency.
	ViewTrade View = "TRADE"
	// ViewBase is the portfolio's base currency.
	ViewBase View = "BASE"
	// ViewPortfolio is the portfolio's reporting currency.
	ViewPortfolio View = "PORTFOLIO"
)

// Views lists the currency views in display order.
var Views = []View{ViewTrade, ViewBase, ViewPortfolio}

// ParseView parses a view name, case-insensitively.
func ParseView(s string) (View, error) {
	v := View(normalizeSymbol(s))
	for _, known := range Views {
		if v == known {
			return v, nil
		}
	}
	return "", Errorf(ErrCodeInvalidInput, "invalid view: %s", s)
}

// DateValues records the dates a position changed state.
type DateValues struct {
	Opened       *time.Time `json:"opened,omitempty" msgpack:"opened,omitempty"`
	Closed       *time.Time `json:"closed,omitempty" msgpack:"closed,omitempty"`
	LastTrade    *time.Time `json:"last_trade,omitempty" msgpack:"last_trade,omitempty"`
	LastDividend *time.Time `json:"last_dividend,omitempty" msgpack:"last_dividend,omitempty"`
}

// Position is the accumulated state of one asset within one portfolio.
type Position struct {
	Asset          Asset                 `json:"asset" msgpack:"asset"`
	QuantityValues QuantityValues        `json:"quantity_values" msgpack:"quantity_values"`
	MoneyValues    map[View]*MoneyValues `json:"money_values" msgpack:"money_values"`
	DateValues     DateValues            `json:"date_values" msgpack:"date_values"`
}

// NewPosition creates an empty position for asset.
func NewPosition(asset Asset) *Position {
	return &Position{
		Asset:       asset,
		MoneyValues: map[View]*MoneyValues{},
	}
}

// Values returns the bucket for view, creating it in currency on first access.
// An existing bucket keeps the currency it was created with.
func (p *Position) Values(view View, currency string) *MoneyValues {
	if p.MoneyValues == nil {
		p.MoneyValues = map[View]*MoneyValues{}
	}
	if mv, ok := p.MoneyValues[view]; ok {
		return mv
	}
	mv := newMoneyValues(currency)
	p.MoneyValues[view] = mv
	return mv
}

// View returns the bucket for view, or nil when it was never created.
func (p *Position) View(view View) *MoneyValues {
	return p.MoneyValues[view]
}

// TradeCurrency is the currency of the TRADE view, falling back to the market currency.
func (p *Position) TradeCurrency() string {
	if mv, ok := p.MoneyValues[ViewTrade]; ok && mv.Currency != "" {
		return mv.Currency
	}
	return normalizeCurrency(p.Asset.Market.Currency)
}

// MarshalJSON adds the derived quantity total to the encoded position.
func (p *Position) MarshalJSON() ([]byte, error) {
	type plain Position
	return json.Marshal(struct {
		*plain
		Quantity  Amount `json:"quantity"`
		Precision int32  `json:"precision"`
	}{
		plain:     (*plain)(p),
		Quantity:  p.QuantityValues.Total(),
		Precision: p.QuantityValues.Precision(),
	})
}

func (p *Position) markTrade(date time.Time, wasOpen bool) {
	d := date
	p.DateValues.LastTrade = &d
	isOpen := p.QuantityValues.HasPosition()
	switch {
	case isOpen && (!wasOpen || p.DateValues.Opened == nil):
		opened := date
		p.DateValues.Opened = &opened
		p.DateValues.Closed = nil
	case !isOpen && wasOpen:
		closed := date
		p.DateValues.Closed = &closed
	}
}
