package costbook

import (
	"log/slog"
)

// changeScale is the number of decimals kept for daily change percentages.
const changeScale = 4

// Valuer revalues positions against market data.
type Valuer struct {
	logger *slog.Logger
}

// NewValuer creates a Valuer. A nil logger discards output.
func NewValuer(logger *slog.Logger) *Valuer {
	if logger == nil {
		logger = discardLogger()
	}
	return &Valuer{logger: logger}
}

// Value revalues the position of marketData.Asset in every view and refreshes
// the portfolio totals. fxRates must hold trade→view pairs for views whose
// currency differs from the trade currency.
func (v *Valuer) Value(positions *Positions, marketData MarketData, fxRates map[CurrencyPair]FxRate) (*Positions, error) {
	if err := v.value(positions, marketData, fxRates); err != nil {
		return positions, err
	}
	positions.RefreshTotals()
	return positions, nil
}

// ValueAll revalues each position that has market data and refreshes totals once.
func (v *Valuer) ValueAll(positions *Positions, marketData []MarketData, fxRates map[CurrencyPair]FxRate) (*Positions, error) {
	for _, md := range marketData {
		if err := v.value(positions, md, fxRates); err != nil {
			return positions, err
		}
	}
	positions.RefreshTotals()
	return positions, nil
}

func (v *Valuer) value(positions *Positions, md MarketData, fxRates map[CurrencyPair]FxRate) error {
	position := positions.Lookup(md.Asset)
	if position == nil {
		v.logger.Debug("no position, market data ignored", "asset", md.Asset.Key())
		return nil
	}
	trade := position.TradeCurrency()
	views := []viewRate{
		{view: ViewTrade, currency: trade},
		{view: ViewBase, currency: positions.viewCurrency(ViewBase)},
		{view: ViewPortfolio, currency: positions.viewCurrency(ViewPortfolio)},
	}
	if !md.HasPrice() {
		v.logger.Warn("no price, market values zeroed", "asset", md.Asset.Key())
	}
	for _, vr := range views {
		if vr.currency == "" {
			vr.currency = trade
		}
		mv := position.Values(vr.view, vr.currency)
		if !md.HasPrice() {
			mv.PriceData = nil
			mv.clearMarket()
			continue
		}
		rate, err := lookupRate(fxRates, trade, mv.Currency)
		if err != nil {
			return err
		}
		revalue(position.QuantityValues, mv, md, rate)
	}
	return nil
}

// revalue sets market value and unrealised gain for one view at rate.
func revalue(q QuantityValues, mv *MoneyValues, md MarketData, rate Amount) {
	closePrice := md.Close.times(rate)
	prevClose := md.PreviousClose.times(rate)
	pd := &PriceData{
		Close:         Amount{closePrice.Round(unitScale)},
		PreviousClose: Amount{prevClose.Round(unitScale)},
		PriceDate:     md.Date,
		Change:        zero,
		ChangePercent: zero,
	}
	if !md.PreviousClose.IsZero() {
		change := closePrice.minus(prevClose)
		pd.Change = Amount{change.Round(unitScale)}
		pd.ChangePercent = change.over(prevClose, changeScale)
	}
	mv.PriceData = pd

	if !q.HasPosition() {
		mv.clearMarket()
		return
	}
	mv.MarketValue = q.Total().times(closePrice).Money()
	mv.UnrealisedGain = mv.MarketValue.minus(mv.CostValue)
	mv.refreshTotalGain()
}
