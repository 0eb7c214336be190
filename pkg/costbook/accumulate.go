package costbook

import (
	"io"
	"log/slog"
)

// DefaultBaseCurrency is used when a portfolio does not name a base currency.
const DefaultBaseCurrency = "USD"

// Accumulator folds transactions into positions. It holds no per-position
// state, so one Accumulator may serve many concurrent folds.
type Accumulator struct {
	currencies   CurrencyResolver
	baseCurrency string
	logger       *slog.Logger
}

// NewAccumulator creates an Accumulator. A nil resolver skips currency
// validation; a nil logger discards debug output.
func NewAccumulator(currencies CurrencyResolver, baseCurrency string, logger *slog.Logger) *Accumulator {
	if logger == nil {
		logger = discardLogger()
	}
	if baseCurrency == "" {
		baseCurrency = DefaultBaseCurrency
	}
	return &Accumulator{
		currencies:   currencies,
		baseCurrency: normalizeCurrency(baseCurrency),
		logger:       logger,
	}
}

// viewRate is the currency and trade-currency multiplier of one view.
type viewRate struct {
	view     View
	currency string
	rate     Amount
}

// Accumulate applies trn to position and returns it. A nil position starts empty.
// On error the position is returned unchanged.
func (a *Accumulator) Accumulate(trn Trn, portfolio Portfolio, position *Position) (*Position, error) {
	if position == nil {
		position = NewPosition(trn.Asset)
	}
	if last := position.DateValues.LastTrade; last != nil && trn.TradeDate.Before(*last) {
		return position, Errorf(ErrCodeUnorderedTransaction,
			"%s %s dated %s precedes last applied trade on %s",
			trn.Type, trn.Asset.Key(), formatDate(trn.TradeDate), formatDate(*last))
	}
	views, err := a.viewRates(trn, portfolio)
	if err != nil {
		return position, err
	}

	wasOpen := position.QuantityValues.HasPosition()
	switch trn.Type {
	case TrnBuy:
		buy(position, views, trn.Quantity.abs(), trn.amount())
	case TrnSell:
		sell(position, views, trn.Quantity.abs(), trn.amount())
	case TrnDividend:
		dividend(position, views, trn)
	case TrnSplit:
		if trn.Quantity.Sign() <= 0 {
			return position, Errorf(ErrCodeValidation, "split ratio must be positive, got %s", trn.Quantity)
		}
		split(position, views, trn.Quantity)
	case TrnDeposit:
		deposit(position, views, trn.amount())
	case TrnWithdrawal:
		withdraw(position, views, trn.amount())
	case TrnIncrease:
		buy(position, views, trn.Quantity.abs(), trn.amount())
	case TrnReduce:
		reduce(position, views, trn.Quantity.abs(), trn.amount())
	case TrnBalance:
		balance(position, views, trn.Quantity)
	default:
		return position, Errorf(ErrCodeUnsupported, "unsupported transaction type: %s", trn.Type)
	}
	position.markTrade(trn.TradeDate, wasOpen)

	a.logger.Debug("transaction accumulated",
		"type", trn.Type,
		"asset", trn.Asset.Key(),
		"trade_date", formatDate(trn.TradeDate),
		"quantity", position.QuantityValues.Total().String(),
	)
	return position, nil
}

// viewRates resolves the currency of each view and the rate from the trade currency into it.
func (a *Accumulator) viewRates(trn Trn, portfolio Portfolio) ([]viewRate, error) {
	trade := normalizeCurrency(trn.TradeCurrency)
	if trade == "" {
		trade = normalizeCurrency(trn.Asset.Market.Currency)
	}
	base := normalizeCurrency(portfolio.Base)
	if base == "" {
		base = a.baseCurrency
	}
	reporting := normalizeCurrency(portfolio.Currency)
	if reporting == "" {
		reporting = base
	}
	if a.currencies != nil {
		for _, code := range []string{trade, base, reporting} {
			if _, err := a.currencies.Resolve(code); err != nil {
				return nil, err
			}
		}
	}
	return []viewRate{
		{view: ViewTrade, currency: trade, rate: one},
		{view: ViewBase, currency: base, rate: rateOrIdentity(trade, base, trn.TradeBaseRate)},
		{view: ViewPortfolio, currency: reporting, rate: rateOrIdentity(trade, reporting, trn.TradePortfolioRate)},
	}, nil
}

func rateOrIdentity(from, to string, rate Amount) Amount {
	if from == to {
		return one
	}
	return rate.orOne()
}

// amount is the trade value in trade currency. An explicit TradeAmount wins;
// otherwise quantity × price adjusted for fees and tax.
func (t Trn) amount() Amount {
	if !t.TradeAmount.IsZero() {
		return t.TradeAmount.abs()
	}
	gross := t.Quantity.abs().times(t.Price)
	switch t.Type {
	case TrnBuy, TrnIncrease:
		return gross.plus(t.Fees).plus(t.Tax).Money()
	case TrnSell, TrnReduce:
		return gross.minus(t.Fees).minus(t.Tax).Money()
	case TrnDividend:
		if gross.IsZero() {
			return t.cashInTrade().Money()
		}
		return gross.minus(t.Tax).Money()
	case TrnDeposit, TrnWithdrawal, TrnBalance:
		if gross.IsZero() || t.Price.IsZero() {
			return t.Quantity.abs().Money()
		}
	}
	return gross.Money()
}

// cashInTrade converts CashAmount into the trade currency. TradeCashRate is
// quoted trade→cash.
func (t Trn) cashInTrade() Amount {
	cash := t.CashAmount.abs()
	if t.CashCurrency == "" || t.CashCurrency == t.TradeCurrency {
		return cash
	}
	return cash.over(t.TradeCashRate.orOne(), rateScale)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
