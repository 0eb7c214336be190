package costbook

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateTable holds the rates of each currency against Base on one date.
// Rates[c] is the number of units of c one unit of Base buys.
type RateTable struct {
	Base  string            `json:"base"`
	Date  time.Time         `json:"date"`
	Rates map[string]Amount `json:"rates"`
}

// FxRate is a resolved cross rate.
type FxRate struct {
	Pair CurrencyPair `json:"pair"`
	Rate Amount       `json:"rate"`
	Date time.Time    `json:"date"`
}

var one = Amount{decimal.NewFromInt(1)}

// rate returns the table entry for code. Base is implicitly 1.
func (t RateTable) rate(code string) (Amount, error) {
	code = normalizeCurrency(code)
	if r, ok := t.Rates[code]; ok && !r.IsZero() {
		return r, nil
	}
	if code == normalizeCurrency(t.Base) {
		return one, nil
	}
	return zero, Errorf(ErrCodeRateNotFound, "no %s rate against %s on %s", code, t.Base, formatDate(t.Date))
}

// CrossRate derives the from→to rate for pair out of table.
func CrossRate(asAt time.Time, pair CurrencyPair, table RateTable) (FxRate, error) {
	pair = NewCurrencyPair(pair.From, pair.To)
	if pair.From == pair.To {
		return FxRate{Pair: pair, Rate: one, Date: asAt}, nil
	}
	date := table.Date
	if date.IsZero() {
		date = asAt
	}
	to, err := table.rate(pair.To)
	if err != nil {
		return FxRate{}, err
	}
	if pair.From == normalizeCurrency(table.Base) {
		return FxRate{Pair: pair, Rate: to, Date: date}, nil
	}
	from, err := table.rate(pair.From)
	if err != nil {
		return FxRate{}, err
	}
	return FxRate{Pair: pair, Rate: to.over(from, rateScale), Date: date}, nil
}

// CrossRates resolves every pair against table. The first missing rate fails the call.
func CrossRates(asAt time.Time, pairs []CurrencyPair, table RateTable) (map[CurrencyPair]FxRate, error) {
	out := make(map[CurrencyPair]FxRate, len(pairs))
	for _, pair := range pairs {
		r, err := CrossRate(asAt, pair, table)
		if err != nil {
			return nil, err
		}
		out[r.Pair] = r
	}
	return out, nil
}

// lookupRate finds from→to in rates, using the identity rate for equal currencies.
func lookupRate(rates map[CurrencyPair]FxRate, from, to string) (Amount, error) {
	pair := NewCurrencyPair(from, to)
	if pair.From == pair.To {
		return one, nil
	}
	if r, ok := rates[pair]; ok {
		return r.Rate, nil
	}
	return zero, Errorf(ErrCodeRateNotFound, "no rate for %s", pair)
}
