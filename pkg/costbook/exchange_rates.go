package costbook

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SetExchangeRate stores how many units of code one unit of the base currency
// buys on date.
func (c *Core) SetExchangeRate(date time.Time, code string, rate Amount) error {
	code = normalizeCurrency(code)
	if _, err := c.currencies.Resolve(code); err != nil {
		return err
	}
	if code == c.baseCurrency {
		return Errorf(ErrCodeInvalidInput, "%s is the base currency", code)
	}
	if rate.Sign() <= 0 {
		return NewError(ErrCodeValidation, "rate must be greater than 0")
	}
	if date.IsZero() {
		return NewError(ErrCodeInvalidInput, "date required")
	}
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO fx_rates (base, currency, rate_date, rate, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(base, currency, rate_date) DO UPDATE SET
				rate = excluded.rate,
				updated_at = CURRENT_TIMESTAMP
		`, c.baseCurrency, code, formatDate(date), Amount{rate.Round(rateScale)})
		if err != nil {
			return WrapError(ErrCodeDatabase, "set exchange rate", err)
		}
		return addOperationLogTx(tx, "SET_EXCHANGE_RATE", c.baseCurrency+":"+code,
			fmt.Sprintf("%s %s", formatDate(date), rate))
	})
	if err != nil {
		return err
	}
	c.invalidatePositionsCache()
	return nil
}

// GetRateTable returns, per currency, the latest rate on or before date.
func (c *Core) GetRateTable(date time.Time) (*RateTable, error) {
	return getRateTable(context.Background(), c.db, c.baseCurrency, date)
}

func getRateTable(ctx context.Context, q queryer, base string, date time.Time) (*RateTable, error) {
	day := formatDate(dayOf(date))
	rows, err := q.QueryContext(ctx, `
		SELECT f.currency, f.rate
		FROM fx_rates f
		WHERE f.base = ?
		  AND f.rate_date = (
			SELECT MAX(rate_date) FROM fx_rates
			WHERE base = f.base AND currency = f.currency AND rate_date <= ?
		  )
		ORDER BY f.currency
	`, base, day)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "load rate table", err)
	}
	defer rows.Close()

	table := &RateTable{Base: base, Date: dayOf(date), Rates: map[string]Amount{}}
	for rows.Next() {
		var code string
		var rate Amount
		if err := rows.Scan(&code, &rate); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan rate", err)
		}
		table.Rates[code] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "load rate table", err)
	}
	return table, nil
}

// GetCrossRates resolves pairs against the rate table in force on date.
func (c *Core) GetCrossRates(date time.Time, pairs []CurrencyPair) (map[CurrencyPair]FxRate, error) {
	table, err := c.GetRateTable(date)
	if err != nil {
		return nil, err
	}
	return CrossRates(dayOf(date), pairs, *table)
}
