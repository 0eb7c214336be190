package costbook

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SetPrice inserts or updates the close of an asset on a date.
func (c *Core) SetPrice(md MarketData) error {
	code := normalizeSymbol(md.Asset.Code)
	market := normalizeSymbol(md.Asset.Market.Code)
	if code == "" || market == "" {
		return NewError(ErrCodeInvalidInput, "asset code and market required")
	}
	if md.Date.IsZero() {
		return NewError(ErrCodeInvalidInput, "price date required")
	}
	if md.Close.Sign() <= 0 {
		return NewError(ErrCodeValidation, "close must be greater than 0")
	}
	if md.PreviousClose.Sign() < 0 {
		return NewError(ErrCodeValidation, "previous close must not be negative")
	}
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO prices (asset_code, asset_market, price_date, close, previous_close, updated_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(asset_code, asset_market, price_date) DO UPDATE SET
				close = excluded.close,
				previous_close = excluded.previous_close,
				updated_at = CURRENT_TIMESTAMP
		`, code, market, formatDate(md.Date), md.Close, md.PreviousClose)
		if err != nil {
			return WrapError(ErrCodeDatabase, "set price", err)
		}
		return addOperationLogTx(tx, "SET_PRICE", AssetKey(code, market),
			fmt.Sprintf("%s %s", formatDate(md.Date), md.Close))
	})
	if err != nil {
		return err
	}
	c.invalidatePositionsCache()
	return nil
}

// GetLatestPrice returns the most recent price of asset on or before asOf,
// or nil when none is stored.
func (c *Core) GetLatestPrice(asset Asset, asOf time.Time) (*MarketData, error) {
	return getLatestPrice(context.Background(), c.db, asset, asOf)
}

func getLatestPrice(ctx context.Context, q queryer, asset Asset, asOf time.Time) (*MarketData, error) {
	row := q.QueryRowContext(ctx, `
		SELECT price_date, close, previous_close
		FROM prices
		WHERE asset_code = ? AND asset_market = ? AND price_date <= ?
		ORDER BY price_date DESC
		LIMIT 1
	`, normalizeSymbol(asset.Code), normalizeSymbol(asset.Market.Code), formatDate(dayOf(asOf)))
	md := MarketData{Asset: asset}
	var date string
	if err := row.Scan(&date, &md.Close, &md.PreviousClose); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, WrapError(ErrCodeDatabase, "get latest price", err)
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "parse price date", err)
	}
	md.Date = d
	return &md, nil
}
