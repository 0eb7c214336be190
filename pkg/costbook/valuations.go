package costbook

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordValuationRequest is the input of RecordValuation. When
// ExternalCashFlow is nil it is derived from the day's transactions.
type RecordValuationRequest struct {
	PortfolioCode    string    `json:"portfolio"`
	Date             time.Time `json:"date"`
	ExternalCashFlow *Amount   `json:"external_cash_flow,omitempty"`
}

// RecordValuation values the portfolio on a day and stores the snapshot
// together with the encoded positions.
func (c *Core) RecordValuation(req RecordValuationRequest) (*ValuationSnapshot, error) {
	date := req.Date
	if date.IsZero() {
		date = Today()
	}
	date = dayOf(date)
	positions, err := c.GetPositions(req.PortfolioCode, date)
	if err != nil {
		return nil, err
	}
	marketValue := zero
	if t := positions.Total(ViewPortfolio); t != nil {
		marketValue = t.MarketValue
	}

	external := req.ExternalCashFlow
	if external == nil {
		trns, err := c.GetTransactions(TransactionFilter{
			PortfolioCode: positions.Portfolio.Code,
			StartDate:     formatDate(date),
			EndDate:       formatDate(date),
		})
		if err != nil {
			return nil, err
		}
		external = amountPtr(externalCashFlow(trns))
	}

	blob, err := MarshalPositions(positions)
	if err != nil {
		return nil, err
	}
	err = c.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO valuation_snapshots (portfolio_code, snapshot_date, market_value, external_cash_flow, positions)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(portfolio_code, snapshot_date) DO UPDATE SET
				market_value = excluded.market_value,
				external_cash_flow = excluded.external_cash_flow,
				positions = excluded.positions
		`, positions.Portfolio.Code, formatDate(date), marketValue, *external, blob)
		if err != nil {
			return WrapError(ErrCodeDatabase, "record valuation", err)
		}
		return addOperationLogTx(tx, "RECORD_VALUATION", positions.Portfolio.Code,
			fmt.Sprintf("%s %s", formatDate(date), marketValue))
	})
	if err != nil {
		return nil, err
	}
	return &ValuationSnapshot{
		Date:             date,
		MarketValue:      marketValue.Float(),
		ExternalCashFlow: external.Float(),
	}, nil
}

// externalCashFlow nets the money that entered the valued holdings on one day,
// in portfolio currency. Deposits and purchases add; withdrawals, sales and
// dividends paid out subtract.
func externalCashFlow(trns []Trn) Amount {
	total := zero
	for _, trn := range trns {
		amount := trn.amount().times(trnViewRate(trn, ViewPortfolio)).Money()
		switch trn.Type {
		case TrnDeposit, TrnBuy, TrnIncrease:
			total = total.plus(amount)
		case TrnWithdrawal, TrnSell, TrnReduce, TrnDividend:
			total = total.minus(amount)
		}
	}
	return total
}

// GetValuationSnapshots returns a portfolio's snapshots in date order.
func (c *Core) GetValuationSnapshots(portfolioCode string) ([]ValuationSnapshot, error) {
	rows, err := c.db.Query(`
		SELECT snapshot_date, market_value, external_cash_flow
		FROM valuation_snapshots
		WHERE portfolio_code = ?
		ORDER BY snapshot_date ASC
	`, normalizeSymbol(portfolioCode))
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list valuations", err)
	}
	defer rows.Close()

	result := []ValuationSnapshot{}
	for rows.Next() {
		var date string
		var marketValue, external Amount
		if err := rows.Scan(&date, &marketValue, &external); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan valuation", err)
		}
		d, err := time.Parse(DateLayout, date)
		if err != nil {
			return nil, WrapError(ErrCodeDatabase, "parse valuation date", err)
		}
		result = append(result, ValuationSnapshot{
			Date:             d,
			MarketValue:      marketValue.Float(),
			ExternalCashFlow: external.Float(),
		})
	}
	return result, rows.Err()
}

// GetSnapshotPositions decodes the positions stored with a snapshot.
func (c *Core) GetSnapshotPositions(portfolioCode string, date time.Time) (*Positions, error) {
	var blob []byte
	err := c.db.QueryRow(
		"SELECT positions FROM valuation_snapshots WHERE portfolio_code = ? AND snapshot_date = ?",
		normalizeSymbol(portfolioCode), formatDate(dayOf(date)),
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, Errorf(ErrCodeNotFound, "no valuation for %s on %s", normalizeSymbol(portfolioCode), formatDate(date))
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "get snapshot positions", err)
	}
	if len(blob) == 0 {
		return nil, Errorf(ErrCodeNotFound, "valuation for %s on %s has no positions", normalizeSymbol(portfolioCode), formatDate(date))
	}
	return UnmarshalPositions(blob)
}
