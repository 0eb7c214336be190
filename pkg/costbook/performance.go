package costbook

import (
	"context"
	"time"
)

// Performance summarises the returns of one portfolio in its reporting currency.
type Performance struct {
	PortfolioCode string    `json:"portfolio"`
	AsAt          time.Time `json:"as_at"`
	Currency      string    `json:"currency"`
	MarketValue   Amount    `json:"market_value"`
	Irr           float64   `json:"irr"`
	Twr           float64   `json:"twr"`
	Growth        []float64 `json:"growth"`
}

// GetPerformance computes the money-weighted return of the portfolio's
// non-cash holdings and the time-weighted return of its recorded valuations.
func (c *Core) GetPerformance(portfolioCode string, asAt time.Time) (*Performance, error) {
	if asAt.IsZero() {
		asAt = Today()
	}
	asAt = dayOf(asAt)
	ctx := context.Background()

	positions, err := c.GetPositionsContext(ctx, portfolioCode, asAt)
	if err != nil {
		return nil, err
	}
	trns, err := c.GetTransactions(TransactionFilter{
		PortfolioCode: positions.Portfolio.Code,
		EndDate:       formatDate(asAt),
	})
	if err != nil {
		return nil, err
	}

	holdingsValue := zero
	for _, p := range positions.Positions {
		if p.Asset.IsCash() {
			continue
		}
		if mv := p.View(ViewPortfolio); mv != nil {
			holdingsValue = holdingsValue.plus(mv.MarketValue)
		}
	}
	flows := CashFlowsFromTrns(trns, ViewPortfolio)
	if !holdingsValue.IsZero() {
		flows.Add(CashFlow{Date: asAt, Amount: holdingsValue.Float()})
	}
	irr := c.irr.Calculate(flows)

	snapshots, err := c.GetValuationSnapshots(positions.Portfolio.Code)
	if err != nil {
		return nil, err
	}
	upTo := snapshots[:0]
	for _, s := range snapshots {
		if !s.Date.After(asAt) {
			upTo = append(upTo, s)
		}
	}
	twr := CalculateTwr(upTo)

	perf := &Performance{
		PortfolioCode: positions.Portfolio.Code,
		AsAt:          asAt,
		Currency:      positions.viewCurrency(ViewPortfolio),
		MarketValue:   zero,
		Irr:           irr,
		Twr:           twr.Twr,
		Growth:        twr.Growth,
	}
	if t := positions.Total(ViewPortfolio); t != nil {
		perf.MarketValue = t.MarketValue
	}
	return perf, nil
}
