package costbook

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// GetPositions folds a portfolio's transactions up to asAt into positions and
// values them with the latest stored prices and FX rates on that day.
func (c *Core) GetPositions(portfolioCode string, asAt time.Time) (*Positions, error) {
	return c.GetPositionsContext(context.Background(), portfolioCode, asAt)
}

// GetPositionsContext is GetPositions with a caller-supplied context.
func (c *Core) GetPositionsContext(ctx context.Context, portfolioCode string, asAt time.Time) (*Positions, error) {
	if asAt.IsZero() {
		asAt = Today()
	}
	asAt = dayOf(asAt)
	key := positionsCacheKey(portfolioCode, asAt)
	if cached, ok := c.cache.get(key); ok {
		return cached, nil
	}

	portfolio, err := getPortfolio(ctx, c.db, portfolioCode)
	if err != nil {
		return nil, err
	}
	trns, err := c.GetTransactions(TransactionFilter{
		PortfolioCode: portfolio.Code,
		EndDate:       formatDate(asAt),
	})
	if err != nil {
		return nil, err
	}

	positions, err := c.fold(ctx, *portfolio, trns)
	if err != nil {
		return nil, err
	}
	if err := c.value(ctx, positions, asAt); err != nil {
		return nil, err
	}
	positions.AsAt = &asAt

	c.cache.set(key, positions)
	c.logger.Debug("positions computed",
		"portfolio", portfolio.Code,
		"as_at", formatDate(asAt),
		"transactions", len(trns),
		"positions", len(positions.Positions),
	)
	return positions, nil
}

// fold accumulates each asset's transactions on its own goroutine. The
// transactions of one asset are applied in order by a single goroutine.
func (c *Core) fold(ctx context.Context, portfolio Portfolio, trns []Trn) (*Positions, error) {
	var keys []string
	byAsset := map[string][]Trn{}
	for _, trn := range trns {
		key := trn.Asset.Key()
		if _, ok := byAsset[key]; !ok {
			keys = append(keys, key)
		}
		byAsset[key] = append(byAsset[key], trn)
	}

	folded := make([]*Position, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			var position *Position
			for _, trn := range byAsset[key] {
				if err := ctx.Err(); err != nil {
					return err
				}
				p, err := c.accumulator.Accumulate(trn, portfolio, position)
				if err != nil {
					return err
				}
				position = p
			}
			folded[i] = position
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	positions := NewPositions(portfolio)
	for _, p := range folded {
		positions.Add(p)
	}
	return positions, nil
}

// value prices every position as at asAt. Cash is valued at 1 in its own currency.
func (c *Core) value(ctx context.Context, positions *Positions, asAt time.Time) error {
	var marketData []MarketData
	pairs := map[CurrencyPair]struct{}{}
	for _, p := range positions.Sorted() {
		md := MarketData{Asset: p.Asset, Date: asAt}
		if p.Asset.IsCash() {
			md.Close = one
			md.PreviousClose = one
		} else {
			latest, err := getLatestPrice(ctx, c.db, p.Asset, asAt)
			if err != nil {
				return err
			}
			if latest != nil {
				md = *latest
			}
		}
		marketData = append(marketData, md)
		if !md.HasPrice() {
			continue
		}
		trade := p.TradeCurrency()
		for _, view := range []View{ViewBase, ViewPortfolio} {
			to := positions.viewCurrency(view)
			if mv := p.View(view); mv != nil {
				to = mv.Currency
			}
			if to != trade {
				pairs[NewCurrencyPair(trade, to)] = struct{}{}
			}
		}
	}

	rates := map[CurrencyPair]FxRate{}
	if len(pairs) > 0 {
		table, err := getRateTable(ctx, c.db, c.baseCurrency, asAt)
		if err != nil {
			return err
		}
		list := make([]CurrencyPair, 0, len(pairs))
		for pair := range pairs {
			list = append(list, pair)
		}
		rates, err = CrossRates(asAt, list, *table)
		if err != nil {
			return err
		}
	}
	_, err := c.valuer.ValueAll(positions, marketData, rates)
	return err
}
