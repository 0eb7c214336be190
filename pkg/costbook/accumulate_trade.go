package costbook

// buy adds qty units costing amount (trade currency) to every view. Cost
// value mirrors the cost basis and average cost is taken over it.
func buy(p *Position, views []viewRate, qty, amount Amount) {
	p.QuantityValues.Purchased = p.QuantityValues.Purchased.plus(qty)
	total := p.QuantityValues.Total()
	for _, v := range views {
		mv := p.Values(v.view, v.currency)
		cost := amount.times(v.rate).Money()
		mv.CostBasis = mv.CostBasis.plus(cost)
		mv.CostValue = mv.CostBasis
		mv.Purchases = mv.Purchases.plus(cost)
		mv.AverageCost = mv.CostBasis.over(total, unitScale)
	}
}

// sell removes qty units for proceeds amount and realises the gain against
// the average cost held before the sale. A partial sell leaves cost alone;
// only a sell to zero resets it.
func sell(p *Position, views []viewRate, qty, amount Amount) {
	dispose(p, views, qty, amount)
}

// dispose is the shared Sell/Reduce/Withdrawal transition.
func dispose(p *Position, views []viewRate, qty, amount Amount) {
	p.QuantityValues.Sold = p.QuantityValues.Sold.minus(qty)
	total := p.QuantityValues.Total()
	for _, v := range views {
		mv := p.Values(v.view, v.currency)
		proceeds := amount.times(v.rate).Money()
		consumed := qty.times(mv.AverageCost).Money()
		mv.Sales = mv.Sales.plus(proceeds)
		mv.RealisedGain = mv.RealisedGain.plus(proceeds.minus(consumed))
		if total.IsZero() {
			mv.resetCost()
			continue
		}
		mv.refreshTotalGain()
	}
}

// dividend records income against every view without touching quantity or cost.
func dividend(p *Position, views []viewRate, trn Trn) {
	amount := trn.amount()
	for _, v := range views {
		mv := p.Values(v.view, v.currency)
		mv.Dividends = mv.Dividends.plus(amount.times(v.rate).Money())
	}
	d := trn.TradeDate
	p.DateValues.LastDividend = &d
}

// split scales the held quantity by ratio. Cost basis is unchanged, so the
// average cost falls by the same ratio.
func split(p *Position, views []viewRate, ratio Amount) {
	total := p.QuantityValues.Total()
	p.QuantityValues.Adjustment = p.QuantityValues.Adjustment.plus(total.times(ratio.minus(one)))
	after := p.QuantityValues.Total()
	for _, v := range views {
		mv := p.Values(v.view, v.currency)
		mv.AverageCost = mv.CostBasis.over(after, unitScale)
	}
}

// reduce returns notional capital from a real-estate-like holding. It follows
// the sell rules: cost is kept on a partial reduce and reset at zero.
func reduce(p *Position, views []viewRate, qty, amount Amount) {
	dispose(p, views, qty, amount)
}
