package costbook

// deposit credits a cash position: one unit per unit of currency.
func deposit(p *Position, views []viewRate, amount Amount) {
	p.QuantityValues.fixPrecision(cashPrecision)
	buy(p, views, amount, amount)
}

// withdraw debits a cash position. In BASE and PORTFOLIO views the
// difference between the deposit and withdrawal rates is realised.
func withdraw(p *Position, views []viewRate, amount Amount) {
	p.QuantityValues.fixPrecision(cashPrecision)
	sell(p, views, amount, amount)
}

// balance restates a cash position to a reported balance, revaluing its
// cost at the transaction's rates.
func balance(p *Position, views []viewRate, reported Amount) {
	p.QuantityValues.fixPrecision(cashPrecision)
	p.QuantityValues.Adjustment = p.QuantityValues.Adjustment.plus(reported.minus(p.QuantityValues.Total()))
	total := p.QuantityValues.Total()
	for _, v := range views {
		mv := p.Values(v.view, v.currency)
		if total.IsZero() {
			mv.resetCost()
			continue
		}
		mv.CostBasis = total.times(v.rate).Money()
		mv.CostValue = mv.CostBasis
		mv.AverageCost = mv.CostBasis.over(total, unitScale)
	}
}
