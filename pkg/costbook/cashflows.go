package costbook

import (
	"sort"
	"time"
)

// CashFlow is a signed amount on a calendar day. Money paid in is negative.
type CashFlow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// PeriodicCashFlows is a date-keyed series; flows on the same day are summed.
type PeriodicCashFlows struct {
	byDay map[time.Time]float64
}

// NewPeriodicCashFlows creates an empty series, optionally seeded with flows.
func NewPeriodicCashFlows(flows ...CashFlow) *PeriodicCashFlows {
	p := &PeriodicCashFlows{byDay: map[time.Time]float64{}}
	for _, f := range flows {
		p.Add(f)
	}
	return p
}

// Add merges f into the series.
func (p *PeriodicCashFlows) Add(f CashFlow) {
	if p.byDay == nil {
		p.byDay = map[time.Time]float64{}
	}
	p.byDay[dayOf(f.Date)] += f.Amount
}

// Len returns the number of distinct days.
func (p *PeriodicCashFlows) Len() int {
	if p == nil {
		return 0
	}
	return len(p.byDay)
}

// Flows returns the merged flows in date order.
func (p *PeriodicCashFlows) Flows() []CashFlow {
	if p == nil {
		return nil
	}
	out := make([]CashFlow, 0, len(p.byDay))
	for d, a := range p.byDay {
		out = append(out, CashFlow{Date: d, Amount: a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// CashFlowsFromTrns derives investor cash flows in one view from a
// portfolio's transactions. Purchases are negative; sales, reductions and
// dividends positive. Cash-asset movements are internal and skipped.
func CashFlowsFromTrns(trns []Trn, view View) *PeriodicCashFlows {
	flows := NewPeriodicCashFlows()
	for _, trn := range trns {
		if trn.Asset.IsCash() {
			continue
		}
		amount := trn.amount().times(trnViewRate(trn, view)).Money().Float()
		switch trn.Type {
		case TrnBuy, TrnIncrease:
			flows.Add(CashFlow{Date: trn.TradeDate, Amount: -amount})
		case TrnSell, TrnReduce, TrnDividend:
			flows.Add(CashFlow{Date: trn.TradeDate, Amount: amount})
		}
	}
	return flows
}

func trnViewRate(trn Trn, view View) Amount {
	switch view {
	case ViewBase:
		return trn.TradeBaseRate.orOne()
	case ViewPortfolio:
		return trn.TradePortfolioRate.orOne()
	}
	return one
}
