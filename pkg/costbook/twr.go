package costbook

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// DefaultGrowthStart is the first value of a growth series.
const DefaultGrowthStart = 1000.0

// ValuationSnapshot is the market value of a portfolio at the end of a day
// together with the external cash that moved in (+) or out (−) that day.
type ValuationSnapshot struct {
	Date             time.Time `json:"date"`
	MarketValue      float64   `json:"market_value"`
	ExternalCashFlow float64   `json:"external_cash_flow"`
}

// TwrResult is a chained time-weighted return and its growth series.
type TwrResult struct {
	Twr    float64   `json:"twr"`
	Growth []float64 `json:"growth"`
}

// TwrCalculator chains sub-period returns over ordered snapshots.
type TwrCalculator struct {
	// GrowthStart seeds the growth series; zero means DefaultGrowthStart.
	GrowthStart float64
}

// Calculate returns the TWR of snapshots, which must be in date order.
// Periods starting from a zero market value are skipped and the growth
// series repeats its previous value for them.
func (c TwrCalculator) Calculate(snapshots []ValuationSnapshot) TwrResult {
	start := c.GrowthStart
	if start == 0 {
		start = DefaultGrowthStart
	}
	if len(snapshots) == 0 {
		return TwrResult{Growth: []float64{}}
	}
	growth := make([]float64, len(snapshots))
	growth[0] = start
	factors := make([]float64, 0, len(snapshots)-1)
	for i := 1; i < len(snapshots); i++ {
		prev, curr := snapshots[i-1], snapshots[i]
		if prev.MarketValue == 0 {
			growth[i] = growth[i-1]
			continue
		}
		factor := (curr.MarketValue - curr.ExternalCashFlow) / prev.MarketValue
		factors = append(factors, factor)
		growth[i] = growth[i-1] * factor
	}
	if len(snapshots) < 2 {
		return TwrResult{Growth: growth}
	}
	return TwrResult{Twr: finiteOr(floats.Prod(factors)-1, 0), Growth: growth}
}

// CalculateTwr runs a default TwrCalculator.
func CalculateTwr(snapshots []ValuationSnapshot) TwrResult {
	return TwrCalculator{}.Calculate(snapshots)
}
