package costbook

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultMinHoldingDays is the holding period below which simple ROI is reported instead of XIRR.
const DefaultMinHoldingDays = 225

const (
	irrLowerBound    = -0.999999
	irrUpperBound    = 1e6
	irrMaxIterations = 100
	irrPrecision     = 1e-7
)

// IrrCalculator computes money-weighted returns.
type IrrCalculator struct {
	MinHoldingDays int
	logger         *slog.Logger
}

// NewIrrCalculator creates a calculator. A non-positive threshold uses DefaultMinHoldingDays.
func NewIrrCalculator(minHoldingDays int, logger *slog.Logger) *IrrCalculator {
	if minHoldingDays <= 0 {
		minHoldingDays = DefaultMinHoldingDays
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &IrrCalculator{MinHoldingDays: minHoldingDays, logger: logger}
}

// Calculate returns the annualised IRR of flows, or simple ROI when the
// holding period is shorter than MinHoldingDays. The result is always finite.
func (c *IrrCalculator) Calculate(flows *PeriodicCashFlows) float64 {
	cfs := flows.Flows()
	if len(cfs) == 0 {
		return 0
	}
	roi := simpleROI(cfs)
	days := daysBetween(cfs[0].Date, cfs[len(cfs)-1].Date)
	if days == 0 || days < c.MinHoldingDays {
		return finiteOr(roi, 0)
	}

	years, amounts := yearsToEnd(cfs)
	f := func(r float64) (float64, float64) { return futureValue(r, years, amounts) }
	scale := math.Max(1, floats.Norm(amounts, 1))

	guess := initialGuess(roi, days)
	if r, ok := newton(guess, scale, f); ok {
		return r
	}
	if r, ok := bisect(scale, f); ok {
		c.logger.Debug("irr solved by bisection", "days", days)
		return r
	}
	c.logger.Warn("irr did not converge, using simple roi", "days", days, "roi", roi)
	return finiteOr(roi, 0)
}

// simpleROI is (received − invested) / invested; 0 when nothing was invested.
func simpleROI(cfs []CashFlow) float64 {
	var in, out []float64
	for _, cf := range cfs {
		if cf.Amount < 0 {
			in = append(in, -cf.Amount)
		} else {
			out = append(out, cf.Amount)
		}
	}
	invested := floats.Sum(in)
	if invested == 0 {
		return 0
	}
	return (floats.Sum(out) - invested) / invested
}

func initialGuess(roi float64, days int) float64 {
	base := 1 + roi
	if base <= 0 {
		return clampRate(-0.9)
	}
	g := math.Pow(base, 365/float64(days)) - 1
	return clampRate(finiteOr(g, 0.1))
}

// yearsToEnd expresses each flow's distance from the last flow in years.
func yearsToEnd(cfs []CashFlow) ([]float64, []float64) {
	end := cfs[len(cfs)-1].Date
	years := make([]float64, len(cfs))
	amounts := make([]float64, len(cfs))
	for i, cf := range cfs {
		years[i] = float64(daysBetween(cf.Date, end)) / 365
		amounts[i] = cf.Amount
	}
	return years, amounts
}

// futureValue compounds every flow to the last date at rate r. Its zero is
// the IRR; compounding forward keeps the powers bounded near r = −1.
func futureValue(r float64, years, amounts []float64) (fv, dfv float64) {
	for i := range amounts {
		fv += amounts[i] * math.Pow(1+r, years[i])
		if years[i] != 0 {
			dfv += years[i] * amounts[i] * math.Pow(1+r, years[i]-1)
		}
	}
	return fv, dfv
}

func newton(guess, scale float64, f func(float64) (float64, float64)) (float64, bool) {
	r := guess
	for k := 0; k < irrMaxIterations; k++ {
		y, dy := f(r)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return 0, false
		}
		if math.Abs(y) <= irrPrecision*scale {
			return r, true
		}
		if dy == 0 || math.IsNaN(dy) || math.IsInf(dy, 0) {
			return 0, false
		}
		next := r - y/dy
		if next <= irrLowerBound {
			next = (r + irrLowerBound) / 2
		} else if next >= irrUpperBound {
			next = (r + irrUpperBound) / 2
		}
		r = next
	}
	return 0, false
}

// bisect searches [irrLowerBound, irrUpperBound] for a sign change of f.
func bisect(scale float64, f func(float64) (float64, float64)) (float64, bool) {
	low, high := irrLowerBound, irrUpperBound
	yLow, _ := f(low)
	yHigh, _ := f(high)
	if math.IsNaN(yLow) || math.IsNaN(yHigh) || math.Signbit(yLow) == math.Signbit(yHigh) {
		return 0, false
	}
	for k := 0; k < 4*irrMaxIterations; k++ {
		mid := low + (high-low)/2
		y, _ := f(mid)
		if math.IsNaN(y) {
			return 0, false
		}
		if math.Abs(y) <= irrPrecision*scale || high-low < 1e-12 {
			return mid, true
		}
		if math.Signbit(y) == math.Signbit(yLow) {
			low, yLow = mid, y
		} else {
			high = mid
		}
	}
	return 0, false
}

func clampRate(r float64) float64 {
	return math.Min(math.Max(r, irrLowerBound), irrUpperBound)
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
