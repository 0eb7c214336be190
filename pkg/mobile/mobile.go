package mobile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"costbook/pkg/costbook"
)

// Core wraps the costbook core for gomobile bindings. Dates are YYYY-MM-DD
// strings; an empty date means today.
type Core struct {
	core *costbook.Core
}

// Open initializes the core with a database path.
func Open(dbPath string) (*Core, error) {
	core, err := costbook.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// OpenWithBase initializes the core with a base currency other than USD.
func OpenWithBase(dbPath, baseCurrency string) (*Core, error) {
	core, err := costbook.OpenWithOptions(costbook.Options{DBPath: dbPath, BaseCurrency: baseCurrency})
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// AddPortfolioJSON creates a portfolio from {"code","name","currency","base"}.
func (c *Core) AddPortfolioJSON(payloadJSON string) (string, error) {
	var p costbook.Portfolio
	if err := json.Unmarshal([]byte(payloadJSON), &p); err != nil {
		return "", err
	}
	created, err := c.core.AddPortfolio(p)
	if err != nil {
		return "", err
	}
	return marshalJSON(created)
}

// AddTransactionJSON stores a transaction and returns {"id": ...}.
func (c *Core) AddTransactionJSON(payloadJSON string) (string, error) {
	var req costbook.AddTransactionRequest
	if err := json.Unmarshal([]byte(payloadJSON), &req); err != nil {
		return "", err
	}
	id, err := c.core.AddTransaction(req)
	if err != nil {
		return "", err
	}
	return marshalJSON(map[string]string{"id": id})
}

// DeleteTransaction removes a transaction by ID.
func (c *Core) DeleteTransaction(id string) (bool, error) {
	return c.core.DeleteTransaction(id)
}

// SetExchangeRate stores units of currency per one base unit on date.
func (c *Core) SetExchangeRate(date, currency, rate string) error {
	d, err := parseDate(date)
	if err != nil {
		return err
	}
	r, err := costbook.ParseAmount(rate)
	if err != nil {
		return err
	}
	return c.core.SetExchangeRate(d, currency, r)
}

// SetPrice stores the close of code on market.
func (c *Core) SetPrice(code, market, date, close string) error {
	d, err := parseDate(date)
	if err != nil {
		return err
	}
	cl, err := costbook.ParseAmount(close)
	if err != nil {
		return err
	}
	return c.core.SetPrice(costbook.MarketData{
		Asset: costbook.Asset{Code: code, Market: costbook.Market{Code: market}},
		Date:  d,
		Close: cl,
	})
}

// GetPositionsJSON returns the valued positions of a portfolio.
func (c *Core) GetPositionsJSON(portfolioCode, asAt string) (string, error) {
	d, err := parseDate(asAt)
	if err != nil {
		return "", err
	}
	positions, err := c.core.GetPositions(portfolioCode, d)
	if err != nil {
		return "", err
	}
	return marshalJSON(positions)
}

// GetPerformanceJSON returns IRR and TWR for a portfolio.
func (c *Core) GetPerformanceJSON(portfolioCode, asAt string) (string, error) {
	d, err := parseDate(asAt)
	if err != nil {
		return "", err
	}
	perf, err := c.core.GetPerformance(portfolioCode, d)
	if err != nil {
		return "", err
	}
	return marshalJSON(perf)
}

// CrossRatesJSON resolves comma separated FROM:TO pairs on date.
func (c *Core) CrossRatesJSON(date, pairs string) (string, error) {
	d, err := parseDate(date)
	if err != nil {
		return "", err
	}
	var parsed []costbook.CurrencyPair
	for _, raw := range strings.Split(pairs, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		pair, err := costbook.ParseCurrencyPair(raw)
		if err != nil {
			return "", err
		}
		parsed = append(parsed, pair)
	}
	rates, err := c.core.GetCrossRates(d, parsed)
	if err != nil {
		return "", err
	}
	return marshalJSON(rates)
}

// CalculateIrrJSON computes the IRR of [{"date","amount"}] flows.
func CalculateIrrJSON(flowsJSON string, minHoldingDays int) (string, error) {
	var payload []struct {
		Date   string  `json:"date"`
		Amount float64 `json:"amount"`
	}
	if err := json.Unmarshal([]byte(flowsJSON), &payload); err != nil {
		return "", err
	}
	flows := costbook.NewPeriodicCashFlows()
	for _, f := range payload {
		d, err := costbook.ParseDate(f.Date)
		if err != nil {
			return "", err
		}
		flows.Add(costbook.CashFlow{Date: d, Amount: f.Amount})
	}
	irr := costbook.NewIrrCalculator(minHoldingDays, nil).Calculate(flows)
	return marshalJSON(map[string]float64{"irr": irr})
}

// CalculateTwrJSON computes the TWR of [{"date","market_value","external_cash_flow"}]
// snapshots, which must be in date order.
func CalculateTwrJSON(snapshotsJSON string) (string, error) {
	var payload []struct {
		Date             string  `json:"date"`
		MarketValue      float64 `json:"market_value"`
		ExternalCashFlow float64 `json:"external_cash_flow"`
	}
	if err := json.Unmarshal([]byte(snapshotsJSON), &payload); err != nil {
		return "", err
	}
	snapshots := make([]costbook.ValuationSnapshot, 0, len(payload))
	for i, s := range payload {
		d, err := costbook.ParseDate(s.Date)
		if err != nil {
			return "", err
		}
		if i > 0 && d.Before(snapshots[i-1].Date) {
			return "", costbook.NewError(costbook.ErrCodeInvalidInput, "snapshots must be in date order")
		}
		snapshots = append(snapshots, costbook.ValuationSnapshot{
			Date:             d,
			MarketValue:      s.MarketValue,
			ExternalCashFlow: s.ExternalCashFlow,
		})
	}
	return marshalJSON(costbook.CalculateTwr(snapshots))
}

func parseDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return costbook.Today(), nil
	}
	return costbook.ParseDate(value)
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(data), nil
}
