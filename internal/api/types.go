package api

import "costbook/pkg/costbook"

type portfolioPayload struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Base     string `json:"base"`
}

type exchangeRatePayload struct {
	Date     string          `json:"date"`
	Currency string          `json:"currency"`
	Rate     costbook.Amount `json:"rate"`
}

type pricePayload struct {
	AssetCode     string          `json:"asset_code"`
	Market        string          `json:"market"`
	Date          string          `json:"date"`
	Close         costbook.Amount `json:"close"`
	PreviousClose costbook.Amount `json:"previous_close"`
}

type valuationPayload struct {
	Date             string           `json:"date"`
	ExternalCashFlow *costbook.Amount `json:"external_cash_flow"`
}

type cashFlowPayload struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type irrPayload struct {
	Flows          []cashFlowPayload `json:"flows"`
	MinHoldingDays int               `json:"min_holding_days"`
}

type snapshotPayload struct {
	Date             string  `json:"date"`
	MarketValue      float64 `json:"market_value"`
	ExternalCashFlow float64 `json:"external_cash_flow"`
}

type twrPayload struct {
	Snapshots   []snapshotPayload `json:"snapshots"`
	GrowthStart float64           `json:"growth_start"`
}

type irrResponse struct {
	Irr   float64             `json:"irr"`
	Flows []costbook.CashFlow `json:"flows"`
}

type transactionsResponse struct {
	Items  []costbook.Trn `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
