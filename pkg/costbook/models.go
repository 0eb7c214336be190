package costbook

import (
	"strings"
	"time"
)

// TrnType enumerates the transaction kinds the accumulator understands.
type TrnType string

const (
	TrnBuy        TrnType = "BUY"
	TrnSell       TrnType = "SELL"
	TrnDividend   TrnType = "DIVI"
	TrnSplit      TrnType = "SPLIT"
	TrnDeposit    TrnType = "DEPOSIT"
	TrnWithdrawal TrnType = "WITHDRAWAL"
	TrnIncrease   TrnType = "INCREASE"
	TrnReduce     TrnType = "REDUCE"
	TrnBalance    TrnType = "BALANCE"
)

// TrnTypes lists every supported transaction type.
var TrnTypes = []TrnType{
	TrnBuy,
	TrnSell,
	TrnDividend,
	TrnSplit,
	TrnDeposit,
	TrnWithdrawal,
	TrnIncrease,
	TrnReduce,
	TrnBalance,
}

// ParseTrnType accepts the canonical names plus DIVIDEND as an alias of DIVI.
func ParseTrnType(s string) (TrnType, error) {
	t := TrnType(strings.ToUpper(strings.TrimSpace(s)))
	if t == "DIVIDEND" {
		return TrnDividend, nil
	}
	for _, v := range TrnTypes {
		if v == t {
			return t, nil
		}
	}
	return "", Errorf(ErrCodeInvalidInput, "invalid transaction type: %s", s)
}

// Asset categories.
const (
	CategoryEquity     = "EQUITY"
	CategoryCash       = "CASH"
	CategoryRealEstate = "RE"
)

// Market identifies where an asset trades and the currency it is priced in.
type Market struct {
	Code     string `json:"code" msgpack:"code"`
	Currency string `json:"currency" msgpack:"currency"`
}

// Asset is an immutable instrument reference identified by code and market code.
type Asset struct {
	Code     string `json:"code" msgpack:"code"`
	Name     string `json:"name,omitempty" msgpack:"name,omitempty"`
	Category string `json:"category,omitempty" msgpack:"category,omitempty"`
	Market   Market `json:"market" msgpack:"market"`
}

// Key returns the deterministic asset key used by Positions.
func (a Asset) Key() string {
	return AssetKey(a.Code, a.Market.Code)
}

// IsCash reports whether the asset is a cash balance.
func (a Asset) IsCash() bool {
	return strings.EqualFold(a.Category, CategoryCash)
}

// AssetKey builds the key for an asset code and market code.
func AssetKey(code, market string) string {
	return normalizeSymbol(code) + ":" + normalizeSymbol(market)
}

// Portfolio carries the currencies the engine values positions in.
type Portfolio struct {
	Code      string     `json:"code" msgpack:"code"`
	Name      string     `json:"name" msgpack:"name"`
	Currency  string     `json:"currency" msgpack:"currency"`
	Base      string     `json:"base" msgpack:"base"`
	CreatedAt *time.Time `json:"created_at,omitempty" msgpack:"-"`
}

// Trn is one immutable transaction event.
//
// Quantity is signed per type: positive units bought, units sold (either sign),
// the split ratio for SPLIT, and the cash amount for DEPOSIT and WITHDRAWAL.
// The three rates convert the trade currency into the cash, base and portfolio
// currencies; an unset rate is treated as 1.
type Trn struct {
	ID                 string    `json:"id"`
	PortfolioCode      string    `json:"portfolio"`
	Type               TrnType   `json:"type"`
	Asset              Asset     `json:"asset"`
	Quantity           Amount    `json:"quantity"`
	Price              Amount    `json:"price"`
	TradeAmount        Amount    `json:"trade_amount"`
	CashAmount         Amount    `json:"cash_amount"`
	Fees               Amount    `json:"fees"`
	Tax                Amount    `json:"tax"`
	TradeCurrency      string    `json:"trade_currency"`
	CashCurrency       string    `json:"cash_currency,omitempty"`
	TradeCashRate      Amount    `json:"trade_cash_rate"`
	TradeBaseRate      Amount    `json:"trade_base_rate"`
	TradePortfolioRate Amount    `json:"trade_portfolio_rate"`
	TradeDate          time.Time `json:"trade_date"`
	Comments           string    `json:"comments,omitempty"`
}

// PriceData is a price snapshot expressed in one currency view.
type PriceData struct {
	Close         Amount    `json:"close" msgpack:"close"`
	PreviousClose Amount    `json:"previous_close" msgpack:"previous_close"`
	Change        Amount    `json:"change" msgpack:"change"`
	ChangePercent Amount    `json:"change_percent" msgpack:"change_percent"`
	PriceDate     time.Time `json:"price_date" msgpack:"price_date"`
}

// MarketData is a price point for one asset, in the asset's market currency.
type MarketData struct {
	Asset         Asset     `json:"asset"`
	Date          time.Time `json:"date"`
	Close         Amount    `json:"close"`
	PreviousClose Amount    `json:"previous_close"`
}

// HasPrice reports whether a usable close price is present.
func (m *MarketData) HasPrice() bool {
	return m != nil && !m.Close.IsZero()
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
