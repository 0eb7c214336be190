package costbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usPortfolio = Portfolio{Code: "TEST", Name: "Test", Currency: "NZD", Base: "USD"}
	msft        = Asset{Code: "MSFT", Category: CategoryEquity, Market: Market{Code: "NASDAQ", Currency: "USD"}}
	usdCash     = Asset{Code: "USD", Category: CategoryCash, Market: Market{Code: "CASH", Currency: "USD"}}
)

func day(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func amt(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func assertAmount(t *testing.T, want string, got Amount, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, amt(want).Equal(got.Decimal), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func trade(typ TrnType, asset Asset, date, qty, tradeAmount string) Trn {
	return Trn{
		Type:               typ,
		Asset:              asset,
		Quantity:           amt(qty),
		TradeAmount:        amt(tradeAmount),
		TradeCurrency:      asset.Market.Currency,
		TradeBaseRate:      amt("1"),
		TradePortfolioRate: amt("1.5"),
		TradeDate:          day(date),
	}
}

func newTestAccumulator() *Accumulator {
	return NewAccumulator(IsoCurrencies{}, "USD", nil)
}

func accumulateAll(t *testing.T, a *Accumulator, trns ...Trn) *Position {
	t.Helper()
	var p *Position
	for _, trn := range trns {
		var err error
		p, err = a.Accumulate(trn, usPortfolio, p)
		require.NoError(t, err)
	}
	return p
}

func TestAccumulate_BuyCreatesAllViews(t *testing.T) {
	p := accumulateAll(t, newTestAccumulator(),
		trade(TrnBuy, msft, "2024-01-02", "100", "2000"),
	)

	assertAmount(t, "100", p.QuantityValues.Total())
	require.Len(t, p.MoneyValues, 3)

	tradeView := p.View(ViewTrade)
	assert.Equal(t, "USD", tradeView.Currency)
	assertAmount(t, "2000", tradeView.CostBasis)
	assertAmount(t, "2000", tradeView.CostValue)
	assertAmount(t, "2000", tradeView.Purchases)
	assertAmount(t, "20", tradeView.AverageCost)

	pfView := p.View(ViewPortfolio)
	assert.Equal(t, "NZD", pfView.Currency)
	assertAmount(t, "3000", pfView.CostBasis)
	assertAmount(t, "30", pfView.AverageCost)

	require.NotNil(t, p.DateValues.Opened)
	assert.Equal(t, day("2024-01-02"), *p.DateValues.Opened)
	assert.Equal(t, day("2024-01-02"), *p.DateValues.LastTrade)
}

func TestAccumulate_BuyThenSellToZeroResetsCost(t *testing.T) {
	p := accumulateAll(t, newTestAccumulator(),
		trade(TrnBuy, msft, "2024-01-02", "100", "1000"),
		trade(TrnSell, msft, "2024-02-01", "40", "600"),
		trade(TrnSell, msft, "2024-03-01", "60", "540"),
	)

	assert.False(t, p.QuantityValues.HasPosition())
	assertAmount(t, "-100", p.QuantityValues.Sold)
	for _, view := range Views {
		mv := p.View(view)
		assertAmount(t, "0", mv.CostBasis, view)
		assertAmount(t, "0", mv.CostValue, view)
		assertAmount(t, "0", mv.AverageCost, view)
	}
	tradeView := p.View(ViewTrade)
	// (600 + 540) - 1000
	assertAmount(t, "140", tradeView.RealisedGain)
	assertAmount(t, "1140", tradeView.Sales)
	assertAmount(t, "140", tradeView.TotalGain)
	assertAmount(t, "210", p.View(ViewPortfolio).RealisedGain)
	require.NotNil(t, p.DateValues.Closed)
	assert.Equal(t, day("2024-03-01"), *p.DateValues.Closed)
}

func TestAccumulate_PartialSellKeepsAverageCost(t *testing.T) {
	p := accumulateAll(t, newTestAccumulator(),
		trade(TrnBuy, msft, "2024-01-02", "100", "1000"),
		trade(TrnSell, msft, "2024-02-01", "50", "750"),
	)

	mv := p.View(ViewTrade)
	assertAmount(t, "50", p.QuantityValues.Total())
	assertAmount(t, "1000", mv.CostBasis)
	assertAmount(t, "10", mv.AverageCost)
	assertAmount(t, "1000", mv.CostValue)
	// 750 - 50 × 10
	assertAmount(t, "250", mv.RealisedGain)

	// Cost stays with the position until it closes, so a later buy averages over all of it.
	p, err := newTestAccumulator().Accumulate(trade(TrnBuy, msft, "2024-03-01", "50", "1000"), usPortfolio, p)
	require.NoError(t, err)
	assertAmount(t, "100", p.QuantityValues.Total())
	assertAmount(t, "20", mv.AverageCost)
	assertAmount(t, "2000", mv.CostValue)
	assertAmount(t, "2000", mv.CostBasis)
}

func TestAccumulate_SplitScalesQuantityNotCost(t *testing.T) {
	p := accumulateAll(t, newTestAccumulator(),
		trade(TrnBuy, msft, "2024-01-02", "100", "2000"),
		Trn{Type: TrnSplit, Asset: msft, Quantity: amt("5"), TradeCurrency: "USD", TradeDate: day("2024-06-01")},
	)

	assertAmount(t, "500", p.QuantityValues.Total())
	assertAmount(t, "400", p.QuantityValues.Adjustment)
	mv := p.View(ViewTrade)
	assertAmount(t, "2000", mv.CostBasis)
	assertAmount(t, "4", mv.AverageCost)
	assertAmount(t, "6", p.View(ViewPortfolio).AverageCost)
}

func TestAccumulate_SplitRejectsNonPositiveRatio(t *testing.T) {
	a := newTestAccumulator()
	p := accumulateAll(t, a, trade(TrnBuy, msft, "2024-01-02", "100", "2000"))

	_, err := a.Accumulate(Trn{Type: TrnSplit, Asset: msft, TradeCurrency: "USD", TradeDate: day("2024-06-01")}, usPortfolio, p)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeValidation))
	assertAmount(t, "100", p.QuantityValues.Total())
}

func TestAccumulate_DividendLeavesQuantity(t *testing.T) {
	p := accumulateAll(t, newTestAccumulator(),
		trade(TrnBuy, msft, "2024-01-02", "100", "2000"),
		trade(TrnDividend, msft, "2024-03-15", "0", "25.50"),
	)

	assertAmount(t, "100", p.QuantityValues.Total())
	assertAmount(t, "25.5", p.View(ViewTrade).Dividends)
	assertAmount(t, "38.25", p.View(ViewPortfolio).Dividends)
	assertAmount(t, "2000", p.View(ViewTrade).CostBasis)
	require.NotNil(t, p.DateValues.LastDividend)
	assert.Equal(t, day("2024-03-15"), *p.DateValues.LastDividend)
}

func TestAccumulate_DividendPaidInCashCurrency(t *testing.T) {
	div := Trn{
		Type:               TrnDividend,
		Asset:              msft,
		CashAmount:         amt("160"),
		CashCurrency:       "NZD",
		TradeCurrency:      "USD",
		TradeCashRate:      amt("1.6"),
		TradeBaseRate:      amt("1"),
		TradePortfolioRate: amt("1.6"),
		TradeDate:          day("2024-03-15"),
	}
	p := accumulateAll(t, newTestAccumulator(), trade(TrnBuy, msft, "2024-01-02", "100", "2000"), div)

	assertAmount(t, "100", p.View(ViewTrade).Dividends)
	assertAmount(t, "100", p.View(ViewBase).Dividends)
	assertAmount(t, "160", p.View(ViewPortfolio).Dividends)
}

func TestAccumulate_RejectsUnorderedTransaction(t *testing.T) {
	a := newTestAccumulator()
	p := accumulateAll(t, a, trade(TrnBuy, msft, "2024-03-01", "10", "100"))

	_, err := a.Accumulate(trade(TrnBuy, msft, "2024-02-01", "10", "100"), usPortfolio, p)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeUnorderedTransaction))
	assertAmount(t, "10", p.QuantityValues.Total())

	// Same-day transactions are in order.
	_, err = a.Accumulate(trade(TrnBuy, msft, "2024-03-01", "10", "100"), usPortfolio, p)
	require.NoError(t, err)
	assertAmount(t, "20", p.QuantityValues.Total())
}

func TestAccumulate_DepositAndWithdrawalRealiseFx(t *testing.T) {
	a := newTestAccumulator()
	dep := trade(TrnDeposit, usdCash, "2024-01-02", "1000", "0")
	dep.TradePortfolioRate = amt("1.6")
	wd := trade(TrnWithdrawal, usdCash, "2024-02-02", "400", "0")
	wd.TradePortfolioRate = amt("1.7")
	p := accumulateAll(t, a, dep, wd)

	assertAmount(t, "600", p.QuantityValues.Total())
	assert.Equal(t, int32(2), p.QuantityValues.Precision())

	tradeView := p.View(ViewTrade)
	assertAmount(t, "1", tradeView.AverageCost)
	assertAmount(t, "0", tradeView.RealisedGain)

	pf := p.View(ViewPortfolio)
	assertAmount(t, "1.6", pf.AverageCost)
	// 400 × (1.7 − 1.6)
	assertAmount(t, "40", pf.RealisedGain)
	assertAmount(t, "1600", pf.CostValue)
}

func TestAccumulate_IncreaseReduce(t *testing.T) {
	house := Asset{Code: "HOUSE", Category: CategoryRealEstate, Market: Market{Code: "PRIVATE", Currency: "NZD"}}
	nzPortfolio := Portfolio{Code: "RE", Currency: "NZD", Base: "NZD"}
	a := newTestAccumulator()

	var p *Position
	var err error
	for _, trn := range []Trn{
		{Type: TrnIncrease, Asset: house, Quantity: amt("1"), TradeAmount: amt("500000"), TradeCurrency: "NZD", TradeDate: day("2020-01-01")},
		{Type: TrnIncrease, Asset: house, TradeAmount: amt("50000"), TradeCurrency: "NZD", TradeDate: day("2021-01-01")},
		{Type: TrnReduce, Asset: house, TradeAmount: amt("20000"), TradeCurrency: "NZD", TradeDate: day("2022-01-01")},
	} {
		p, err = a.Accumulate(trn, nzPortfolio, p)
		require.NoError(t, err)
	}

	mv := p.View(ViewTrade)
	assertAmount(t, "1", p.QuantityValues.Total())
	assertAmount(t, "550000", mv.CostValue)
	assertAmount(t, "550000", mv.CostBasis)
	assertAmount(t, "550000", mv.Purchases)
	assertAmount(t, "20000", mv.Sales)
	// A value-only reduce consumes no units, so its proceeds are all gain.
	assertAmount(t, "20000", mv.RealisedGain)

	p, err = a.Accumulate(Trn{Type: TrnReduce, Asset: house, Quantity: amt("1"), TradeAmount: amt("600000"), TradeCurrency: "NZD", TradeDate: day("2023-01-01")}, nzPortfolio, p)
	require.NoError(t, err)
	assert.False(t, p.QuantityValues.HasPosition())
	// 20000 + (600000 - 550000)
	assertAmount(t, "70000", mv.RealisedGain)
	assertAmount(t, "0", mv.CostValue)
	assertAmount(t, "0", mv.CostBasis)
}

func TestAccumulate_BalanceRestatesCash(t *testing.T) {
	a := newTestAccumulator()
	p := accumulateAll(t, a,
		trade(TrnDeposit, usdCash, "2024-01-02", "1000", "0"),
		trade(TrnBalance, usdCash, "2024-01-31", "1012.34", "0"),
	)

	assertAmount(t, "1012.34", p.QuantityValues.Total())
	assertAmount(t, "12.34", p.QuantityValues.Adjustment)
	assertAmount(t, "1012.34", p.View(ViewTrade).CostValue)
	assertAmount(t, "1518.51", p.View(ViewPortfolio).CostValue)
}

func TestAccumulate_UnsupportedType(t *testing.T) {
	_, err := newTestAccumulator().Accumulate(Trn{Type: "GIFT", Asset: msft, TradeCurrency: "USD", TradeDate: day("2024-01-01")}, usPortfolio, nil)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeUnsupported))
}

func TestAccumulate_UnknownCurrency(t *testing.T) {
	_, err := newTestAccumulator().Accumulate(trade(TrnBuy, Asset{Code: "X", Market: Market{Code: "M", Currency: "ZZZ"}}, "2024-01-01", "1", "1"), usPortfolio, nil)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeInvalidInput))
}

func TestTrnAmount_FromPriceAndFees(t *testing.T) {
	buy := Trn{Type: TrnBuy, Quantity: amt("10"), Price: amt("12.5"), Fees: amt("5")}
	assertAmount(t, "130", buy.amount())

	sell := Trn{Type: TrnSell, Quantity: amt("-10"), Price: amt("12.5"), Fees: amt("5"), Tax: amt("2")}
	assertAmount(t, "118", sell.amount())

	explicit := Trn{Type: TrnBuy, Quantity: amt("10"), Price: amt("12.5"), TradeAmount: amt("-99")}
	assertAmount(t, "99", explicit.amount())

	// 160 NZD at 1.6 NZD per USD
	cashDiv := Trn{Type: TrnDividend, CashAmount: amt("160"), CashCurrency: "NZD", TradeCurrency: "USD", TradeCashRate: amt("1.6")}
	assertAmount(t, "100", cashDiv.amount())

	sameCcy := Trn{Type: TrnDividend, CashAmount: amt("25"), CashCurrency: "USD", TradeCurrency: "USD", TradeCashRate: amt("1.6")}
	assertAmount(t, "25", sameCcy.amount())
}
