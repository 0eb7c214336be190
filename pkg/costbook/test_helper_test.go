package costbook

import (
	"os"
	"path/filepath"
	"testing"
)

// setupTestDB creates a temporary database for testing and returns a Core instance.
// The caller should defer cleanup() to remove the temp file.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "costbook-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	core, err := OpenWithOptions(Options{DBPath: dbPath, Logger: discardLogger()})
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}

	return core, cleanup
}

// testPortfolio creates a portfolio reporting in currency with a USD base.
func testPortfolio(t *testing.T, core *Core, code, currency string) {
	t.Helper()
	if _, err := core.AddPortfolio(Portfolio{Code: code, Name: code, Currency: currency, Base: "USD"}); err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
}

// testTrade records a BUY or SELL of a NASDAQ stock at a price.
func testTrade(t *testing.T, core *Core, portfolio, trnType, code, qty, price, date string) string {
	t.Helper()
	id, err := core.AddTransaction(AddTransactionRequest{
		PortfolioCode: portfolio,
		Type:          trnType,
		AssetCode:     code,
		Market:        "NASDAQ",
		TradeCurrency: "USD",
		Quantity:      amt(qty),
		Price:         amt(price),
		TradeDate:     date,
	})
	if err != nil {
		t.Fatalf("failed to create test %s transaction: %v", trnType, err)
	}
	return id
}

// testPrice stores a close for a NASDAQ stock.
func testPrice(t *testing.T, core *Core, code, close, date string) {
	t.Helper()
	err := core.SetPrice(MarketData{
		Asset: Asset{Code: code, Market: Market{Code: "NASDAQ", Currency: "USD"}},
		Date:  day(date),
		Close: amt(close),
	})
	if err != nil {
		t.Fatalf("failed to set test price: %v", err)
	}
}
