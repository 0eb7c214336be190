package costbook

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AddTransactionRequest is the input of AddTransaction.
type AddTransactionRequest struct {
	ID                 string `json:"id,omitempty"`
	PortfolioCode      string `json:"portfolio"`
	Type               string `json:"type"`
	AssetCode          string `json:"asset_code"`
	Market             string `json:"market"`
	AssetName          string `json:"asset_name,omitempty"`
	Category           string `json:"category,omitempty"`
	Quantity           Amount `json:"quantity"`
	Price              Amount `json:"price"`
	TradeAmount        Amount `json:"trade_amount"`
	CashAmount         Amount `json:"cash_amount"`
	Fees               Amount `json:"fees"`
	Tax                Amount `json:"tax"`
	TradeCurrency      string `json:"trade_currency"`
	CashCurrency       string `json:"cash_currency,omitempty"`
	TradeCashRate      Amount `json:"trade_cash_rate"`
	TradeBaseRate      Amount `json:"trade_base_rate"`
	TradePortfolioRate Amount `json:"trade_portfolio_rate"`
	TradeDate          string `json:"trade_date"`
	Comments           string `json:"comments,omitempty"`
}

// TransactionFilter controls transaction queries.
type TransactionFilter struct {
	PortfolioCode string
	AssetCode     string
	Market        string
	Type          string
	StartDate     string
	EndDate       string
	Limit         int
	Offset        int
}

// cashMarket is the market code cash assets are filed under.
const cashMarket = "CASH"

// AddTransaction validates and stores a transaction and returns its ID.
// Missing rates into the base and portfolio currencies are resolved from the
// stored FX tables on the trade date.
func (c *Core) AddTransaction(req AddTransactionRequest) (string, error) {
	trnType, err := ParseTrnType(req.Type)
	if err != nil {
		return "", err
	}
	if req.TradeDate == "" {
		req.TradeDate = formatDate(Today())
	}
	tradeDate, err := ParseDate(req.TradeDate)
	if err != nil {
		return "", err
	}
	portfolio, err := c.GetPortfolio(req.PortfolioCode)
	if err != nil {
		return "", err
	}

	asset, err := c.resolveAsset(req, trnType)
	if err != nil {
		return "", err
	}
	trn := Trn{
		ID:                 strings.TrimSpace(req.ID),
		PortfolioCode:      portfolio.Code,
		Type:               trnType,
		Asset:              asset,
		Quantity:           req.Quantity,
		Price:              req.Price,
		TradeAmount:        req.TradeAmount,
		CashAmount:         req.CashAmount,
		Fees:               req.Fees,
		Tax:                req.Tax,
		TradeCurrency:      asset.Market.Currency,
		CashCurrency:       normalizeCurrency(req.CashCurrency),
		TradeCashRate:      req.TradeCashRate,
		TradeBaseRate:      req.TradeBaseRate,
		TradePortfolioRate: req.TradePortfolioRate,
		TradeDate:          tradeDate,
		Comments:           strings.TrimSpace(req.Comments),
	}
	if trn.ID == "" {
		trn.ID = uuid.NewString()
	}
	if err := validateTrn(trn); err != nil {
		return "", err
	}
	// A split carries no value, so it needs no rates.
	if trnType != TrnSplit {
		if err := c.fillRates(&trn, *portfolio); err != nil {
			return "", err
		}
	}
	if trn.TradeAmount.IsZero() {
		trn.TradeAmount = trn.amount()
	}

	err = c.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := upsertAssetTx(tx, asset); err != nil {
			return err
		}
		if err := insertTrnTx(tx, trn); err != nil {
			return err
		}
		return addOperationLogTx(tx, "ADD_TRANSACTION", trn.ID,
			fmt.Sprintf("%s %s %s %s", trn.Type, asset.Key(), trn.Quantity, formatDate(trn.TradeDate)))
	})
	if err != nil {
		return "", err
	}
	c.invalidatePositionsCache()
	c.logger.Info("transaction added", "id", trn.ID, "portfolio", trn.PortfolioCode, "type", trn.Type, "asset", asset.Key())
	return trn.ID, nil
}

func validateTrn(trn Trn) error {
	switch trn.Type {
	case TrnBuy, TrnSell:
		if trn.Quantity.IsZero() {
			return Errorf(ErrCodeValidation, "%s requires a quantity", trn.Type)
		}
		if trn.TradeAmount.IsZero() && trn.Price.IsZero() {
			return Errorf(ErrCodeValidation, "%s requires a price or trade amount", trn.Type)
		}
	case TrnSplit:
		if trn.Quantity.Sign() <= 0 {
			return NewError(ErrCodeValidation, "split ratio must be positive")
		}
	case TrnDeposit, TrnWithdrawal:
		if trn.Quantity.IsZero() && trn.TradeAmount.IsZero() {
			return Errorf(ErrCodeValidation, "%s requires an amount", trn.Type)
		}
	case TrnDividend:
		if trn.TradeAmount.IsZero() && trn.CashAmount.IsZero() && trn.Price.IsZero() {
			return NewError(ErrCodeValidation, "dividend requires an amount")
		}
	}
	for name, v := range map[string]Amount{"fees": trn.Fees, "tax": trn.Tax, "price": trn.Price} {
		if v.Sign() < 0 {
			return Errorf(ErrCodeValidation, "%s must not be negative", name)
		}
	}
	return nil
}

// resolveAsset builds the asset for req, reusing a stored asset's currency and category.
func (c *Core) resolveAsset(req AddTransactionRequest, trnType TrnType) (Asset, error) {
	code := normalizeSymbol(req.AssetCode)
	market := normalizeSymbol(req.Market)
	category := normalizeSymbol(req.Category)
	currency := normalizeCurrency(req.TradeCurrency)

	switch trnType {
	case TrnDeposit, TrnWithdrawal, TrnBalance:
		category = CategoryCash
		if code == "" {
			code = currency
		}
		if market == "" {
			market = cashMarket
		}
		if currency == "" {
			currency = code
		}
	}
	if code == "" {
		return Asset{}, NewError(ErrCodeInvalidInput, "asset_code required")
	}
	if market == "" {
		return Asset{}, NewError(ErrCodeInvalidInput, "market required")
	}

	stored, err := c.getAsset(code, market)
	if err != nil {
		return Asset{}, err
	}
	if stored != nil {
		if currency != "" && currency != stored.Market.Currency {
			return Asset{}, Errorf(ErrCodeValidation, "%s trades in %s, not %s", stored.Key(), stored.Market.Currency, currency)
		}
		if req.AssetName != "" {
			stored.Name = strings.TrimSpace(req.AssetName)
		}
		return *stored, nil
	}

	if currency == "" {
		return Asset{}, NewError(ErrCodeInvalidInput, "trade_currency required")
	}
	if _, err := c.currencies.Resolve(currency); err != nil {
		return Asset{}, err
	}
	if category == "" {
		category = CategoryEquity
	}
	switch category {
	case CategoryEquity, CategoryCash, CategoryRealEstate:
	default:
		return Asset{}, Errorf(ErrCodeInvalidInput, "invalid category: %s", category)
	}
	return Asset{
		Code:     code,
		Name:     strings.TrimSpace(req.AssetName),
		Category: category,
		Market:   Market{Code: market, Currency: currency},
	}, nil
}

type rateTarget struct {
	rate *Amount
	to   string
}

// fillRates resolves unset trade→base and trade→portfolio rates from stored FX rates.
func (c *Core) fillRates(trn *Trn, portfolio Portfolio) error {
	targets := []rateTarget{
		{&trn.TradeBaseRate, portfolio.Base},
		{&trn.TradePortfolioRate, portfolio.Currency},
	}
	if trn.CashCurrency != "" {
		targets = append(targets, rateTarget{&trn.TradeCashRate, trn.CashCurrency})
	}
	var table *RateTable
	for _, target := range targets {
		if !target.rate.IsZero() {
			continue
		}
		if normalizeCurrency(target.to) == trn.TradeCurrency {
			*target.rate = one
			continue
		}
		if table == nil {
			t, err := c.GetRateTable(trn.TradeDate)
			if err != nil {
				return err
			}
			table = t
		}
		r, err := CrossRate(trn.TradeDate, NewCurrencyPair(trn.TradeCurrency, target.to), *table)
		if err != nil {
			return err
		}
		*target.rate = r.Rate
	}
	if trn.TradeCashRate.IsZero() {
		trn.TradeCashRate = one
	}
	return nil
}

func (c *Core) getAsset(code, market string) (*Asset, error) {
	var a Asset
	var name sql.NullString
	err := c.db.QueryRow(
		"SELECT code, market, name, category, currency FROM assets WHERE code = ? AND market = ?",
		code, market,
	).Scan(&a.Code, &a.Market.Code, &name, &a.Category, &a.Market.Currency)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "get asset", err)
	}
	a.Name = name.String
	return &a, nil
}

func upsertAssetTx(tx *sql.Tx, a Asset) error {
	_, err := tx.Exec(`
		INSERT INTO assets (code, market, name, category, currency)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code, market) DO UPDATE SET
			name = COALESCE(excluded.name, assets.name)
	`, a.Code, a.Market.Code, nullString(a.Name), a.Category, a.Market.Currency)
	if err != nil {
		return WrapError(ErrCodeDatabase, "upsert asset", err)
	}
	return nil
}

func insertTrnTx(tx *sql.Tx, t Trn) error {
	_, err := tx.Exec(`
		INSERT INTO trns (
			id, portfolio_code, trn_type, asset_code, asset_market,
			quantity, price, trade_amount, cash_amount, fees, tax,
			trade_currency, cash_currency, trade_cash_rate, trade_base_rate, trade_portfolio_rate,
			trade_date, comments
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.PortfolioCode, string(t.Type), t.Asset.Code, t.Asset.Market.Code,
		t.Quantity, t.Price, t.TradeAmount, t.CashAmount, t.Fees, t.Tax,
		t.TradeCurrency, nullString(t.CashCurrency), t.TradeCashRate, t.TradeBaseRate, t.TradePortfolioRate,
		formatDate(t.TradeDate), nullString(t.Comments),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return Errorf(ErrCodeDuplicate, "transaction already exists: %s", t.ID)
		}
		return WrapError(ErrCodeDatabase, "insert transaction", err)
	}
	return nil
}

const trnColumns = `
	t.id, t.portfolio_code, t.trn_type, t.asset_code, t.asset_market,
	t.quantity, t.price, t.trade_amount, t.cash_amount, t.fees, t.tax,
	t.trade_currency, t.cash_currency, t.trade_cash_rate, t.trade_base_rate, t.trade_portfolio_rate,
	t.trade_date, t.comments, a.name, a.category, a.currency
`

// GetTransactions returns transactions matching the filter in trade-date order.
func (c *Core) GetTransactions(filter TransactionFilter) ([]Trn, error) {
	query := strings.Builder{}
	query.WriteString("SELECT " + trnColumns + `
		FROM trns t
		JOIN assets a ON a.code = t.asset_code AND a.market = t.asset_market
		WHERE 1=1
	`)
	params := []any{}

	if filter.PortfolioCode != "" {
		query.WriteString(" AND t.portfolio_code = ?")
		params = append(params, normalizeSymbol(filter.PortfolioCode))
	}
	if filter.AssetCode != "" {
		query.WriteString(" AND t.asset_code = ?")
		params = append(params, normalizeSymbol(filter.AssetCode))
	}
	if filter.Market != "" {
		query.WriteString(" AND t.asset_market = ?")
		params = append(params, normalizeSymbol(filter.Market))
	}
	if filter.Type != "" {
		trnType, err := ParseTrnType(filter.Type)
		if err != nil {
			return nil, err
		}
		query.WriteString(" AND t.trn_type = ?")
		params = append(params, string(trnType))
	}
	if filter.StartDate != "" {
		query.WriteString(" AND t.trade_date >= ?")
		params = append(params, filter.StartDate)
	}
	if filter.EndDate != "" {
		query.WriteString(" AND t.trade_date <= ?")
		params = append(params, filter.EndDate)
	}
	query.WriteString(" ORDER BY t.trade_date ASC, t.rowid ASC")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT ? OFFSET ?")
		params = append(params, filter.Limit, max(filter.Offset, 0))
	}

	rows, err := c.db.Query(query.String(), params...)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list transactions", err)
	}
	defer rows.Close()

	results := []Trn{}
	for rows.Next() {
		t, err := scanTrn(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

func scanTrn(rows *sql.Rows) (Trn, error) {
	var t Trn
	var trnType, tradeDate string
	var cashCurrency, comments, name sql.NullString
	if err := rows.Scan(
		&t.ID, &t.PortfolioCode, &trnType, &t.Asset.Code, &t.Asset.Market.Code,
		&t.Quantity, &t.Price, &t.TradeAmount, &t.CashAmount, &t.Fees, &t.Tax,
		&t.TradeCurrency, &cashCurrency, &t.TradeCashRate, &t.TradeBaseRate, &t.TradePortfolioRate,
		&tradeDate, &comments, &name, &t.Asset.Category, &t.Asset.Market.Currency,
	); err != nil {
		return Trn{}, WrapError(ErrCodeDatabase, "scan transaction", err)
	}
	t.Type = TrnType(trnType)
	t.CashCurrency = cashCurrency.String
	t.Comments = comments.String
	t.Asset.Name = name.String
	date, err := time.Parse(DateLayout, tradeDate)
	if err != nil {
		return Trn{}, WrapError(ErrCodeDatabase, "parse trade date", err)
	}
	t.TradeDate = date
	return t, nil
}

// DeleteTransaction deletes a transaction by ID.
func (c *Core) DeleteTransaction(id string) (bool, error) {
	var affected int64
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		result, err := tx.Exec("DELETE FROM trns WHERE id = ?", id)
		if err != nil {
			return WrapError(ErrCodeDatabase, "delete transaction", err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return WrapError(ErrCodeDatabase, "delete transaction", err)
		}
		if affected == 0 {
			return nil
		}
		return addOperationLogTx(tx, "DELETE_TRANSACTION", id, "")
	})
	if err != nil {
		return false, err
	}
	if affected > 0 {
		c.invalidatePositionsCache()
	}
	return affected > 0, nil
}
