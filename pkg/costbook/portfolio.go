package costbook

import (
	"context"
	"database/sql"
	"strings"
)

// AddPortfolio stores a portfolio. Currency defaults to Base, and Base to the Core's base currency.
func (c *Core) AddPortfolio(p Portfolio) (*Portfolio, error) {
	p.Code = normalizeSymbol(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	if p.Code == "" {
		return nil, NewError(ErrCodeInvalidInput, "portfolio code required")
	}
	if p.Name == "" {
		p.Name = p.Code
	}
	p.Base = normalizeCurrency(p.Base)
	if p.Base == "" {
		p.Base = c.baseCurrency
	}
	p.Currency = normalizeCurrency(p.Currency)
	if p.Currency == "" {
		p.Currency = p.Base
	}
	for _, code := range []string{p.Base, p.Currency} {
		if _, err := c.currencies.Resolve(code); err != nil {
			return nil, err
		}
	}

	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow("SELECT 1 FROM portfolios WHERE code = ?", p.Code).Scan(&exists)
		if err == nil {
			return Errorf(ErrCodeDuplicate, "portfolio already exists: %s", p.Code)
		}
		if err != sql.ErrNoRows {
			return WrapError(ErrCodeDatabase, "lookup portfolio", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO portfolios (code, name, currency, base) VALUES (?, ?, ?, ?)",
			p.Code, p.Name, p.Currency, p.Base,
		); err != nil {
			return WrapError(ErrCodeDatabase, "insert portfolio", err)
		}
		return addOperationLogTx(tx, "ADD_PORTFOLIO", p.Code, p.Currency+"/"+p.Base)
	})
	if err != nil {
		return nil, err
	}
	return c.GetPortfolio(p.Code)
}

// GetPortfolio fetches a portfolio by code.
func (c *Core) GetPortfolio(code string) (*Portfolio, error) {
	return getPortfolio(context.Background(), c.db, code)
}

func getPortfolio(ctx context.Context, q queryer, code string) (*Portfolio, error) {
	code = normalizeSymbol(code)
	if code == "" {
		return nil, NewError(ErrCodeInvalidInput, "portfolio code required")
	}
	var p Portfolio
	var createdAt any
	err := q.QueryRowContext(ctx,
		"SELECT code, name, currency, base, created_at FROM portfolios WHERE code = ?", code,
	).Scan(&p.Code, &p.Name, &p.Currency, &p.Base, &createdAt)
	if err == sql.ErrNoRows {
		return nil, Errorf(ErrCodeNotFound, "portfolio not found: %s", code)
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "get portfolio", err)
	}
	p.CreatedAt = timeFromColumn(createdAt)
	return &p, nil
}

// GetPortfolios lists portfolios ordered by code.
func (c *Core) GetPortfolios() ([]Portfolio, error) {
	rows, err := c.db.Query("SELECT code, name, currency, base, created_at FROM portfolios ORDER BY code")
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list portfolios", err)
	}
	defer rows.Close()

	result := []Portfolio{}
	for rows.Next() {
		var p Portfolio
		var createdAt any
		if err := rows.Scan(&p.Code, &p.Name, &p.Currency, &p.Base, &createdAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan portfolio", err)
		}
		p.CreatedAt = timeFromColumn(createdAt)
		result = append(result, p)
	}
	return result, rows.Err()
}
