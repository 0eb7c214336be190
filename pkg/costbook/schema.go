package costbook

import (
	"database/sql"
	"fmt"
)

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range schemaStatements {
		if err := exec(tx, stmt); err != nil {
			return err
		}
	}

	// Databases created before comments were tracked lack the column.
	hasComments, err := tableHasColumn(tx, "trns", "comments")
	if err != nil {
		return err
	}
	if !hasComments {
		if err := exec(tx, "ALTER TABLE trns ADD COLUMN comments TEXT"); err != nil {
			return err
		}
	}

	return tx.Commit()
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS portfolios (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		currency TEXT NOT NULL,
		base TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS assets (
		code TEXT NOT NULL,
		market TEXT NOT NULL,
		name TEXT,
		category TEXT NOT NULL DEFAULT 'EQUITY' CHECK(category IN ('EQUITY', 'CASH', 'RE')),
		currency TEXT NOT NULL,
		PRIMARY KEY (code, market)
	)`,
	`CREATE TABLE IF NOT EXISTS trns (
		id TEXT PRIMARY KEY,
		portfolio_code TEXT NOT NULL,
		trn_type TEXT NOT NULL CHECK(trn_type IN ('BUY', 'SELL', 'DIVI', 'SPLIT', 'DEPOSIT', 'WITHDRAWAL', 'INCREASE', 'REDUCE', 'BALANCE')),
		asset_code TEXT NOT NULL,
		asset_market TEXT NOT NULL,
		quantity TEXT NOT NULL DEFAULT '0',
		price TEXT NOT NULL DEFAULT '0',
		trade_amount TEXT NOT NULL DEFAULT '0',
		cash_amount TEXT NOT NULL DEFAULT '0',
		fees TEXT NOT NULL DEFAULT '0',
		tax TEXT NOT NULL DEFAULT '0',
		trade_currency TEXT NOT NULL,
		cash_currency TEXT,
		trade_cash_rate TEXT NOT NULL DEFAULT '1',
		trade_base_rate TEXT NOT NULL DEFAULT '1',
		trade_portfolio_rate TEXT NOT NULL DEFAULT '1',
		trade_date TEXT NOT NULL,
		comments TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(portfolio_code) REFERENCES portfolios(code) ON UPDATE CASCADE ON DELETE RESTRICT,
		FOREIGN KEY(asset_code, asset_market) REFERENCES assets(code, market) ON UPDATE CASCADE ON DELETE RESTRICT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trns_portfolio_date ON trns(portfolio_code, trade_date)`,
	`CREATE TABLE IF NOT EXISTS fx_rates (
		base TEXT NOT NULL,
		currency TEXT NOT NULL,
		rate_date TEXT NOT NULL,
		rate TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (base, currency, rate_date)
	)`,
	`CREATE TABLE IF NOT EXISTS prices (
		asset_code TEXT NOT NULL,
		asset_market TEXT NOT NULL,
		price_date TEXT NOT NULL,
		close TEXT NOT NULL,
		previous_close TEXT NOT NULL DEFAULT '0',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (asset_code, asset_market, price_date)
	)`,
	`CREATE TABLE IF NOT EXISTS valuation_snapshots (
		portfolio_code TEXT NOT NULL,
		snapshot_date TEXT NOT NULL,
		market_value TEXT NOT NULL,
		external_cash_flow TEXT NOT NULL DEFAULT '0',
		positions BLOB,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (portfolio_code, snapshot_date),
		FOREIGN KEY(portfolio_code) REFERENCES portfolios(code) ON UPDATE CASCADE ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS operation_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_type TEXT NOT NULL,
		subject TEXT,
		details TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

func exec(tx *sql.Tx, query string) error {
	_, err := tx.Exec(query)
	return err
}

func tableExists(tx *sql.Tx, table string) (bool, error) {
	var name string
	err := tx.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func tableHasColumn(tx *sql.Tx, table, column string) (bool, error) {
	exists, err := tableExists(tx, table)
	if err != nil || !exists {
		return false, err
	}
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
