package costbook

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "modernc.org/sqlite"
)

// Options controls Core initialization.
type Options struct {
	DBPath         string
	Logger         *slog.Logger
	BaseCurrency   string
	MinHoldingDays int
	CacheTTL       time.Duration
	Workers        int
	Currencies     CurrencyResolver
}

// Core provides access to the accounting engine and its storage.
type Core struct {
	db           *sql.DB
	logger       *slog.Logger
	dbPath       string
	baseCurrency string
	workers      int
	currencies   CurrencyResolver
	accumulator  *Accumulator
	valuer       *Valuer
	irr          *IrrCalculator
	cache        *positionsCache
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	currencies := opts.Currencies
	if currencies == nil {
		currencies = IsoCurrencies{}
	}
	base := normalizeCurrency(opts.BaseCurrency)
	if base == "" {
		base = DefaultBaseCurrency
	}
	if _, err := currencies.Resolve(base); err != nil {
		return nil, fmt.Errorf("base currency: %w", err)
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logger.Warn("pragma foreign_keys failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	return &Core{
		db:           db,
		logger:       logger,
		dbPath:       cleanPath,
		baseCurrency: base,
		workers:      defaultInt(opts.Workers, runtime.GOMAXPROCS(0)),
		currencies:   currencies,
		accumulator:  NewAccumulator(currencies, base, logger),
		valuer:       NewValuer(logger),
		irr:          NewIrrCalculator(opts.MinHoldingDays, logger),
		cache:        newPositionsCache(defaultDuration(opts.CacheTTL, 30*time.Second)),
	}, nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

// BaseCurrency returns the currency stored FX rates are quoted against.
func (c *Core) BaseCurrency() string {
	return c.baseCurrency
}

// Logger returns the logger Core was opened with, or the slog default for a nil Core.
func (c *Core) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// IrrCalculator returns the calculator configured for this Core.
func (c *Core) IrrCalculator() *IrrCalculator {
	return c.irr
}

func (c *Core) invalidatePositionsCache() {
	if c.cache != nil {
		c.cache.invalidate()
	}
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
