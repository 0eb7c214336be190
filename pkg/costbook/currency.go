package costbook

import (
	"strings"

	"github.com/Rhymond/go-money"
)

// Currency is an immutable ISO 4217 value object.
type Currency struct {
	Code   string `json:"code" msgpack:"code"`
	Digits int    `json:"digits" msgpack:"digits"`
	Symbol string `json:"symbol,omitempty" msgpack:"symbol,omitempty"`
}

// CurrencyResolver resolves ISO codes into Currency values.
type CurrencyResolver interface {
	Resolve(code string) (Currency, error)
}

// IsoCurrencies resolves codes against the ISO 4217 registry shipped with go-money.
type IsoCurrencies struct{}

// Resolve implements CurrencyResolver.
func (IsoCurrencies) Resolve(code string) (Currency, error) {
	code = normalizeCurrency(code)
	if code == "" {
		return Currency{}, NewError(ErrCodeInvalidInput, "currency required")
	}
	c := money.GetCurrency(code)
	if c == nil {
		return Currency{}, Errorf(ErrCodeInvalidInput, "unknown currency: %s", code)
	}
	return Currency{Code: c.Code, Digits: c.Fraction, Symbol: c.Grapheme}, nil
}

// CurrencyPair is an ordered from/to pair of ISO codes.
type CurrencyPair struct {
	From string `json:"from" msgpack:"from"`
	To   string `json:"to" msgpack:"to"`
}

// NewCurrencyPair normalizes both codes.
func NewCurrencyPair(from, to string) CurrencyPair {
	return CurrencyPair{From: normalizeCurrency(from), To: normalizeCurrency(to)}
}

// ParseCurrencyPair parses "USD:NZD" (or "USD/NZD").
func ParseCurrencyPair(s string) (CurrencyPair, error) {
	sep := ":"
	if !strings.Contains(s, sep) {
		sep = "/"
	}
	from, to, ok := strings.Cut(s, sep)
	if !ok || strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return CurrencyPair{}, Errorf(ErrCodeInvalidInput, "invalid currency pair: %q", s)
	}
	return NewCurrencyPair(from, to), nil
}

// String formats the pair as FROM:TO.
func (p CurrencyPair) String() string {
	return p.From + ":" + p.To
}

// MarshalText lets pairs key JSON objects.
func (p CurrencyPair) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses FROM:TO.
func (p *CurrencyPair) UnmarshalText(text []byte) error {
	parsed, err := ParseCurrencyPair(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func normalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
