package costbook

import (
	"database/sql/driver"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// moneyScale is the number of decimals kept for monetary amounts.
	moneyScale = 2
	// unitScale is the number of decimals kept for per-unit costs.
	unitScale = 6
	// rateScale is the number of decimals kept for FX rates.
	rateScale = 8
)

// Amount wraps decimal.Decimal for monetary values, quantities and rates.
// JSON marshaling outputs a plain number, while arithmetic stays decimal.
type Amount struct {
	decimal.Decimal
}

var zero = Amount{decimal.Zero}

// NewAmount creates an Amount from a float64.
func NewAmount(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

// NewAmountFromInt creates an Amount from an int64.
func NewAmountFromInt(i int64) Amount {
	return Amount{decimal.NewFromInt(i)}
}

// ParseAmount parses a decimal string such as "1234.56".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return zero, err
	}
	return Amount{d}, nil
}

// MarshalJSON outputs the value as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	f, _ := a.Float64()
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// EncodeMsgpack writes the exact decimal string so binary round trips are lossless.
func (a Amount) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(a.String())
}

// DecodeMsgpack reads a value written by EncodeMsgpack.
func (a *Amount) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// Scan implements sql.Scanner. SQLite columns hold decimal text, but REAL and
// INTEGER values written by other tools are accepted as well.
func (a *Amount) Scan(src any) error {
	if src == nil {
		a.Decimal = decimal.Zero
		return nil
	}
	switch v := src.(type) {
	case float64:
		a.Decimal = decimal.NewFromFloat(v)
		return nil
	case int64:
		a.Decimal = decimal.NewFromInt(v)
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	return a.Decimal.Scan(src)
}

// Value implements driver.Valuer for database writes.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Money rounds to the monetary scale, half away from zero.
func (a Amount) Money() Amount {
	return Amount{a.Round(moneyScale)}
}

// Float returns the value as a float64 for the numeric solvers.
func (a Amount) Float() float64 {
	f, _ := a.Float64()
	return f
}

func (a Amount) plus(b Amount) Amount {
	return Amount{a.Add(b.Decimal)}
}

func (a Amount) minus(b Amount) Amount {
	return Amount{a.Sub(b.Decimal)}
}

func (a Amount) times(b Amount) Amount {
	return Amount{a.Mul(b.Decimal)}
}

// over divides by b rounding to places. Division by zero yields zero.
func (a Amount) over(b Amount, places int32) Amount {
	if b.IsZero() {
		return zero
	}
	return Amount{a.DivRound(b.Decimal, places)}
}

func (a Amount) abs() Amount {
	return Amount{a.Abs()}
}

func (a Amount) neg() Amount {
	return Amount{a.Neg()}
}

// orOne substitutes the identity rate for an unset (zero) rate.
func (a Amount) orOne() Amount {
	if a.IsZero() {
		return Amount{decimal.NewFromInt(1)}
	}
	return a
}

// amountPtr returns a pointer to an Amount.
func amountPtr(v Amount) *Amount {
	return &v
}
