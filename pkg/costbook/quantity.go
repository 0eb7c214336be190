package costbook

// cashPrecision is the display precision of cash balances.
const cashPrecision int32 = 2

// QuantityValues tracks units held. Sold is signed and never positive.
type QuantityValues struct {
	Purchased  Amount `json:"purchased" msgpack:"purchased"`
	Sold       Amount `json:"sold" msgpack:"sold"`
	Adjustment Amount `json:"adjustment" msgpack:"adjustment"`
	// PrecisionOverride fixes the display precision, e.g. 2 for cash.
	PrecisionOverride *int32 `json:"precision_override,omitempty" msgpack:"precision_override,omitempty"`
}

// Total is Purchased + Sold + Adjustment.
func (q QuantityValues) Total() Amount {
	return q.Purchased.plus(q.Sold).plus(q.Adjustment)
}

// HasPosition reports whether any units are held.
func (q QuantityValues) HasPosition() bool {
	return !q.Total().IsZero()
}

// Precision is the number of decimals to display the total with.
func (q QuantityValues) Precision() int32 {
	if q.PrecisionOverride != nil {
		return *q.PrecisionOverride
	}
	if q.Total().IsInteger() {
		return 0
	}
	return 3
}

func (q *QuantityValues) fixPrecision(places int32) {
	q.PrecisionOverride = &places
}
