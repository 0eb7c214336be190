package costbook

import (
	"github.com/vmihailenco/msgpack/v5"
)

// MarshalPosition encodes a position in msgpack.
func MarshalPosition(p *Position) ([]byte, error) {
	b, err := msgpack.Marshal(p)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, "encode position", err)
	}
	return b, nil
}

// UnmarshalPosition decodes a position written by MarshalPosition.
func UnmarshalPosition(b []byte) (*Position, error) {
	var p Position
	if err := msgpack.Unmarshal(b, &p); err != nil {
		return nil, WrapError(ErrCodeInternal, "decode position", err)
	}
	if p.MoneyValues == nil {
		p.MoneyValues = map[View]*MoneyValues{}
	}
	return &p, nil
}

// MarshalPositions encodes a valued Positions container in msgpack.
func MarshalPositions(ps *Positions) ([]byte, error) {
	b, err := msgpack.Marshal(ps)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, "encode positions", err)
	}
	return b, nil
}

// UnmarshalPositions decodes a container written by MarshalPositions.
func UnmarshalPositions(b []byte) (*Positions, error) {
	var ps Positions
	if err := msgpack.Unmarshal(b, &ps); err != nil {
		return nil, WrapError(ErrCodeInternal, "decode positions", err)
	}
	if ps.Positions == nil {
		ps.Positions = map[string]*Position{}
	}
	if ps.Totals == nil {
		ps.Totals = map[View]*Totals{}
	}
	return &ps, nil
}
