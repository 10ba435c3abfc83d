package compliance

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a scalar rule value. Two values are equal only when their kinds
// match and their payloads are identical: true never equals 1 and "1" never
// equals 1.
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
}

func Null() Value               { return Value{kind: KindNull} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Number(n float64) Value    { return Value{kind: KindNumber, n: n} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func (v Value) Kind() ValueKind { return v.kind }

// Equal compares kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNumber:
		return fmt.Sprintf("%g", v.n)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	default:
		return "null"
	}
}

// ValueOf converts a decoded JSON scalar (or a Go scalar) into a Value.
// Objects and arrays are rejected.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, errors.Wrapf(models.ErrInvalidArgument, "rule value %q: %v", t, err)
		}
		return Number(f), nil
	default:
		return Value{}, errors.Wrapf(models.ErrInvalidArgument, "rule value of type %T is not a scalar", x)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Conditions maps a rule key to its required value.
type Conditions map[string]Value

// ConditionsOf converts a decoded JSON object into Conditions.
func ConditionsOf(m map[string]any) (Conditions, error) {
	out := make(Conditions, len(m))
	for k, x := range m {
		v, err := ValueOf(x)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", k)
		}
		out[k] = v
	}
	return out, nil
}

func (c Conditions) clone() Conditions {
	out := make(Conditions, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
