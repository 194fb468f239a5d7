package protocol

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Kind tags which member of Value is meaningful.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindDecimal
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Value is one decoded or to-be-encoded field value. Enum values keep
// their raw code in Int alongside the symbolic name in Text.
type Value struct {
	Kind    Kind
	Text    string
	Int     int64
	Decimal float64
}

func StringValue(s string) Value {
	return Value{Kind: KindString, Text: s}
}

func IntValue(n int64) Value {
	return Value{Kind: KindInt, Int: n}
}

func DecimalValue(f float64) Value {
	return Value{Kind: KindDecimal, Decimal: f}
}

func EnumValue(name string, code int64) Value {
	return Value{Kind: KindEnum, Text: name, Int: code}
}

// Float returns the numeric content of int and decimal values.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindDecimal:
		return v.Decimal, true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindDecimal:
		return strconv.FormatFloat(v.Decimal, 'f', -1, 64)
	default:
		return v.Text
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return json.Marshal(v.Int)
	case KindDecimal:
		return json.Marshal(v.Decimal)
	default:
		return json.Marshal(v.Text)
	}
}

// Values maps parameter names to values.
type Values map[string]Value

func (vs Values) Clone() Values {
	out := make(Values, len(vs))
	for k, v := range vs {
		out[k] = v
	}
	return out
}

// Names returns the keys in sorted order.
func (vs Values) Names() []string {
	out := make([]string, 0, len(vs))
	for k := range vs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
