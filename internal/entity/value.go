package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValueType tags the payload carried by a Value.
type ValueType int

const (
	TypeInvalid ValueType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeString
	TypeTime
	TypeStrings
	TypePredicate
)

var valueTypeNames = map[ValueType]string{
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeBool:      "bool",
	TypeString:    "string",
	TypeTime:      "datetime",
	TypeStrings:   "string_list",
	TypePredicate: "predicate",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return "invalid"
}

// ParseValueType is the inverse of ValueType.String.
func ParseValueType(s string) (ValueType, error) {
	for t, name := range valueTypeNames {
		if name == s {
			return t, nil
		}
	}
	return TypeInvalid, fmt.Errorf("%w: unknown value type %q", ErrTypeMismatch, s)
}

// Value is a tagged attribute value. The zero Value is invalid.
type Value struct {
	typ  ValueType
	i    int64
	f    float64
	b    bool
	s    string
	t    time.Time
	list []string
	pred *Predicate
}

func Int(v int64) Value     { return Value{typ: TypeInt, i: v} }
func Float(v float64) Value { return Value{typ: TypeFloat, f: v} }
func Bool(v bool) Value     { return Value{typ: TypeBool, b: v} }
func String(v string) Value { return Value{typ: TypeString, s: v} }

// Time stores t in UTC so values read back from the store compare equal.
func Time(t time.Time) Value { return Value{typ: TypeTime, t: t.UTC()} }

func Strings(v []string) Value {
	list := make([]string, len(v))
	copy(list, v)
	return Value{typ: TypeStrings, list: list}
}

func PredicateValue(p *Predicate) Value {
	return Value{typ: TypePredicate, pred: p.Clone()}
}

// ValueOf converts a plain Go value into a Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x.Clone(), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		return Float(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case time.Time:
		return Time(x), nil
	case []string:
		return Strings(x), nil
	case *Predicate:
		return PredicateValue(x), nil
	}
	return Value{}, fmt.Errorf("%w: unsupported Go type %T", ErrTypeMismatch, v)
}

func (v Value) Type() ValueType { return v.typ }
func (v Value) IsValid() bool   { return v.typ != TypeInvalid }

func (v Value) AsInt() int64            { return v.i }
func (v Value) AsFloat() float64        { return v.f }
func (v Value) AsBool() bool            { return v.b }
func (v Value) AsString() string        { return v.s }
func (v Value) AsTime() time.Time       { return v.t }
func (v Value) AsPredicate() *Predicate { return v.pred }

// AsStrings returns a copy of the list payload.
func (v Value) AsStrings() []string {
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

// Clone deep-copies list and predicate payloads.
func (v Value) Clone() Value {
	c := v
	if v.list != nil {
		c.list = make([]string, len(v.list))
		copy(c.list, v.list)
	}
	if v.pred != nil {
		c.pred = v.pred.Clone()
	}
	return c
}

func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeInt:
		return v.i == o.i
	case TypeFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case TypeBool:
		return v.b == o.b
	case TypeString:
		return v.s == o.s
	case TypeTime:
		return v.t.Equal(o.t)
	case TypeStrings:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	case TypePredicate:
		return v.pred.Equal(o.pred)
	}
	return true
}

// String renders the value for display and undo captions.
func (v Value) String() string {
	switch v.typ {
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeString:
		return v.s
	case TypeTime:
		return v.t.Format(time.RFC3339Nano)
	case TypeStrings:
		return strings.Join(v.list, ", ")
	case TypePredicate:
		return v.pred.String()
	}
	return ""
}

type valueJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.typ {
	case TypeInt:
		payload = v.i
	case TypeFloat:
		payload = v.f
	case TypeBool:
		payload = v.b
	case TypeString:
		payload = v.s
	case TypeTime:
		payload = v.t.Format(time.RFC3339Nano)
	case TypeStrings:
		list := v.list
		if list == nil {
			list = []string{}
		}
		payload = list
	case TypePredicate:
		payload = v.pred
	default:
		return nil, fmt.Errorf("%w: cannot encode invalid value", ErrTypeMismatch)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{Type: v.typ.String(), Value: raw})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var vj valueJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return err
	}
	typ, err := ParseValueType(vj.Type)
	if err != nil {
		return err
	}
	out := Value{typ: typ}
	switch typ {
	case TypeInt:
		err = json.Unmarshal(vj.Value, &out.i)
	case TypeFloat:
		err = json.Unmarshal(vj.Value, &out.f)
	case TypeBool:
		err = json.Unmarshal(vj.Value, &out.b)
	case TypeString:
		err = json.Unmarshal(vj.Value, &out.s)
	case TypeTime:
		var s string
		if err = json.Unmarshal(vj.Value, &s); err == nil {
			var t time.Time
			t, err = time.Parse(time.RFC3339Nano, s)
			out.t = t.UTC()
		}
	case TypeStrings:
		out.list = []string{}
		err = json.Unmarshal(vj.Value, &out.list)
	case TypePredicate:
		out.pred = &Predicate{}
		err = json.Unmarshal(vj.Value, out.pred)
	}
	if err != nil {
		return fmt.Errorf("decode %s value: %w", vj.Type, err)
	}
	*v = out
	return nil
}
