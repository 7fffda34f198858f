// internal/assistant/conversation/value.go

package conversation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

// Value is an attribute value: a string, a number, a bool or a list of
// strings. It marshals to the plain JSON form of whatever it holds.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []string
}

func String(s string) Value   { return Value{kind: KindString, str: s} }
func Number(f float64) Value  { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func List(l []string) Value   { return Value{kind: KindList, list: append([]string{}, l...)} }
func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// ValueOf converts decoded JSON or extractor output into a Value. Anything
// that is not a string, finite number, bool or list of strings is rejected.
func ValueOf(raw interface{}) (Value, bool) {
	switch x := raw.(type) {
	case Value:
		return x, x.IsValid()
	case string:
		return String(x), true
	case bool:
		return Bool(x), true
	case float64:
		return finiteNumber(x)
	case float32:
		return finiteNumber(float64(x))
	case int:
		return Number(float64(x)), true
	case int32:
		return Number(float64(x)), true
	case int64:
		return Number(float64(x)), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, false
		}
		return finiteNumber(f)
	case []string:
		return List(x), true
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return Value{}, false
			}
			out = append(out, s)
		}
		return List(out), true
	default:
		return Value{}, false
	}
}

func finiteNumber(f float64) (Value, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, false
	}
	return Number(f), true
}

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }

func (v Value) AsList() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]string{}, v.list...), true
}

// Interface returns the held value as a plain Go value.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		l, _ := v.AsList()
		return l
	default:
		return nil
	}
}

// Empty reports whether the value carries nothing worth storing.
func (v Value) Empty() bool {
	switch v.kind {
	case KindString:
		return strings.TrimSpace(v.str) == ""
	case KindList:
		return len(v.list) == 0
	case KindInvalid:
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindList:
		return strings.Join(v.list, ", ")
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON leaves v empty for a JSON null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*v = Value{}
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, ok := ValueOf(raw)
	if !ok {
		return fmt.Errorf("unsupported attribute value: %s", string(data))
	}
	*v = parsed
	return nil
}
