package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a dynamically shaped structured value: null, bool, number,
// string, sequence or mapping. The zero Value is null.
//
// Numbers keep their decimal text so that no precision is lost between
// decoding and encoding. Conversions to and from Go values are explicit;
// accessors report false instead of coercing.
type Value struct {
	kind Kind
	b    bool
	n    json.Number
	s    string
	seq  []Value
	m    map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns a number value.
func Int(i int64) Value {
	return Value{kind: KindNumber, n: json.Number(strconv.FormatInt(i, 10))}
}

// Float returns a number value. NaN and infinities have no structured text
// form and are rejected.
func Float(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("codec: unsupported number %v", f)
	}
	return Value{kind: KindNumber, n: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}, nil
}

// Number returns a number value from its decimal text.
func Number(n json.Number) (Value, error) {
	if !validNumber(string(n)) {
		return Value{}, fmt.Errorf("codec: invalid number %q", n)
	}
	return Value{kind: KindNumber, n: n}, nil
}

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Seq returns a sequence value.
func Seq(items ...Value) Value {
	return Value{kind: KindSequence, seq: slices.Clone(items)}
}

// Map returns a mapping value.
func Map(entries map[string]Value) Value {
	m := make(map[string]Value, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return Value{kind: KindMapping, m: m}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the bool held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the decimal text of the number held by v.
func (v Value) AsNumber() (json.Number, bool) { return v.n, v.kind == KindNumber }

// AsInt returns the number held by v if it is an integer that fits int64.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	i, err := v.n.Int64()
	return i, err == nil
}

// AsFloat returns the number held by v as a float64.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.n.Float64()
	return f, err == nil
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsSeq returns a copy of the items of a sequence.
func (v Value) AsSeq() ([]Value, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return slices.Clone(v.seq), true
}

// AsMap returns a copy of the entries of a mapping.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	m := make(map[string]Value, len(v.m))
	for k, e := range v.m {
		m[k] = e
	}
	return m, true
}

// Equal reports structural equality. Numbers are equal when their decimal
// text is equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindSequence:
		return slices.EqualFunc(v.seq, o.seq, Value.Equal)
	case KindMapping:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts a Go value made of nil, bool, integers, floats,
// json.Number, string, []any, map[string]any, Value, []Value and
// map[string]Value. Any other type is an error.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Value{kind: KindNumber, n: json.Number(strconv.FormatUint(uint64(t), 10))}, nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Value{kind: KindNumber, n: json.Number(strconv.FormatUint(t, 10))}, nil
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case json.Number:
		return Number(t)
	case string:
		return Str(t), nil
	case []Value:
		return Seq(t...), nil
	case map[string]Value:
		return Map(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			item, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = item
		}
		return Value{kind: KindSequence, seq: items}, nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			item, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = item
		}
		return Value{kind: KindMapping, m: m}, nil
	default:
		return Value{}, fmt.Errorf("codec: cannot convert %T to Value", x)
	}
}

// Any converts v to plain Go values: nil, bool, json.Number, string, []any
// and map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Any()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Any()
		}
		return out
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	parsed, err := FromAny(x)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ErrIncompatible is returned when a path crosses a value that is neither
// a mapping nor a sequence, or indexes a sequence with a non-index segment.
var ErrIncompatible = errors.New("codec: incompatible value on path")

// ErrOutOfRange is returned when SetPath indexes a sequence past its end.
// Only the index equal to the length may be set, which appends.
var ErrOutOfRange = errors.New("codec: sequence index out of range")

// Children returns the child keys of a mapping (sorted) or the indices of
// a sequence. Other kinds have no children.
func (v Value) Children() []string {
	switch v.kind {
	case KindMapping:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return keys
	case KindSequence:
		keys := make([]string, len(v.seq))
		for i := range v.seq {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	return nil
}

// Lookup follows path through mappings (by key) and sequences (by decimal
// index). The boolean is false if some step is missing.
func (v Value) Lookup(path []string) (Value, bool, error) {
	cur := v
	for i, seg := range path {
		switch cur.kind {
		case KindNull:
			return Value{}, false, nil
		case KindMapping:
			next, ok := cur.m[seg]
			if !ok {
				return Value{}, false, nil
			}
			cur = next
		case KindSequence:
			ix, err := index(seg)
			if err != nil {
				return Value{}, false, fmt.Errorf("%w: %q at step %d", ErrIncompatible, seg, i)
			}
			if ix >= len(cur.seq) {
				return Value{}, false, nil
			}
			cur = cur.seq[ix]
		default:
			return Value{}, false, fmt.Errorf("%w: %s at step %d", ErrIncompatible, cur.kind, i)
		}
	}
	return cur, true, nil
}

// SetPath stores x at path, creating mappings for missing intermediate
// steps. A sequence index may address an existing element or the position
// just past the end.
func (v *Value) SetPath(path []string, x Value) error {
	updated, err := setPath(*v, path, x)
	if err != nil {
		return err
	}
	*v = updated
	return nil
}

func setPath(cur Value, path []string, x Value) (Value, error) {
	if len(path) == 0 {
		return x, nil
	}
	seg, rest := path[0], path[1:]
	switch cur.kind {
	case KindNull:
		child, err := setPath(Value{}, rest, x)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindMapping, m: map[string]Value{seg: child}}, nil
	case KindMapping:
		child, err := setPath(cur.m[seg], rest, x)
		if err != nil {
			return Value{}, err
		}
		m := make(map[string]Value, len(cur.m)+1)
		for k, e := range cur.m {
			m[k] = e
		}
		m[seg] = child
		return Value{kind: KindMapping, m: m}, nil
	case KindSequence:
		ix, err := index(seg)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q", ErrIncompatible, seg)
		}
		if ix > len(cur.seq) {
			return Value{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, ix, len(cur.seq))
		}
		seq := slices.Clone(cur.seq)
		if ix == len(seq) {
			seq = append(seq, Value{})
		}
		child, err := setPath(seq[ix], rest, x)
		if err != nil {
			return Value{}, err
		}
		seq[ix] = child
		return Value{kind: KindSequence, seq: seq}, nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrIncompatible, cur.kind)
	}
}

// DeletePath removes the value at path. A mapping loses the key; in a
// sequence the last element is dropped and any other element becomes null
// so that the indices of its siblings stay stable. Missing paths are left
// alone. Deleting the empty path makes v null.
func (v *Value) DeletePath(path []string) error {
	updated, err := deletePath(*v, path)
	if err != nil {
		return err
	}
	*v = updated
	return nil
}

func deletePath(cur Value, path []string) (Value, error) {
	if len(path) == 0 {
		return Value{}, nil
	}
	seg, rest := path[0], path[1:]
	switch cur.kind {
	case KindNull:
		return cur, nil
	case KindMapping:
		child, ok := cur.m[seg]
		if !ok {
			return cur, nil
		}
		m := make(map[string]Value, len(cur.m))
		for k, e := range cur.m {
			m[k] = e
		}
		if len(rest) == 0 {
			delete(m, seg)
		} else {
			updated, err := deletePath(child, rest)
			if err != nil {
				return Value{}, err
			}
			m[seg] = updated
		}
		return Value{kind: KindMapping, m: m}, nil
	case KindSequence:
		ix, err := index(seg)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q", ErrIncompatible, seg)
		}
		if ix >= len(cur.seq) {
			return cur, nil
		}
		seq := slices.Clone(cur.seq)
		switch {
		case len(rest) > 0:
			updated, err := deletePath(seq[ix], rest)
			if err != nil {
				return Value{}, err
			}
			seq[ix] = updated
		case ix == len(seq)-1:
			seq = seq[:ix]
		default:
			seq[ix] = Value{}
		}
		return Value{kind: KindSequence, seq: seq}, nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrIncompatible, cur.kind)
	}
}

func index(seg string) (int, error) {
	ix, err := strconv.Atoi(seg)
	if err != nil || ix < 0 || strconv.Itoa(ix) != seg {
		return 0, fmt.Errorf("not an index: %q", seg)
	}
	return ix, nil
}

// validNumber reports whether s is a number in structured text grammar.
// json.Valid accepts any value and surrounding whitespace, so s must also
// start with a digit or '-' and end with a digit.
func validNumber(s string) bool {
	if s == "" || !json.Valid([]byte(s)) {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '-' || isDigit(first)) && isDigit(last)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
