// Package frame is a small tabular model for provider data: ordered index
// labels, ordered column labels and a grid of tagged cell values. It stands
// in for the dataframe the upstream provider would hand back, so that the
// normalize package can treat heterogeneous labels and cells uniformly.
package frame

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/seenimoa/yfbridge/pkg/utils"
)

// Kind tags the content of a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindInt
	KindFloat
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "missing"
	}
}

// Value is a single label or cell. The zero Value is missing.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Missing returns the absent value.
func Missing() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point value. NaN is not a number the table can
// hold, so it comes back as Missing.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Value{kind: KindFloat, f: f}
}

// String returns a textual value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Time returns a timestamp value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// FloatPtr maps a nullable provider number to a Value.
func FloatPtr(f *float64) Value {
	if f == nil {
		return Missing()
	}
	return Float(*f)
}

// IntPtr maps a nullable provider integer to a Value.
func IntPtr(i *int64) Value {
	if i == nil {
		return Missing()
	}
	return Int(*i)
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }
func (v Value) IsTime() bool    { return v.kind == KindTime }

// TimeValue returns the timestamp held by a KindTime value.
func (v Value) TimeValue() time.Time { return v.t }

// Number reports the value as float64. ok is false for anything that is not
// an int or a float.
func (v Value) Number() (f float64, ok bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Text is the textual representation of the value: dates and times in
// ISO-8601, numbers in their shortest form, "" for missing.
func (v Value) Text() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindTime:
		return utils.FormatISO(v.t)
	}
	return ""
}

// String implements fmt.Stringer. Missing prints as NaN, the way the
// upstream table engine shows an empty cell.
func (v Value) String() string {
	if v.kind == KindMissing {
		return "NaN"
	}
	return v.Text()
}

// MarshalJSON encodes numbers as numbers, times as ISO-8601 strings and
// missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsInf(v.f, 0) {
			return json.Marshal(v.Text())
		}
		return json.Marshal(v.f)
	case KindString, KindTime:
		return json.Marshal(v.Text())
	}
	return []byte("null"), nil
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	}
	return true
}
