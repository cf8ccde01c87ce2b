package senml

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// SenML errors.
var (
	// ErrUnsupportedValue is returned for values that are not a number,
	// string or bool.
	ErrUnsupportedValue = errors.New("unsupported SenML value")

	// ErrUnsupportedFormat is returned by Encode and Decode for formats
	// other than SenML JSON and CBOR.
	ErrUnsupportedFormat = errors.New("unsupported SenML content format")
)

// Kind identifies the populated value field of a Record.
type Kind uint8

const (
	KindNumber Kind = iota
	KindString
	KindBool
)

// String returns the SenML field name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "v"
	case KindString:
		return "vs"
	case KindBool:
		return "vb"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Record is one measurement.
type Record struct {
	// Name is the resource path, e.g. "/3303/0/5700".
	Name string

	Kind   Kind
	Number float64
	Str    string
	Bool   bool

	// Time is seconds since the Unix epoch.
	Time float64
}

// Value returns the populated value as float64, string or bool.
func (r Record) Value() any {
	switch r.Kind {
	case KindString:
		return r.Str
	case KindBool:
		return r.Bool
	default:
		return r.Number
	}
}

// Timestamp returns Time as a time.Time.
func (r Record) Timestamp() time.Time {
	sec, frac := math.Modf(r.Time)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// EpochSeconds converts t to SenML time, keeping sub-second precision.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// newRecord builds a record from a Go value.
func newRecord(name string, value any, t float64) (Record, error) {
	r := Record{Name: name, Time: t}
	switch v := value.(type) {
	case string:
		r.Kind, r.Str = KindString, v
	case bool:
		r.Kind, r.Bool = KindBool, v
	case float64:
		r.Kind, r.Number = KindNumber, v
	case float32:
		r.Kind, r.Number = KindNumber, float64(v)
	case int:
		r.Kind, r.Number = KindNumber, float64(v)
	case int8:
		r.Kind, r.Number = KindNumber, float64(v)
	case int16:
		r.Kind, r.Number = KindNumber, float64(v)
	case int32:
		r.Kind, r.Number = KindNumber, float64(v)
	case int64:
		r.Kind, r.Number = KindNumber, float64(v)
	case uint:
		r.Kind, r.Number = KindNumber, float64(v)
	case uint8:
		r.Kind, r.Number = KindNumber, float64(v)
	case uint16:
		r.Kind, r.Number = KindNumber, float64(v)
	case uint32:
		r.Kind, r.Number = KindNumber, float64(v)
	case uint64:
		r.Kind, r.Number = KindNumber, float64(v)
	default:
		return Record{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
	return r, nil
}
