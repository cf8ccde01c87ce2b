package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// ErrUnsupportedType is returned by EncodeValue for Go types without a TLV
// representation.
var ErrUnsupportedType = errors.New("unsupported TLV value type")

// String returns the UTF-8 bytes of s.
func String(s string) []byte { return []byte(s) }

// Integer returns v as 4-byte big-endian two's complement.
// Values outside the int32 range fail with ErrValueTooLarge.
func Integer(v int64) ([]byte, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return nil, fmt.Errorf("%w: integer %d does not fit 32 bits", ErrValueTooLarge, v)
	}
	return binary.BigEndian.AppendUint32(nil, uint32(int32(v))), nil
}

// Float returns v as a 4-byte IEEE-754 single precision value.
func Float(v float64) []byte {
	return binary.BigEndian.AppendUint32(nil, math.Float32bits(float32(v)))
}

// Bool returns a single byte: 0x01 for true, 0x00 for false.
func Bool(v bool) []byte {
	if v {
		return []byte{0x01}
	}
	return []byte{0x00}
}

// Opaque returns a copy of b.
func Opaque(b []byte) []byte { return append([]byte(nil), b...) }

// EncodeValue converts a Go value to leaf bytes by its dynamic type.
func EncodeValue(v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return String(x), nil
	case []byte:
		return Opaque(x), nil
	case bool:
		return Bool(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case int:
		return Integer(int64(x))
	case int8:
		return Integer(int64(x))
	case int16:
		return Integer(int64(x))
	case int32:
		return Integer(int64(x))
	case int64:
		return Integer(x)
	case uint8:
		return Integer(int64(x))
	case uint16:
		return Integer(int64(x))
	case uint32:
		return Integer(int64(x))
	case uint:
		if uint64(x) > math.MaxInt32 {
			return nil, fmt.Errorf("%w: integer %d does not fit 32 bits", ErrValueTooLarge, x)
		}
		return Integer(int64(x))
	case uint64:
		if x > math.MaxInt32 {
			return nil, fmt.Errorf("%w: integer %d does not fit 32 bits", ErrValueTooLarge, x)
		}
		return Integer(int64(x))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

func (e Element) leaf() ([]byte, error) {
	if e.Kind.IsContainer() {
		return nil, fmt.Errorf("%w: %s %d has no scalar value", ErrMalformedTLV, e.Kind, e.ID)
	}
	return e.Value, nil
}

// AsString interprets the value as UTF-8 text.
func (e Element) AsString() (string, error) {
	b, err := e.leaf()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: invalid UTF-8 in %s %d", ErrMalformedTLV, e.Kind, e.ID)
	}
	return string(b), nil
}

// AsInteger interprets the value as a signed big-endian integer of 1, 2, 4
// or 8 bytes.
func (e Element) AsInteger() (int64, error) {
	b, err := e.leaf()
	if err != nil {
		return 0, err
	}
	switch len(b) {
	case 1:
		return int64(int8(b[0])), nil
	case 2:
		return int64(int16(binary.BigEndian.Uint16(b))), nil
	case 4:
		return int64(int32(binary.BigEndian.Uint32(b))), nil
	case 8:
		return int64(binary.BigEndian.Uint64(b)), nil
	default:
		return 0, fmt.Errorf("%w: integer of %d bytes", ErrMalformedTLV, len(b))
	}
}

// AsFloat interprets the value as a 4- or 8-byte IEEE-754 number.
func (e Element) AsFloat() (float64, error) {
	b, err := e.leaf()
	if err != nil {
		return 0, err
	}
	switch len(b) {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	default:
		return 0, fmt.Errorf("%w: float of %d bytes", ErrMalformedTLV, len(b))
	}
}

// AsBool interprets the value as a single 0x00/0x01 byte.
func (e Element) AsBool() (bool, error) {
	b, err := e.leaf()
	if err != nil {
		return false, err
	}
	if len(b) != 1 || b[0] > 1 {
		return false, fmt.Errorf("%w: boolean % x", ErrMalformedTLV, b)
	}
	return b[0] == 1, nil
}

// AsOpaque returns the raw value bytes.
func (e Element) AsOpaque() ([]byte, error) {
	return e.leaf()
}
