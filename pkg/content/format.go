package content

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mikegpl/lwm2m-go/pkg/model"
	"github.com/mikegpl/lwm2m-go/pkg/tlv"
)

// LinkFormat renders paths as a CoRE link-format list: "</3/0/0>,</3/0/1>".
func LinkFormat(paths []model.Path) string {
	links := make([]string, len(paths))
	for i, p := range paths {
		links[i] = p.Link()
	}
	return strings.Join(links, ",")
}

// FormatText renders a single value as text/plain. Opaque values have no
// text form.
func FormatText(t model.DataType, v any) (string, error) {
	switch t {
	case model.DataTypeString:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("%w: %T", model.ErrValueType, v)
		}
		return s, nil
	case model.DataTypeInteger:
		n, err := toInt64(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case model.DataTypeFloat:
		f, err := toFloat64(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(float64(float32(f)), 'g', -1, 32), nil
	case model.DataTypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return "", fmt.Errorf("%w: %T", model.ErrValueType, v)
		}
		if b {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("%w: %s has no text form", ErrNotAcceptable, t)
	}
}

// EncodeTLVValue converts v to TLV leaf bytes for datatype t.
func EncodeTLVValue(t model.DataType, v any) ([]byte, error) {
	switch t {
	case model.DataTypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %T", model.ErrValueType, v)
		}
		return tlv.String(s), nil
	case model.DataTypeInteger:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return tlv.Integer(n)
	case model.DataTypeFloat:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return tlv.Float(f), nil
	case model.DataTypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %T", model.ErrValueType, v)
		}
		return tlv.Bool(b), nil
	case model.DataTypeOpaque:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: %T", model.ErrValueType, v)
		}
		return tlv.Opaque(b), nil
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrValueType, t)
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d", tlv.ErrValueTooLarge, x)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d", tlv.ErrValueTooLarge, x)
		}
		return int64(x), nil
	default:
		return 0, fmt.Errorf("%w: %T is not an integer", model.ErrValueType, v)
	}
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	default:
		n, err := toInt64(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %T is not a number", model.ErrValueType, v)
		}
		return float64(n), nil
	}
}
