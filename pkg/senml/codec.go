package senml

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// Pack is an ordered batch of records.
type Pack []Record

// wireRecord is the serialized form. Exactly one value pointer is set.
type wireRecord struct {
	Name        string   `json:"n" cbor:"0,keyasint"`
	Value       *float64 `json:"v,omitempty" cbor:"2,keyasint,omitempty"`
	StringValue *string  `json:"vs,omitempty" cbor:"3,keyasint,omitempty"`
	BoolValue   *bool    `json:"vb,omitempty" cbor:"4,keyasint,omitempty"`
	Time        float64  `json:"t" cbor:"6,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Floats use the narrowest width that is exact.
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		ShortestFloat: cbor.ShortestFloat16,
		IndefLength:   cbor.IndefLengthForbidden,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create SenML CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create SenML CBOR decoder mode: %v", err))
	}
}

func (r Record) toWire() wireRecord {
	w := wireRecord{Name: r.Name, Time: r.Time}
	switch r.Kind {
	case KindString:
		s := r.Str
		w.StringValue = &s
	case KindBool:
		b := r.Bool
		w.BoolValue = &b
	default:
		n := r.Number
		w.Value = &n
	}
	return w
}

func (w wireRecord) toRecord() (Record, error) {
	set := 0
	r := Record{Name: w.Name, Time: w.Time}
	if w.Value != nil {
		set++
		r.Kind, r.Number = KindNumber, *w.Value
	}
	if w.StringValue != nil {
		set++
		r.Kind, r.Str = KindString, *w.StringValue
	}
	if w.BoolValue != nil {
		set++
		r.Kind, r.Bool = KindBool, *w.BoolValue
	}
	if set != 1 {
		return Record{}, fmt.Errorf("%w: record %q has %d value fields", ErrUnsupportedValue, w.Name, set)
	}
	return r, nil
}

func (p Pack) toWire() []wireRecord {
	out := make([]wireRecord, len(p))
	for i, r := range p {
		out[i] = r.toWire()
	}
	return out
}

func fromWire(ws []wireRecord) (Pack, error) {
	out := make(Pack, len(ws))
	for i, w := range ws {
		r, err := w.toRecord()
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// MarshalJSON encodes the pack as SenML JSON.
func (p Pack) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.toWire())
}

// UnmarshalJSON decodes SenML JSON.
func (p *Pack) UnmarshalJSON(data []byte) error {
	var ws []wireRecord
	if err := json.Unmarshal(data, &ws); err != nil {
		return err
	}
	out, err := fromWire(ws)
	if err != nil {
		return err
	}
	*p = out
	return nil
}

// MarshalCBOR encodes the pack as SenML CBOR.
func (p Pack) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(p.toWire())
}

// UnmarshalCBOR decodes SenML CBOR.
func (p *Pack) UnmarshalCBOR(data []byte) error {
	var ws []wireRecord
	if err := decMode.Unmarshal(data, &ws); err != nil {
		return err
	}
	out, err := fromWire(ws)
	if err != nil {
		return err
	}
	*p = out
	return nil
}

// Encode serializes the pack in format, which must be SenML JSON or
// SenML CBOR.
func (p Pack) Encode(format wire.Format) ([]byte, error) {
	switch format {
	case wire.FormatSenMLJSON:
		return p.MarshalJSON()
	case wire.FormatSenMLCBOR:
		return p.MarshalCBOR()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Decode parses a SenML JSON or CBOR payload.
func Decode(format wire.Format, data []byte) (Pack, error) {
	var p Pack
	var err error
	switch format {
	case wire.FormatSenMLJSON:
		err = p.UnmarshalJSON(data)
	case wire.FormatSenMLCBOR:
		err = p.UnmarshalCBOR(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return p, nil
}
