package log

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Trace records are a flat sequence of integer-keyed maps. Timestamps carry
// CBOR tag 0 so generic CBOR tools show them as time values.
var (
	traceEnc cbor.EncMode
	traceDec cbor.DecMode
)

// maxEventDepth is the smallest limit the decoder accepts. Events nest two
// maps deep.
const maxEventDepth = 4

func init() {
	var err error

	traceEnc, err = cbor.EncOptions{
		Sort:        cbor.SortCoreDeterministic,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
		TimeTag:     cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: trace encoder: %v", err))
	}

	// Unknown keys are skipped so older viewers can read newer traces. A
	// record nesting deeper than any Event is corrupt.
	traceDec, err = cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		IndefLength:     cbor.IndefLengthForbidden,
		TimeTag:         cbor.DecTagOptional,
		MaxNestedLevels: maxEventDepth,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: trace decoder: %v", err))
	}
}

// EncodeEvent encodes one trace record.
func EncodeEvent(event Event) ([]byte, error) {
	return traceEnc.Marshal(event)
}

// DecodeEvent decodes one trace record.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := traceDec.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode trace event: %w", err)
	}
	return event, nil
}
