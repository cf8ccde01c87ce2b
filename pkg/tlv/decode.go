package tlv

import "fmt"

const identifierWidthBit = 0x20

// Decode parses a sequence of sibling elements until data is exhausted.
// Leaf values are copied, so the result does not alias data.
func Decode(data []byte) ([]Element, error) {
	return decodeSequence(data, nil)
}

// DecodeOne parses data that must hold exactly one element.
func DecodeOne(data []byte) (Element, error) {
	elems, err := Decode(data)
	if err != nil {
		return Element{}, err
	}
	if len(elems) != 1 {
		return Element{}, fmt.Errorf("%w: expected one element, got %d", ErrMalformedTLV, len(elems))
	}
	return elems[0], nil
}

func decodeSequence(data []byte, parent *Kind) ([]Element, error) {
	var out []Element
	for len(data) > 0 {
		e, n, err := decodeElement(data)
		if err != nil {
			return nil, err
		}
		if parent != nil && !allowedChild(*parent, e.Kind) {
			return nil, fmt.Errorf("%w: %s inside %s", ErrMalformedTLV, e.Kind, *parent)
		}
		for _, prev := range out {
			if prev.ID == e.ID {
				return nil, fmt.Errorf("%w: duplicate identifier %d", ErrMalformedTLV, e.ID)
			}
		}
		out = append(out, e)
		data = data[n:]
	}
	return out, nil
}

// decodeElement parses one element and returns it with the number of bytes
// consumed.
func decodeElement(data []byte) (Element, int, error) {
	if len(data) < 2 {
		return Element{}, 0, fmt.Errorf("%w: truncated header (%d bytes)", ErrMalformedTLV, len(data))
	}
	t := data[0]
	if t&identifierWidthBit != 0 {
		return Element{}, 0, fmt.Errorf("%w: %v", ErrMalformedTLV, ErrIdentifierWidth)
	}

	e := Element{Kind: Kind(t >> 6), ID: uint16(data[1])}
	off := 2

	var n int
	switch width := int(t>>3) & 0x03; width {
	case lengthInline:
		n = int(t & 0x07)
	default:
		if len(data) < off+width {
			return Element{}, 0, fmt.Errorf("%w: truncated %d-byte length field", ErrMalformedTLV, width)
		}
		for _, b := range data[off : off+width] {
			n = n<<8 | int(b)
		}
		off += width
	}

	if n > len(data)-off {
		return Element{}, 0, fmt.Errorf("%w: %s %d declares %d bytes, %d remain",
			ErrMalformedTLV, e.Kind, e.ID, n, len(data)-off)
	}
	value := data[off : off+n]

	if e.Kind.IsContainer() {
		kind := e.Kind
		children, err := decodeSequence(value, &kind)
		if err != nil {
			return Element{}, 0, fmt.Errorf("%s %d: %w", e.Kind, e.ID, err)
		}
		e.Children = children
	} else {
		e.Value = append(make([]byte, 0, n), value...)
	}
	return e, off + n, nil
}
