package tlv

import (
	"fmt"
	"slices"
	"sort"
)

// Length type selectors (bits 4-3 of the type byte).
const (
	lengthInline = 0b00
	length8      = 0b01
	length16     = 0b10
	length24     = 0b11
)

// Encode serializes a sequence of sibling elements.
func Encode(elems ...Element) ([]byte, error) {
	if err := checkSiblings(elems); err != nil {
		return nil, err
	}
	var buf []byte
	for _, e := range elems {
		var err error
		buf, err = Append(buf, e)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Append encodes e and appends it to dst.
//
// Object instance children are sorted by id before encoding; the caller's
// slice is not modified.
func Append(dst []byte, e Element) ([]byte, error) {
	if e.ID > MaxIdentifier {
		return dst, fmt.Errorf("%w: %s id %d", ErrIdentifierWidth, e.Kind, e.ID)
	}

	var value []byte
	if e.Kind.IsContainer() {
		children := e.Children
		if e.Kind == KindObjectInstance {
			children = sortedByID(children)
		}
		if err := checkSiblings(children); err != nil {
			return dst, fmt.Errorf("%s %d: %w", e.Kind, e.ID, err)
		}
		for _, c := range children {
			if !allowedChild(e.Kind, c.Kind) {
				return dst, fmt.Errorf("%w: %s inside %s", ErrMalformedTLV, c.Kind, e.Kind)
			}
			var err error
			value, err = Append(value, c)
			if err != nil {
				return dst, err
			}
		}
	} else {
		if len(e.Children) > 0 {
			return dst, fmt.Errorf("%w: %s %d has children", ErrMalformedTLV, e.Kind, e.ID)
		}
		value = e.Value
	}

	dst, err := appendHeader(dst, e.Kind, e.ID, len(value))
	if err != nil {
		return dst, err
	}
	return append(dst, value...), nil
}

// appendHeader writes the type byte, the 8-bit identifier and the
// narrowest length field that fits n.
func appendHeader(dst []byte, kind Kind, id uint16, n int) ([]byte, error) {
	t := byte(kind) << 6
	switch {
	case n <= 7:
		return append(dst, t|lengthInline<<3|byte(n), byte(id)), nil
	case n <= 0xff:
		return append(dst, t|length8<<3, byte(id), byte(n)), nil
	case n <= 0xffff:
		return append(dst, t|length16<<3, byte(id), byte(n>>8), byte(n)), nil
	case n <= MaxLength:
		return append(dst, t|length24<<3, byte(id), byte(n>>16), byte(n>>8), byte(n)), nil
	default:
		return dst, fmt.Errorf("%w: %d bytes exceeds %d", ErrValueTooLarge, n, MaxLength)
	}
}

func sortedByID(elems []Element) []Element {
	if sort.SliceIsSorted(elems, func(i, j int) bool { return elems[i].ID < elems[j].ID }) {
		return elems
	}
	sorted := slices.Clone(elems)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}

func checkSiblings(elems []Element) error {
	seen := make(map[uint16]struct{}, len(elems))
	for _, e := range elems {
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate identifier %d", ErrMalformedTLV, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
