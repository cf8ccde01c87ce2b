package tlv

import (
	"errors"
	"fmt"
)

// Codec errors.
var (
	ErrMalformedTLV    = errors.New("malformed TLV")
	ErrValueTooLarge   = errors.New("value too large for TLV")
	ErrIdentifierWidth = errors.New("16-bit TLV identifiers are not implemented")
)

// MaxLength is the largest value length a three-byte length field can carry.
const MaxLength = 1<<24 - 1

// MaxIdentifier is the largest identifier that fits the 8-bit id field.
const MaxIdentifier = 0xff

// Kind is the element type encoded in bits 7-6 of the type byte.
type Kind uint8

const (
	KindObjectInstance   Kind = 0b00
	KindResourceInstance Kind = 0b01
	KindMultipleResource Kind = 0b10
	KindResourceValue    Kind = 0b11
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindObjectInstance:
		return "ObjectInstance"
	case KindResourceInstance:
		return "ResourceInstance"
	case KindMultipleResource:
		return "MultipleResource"
	case KindResourceValue:
		return "ResourceValue"
	default:
		return "Unknown"
	}
}

// IsContainer returns true for kinds whose value is a sequence of elements.
func (k Kind) IsContainer() bool {
	return k == KindObjectInstance || k == KindMultipleResource
}

// Element is one TLV node. Leaves carry Value, containers carry Children.
type Element struct {
	Kind     Kind
	ID       uint16
	Value    []byte
	Children []Element
}

// ObjectInstance returns an object instance element holding resources.
func ObjectInstance(id uint16, resources ...Element) Element {
	return Element{Kind: KindObjectInstance, ID: id, Children: resources}
}

// Resource returns a single-value resource element.
func Resource(id uint16, value []byte) Element {
	return Element{Kind: KindResourceValue, ID: id, Value: value}
}

// ResourceInstance returns one instance of a multiple resource.
func ResourceInstance(id uint16, value []byte) Element {
	return Element{Kind: KindResourceInstance, ID: id, Value: value}
}

// MultipleResource returns a multiple resource holding resource instances.
func MultipleResource(id uint16, instances ...Element) Element {
	return Element{Kind: KindMultipleResource, ID: id, Children: instances}
}

// MultipleResourceValues builds a multiple resource whose instance ids are
// the positions 0..N-1 of values.
func MultipleResourceValues(id uint16, values ...[]byte) Element {
	instances := make([]Element, len(values))
	for i, v := range values {
		instances[i] = ResourceInstance(uint16(i), v)
	}
	return MultipleResource(id, instances...)
}

// Child returns the direct child with the given id.
func (e Element) Child(id uint16) (Element, bool) {
	for _, c := range e.Children {
		if c.ID == id {
			return c, true
		}
	}
	return Element{}, false
}

// String renders the element for debugging.
func (e Element) String() string {
	if e.Kind.IsContainer() {
		return fmt.Sprintf("%s(%d)%v", e.Kind, e.ID, e.Children)
	}
	return fmt.Sprintf("%s(%d)[% x]", e.Kind, e.ID, e.Value)
}

// allowedChild reports whether a child kind may appear inside parent.
func allowedChild(parent, child Kind) bool {
	switch parent {
	case KindObjectInstance:
		return child == KindResourceValue || child == KindMultipleResource
	case KindMultipleResource:
		return child == KindResourceInstance
	default:
		return false
	}
}
