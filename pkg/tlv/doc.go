// Package tlv implements the OMA LwM2M Type-Length-Value encoding.
//
// # Header Layout
//
// Every element starts with one type byte:
//
//	bit  7 6 | 5        | 4 3          | 2 1 0
//	     kind| id width | length type  | inline length
//
// Kind is 00 object instance, 01 resource instance, 10 multiple resource,
// 11 resource with value. The identifier width bit must be 0: only 8-bit
// identifiers are implemented, 16-bit identifiers are rejected with
// ErrIdentifierWidth on encode and ErrMalformedTLV on decode.
//
// The length type selects how the value length is carried:
//
//	00  inline in bits 2-0 (0-7)
//	01  one length byte (0-255)
//	10  two length bytes (0-65535)
//	11  three length bytes (0-16777215)
//
// The encoder always picks the narrowest one.
//
// # Containers
//
// An object instance holds resources (single or multiple); its children are
// always emitted in ascending identifier order so the output is
// deterministic. A multiple resource holds resource instances in the order
// given by the caller.
//
// # Values
//
// The codec does not carry datatypes. Leaf values are raw bytes; the
// String, Integer, Float, Bool and Opaque helpers produce them and the
// Element accessors interpret them with the datatype the caller knows from
// its resource model.
package tlv
