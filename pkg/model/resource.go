package model

import (
	"errors"
	"fmt"
)

// Resource errors.
var (
	ErrNotReadable  = errors.New("resource is not readable")
	ErrNotUpdatable = errors.New("resource value is not updatable")
	ErrValueType    = errors.New("invalid value type for resource")
	ErrNoValue      = fmt.Errorf("%w: resource has no current value", ErrPathNotFound)
)

// Operations is the set of operations a resource supports.
type Operations uint8

const (
	// OpRead allows reading the resource.
	OpRead Operations = 1 << iota

	// OpWrite allows writing the resource.
	OpWrite

	// OpExecute allows executing the resource.
	OpExecute

	// OpReadWrite is read and write.
	OpReadWrite = OpRead | OpWrite
)

// CanRead returns true if reading is allowed.
func (o Operations) CanRead() bool { return o&OpRead != 0 }

// CanWrite returns true if writing is allowed.
func (o Operations) CanWrite() bool { return o&OpWrite != 0 }

// CanExecute returns true if executing is allowed.
func (o Operations) CanExecute() bool { return o&OpExecute != 0 }

// String returns the mask in the LwM2M notation ("R", "RW", "E").
func (o Operations) String() string {
	var s string
	if o.CanRead() {
		s += "R"
	}
	if o.CanWrite() {
		s += "W"
	}
	if o.CanExecute() {
		s += "E"
	}
	if s == "" {
		return "-"
	}
	return s
}

// DataType is the LwM2M datatype of a resource value.
type DataType uint8

const (
	// DataTypeNone is used by executable resources that carry no value.
	DataTypeNone DataType = iota
	DataTypeString
	DataTypeInteger
	DataTypeFloat
	DataTypeBoolean
	DataTypeOpaque
)

// String returns the datatype name.
func (d DataType) String() string {
	names := []string{"none", "string", "integer", "float", "boolean", "opaque"}
	if int(d) < len(names) {
		return names[d]
	}
	return "unknown"
}

// Multiplicity tells whether a resource holds one value or several
// resource instances.
type Multiplicity uint8

const (
	Single Multiplicity = iota
	Multiple
)

// String returns the multiplicity name.
func (m Multiplicity) String() string {
	if m == Multiple {
		return "multiple"
	}
	return "single"
}

// ResourceDefinition describes a resource. Definitions are static for the
// process lifetime.
type ResourceDefinition struct {
	// ID is the resource identifier within its object.
	ID uint16

	// Name is the human-readable resource name.
	Name string

	// Type is the datatype of the value (or of each instance value).
	Type DataType

	// Operations is the supported operation mask.
	Operations Operations

	// Multiplicity tells whether the resource has resource instances.
	Multiplicity Multiplicity

	// Units is the unit of measurement, if any.
	Units string

	// Description is a human-readable description.
	Description string
}

// Readable returns true if the resource supports Read.
func (d *ResourceDefinition) Readable() bool { return d.Operations.CanRead() }

// IsMultiple returns true for multiple-instance resources.
func (d *ResourceDefinition) IsMultiple() bool { return d.Multiplicity == Multiple }

// Validate checks that v fits the definition. Multiple resources take a
// []any whose elements each match Type.
func (d *ResourceDefinition) Validate(v any) error {
	if v == nil {
		return nil
	}
	if d.IsMultiple() {
		values, ok := v.([]any)
		if !ok {
			return fmt.Errorf("%w: %s expects []any, got %T", ErrValueType, d.Name, v)
		}
		for i, item := range values {
			if err := d.validateScalar(item); err != nil {
				return fmt.Errorf("instance %d: %w", i, err)
			}
		}
		return nil
	}
	return d.validateScalar(v)
}

func (d *ResourceDefinition) validateScalar(v any) error {
	ok := false
	switch d.Type {
	case DataTypeString:
		_, ok = v.(string)
	case DataTypeInteger:
		ok = isIntegerType(v)
	case DataTypeFloat:
		ok = isNumericType(v)
	case DataTypeBoolean:
		_, ok = v.(bool)
	case DataTypeOpaque:
		_, ok = v.([]byte)
	case DataTypeNone:
		ok = false
	}
	if !ok {
		return fmt.Errorf("%w: %s expects %s, got %T", ErrValueType, d.Name, d.Type, v)
	}
	return nil
}

func isIntegerType(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func isNumericType(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	default:
		return isIntegerType(v)
	}
}
