package model

import (
	"slices"
	"sync/atomic"
)

// Source yields the current value of one resource. A nil value means the
// resource currently has none.
type Source interface {
	Value() any
}

// Static is a value that never changes.
type Static struct {
	v any
}

// StaticValue wraps v as a Source.
func StaticValue(v any) Static { return Static{v: v} }

// Value returns the wrapped value.
func (s Static) Value() any { return s.v }

// Func computes the value on every read, e.g. the current time.
type Func func() any

// Value calls f.
func (f Func) Value() any { return f() }

// Cell holds a value that is replaced as a whole. Set swaps a new snapshot
// in; concurrent readers see either the old or the new value.
type Cell struct {
	p atomic.Pointer[snapshot]
}

type snapshot struct {
	v any
}

// NewCell returns a cell holding initial (nil for "no value yet").
func NewCell(initial any) *Cell {
	c := &Cell{}
	c.Set(initial)
	return c
}

// Value returns the current snapshot.
func (c *Cell) Value() any {
	s := c.p.Load()
	if s == nil {
		return nil
	}
	return s.v
}

// Set replaces the value. Slices are copied so later caller mutations do
// not leak into readers.
func (c *Cell) Set(v any) {
	switch x := v.(type) {
	case []byte:
		v = slices.Clone(x)
	case []any:
		v = slices.Clone(x)
	}
	c.p.Store(&snapshot{v: v})
}
