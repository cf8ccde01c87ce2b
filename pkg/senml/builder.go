package senml

import (
	"sync"
	"time"
)

// Builder accumulates records in insertion order. It is safe for
// concurrent use.
type Builder struct {
	mu      sync.Mutex
	records []Record
	now     func() time.Time
}

// NewBuilder creates an empty Builder. A nil now defaults to time.Now.
func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Add appends a record for name. A zero ts means now.
func (b *Builder) Add(name string, value any, ts time.Time) error {
	if ts.IsZero() {
		ts = b.now()
	}
	r, err := newRecord(name, value, EpochSeconds(ts))
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.records = append(b.records, r)
	b.mu.Unlock()
	return nil
}

// AddNumber appends a numeric record.
func (b *Builder) AddNumber(name string, v float64, ts time.Time) {
	_ = b.Add(name, v, ts)
}

// AddString appends a string record.
func (b *Builder) AddString(name, v string, ts time.Time) {
	_ = b.Add(name, v, ts)
}

// AddBool appends a boolean record.
func (b *Builder) AddBool(name string, v bool, ts time.Time) {
	_ = b.Add(name, v, ts)
}

// Len returns the number of records.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Records returns a copy of the records in order.
func (b *Builder) Records() Pack {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append(Pack(nil), b.records...)
}

// Reset drops all records.
func (b *Builder) Reset() {
	b.mu.Lock()
	b.records = nil
	b.mu.Unlock()
}

// Flush returns the records and resets the builder.
func (b *Builder) Flush() Pack {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.records
	b.records = nil
	return out
}
