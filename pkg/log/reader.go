package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// Filter specifies criteria for filtering log events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// Endpoint filters by exact endpoint name.
	Endpoint string

	// Direction filters by exchange direction.
	Direction *Direction

	// Layer filters by layer.
	Layer *Layer

	// Category filters by event category.
	Category *Category

	// Method filters exchanges by request method.
	Method *wire.Method

	// FailuresOnly keeps error events and exchanges without a 2.xx reply.
	FailuresOnly bool

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

// Matches returns true if the event matches all filter criteria.
func (f *Filter) Matches(event Event) bool {
	if f.Endpoint != "" && event.Endpoint != f.Endpoint {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Method != nil && (event.Exchange == nil || event.Exchange.Method != *f.Method) {
		return false
	}
	if f.FailuresOnly && !isFailure(event) {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

func isFailure(event Event) bool {
	if event.Error != nil {
		return true
	}
	if event.Exchange != nil {
		return event.Exchange.Code == nil || !event.Exchange.Code.IsSuccess()
	}
	return false
}

// Reader reads protocol log events from a CBOR stream.
// It provides an iterator interface for streaming large files.
type Reader struct {
	closer  io.Closer
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader creates a Reader that reads all events from the specified log file.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader creates a Reader that reads events matching the filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewStreamReader(f, filter)
	r.closer = f
	return r, nil
}

// NewStreamReader creates a Reader over r. Close does not close r.
func NewStreamReader(r io.Reader, filter Filter) *Reader {
	return &Reader{
		decoder: traceDec.NewDecoder(r),
		filter:  filter,
	}
}

// Next returns the next event that matches the filter.
// Returns io.EOF when no more events are available.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
