package log

import (
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// MaxPayloadCapture is the number of payload bytes kept in an exchange
// event. Longer payloads are truncated.
const MaxPayloadCapture = 256

// Event represents a protocol log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Endpoint is the client endpoint name.
	Endpoint string `cbor:"2,keyasint"`

	// Direction indicates who initiated the exchange.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the server address (host:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Location is the registration location, once known.
	Location string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Exchange    *ExchangeEvent    `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"`
}

// Direction indicates the direction of an exchange.
type Direction uint8

const (
	// DirectionIn is a server-initiated request (read, discover).
	DirectionIn Direction = 0
	// DirectionOut is a client-initiated request (register, update, send).
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which part of the client captured the event.
type Layer uint8

const (
	// LayerTransport is the CoAP layer.
	LayerTransport Layer = 0
	// LayerRegistration is the registration lifecycle manager.
	LayerRegistration Layer = 1
	// LayerService is the device service.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerRegistration:
		return "REGISTRATION"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryExchange indicates a request/response pair.
	CategoryExchange Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryExchange:
		return "EXCHANGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ExchangeEvent captures one CoAP request and its response.
type ExchangeEvent struct {
	// Method of the request.
	Method wire.Method `cbor:"1,keyasint"`

	// URI is the request path including the query.
	URI string `cbor:"2,keyasint"`

	// Code is the response code. Nil when no response arrived.
	Code *wire.Status `cbor:"3,keyasint,omitempty"`

	// ContentFormat of the payload captured below.
	ContentFormat wire.Format `cbor:"4,keyasint"`

	// Accept is the requested format of inbound reads.
	Accept wire.Format `cbor:"5,keyasint"`

	// Size is the full payload size in bytes.
	Size int `cbor:"6,keyasint"`

	// Payload holds up to MaxPayloadCapture bytes.
	Payload []byte `cbor:"7,keyasint,omitempty"`

	// Truncated indicates if Payload was truncated.
	Truncated bool `cbor:"8,keyasint,omitempty"`

	// Duration is the time from request to response.
	// Stored as nanoseconds.
	Duration time.Duration `cbor:"9,keyasint,omitempty"`
}

// CapturePayload stores p into the event, truncating it to
// MaxPayloadCapture bytes.
func (e *ExchangeEvent) CapturePayload(p []byte) {
	e.Size = len(p)
	if len(p) > MaxPayloadCapture {
		p = p[:MaxPayloadCapture]
		e.Truncated = true
	}
	e.Payload = append([]byte(nil), p...)
}

// StateChangeEvent captures registration and connection lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityRegistration indicates a registration state change.
	StateEntityRegistration StateEntity = 0
	// StateEntityConnection indicates a transport state change.
	StateEntityConnection StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityRegistration:
		return "REGISTRATION"
	case StateEntityConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the CoAP response code, if one was involved.
	Code *wire.Status `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
