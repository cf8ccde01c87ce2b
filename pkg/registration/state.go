package registration

import "time"

// State is the registration lifecycle state.
type State uint8

const (
	// StateUnregistered means no handle is held.
	StateUnregistered State = iota

	// StateRegistering means a REGISTER is in flight.
	StateRegistering

	// StateRegistered means a handle is held and no exchange is in flight.
	StateRegistered

	// StateUpdating means an UPDATE is in flight.
	StateUpdating

	// StateDeregistering means a DEREGISTER is in flight.
	StateDeregistering
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "UNREGISTERED"
	case StateRegistering:
		return "REGISTERING"
	case StateRegistered:
		return "REGISTERED"
	case StateUpdating:
		return "UPDATING"
	case StateDeregistering:
		return "DEREGISTERING"
	default:
		return "UNKNOWN"
	}
}

// Handle is a live registration.
type Handle struct {
	// Location holds the Location-Path segments assigned by the server.
	Location []string

	// Lifetime is the announced lifetime in seconds.
	Lifetime int

	// Binding is the announced binding mode.
	Binding string

	// RegisteredAt is when the REGISTER succeeded.
	RegisteredAt time.Time

	// LastUpdate is when the last UPDATE succeeded (zero before the first).
	LastUpdate time.Time
}

// Path returns the location as a URI path, e.g. "/rd/5a3f".
func (h Handle) Path() string {
	return DeregisterPath(h.Location)
}

func (h Handle) clone() Handle {
	h.Location = append([]string(nil), h.Location...)
	return h
}
