package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/config"
	"github.com/mikegpl/lwm2m-go/pkg/connection"
	"github.com/mikegpl/lwm2m-go/pkg/log"
	"github.com/mikegpl/lwm2m-go/pkg/model"
	"github.com/mikegpl/lwm2m-go/pkg/registration"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrNotRegistered  = errors.New("not registered")
	ErrSendRejected   = errors.New("send rejected")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting up.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// SendPath is the LwM2M SEND target.
const SendPath = "/dp"

// DeviceConfig configures a DeviceService.
type DeviceConfig struct {
	// ServerAddress is the management server (host:port).
	ServerAddress string

	// Endpoint is the client endpoint name.
	Endpoint string

	// Registration tuning.
	Lifetime          int
	Version           string
	Binding           string
	UpdateRetries     int
	RetryInterval     time.Duration
	MinUpdateInterval time.Duration
	RequestTimeout    time.Duration

	// Backoff schedules re-registration attempts.
	Backoff connection.BackoffConfig

	// Server and Device object values.
	Server model.ServerInfo
	Device model.DeviceInfo

	// SensorInterval is the temperature sampling period.
	SensorInterval time.Duration

	// SensorDefault replaces failed sensor readings.
	SensorDefault float64

	// SendInterval is the SEND period; zero disables periodic SEND.
	SendInterval time.Duration

	// SendFormat is SenML CBOR or SenML JSON.
	SendFormat wire.Format

	// DeregisterTimeout bounds the DEREGISTER sent by Stop.
	DeregisterTimeout time.Duration

	// Logger is the optional logger for operational output.
	Logger *slog.Logger

	// ProtocolLogger receives a trace of every exchange (optional).
	ProtocolLogger log.Logger

	// Now is the clock (defaults to time.Now).
	Now func() time.Time
}

// DefaultDeviceConfig returns a DeviceConfig with the reference values.
// ServerAddress and Endpoint still need to be set.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Lifetime:          registration.DefaultLifetime,
		Version:           registration.DefaultVersion,
		Binding:           registration.DefaultBinding,
		UpdateRetries:     registration.DefaultUpdateRetries,
		RetryInterval:     registration.DefaultRetryInterval,
		MinUpdateInterval: registration.DefaultMinUpdateInterval,
		RequestTimeout:    registration.DefaultRequestTimeout,
		Backoff:           connection.DefaultBackoffConfig(),
		Server:            model.DefaultServerInfo(),
		Device:            model.DefaultDeviceInfo(),
		SensorInterval:    2 * time.Second,
		SensorDefault:     22,
		SendFormat:        wire.FormatSenMLCBOR,
		DeregisterTimeout: 5 * time.Second,
	}
}

// DeviceConfigFrom maps a loaded configuration file onto a DeviceConfig.
func DeviceConfigFrom(c config.Config) DeviceConfig {
	dc := DefaultDeviceConfig()
	dc.ServerAddress = c.Server.Address
	dc.Endpoint = c.Endpoint
	r := c.Registration
	dc.Lifetime = r.Lifetime
	dc.Version = r.Version
	dc.Binding = r.Binding
	dc.UpdateRetries = r.UpdateRetries
	dc.RetryInterval = r.RetryInterval
	dc.MinUpdateInterval = r.MinUpdateInterval
	dc.RequestTimeout = r.RequestTimeout
	dc.Server = c.ServerInfo()
	dc.Device = c.DeviceInfo()
	dc.SensorInterval = c.Sensor.Interval
	dc.SensorDefault = c.Sensor.Default
	dc.SendInterval = c.Send.Interval
	if f, err := c.SendFormat(); err == nil {
		dc.SendFormat = f
	}
	return dc
}

// Validate checks the configuration.
func (c DeviceConfig) Validate() error {
	switch {
	case c.ServerAddress == "":
		return fmt.Errorf("%w: server address is empty", ErrInvalidConfig)
	case c.Endpoint == "":
		return fmt.Errorf("%w: endpoint is empty", ErrInvalidConfig)
	case c.Lifetime <= 0:
		return fmt.Errorf("%w: lifetime must be positive", ErrInvalidConfig)
	case c.SendInterval < 0:
		return fmt.Errorf("%w: send interval must not be negative", ErrInvalidConfig)
	case c.SendFormat != wire.FormatSenMLCBOR && c.SendFormat != wire.FormatSenMLJSON:
		return fmt.Errorf("%w: send format %s is not SenML", ErrInvalidConfig, c.SendFormat)
	}
	return nil
}

// Event types for service callbacks.
type EventType uint8

const (
	// EventRegistered - REGISTER succeeded.
	EventRegistered EventType = iota

	// EventUpdated - UPDATE succeeded.
	EventUpdated

	// EventRegistrationFailed - a REGISTER attempt failed; a retry is scheduled.
	EventRegistrationFailed

	// EventRegistrationLost - the UPDATE budget ran out and the handle was dropped.
	EventRegistrationLost

	// EventDeregistered - DEREGISTER completed (whatever the server answered).
	EventDeregistered

	// EventSent - a SEND was accepted.
	EventSent

	// EventSendFailed - a SEND failed.
	EventSendFailed
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventRegistered:
		return "REGISTERED"
	case EventUpdated:
		return "UPDATED"
	case EventRegistrationFailed:
		return "REGISTRATION_FAILED"
	case EventRegistrationLost:
		return "REGISTRATION_LOST"
	case EventDeregistered:
		return "DEREGISTERED"
	case EventSent:
		return "SENT"
	case EventSendFailed:
		return "SEND_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event represents a service event.
type Event struct {
	// Type is the event type.
	Type EventType

	// Location is the registration location, e.g. "/rd/5a3f".
	Location string

	// Attempt is the retry number (for EventRegistrationFailed).
	Attempt int

	// RetryIn is the delay until the next attempt (for EventRegistrationFailed).
	RetryIn time.Duration

	// Records is the number of records pushed (for EventSent).
	Records int

	// Error is set if the event is an error.
	Error error
}

// EventHandler handles service events.
type EventHandler func(Event)

// Status is a snapshot of the service.
type Status struct {
	State             ServiceState
	Endpoint          string
	Server            string
	Registration      registration.State
	Supervisor        connection.State
	Location          string
	RegisteredAt      time.Time
	LastUpdate        time.Time
	UpdateFailures    int
	RegisterAttempts  int
	Temperature       any
	TemperatureMinMax [2]any
}
