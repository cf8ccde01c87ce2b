// Package config loads the client configuration from YAML.
//
// A minimal file only names the server:
//
//	server:
//	  address: leshan.example.org:5683
//	endpoint: dev1
//
// Everything else has a default; see Default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mikegpl/lwm2m-go/pkg/model"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full client configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Endpoint     string             `yaml:"endpoint"`
	Registration RegistrationConfig `yaml:"registration"`
	Device       DeviceConfig       `yaml:"device"`
	Sensor       SensorConfig       `yaml:"sensor"`
	Send         SendConfig         `yaml:"send"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig addresses the management server.
type ServerConfig struct {
	// Address is host:port of the server's CoAP endpoint.
	Address string `yaml:"address"`
}

// RegistrationConfig tunes the registration lifecycle.
type RegistrationConfig struct {
	Lifetime          int           `yaml:"lifetime"`
	Version           string        `yaml:"version"`
	Binding           string        `yaml:"binding"`
	UpdateRetries     int           `yaml:"update_retries"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	MinUpdateInterval time.Duration `yaml:"min_update_interval"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// DeviceConfig holds the Device object values.
type DeviceConfig struct {
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
	Serial       string `yaml:"serial"`
	Firmware     string `yaml:"firmware"`
	UTCOffset    string `yaml:"utc_offset"`
	Timezone     string `yaml:"timezone"`
}

// SensorConfig configures the simulated temperature probe.
type SensorConfig struct {
	Min      float64       `yaml:"min"`
	Max      float64       `yaml:"max"`
	Step     float64       `yaml:"step"`
	Default  float64       `yaml:"default"`
	Interval time.Duration `yaml:"interval"`
}

// SendConfig configures periodic SEND of the temperature.
type SendConfig struct {
	// Interval between pushes; zero disables SEND.
	Interval time.Duration `yaml:"interval"`

	// Format is "cbor" or "json".
	Format string `yaml:"format"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// ProtocolFile, when set, receives a CBOR trace of every exchange.
	ProtocolFile string `yaml:"protocol_file"`
}

// Default returns the configuration of the reference client. Endpoint is
// left empty; Load and WithDefaults fill it with a random urn:uuid name.
func Default() Config {
	dev := model.DefaultDeviceInfo()
	return Config{
		Server: ServerConfig{Address: "localhost:5683"},
		Registration: RegistrationConfig{
			Lifetime:          60,
			Version:           "1.2",
			Binding:           "U",
			UpdateRetries:     3,
			RetryInterval:     5 * time.Second,
			MinUpdateInterval: 10 * time.Second,
			RequestTimeout:    30 * time.Second,
		},
		Device: DeviceConfig{
			Manufacturer: dev.Manufacturer,
			Model:        dev.Model,
			Serial:       dev.Serial,
			Firmware:     dev.Firmware,
			UTCOffset:    dev.UTCOffset,
			Timezone:     dev.Timezone,
		},
		Sensor: SensorConfig{
			Min:      20,
			Max:      26,
			Step:     0.3,
			Default:  22,
			Interval: 2 * time.Second,
		},
		Send: SendConfig{Format: "cbor"},
		Log:  LogConfig{Level: "info"},
	}
}

// DefaultEndpoint returns a fresh "urn:uuid:..." endpoint name.
func DefaultEndpoint() string {
	return "urn:uuid:" + uuid.NewString()
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefaults fills derived defaults such as the endpoint name.
func (c Config) WithDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint()
	}
	return c
}

// Validate checks every field.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, _, err := net.SplitHostPort(c.Server.Address); err != nil {
		fail("server.address %q: %v", c.Server.Address, err)
	}
	if c.Endpoint == "" {
		fail("endpoint is empty")
	}
	if strings.ContainsAny(c.Endpoint, "&?/ ") {
		fail("endpoint %q contains reserved characters", c.Endpoint)
	}

	r := c.Registration
	if r.Lifetime <= 0 {
		fail("registration.lifetime must be positive, got %d", r.Lifetime)
	}
	if r.Version == "" {
		fail("registration.version is empty")
	}
	switch r.Binding {
	case "U", "UQ":
	default:
		fail("registration.binding %q is not U or UQ", r.Binding)
	}
	if r.UpdateRetries < 0 {
		fail("registration.update_retries must not be negative")
	}
	if r.RetryInterval <= 0 || r.MinUpdateInterval <= 0 || r.RequestTimeout <= 0 {
		fail("registration intervals and timeout must be positive")
	}

	s := c.Sensor
	if s.Min >= s.Max {
		fail("sensor.min %v must be below sensor.max %v", s.Min, s.Max)
	}
	if s.Step <= 0 {
		fail("sensor.step must be positive")
	}
	if s.Interval <= 0 {
		fail("sensor.interval must be positive")
	}

	if c.Send.Interval < 0 {
		fail("send.interval must not be negative")
	}
	if _, err := c.SendFormat(); err != nil {
		fail("send.format %q: %v", c.Send.Format, err)
	}
	if _, err := c.LogLevel(); err != nil {
		fail("log.level %q: %v", c.Log.Level, err)
	}

	return errors.Join(errs...)
}

// SendFormat returns the SEND content format.
func (c Config) SendFormat() (wire.Format, error) {
	switch strings.ToLower(c.Send.Format) {
	case "", "cbor":
		return wire.FormatSenMLCBOR, nil
	case "json":
		return wire.FormatSenMLJSON, nil
	default:
		return wire.FormatNone, errors.New("want cbor or json")
	}
}

// LogLevel returns the slog level.
func (c Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return lvl, nil
}

// DeviceInfo returns the Device object values, keeping the reference
// power and error readings.
func (c Config) DeviceInfo() model.DeviceInfo {
	info := model.DefaultDeviceInfo()
	d := c.Device
	info.Manufacturer = d.Manufacturer
	info.Model = d.Model
	info.Serial = d.Serial
	info.Firmware = d.Firmware
	info.UTCOffset = d.UTCOffset
	info.Timezone = d.Timezone
	info.SupportedBinding = c.Registration.Binding
	return info
}

// ServerInfo returns the Server object values.
func (c Config) ServerInfo() model.ServerInfo {
	info := model.DefaultServerInfo()
	info.Lifetime = c.Registration.Lifetime
	info.Binding = c.Registration.Binding
	return info
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
