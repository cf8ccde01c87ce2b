package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost:5683", cfg.Server.Address)
	assert.Empty(t, cfg.Endpoint)
	assert.Equal(t, 60, cfg.Registration.Lifetime)
	assert.Equal(t, "1.2", cfg.Registration.Version)
	assert.Equal(t, "U", cfg.Registration.Binding)
	assert.Equal(t, 3, cfg.Registration.UpdateRetries)
	assert.Equal(t, 10*time.Second, cfg.Registration.MinUpdateInterval)
	assert.Equal(t, "Malaria Corp.", cfg.Device.Manufacturer)
	assert.Equal(t, 20.0, cfg.Sensor.Min)
	assert.Equal(t, 26.0, cfg.Sensor.Max)
	assert.Equal(t, 0.3, cfg.Sensor.Step)
	assert.Zero(t, cfg.Send.Interval)

	// Only the endpoint is missing.
	require.NoError(t, cfg.WithDefaults().Validate())
}

func TestDefaultEndpoint(t *testing.T) {
	ep := DefaultEndpoint()
	require.True(t, strings.HasPrefix(ep, "urn:uuid:"), ep)

	_, err := uuid.Parse(strings.TrimPrefix(ep, "urn:uuid:"))
	assert.NoError(t, err)
	assert.NotEqual(t, ep, DefaultEndpoint())
}

func TestParse(t *testing.T) {
	data := []byte(`
server:
  address: leshan.example.org:5683
endpoint: dev1
registration:
  lifetime: 300
  binding: UQ
  update_retries: 5
  retry_interval: 2s
device:
  serial: SN-42
sensor:
  min: 10
  max: 30
send:
  interval: 1m
  format: json
log:
  level: debug
  protocol_file: /tmp/trace.cbor
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "leshan.example.org:5683", cfg.Server.Address)
	assert.Equal(t, "dev1", cfg.Endpoint)
	assert.Equal(t, 300, cfg.Registration.Lifetime)
	assert.Equal(t, "UQ", cfg.Registration.Binding)
	assert.Equal(t, 5, cfg.Registration.UpdateRetries)
	assert.Equal(t, 2*time.Second, cfg.Registration.RetryInterval)
	assert.Equal(t, 30*time.Second, cfg.Registration.RequestTimeout, "unset keys keep defaults")
	assert.Equal(t, "SN-42", cfg.Device.Serial)
	assert.Equal(t, "Malaria Corp.", cfg.Device.Manufacturer)
	assert.Equal(t, time.Minute, cfg.Send.Interval)
	assert.Equal(t, "/tmp/trace.cbor", cfg.Log.ProtocolFile)

	format, err := cfg.SendFormat()
	require.NoError(t, err)
	assert.Equal(t, wire.FormatSenMLJSON, format)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	assert.Equal(t, "UQ", cfg.DeviceInfo().SupportedBinding)
	assert.Equal(t, []int{5000}, cfg.DeviceInfo().Voltage)
	assert.Equal(t, 300, cfg.ServerInfo().Lifetime)
}

func TestParseEmptyGeneratesEndpoint(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cfg.Endpoint, "urn:uuid:"))
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("endpoint: dev1\nlifetme: 30\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"BadAddress", func(c *Config) { c.Server.Address = "no-port" }, "server.address"},
		{"ReservedEndpoint", func(c *Config) { c.Endpoint = "a&b" }, "endpoint"},
		{"ZeroLifetime", func(c *Config) { c.Registration.Lifetime = 0 }, "registration.lifetime"},
		{"EmptyVersion", func(c *Config) { c.Registration.Version = "" }, "registration.version"},
		{"BadBinding", func(c *Config) { c.Registration.Binding = "T" }, "registration.binding"},
		{"NegativeRetries", func(c *Config) { c.Registration.UpdateRetries = -1 }, "registration.update_retries"},
		{"ZeroTimeout", func(c *Config) { c.Registration.RequestTimeout = 0 }, "timeout"},
		{"InvertedRange", func(c *Config) { c.Sensor.Min, c.Sensor.Max = 30, 10 }, "sensor.min"},
		{"ZeroStep", func(c *Config) { c.Sensor.Step = 0 }, "sensor.step"},
		{"BadSendFormat", func(c *Config) { c.Send.Format = "xml" }, "send.format"},
		{"BadLevel", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Endpoint = "dev1"
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Registration.Lifetime = 0
	cfg.Sensor.Step = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is empty")
	assert.Contains(t, err.Error(), "registration.lifetime")
	assert.Contains(t, err.Error(), "sensor.step")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: dev7\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dev7", cfg.Endpoint)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarshalRoundTrip(t *testing.T) {
	in := Default()
	in.Endpoint = "dev1"
	in.Send.Interval = 30 * time.Second

	data, err := in.Marshal()
	require.NoError(t, err)

	out, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
