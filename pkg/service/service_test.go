package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikegpl/lwm2m-go/pkg/config"
	"github.com/mikegpl/lwm2m-go/pkg/connection"
	"github.com/mikegpl/lwm2m-go/pkg/senml"
	"github.com/mikegpl/lwm2m-go/pkg/sensor"
	"github.com/mikegpl/lwm2m-go/pkg/transport"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

var testNow = time.Unix(1700000000, 0)

// fakeTransport records requests and answers like a registration server.
type fakeTransport struct {
	mu       sync.Mutex
	requests []transport.Request
	respond  func(req transport.Request) (transport.Response, error)
	handler  transport.Handler
	done     chan struct{}
	closed   bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		done: make(chan struct{}),
		respond: func(req transport.Request) (transport.Response, error) {
			switch {
			case strings.HasPrefix(req.URI, "/rd?"):
				return transport.Response{Code: wire.StatusCreated, LocationSegments: []string{"rd", "5a3f"}}, nil
			case req.Method == wire.MethodDelete:
				return transport.Response{Code: wire.StatusDeleted}, nil
			default:
				return transport.Response{Code: wire.StatusChanged}, nil
			}
		},
	}
}

func (f *fakeTransport) Do(ctx context.Context, req transport.Request) (transport.Response, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return transport.Response{}, transport.ErrClosed
	}
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	return respond(req)
}

func (f *fakeTransport) Done() <-chan struct{} { return f.done }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

func (f *fakeTransport) sent(method wire.Method, uri string) []transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []transport.Request
	for _, r := range f.requests {
		if r.Method == method && r.URI == uri {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testDeviceConfig() DeviceConfig {
	cfg := DefaultDeviceConfig()
	cfg.ServerAddress = "127.0.0.1:5683"
	cfg.Endpoint = "dev1"
	cfg.Now = func() time.Time { return testNow }
	cfg.Backoff = connection.BackoffConfig{Initial: 10 * time.Millisecond, Max: 20 * time.Millisecond}
	cfg.SensorInterval = time.Hour
	return cfg
}

var fixedSource = sensor.SourceFunc(func(context.Context) (float64, error) { return 21.5, nil })

// startTestService starts a service on a fake transport and collects events.
func startTestService(t *testing.T, cfg DeviceConfig, fake *fakeTransport) (*DeviceService, <-chan Event) {
	t.Helper()

	svc, err := NewDeviceService(cfg, fixedSource)
	require.NoError(t, err)

	svc.SetDialer(func(c transport.CoAPConfig) (Transport, error) {
		fake.mu.Lock()
		fake.handler = c.Handler
		fake.mu.Unlock()
		return fake, nil
	})

	events := make(chan Event, 64)
	svc.OnEvent(func(e Event) { events <- e })

	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop() })
	return svc, events
}

func waitEvent(t *testing.T, events <-chan Event, typ EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Type == typ {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
			return Event{}
		}
	}
}

func TestNewDeviceServiceValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DeviceConfig)
	}{
		{"NoServer", func(c *DeviceConfig) { c.ServerAddress = "" }},
		{"NoEndpoint", func(c *DeviceConfig) { c.Endpoint = "" }},
		{"ZeroLifetime", func(c *DeviceConfig) { c.Lifetime = 0 }},
		{"TLVSend", func(c *DeviceConfig) { c.SendFormat = wire.FormatTLV }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testDeviceConfig()
			tt.mutate(&cfg)
			_, err := NewDeviceService(cfg, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestStartRegisters(t *testing.T) {
	fake := newFakeTransport()
	svc, events := startTestService(t, testDeviceConfig(), fake)

	e := waitEvent(t, events, EventRegistered)
	assert.Equal(t, "/rd/5a3f", e.Location)
	assert.Equal(t, StateRunning, svc.State())

	reqs := fake.sent(wire.MethodPost, "/rd?ep=dev1&lt=60&lwm2m=1.2&b=U&Q")
	require.Len(t, reqs, 1)
	assert.Equal(t, "</1/1>,</3/0>,</3303/0>", string(reqs[0].Payload))
	assert.Equal(t, wire.FormatLinkFormat, reqs[0].ContentFormat)

	st := svc.Status()
	assert.Equal(t, "/rd/5a3f", st.Location)
	assert.Equal(t, connection.StateRegistered, st.Supervisor)
	assert.Equal(t, 21.5, st.Temperature)
}

func TestInboundReads(t *testing.T) {
	fake := newFakeTransport()
	_, events := startTestService(t, testDeviceConfig(), fake)
	waitEvent(t, events, EventRegistered)

	fake.mu.Lock()
	h := fake.handler
	fake.mu.Unlock()
	require.NotNil(t, h)

	ctx := context.Background()
	reply := h.ServeRead(ctx, "/3/0/0", wire.FormatTextPlain)
	assert.Equal(t, wire.StatusContent, reply.Code)
	assert.Equal(t, "Malaria Corp.", string(reply.Payload))

	reply = h.ServeRead(ctx, "/3303/0/5700", wire.FormatNone)
	assert.Equal(t, wire.StatusContent, reply.Code)
	assert.Equal(t, wire.FormatTextPlain, reply.Format)
	assert.Equal(t, "21.5", string(reply.Payload))

	reply = h.ServeRead(ctx, "/3/0/13", wire.FormatTextPlain)
	assert.Equal(t, "1700000000", string(reply.Payload))

	reply = h.ServeRead(ctx, "/3303/0", wire.FormatLinkFormat)
	assert.Equal(t, wire.StatusContent, reply.Code)
	assert.Contains(t, string(reply.Payload), "</3303/0/5700>")

	reply = h.ServeRead(ctx, "/9/0", wire.FormatNone)
	assert.Equal(t, wire.StatusNotFound, reply.Code)
}

func TestLocalRead(t *testing.T) {
	svc, err := NewDeviceService(testDeviceConfig(), nil)
	require.NoError(t, err)

	res, err := svc.Read("/1/1/1", wire.FormatTextPlain)
	require.NoError(t, err)
	assert.Equal(t, "60", string(res.Payload))

	_, err = svc.Read("/1/x", wire.FormatNone)
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	for _, format := range []wire.Format{wire.FormatSenMLCBOR, wire.FormatSenMLJSON} {
		t.Run(format.String(), func(t *testing.T) {
			cfg := testDeviceConfig()
			cfg.SendFormat = format
			fake := newFakeTransport()
			svc, events := startTestService(t, cfg, fake)
			waitEvent(t, events, EventRegistered)

			require.NoError(t, svc.Send(context.Background()))
			e := waitEvent(t, events, EventSent)
			assert.Equal(t, 1, e.Records)

			reqs := fake.sent(wire.MethodPost, SendPath)
			require.Len(t, reqs, 1)
			assert.Equal(t, format, reqs[0].ContentFormat)

			pack, err := senml.Decode(format, reqs[0].Payload)
			require.NoError(t, err)
			require.Len(t, pack, 1)
			assert.Equal(t, "/3303/0/5700", pack[0].Name)
			assert.Equal(t, senml.KindNumber, pack[0].Kind)
			assert.Equal(t, 21.5, pack[0].Number)
			assert.Equal(t, float64(testNow.Unix()), pack[0].Time)
		})
	}
}

func TestSendRejected(t *testing.T) {
	fake := newFakeTransport()
	base := fake.respond
	fake.respond = func(req transport.Request) (transport.Response, error) {
		if req.URI == SendPath {
			return transport.Response{Code: wire.StatusBadRequest}, nil
		}
		return base(req)
	}
	svc, events := startTestService(t, testDeviceConfig(), fake)
	waitEvent(t, events, EventRegistered)

	err := svc.Send(context.Background())
	assert.ErrorIs(t, err, ErrSendRejected)
	waitEvent(t, events, EventSendFailed)
}

func TestSendRequiresRegistration(t *testing.T) {
	fake := newFakeTransport()
	fake.respond = func(req transport.Request) (transport.Response, error) {
		return transport.Response{Code: wire.StatusForbidden}, nil
	}
	svc, events := startTestService(t, testDeviceConfig(), fake)

	e := waitEvent(t, events, EventRegistrationFailed)
	assert.Error(t, e.Error)
	assert.GreaterOrEqual(t, e.Attempt, 1)

	assert.ErrorIs(t, svc.Send(context.Background()), ErrNotRegistered)
}

func TestRetriesRegistration(t *testing.T) {
	fake := newFakeTransport()
	base := fake.respond
	var mu sync.Mutex
	attempts := 0
	fake.respond = func(req transport.Request) (transport.Response, error) {
		if strings.HasPrefix(req.URI, "/rd?") {
			mu.Lock()
			attempts++
			n := attempts
			mu.Unlock()
			if n < 3 {
				return transport.Response{}, errors.New("host unreachable")
			}
		}
		return base(req)
	}

	_, events := startTestService(t, testDeviceConfig(), fake)
	waitEvent(t, events, EventRegistered)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestPeriodicSend(t *testing.T) {
	cfg := testDeviceConfig()
	cfg.SendInterval = 20 * time.Millisecond
	fake := newFakeTransport()
	_, events := startTestService(t, cfg, fake)

	waitEvent(t, events, EventRegistered)
	waitEvent(t, events, EventSent)
	assert.NotEmpty(t, fake.sent(wire.MethodPost, SendPath))
}

func TestStopDeregisters(t *testing.T) {
	fake := newFakeTransport()
	svc, events := startTestService(t, testDeviceConfig(), fake)
	waitEvent(t, events, EventRegistered)

	require.NoError(t, svc.Stop())
	assert.Equal(t, StateStopped, svc.State())
	assert.Len(t, fake.sent(wire.MethodDelete, "/rd/5a3f"), 1)
	assert.True(t, fake.isClosed())
	waitEvent(t, events, EventDeregistered)

	assert.ErrorIs(t, svc.Stop(), ErrNotStarted)
	assert.ErrorIs(t, svc.Send(context.Background()), ErrNotStarted)
}

func TestLifecycleControls(t *testing.T) {
	fake := newFakeTransport()
	svc, events := startTestService(t, testDeviceConfig(), fake)
	waitEvent(t, events, EventRegistered)

	require.NoError(t, svc.Update(context.Background()))
	waitEvent(t, events, EventUpdated)
	assert.Len(t, fake.sent(wire.MethodPost, "/rd/5a3f?lt=60&b=U"), 1)

	require.NoError(t, svc.Deregister(context.Background()))
	waitEvent(t, events, EventDeregistered)
	assert.Empty(t, svc.Status().Location)

	require.NoError(t, svc.Register(context.Background()))
	waitEvent(t, events, EventRegistered)
}

func TestStartTwice(t *testing.T) {
	fake := newFakeTransport()
	svc, _ := startTestService(t, testDeviceConfig(), fake)
	assert.ErrorIs(t, svc.Start(context.Background()), ErrAlreadyStarted)
}

func TestDialFailure(t *testing.T) {
	svc, err := NewDeviceService(testDeviceConfig(), nil)
	require.NoError(t, err)

	dialErr := errors.New("no route")
	svc.SetDialer(func(transport.CoAPConfig) (Transport, error) { return nil, dialErr })

	assert.ErrorIs(t, svc.Start(context.Background()), dialErr)
	assert.Equal(t, StateIdle, svc.State())
}

func TestDeviceConfigFrom(t *testing.T) {
	c := config.Default()
	c.Endpoint = "dev9"
	c.Server.Address = "srv:5683"
	c.Registration.Lifetime = 120
	c.Send.Interval = time.Minute
	c.Send.Format = "json"
	c.Sensor.Default = 19.5

	dc := DeviceConfigFrom(c)
	assert.Equal(t, "srv:5683", dc.ServerAddress)
	assert.Equal(t, "dev9", dc.Endpoint)
	assert.Equal(t, 120, dc.Lifetime)
	assert.Equal(t, 120, dc.Server.Lifetime)
	assert.Equal(t, time.Minute, dc.SendInterval)
	assert.Equal(t, wire.FormatSenMLJSON, dc.SendFormat)
	assert.Equal(t, 19.5, dc.SensorDefault)
	assert.NoError(t, dc.Validate())
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "REGISTERED", EventRegistered.String())
	assert.Equal(t, "REGISTRATION_LOST", EventRegistrationLost.String())
	assert.Equal(t, "UNKNOWN", EventType(99).String())
	assert.Equal(t, "RUNNING", StateRunning.String())
}
