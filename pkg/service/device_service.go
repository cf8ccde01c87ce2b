package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/connection"
	"github.com/mikegpl/lwm2m-go/pkg/content"
	"github.com/mikegpl/lwm2m-go/pkg/log"
	"github.com/mikegpl/lwm2m-go/pkg/model"
	"github.com/mikegpl/lwm2m-go/pkg/registration"
	"github.com/mikegpl/lwm2m-go/pkg/senml"
	"github.com/mikegpl/lwm2m-go/pkg/sensor"
	"github.com/mikegpl/lwm2m-go/pkg/transport"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// temperaturePath is the resource pushed by SEND.
var temperaturePath = model.ResourcePath(model.ObjectTemperature, 0, model.TemperatureValue)

// DeviceService orchestrates an LwM2M client device.
type DeviceService struct {
	mu sync.RWMutex

	config DeviceConfig
	state  ServiceState

	// Object model and inbound reads
	registry   *model.Registry
	negotiator *content.Negotiator

	// Temperature cells fed by the sampler
	tempValue *model.Cell
	tempMin   *model.Cell
	tempMax   *model.Cell
	sampler   *sensor.Sampler

	// CoAP session
	dial      Dialer
	transport Transport

	// Registration
	manager    *registration.Manager
	supervisor *connection.Supervisor

	// Event handlers
	eventHandlers []EventHandler

	// Logger for operational output (never nil)
	logger *slog.Logger

	// Protocol logger for structured event capture (never nil)
	protocolLogger log.Logger

	// Context for background goroutines
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeviceService creates a device service reading temperature from
// source. A nil source leaves the temperature at SensorDefault.
func NewDeviceService(config DeviceConfig, source sensor.Source) (*DeviceService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = registration.DefaultRequestTimeout
	}
	if config.DeregisterTimeout <= 0 {
		config.DeregisterTimeout = 5 * time.Second
	}

	svc := &DeviceService{
		config:         config,
		state:          StateIdle,
		tempValue:      model.NewCell(nil),
		tempMin:        model.NewCell(nil),
		tempMax:        model.NewCell(nil),
		dial:           DialCoAP,
		logger:         config.Logger,
		protocolLogger: log.OrNoop(config.ProtocolLogger),
	}

	registry, err := model.NewStandardRegistry(model.StandardConfig{
		Server: config.Server,
		Device: config.Device,
		Temperature: model.TemperatureSources{
			Value: svc.tempValue,
			Min:   svc.tempMin,
			Max:   svc.tempMax,
		},
		Now: config.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("build object registry: %w", err)
	}
	svc.registry = registry
	svc.negotiator = content.NewNegotiator(registry, config.Logger.With("component", "content"))

	svc.sampler = sensor.NewSampler(sensor.SamplerConfig{
		Source:   source,
		Default:  config.SensorDefault,
		Value:    svc.tempValue,
		Min:      svc.tempMin,
		Max:      svc.tempMax,
		Interval: config.SensorInterval,
		Logger:   config.Logger.With("component", "sensor"),
	})

	return svc, nil
}

// SetDialer replaces the CoAP dialer. Must be called before Start.
func (s *DeviceService) SetDialer(d Dialer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dial = d
}

// Registry returns the object registry.
func (s *DeviceService) Registry() *model.Registry {
	return s.registry
}

// Negotiator returns the read handler.
func (s *DeviceService) Negotiator() *content.Negotiator {
	return s.negotiator
}

// State returns the current service state.
func (s *DeviceService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnEvent registers an event handler.
func (s *DeviceService) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventHandlers = append(s.eventHandlers, handler)
}

// Start opens the CoAP session and begins registering in the background.
// It returns once the session is open; registration progress is reported
// through events.
func (s *DeviceService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	dial := s.dial
	s.mu.Unlock()

	cfg := s.config

	// The first reading lands before the server can ask for it.
	s.sampler.Sample(ctx)

	t, err := dial(transport.CoAPConfig{
		Address:        cfg.ServerAddress,
		Handler:        s.negotiator,
		Endpoint:       cfg.Endpoint,
		Logger:         s.logger.With("component", "transport"),
		ProtocolLogger: s.protocolLogger,
	})
	if err != nil {
		s.setState(StateIdle)
		return fmt.Errorf("open coap session: %w", err)
	}

	manager := registration.NewManager(t, s.registry, registration.Config{
		Endpoint:          cfg.Endpoint,
		Lifetime:          cfg.Lifetime,
		Version:           cfg.Version,
		Binding:           cfg.Binding,
		MinUpdateInterval: cfg.MinUpdateInterval,
		UpdateRetries:     cfg.UpdateRetries,
		RetryInterval:     cfg.RetryInterval,
		RequestTimeout:    cfg.RequestTimeout,
		Logger:            s.logger.With("component", "registration"),
		ProtocolLogger:    s.protocolLogger,
		Now:               cfg.Now,
	})
	manager.OnStateChange(s.onRegistrationState)

	supervisor := connection.NewSupervisor(manager, connection.SupervisorConfig{
		Backoff: connection.NewBackoffWithConfig(cfg.Backoff),
		Logger:  s.logger.With("component", "supervisor"),
	})
	supervisor.OnRetry(func(attempt int, delay time.Duration, err error) {
		s.emitEvent(Event{Type: EventRegistrationFailed, Attempt: attempt, RetryIn: delay, Error: err})
	})

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.transport = t
	s.manager = manager
	s.supervisor = supervisor
	bg := s.ctx
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sampler.Run(bg)
	}()

	if cfg.SendInterval > 0 {
		s.wg.Add(1)
		go s.sendLoop(bg, cfg.SendInterval)
	}

	if err := supervisor.Start(); err != nil {
		_ = s.teardown()
		s.setState(StateIdle)
		return err
	}

	s.setState(StateRunning)
	s.logger.Info("device service started", "endpoint", cfg.Endpoint, "server", cfg.ServerAddress)
	return nil
}

// Stop deregisters (best effort) and closes the session.
func (s *DeviceService) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	s.mu.Unlock()

	s.supervisor.Close()

	if s.manager.IsRegistered() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.DeregisterTimeout)
		if err := s.manager.Deregister(ctx); err != nil {
			s.logger.Warn("deregister on stop failed", "error", err)
		}
		cancel()
	}

	err := s.teardown()
	s.setState(StateStopped)
	s.logger.Info("device service stopped", "endpoint", s.config.Endpoint)
	return err
}

// teardown stops background work and closes the session.
func (s *DeviceService) teardown() error {
	s.mu.Lock()
	cancel := s.cancel
	supervisor := s.supervisor
	manager := s.manager
	t := s.transport
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if supervisor != nil {
		supervisor.Close()
	}
	if manager != nil {
		manager.Close()
	}
	s.wg.Wait()
	if t != nil {
		return t.Close()
	}
	return nil
}

// Register sends REGISTER now, outside the supervisor's schedule.
func (s *DeviceService) Register(ctx context.Context) error {
	m, err := s.activeManager()
	if err != nil {
		return err
	}
	return m.Register(ctx)
}

// Update sends UPDATE now.
func (s *DeviceService) Update(ctx context.Context) error {
	m, err := s.activeManager()
	if err != nil {
		return err
	}
	return m.Update(ctx)
}

// Deregister sends DEREGISTER. The supervisor does not re-register until
// Register is called or the service restarts.
func (s *DeviceService) Deregister(ctx context.Context) error {
	m, err := s.activeManager()
	if err != nil {
		return err
	}
	return m.Deregister(ctx)
}

// Read serves a local read as the server would see it.
func (s *DeviceService) Read(path string, accept wire.Format) (content.Result, error) {
	p, err := s.registry.Resolve(path)
	if err != nil {
		return content.Result{}, err
	}
	return s.negotiator.Negotiate(p, accept)
}

// SetTemperature overrides the current temperature until the next sample.
func (s *DeviceService) SetTemperature(v float64) {
	s.tempValue.Set(v)
}

// Send pushes the current temperature to the server as SenML.
func (s *DeviceService) Send(ctx context.Context) error {
	m, err := s.activeManager()
	if err != nil {
		return err
	}
	if !m.IsRegistered() {
		return ErrNotRegistered
	}

	v, err := s.registry.ValueAt(temperaturePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", temperaturePath, err)
	}

	b := senml.NewBuilder(s.config.Now)
	if err := b.Add(temperaturePath.String(), v, time.Time{}); err != nil {
		return err
	}
	pack := b.Records()
	payload, err := pack.Encode(s.config.SendFormat)
	if err != nil {
		return err
	}

	s.mu.RLock()
	t := s.transport
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()
	resp, err := t.Do(ctx, transport.Request{
		Method:        wire.MethodPost,
		URI:           SendPath,
		Payload:       payload,
		ContentFormat: s.config.SendFormat,
		Accept:        wire.FormatNone,
	})
	if err == nil && !resp.Success() {
		err = fmt.Errorf("%w: server answered %s", ErrSendRejected, resp.Code)
	}
	if err != nil {
		s.emitEvent(Event{Type: EventSendFailed, Error: err})
		return err
	}

	s.emitEvent(Event{Type: EventSent, Records: len(pack)})
	return nil
}

// Status returns a snapshot of the service.
func (s *DeviceService) Status() Status {
	s.mu.RLock()
	st := Status{
		State:    s.state,
		Endpoint: s.config.Endpoint,
		Server:   s.config.ServerAddress,
	}
	m := s.manager
	sup := s.supervisor
	s.mu.RUnlock()

	if m != nil {
		st.Registration = m.State()
		st.UpdateFailures = m.ConsecutiveFailures()
		if h, ok := m.Handle(); ok {
			st.Location = h.Path()
			st.RegisteredAt = h.RegisteredAt
			st.LastUpdate = h.LastUpdate
		}
	}
	if sup != nil {
		st.Supervisor = sup.State()
		st.RegisterAttempts = sup.Attempts()
	}
	st.Temperature = s.tempValue.Value()
	st.TemperatureMinMax = [2]any{s.tempMin.Value(), s.tempMax.Value()}
	return st
}

func (s *DeviceService) sendLoop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.Send(ctx)
			if err != nil && !errors.Is(err, ErrNotRegistered) && !errors.Is(err, ErrNotStarted) && ctx.Err() == nil {
				s.logger.Warn("send failed", "error", err)
			}
		}
	}
}

// onRegistrationState maps registration transitions to service events.
func (s *DeviceService) onRegistrationState(oldState, newState registration.State) {
	s.mu.RLock()
	m := s.manager
	s.mu.RUnlock()

	location := ""
	if m != nil {
		if h, ok := m.Handle(); ok {
			location = h.Path()
		}
	}

	switch {
	case oldState == registration.StateRegistering && newState == registration.StateRegistered:
		s.emitEvent(Event{Type: EventRegistered, Location: location})
	case oldState == registration.StateUpdating && newState == registration.StateRegistered:
		if m != nil && m.ConsecutiveFailures() == 0 {
			s.emitEvent(Event{Type: EventUpdated, Location: location})
		}
	case oldState == registration.StateUpdating && newState == registration.StateUnregistered:
		s.emitEvent(Event{Type: EventRegistrationLost})
	case oldState == registration.StateDeregistering:
		s.emitEvent(Event{Type: EventDeregistered})
	}
}

func (s *DeviceService) activeManager() (*registration.Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateRunning || s.manager == nil {
		return nil, ErrNotStarted
	}
	return s.manager, nil
}

func (s *DeviceService) setState(state ServiceState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// emitEvent emits an event to all registered handlers.
func (s *DeviceService) emitEvent(event Event) {
	s.mu.RLock()
	handlers := append([]EventHandler(nil), s.eventHandlers...)
	s.mu.RUnlock()

	s.logger.Debug("service event", "type", event.Type.String(), "location", event.Location, "error", event.Error)
	for _, handler := range handlers {
		go handler(event)
	}
}
