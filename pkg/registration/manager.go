package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/log"
	"github.com/mikegpl/lwm2m-go/pkg/model"
	"github.com/mikegpl/lwm2m-go/pkg/transport"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// Registration errors.
var (
	ErrRegistrationRejected = errors.New("registration rejected")
	ErrTransportTimeout     = errors.New("transport timeout")
	ErrHandleInvalid        = errors.New("no valid registration handle")
	ErrAlreadyRegistered    = errors.New("already registered")
	ErrClosed               = errors.New("registration manager closed")
)

// Defaults.
const (
	DefaultLifetime          = 60
	DefaultVersion           = "1.2"
	DefaultBinding           = "U"
	DefaultMinUpdateInterval = 10 * time.Second
	DefaultUpdateRetries     = 3
	DefaultRetryInterval     = 5 * time.Second
	DefaultRequestTimeout    = 30 * time.Second
)

// Config configures a Manager.
type Config struct {
	// Endpoint is the client endpoint name (ep).
	Endpoint string

	// Lifetime is the registration lifetime in seconds (lt).
	Lifetime int

	// Version is the announced LwM2M version (lwm2m).
	Version string

	// Binding is the binding mode (b).
	Binding string

	// MinUpdateInterval is the floor of the UPDATE period.
	MinUpdateInterval time.Duration

	// UpdateRetries is how many consecutive UPDATE failures are tolerated
	// before the handle is discarded. Zero discards it on the first failure.
	UpdateRetries int

	// RetryInterval is the delay before retrying a failed UPDATE.
	RetryInterval time.Duration

	// RequestTimeout bounds every exchange.
	RequestTimeout time.Duration

	// Logger for operational messages (optional).
	Logger *slog.Logger

	// ProtocolLogger receives state change events (optional).
	ProtocolLogger log.Logger

	// Now is the clock (defaults to time.Now).
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Lifetime <= 0 {
		c.Lifetime = DefaultLifetime
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Binding == "" {
		c.Binding = DefaultBinding
	}
	if c.MinUpdateInterval <= 0 {
		c.MinUpdateInterval = DefaultMinUpdateInterval
	}
	if c.UpdateRetries < 0 {
		c.UpdateRetries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// LinkSource lists the object instances announced on REGISTER.
// Implemented by model.Registry.
type LinkSource interface {
	ObjectLinks() []model.Path
}

// Manager drives the registration lifecycle over a transport.Client.
type Manager struct {
	client transport.Client
	links  LinkSource
	config Config

	// sem serializes exchanges; one slot.
	sem chan struct{}

	mu       sync.RWMutex
	state    State
	handle   *Handle
	failures int
	closed   bool

	// Update loop of the current handle. loops counts every loop started.
	loopCancel context.CancelFunc
	loops      sync.WaitGroup

	onStateChange func(oldState, newState State)
	onLost        func(err error)
}

// NewManager creates a Manager in StateUnregistered.
func NewManager(client transport.Client, links LinkSource, config Config) *Manager {
	config.applyDefaults()
	return &Manager{
		client: client,
		links:  links,
		config: config,
		sem:    make(chan struct{}, 1),
		state:  StateUnregistered,
	}
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.config
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Handle returns a copy of the current handle.
func (m *Manager) Handle() (Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.handle == nil {
		return Handle{}, false
	}
	return m.handle.clone(), true
}

// IsRegistered returns true while a handle is held.
func (m *Manager) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle != nil
}

// ConsecutiveFailures returns the number of UPDATE failures since the last
// success.
func (m *Manager) ConsecutiveFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures
}

// UpdateInterval returns the UPDATE period: max(MinUpdateInterval,
// lifetime/2).
func (m *Manager) UpdateInterval() time.Duration {
	half := time.Duration(m.config.Lifetime) * time.Second / 2
	return max(m.config.MinUpdateInterval, half)
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnLost sets a callback invoked when the UPDATE budget is exhausted and
// the handle is discarded.
func (m *Manager) OnLost(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLost = fn
}

// Register sends REGISTER and, on success, starts the update loop.
func (m *Manager) Register(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.handle != nil {
		m.mu.Unlock()
		return ErrAlreadyRegistered
	}
	m.mu.Unlock()
	m.transition(StateRegistering, "register")

	cfg := m.config
	req := transport.Request{
		Method:        wire.MethodPost,
		URI:           RegisterPath(cfg.Endpoint, cfg.Lifetime, cfg.Version, cfg.Binding),
		Payload:       LinksPayload(m.links.ObjectLinks()),
		ContentFormat: wire.FormatLinkFormat,
		Accept:        wire.FormatNone,
	}

	resp, err := m.exchange(ctx, req)
	if err == nil && !resp.Success() {
		err = fmt.Errorf("%w: server answered %s", ErrRegistrationRejected, resp.Code)
	}
	if err == nil && len(resp.LocationSegments) == 0 {
		err = fmt.Errorf("%w: %s without location", ErrRegistrationRejected, resp.Code)
	}
	if err != nil {
		m.transition(StateUnregistered, err.Error())
		m.logError(err, "register")
		cfg.Logger.Warn("registration failed", "endpoint", cfg.Endpoint, "error", err)
		return err
	}

	h := &Handle{
		Location:     append([]string(nil), resp.LocationSegments...),
		Lifetime:     cfg.Lifetime,
		Binding:      cfg.Binding,
		RegisteredAt: cfg.Now(),
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.handle = h
	m.failures = 0
	prev := m.loopCancel
	m.loopCancel = nil
	closed := m.closed
	if !closed {
		m.loopCancel = cancel
		m.loops.Add(1)
	}
	m.mu.Unlock()
	if prev != nil {
		prev()
	}

	m.transition(StateRegistered, resp.Code.String())
	cfg.Logger.Info("registered", "endpoint", cfg.Endpoint, "location", h.Path(), "lifetime", cfg.Lifetime)

	if closed {
		cancel()
		return nil
	}
	go m.updateLoop(loopCtx)
	return nil
}

// Update sends an explicit UPDATE. Failures count toward the retry budget.
func (m *Manager) Update(ctx context.Context) error {
	return m.update(ctx)
}

// Deregister stops the update loop and sends DEREGISTER. The handle is
// dropped whatever the outcome; the exchange error, if any, is returned.
func (m *Manager) Deregister(ctx context.Context) error {
	// Interrupts an UPDATE holding the exchange slot.
	m.stopLoop()

	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	// A REGISTER that held the slot may have started a new loop.
	m.stopLoop()

	m.mu.RLock()
	h := m.handle
	m.mu.RUnlock()
	if h == nil {
		return ErrHandleInvalid
	}
	m.transition(StateDeregistering, "deregister")

	resp, err := m.exchange(ctx, transport.Request{
		Method:        wire.MethodDelete,
		URI:           DeregisterPath(h.Location),
		ContentFormat: wire.FormatNone,
		Accept:        wire.FormatNone,
	})
	if err == nil && !resp.Success() {
		err = fmt.Errorf("%w: deregister answered %s", ErrRegistrationRejected, resp.Code)
	}

	m.mu.Lock()
	m.handle = nil
	m.failures = 0
	m.mu.Unlock()

	reason := "deregistered"
	if err != nil {
		reason = err.Error()
		m.logError(err, "deregister")
	}
	m.transition(StateUnregistered, reason)
	m.config.Logger.Info("deregistered", "endpoint", m.config.Endpoint, "location", h.Path(), "error", err)
	return err
}

// Close stops the update loop without deregistering and waits for every
// loop to exit. Later Register calls fail with ErrClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.stopLoop()
	m.loops.Wait()
}

// update runs one UPDATE exchange and applies the retry budget.
func (m *Manager) update(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	m.mu.RLock()
	h := m.handle
	m.mu.RUnlock()
	if h == nil {
		return ErrHandleInvalid
	}
	m.transition(StateUpdating, "update")

	resp, err := m.exchange(ctx, transport.Request{
		Method:        wire.MethodPost,
		URI:           UpdatePath(h.Location, h.Lifetime, h.Binding),
		ContentFormat: wire.FormatNone,
		Accept:        wire.FormatNone,
	})
	if err == nil && !resp.Success() {
		err = fmt.Errorf("%w: update answered %s", ErrRegistrationRejected, resp.Code)
	}

	if err == nil {
		m.mu.Lock()
		m.failures = 0
		if m.handle != nil {
			m.handle.LastUpdate = m.config.Now()
		}
		m.mu.Unlock()
		m.transition(StateRegistered, resp.Code.String())
		return nil
	}

	// Cancellation by Deregister or Close is not a failure.
	if ctx.Err() != nil && !errors.Is(err, ErrTransportTimeout) {
		m.transition(StateRegistered, "update cancelled")
		return err
	}

	m.mu.Lock()
	m.failures++
	failures := m.failures
	exhausted := failures > m.config.UpdateRetries
	var onLost func(error)
	var cancel context.CancelFunc
	if exhausted {
		m.handle = nil
		m.failures = 0
		onLost = m.onLost
		cancel = m.loopCancel
		m.loopCancel = nil
	}
	m.mu.Unlock()

	m.logError(err, "update")
	if !exhausted {
		m.config.Logger.Warn("update failed", "endpoint", m.config.Endpoint, "failures", failures, "error", err)
		m.transition(StateRegistered, err.Error())
		return err
	}

	if cancel != nil {
		cancel()
	}
	m.config.Logger.Warn("registration lost", "endpoint", m.config.Endpoint, "failures", failures, "error", err)
	m.transition(StateUnregistered, "update budget exhausted")
	if onLost != nil {
		onLost(err)
	}
	return err
}

func (m *Manager) updateLoop(ctx context.Context) {
	defer m.loops.Done()

	delay := m.UpdateInterval()
	for {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		err := m.update(ctx)
		if ctx.Err() != nil || !m.IsRegistered() {
			return
		}
		if err != nil {
			delay = m.config.RetryInterval
		} else {
			delay = m.UpdateInterval()
		}
	}
}

// stopLoop cancels the update loop of the current handle.
func (m *Manager) stopLoop() {
	m.mu.Lock()
	cancel := m.loopCancel
	m.loopCancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// exchange performs one request bounded by RequestTimeout. Deadline expiry
// is reported as ErrTransportTimeout.
func (m *Manager) exchange(ctx context.Context, req transport.Request) (transport.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.RequestTimeout)
	defer cancel()

	resp, err := m.client.Do(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return transport.Response{}, fmt.Errorf("%w: %s %s: %v", ErrTransportTimeout, req.Method, req.URI, err)
		}
		return transport.Response{}, fmt.Errorf("%s %s: %w", req.Method, req.URI, err)
	}
	return resp, nil
}

func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	// select picks at random when both are ready.
	if err := ctx.Err(); err != nil {
		m.release()
		return err
	}
	return nil
}

func (m *Manager) release() {
	<-m.sem
}

// transition sets the state and notifies the callback outside the lock.
func (m *Manager) transition(next State, reason string) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	fn := m.onStateChange
	var location string
	if m.handle != nil {
		location = m.handle.Path()
	}
	m.mu.Unlock()

	if prev == next {
		return
	}

	m.config.ProtocolLogger.Log(log.Event{
		Timestamp: m.config.Now(),
		Endpoint:  m.config.Endpoint,
		Layer:     log.LayerRegistration,
		Category:  log.CategoryState,
		Location:  location,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityRegistration,
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
	m.config.Logger.Debug("registration state", "old_state", prev.String(), "new_state", next.String(), "reason", reason)

	if fn != nil {
		fn(prev, next)
	}
}

func (m *Manager) logError(err error, op string) {
	m.config.ProtocolLogger.Log(log.Event{
		Timestamp: m.config.Now(),
		Endpoint:  m.config.Endpoint,
		Layer:     log.LayerRegistration,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerRegistration,
			Message: err.Error(),
			Context: op,
		},
	})
}
