package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/registration"
)

// ErrSupervisorClosed is returned by Start after Close.
var ErrSupervisorClosed = errors.New("supervisor closed")

// State is the supervisor state.
type State uint8

const (
	// StateIdle means Start has not been called.
	StateIdle State = iota

	// StateRegistering means a REGISTER attempt is in progress.
	StateRegistering

	// StateRegistered means the registrar holds a handle.
	StateRegistered

	// StateWaiting means an attempt failed and the next one is scheduled.
	StateWaiting

	// StateClosed means the supervisor has stopped.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRegistering:
		return "REGISTERING"
	case StateRegistered:
		return "REGISTERED"
	case StateWaiting:
		return "WAITING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Registrar is what the supervisor keeps registered.
// Implemented by registration.Manager.
type Registrar interface {
	Register(ctx context.Context) error
	OnLost(fn func(err error))
}

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	// Backoff schedules retries. Defaults to NewBackoff().
	Backoff *Backoff

	// Logger for operational messages (optional).
	Logger *slog.Logger
}

// Supervisor re-registers a Registrar until it succeeds.
type Supervisor struct {
	mu sync.RWMutex

	state     State
	registrar Registrar
	backoff   *Backoff
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Pending attempt signal; one slot.
	trigger chan struct{}
	started bool

	onStateChange func(oldState, newState State)
	onRegistered  func()
	onRetry       func(attempt int, delay time.Duration, err error)
}

// NewSupervisor creates an idle supervisor for r.
func NewSupervisor(r Registrar, cfg SupervisorConfig) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Backoff == nil {
		cfg.Backoff = NewBackoff()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Supervisor{
		state:     StateIdle,
		registrar: r,
		backoff:   cfg.Backoff,
		logger:    cfg.Logger,
		ctx:       ctx,
		cancel:    cancel,
		trigger:   make(chan struct{}, 1),
	}
}

// Start hooks the registrar's loss notification and begins registering in
// the background. Calling Start again has no effect.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSupervisorClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.registrar.OnLost(s.NotifyLost)

	s.wg.Add(1)
	go s.loop()
	s.kick()
	return nil
}

// NotifyLost schedules a new registration. Safe to call from the
// registrar's own goroutines.
func (s *Supervisor) NotifyLost(err error) {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state == StateClosed {
		return
	}
	s.logger.Warn("registration lost, re-registering", "error", err)
	s.kick()
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Attempts returns the number of failed attempts since the last success.
func (s *Supervisor) Attempts() int {
	return s.backoff.Attempts()
}

// Close stops the supervisor and waits for its goroutine.
func (s *Supervisor) Close() {
	if !s.setState(StateClosed) {
		return
	}
	s.cancel()
	s.wg.Wait()
}

// OnStateChange sets a callback for state changes.
func (s *Supervisor) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnRegistered sets a callback for each successful registration.
func (s *Supervisor) OnRegistered(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRegistered = fn
}

// OnRetry sets a callback invoked before each delayed retry.
func (s *Supervisor) OnRetry(fn func(attempt int, delay time.Duration, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRetry = fn
}

func (s *Supervisor) kick() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Supervisor) loop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.trigger:
			s.register()
		}
	}
}

// register attempts REGISTER until it succeeds, the registrar is closed or
// the supervisor stops.
func (s *Supervisor) register() {
	for {
		if !s.setState(StateRegistering) {
			return
		}

		err := s.registrar.Register(s.ctx)
		if err == nil || errors.Is(err, registration.ErrAlreadyRegistered) {
			s.backoff.Reset()
			if !s.setState(StateRegistered) {
				return
			}
			s.mu.RLock()
			fn := s.onRegistered
			s.mu.RUnlock()
			if fn != nil {
				fn()
			}
			return
		}
		if s.ctx.Err() != nil {
			return
		}
		if errors.Is(err, registration.ErrClosed) {
			s.logger.Info("registrar closed, supervisor stopping")
			s.setState(StateClosed)
			s.cancel()
			return
		}

		delay := s.backoff.Next()
		attempt := s.backoff.Attempts()
		if !s.setState(StateWaiting) {
			return
		}
		s.logger.Warn("registration attempt failed", "attempt", attempt, "retry_in", delay, "error", err)

		s.mu.RLock()
		fn := s.onRetry
		s.mu.RUnlock()
		if fn != nil {
			fn(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// setState moves to next unless the supervisor is closed. It reports
// whether the transition happened.
func (s *Supervisor) setState(next State) bool {
	s.mu.Lock()
	prev := s.state
	if prev == StateClosed {
		s.mu.Unlock()
		return false
	}
	s.state = next
	fn := s.onStateChange
	s.mu.Unlock()

	if fn != nil && prev != next {
		fn(prev, next)
	}
	return true
}
