package sensor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/model"
)

// DefaultInterval is the sampling period when none is configured.
const DefaultInterval = 2 * time.Second

// SamplerConfig configures a Sampler.
type SamplerConfig struct {
	// Source is read through a Fallback with Default.
	Source  Source
	Default float64

	// Value receives every reading. Min and Max, when set, track the
	// extremes seen since the last Reset.
	Value *model.Cell
	Min   *model.Cell
	Max   *model.Cell

	Interval time.Duration
	Logger   *slog.Logger
}

// Sampler refreshes registry cells from a Source.
type Sampler struct {
	cfg      SamplerConfig
	fallback Fallback

	mu       sync.Mutex
	min, max float64
	seen     bool
}

// NewSampler creates a Sampler.
func NewSampler(cfg SamplerConfig) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Sampler{
		cfg:      cfg,
		fallback: Fallback{Source: cfg.Source, Default: cfg.Default, Logger: cfg.Logger},
	}
}

// Sample takes one reading, stores it and returns it.
func (s *Sampler) Sample(ctx context.Context) float64 {
	v := s.fallback.Read(ctx)

	s.mu.Lock()
	if !s.seen || v < s.min {
		s.min = v
	}
	if !s.seen || v > s.max {
		s.max = v
	}
	s.seen = true
	lo, hi := s.min, s.max
	s.mu.Unlock()

	if s.cfg.Value != nil {
		s.cfg.Value.Set(v)
	}
	if s.cfg.Min != nil {
		s.cfg.Min.Set(lo)
	}
	if s.cfg.Max != nil {
		s.cfg.Max.Set(hi)
	}

	s.cfg.Logger.Debug("sensor sample", "value", v, "min", lo, "max", hi)
	return v
}

// Reset forgets the recorded extremes. The next sample sets both.
func (s *Sampler) Reset() {
	s.mu.Lock()
	s.seen = false
	s.mu.Unlock()
}

// Run samples immediately and then every Interval until ctx is done.
func (s *Sampler) Run(ctx context.Context) {
	s.Sample(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sample(ctx)
		}
	}
}
