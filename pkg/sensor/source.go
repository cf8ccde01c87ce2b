package sensor

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Source produces the current sensor reading.
type Source interface {
	CurrentValue(ctx context.Context) (float64, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (float64, error)

// CurrentValue calls f.
func (f SourceFunc) CurrentValue(ctx context.Context) (float64, error) {
	return f(ctx)
}

// Default random walk bounds in degrees Celsius.
const (
	DefaultMin  = 20.0
	DefaultMax  = 26.0
	DefaultStep = 0.3
)

// WalkConfig configures a RandomWalk.
type WalkConfig struct {
	Min  float64
	Max  float64
	Step float64

	// Rand returns values in [0, 1). Defaults to a time-seeded source.
	Rand func() float64
}

// RandomWalk is a simulated source. The first reading is uniform in
// [Min, Max]; every later one moves by at most Step and stays in range.
// Readings are rounded to two decimals.
type RandomWalk struct {
	mu      sync.Mutex
	cfg     WalkConfig
	current float64
	started bool
}

// NewRandomWalk creates a RandomWalk. Zero bounds take the defaults.
func NewRandomWalk(cfg WalkConfig) *RandomWalk {
	if cfg.Min == 0 && cfg.Max == 0 {
		cfg.Min, cfg.Max = DefaultMin, DefaultMax
	}
	if cfg.Max < cfg.Min {
		cfg.Min, cfg.Max = cfg.Max, cfg.Min
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.Rand == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		cfg.Rand = rng.Float64
	}
	return &RandomWalk{cfg: cfg}
}

// CurrentValue advances the walk and returns the new reading.
func (w *RandomWalk) CurrentValue(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		w.current = w.cfg.Min + w.cfg.Rand()*(w.cfg.Max-w.cfg.Min)
		w.started = true
	} else {
		delta := (w.cfg.Rand()*2 - 1) * w.cfg.Step
		w.current = max(w.cfg.Min, min(w.cfg.Max, w.current+delta))
	}
	return Round2(w.current), nil
}

// Round2 rounds v to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Fallback wraps a Source and substitutes Default when it fails.
type Fallback struct {
	Source  Source
	Default float64

	// Logger receives a warning per substituted reading (optional).
	Logger *slog.Logger
}

// CurrentValue returns the wrapped reading, or Default on error. It never
// fails.
func (f Fallback) CurrentValue(ctx context.Context) (float64, error) {
	return f.Read(ctx), nil
}

// Read returns the wrapped reading, or Default on error.
func (f Fallback) Read(ctx context.Context) float64 {
	if f.Source == nil {
		return f.Default
	}
	v, err := f.Source.CurrentValue(ctx)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		if f.Logger != nil {
			f.Logger.Warn("sensor read failed, using default", "default", f.Default, "error", err)
		}
		return f.Default
	}
	return v
}
