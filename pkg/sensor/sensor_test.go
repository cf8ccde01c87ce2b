package sensor

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/model"
)

func sequence(values ...float64) func() float64 {
	i := 0
	return func() float64 {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestRandomWalk(t *testing.T) {
	t.Run("FirstReadingUniform", func(t *testing.T) {
		w := NewRandomWalk(WalkConfig{Rand: sequence(0.5)})
		v, err := w.CurrentValue(context.Background())
		if err != nil {
			t.Fatalf("CurrentValue() error = %v", err)
		}
		if v != 23 {
			t.Errorf("first reading = %v, want 23", v)
		}
	})

	t.Run("StepBounded", func(t *testing.T) {
		// 0.5 -> 23.0, then +0.3, -0.3, +0.0
		w := NewRandomWalk(WalkConfig{Rand: sequence(0.5, 1, 0, 0.5)})
		ctx := context.Background()
		want := []float64{23, 23.3, 23, 23}
		for i, exp := range want {
			got, _ := w.CurrentValue(ctx)
			if math.Abs(got-exp) > 1e-9 {
				t.Errorf("reading %d = %v, want %v", i, got, exp)
			}
		}
	})

	t.Run("Clamped", func(t *testing.T) {
		w := NewRandomWalk(WalkConfig{Rand: sequence(0.999999, 1, 1, 1)})
		ctx := context.Background()
		for range 5 {
			v, _ := w.CurrentValue(ctx)
			if v < DefaultMin || v > DefaultMax {
				t.Fatalf("reading %v outside [%v, %v]", v, DefaultMin, DefaultMax)
			}
		}
		if v, _ := w.CurrentValue(ctx); v != DefaultMax {
			t.Errorf("pinned reading = %v, want %v", v, DefaultMax)
		}
	})

	t.Run("TwoDecimals", func(t *testing.T) {
		w := NewRandomWalk(WalkConfig{})
		ctx := context.Background()
		for range 100 {
			v, _ := w.CurrentValue(ctx)
			if Round2(v) != v {
				t.Fatalf("reading %v has more than two decimals", v)
			}
			if v < DefaultMin || v > DefaultMax {
				t.Fatalf("reading %v outside range", v)
			}
		}
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewRandomWalk(WalkConfig{}).CurrentValue(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestRound2(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{21.374, 21.37},
		{21.375, 21.38},
		{20, 20},
		{-0.005, -0.01},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFallback(t *testing.T) {
	failing := SourceFunc(func(context.Context) (float64, error) {
		return 0, errors.New("probe unplugged")
	})
	working := SourceFunc(func(context.Context) (float64, error) { return 24.1, nil })
	nan := SourceFunc(func(context.Context) (float64, error) { return math.NaN(), nil })

	tests := []struct {
		name   string
		source Source
		want   float64
	}{
		{"Working", working, 24.1},
		{"Failing", failing, 22},
		{"NaN", nan, 22},
		{"Nil", nil, 22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Fallback{Source: tt.source, Default: 22}
			v, err := f.CurrentValue(context.Background())
			if err != nil {
				t.Fatalf("CurrentValue() error = %v", err)
			}
			if v != tt.want {
				t.Errorf("CurrentValue() = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestSampler(t *testing.T) {
	readings := []float64{22, 25, 21, 23}
	var i atomic.Int32
	src := SourceFunc(func(context.Context) (float64, error) {
		n := int(i.Add(1)) - 1
		return readings[n%len(readings)], nil
	})

	value, lo, hi := model.NewCell(nil), model.NewCell(nil), model.NewCell(nil)
	s := NewSampler(SamplerConfig{Source: src, Value: value, Min: lo, Max: hi})

	ctx := context.Background()
	for range readings {
		s.Sample(ctx)
	}

	if got := value.Value(); got != 23.0 {
		t.Errorf("value = %v, want 23", got)
	}
	if got := lo.Value(); got != 21.0 {
		t.Errorf("min = %v, want 21", got)
	}
	if got := hi.Value(); got != 25.0 {
		t.Errorf("max = %v, want 25", got)
	}

	s.Reset()
	s.Sample(ctx) // 22
	if lo.Value() != 22.0 || hi.Value() != 22.0 {
		t.Errorf("after Reset min/max = %v/%v, want 22/22", lo.Value(), hi.Value())
	}
}

func TestSamplerUsesDefault(t *testing.T) {
	failing := SourceFunc(func(context.Context) (float64, error) { return 0, errors.New("timeout") })
	value := model.NewCell(nil)
	s := NewSampler(SamplerConfig{Source: failing, Default: 20.5, Value: value})

	if got := s.Sample(context.Background()); got != 20.5 {
		t.Errorf("Sample() = %v, want 20.5", got)
	}
	if value.Value() != 20.5 {
		t.Errorf("cell = %v", value.Value())
	}
}

func TestSamplerRun(t *testing.T) {
	var n atomic.Int32
	src := SourceFunc(func(context.Context) (float64, error) {
		return float64(n.Add(1)), nil
	})
	value := model.NewCell(nil)
	s := NewSampler(SamplerConfig{Source: src, Value: value, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if n.Load() < 3 {
		t.Errorf("sampled %d times, want at least 3", n.Load())
	}
	if value.Value() == nil {
		t.Error("cell never set")
	}
}
