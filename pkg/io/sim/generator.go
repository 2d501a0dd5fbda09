// Package sim provides a synthetic signal source for exercising detectors:
// a sinusoidal seasonal pattern with Gaussian noise and occasional injected
// anomalies, mimicking a real-world telemetry stream.
package sim

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Generator produces a scalar signal of the form
//
//	base + amplitude*sin(2*pi*t/period) + N(0, noise)
//
// with a configurable chance per sample of an injected anomaly drawn from
// N(anomalyShift, anomalySigma). Deterministic for a fixed seed.
type Generator struct {
	base         float64
	amplitude    float64
	period       float64
	noise        float64
	anomalyRate  float64
	anomalyShift float64
	anomalySigma float64
	interval     time.Duration
	rng          *rand.Rand
	t            int
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed))
	}
}

// WithBase sets the signal's base level.
func WithBase(base float64) Option {
	return func(g *Generator) {
		g.base = base
	}
}

// WithSeasonality sets the amplitude and period of the sinusoidal component.
func WithSeasonality(amplitude, period float64) Option {
	return func(g *Generator) {
		g.amplitude = amplitude
		g.period = period
	}
}

// WithNoise sets the standard deviation of the Gaussian noise term.
func WithNoise(sigma float64) Option {
	return func(g *Generator) {
		g.noise = sigma
	}
}

// WithAnomalyRate sets the per-sample probability of an injected anomaly.
func WithAnomalyRate(rate float64) Option {
	return func(g *Generator) {
		g.anomalyRate = rate
	}
}

// WithAnomalyShift sets the distribution of injected anomalies: each one
// adds N(shift, sigma) to the sample.
func WithAnomalyShift(shift, sigma float64) Option {
	return func(g *Generator) {
		g.anomalyShift = shift
		g.anomalySigma = sigma
	}
}

// WithInterval sets the real-time pacing between streamed samples. Zero
// (the default) streams as fast as the consumer reads.
func WithInterval(d time.Duration) Option {
	return func(g *Generator) {
		g.interval = d
	}
}

// New creates a Generator with the given options. Defaults: base 50,
// seasonality amplitude 10 over period 50, noise sigma 2, 5% anomaly rate
// with shift N(30, 10), no pacing, seed 42.
func New(opts ...Option) *Generator {
	g := &Generator{
		base:         50,
		amplitude:    10,
		period:       50,
		noise:        2,
		anomalyRate:  0.05,
		anomalyShift: 30,
		anomalySigma: 10,
		rng:          rand.New(rand.NewSource(42)),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Next produces the next sample of the signal.
func (g *Generator) Next() float64 {
	seasonality := g.amplitude * math.Sin(2*math.Pi*float64(g.t)/g.period)
	value := g.base + seasonality + g.rng.NormFloat64()*g.noise

	if g.rng.Float64() < g.anomalyRate {
		value += g.anomalyShift + g.rng.NormFloat64()*g.anomalySigma
	}

	g.t++
	return value
}

// Take produces the next n samples.
func (g *Generator) Take(n int) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = g.Next()
	}
	return samples
}

// Stream returns an unbounded channel of samples. The generator must not be
// advanced through Next or Take while a stream is running.
func (g *Generator) Stream(ctx context.Context) (<-chan float64, error) {
	out := make(chan float64, 100)

	go func() {
		defer close(out)

		var tick *time.Ticker
		if g.interval > 0 {
			tick = time.NewTicker(g.interval)
			defer tick.Stop()
		}

		for {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick.C:
				}
			}

			select {
			case out <- g.Next():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close releases resources. The generator holds none; Close exists to
// satisfy the Source contract.
func (g *Generator) Close() error {
	return nil
}
