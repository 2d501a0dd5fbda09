package sim

import (
	"context"
	"math"
	"testing"

	"github.com/gonum/stat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicUnderSeed(t *testing.T) {
	a := New(WithSeed(7)).Take(500)
	b := New(WithSeed(7)).Take(500)

	assert.Equal(t, a, b)

	c := New(WithSeed(8)).Take(500)
	assert.NotEqual(t, a, c)
}

func TestSignalShape(t *testing.T) {
	g := New(WithSeed(42), WithAnomalyRate(0))
	samples := g.Take(5000)

	mean := stat.Mean(samples, nil)
	assert.InDelta(t, 50.0, mean, 1.0, "seasonality and noise average out around the base level")

	for _, v := range samples {
		assert.False(t, math.IsNaN(v))
		// Base 50, amplitude 10: stays well inside 50 +/- (10 + noise tail).
		assert.Greater(t, v, 20.0)
		assert.Less(t, v, 80.0)
	}
}

func TestAnomalyInjection(t *testing.T) {
	g := New(WithSeed(42), WithNoise(0), WithSeasonality(0, 50), WithAnomalyShift(100, 0))
	samples := g.Take(10000)

	injected := 0
	for _, v := range samples {
		if v > 100 {
			injected++
		}
	}

	// 5% rate over 10k samples.
	assert.InDelta(t, 500, injected, 150)
}

func TestStream(t *testing.T) {
	g := New(WithSeed(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := g.Stream(ctx)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		v, ok := <-stream
		require.True(t, ok)
		assert.False(t, math.IsNaN(v))
	}

	cancel()
	for range stream {
	}
	require.NoError(t, g.Close())
}
