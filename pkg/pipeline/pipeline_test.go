package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/streamguard/pkg/detectors"
	"github.com/hed1ad/streamguard/pkg/detectors/ema"
	streamio "github.com/hed1ad/streamguard/pkg/io"
)

// sliceSource replays a fixed series.
type sliceSource struct {
	samples []float64
}

func (s *sliceSource) Stream(ctx context.Context) (<-chan float64, error) {
	out := make(chan float64)
	go func() {
		defer close(out)
		for _, v := range s.samples {
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *sliceSource) Close() error { return nil }

// captureSink records everything written to it.
type captureSink struct {
	records []streamio.Record
}

func (s *captureSink) Write(rec streamio.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *captureSink) Close() error { return nil }

// failingSink always errors.
type failingSink struct{}

func (failingSink) Write(streamio.Record) error { return errors.New("sink broken") }
func (failingSink) Close() error                { return nil }

func newDetector(t *testing.T) *ema.Detector {
	t.Helper()
	d, err := ema.New(0.1, 3)
	require.NoError(t, err)
	return d
}

func TestRunFansOutInOrder(t *testing.T) {
	samples := []float64{50, 50, 50, 50, 100}
	a := &captureSink{}
	b := &captureSink{}

	p := New(newDetector(t), &sliceSource{samples: samples}, WithSinks(a, b))
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, a.records, len(samples), "one record per sample, no drops")
	assert.Equal(t, a.records, b.records, "every sink sees the same stream")

	for i, rec := range a.records {
		assert.Equal(t, uint64(i), rec.Index)
		assert.Equal(t, samples[i], rec.Value)
	}

	assert.True(t, a.records[4].IsAnomaly)

	stats := p.Stats()
	assert.Equal(t, uint64(5), stats.Samples)
	assert.Equal(t, uint64(1), stats.Anomalies)
	assert.Zero(t, stats.Invalid)
}

func TestRunSkipsInvalidSamples(t *testing.T) {
	samples := []float64{50, math.NaN(), 60}
	sink := &captureSink{}

	p := New(newDetector(t), &sliceSource{samples: samples}, WithSinks(sink))
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, sink.records, 2)
	assert.Equal(t, 50.0, sink.records[0].Value)
	assert.Equal(t, 60.0, sink.records[1].Value)

	stats := p.Stats()
	assert.Equal(t, uint64(2), stats.Samples)
	assert.Equal(t, uint64(1), stats.Invalid)
}

func TestRunStopsOnInvalidSample(t *testing.T) {
	samples := []float64{50, math.NaN(), 60}

	p := New(newDetector(t), &sliceSource{samples: samples}, WithContinueOnError(false))
	err := p.Run(context.Background())

	assert.ErrorIs(t, err, detectors.ErrInvalidSample)
	assert.Equal(t, uint64(1), p.Stats().Samples)
}

func TestRunStopsOnSinkError(t *testing.T) {
	p := New(newDetector(t), &sliceSource{samples: []float64{50, 51}},
		WithSinks(failingSink{}), WithContinueOnError(false))

	err := p.Run(context.Background())
	assert.ErrorContains(t, err, "sink broken")
}

func TestRunTolerantOfSinkError(t *testing.T) {
	good := &captureSink{}
	p := New(newDetector(t), &sliceSource{samples: []float64{50, 51}},
		WithSinks(failingSink{}, good))

	require.NoError(t, p.Run(context.Background()))
	assert.Len(t, good.records, 2, "a broken sink must not starve the others")
}

// endlessSource streams zeros until cancelled.
type endlessSource struct{}

func (endlessSource) Stream(ctx context.Context) (<-chan float64, error) {
	out := make(chan float64)
	go func() {
		defer close(out)
		for {
			select {
			case out <- 0:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (endlessSource) Close() error { return nil }

func TestRunCancel(t *testing.T) {
	// Run must return promptly once ctx is cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	p := New(newDetector(t), endlessSource{})

	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		// Either the loop saw the cancellation or the source closed first.
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
		}
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop on cancellation")
	}
}
