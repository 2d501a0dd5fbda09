// Package pipeline wires a signal source, one detector, and any number of
// sinks into a single consumer loop.
//
// One goroutine owns the detector and pulls from exactly one source, so the
// read-modify-write of the model never races. Consumers that want the
// results get the already-computed records fanned out to their sinks, never
// a handle on the detector itself.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hed1ad/streamguard/pkg/detectors"
	streamio "github.com/hed1ad/streamguard/pkg/io"
)

// Pipeline runs one detector over one source and fans classification
// records out to its sinks, in arrival order, one record per valid sample.
type Pipeline struct {
	detector        detectors.Detector
	source          streamio.Source
	sinks           []streamio.Sink
	continueOnError bool
	log             *logrus.Entry

	samples   atomic.Uint64
	anomalies atomic.Uint64
	invalid   atomic.Uint64
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	// Samples is the number of valid samples classified.
	Samples uint64
	// Anomalies is the number of samples flagged anomalous.
	Anomalies uint64
	// Invalid is the number of samples discarded as invalid.
	Invalid uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSinks adds sinks to fan records out to.
func WithSinks(sinks ...streamio.Sink) Option {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(log *logrus.Logger) Option {
	return func(p *Pipeline) {
		p.log = log.WithField("subsystem", "pipeline")
	}
}

// WithContinueOnError controls what happens when a sample is invalid or a
// sink write fails: log and keep consuming (the default, matching real-time
// stream semantics) or stop and return the error.
func WithContinueOnError(c bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = c
	}
}

// New creates a Pipeline over the given detector and source.
func New(d detectors.Detector, src streamio.Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		detector:        d,
		source:          src,
		continueOnError: true,
		log:             logrus.StandardLogger().WithField("subsystem", "pipeline"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run consumes the source until it is exhausted or ctx is cancelled. Each
// valid sample is classified exactly once and its record written to every
// sink before the next sample is consumed, so sinks observe the stream in
// order with no drops and no batching.
func (p *Pipeline) Run(ctx context.Context) error {
	stream, err := p.source.Stream(ctx)
	if err != nil {
		return fmt.Errorf("open source stream: %w", err)
	}

	var index uint64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case value, ok := <-stream:
			if !ok {
				return nil
			}

			res, err := p.detector.Classify(value)
			if err != nil {
				p.invalid.Add(1)
				if !p.continueOnError {
					return err
				}
				p.log.WithError(err).Warn("sample discarded")
				continue
			}

			rec := streamio.Record{
				Index:     index,
				Timestamp: time.Now().UnixMilli(),
				Value:     res.Value,
				Score:     res.Score,
				Center:    res.Center,
				Spread:    res.Spread,
				IsAnomaly: res.IsAnomaly,
			}
			index++

			p.samples.Add(1)
			if res.IsAnomaly {
				p.anomalies.Add(1)
			}

			for _, sink := range p.sinks {
				if err := sink.Write(rec); err != nil {
					if !p.continueOnError {
						return fmt.Errorf("sink write: %w", err)
					}
					p.log.WithError(err).Warn("sink write failed")
				}
			}
		}
	}
}

// Stats returns a snapshot of the pipeline counters. Safe to call while Run
// is in flight.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Samples:   p.samples.Load(),
		Anomalies: p.anomalies.Load(),
		Invalid:   p.invalid.Load(),
	}
}
