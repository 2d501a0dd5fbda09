// Package detectors provides streaming anomaly detection over scalar signals.
package detectors

import (
	"context"
	"errors"
)

// Detector is the common interface for online anomaly detectors. A detector
// consumes one sample per call, in arrival order, and classifies it against
// its adaptive model. Implementations are not safe for concurrent use from
// multiple goroutines; each independent series needs its own instance.
type Detector interface {
	// Classify consumes the next sample of the stream, updates the model,
	// and returns the classification record for that sample. A sample that
	// fails validation returns ErrInvalidSample and leaves the model
	// untouched.
	Classify(value float64) (Result, error)
}

// StreamDetector extends Detector with channel-based streaming.
type StreamDetector interface {
	Detector

	// ClassifyStream consumes samples from input and emits one Result per
	// valid sample on output, in input order. Invalid samples are skipped.
	// Returns when input closes or ctx is cancelled.
	ClassifyStream(ctx context.Context, input <-chan float64, output chan<- Result) error
}

// Result represents a single classification decision, including the model
// statistics it was based on so the caller can audit or display them.
type Result struct {
	// Value is the sample the decision was made for.
	Value float64
	// Score is the normalized distance of the sample from the model center,
	// in units of spread.
	Score float64
	// Center is the model's level estimate after consuming the sample.
	Center float64
	// Spread is the model's dispersion estimate after consuming the sample.
	Spread float64
	// IsAnomaly indicates whether |Score| exceeded the configured threshold.
	IsAnomaly bool
}

// ErrInvalidConfig is returned by detector constructors when a configuration
// parameter is non-finite or out of range. No detector instance is produced.
var ErrInvalidConfig = errors.New("invalid detector configuration")

// ErrInvalidSample is returned by Classify for non-finite input. The sample
// is discarded and the model state is left unchanged, so the owning loop can
// decide whether to continue or abort the stream.
var ErrInvalidSample = errors.New("invalid sample")
