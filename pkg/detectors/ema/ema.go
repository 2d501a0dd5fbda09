// Package ema implements adaptive anomaly detection over a scalar stream
// using an exponentially decayed center and spread.
//
// The detector keeps two numbers: a center (exponentially weighted moving
// average of the signal) and a spread (exponentially decayed root-mean-square
// deviation from that center). Each new sample is scored by its normalized
// distance from the center, and flagged when the absolute score exceeds the
// configured threshold. The model adapts as the signal drifts, so a level
// shift stops being anomalous once the center catches up.
package ema

import (
	"context"
	"fmt"
	"math"

	"github.com/hed1ad/streamguard/pkg/detectors"
)

// Detector is an online EMA/z-score anomaly detector. It processes one
// sample at a time, in order, without retaining history.
//
// A Detector is not safe for concurrent use: Classify is a read-modify-write
// of the center/spread pair. Track independent series with independent
// instances, or serialize access externally.
type Detector struct {
	alpha     float64
	threshold float64

	center      float64
	spread      float64
	initialized bool
}

// New creates a Detector. alpha is the smoothing factor in (0, 1]: higher
// values weight recent samples more heavily, adapting faster at the cost of
// a noisier baseline. threshold is the non-negative z-score above which a
// sample is flagged: higher values flag fewer anomalies.
//
// Returns detectors.ErrInvalidConfig if either parameter is non-finite or
// out of range.
func New(alpha, threshold float64) (*Detector, error) {
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) || alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("%w: alpha %v must be in (0, 1]", detectors.ErrInvalidConfig, alpha)
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return nil, fmt.Errorf("%w: threshold %v must be finite and non-negative", detectors.ErrInvalidConfig, threshold)
	}

	return &Detector{
		alpha:     alpha,
		threshold: threshold,
	}, nil
}

// Classify consumes the next sample and returns its classification record.
//
// The first valid sample initializes the model (center = value, spread = 0)
// and is never flagged: with no prior variability there is nothing to
// compare against. Non-finite input returns detectors.ErrInvalidSample and
// leaves the model untouched, so one bad sample cannot corrupt the stream.
func (d *Detector) Classify(value float64) (detectors.Result, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return detectors.Result{}, fmt.Errorf("%w: %v", detectors.ErrInvalidSample, value)
	}

	if !d.initialized {
		d.center = value
		d.spread = 0
		d.initialized = true
		return detectors.Result{Value: value, Center: value}, nil
	}

	// The deviation feeding the spread is measured against the updated
	// center, not the previous one. Swapping the order changes the
	// detector's sensitivity.
	d.center = d.alpha*value + (1-d.alpha)*d.center
	dev := value - d.center
	d.spread = math.Sqrt(d.alpha*dev*dev + (1-d.alpha)*d.spread*d.spread)

	// Floor the denominator at 1 when the spread has decayed to exactly
	// zero. A perfectly flat series followed by one outlier is therefore
	// under-flagged; a documented limitation, inherited deliberately.
	denom := d.spread
	if denom <= 0 {
		denom = 1
	}
	score := (value - d.center) / denom

	return detectors.Result{
		Value:     value,
		Score:     score,
		Center:    d.center,
		Spread:    d.spread,
		IsAnomaly: math.Abs(score) > d.threshold,
	}, nil
}

// ClassifyStream consumes samples from input and emits one Result per valid
// sample on output, in input order. Invalid samples are skipped without
// emitting. Returns nil when input closes, or ctx.Err() on cancellation.
func (d *Detector) ClassifyStream(ctx context.Context, input <-chan float64, output chan<- detectors.Result) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case value, ok := <-input:
			if !ok {
				return nil
			}

			res, err := d.Classify(value)
			if err != nil {
				continue
			}

			select {
			case output <- res:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Alpha returns the configured smoothing factor.
func (d *Detector) Alpha() float64 { return d.alpha }

// Threshold returns the configured z-score threshold.
func (d *Detector) Threshold() float64 { return d.threshold }

// Initialized reports whether the model has consumed at least one valid
// sample.
func (d *Detector) Initialized() bool { return d.initialized }
