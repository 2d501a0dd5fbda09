// Package io defines the boundaries of the detection pipeline: sources that
// produce scalar samples and sinks that receive classification records.
package io

import "context"

// Source is the interface for signal sources. A source produces a lazy
// sequence of scalar samples, finite or unbounded, in arrival order.
type Source interface {
	// Stream returns a channel of samples for real-time processing. The
	// channel is closed when the source is exhausted or ctx is cancelled.
	// Sources with real-time semantics are not restartable.
	Stream(ctx context.Context) (<-chan float64, error)

	// Close releases resources.
	Close() error
}

// Sink is the interface for consumers of classification records. Records
// flow one way: a sink never feeds back into the detector.
type Sink interface {
	// Write outputs a single record.
	Write(rec Record) error

	// Close releases resources.
	Close() error
}

// Record is the classification record emitted for every sample: the decision
// plus the model statistics it was based on, and the sample's position in
// the stream.
type Record struct {
	Index     uint64  `json:"index"`
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
	Score     float64 `json:"score"`
	Center    float64 `json:"center"`
	Spread    float64 `json:"spread"`
	IsAnomaly bool    `json:"is_anomaly"`
}
