// Package pcap provides a packet-capture-backed signal source: one scalar
// sample per captured packet, so a capture becomes a univariate stream a
// detector can watch for traffic anomalies.
package pcap

import (
	"context"
	"errors"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// Metric selects which scalar is extracted from each packet.
type Metric int

const (
	// MetricPacketSize emits the captured packet length in bytes.
	MetricPacketSize Metric = iota
	// MetricInterArrival emits the time since the previous packet in
	// seconds. The first packet emits 0.
	MetricInterArrival
)

// Reader reads a scalar series from PCAP files or live interfaces.
type Reader struct {
	handle *pcap.Handle
	metric Metric
	isLive bool

	lastTimestamp time.Time
}

// Option configures a Reader.
type Option func(*Reader)

// WithMetric selects the per-packet scalar. Defaults to MetricPacketSize.
func WithMetric(m Metric) Option {
	return func(r *Reader) {
		r.metric = m
	}
}

// NewFileReader creates a reader for PCAP files.
func NewFileReader(filename string, opts ...Option) (*Reader, error) {
	handle, err := pcap.OpenOffline(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		handle: handle,
		isLive: false,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// NewLiveReader creates a reader for live packet capture.
func NewLiveReader(iface string, snaplen int32, promisc bool, timeout time.Duration, opts ...Option) (*Reader, error) {
	handle, err := pcap.OpenLive(iface, snaplen, promisc, timeout)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		handle: handle,
		isLive: true,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Read returns the remaining capture as a scalar series.
func (r *Reader) Read() ([]float64, error) {
	if r.handle == nil {
		return nil, errors.New("reader not initialized")
	}

	var data []float64
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())

	for packet := range packetSource.Packets() {
		data = append(data, r.extract(packet))
	}

	return data, nil
}

// Stream returns a channel of samples for real-time processing.
func (r *Reader) Stream(ctx context.Context) (<-chan float64, error) {
	if r.handle == nil {
		return nil, errors.New("reader not initialized")
	}

	out := make(chan float64, 1000)
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case packet, ok := <-packetSource.Packets():
				if !ok {
					return
				}

				select {
				case out <- r.extract(packet):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.handle != nil {
		r.handle.Close()
	}
	return nil
}

// extract converts a packet to the configured scalar.
func (r *Reader) extract(packet gopacket.Packet) float64 {
	switch r.metric {
	case MetricInterArrival:
		var v float64
		metadata := packet.Metadata()
		if metadata != nil && !metadata.Timestamp.IsZero() {
			if !r.lastTimestamp.IsZero() {
				v = metadata.Timestamp.Sub(r.lastTimestamp).Seconds()
			}
			r.lastTimestamp = metadata.Timestamp
		}
		return v
	default:
		return float64(len(packet.Data()))
	}
}
