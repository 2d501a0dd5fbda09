// Package logsink provides a logging sink: anomalies are reported at warn
// level with the full decision basis, normal samples at debug.
package logsink

import (
	"github.com/sirupsen/logrus"

	streamio "github.com/hed1ad/streamguard/pkg/io"
)

// Sink logs every classification record it receives.
type Sink struct {
	log *logrus.Entry
}

// New creates a Sink logging through the given logger. A nil logger falls
// back to the logrus standard logger.
func New(log *logrus.Logger) *Sink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sink{
		log: log.WithField("subsystem", "logsink"),
	}
}

// Write outputs a single record.
func (s *Sink) Write(rec streamio.Record) error {
	entry := s.log.WithFields(logrus.Fields{
		"index":  rec.Index,
		"value":  rec.Value,
		"score":  rec.Score,
		"center": rec.Center,
		"spread": rec.Spread,
	})

	if rec.IsAnomaly {
		entry.Warn("anomaly detected")
	} else {
		entry.Debug("sample classified")
	}

	return nil
}

// Close releases resources. The sink holds none.
func (s *Sink) Close() error {
	return nil
}
