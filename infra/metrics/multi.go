package metrics

import (
	coremetrics "github.com/ylztf/LWI/core/metrics"
	"github.com/ylztf/LWI/core/model"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSnapshot forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordSnapshot(snap model.LoadSnapshot, state model.LoadState) error {
	for _, s := range m.Sinks {
		if err := s.RecordSnapshot(snap, state); err != nil {
			return err
		}
	}
	return nil
}

// RecordMessage forwards message events.
func (m *MultiSink) RecordMessage(direction string, kind model.MessageKind) error {
	for _, s := range m.Sinks {
		if err := s.RecordMessage(direction, kind); err != nil {
			return err
		}
	}
	return nil
}

// RecordSendFailure forwards publish failures.
func (m *MultiSink) RecordSendFailure(kind model.MessageKind) error {
	for _, s := range m.Sinks {
		if err := s.RecordSendFailure(kind); err != nil {
			return err
		}
	}
	return nil
}

// RecordMigration forwards migration events.
func (m *MultiSink) RecordMigration(amountKW float64) error {
	for _, s := range m.Sinks {
		if err := s.RecordMigration(amountKW); err != nil {
			return err
		}
	}
	return nil
}
