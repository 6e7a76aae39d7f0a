// Package metrics defines the sink interface the agent records into.
// Implementations live under infra/metrics.
package metrics

import "github.com/ylztf/LWI/core/model"

// Sink records agent activity for observability purposes. Implementations
// must be safe for use from a single goroutine; the agent serializes calls.
type Sink interface {
	// RecordSnapshot records the aggregate readings and resulting
	// classification of one evaluation cycle.
	RecordSnapshot(snap model.LoadSnapshot, state model.LoadState) error
	// RecordMessage counts one protocol message. Direction is "in" or "out".
	RecordMessage(direction string, kind model.MessageKind) error
	// RecordSendFailure counts a failed best-effort send.
	RecordSendFailure(kind model.MessageKind) error
	// RecordMigration records an initiated power migration.
	RecordMigration(amountKW float64) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordSnapshot(model.LoadSnapshot, model.LoadState) error { return nil }
func (NopSink) RecordMessage(string, model.MessageKind) error            { return nil }
func (NopSink) RecordSendFailure(model.MessageKind) error                { return nil }
func (NopSink) RecordMigration(float64) error                            { return nil }
