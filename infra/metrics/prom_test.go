package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ylztf/LWI/core/model"
)

func TestPromSink_RecordMessage(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink, ok := sinkIf.(*PromSink)
	if !ok {
		t.Fatalf("expected PromSink")
	}

	if err := sink.RecordMessage("in", model.KindRequest); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if err := sink.RecordMessage("in", model.KindRequest); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if err := sink.RecordMessage("out", model.KindYes); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP lb_messages_total Total drafting messages handled, by direction and kind
# TYPE lb_messages_total counter
lb_messages_total{direction="in",kind="request"} 2
lb_messages_total{direction="out",kind="yes"} 1
`
	if err := testutil.CollectAndCompare(sink.messages, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestPromSink_RecordSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink := sinkIf.(*PromSink)

	snap := model.LoadSnapshot{GenerationKW: 10, StorageKW: 4, LoadKW: 6, GatewayKW: -4, MigrationKW: 1.5}
	if err := sink.RecordSnapshot(snap, model.Demand); err != nil {
		t.Fatalf("record error: %v", err)
	}

	if v := testutil.ToFloat64(sink.power.WithLabelValues("generation")); v != 10 {
		t.Errorf("generation gauge = %v", v)
	}
	if v := testutil.ToFloat64(sink.power.WithLabelValues("migration")); v != 1.5 {
		t.Errorf("migration gauge = %v", v)
	}
	if v := testutil.ToFloat64(sink.state); v != float64(model.Demand) {
		t.Errorf("state gauge = %v", v)
	}
}

func TestPromSink_RecordMigrationAndFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink := sinkIf.(*PromSink)

	if err := sink.RecordMigration(3.5); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if err := sink.RecordMigration(1); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if err := sink.RecordSendFailure(model.KindAccept); err != nil {
		t.Fatalf("record error: %v", err)
	}

	if v := testutil.ToFloat64(sink.migrations); v != 2 {
		t.Errorf("migrations = %v", v)
	}
	if v := testutil.ToFloat64(sink.migratedKW); v != 4.5 {
		t.Errorf("migrated kw = %v", v)
	}
	if v := testutil.ToFloat64(sink.sendFailures.WithLabelValues(string(model.KindAccept))); v != 1 {
		t.Errorf("send failures = %v", v)
	}
}

func TestPromSink_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("second register should reuse collectors: %v", err)
	}
}
