package metrics

import (
	coremetrics "github.com/ylztf/LWI/core/metrics"
	"github.com/ylztf/LWI/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records agent activity in Prometheus metrics.
type PromSink struct {
	messages     *prometheus.CounterVec
	sendFailures *prometheus.CounterVec
	migrations   prometheus.Counter
	migratedKW   prometheus.Counter
	power        *prometheus.GaugeVec
	state        prometheus.Gauge
}

// NewPromSink registers agent metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using StartPromServer.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lb_messages_total",
		Help: "Total drafting messages handled, by direction and kind",
	}, []string{"direction", "kind"})
	sendFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lb_send_failures_total",
		Help: "Total outbound messages that failed to publish",
	}, []string{"kind"})
	migrations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lb_migrations_total",
		Help: "Total power migrations started",
	})
	migratedKW := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lb_migrated_kw_total",
		Help: "Total power migrated, in kW",
	})
	power := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lb_power_kw",
		Help: "Latest power readings from the local load table",
	}, []string{"reading"})
	state := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lb_load_state",
		Help: "Current load state (0 supply, 1 normal, 2 demand)",
	})

	if err := reg.Register(messages); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			messages = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(sendFailures); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			sendFailures = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(migrations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			migrations = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(migratedKW); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			migratedKW = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(power); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			power = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(state); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			state = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{
		messages:     messages,
		sendFailures: sendFailures,
		migrations:   migrations,
		migratedKW:   migratedKW,
		power:        power,
		state:        state,
	}, nil
}

// RecordSnapshot stores the latest load table readings and state.
func (s *PromSink) RecordSnapshot(snap model.LoadSnapshot, state model.LoadState) error {
	s.power.WithLabelValues("generation").Set(snap.GenerationKW)
	s.power.WithLabelValues("storage").Set(snap.StorageKW)
	s.power.WithLabelValues("load").Set(snap.LoadKW)
	s.power.WithLabelValues("gateway").Set(snap.GatewayKW)
	s.power.WithLabelValues("migration").Set(snap.MigrationKW)
	s.state.Set(float64(state))
	return nil
}

// RecordMessage counts one handled message.
func (s *PromSink) RecordMessage(direction string, kind model.MessageKind) error {
	s.messages.WithLabelValues(direction, string(kind)).Inc()
	return nil
}

// RecordSendFailure counts one failed publish.
func (s *PromSink) RecordSendFailure(kind model.MessageKind) error {
	s.sendFailures.WithLabelValues(string(kind)).Inc()
	return nil
}

// RecordMigration counts one started migration and its size.
func (s *PromSink) RecordMigration(amountKW float64) error {
	s.migrations.Inc()
	s.migratedKW.Add(amountKW)
	return nil
}
