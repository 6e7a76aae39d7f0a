// Package app assembles the agent from its infrastructure pieces.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ylztf/LWI/config"
	"github.com/ylztf/LWI/core/events"
	"github.com/ylztf/LWI/core/lb"
	coremetrics "github.com/ylztf/LWI/core/metrics"
	coremon "github.com/ylztf/LWI/core/monitoring"
	"github.com/ylztf/LWI/core/statecollect"
	"github.com/ylztf/LWI/infra/logger"
	"github.com/ylztf/LWI/infra/metrics"
	"github.com/ylztf/LWI/infra/monitoring"
	"github.com/ylztf/LWI/infra/mqtt"
	"github.com/ylztf/LWI/infra/sim"
	"github.com/ylztf/LWI/internal/eventbus"
)

// Service orchestrates the load-balancing agent and its transport.
type Service struct {
	Agent     *lb.Agent
	Collector *statecollect.Collector
	client    *mqtt.PahoClient
	bus       *eventbus.Bus[any]
	monitor   coremon.Monitor
	log       logger.Logger

	promEnabled bool
	promAddr    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.Configure(cfg.Logging.Level, cfg.Logging.Pretty)
	logg := logger.New("service")

	monitor, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}

	devices, err := sim.Build(cfg.Devices)
	if err != nil {
		return nil, fmt.Errorf("devices: %w", err)
	}

	client, err := mqtt.NewPahoClient(cfg.MQTT, cfg.Agent.UUID)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxURL != "" {
		sink := metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket, cfg.Agent.UUID)
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New[any]()
	agent, err := lb.New(cfg.Agent, devices, client, logger.New("lb_agent"), sink, bus, nil)
	if err != nil {
		return nil, fmt.Errorf("lb agent: %w", err)
	}

	collector := statecollect.New(logger.New("statecollect"))
	client.OnDraft(agent.Deliver)
	client.OnStatus(collector.HandleReport)

	return &Service{
		Agent:       agent,
		Collector:   collector,
		client:      client,
		bus:         bus,
		monitor:     monitor,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promAddr:    cfg.Metrics.PrometheusAddr,
	}, nil
}

// Run starts the agent and blocks until the context is cancelled or the
// periodic timer fails.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	go s.logEvents(ctx)

	err := s.Agent.Run(ctx)
	if err != nil {
		s.monitor.CaptureException(err, map[string]string{"component": "lb_agent"})
	}
	return err
}

// logEvents mirrors agent events into the log until the context ends.
func (s *Service) logEvents(ctx context.Context) {
	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			switch ev := e.(type) {
			case events.StateChange:
				s.log.Infof("state %s -> %s", ev.From, ev.To)
			case events.DraftEvent:
				s.log.Infof("draft %s with %s", ev.Kind, ev.Peer)
			case events.MigrationStarted:
				s.log.Infof("migrating %.3f kW toward %s", ev.AmountKW, ev.Peer)
			}
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.client.Disconnect()
	s.bus.Close()
	s.Collector.Close()
	s.monitor.Flush(2 * time.Second)
	return nil
}
