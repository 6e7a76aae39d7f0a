package lb

import (
	"context"
	"fmt"
	"time"

	"github.com/ylztf/LWI/core/device"
	"github.com/ylztf/LWI/core/events"
	"github.com/ylztf/LWI/core/logger"
	"github.com/ylztf/LWI/core/metrics"
	"github.com/ylztf/LWI/core/model"
	"github.com/ylztf/LWI/internal/clock"
	"github.com/ylztf/LWI/internal/eventbus"
)

// PeerSender delivers messages to a peer identified by uuid. Sends are best
// effort; a returned error is logged by the agent and never treated as fatal.
type PeerSender interface {
	Send(peerUUID string, msg model.DraftMessage) error
	SendStatus(peerUUID string, report model.StatusReport) error
}

// Agent is the load-balancing agent of one node. All mutable state is owned
// by the Run goroutine; Deliver is the only method other goroutines may call.
type Agent struct {
	cfg      Config
	registry *Registry
	agg      *Aggregator
	devices  *device.Manager
	sender   PeerSender
	log      logger.Logger
	sink     metrics.Sink
	bus      *eventbus.Bus[any]
	clk      clock.Clock

	state  model.LoadState
	demand float64
	inbox  chan model.DraftMessage
}

// New creates an Agent. The metrics sink, event bus and clock may be nil, in
// which case a no-op sink, no bus and the wall clock are used.
func New(cfg Config, devices *device.Manager, sender PeerSender, log logger.Logger,
	sink metrics.Sink, bus *eventbus.Bus[any], clk clock.Clock) (*Agent, error) {
	if devices == nil || sender == nil || log == nil {
		return nil, fmt.Errorf("lb: nil parameter provided to New")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if clk == nil {
		clk = clock.Real{}
	}

	a := &Agent{
		cfg:      cfg,
		registry: NewRegistry(cfg.UUID),
		agg:      NewAggregator(devices, cfg.GridLinkID, log),
		devices:  devices,
		sender:   sender,
		log:      log,
		sink:     sink,
		bus:      bus,
		clk:      clk,
		state:    model.Normal,
		inbox:    make(chan model.DraftMessage, 16),
	}
	for _, p := range cfg.Peers {
		a.registry.Ensure(p)
	}
	return a, nil
}

// State returns the current load classification.
func (a *Agent) State() model.LoadState { return a.state }

// DemandValue returns the magnitude of the current deficit in kW.
func (a *Agent) DemandValue() float64 { return a.demand }

// Registry exposes the peer registry, for inspection only.
func (a *Agent) Registry() *Registry { return a.registry }

// Deliver queues an inbound message for the Run loop. When the loop is
// saturated the message is dropped; the next periodic cycle re-synchronizes
// state.
func (a *Agent) Deliver(msg model.DraftMessage) {
	select {
	case a.inbox <- msg:
	default:
		a.log.Warnf("inbox full, dropping %s from %s", msg.Kind, msg.Source)
	}
}

// Run executes the agent until the context is cancelled. The periodic
// evaluation and inbound message handling are dispatched one at a time from
// this single goroutine. Cancellation is a normal, silent outcome; an
// unexpected timer failure is returned as a hard error because the agent can
// no longer guarantee periodic re-evaluation.
func (a *Agent) Run(ctx context.Context) error {
	ticker := a.clk.NewTicker(a.cfg.Interval())
	defer ticker.Stop()

	a.log.Infof("agent %s managing %d devices, cycle every %s",
		a.cfg.UUID, a.devices.Count(), a.cfg.Interval())
	a.RunCycle()

	for {
		select {
		case <-ctx.Done():
			a.log.Infof("load management schedule cancelled")
			return nil
		case _, ok := <-ticker.C():
			if !ok {
				return fmt.Errorf("lb: periodic timer failed")
			}
			a.RunCycle()
		case msg := <-a.inbox:
			a.Handle(msg)
		}
	}
}

// RunCycle performs one evaluation: aggregate, classify, advertise the
// transition and initiate drafting when in Supply.
func (a *Agent) RunCycle() {
	prev := a.state
	snap := a.agg.Snapshot()
	state, demand := Classify(snap)
	a.state, a.demand = state, demand
	a.registry.Classify(a.cfg.UUID, state)

	a.logLoadTable(snap)
	if err := a.sink.RecordSnapshot(snap, state); err != nil {
		a.log.Errorf("record snapshot: %v", err)
	}

	if state != prev {
		a.publish(events.StateChange{From: prev, To: state, At: time.Now()})
		switch {
		case state == model.Demand:
			a.log.Infof("broadcasting load change: %s -> Demand", prev)
			a.broadcast(model.KindDemand)
		case state == model.Normal && prev == model.Demand:
			a.log.Infof("broadcasting load change: Demand -> Normal")
			a.broadcast(model.KindNormal)
		}
	}
	if state == model.Supply {
		a.sendDraftRequests()
	}
}

// sendDraftRequests advertises willingness to share load. Requests go only to
// peers currently classified Demand; nodes not short of power have nothing to
// draft.
func (a *Agent) sendDraftRequests() {
	if a.state != model.Supply {
		return
	}
	for _, p := range a.registry.InState(model.Demand) {
		if p.UUID == a.cfg.UUID {
			continue
		}
		a.log.Infof("sending draft request to %s", p.UUID)
		a.send(p.UUID, model.DraftMessage{Kind: model.KindRequest, Source: a.cfg.UUID})
		a.publish(events.DraftEvent{Peer: p.UUID, Kind: model.KindRequest, At: time.Now()})
	}
}

// broadcast sends the message kind to every known peer except self.
func (a *Agent) broadcast(kind model.MessageKind) {
	msg := model.DraftMessage{Kind: kind, Source: a.cfg.UUID}
	for _, p := range a.registry.Peers() {
		if p.UUID == a.cfg.UUID {
			continue
		}
		a.send(p.UUID, msg)
	}
}

// send performs one best-effort delivery. Failures are logged and counted,
// never propagated.
func (a *Agent) send(peer string, msg model.DraftMessage) {
	if err := a.sender.Send(peer, msg); err != nil {
		if rerr := a.sink.RecordSendFailure(msg.Kind); rerr != nil {
			a.log.Errorf("record send failure: %v", rerr)
		}
		a.log.Warnf("could not send %s to %s: %v", msg.Kind, peer, err)
		return
	}
	if err := a.sink.RecordMessage("out", msg.Kind); err != nil {
		a.log.Errorf("record message: %v", err)
	}
}

func (a *Agent) publish(e any) {
	if a.bus != nil {
		a.bus.Publish(e)
	}
}

// logLoadTable reports the classification snapshot and the states of every
// known peer.
func (a *Agent) logLoadTable(snap model.LoadSnapshot) {
	a.log.Debugw("load table", map[string]any{
		"generation_kw": snap.GenerationKW,
		"storage_kw":    snap.StorageKW,
		"load_kw":       snap.LoadKW,
		"gateway_kw":    snap.GatewayKW,
		"migration_kw":  snap.MigrationKW,
		"state":         a.state.String(),
		"demand_kw":     a.demand,
	})
	for _, p := range a.registry.Peers() {
		a.log.Debugf("| %-36s %s", p.UUID, a.registry.StateOf(p.UUID))
	}
}
