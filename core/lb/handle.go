package lb

import (
	"strings"
	"time"

	"github.com/ylztf/LWI/core/events"
	"github.com/ylztf/LWI/core/model"
)

// Handle dispatches one inbound protocol message. Messages carrying the
// agent's own uuid as source are a node's broadcasts reflected back by the
// peer list; they never trigger a reply or a registry mutation.
func (a *Agent) Handle(msg model.DraftMessage) {
	if msg.Source == a.cfg.UUID {
		a.log.Debugf("ignoring own %s broadcast", msg.Kind)
		return
	}
	if err := a.sink.RecordMessage("in", msg.Kind); err != nil {
		a.log.Errorf("record message: %v", err)
	}
	if msg.Kind.Valid() && msg.Kind != model.KindPeerList {
		a.registry.Ensure(msg.Source)
	}

	switch msg.Kind {
	case model.KindPeerList:
		a.log.Infof("peer list <%s> received from group leader %s",
			strings.Join(msg.Peers, ","), msg.Source)
		a.registry.Replace(msg.Peers)

	case model.KindDemand:
		a.log.Infof("demand message received from %s", msg.Source)
		a.registry.Classify(msg.Source, model.Demand)

	case model.KindNormal:
		a.log.Infof("normal message received from %s", msg.Source)
		a.registry.Classify(msg.Source, model.Normal)

	case model.KindSupply:
		a.log.Infof("supply message received from %s", msg.Source)
		a.registry.Classify(msg.Source, model.Supply)

	case model.KindRequest:
		a.log.Infof("draft request received from %s", msg.Source)
		// The requester is, by definition, in supply.
		a.registry.Classify(msg.Source, model.Supply)
		reply := model.KindNo
		if a.state == model.Demand {
			reply = model.KindYes
		}
		a.send(msg.Source, model.DraftMessage{Kind: reply, Source: a.cfg.UUID})

	case model.KindYes:
		a.log.Infof("(yes) from %s", msg.Source)
		// Re-verify the local state; it may have changed since the request
		// was issued.
		if a.state == model.Supply {
			a.send(msg.Source, model.DraftMessage{Kind: model.KindDrafting, Source: a.cfg.UUID})
			a.publish(events.DraftEvent{Peer: msg.Source, Kind: model.KindDrafting, At: time.Now()})
		} else {
			a.log.Debugf("no longer in supply, dropping yes from %s", msg.Source)
		}

	case model.KindNo:
		a.log.Infof("(no) from %s", msg.Source)

	case model.KindDrafting:
		a.log.Infof("drafting message received from %s", msg.Source)
		if a.state == model.Demand {
			a.send(msg.Source, model.DraftMessage{
				Kind:   model.KindAccept,
				Source: a.cfg.UUID,
				Value:  a.demand,
			})
			a.publish(events.DraftEvent{Peer: msg.Source, Kind: model.KindAccept, At: time.Now()})
		} else {
			a.log.Warnf("drafting received while %s, dropping", a.state)
		}

	case model.KindAccept:
		if a.state != model.Supply {
			a.log.Warnf("unexpected accept from %s while %s", msg.Source, a.state)
			return
		}
		a.log.Infof("draft accept received from %s with demand of %.3f kW", msg.Source, msg.Value)
		a.publish(events.MigrationStarted{Peer: msg.Source, AmountKW: msg.Value, At: time.Now()})
		a.initiatePowerMigration(msg.Value)

	case model.KindLoad:
		a.log.Infof("current load state requested by %s", msg.Source)
		report := model.StatusReport{Source: a.cfg.UUID, Status: a.state.Status()}
		if err := a.sender.SendStatus(msg.Source, report); err != nil {
			a.log.Warnf("could not send status to %s: %v", msg.Source, err)
		}

	default:
		a.log.Warnf("invalid message kind %q from %s", msg.Kind, msg.Source)
	}
}
