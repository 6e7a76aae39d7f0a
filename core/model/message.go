package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MessageKind enumerates the drafting protocol message types.
type MessageKind string

const (
	KindPeerList MessageKind = "peerList"
	KindDemand   MessageKind = "demand"
	KindNormal   MessageKind = "normal"
	KindSupply   MessageKind = "supply"
	KindRequest  MessageKind = "request"
	KindYes      MessageKind = "yes"
	KindNo       MessageKind = "no"
	KindDrafting MessageKind = "drafting"
	KindAccept   MessageKind = "accept"
	KindLoad     MessageKind = "load"
)

// Valid reports whether the kind is one of the protocol message types.
func (k MessageKind) Valid() bool {
	switch k {
	case KindPeerList, KindDemand, KindNormal, KindSupply, KindRequest,
		KindYes, KindNo, KindDrafting, KindAccept, KindLoad:
		return true
	}
	return false
}

// DraftMessage is the wire unit of the drafting protocol. Messages are
// constructed per send and not retained.
type DraftMessage struct {
	Kind   MessageKind
	Source string   // sender uuid
	Peers  []string // peerList only
	Value  float64  // accept only, the demand amount in kW
}

// MarshalJSON encodes the message in the hierarchical key/value wire shape:
// "lb" carries the kind, "lb.source" the sender, "lb.peers" a comma-separated
// uuid list and "lb.value" a decimal demand amount.
func (m DraftMessage) MarshalJSON() ([]byte, error) {
	raw := map[string]string{
		"lb":        string(m.Kind),
		"lb.source": m.Source,
	}
	if m.Kind == KindPeerList {
		raw["lb.peers"] = strings.Join(m.Peers, ",")
	}
	if m.Kind == KindAccept {
		raw["lb.value"] = strconv.FormatFloat(m.Value, 'f', -1, 64)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes the wire shape produced by MarshalJSON.
func (m *DraftMessage) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, ok := raw["lb"]
	if !ok {
		return fmt.Errorf("message missing lb key")
	}
	m.Kind = MessageKind(kind)
	m.Source = raw["lb.source"]
	m.Peers = nil
	m.Value = 0
	if peers, ok := raw["lb.peers"]; ok && peers != "" {
		m.Peers = strings.Split(peers, ",")
	}
	if val, ok := raw["lb.value"]; ok {
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("parse lb.value %q: %w", val, err)
		}
		m.Value = v
	}
	return nil
}

// StatusReport is the reply to a load query, addressed to the
// state-collection channel rather than the drafting protocol.
type StatusReport struct {
	Source string
	Status string // SUPPLY, DEMAND, NORMAL or Unknown
}

// MarshalJSON encodes the report under the sc namespace.
func (r StatusReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"sc":        "load",
		"sc.source": r.Source,
		"sc.status": r.Status,
	})
}

// UnmarshalJSON decodes an sc namespace report.
func (r *StatusReport) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw["sc"] != "load" {
		return fmt.Errorf("unexpected sc kind %q", raw["sc"])
	}
	r.Source = raw["sc.source"]
	r.Status = raw["sc.status"]
	return nil
}

// IsStatusReport reports whether a raw payload belongs to the
// state-collection namespace rather than the drafting protocol.
func IsStatusReport(data []byte) bool {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return false
	}
	_, ok := raw["sc"]
	return ok
}
