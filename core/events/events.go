// Package events defines the notifications the agent publishes on the event
// bus. Consumers must not block; delivery is best effort.
package events

import (
	"time"

	"github.com/ylztf/LWI/core/model"
)

// StateChange is published when the local load classification transitions.
type StateChange struct {
	From model.LoadState
	To   model.LoadState
	At   time.Time
}

// DraftEvent is published for each step of a drafting negotiation.
type DraftEvent struct {
	Peer string
	Kind model.MessageKind
	At   time.Time
}

// MigrationStarted is published when power migration actuation begins.
type MigrationStarted struct {
	Peer     string
	AmountKW float64
	At       time.Time
}
