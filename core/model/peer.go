package model

import "time"

// PeerNode identifies one other agent in the group. Peers are created when
// first referenced, either by the bootstrap peer list, a coordinator peerList
// message or an inbound protocol message, and retained for the agent's
// lifetime unless dropped by a group-membership replacement.
type PeerNode struct {
	UUID      string
	FirstSeen time.Time
}
