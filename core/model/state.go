package model

// LoadState classifies a node's position in the microgrid power balance.
type LoadState int

const (
	// Supply means the node generates more than it consumes.
	Supply LoadState = iota
	// Normal means generation and consumption are balanced.
	Normal
	// Demand means the node consumes more than it generates.
	Demand
	// Unknown is used for peers whose state has not been reported yet.
	Unknown
)

// String returns a human-readable representation of the state.
func (s LoadState) String() string {
	switch s {
	case Supply:
		return "Supply"
	case Normal:
		return "Normal"
	case Demand:
		return "Demand"
	default:
		return "Unknown"
	}
}

// Status returns the state tag used on the state-collection channel.
func (s LoadState) Status() string {
	switch s {
	case Supply:
		return "SUPPLY"
	case Normal:
		return "NORMAL"
	case Demand:
		return "DEMAND"
	default:
		return "Unknown"
	}
}
