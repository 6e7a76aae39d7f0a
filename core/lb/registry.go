package lb

import (
	"sort"
	"time"

	"github.com/ylztf/LWI/core/model"
)

// Registry holds every peer known to the agent together with three disjoint
// classification sets, one per load state. Every mutation funnels through
// Classify, which erases a peer from all sets before inserting it into one,
// so a uuid can never appear in two sets at once.
//
// The registry is not safe for concurrent use; the agent loop serializes all
// access.
type Registry struct {
	self string
	all  map[string]model.PeerNode
	sets map[model.LoadState]map[string]struct{}
}

// NewRegistry creates a registry containing only the agent itself,
// classified Normal.
func NewRegistry(self string) *Registry {
	r := &Registry{
		self: self,
		all:  make(map[string]model.PeerNode),
		sets: map[model.LoadState]map[string]struct{}{
			model.Supply: {},
			model.Normal: {},
			model.Demand: {},
		},
	}
	r.Ensure(self)
	return r
}

// Self returns the agent's own uuid.
func (r *Registry) Self() string { return r.self }

// Ensure adds the peer if it is unknown, initialized into the Normal set.
func (r *Registry) Ensure(uuid string) {
	if _, ok := r.all[uuid]; ok {
		return
	}
	r.all[uuid] = model.PeerNode{UUID: uuid, FirstSeen: time.Now()}
	r.sets[model.Normal][uuid] = struct{}{}
}

// Classify moves the peer into the given classification set, adding the peer
// first if it is unknown. Classifying as Unknown removes the peer from every
// set without inserting it anywhere.
func (r *Registry) Classify(uuid string, state model.LoadState) {
	r.Ensure(uuid)
	for _, set := range r.sets {
		delete(set, uuid)
	}
	if set, ok := r.sets[state]; ok {
		set[uuid] = struct{}{}
	}
}

// StateOf returns the classification of the peer, or Unknown if the peer is
// not in any set.
func (r *Registry) StateOf(uuid string) model.LoadState {
	for state, set := range r.sets {
		if _, ok := set[uuid]; ok {
			return state
		}
	}
	return model.Unknown
}

// Known reports whether the uuid has been seen.
func (r *Registry) Known(uuid string) bool {
	_, ok := r.all[uuid]
	return ok
}

// Peers returns every known peer, self included, ordered by uuid.
func (r *Registry) Peers() []model.PeerNode {
	out := make([]model.PeerNode, 0, len(r.all))
	for _, p := range r.all {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}

// InState returns every peer currently in the given classification set,
// ordered by uuid.
func (r *Registry) InState(state model.LoadState) []model.PeerNode {
	set, ok := r.sets[state]
	if !ok {
		return nil
	}
	out := make([]model.PeerNode, 0, len(set))
	for uuid := range set {
		out = append(out, r.all[uuid])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}

// Len returns the number of known peers, self included.
func (r *Registry) Len() int { return len(r.all) }

// Replace swaps the group membership for the enumerated peer set, as
// announced by the group coordinator. Self is preserved with its current
// classification; every other listed peer is (re)initialized into the Normal
// set and peers absent from the list are dropped.
func (r *Registry) Replace(uuids []string) {
	selfState := r.StateOf(r.self)
	selfNode := r.all[r.self]

	r.all = map[string]model.PeerNode{r.self: selfNode}
	for state := range r.sets {
		r.sets[state] = map[string]struct{}{}
	}
	if set, ok := r.sets[selfState]; ok {
		set[r.self] = struct{}{}
	}
	for _, uuid := range uuids {
		if uuid == r.self {
			continue
		}
		r.Ensure(uuid)
	}
}
