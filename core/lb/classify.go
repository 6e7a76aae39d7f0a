package lb

import "github.com/ylztf/LWI/core/model"

// Classify maps aggregate readings to a load state and, when demanding, the
// magnitude of the deficit in kW. The base comparison of generation against
// load is corrected by the live grid-link flow so that power already being
// imported or exported is not counted twice.
//
// The function is pure; it reads nothing but the snapshot.
func Classify(snap model.LoadSnapshot) (model.LoadState, float64) {
	gen, load, flow := snap.GenerationKW, snap.LoadKW, snap.MigrationKW

	state := model.Normal
	demand := 0.0
	switch {
	case gen > load:
		state = model.Supply
	case load > gen:
		state = model.Demand
		demand = load - gen
	}

	switch {
	case flow > 0:
		// Already donating power to peers.
		if gen-flow > load {
			state = model.Supply
		} else {
			state = model.Normal
			demand = 0
		}
	case flow < 0:
		// Already receiving power from peers.
		if gen-flow >= load {
			state = model.Normal
			demand = 0
		} else {
			state = model.Demand
			demand = load - gen
		}
	}
	return state, demand
}
