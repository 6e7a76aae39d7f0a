package model

// LoadSnapshot aggregates the power readings of one evaluation cycle.
// All values are in kW. The snapshot is recomputed every cycle and never
// persisted.
type LoadSnapshot struct {
	GenerationKW float64 // total output of renewable generation devices
	StorageKW    float64 // total output of storage devices
	LoadKW       float64 // total draw of load devices
	GatewayKW    float64 // load minus generation, the net import requirement
	// MigrationKW is the instantaneous grid-link flow. Positive means the
	// node is exporting to the grid, negative means importing.
	MigrationKW float64
}
