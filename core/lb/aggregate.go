package lb

import (
	"math"

	"github.com/ylztf/LWI/core/device"
	"github.com/ylztf/LWI/core/logger"
	"github.com/ylztf/LWI/core/model"
)

// Aggregator reads every locally attached device and produces the aggregate
// snapshot the classifier works on.
type Aggregator struct {
	devices    *device.Manager
	gridLinkID string
	log        logger.Logger
}

// NewAggregator creates an Aggregator over the given device manager.
func NewAggregator(devices *device.Manager, gridLinkID string, log logger.Logger) *Aggregator {
	return &Aggregator{devices: devices, gridLinkID: gridLinkID, log: log}
}

// Snapshot sums device power levels by category and reads the grid-link flow.
// A device that fails to read, or disappears between enumeration and read, is
// skipped; a single faulty device never fails the cycle.
func (a *Aggregator) Snapshot() model.LoadSnapshot {
	var snap model.LoadSnapshot
	for _, d := range a.devices.All() {
		if _, ok := a.devices.Device(d.ID()); !ok {
			continue
		}
		level, err := d.PowerLevel()
		if err != nil {
			a.log.Warnf("device %s read failed: %v", d.ID(), err)
			continue
		}
		switch d.Type() {
		case device.DRER:
			snap.GenerationKW += level
		case device.DESD:
			snap.StorageKW += level
		case device.Load:
			snap.LoadKW += level
		}
	}
	snap.GatewayKW = snap.LoadKW - snap.GenerationKW

	if gl, ok := a.devices.Device(a.gridLinkID); ok {
		level, err := gl.PowerLevel()
		if err != nil {
			a.log.Warnf("grid link %s read failed: %v", a.gridLinkID, err)
		} else {
			snap.MigrationKW = truncateFlow(level)
		}
	}
	return snap
}

// truncateFlow rounds near-zero flow readings toward zero at three decimals
// so simulation noise does not flip the classification.
func truncateFlow(v float64) float64 {
	return math.Trunc(v*1000) / 1000
}
