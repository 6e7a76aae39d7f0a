package lb

import (
	"math"
	"sort"

	"github.com/ylztf/LWI/core/device"
)

// initiatePowerMigration commits the accepted demand amount against local
// storage, draining the device with the highest current output first. The
// grid link is opened so the committed power flows out. Individual device
// failures are skipped; the remaining devices absorb the shortfall.
func (a *Agent) initiatePowerMigration(amountKW float64) {
	a.log.Infof("initiating power migration of %.3f kW", amountKW)
	if err := a.sink.RecordMigration(amountKW); err != nil {
		a.log.Errorf("record migration: %v", err)
	}

	if gl, ok := a.devices.Device(a.cfg.GridLinkID); ok {
		if err := gl.TurnOn(); err != nil {
			a.log.Warnf("grid link %s on: %v", a.cfg.GridLinkID, err)
		}
	} else {
		a.log.Warnf("grid link %s not attached", a.cfg.GridLinkID)
	}

	type entry struct {
		dev   device.Device
		level float64
	}
	var pool []entry
	for _, d := range a.devices.OfType(device.DESD) {
		level, err := d.PowerLevel()
		if err != nil {
			a.log.Warnf("storage %s read failed: %v", d.ID(), err)
			continue
		}
		if level <= 0 {
			continue
		}
		pool = append(pool, entry{dev: d, level: level})
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].level > pool[j].level })

	remaining := amountKW
	for _, e := range pool {
		if remaining <= 0 {
			break
		}
		take := math.Min(e.level, remaining)
		target := e.level - take
		if adj, ok := e.dev.(device.Adjustable); ok {
			if err := adj.SetPower(target); err != nil {
				a.log.Warnf("storage %s set %.3f kW: %v", e.dev.ID(), target, err)
				continue
			}
		} else if target == 0 {
			if err := e.dev.TurnOff(); err != nil {
				a.log.Warnf("storage %s off: %v", e.dev.ID(), err)
				continue
			}
		} else {
			a.log.Debugf("storage %s cannot take a partial draw, skipping", e.dev.ID())
			continue
		}
		remaining -= take
	}
	if remaining > 0 {
		a.log.Warnf("storage exhausted with %.3f kW of demand unmet", remaining)
	}
}
