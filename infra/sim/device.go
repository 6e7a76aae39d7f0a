// Package sim provides in-memory devices standing in for the co-simulation
// link that feeds live power readings in a deployment.
package sim

import (
	"fmt"
	"sync"

	"github.com/ylztf/LWI/core/device"
)

// DeviceConfig describes one simulated device.
type DeviceConfig struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"` // drer, desd, load or grid
	Power float64 `json:"power"`
}

// Device is a settable in-memory device. A device that is turned off reports
// zero power.
type Device struct {
	mu    sync.Mutex
	id    string
	typ   device.Type
	power float64
	on    bool
}

// NewDevice creates a powered-on device at the given level.
func NewDevice(id string, typ device.Type, power float64) *Device {
	return &Device{id: id, typ: typ, power: power, on: true}
}

func (d *Device) ID() string        { return d.id }
func (d *Device) Type() device.Type { return d.typ }

func (d *Device) PowerLevel() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.on {
		return 0, nil
	}
	return d.power, nil
}

func (d *Device) TurnOn() error {
	d.mu.Lock()
	d.on = true
	d.mu.Unlock()
	return nil
}

func (d *Device) TurnOff() error {
	d.mu.Lock()
	d.on = false
	d.mu.Unlock()
	return nil
}

// SetPower commands the device output to the given level.
func (d *Device) SetPower(kw float64) error {
	d.mu.Lock()
	d.power = kw
	d.mu.Unlock()
	return nil
}

// On reports whether the device is powered on.
func (d *Device) On() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

// Build creates a device manager populated from configuration.
func Build(cfgs []DeviceConfig) (*device.Manager, error) {
	mgr := device.NewManager()
	for _, c := range cfgs {
		if c.ID == "" {
			return nil, fmt.Errorf("device without id")
		}
		typ, err := device.ParseType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", c.ID, err)
		}
		mgr.Add(NewDevice(c.ID, typ, c.Power))
	}
	return mgr, nil
}
