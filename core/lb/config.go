package lb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Config defines the agent parameters loaded from configuration.
type Config struct {
	// UUID identifies this agent among its peers. Generated when empty.
	UUID string `json:"uuid"`
	// IntervalSeconds is the period of the re-evaluation cycle.
	IntervalSeconds int `json:"interval_seconds"`
	// GridLinkID names the device whose power level is the grid import/export flow.
	GridLinkID string `json:"grid_link_id"`
	// Peers is the bootstrap peer list used until a coordinator peerList
	// message replaces the group membership.
	Peers []string `json:"peers"`
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 15
	}
	if c.GridLinkID == "" {
		c.GridLinkID = "grid3"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := uuid.Parse(c.UUID); err != nil {
		return fmt.Errorf("agent uuid %q: %w", c.UUID, err)
	}
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be positive")
	}
	for _, p := range c.Peers {
		if _, err := uuid.Parse(p); err != nil {
			return fmt.Errorf("peer uuid %q: %w", p, err)
		}
	}
	return nil
}

// Interval returns the re-evaluation period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
