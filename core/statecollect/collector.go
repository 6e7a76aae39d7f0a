// Package statecollect consumes the sc observability channel: status replies
// that peers send in response to load queries.
package statecollect

import (
	"sort"
	"sync"
	"time"

	"github.com/ylztf/LWI/core/logger"
	"github.com/ylztf/LWI/core/model"
	"github.com/ylztf/LWI/internal/eventbus"
)

// Entry is the last reported status of one peer.
type Entry struct {
	UUID     string
	Status   string
	Reported time.Time
}

// Collector accumulates peer status reports. It is safe for concurrent use;
// reports arrive from the transport goroutine while snapshots are read
// elsewhere.
type Collector struct {
	mu      sync.RWMutex
	entries map[string]Entry
	bus     *eventbus.Bus[Entry]
	log     logger.Logger
}

// New creates an empty Collector.
func New(log logger.Logger) *Collector {
	return &Collector{
		entries: make(map[string]Entry),
		bus:     eventbus.New[Entry](),
		log:     log,
	}
}

// HandleReport records one status report.
func (c *Collector) HandleReport(r model.StatusReport) {
	if r.Source == "" {
		c.log.Warnf("status report without source, dropping")
		return
	}
	e := Entry{UUID: r.Source, Status: r.Status, Reported: time.Now()}
	c.mu.Lock()
	c.entries[r.Source] = e
	c.mu.Unlock()
	c.log.Debugf("peer %s reports %s", r.Source, r.Status)
	c.bus.Publish(e)
}

// Snapshot returns the collected entries ordered by uuid.
func (c *Collector) Snapshot() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}

// Updates returns a channel receiving each recorded entry.
func (c *Collector) Updates() <-chan Entry { return c.bus.Subscribe() }

// Close releases the update stream.
func (c *Collector) Close() { c.bus.Close() }
