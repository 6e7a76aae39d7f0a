// Package clock abstracts periodic timers so the agent's scheduling loop can
// be driven manually in tests.
package clock

import (
	"sync"
	"time"
)

// Ticker delivers periodic ticks until stopped. An implementation whose
// channel closes signals an unrecoverable timer failure.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Real is the wall-clock implementation.
type Real struct{}

func (Real) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Manual is a test clock whose tickers fire only when told to.
type Manual struct {
	mu      sync.Mutex
	tickers []*ManualTicker
	failed  bool
	ready   chan struct{}
}

// NewManual returns a Manual clock.
func NewManual() *Manual { return &Manual{ready: make(chan struct{})} }

func (m *Manual) NewTicker(time.Duration) Ticker {
	m.mu.Lock()
	t := &ManualTicker{ch: make(chan time.Time, 1)}
	if m.failed {
		t.Fail()
	}
	m.tickers = append(m.tickers, t)
	if len(m.tickers) == 1 {
		close(m.ready)
	}
	m.mu.Unlock()
	return t
}

func (m *Manual) snapshot() []*ManualTicker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ManualTicker(nil), m.tickers...)
}

// Tick fires every ticker once, waiting for the first ticker to exist so a
// test cannot tick before the loop under test has started.
func (m *Manual) Tick() {
	<-m.ready
	for _, t := range m.snapshot() {
		t.Tick()
	}
}

// Fail closes every ticker channel, simulating timer failure. Tickers created
// afterwards are born failed.
func (m *Manual) Fail() {
	m.mu.Lock()
	m.failed = true
	ts := append([]*ManualTicker(nil), m.tickers...)
	m.mu.Unlock()
	for _, t := range ts {
		t.Fail()
	}
}

// ManualTicker is a Ticker driven by explicit Tick calls.
type ManualTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
	failed  bool
}

func (t *ManualTicker) C() <-chan time.Time { return t.ch }

func (t *ManualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// Tick delivers one tick. Blocks until the consumer receives it or buffer
// space is available.
func (t *ManualTicker) Tick() {
	t.mu.Lock()
	if t.stopped || t.failed {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.ch <- time.Now()
}

// Fail closes the tick channel.
func (t *ManualTicker) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failed {
		return
	}
	t.failed = true
	close(t.ch)
}

// Stopped reports whether Stop was called.
func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
