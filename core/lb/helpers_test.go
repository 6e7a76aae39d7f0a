package lb

import (
	"errors"
	"sync"
	"testing"

	"github.com/ylztf/LWI/core/device"
	"github.com/ylztf/LWI/core/model"
	"github.com/ylztf/LWI/infra/logger"
)

type sentMsg struct {
	peer string
	msg  model.DraftMessage
}

type sentStatus struct {
	peer   string
	report model.StatusReport
}

// fakeSender records outgoing messages and optionally routes them
// synchronously into another agent, emulating the transport.
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMsg
	statuses []sentStatus
	route    map[string]*Agent
	fail     bool
}

func (f *fakeSender) Send(peer string, msg model.DraftMessage) error {
	if f.fail {
		return errors.New("link down")
	}
	f.mu.Lock()
	f.sent = append(f.sent, sentMsg{peer: peer, msg: msg})
	f.mu.Unlock()
	if a, ok := f.route[peer]; ok {
		a.Handle(msg)
	}
	return nil
}

func (f *fakeSender) SendStatus(peer string, report model.StatusReport) error {
	if f.fail {
		return errors.New("link down")
	}
	f.mu.Lock()
	f.statuses = append(f.statuses, sentStatus{peer: peer, report: report})
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) messages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMsg, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	f.sent = nil
	f.statuses = nil
	f.mu.Unlock()
}

func (f *fakeSender) countKind(kind model.MessageKind) int {
	n := 0
	for _, s := range f.messages() {
		if s.msg.Kind == kind {
			n++
		}
	}
	return n
}

// fakeDevice is a settable in-memory device.
type fakeDevice struct {
	id      string
	typ     device.Type
	power   float64
	readErr error
	setErr  error
	on      bool
	off     bool
	setTo   []float64
}

func (d *fakeDevice) ID() string       { return d.id }
func (d *fakeDevice) Type() device.Type { return d.typ }
func (d *fakeDevice) PowerLevel() (float64, error) {
	if d.readErr != nil {
		return 0, d.readErr
	}
	return d.power, nil
}
func (d *fakeDevice) TurnOn() error  { d.on = true; return nil }
func (d *fakeDevice) TurnOff() error { d.off = true; return nil }
func (d *fakeDevice) SetPower(kw float64) error {
	if d.setErr != nil {
		return d.setErr
	}
	d.setTo = append(d.setTo, kw)
	d.power = kw
	return nil
}

func newTestAgent(t *testing.T, uuid string, devs ...device.Device) (*Agent, *fakeSender) {
	t.Helper()
	mgr := device.NewManager()
	for _, d := range devs {
		mgr.Add(d)
	}
	sender := &fakeSender{}
	a, err := New(Config{UUID: uuid, IntervalSeconds: 15, GridLinkID: "grid3"},
		mgr, sender, logger.NopLogger{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	return a, sender
}

// checkExclusive asserts every known peer is in at most one classification set.
func checkExclusive(t *testing.T, r *Registry) {
	t.Helper()
	for _, p := range r.Peers() {
		n := 0
		for _, state := range []model.LoadState{model.Supply, model.Normal, model.Demand} {
			for _, q := range r.InState(state) {
				if q.UUID == p.UUID {
					n++
				}
			}
		}
		if n > 1 {
			t.Fatalf("peer %s appears in %d classification sets", p.UUID, n)
		}
	}
}
