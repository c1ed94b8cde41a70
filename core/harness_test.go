package core

import (
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/lsr/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scheduledTask struct {
	at  time.Duration
	seq int
	fn  func()
}

// manualScheduler only runs tasks when the test advances time
type manualScheduler struct {
	now   time.Duration
	seq   int
	tasks []scheduledTask
}

func (m *manualScheduler) Now() time.Duration {
	return m.now
}

func (m *manualScheduler) Schedule(delay time.Duration, fn func()) {
	m.seq++
	m.tasks = append(m.tasks, scheduledTask{at: m.now + max(delay, 0), seq: m.seq, fn: fn})
}

func (m *manualScheduler) Advance(d time.Duration) {
	target := m.now + d
	for {
		idx := -1
		for i, t := range m.tasks {
			if t.at > target {
				continue
			}
			if idx == -1 || t.at < m.tasks[idx].at || (t.at == m.tasks[idx].at && t.seq < m.tasks[idx].seq) {
				idx = i
			}
		}
		if idx == -1 {
			break
		}
		t := m.tasks[idx]
		m.tasks = slices.Delete(m.tasks, idx, idx+1)
		m.now = t.at
		t.fn()
	}
	m.now = target
}

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// NodeHarness is a Node that records everything a protocol does to it
type NodeHarness struct {
	id       state.NodeId
	ifaces   []Interface
	prefixes []netip.Prefix
	fib      *Fib
	actions  []HarnessEvent
}

func NewNodeHarness(id state.NodeId, neighbours ...state.NodeId) *NodeHarness {
	h := &NodeHarness{id: id, fib: NewFib()}
	for i, n := range neighbours {
		h.ifaces = append(h.ifaces, Interface{
			Index:     state.IfIndex(i),
			Neighbour: n,
			Cost:      1,
			Up:        true,
		})
	}
	return h
}

func (h *NodeHarness) GetId() state.NodeId {
	return h.id
}

func (h *NodeHarness) GetInterfaceCount() int {
	return len(h.ifaces)
}

func (h *NodeHarness) GetInterface(idx state.IfIndex) (Interface, bool) {
	if idx < 0 || int(idx) >= len(h.ifaces) {
		return Interface{}, false
	}
	return h.ifaces[idx], true
}

func (h *NodeHarness) GetPrefixes() []netip.Prefix {
	return h.prefixes
}

func (h *NodeHarness) ForwardTable() ForwardTable {
	return h
}

func (h *NodeHarness) InsertRoute(route Route) {
	h.fib.InsertRoute(route)
	h.actions = append(h.actions, MakeEvent("INSERT_ROUTE", route.Dest, route.Distance))
}

func (h *NodeHarness) DeleteRoute(dest state.NodeId) {
	h.fib.DeleteRoute(dest)
	h.actions = append(h.actions, MakeEvent("DELETE_ROUTE", dest))
}

func (h *NodeHarness) SendAdvertisement(idx state.IfIndex, adv state.Advertisement) {
	h.actions = append(h.actions, MakeEvent("SEND_ADV", idx, adv.Origin, adv.Seqno))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

func (h *NodeHarness) GetActions() HarnessEvents {
	x := h.actions
	h.actions = make([]HarnessEvent, 0)
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message != msg || len(event.Args) < len(args) {
			continue
		}
		match := true
		for i, arg := range args {
			if !cmp.Equal(event.Args[i], arg, cmpopts.EquateComparable(netip.Prefix{})) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (e HarnessEvents) Count(msg string) int {
	n := 0
	for _, event := range e {
		if event.Message == msg {
			n++
		}
	}
	return n
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

// staticOracle is a hand-edited topology
type staticOracle struct {
	advs []state.Advertisement
}

func (o *staticOracle) Advertisements() []state.Advertisement {
	out := make([]state.Advertisement, 0, len(o.advs))
	for _, adv := range o.advs {
		out = append(out, adv.Clone())
	}
	return out
}

func (o *staticOracle) SetCost(from, to state.NodeId, cost state.Metric) {
	for i := range o.advs {
		if o.advs[i].Origin != from {
			continue
		}
		for j := range o.advs[i].Edges {
			if o.advs[i].Edges[j].To == to {
				o.advs[i].Edges[j].Cost = cost
			}
		}
	}
}

func testProtocolCfg(variant state.Variant) state.ProtocolCfg {
	return state.ProtocolCfg{
		Variant:     variant,
		SpfDelay:    50 * time.Millisecond,
		SpfDuration: 10 * time.Millisecond,
	}
}
