package sim

import (
	"net/netip"
	"slices"

	"github.com/encodeous/lsr/core"
	"github.com/encodeous/lsr/state"
)

type port struct {
	link *Link
	peer *Node
	// index of the link on the peer
	peerIf state.IfIndex
}

// Node is a simulated router. It owns a forwarding table and the binding to its protocol.
type Node struct {
	id       state.NodeId
	net      *Network
	prefixes []netip.Prefix
	ports    []port
	fib      *core.Fib
	Binding  *core.RouterBinding
	received int
}

func (n *Node) GetId() state.NodeId {
	return n.id
}

func (n *Node) GetInterfaceCount() int {
	return len(n.ports)
}

func (n *Node) GetInterface(idx state.IfIndex) (core.Interface, bool) {
	if idx < 0 || int(idx) >= len(n.ports) {
		return core.Interface{}, false
	}
	p := n.ports[idx]
	return core.Interface{
		Index:     idx,
		Neighbour: p.peer.id,
		Cost:      p.link.CostFrom(n),
		Up:        p.link.up,
	}, true
}

func (n *Node) GetPrefixes() []netip.Prefix {
	return slices.Clone(n.prefixes)
}

func (n *Node) ForwardTable() core.ForwardTable {
	return n.fib
}

func (n *Node) Fib() *core.Fib {
	return n.fib
}

// SendAdvertisement delivers adv to the peer after the link delay. Advertisements on a link that is down,
// or goes down while they are in flight, are lost.
func (n *Node) SendAdvertisement(idx state.IfIndex, adv state.Advertisement) {
	if idx < 0 || int(idx) >= len(n.ports) {
		return
	}
	p := n.ports[idx]
	if !p.link.up {
		return
	}
	epoch := p.link.epoch
	n.net.sched.Schedule(p.link.Delay, func() {
		if !p.link.up || p.link.epoch != epoch {
			return
		}
		p.peer.receive(p.peerIf, adv)
	})
}

func (n *Node) receive(idx state.IfIndex, adv state.Advertisement) {
	n.received++
	if r, ok := n.Binding.Protocol().(core.AdvertisementReceiver); ok {
		r.HandleAdvertisement(idx, adv)
	}
}

func (n *Node) linkChanged(idx state.IfIndex) {
	if o, ok := n.Binding.Protocol().(core.LinkObserver); ok {
		o.HandleLinkChange(idx)
	}
}

func (n *Node) topologyChanged() {
	if o, ok := n.Binding.Protocol().(core.TopologyObserver); ok {
		o.HandleTopologyChange()
	}
}

// Router returns the bound link-state router, if any
func (n *Node) Router() (*core.Router, bool) {
	r, ok := n.Binding.Protocol().(*core.Router)
	return r, ok
}

// Received counts every advertisement delivered to the node
func (n *Node) Received() int {
	return n.received
}

var _ core.Node = (*Node)(nil)
