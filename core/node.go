package core

import (
	"net/netip"

	"github.com/encodeous/lsr/state"
)

// Interface is the view a routing protocol has of one local interface
type Interface struct {
	Index     state.IfIndex
	Neighbour state.NodeId
	Cost      state.Metric
	Up        bool
}

// Node is the router a protocol is attached to
type Node interface {
	GetId() state.NodeId
	GetInterfaceCount() int
	GetInterface(idx state.IfIndex) (Interface, bool)
	// GetPrefixes returns the prefixes this node originates
	GetPrefixes() []netip.Prefix
	ForwardTable() ForwardTable
	// SendAdvertisement transmits adv to the neighbour on idx, delivery is asynchronous and may be lost
	SendAdvertisement(idx state.IfIndex, adv state.Advertisement)
}

// LinkObserver is notified when the state or cost of a local interface changes
type LinkObserver interface {
	HandleLinkChange(idx state.IfIndex)
}

// TopologyObserver is notified of any change anywhere in the network
type TopologyObserver interface {
	HandleTopologyChange()
}

// AdvertisementReceiver accepts advertisements from neighbours
type AdvertisementReceiver interface {
	HandleAdvertisement(from state.IfIndex, adv state.Advertisement)
}

// TopologyOracle exposes the true network topology, one advertisement per router
type TopologyOracle interface {
	Advertisements() []state.Advertisement
}

// UpInterfaces lists the interfaces of n that are up and usable
func UpInterfaces(n Node) []Interface {
	out := make([]Interface, 0, n.GetInterfaceCount())
	for i := range n.GetInterfaceCount() {
		itf, ok := n.GetInterface(state.IfIndex(i))
		if !ok || !itf.Up || itf.Cost == state.INF {
			continue
		}
		out = append(out, itf)
	}
	return out
}
