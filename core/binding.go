package core

import (
	"fmt"
	"log/slog"

	"github.com/encodeous/lsr/state"
)

type ProtocolFamily string

const FamilyLinkState ProtocolFamily = "link-state"

// RoutingAlgorithm is the capability a protocol needs to be bound to a router
type RoutingAlgorithm interface {
	// InitializeRoutes computes routes from the current database and installs them
	InitializeRoutes() error
	// DeleteRoutes withdraws every route the protocol installed
	DeleteRoutes()
}

type RoutingProtocol interface {
	Family() ProtocolFamily
	// Start attaches the protocol to node, it may begin originating and computing
	Start(node Node) error
	// Stop detaches the protocol, pending work must be discarded
	Stop()
}

// RouterBinding owns the relationship between a node and the protocol running on it
type RouterBinding struct {
	node     Node
	family   ProtocolFamily
	protocol RoutingProtocol
	disposed bool
	log      *slog.Logger
}

func NewRouterBinding(node Node, family ProtocolFamily, log *slog.Logger) *RouterBinding {
	return &RouterBinding{
		node:   node,
		family: family,
		log:    log,
	}
}

// Attach binds p to the node. An incompatible p leaves the binding unchanged.
// A previously bound protocol is detached first.
func (b *RouterBinding) Attach(p RoutingProtocol) error {
	if b.disposed {
		return ErrDisposed
	}
	if p == nil {
		return fmt.Errorf("%w: nil protocol", ErrIncompatibleProtocol)
	}
	if p.Family() != b.family {
		return fmt.Errorf("%w: %s protocol on a %s router", ErrIncompatibleProtocol, p.Family(), b.family)
	}
	if _, ok := p.(RoutingAlgorithm); !ok {
		return fmt.Errorf("%w: %T does not implement RoutingAlgorithm", ErrIncompatibleProtocol, p)
	}
	if b.protocol == p {
		return nil
	}
	b.Detach()
	if err := p.Start(b.node); err != nil {
		return fmt.Errorf("failed to start protocol on %s: %w", b.node.GetId(), err)
	}
	b.protocol = p
	b.log.Debug("protocol attached", "node", b.node.GetId(), "family", p.Family())
	return nil
}

// Detach withdraws the routes of the bound protocol and stops it. Detaching an empty binding does nothing.
func (b *RouterBinding) Detach() {
	if b.protocol == nil {
		return
	}
	p := b.protocol
	b.protocol = nil
	p.(RoutingAlgorithm).DeleteRoutes()
	p.Stop()
	b.log.Debug("protocol detached", "node", b.node.GetId())
}

// Dispose detaches, releases the node and makes the binding unusable. It may be called more than once.
func (b *RouterBinding) Dispose() {
	if b.disposed {
		return
	}
	b.Detach()
	b.disposed = true
	b.node = nil
}

func (b *RouterBinding) Protocol() RoutingProtocol {
	return b.protocol
}

// Node returns the bound node, or nil once the binding is disposed
func (b *RouterBinding) Node() Node {
	return b.node
}

func (b *RouterBinding) Disposed() bool {
	return b.disposed
}

// Id is a shorthand for the id of the bound node, it is empty once the binding is disposed
func (b *RouterBinding) Id() state.NodeId {
	if b.node == nil {
		return ""
	}
	return b.node.GetId()
}
