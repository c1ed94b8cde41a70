package state

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"slices"
	"time"

	"github.com/cilium/cilium/pkg/ip"
	"github.com/goccy/go-yaml"
)

type Variant string

const (
	// VariantFlooding builds the database from advertisements flooded between neighbours
	VariantFlooding Variant = "flooding"
	// VariantGlobal copies the database from a precomputed ground truth
	VariantGlobal Variant = "global"
)

type ProtocolCfg struct {
	Variant         Variant       `yaml:"variant,omitempty"`
	Ecmp            bool          `yaml:"ecmp,omitempty"`
	MaxPaths        int           `yaml:"max_paths,omitempty"`
	SpfDelay        time.Duration `yaml:"spf_delay,omitempty"`
	SpfDuration     time.Duration `yaml:"spf_duration,omitempty"`
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"` // re-originate our advertisement periodically
	MaxAge          time.Duration `yaml:"max_age,omitempty"`          // advertisements older than this are dropped
}

type RouterCfg struct {
	Id        NodeId         `yaml:"id"`
	Addresses []netip.Addr   `yaml:",omitempty"`
	Prefixes  []netip.Prefix `yaml:",omitempty"`
}

type LinkCfg struct {
	A           NodeId        `yaml:"a"`
	B           NodeId        `yaml:"b"`
	Cost        Metric        `yaml:"cost,omitempty"`
	ReverseCost *Metric       `yaml:"reverse_cost,omitempty"` // cost from B to A, defaults to Cost
	Delay       time.Duration `yaml:"delay,omitempty"`
	Down        bool          `yaml:"down,omitempty"`
}

type EventKind string

const (
	EventLinkDown EventKind = "link_down"
	EventLinkUp   EventKind = "link_up"
	EventLinkCost EventKind = "link_cost"
	EventDetach   EventKind = "detach"
	EventAttach   EventKind = "attach"
)

// EventCfg is a scheduled change to the simulated network
type EventCfg struct {
	At   time.Duration `yaml:"at"`
	Kind EventKind     `yaml:"kind"`
	A    NodeId        `yaml:"a,omitempty"`
	B    NodeId        `yaml:"b,omitempty"`
	Cost Metric        `yaml:"cost,omitempty"`
	Node NodeId        `yaml:"node,omitempty"`
}

// TopologyCfg describes a simulated network and its scripted changes
type TopologyCfg struct {
	Protocol    ProtocolCfg   `yaml:"protocol,omitempty"`
	Routers     []RouterCfg   `yaml:"routers"`
	Links       []LinkCfg     `yaml:"links,omitempty"`
	Graph       []string      `yaml:"graph,omitempty"` // links in group syntax, see ParseGraph
	DefaultCost Metric        `yaml:"default_cost,omitempty"`
	Events      []EventCfg    `yaml:"events,omitempty"`
	Duration    time.Duration `yaml:"duration,omitempty"`
}

func ReadTopology(path string) (*TopologyCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTopology(file)
}

// ParseTopology decodes, expands and validates a topology
func ParseTopology(data []byte) (*TopologyCfg, error) {
	var cfg TopologyCfg
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode topology: %w", err)
	}
	err = ExpandTopology(&cfg)
	if err != nil {
		return nil, err
	}
	err = TopologyValidator(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ExpandTopology fills in defaults and rewrites Graph lines into Links
func ExpandTopology(cfg *TopologyCfg) error {
	if cfg.DefaultCost == 0 {
		cfg.DefaultCost = DefaultLinkCost
	}
	if cfg.Duration == 0 {
		cfg.Duration = SimulationEnd
	}
	p := &cfg.Protocol
	if p.Variant == "" {
		p.Variant = VariantFlooding
	}
	if p.MaxPaths == 0 && p.Ecmp {
		p.MaxPaths = DefaultMaxPaths
	}
	if p.SpfDelay == 0 {
		p.SpfDelay = SpfDelay
	}
	if p.SpfDuration == 0 {
		p.SpfDuration = SpfDuration
	}
	if p.RefreshInterval == 0 {
		p.RefreshInterval = RefreshInterval
	}
	if p.MaxAge == 0 {
		p.MaxAge = MaxAge
	}

	// advertise addresses as host prefixes (/32 or /128)
	for idx, r := range cfg.Routers {
		for _, addr := range r.Addresses {
			r.Prefixes = append([]netip.Prefix{AddrToPrefix(addr)}, r.Prefixes...)
		}
		r.Addresses = nil
		cfg.Routers[idx] = r
	}

	for idx := range cfg.Links {
		if cfg.Links[idx].Cost == 0 {
			cfg.Links[idx].Cost = cfg.DefaultCost
		}
	}

	if len(cfg.Graph) != 0 {
		pairs, err := ParseGraph(cfg.Graph, cfg.RouterNames())
		if err != nil {
			return err
		}
		for _, pair := range pairs {
			if cfg.FindLink(pair.V1, pair.V2) != nil {
				continue // explicit links take precedence
			}
			cfg.Links = append(cfg.Links, LinkCfg{A: pair.V1, B: pair.V2, Cost: cfg.DefaultCost})
		}
		cfg.Graph = nil
	}
	return nil
}

func (c *TopologyCfg) RouterNames() []string {
	names := make([]string, 0, len(c.Routers))
	for _, r := range c.Routers {
		names = append(names, string(r.Id))
	}
	return names
}

func (c *TopologyCfg) IsRouter(id NodeId) bool {
	return slices.ContainsFunc(c.Routers, func(cfg RouterCfg) bool {
		return cfg.Id == id
	})
}

func (c *TopologyCfg) TryGetRouter(id NodeId) *RouterCfg {
	idx := slices.IndexFunc(c.Routers, func(cfg RouterCfg) bool {
		return cfg.Id == id
	})
	if idx == -1 {
		return nil
	}
	return &c.Routers[idx]
}

// FindLink returns the link between a and b in either direction
func (c *TopologyCfg) FindLink(a, b NodeId) *LinkCfg {
	idx := slices.IndexFunc(c.Links, func(l LinkCfg) bool {
		return l.A == a && l.B == b || l.A == b && l.B == a
	})
	if idx == -1 {
		return nil
	}
	return &c.Links[idx]
}

// GetPeers returns the routers directly linked to id
func (c *TopologyCfg) GetPeers(id NodeId) []NodeId {
	peers := make([]NodeId, 0)
	for _, l := range c.Links {
		if l.A == id {
			peers = append(peers, l.B)
		} else if l.B == id {
			peers = append(peers, l.A)
		}
	}
	slices.Sort(peers)
	return slices.Compact(peers)
}

func (l LinkCfg) CostFrom(from NodeId) Metric {
	if from == l.B && l.ReverseCost != nil {
		return *l.ReverseCost
	}
	return l.Cost
}

func toIPNets(prefixes []netip.Prefix) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(prefixes))
	for _, p := range prefixes {
		if p.IsValid() {
			nets = append(nets, &net.IPNet{
				IP:   p.Addr().AsSlice(),
				Mask: net.CIDRMask(p.Bits(), p.Addr().BitLen()),
			})
		}
	}
	return nets
}

func fromIPNets(nets []*net.IPNet) []netip.Prefix {
	output := make([]netip.Prefix, 0, len(nets))
	for _, n := range nets {
		if addr, ok := netip.AddrFromSlice(n.IP); ok {
			ones, _ := n.Mask.Size()
			output = append(output, netip.PrefixFrom(addr.Unmap(), ones))
		}
	}
	return output
}

// CoalescePrefix merges adjacent and overlapping prefixes
func CoalescePrefix(prefixes []netip.Prefix) []netip.Prefix {
	ipv4, ipv6 := ip.CoalesceCIDRs(toIPNets(prefixes))
	return fromIPNets(append(ipv4, ipv6...))
}
