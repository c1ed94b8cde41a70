package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameValidator(t *testing.T) {
	assert.NoError(t, NameValidator("router-1.core"))
	assert.Error(t, NameValidator("Router"))
	assert.Error(t, NameValidator(""))
	assert.ErrorContains(t, NameValidator(strings.Repeat("a", 101)), "is too long")
}

func validTopology() TopologyCfg {
	return TopologyCfg{
		Protocol: ProtocolCfg{Variant: VariantFlooding},
		Routers:  []RouterCfg{{Id: "a"}, {Id: "b"}},
		Links:    []LinkCfg{{A: "a", B: "b", Cost: 1}},
	}
}

func TestTopologyValidator(t *testing.T) {
	cfg := validTopology()
	assert.NoError(t, TopologyValidator(&cfg))

	cfg = validTopology()
	cfg.Routers = append(cfg.Routers, RouterCfg{Id: "a"})
	assert.ErrorContains(t, TopologyValidator(&cfg), "duplicate router: a")

	cfg = validTopology()
	cfg.Links = append(cfg.Links, LinkCfg{A: "b", B: "a"})
	assert.ErrorContains(t, TopologyValidator(&cfg), "duplicate link found: b, a")

	cfg = validTopology()
	cfg.Links = append(cfg.Links, LinkCfg{A: "a", B: "a"})
	assert.ErrorContains(t, TopologyValidator(&cfg), "link from a to itself")

	cfg = validTopology()
	cfg.Protocol.Variant = "distance-vector"
	assert.ErrorContains(t, TopologyValidator(&cfg), "unknown protocol variant")

	cfg = validTopology()
	cfg.Protocol.RefreshInterval = 10
	cfg.Protocol.MaxAge = 5
	assert.ErrorContains(t, TopologyValidator(&cfg), "must be larger than refresh_interval")

	cfg = validTopology()
	cfg.Protocol.MaxAge = 5
	assert.ErrorContains(t, TopologyValidator(&cfg), "max_age requires refresh_interval")

	cfg = validTopology()
	cfg.Events = []EventCfg{{Kind: EventLinkDown, A: "a", B: "c"}}
	assert.ErrorContains(t, TopologyValidator(&cfg), "unknown link a, c")

	cfg = validTopology()
	cfg.Events = []EventCfg{{Kind: EventDetach, Node: "z"}}
	assert.ErrorContains(t, TopologyValidator(&cfg), "unknown router z")

	cfg = validTopology()
	cfg.Events = []EventCfg{{Kind: "reboot"}}
	assert.ErrorContains(t, TopologyValidator(&cfg), "unknown event kind")
}
