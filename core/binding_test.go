package core

import (
	"errors"
	"testing"
	"time"

	"github.com/encodeous/lsr/state"
	"github.com/stretchr/testify/assert"
)

// bareProtocol can be started but cannot install routes
type bareProtocol struct {
	family  ProtocolFamily
	started int
	stopped int
}

func (p *bareProtocol) Family() ProtocolFamily {
	return p.family
}

func (p *bareProtocol) Start(node Node) error {
	p.started++
	return nil
}

func (p *bareProtocol) Stop() {
	p.stopped++
}

type countingProtocol struct {
	bareProtocol
	deleted int
	failing bool
}

func (p *countingProtocol) Start(node Node) error {
	if p.failing {
		return errors.New("cannot start")
	}
	return p.bareProtocol.Start(node)
}

func (p *countingProtocol) InitializeRoutes() error {
	return nil
}

func (p *countingProtocol) DeleteRoutes() {
	p.deleted++
}

func TestBindingRejectsIncompatibleFamily(t *testing.T) {
	b := NewRouterBinding(NewNodeHarness("A"), FamilyLinkState, discardLogger())
	current := &countingProtocol{bareProtocol: bareProtocol{family: FamilyLinkState}}
	assert.NoError(t, b.Attach(current))

	other := &countingProtocol{bareProtocol: bareProtocol{family: "distance-vector"}}
	err := b.Attach(other)
	assert.ErrorIs(t, err, ErrIncompatibleProtocol)
	assert.Same(t, current, b.Protocol())
	assert.Zero(t, other.started)
	assert.Zero(t, current.stopped)
}

func TestBindingRejectsMissingCapability(t *testing.T) {
	b := NewRouterBinding(NewNodeHarness("A"), FamilyLinkState, discardLogger())
	p := &bareProtocol{family: FamilyLinkState}
	assert.ErrorIs(t, b.Attach(p), ErrIncompatibleProtocol)
	assert.Nil(t, b.Protocol())
	assert.Zero(t, p.started)

	assert.ErrorIs(t, b.Attach(nil), ErrIncompatibleProtocol)
}

func TestBindingRebindDetachesPrevious(t *testing.T) {
	b := NewRouterBinding(NewNodeHarness("A"), FamilyLinkState, discardLogger())
	first := &countingProtocol{bareProtocol: bareProtocol{family: FamilyLinkState}}
	second := &countingProtocol{bareProtocol: bareProtocol{family: FamilyLinkState}}

	assert.NoError(t, b.Attach(first))
	assert.NoError(t, b.Attach(first))
	assert.Equal(t, 1, first.started)

	assert.NoError(t, b.Attach(second))
	assert.Equal(t, 1, first.deleted)
	assert.Equal(t, 1, first.stopped)
	assert.Equal(t, 1, second.started)
	assert.Same(t, second, b.Protocol())
}

func TestBindingStartFailure(t *testing.T) {
	b := NewRouterBinding(NewNodeHarness("A"), FamilyLinkState, discardLogger())
	p := &countingProtocol{bareProtocol: bareProtocol{family: FamilyLinkState}, failing: true}
	assert.Error(t, b.Attach(p))
	assert.Nil(t, b.Protocol())
}

func TestBindingDetachAndDisposeAreIdempotent(t *testing.T) {
	b := NewRouterBinding(NewNodeHarness("A"), FamilyLinkState, discardLogger())
	p := &countingProtocol{bareProtocol: bareProtocol{family: FamilyLinkState}}
	assert.NoError(t, b.Attach(p))

	b.Detach()
	b.Detach()
	assert.Equal(t, 1, p.deleted)
	assert.Equal(t, 1, p.stopped)

	assert.NoError(t, b.Attach(p))
	b.Dispose()
	b.Dispose()
	assert.True(t, b.Disposed())
	assert.Equal(t, 2, p.stopped)
	assert.ErrorIs(t, b.Attach(p), ErrDisposed)
	assert.Nil(t, b.Node())
	assert.Empty(t, b.Id())
}

func TestBindingRunsRouter(t *testing.T) {
	sched := &manualScheduler{}
	h := NewNodeHarness("A", "B", "C")
	b := NewRouterBinding(h, FamilyLinkState, discardLogger())
	r := NewRouter(testProtocolCfg(state.VariantGlobal), sched, discardLogger(), WithOracle(triangle()))
	assert.NoError(t, b.Attach(r))
	sched.Advance(100 * time.Millisecond)
	assert.Equal(t, 2, h.fib.Len())

	b.Dispose()
	assert.Zero(t, h.fib.Len())
	assert.Nil(t, r.Installed())
}
