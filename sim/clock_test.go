package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimulatorOrdersEvents(t *testing.T) {
	s := NewSimulator()
	out := make([]string, 0)
	s.Schedule(20*time.Millisecond, func() { out = append(out, "c") })
	s.Schedule(10*time.Millisecond, func() { out = append(out, "a") })
	s.Schedule(10*time.Millisecond, func() {
		out = append(out, "b")
		s.Schedule(0, func() { out = append(out, "b2") })
	})
	s.Schedule(-time.Second, func() { out = append(out, "first") })

	assert.NoError(t, s.Run())
	assert.Equal(t, []string{"first", "a", "b", "b2", "c"}, out)
	assert.Equal(t, 20*time.Millisecond, s.Now())
	assert.Equal(t, 5, s.Processed())
}

func TestSimulatorRunUntil(t *testing.T) {
	s := NewSimulator()
	ran := 0
	s.Schedule(time.Second, func() { ran++ })
	s.Schedule(3*time.Second, func() { ran++ })

	assert.NoError(t, s.RunUntil(2*time.Second))
	assert.Equal(t, 1, ran)
	assert.Equal(t, 2*time.Second, s.Now())
	assert.Equal(t, 1, s.Pending())

	assert.True(t, s.Step())
	assert.Equal(t, 3*time.Second, s.Now())
	assert.False(t, s.Step())
}
