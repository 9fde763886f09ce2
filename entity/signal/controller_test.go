package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tsinghua-fib-lab/crossing-sim/entity"
	"github.com/tsinghua-fib-lab/crossing-sim/world"
)

func TestCycleTable(t *testing.T) {
	// 相位顺序与时长固定：绿/红4s、黄/红2s、红/绿4s、红/黄2s
	assert.Len(t, cycle, 4)
	assert.Equal(t, phase{entity.LightGreen, entity.LightRed, 4 * time.Second}, cycle[0])
	assert.Equal(t, phase{entity.LightYellow, entity.LightRed, 2 * time.Second}, cycle[1])
	assert.Equal(t, phase{entity.LightRed, entity.LightGreen, 4 * time.Second}, cycle[2])
	assert.Equal(t, phase{entity.LightRed, entity.LightYellow, 2 * time.Second}, cycle[3])
}

func TestControllerInitialPhase(t *testing.T) {
	s := world.NewStore()
	c := NewController(s)

	assert.Equal(t, 12*time.Second, c.Period())

	v, _ := s.Light(entity.AxisVertical)
	h, _ := s.Light(entity.AxisHorizontal)
	assert.Equal(t, entity.LightGreen, v)
	assert.Equal(t, entity.LightRed, h)
	assert.Equal(t, entity.SignalPercept{Vertical: entity.LightGreen, Horizontal: entity.LightRed}, c.Percept())
}

func TestControllerAdvance(t *testing.T) {
	s := world.NewStore()
	c := NewController(s)

	for i := 1; i <= 2*len(cycle); i++ {
		c.advance()
		want := cycle[i%len(cycle)]

		v, _ := s.Light(entity.AxisVertical)
		h, _ := s.Light(entity.AxisHorizontal)
		assert.Equal(t, want.vertical, v, "step %d", i)
		assert.Equal(t, want.horizontal, h, "step %d", i)
		assert.Equal(t, want.vertical, c.Percept().Vertical, "step %d", i)
		assert.Equal(t, want.horizontal, c.Percept().Horizontal, "step %d", i)
	}
}

func TestControllerNeverBothGreen(t *testing.T) {
	s := world.NewStore()
	c := NewController(s)
	for loopi := 0; loopi < len(cycle); loopi++ {
		p := c.Percept()
		assert.False(t, p.Vertical == entity.LightGreen && p.Horizontal == entity.LightGreen)
		// 任一时刻恰有一侧处于红灯
		assert.True(t, p.Vertical == entity.LightRed || p.Horizontal == entity.LightRed)
		c.advance()
	}
}

func TestControllerStopsOnShutdown(t *testing.T) {
	s := world.NewStore()
	c := NewController(s)
	s.Shutdown()

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("controller did not stop after shutdown")
	}
}
